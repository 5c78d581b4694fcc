package metadata_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/heapfit/memutils/metadata"
	"github.com/vkngwrapper/heapfit/memutils/source"
)

func newTestArena(t *testing.T, limit int) *metadata.Arena {
	src, err := source.NewHeapSource(limit)
	require.NoError(t, err)

	return metadata.NewArena(src)
}

// newArenaWithLayout grows one used block per entry in sizes and then frees every block
// whose entry in free is true
func newArenaWithLayout(t *testing.T, sizes []int, free []bool) (*metadata.Arena, []metadata.Block) {
	require.Len(t, free, len(sizes))

	arena := newTestArena(t, 64*1024)
	blocks := make([]metadata.Block, 0, len(sizes))
	for _, size := range sizes {
		block, err := arena.Grow(size)
		require.NoError(t, err)
		blocks = append(blocks, block)
	}

	for i, block := range blocks {
		if free[i] {
			arena.MarkFree(block)
		}
	}

	require.NoError(t, arena.Validate())
	return arena, blocks
}

func allFree(count int) []bool {
	free := make([]bool, count)
	for i := range free {
		free[i] = true
	}
	return free
}

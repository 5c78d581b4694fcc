package metadata_test

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/heapfit/memutils"
	"github.com/vkngwrapper/heapfit/memutils/metadata"
)

func TestArenaGrowAppends(t *testing.T) {
	arena := newTestArena(t, 4096)
	require.Equal(t, metadata.NoBlock, arena.Head())
	require.Equal(t, metadata.NoBlock, arena.Tail())

	first, err := arena.Grow(64)
	require.NoError(t, err)
	require.Equal(t, metadata.Block(0), first)
	require.Equal(t, first, arena.Head())
	require.Equal(t, first, arena.Tail())

	second, err := arena.Grow(32)
	require.NoError(t, err)
	require.Equal(t, metadata.Block(64+metadata.HeaderSize), second)
	require.Equal(t, first, arena.Head())
	require.Equal(t, second, arena.Tail())

	require.Equal(t, metadata.BlockHeader{
		PayloadSize: 64,
		Free:        false,
		Next:        second,
	}, arena.Header(first))
	require.Equal(t, metadata.BlockHeader{
		PayloadSize: 32,
		Free:        false,
		Next:        metadata.NoBlock,
	}, arena.Header(second))

	require.Equal(t, 96+2*metadata.HeaderSize, arena.Source().Frontier())
	require.Zero(t, arena.UsableMemory())
	require.NoError(t, arena.Validate())
}

func TestArenaGrowInvalidSize(t *testing.T) {
	arena := newTestArena(t, 4096)

	_, err := arena.Grow(0)
	require.ErrorIs(t, err, memutils.ErrInvalidSize)

	_, err = arena.Grow(-5)
	require.ErrorIs(t, err, memutils.ErrInvalidSize)

	require.Equal(t, metadata.NoBlock, arena.Head())
	require.Zero(t, arena.Source().Frontier())
}

func TestArenaGrowFailureLeavesArenaUntouched(t *testing.T) {
	arena := newTestArena(t, 100)

	block, err := arena.Grow(50)
	require.NoError(t, err)
	arena.MarkFree(block)

	_, err = arena.Grow(50)
	require.ErrorIs(t, err, memutils.ErrOutOfMemory)

	require.Equal(t, block, arena.Head())
	require.Equal(t, block, arena.Tail())
	require.Equal(t, 50, arena.UsableMemory())
	require.Equal(t, 50+metadata.HeaderSize, arena.Source().Frontier())
	require.NoError(t, arena.Validate())
}

func TestArenaSplitTail(t *testing.T) {
	arena := newTestArena(t, 4096)

	block, err := arena.Grow(100)
	require.NoError(t, err)

	remainder := arena.Split(block, 10)
	require.Equal(t, metadata.Block(10+metadata.HeaderSize), remainder)
	require.Equal(t, remainder, arena.Tail())

	require.Equal(t, metadata.BlockHeader{
		PayloadSize: 10,
		Free:        false,
		Next:        remainder,
	}, arena.Header(block))
	require.Equal(t, metadata.BlockHeader{
		PayloadSize: 100 - 10 - metadata.HeaderSize,
		Free:        true,
		Next:        metadata.NoBlock,
	}, arena.Header(remainder))

	require.Equal(t, 100-10-metadata.HeaderSize, arena.UsableMemory())
	require.NoError(t, arena.Validate())
}

func TestArenaSplitMiddle(t *testing.T) {
	arena, blocks := newArenaWithLayout(t, []int{100, 20}, []bool{true, false})

	remainder := arena.Split(blocks[0], 40)
	require.Equal(t, remainder, arena.Next(blocks[0]))
	require.Equal(t, blocks[1], arena.Next(remainder))
	require.Equal(t, blocks[1], arena.Tail())
	require.NoError(t, arena.Validate())
}

func TestArenaSplitTooSmallPanics(t *testing.T) {
	arena := newTestArena(t, 4096)

	block, err := arena.Grow(30)
	require.NoError(t, err)

	require.Panics(t, func() {
		arena.Split(block, 10)
	})
}

func TestArenaHandles(t *testing.T) {
	arena := newTestArena(t, 4096)
	other := newTestArena(t, 4096)

	block, err := arena.Grow(16)
	require.NoError(t, err)
	otherBlock, err := other.Grow(16)
	require.NoError(t, err)

	handle := arena.HandleFor(block)
	require.False(t, handle.IsNull())
	require.Equal(t, int(block)+metadata.HeaderSize, handle.Offset())

	found, err := arena.BlockFor(handle)
	require.NoError(t, err)
	require.Equal(t, block, found)

	_, err = arena.BlockFor(metadata.NullHandle)
	require.ErrorIs(t, err, memutils.ErrMisuse)

	_, err = arena.BlockFor(other.HandleFor(otherBlock))
	require.ErrorIs(t, err, memutils.ErrMisuse)

	arena.Reset()
	_, err = arena.BlockFor(handle)
	require.ErrorIs(t, err, memutils.ErrMisuse)
}

func TestArenaPayload(t *testing.T) {
	arena := newTestArena(t, 4096)

	first, err := arena.Grow(8)
	require.NoError(t, err)
	second, err := arena.Grow(8)
	require.NoError(t, err)

	payload := arena.Payload(first)
	require.Len(t, payload, 8)
	require.Equal(t, 8, cap(payload))
	copy(payload, "abcdefgh")

	require.Equal(t, []byte("abcdefgh"), arena.Payload(first))
	require.Equal(t, make([]byte, 8), arena.Payload(second))
	require.NoError(t, arena.Validate())
}

func TestArenaReset(t *testing.T) {
	arena, _ := newArenaWithLayout(t, []int{10, 20}, []bool{true, true})
	arena.SetCursor(arena.Tail())
	frontier := arena.Source().Frontier()

	arena.Reset()
	require.Equal(t, metadata.NoBlock, arena.Head())
	require.Equal(t, metadata.NoBlock, arena.Tail())
	require.Equal(t, metadata.NoBlock, arena.Cursor())
	require.Zero(t, arena.UsableMemory())
	require.Equal(t, frontier, arena.Source().Frontier())
	require.NoError(t, arena.Validate())

	block, err := arena.Grow(5)
	require.NoError(t, err)
	require.Equal(t, metadata.Block(frontier), block)
	require.Equal(t, block, arena.Head())
	require.NoError(t, arena.Validate())
}

func TestArenaVisitAllBlocks(t *testing.T) {
	arena, blocks := newArenaWithLayout(t, []int{10, 20, 30}, []bool{false, true, false})

	var visited []metadata.Block
	var sizes []int
	var free []bool
	err := arena.VisitAllBlocks(func(block metadata.Block, header metadata.BlockHeader) error {
		visited = append(visited, block)
		sizes = append(sizes, header.PayloadSize)
		free = append(free, header.Free)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, blocks, visited)
	require.Equal(t, []int{10, 20, 30}, sizes)
	require.Equal(t, []bool{false, true, false}, free)
}

func TestArenaValidateDetectsCorruption(t *testing.T) {
	arena, blocks := newArenaWithLayout(t, []int{10, 20}, []bool{false, false})

	data := arena.Source().Bytes()
	binary.LittleEndian.PutUint64(data[int(blocks[0]):], 11)
	require.Error(t, arena.Validate())

	binary.LittleEndian.PutUint64(data[int(blocks[0]):], 10)
	require.NoError(t, arena.Validate())

	arena.SetCursor(metadata.Block(3))
	require.Error(t, arena.Validate())
}

func TestArenaStatistics(t *testing.T) {
	arena, _ := newArenaWithLayout(t, []int{10, 20, 30, 40}, []bool{false, true, false, true})

	var stats memutils.Statistics
	arena.AddStatistics(&stats)
	require.Equal(t, memutils.Statistics{
		BlockCount:      4,
		AllocationCount: 2,
		BlockBytes:      100,
		AllocationBytes: 40,
	}, stats)
	require.Equal(t, arena.UsableMemory(), stats.UnusedBytes())

	var detailed memutils.DetailedStatistics
	detailed.Clear()
	arena.AddDetailedStatistics(&detailed)
	require.Equal(t, memutils.DetailedStatistics{
		Statistics:         stats,
		UnusedRangeCount:   2,
		AllocationSizeMin:  10,
		AllocationSizeMax:  30,
		UnusedRangeSizeMin: 20,
		UnusedRangeSizeMax: 40,
	}, detailed)
}

func TestArenaBlockJsonData(t *testing.T) {
	arena, _ := newArenaWithLayout(t, []int{10, 20}, []bool{false, true})

	writer := jwriter.NewWriter()
	obj := writer.Object()
	arena.BlockJsonData(&obj)
	obj.Name("Next").Int(1)
	obj.End()
	require.NoError(t, writer.Error())
	require.True(t, json.Valid(writer.Bytes()), string(writer.Bytes()))

	require.JSONEq(t, `{
		"TotalBytes": 78,
		"HeaderBytes": 48,
		"UnusedBytes": 20,
		"Allocations": 1,
		"UnusedRanges": 1,
		"Next": 1
	}`, string(writer.Bytes()))
}

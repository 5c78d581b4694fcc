package fitalloc_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/heapfit/fitalloc"
	"github.com/vkngwrapper/heapfit/memutils/metadata"
	"github.com/vkngwrapper/heapfit/memutils/source"
)

func TestNewSet(t *testing.T) {
	set, err := fitalloc.NewSet(nil, fitalloc.CreateOptions{ArenaLimit: 4096})
	require.NoError(t, err)

	require.Equal(t, []string{"Best Fit", "First Fit", "Worst Fit", "Next Fit"}, set.Names())
	require.Equal(t, 4, set.Len())

	for _, kind := range metadata.StrategyKinds() {
		allocator, ok := set.Get(kind.String())
		require.True(t, ok)
		require.Equal(t, kind, allocator.Strategy())
	}

	_, ok := set.Get("Buddy")
	require.False(t, ok)
}

func TestSetAllocatorsAreIndependent(t *testing.T) {
	set, err := fitalloc.NewSet(nil, fitalloc.CreateOptions{ArenaLimit: 4096})
	require.NoError(t, err)

	var handles []metadata.Handle
	err = set.Each(func(name string, allocator *fitalloc.Allocator) error {
		handle, err := allocator.Allocate(64)
		if err != nil {
			return err
		}
		handles = append(handles, handle)
		return allocator.Free(handle)
	})
	require.NoError(t, err)
	require.Len(t, handles, 4)

	// Every allocator starts its own arena at offset zero, but handles never cross over
	first, _ := set.Get("Best Fit")
	second, _ := set.Get("First Fit")
	require.Equal(t, handles[0].Offset(), handles[1].Offset())
	require.Error(t, second.Free(handles[0]))
	require.Equal(t, 64, first.UsableMemory())

	set.ResetAll()
	_ = set.Each(func(name string, allocator *fitalloc.Allocator) error {
		require.Zero(t, allocator.UsableMemory(), name)
		require.Equal(t, fitalloc.Counters{}, allocator.Counters(), name)
		return nil
	})
}

func TestSetEachStopsOnError(t *testing.T) {
	set, err := fitalloc.NewSet(nil, fitalloc.CreateOptions{})
	require.NoError(t, err)

	stop := errors.New("stop")
	var visited []string
	err = set.Each(func(name string, allocator *fitalloc.Allocator) error {
		visited = append(visited, name)
		if len(visited) == 2 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, []string{"Best Fit", "First Fit"}, visited)
}

func TestSetRejectsSharedSource(t *testing.T) {
	src, err := source.NewHeapSource(1024)
	require.NoError(t, err)

	_, err = fitalloc.NewSet(nil, fitalloc.CreateOptions{Source: src})
	require.Error(t, err)

	_, err = fitalloc.NewSet(nil, fitalloc.CreateOptions{Alignment: 3})
	require.Error(t, err)
}

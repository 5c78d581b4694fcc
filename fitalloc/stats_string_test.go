package fitalloc_test

import (
	"encoding/json"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/heapfit/fitalloc"
	"github.com/vkngwrapper/heapfit/memutils/metadata"
)

func TestBuildStatsString(t *testing.T) {
	allocator, err := fitalloc.New(nil, fitalloc.CreateOptions{
		Strategy:   metadata.StrategyFirstFit,
		ArenaLimit: 1024,
	})
	require.NoError(t, err)

	first, err := allocator.Allocate(10)
	require.NoError(t, err)
	_, err = allocator.Allocate(20)
	require.NoError(t, err)
	require.NoError(t, allocator.Free(first))

	require.JSONEq(t, `{
		"General": {"Strategy": "First Fit", "Alignment": 1, "HeaderSize": 24, "Frontier": 78, "Limit": 1024},
		"Total": {
			"BlockCount": 2, "BlockBytes": 30,
			"AllocationCount": 1, "AllocationBytes": 20,
			"UnusedRangeCount": 1, "UnusedBytes": 10,
			"AllocationSizeMin": 20, "AllocationSizeMax": 20,
			"UnusedRangeSizeMin": 10, "UnusedRangeSizeMax": 10,
			"ExternalFragmentation": 0
		},
		"Counters": {
			"Allocations": 2, "FailedAllocations": 0, "Frees": 1, "Grows": 2, "Reuses": 0, "Splits": 0,
			"BytesRequested": 30, "BytesGranted": 30, "BytesGrown": 78, "InternalFragmentation": 0
		},
		"DetailedMap": {
			"TotalBytes": 78, "HeaderBytes": 48, "UnusedBytes": 10, "Allocations": 1, "UnusedRanges": 1,
			"Blocks": [
				{"Offset": 0, "Type": "FREE", "Size": 10},
				{"Offset": 34, "Type": "USED", "Size": 20}
			]
		}
	}`, allocator.BuildStatsString(true))
}

func TestBuildStatsStringEmpty(t *testing.T) {
	allocator, err := fitalloc.New(nil, fitalloc.CreateOptions{
		Strategy:   metadata.StrategyWorstFit,
		Alignment:  4,
		ArenaLimit: 512,
	})
	require.NoError(t, err)

	require.JSONEq(t, `{
		"General": {"Strategy": "Worst Fit", "Alignment": 4, "HeaderSize": 24, "Frontier": 0, "Limit": 512},
		"Total": {
			"BlockCount": 0, "BlockBytes": 0,
			"AllocationCount": 0, "AllocationBytes": 0,
			"UnusedRangeCount": 0, "UnusedBytes": 0,
			"ExternalFragmentation": 0
		},
		"Counters": {
			"Allocations": 0, "FailedAllocations": 0, "Frees": 0, "Grows": 0, "Reuses": 0, "Splits": 0,
			"BytesRequested": 0, "BytesGranted": 0, "BytesGrown": 0, "InternalFragmentation": 0
		}
	}`, allocator.BuildStatsString(false))
}

func TestPrintDetailedMap(t *testing.T) {
	allocator, err := fitalloc.New(nil, fitalloc.CreateOptions{Strategy: metadata.StrategyBestFit})
	require.NoError(t, err)

	handle, err := allocator.Allocate(100)
	require.NoError(t, err)
	require.NoError(t, allocator.Free(handle))
	_, err = allocator.Allocate(10)
	require.NoError(t, err)

	writer := jwriter.NewWriter()
	allocator.PrintDetailedMap(&writer)
	require.NoError(t, writer.Error())
	require.True(t, json.Valid(writer.Bytes()), string(writer.Bytes()))

	require.JSONEq(t, `{
		"TotalBytes": 124, "HeaderBytes": 48, "UnusedBytes": 66, "Allocations": 1, "UnusedRanges": 1,
		"Blocks": [
			{"Offset": 0, "Type": "USED", "Size": 10},
			{"Offset": 34, "Type": "FREE", "Size": 66}
		]
	}`, string(writer.Bytes()))
}

func TestStatsStringIsValidJson(t *testing.T) {
	for _, kind := range metadata.StrategyKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			allocator, err := fitalloc.New(nil, fitalloc.CreateOptions{Strategy: kind})
			require.NoError(t, err)

			handle, err := allocator.Allocate(16)
			require.NoError(t, err)
			require.NoError(t, allocator.Free(handle))

			for _, detailedMap := range []bool{false, true} {
				str := allocator.BuildStatsString(detailedMap)
				require.True(t, json.Valid([]byte(str)), str)
			}

			writer := jwriter.NewWriter()
			allocator.PrintDetailedMap(&writer)
			require.NoError(t, writer.Error())
			require.True(t, json.Valid(writer.Bytes()), string(writer.Bytes()))
		})
	}
}

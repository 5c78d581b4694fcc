package fitalloc

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/heapfit/memutils"
	"github.com/vkngwrapper/heapfit/memutils/metadata"
)

const (
	blockTypeFree = "FREE"
	blockTypeUsed = "USED"
)

// BuildStatsString returns a json document describing the allocator: its configuration, a summary
// of the arena, its counters and, if detailedMap is true, every block in the arena
func (a *Allocator) BuildStatsString(detailedMap bool) string {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	writer := jwriter.NewWriter()
	obj := writer.Object()

	general := obj.Name("General").Object()
	general.Name("Strategy").String(a.strategy.Kind().String())
	general.Name("Alignment").Int(int(a.alignment))
	general.Name("HeaderSize").Int(metadata.HeaderSize)
	general.Name("Frontier").Int(a.arena.Source().Frontier())
	general.Name("Limit").Int(a.arena.Source().Limit())
	general.End()

	var stats memutils.DetailedStatistics
	stats.Clear()
	a.arena.AddDetailedStatistics(&stats)

	total := obj.Name("Total").Object()
	printDetailedStatistics(&total, &stats)
	total.End()

	counters := obj.Name("Counters").Object()
	a.printCounters(&counters)
	counters.End()

	if detailedMap {
		detailed := obj.Name("DetailedMap").Object()
		a.printDetailedMap(&detailed)
		detailed.End()
	}

	obj.End()
	return string(writer.Bytes())
}

// PrintDetailedMap writes a json object listing every block in the arena, in address order
func (a *Allocator) PrintDetailedMap(writer *jwriter.Writer) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	obj := writer.Object()
	defer obj.End()

	a.printDetailedMap(&obj)
}

func (a *Allocator) printDetailedMap(json *jwriter.ObjectState) {
	a.arena.BlockJsonData(json)

	arrayState := json.Name("Blocks").Array()
	defer arrayState.End()

	_ = a.arena.VisitAllBlocks(func(block metadata.Block, header metadata.BlockHeader) error {
		obj := arrayState.Object()
		defer obj.End()

		obj.Name("Offset").Int(int(block))
		if header.Free {
			obj.Name("Type").String(blockTypeFree)
		} else {
			obj.Name("Type").String(blockTypeUsed)
		}
		obj.Name("Size").Int(header.PayloadSize)

		return nil
	})
}

func (a *Allocator) printCounters(json *jwriter.ObjectState) {
	c := a.counters
	json.Name("Allocations").Int(c.Allocations)
	json.Name("FailedAllocations").Int(c.FailedAllocations)
	json.Name("Frees").Int(c.Frees)
	json.Name("Grows").Int(c.Grows)
	json.Name("Reuses").Int(c.Reuses)
	json.Name("Splits").Int(c.Splits)
	json.Name("BytesRequested").Int(c.BytesRequested)
	json.Name("BytesGranted").Int(c.BytesGranted)
	json.Name("BytesGrown").Int(c.BytesGrown)
	json.Name("InternalFragmentation").Float64(c.InternalFragmentation())
}

func printDetailedStatistics(json *jwriter.ObjectState, stats *memutils.DetailedStatistics) {
	json.Name("BlockCount").Int(stats.BlockCount)
	json.Name("BlockBytes").Int(stats.BlockBytes)
	json.Name("AllocationCount").Int(stats.AllocationCount)
	json.Name("AllocationBytes").Int(stats.AllocationBytes)
	json.Name("UnusedRangeCount").Int(stats.UnusedRangeCount)
	json.Name("UnusedBytes").Int(stats.UnusedBytes())

	if stats.AllocationCount > 0 {
		json.Name("AllocationSizeMin").Int(stats.AllocationSizeMin)
		json.Name("AllocationSizeMax").Int(stats.AllocationSizeMax)
	}

	if stats.UnusedRangeCount > 0 {
		json.Name("UnusedRangeSizeMin").Int(stats.UnusedRangeSizeMin)
		json.Name("UnusedRangeSizeMax").Int(stats.UnusedRangeSizeMax)
	}

	json.Name("ExternalFragmentation").Float64(stats.ExternalFragmentation())
}

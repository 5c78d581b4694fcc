// Package telemetry exports the state of a set of allocators as prometheus metrics. Every metric
// carries a strategy label holding the name the allocator is registered under.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vkngwrapper/heapfit/fitalloc"
	"github.com/vkngwrapper/heapfit/memutils"
)

// DefaultNamespace prefixes every metric name unless another namespace is passed to NewCollector
const DefaultNamespace = "heapfit"

const (
	blockStateFree = "free"
	blockStateUsed = "used"
)

// AllocatorLister is implemented by anything that can enumerate named allocators, such as
// *fitalloc.Set
type AllocatorLister interface {
	Each(fn func(name string, allocator *fitalloc.Allocator) error) error
}

// Collector is a prometheus.Collector that reads allocator statistics at scrape time
type Collector struct {
	allocators AllocatorLister

	frontierBytes         *prometheus.Desc
	usableBytes           *prometheus.Desc
	allocatedBytes        *prometheus.Desc
	blocks                *prometheus.Desc
	externalFragmentation *prometheus.Desc
	internalFragmentation *prometheus.Desc

	allocations       *prometheus.Desc
	failedAllocations *prometheus.Desc
	frees             *prometheus.Desc
	grows             *prometheus.Desc
	reuses            *prometheus.Desc
	splits            *prometheus.Desc
}

var _ prometheus.Collector = &Collector{}

// NewCollector creates a collector over allocators. An empty namespace means DefaultNamespace.
func NewCollector(namespace string, allocators AllocatorLister) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", name),
			help,
			append([]string{"strategy"}, labels...),
			nil,
		)
	}

	return &Collector{
		allocators: allocators,

		frontierBytes:         desc("arena_frontier_bytes", "Bytes the arena has obtained from its source, including memory given up by resets"),
		usableBytes:           desc("usable_bytes", "Sum of the payload sizes of every free block"),
		allocatedBytes:        desc("allocated_bytes", "Sum of the payload sizes of every used block"),
		blocks:                desc("blocks", "Number of blocks in the chain", "state"),
		externalFragmentation: desc("external_fragmentation_ratio", "1 minus the largest free block over all free bytes"),
		internalFragmentation: desc("internal_fragmentation_ratio", "1 minus requested bytes over granted bytes"),

		allocations:       desc("allocations", "Successful allocations since the last reset"),
		failedAllocations: desc("failed_allocations", "Allocations that returned the null handle since the last reset"),
		frees:             desc("frees", "Blocks freed since the last reset"),
		grows:             desc("grows", "Allocations that extended the arena since the last reset"),
		reuses:            desc("reuses", "Allocations placed in an existing free block since the last reset"),
		splits:            desc("splits", "Free blocks split to fit a request since the last reset"),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.frontierBytes
	ch <- c.usableBytes
	ch <- c.allocatedBytes
	ch <- c.blocks
	ch <- c.externalFragmentation
	ch <- c.internalFragmentation
	ch <- c.allocations
	ch <- c.failedAllocations
	ch <- c.frees
	ch <- c.grows
	ch <- c.reuses
	ch <- c.splits
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	_ = c.allocators.Each(func(name string, allocator *fitalloc.Allocator) error {
		var stats memutils.DetailedStatistics
		allocator.CalculateDetailedStatistics(&stats)
		counters := allocator.Counters()

		gauge := func(desc *prometheus.Desc, value float64, labels ...string) {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, value, append([]string{name}, labels...)...)
		}
		// Reset zeroes the activity counts, so they are exported as gauges
		count := func(desc *prometheus.Desc, value int) {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(value), name)
		}

		gauge(c.frontierBytes, float64(allocator.Frontier()))
		gauge(c.usableBytes, float64(stats.UnusedBytes()))
		gauge(c.allocatedBytes, float64(stats.AllocationBytes))
		gauge(c.blocks, float64(stats.UnusedRangeCount), blockStateFree)
		gauge(c.blocks, float64(stats.AllocationCount), blockStateUsed)
		gauge(c.externalFragmentation, stats.ExternalFragmentation())
		gauge(c.internalFragmentation, counters.InternalFragmentation())

		count(c.allocations, counters.Allocations)
		count(c.failedAllocations, counters.FailedAllocations)
		count(c.frees, counters.Frees)
		count(c.grows, counters.Grows)
		count(c.reuses, counters.Reuses)
		count(c.splits, counters.Splits)

		return nil
	})
}

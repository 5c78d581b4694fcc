package fitalloc

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/heapfit/memutils/metadata"
	"golang.org/x/exp/slog"
)

// Set holds one independent allocator per placement strategy, registered under the strategy's
// name. It is the table a benchmarking harness iterates over to run the same workload against
// every strategy.
type Set struct {
	names      []string
	allocators *swiss.Map[string, *Allocator]
}

// NewSet creates one allocator for each entry in metadata.StrategyKinds() using options, with
// options.Strategy replaced each time. Each allocator gets its own arena and source, so
// options.Source must be nil.
func NewSet(logger *slog.Logger, options CreateOptions) (*Set, error) {
	if options.Source != nil {
		return nil, errors.New("allocators in a set cannot share a source")
	}
	if logger == nil {
		logger = discardLogger()
	}

	set := &Set{
		names:      make([]string, 0, len(metadata.StrategyKinds())),
		allocators: swiss.NewMap[string, *Allocator](uint32(len(metadata.StrategyKinds()))),
	}

	for _, kind := range metadata.StrategyKinds() {
		kindOptions := options
		kindOptions.Strategy = kind

		allocator, err := New(logger.With(slog.String("strategy", kind.String())), kindOptions)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create %s allocator", kind)
		}

		set.names = append(set.names, kind.String())
		set.allocators.Put(kind.String(), allocator)
	}

	return set, nil
}

// Get returns the allocator registered under name, which is a strategy name as returned by
// metadata.StrategyKind.String
func (s *Set) Get(name string) (*Allocator, bool) {
	return s.allocators.Get(name)
}

// Names returns the names of every allocator in the set, in registration order
func (s *Set) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// Len returns the number of allocators in the set
func (s *Set) Len() int {
	return s.allocators.Count()
}

// Each calls fn for every allocator in registration order, stopping at the first error
func (s *Set) Each(fn func(name string, allocator *Allocator) error) error {
	for _, name := range s.names {
		allocator, _ := s.allocators.Get(name)
		err := fn(name, allocator)
		if err != nil {
			return err
		}
	}

	return nil
}

// ResetAll resets every allocator in the set
func (s *Set) ResetAll() {
	_ = s.Each(func(name string, allocator *Allocator) error {
		allocator.Reset()
		return nil
	})
}

package fitalloc

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heapfit/fitalloc/internal/utils"
	"github.com/vkngwrapper/heapfit/memutils"
	"github.com/vkngwrapper/heapfit/memutils/metadata"
	"golang.org/x/exp/slog"
)

// Allocator binds one arena to one placement strategy. Unless it was created with
// AllocatorCreateExternallySynchronized, every method may be called from multiple goroutines.
type Allocator struct {
	logger    *slog.Logger
	mutex     utils.OptionalRWMutex
	arena     *metadata.Arena
	strategy  metadata.Strategy
	alignment uint

	counters Counters
}

// Allocate returns a handle to a payload of at least size bytes. A free block chosen by the
// allocator's strategy is reused if there is one; otherwise the arena grows. On failure the null
// handle is returned along with an error matching memutils.ErrInvalidSize (size is not positive)
// or memutils.ErrOutOfMemory (the arena could not grow), and the arena is unchanged.
func (a *Allocator) Allocate(size int) (metadata.Handle, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if size <= 0 {
		a.counters.FailedAllocations++
		return metadata.NullHandle, errors.Wrapf(memutils.ErrInvalidSize, "requested %d bytes", size)
	}
	if size > math.MaxInt-int(a.alignment) {
		a.counters.FailedAllocations++
		return metadata.NullHandle, errors.Wrapf(memutils.ErrOutOfMemory, "requested %d bytes", size)
	}

	memutils.DebugCheckPow2(a.alignment, "alignment")
	allocSize := memutils.AlignUp(size, a.alignment)

	block, found := a.strategy.FindFree(a.arena, allocSize)
	if found {
		if a.strategy.Claim(a.arena, block, allocSize) {
			a.counters.Splits++
			a.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Split free block",
				slog.Int("Offset", int(block)),
				slog.Int("Size", allocSize),
				slog.Int("Remainder", a.arena.PayloadSize(a.arena.Next(block))),
			)
		}
		a.counters.Reuses++
	} else {
		var err error
		block, err = a.arena.Grow(allocSize)
		if err != nil {
			a.counters.FailedAllocations++
			a.logger.LogAttrs(context.Background(), slog.LevelWarn, "failed to grow arena",
				slog.String("Strategy", a.strategy.Kind().String()),
				slog.Int("Size", allocSize),
				slog.Any("error", err),
			)
			return metadata.NullHandle, err
		}

		a.strategy.Appended(a.arena, block)
		a.counters.Grows++
		a.counters.BytesGrown += allocSize + metadata.HeaderSize
		a.logger.LogAttrs(context.Background(), slog.LevelDebug, "    Grew arena",
			slog.Int("Offset", int(block)),
			slog.Int("Size", allocSize),
			slog.Int("Frontier", a.arena.Source().Frontier()),
		)
	}

	a.counters.Allocations++
	a.counters.BytesRequested += size
	a.counters.BytesGranted += a.arena.PayloadSize(block)

	memutils.DebugValidate(a.arena)

	return a.arena.HandleFor(block), nil
}

// Free marks the block behind handle free. Adjacent free blocks are not merged. Freeing the null
// handle does nothing. Handles from another allocator, handles issued before the last Reset, and
// handles whose block is already free are rejected with memutils.ErrMisuse.
func (a *Allocator) Free(handle metadata.Handle) error {
	if handle.IsNull() {
		return nil
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	block, err := a.arena.BlockFor(handle)
	if err != nil {
		return err
	}

	if a.arena.IsFree(block) {
		return errors.Wrapf(memutils.ErrMisuse, "block at offset %d is already free", block)
	}

	a.arena.MarkFree(block)
	a.counters.Frees++

	memutils.DebugValidate(a.arena)

	return nil
}

// Bytes returns the payload behind handle. The slice stays valid until the handle is freed or the
// allocator is reset, and its capacity is capped at the payload size.
func (a *Allocator) Bytes(handle metadata.Handle) ([]byte, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	block, err := a.liveBlock(handle)
	if err != nil {
		return nil, err
	}

	return a.arena.Payload(block), nil
}

// PayloadSize returns the usable size of the block behind handle, which may be larger than the
// size that was requested
func (a *Allocator) PayloadSize(handle metadata.Handle) (int, error) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	block, err := a.liveBlock(handle)
	if err != nil {
		return 0, err
	}

	return a.arena.PayloadSize(block), nil
}

func (a *Allocator) liveBlock(handle metadata.Handle) (metadata.Block, error) {
	block, err := a.arena.BlockFor(handle)
	if err != nil {
		return metadata.NoBlock, err
	}

	if a.arena.IsFree(block) {
		return metadata.NoBlock, errors.Wrapf(memutils.ErrMisuse, "block at offset %d has been freed", block)
	}

	return block, nil
}

// UsableMemory returns the sum of the payload sizes of every free block
func (a *Allocator) UsableMemory() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.arena.UsableMemory()
}

// Reset forgets every block and zeroes the counters so the allocator can serve an independent run.
// Memory already obtained for the arena is not released; the arena continues growing from where it
// left off. Every handle issued before the reset becomes invalid.
func (a *Allocator) Reset() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "Allocator::Reset",
		slog.String("Strategy", a.strategy.Kind().String()),
		slog.Int("Frontier", a.arena.Source().Frontier()),
		slog.Int("Allocations", a.counters.Allocations),
	)

	a.arena.Reset()
	a.counters = Counters{}
}

// Strategy returns the placement strategy this allocator was created with
func (a *Allocator) Strategy() metadata.StrategyKind {
	return a.strategy.Kind()
}

// Counters returns a snapshot of the allocator's activity since creation or the last Reset
func (a *Allocator) Counters() Counters {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.counters
}

// Frontier returns the number of bytes the arena has obtained over its lifetime, including
// memory given up by Reset
func (a *Allocator) Frontier() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.arena.Source().Frontier()
}

// Validate performs a consistency check over the whole block chain
func (a *Allocator) Validate() error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	return a.arena.Validate()
}

// CalculateStatistics populates stats with a summary of the arena's blocks
func (a *Allocator) CalculateStatistics(stats *memutils.Statistics) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	stats.Clear()
	a.arena.AddStatistics(stats)
}

// CalculateDetailedStatistics populates stats with a detailed summary of the arena's blocks
func (a *Allocator) CalculateDetailedStatistics(stats *memutils.DetailedStatistics) {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	stats.Clear()
	a.arena.AddDetailedStatistics(stats)
}

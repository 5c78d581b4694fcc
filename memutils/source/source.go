// Package source holds the growth primitives an arena extends itself with. A Source behaves like a
// program break: it hands out one contiguous range of bytes whose end only ever moves forward.
// Nothing that has been handed out is ever returned.
package source

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heapfit/memutils"
)

// DefaultLimit is the reservation used when a Source is created with a limit of zero. It is equal to 64Mb.
const DefaultLimit int = 64 * 1024 * 1024

// Source is a forward-only, contiguous supply of bytes
type Source interface {
	// Grow extends the frontier by size bytes and returns the offset of the first new byte. On failure
	// the frontier is unchanged and the error matches memutils.ErrOutOfMemory (or memutils.ErrInvalidSize
	// if size is not positive).
	Grow(size int) (int, error)
	// Frontier returns the number of bytes handed out so far
	Frontier() int
	// Limit returns the largest value Frontier can ever reach
	Limit() int
	// Bytes returns every byte below the frontier. The backing memory never moves, so slices of
	// the returned value stay valid after later calls to Grow.
	Bytes() []byte
}

func checkGrow(frontier, limit, size int) error {
	if size <= 0 {
		return errors.Wrapf(memutils.ErrInvalidSize, "cannot grow by %d bytes", size)
	}
	if size > limit-frontier {
		return errors.Wrapf(memutils.ErrOutOfMemory, "growing by %d bytes would pass the %d byte limit (frontier at %d)", size, limit, frontier)
	}
	return nil
}

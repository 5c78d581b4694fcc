package memutils

import "github.com/cockroachdb/errors"

var (
	// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
	PowerOfTwoError error = errors.New("number must be a power of two")

	// ErrInvalidSize is returned when an allocation is requested for zero or a negative number of bytes
	ErrInvalidSize error = errors.New("allocation size must be greater than zero")
	// ErrOutOfMemory is returned when the growth primitive refuses to extend the arena any further
	ErrOutOfMemory error = errors.New("out of memory")
	// ErrMisuse is returned when a handle is freed or dereferenced that does not belong to the arena
	// in its current generation, or when a block is freed twice
	ErrMisuse error = errors.New("invalid handle")
)

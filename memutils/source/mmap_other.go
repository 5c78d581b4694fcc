//go:build !unix

package source

import "github.com/cockroachdb/errors"

// MmapSource is only available on unix platforms
type MmapSource struct {
	HeapSource
}

// NewMmapSource always fails on this platform; use NewHeapSource instead
func NewMmapSource(limit int) (*MmapSource, error) {
	return nil, errors.New("mmap sources are not supported on this platform")
}

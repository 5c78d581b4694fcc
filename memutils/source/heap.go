package source

import (
	"github.com/cockroachdb/errors"
)

// HeapSource reserves its whole limit as a single Go slice up front and moves a frontier through it
type HeapSource struct {
	data     []byte
	frontier int
}

var _ Source = &HeapSource{}

// NewHeapSource creates a HeapSource that can grow to limit bytes. A limit of zero uses DefaultLimit.
func NewHeapSource(limit int) (*HeapSource, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 {
		return nil, errors.Errorf("invalid source limit: %d", limit)
	}

	return &HeapSource{
		data: make([]byte, limit),
	}, nil
}

func (s *HeapSource) Grow(size int) (int, error) {
	err := checkGrow(s.frontier, len(s.data), size)
	if err != nil {
		return 0, err
	}

	offset := s.frontier
	s.frontier += size
	return offset, nil
}

func (s *HeapSource) Frontier() int { return s.frontier }

func (s *HeapSource) Limit() int { return len(s.data) }

func (s *HeapSource) Bytes() []byte {
	return s.data[:s.frontier:s.frontier]
}

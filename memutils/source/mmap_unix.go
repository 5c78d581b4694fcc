//go:build unix

package source

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heapfit/memutils"
	"golang.org/x/sys/unix"
)

// MmapSource reserves an anonymous address range with no access rights and commits pages to it with
// mprotect as the frontier advances. The reservation is never unmapped.
type MmapSource struct {
	data      []byte
	frontier  int
	committed int
	pageSize  int
}

var _ Source = &MmapSource{}

// NewMmapSource reserves limit bytes, rounded up to the page size. A limit of zero uses DefaultLimit.
func NewMmapSource(limit int) (*MmapSource, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 {
		return nil, errors.Errorf("invalid source limit: %d", limit)
	}

	pageSize := unix.Getpagesize()
	limit = memutils.AlignUp(limit, uint(pageSize))

	data, err := unix.Mmap(-1, 0, limit, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to reserve %d bytes", limit)
	}

	return &MmapSource{
		data:     data,
		pageSize: pageSize,
	}, nil
}

func (s *MmapSource) Grow(size int) (int, error) {
	err := checkGrow(s.frontier, len(s.data), size)
	if err != nil {
		return 0, err
	}

	newFrontier := s.frontier + size
	if newFrontier > s.committed {
		newCommitted := memutils.AlignUp(newFrontier, uint(s.pageSize))
		if newCommitted > len(s.data) {
			newCommitted = len(s.data)
		}

		err = unix.Mprotect(s.data[s.committed:newCommitted], unix.PROT_READ|unix.PROT_WRITE)
		if err != nil {
			return 0, errors.Mark(errors.Wrapf(err, "failed to commit %d bytes", newCommitted-s.committed), memutils.ErrOutOfMemory)
		}
		s.committed = newCommitted
	}

	offset := s.frontier
	s.frontier = newFrontier
	return offset, nil
}

func (s *MmapSource) Frontier() int { return s.frontier }

func (s *MmapSource) Limit() int { return len(s.data) }

func (s *MmapSource) Bytes() []byte {
	return s.data[:s.frontier:s.frontier]
}

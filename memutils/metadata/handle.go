package metadata

import "fmt"

// Handle identifies the payload of a block handed out by an Arena. Handles can only be produced by the
// arena that owns the block. The zero value is the null handle, returned alongside every failed
// allocation.
type Handle struct {
	arena      uint64
	generation uint64
	payload    int
}

// NullHandle is the handle returned when nothing could be allocated
var NullHandle Handle

// IsNull returns true for the null handle. No payload can start at offset 0 because a header always
// precedes it.
func (h Handle) IsNull() bool {
	return h.payload == 0
}

// Offset returns the offset of the payload within the arena's bytes, or 0 for the null handle
func (h Handle) Offset() int {
	return h.payload
}

func (h Handle) String() string {
	if h.IsNull() {
		return "Handle(null)"
	}
	return fmt.Sprintf("Handle(arena=%d, generation=%d, offset=%d)", h.arena, h.generation, h.payload)
}

package metadata

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/heapfit/memutils"
	"github.com/vkngwrapper/heapfit/memutils/source"
)

var nextArenaID uint64

// Arena owns a chain of blocks laid out back to back in the memory of a source.Source. Chain order,
// creation order and address order are always the same thing: growth only appends at the tail
// and a split inserts its remainder directly after the block being split.
//
// Arena is not safe for concurrent use.
type Arena struct {
	id         uint64
	generation uint64
	source     source.Source

	head   Block
	tail   Block
	cursor Block

	// generationStart is the frontier of the source when the current generation began
	generationStart int
}

var _ memutils.Validatable = &Arena{}

// NewArena creates an empty arena that grows out of src. The arena must be the only consumer of src.
func NewArena(src source.Source) *Arena {
	return &Arena{
		id:              atomic.AddUint64(&nextArenaID, 1),
		source:          src,
		head:            NoBlock,
		tail:            NoBlock,
		cursor:          NoBlock,
		generationStart: src.Frontier(),
	}
}

func (a *Arena) data() []byte {
	return a.source.Bytes()
}

// Source returns the growth primitive backing this arena
func (a *Arena) Source() source.Source { return a.source }

// Head returns the first block in the chain, or NoBlock if nothing has been allocated since creation
// or the last Reset
func (a *Arena) Head() Block { return a.head }

// Tail returns the last block in the chain, or NoBlock if the chain is empty
func (a *Arena) Tail() Block { return a.tail }

// Cursor returns the last block a next-fit search settled on, or NoBlock
func (a *Arena) Cursor() Block { return a.cursor }

// SetCursor moves the next-fit cursor. NoBlock clears it.
func (a *Arena) SetCursor(b Block) { a.cursor = b }

// Header decodes the header of the provided block
func (a *Arena) Header(b Block) BlockHeader {
	return readHeader(a.data(), b)
}

// Next returns the block following b in the chain, or NoBlock
func (a *Arena) Next(b Block) Block {
	return readNext(a.data(), b)
}

// PayloadSize returns the usable size of the provided block
func (a *Arena) PayloadSize(b Block) int {
	return readPayloadSize(a.data(), b)
}

// IsFree returns whether the provided block is available for placement
func (a *Arena) IsFree(b Block) bool {
	return readFree(a.data(), b)
}

// MarkUsed flags the block as allocated
func (a *Arena) MarkUsed(b Block) {
	writeFree(a.data(), b, false)
}

// MarkFree flags the block as free. Neighboring free blocks are left alone.
func (a *Arena) MarkFree(b Block) {
	writeFree(a.data(), b, true)
}

// Grow obtains size bytes plus one header from the source and appends the result to the tail of
// the chain as a used block. If the source refuses, the arena is left untouched.
func (a *Arena) Grow(size int) (Block, error) {
	if size <= 0 {
		return NoBlock, errors.Wrapf(memutils.ErrInvalidSize, "requested %d bytes", size)
	}
	if size > math.MaxInt-HeaderSize {
		return NoBlock, errors.Wrapf(memutils.ErrOutOfMemory, "requested %d bytes", size)
	}

	offset, err := a.source.Grow(size + HeaderSize)
	if err != nil {
		return NoBlock, err
	}

	block := Block(offset)
	writeHeader(a.data(), block, BlockHeader{
		PayloadSize: size,
		Free:        false,
		Next:        NoBlock,
	})

	if a.tail != NoBlock {
		writeNext(a.data(), a.tail, block)
	} else {
		a.head = block
	}
	a.tail = block

	return block, nil
}

// Split shrinks b to exactly size bytes of payload and links a new free block holding the remainder
// (less one header) directly after it. The new block is returned.
func (a *Arena) Split(b Block, size int) Block {
	data := a.data()
	header := readHeader(data, b)
	leftover := header.PayloadSize - size - HeaderSize
	if size <= 0 || leftover < 0 {
		panic(fmt.Sprintf("cannot split block at offset %d with payload %d down to %d bytes", b, header.PayloadSize, size))
	}

	remainder := Block(int(b) + HeaderSize + size)
	writeHeader(data, remainder, BlockHeader{
		PayloadSize: leftover,
		Free:        true,
		Next:        header.Next,
	})
	writePayloadSize(data, b, size)
	writeNext(data, b, remainder)

	if a.tail == b {
		a.tail = remainder
	}

	return remainder
}

// HandleFor returns the caller-facing handle for the payload of b
func (a *Arena) HandleFor(b Block) Handle {
	return Handle{
		arena:      a.id,
		generation: a.generation,
		payload:    int(b) + HeaderSize,
	}
}

// BlockFor recovers the block whose payload the handle refers to. It fails with memutils.ErrMisuse if
// the handle is null, was produced by another arena, or was produced before the last Reset.
func (a *Arena) BlockFor(h Handle) (Block, error) {
	if h.IsNull() {
		return NoBlock, errors.Wrap(memutils.ErrMisuse, "null handle")
	}
	if h.arena != a.id {
		return NoBlock, errors.Wrapf(memutils.ErrMisuse, "handle belongs to arena %d, not arena %d", h.arena, a.id)
	}
	if h.generation != a.generation {
		return NoBlock, errors.Wrap(memutils.ErrMisuse, "handle was issued before the arena was reset")
	}

	block := Block(h.payload - HeaderSize)
	if int(block) < a.generationStart || h.payload > a.source.Frontier() {
		return NoBlock, errors.Wrapf(memutils.ErrMisuse, "handle offset %d is outside of the arena", h.payload)
	}

	return block, nil
}

// Payload returns the usable bytes of b. The slice is capped at the payload size.
func (a *Arena) Payload(b Block) []byte {
	data := a.data()
	start := int(b) + HeaderSize
	end := start + readPayloadSize(data, b)
	return data[start:end:end]
}

// UsableMemory returns the sum of the payload sizes of every free block in the chain
func (a *Arena) UsableMemory() int {
	data := a.data()
	var total int
	for b := a.head; b != NoBlock; b = readNext(data, b) {
		if readFree(data, b) {
			total += readPayloadSize(data, b)
		}
	}
	return total
}

// Reset forgets every block. Memory already obtained from the source is not given back: the next
// growth starts at the current frontier. Handles issued before the reset are rejected afterwards.
func (a *Arena) Reset() {
	a.head = NoBlock
	a.tail = NoBlock
	a.cursor = NoBlock
	a.generation++
	a.generationStart = a.source.Frontier()
}

// VisitAllBlocks calls handleBlock once for every block in chain order
func (a *Arena) VisitAllBlocks(handleBlock func(block Block, header BlockHeader) error) error {
	data := a.data()
	for b := a.head; b != NoBlock; {
		header := readHeader(data, b)
		err := handleBlock(b, header)
		if err != nil {
			return err
		}
		b = header.Next
	}

	return nil
}

// Validate walks the chain and checks that blocks tile the current generation's memory exactly,
// in address order, and that the cached tail and cursor are part of the chain
func (a *Arena) Validate() error {
	data := a.data()
	frontier := a.source.Frontier()

	if a.head == NoBlock {
		if a.tail != NoBlock {
			return errors.Errorf("the chain is empty, but the tail is set to offset %d", a.tail)
		}
		if a.cursor != NoBlock {
			return errors.Errorf("the chain is empty, but the cursor is set to offset %d", a.cursor)
		}
		if frontier != a.generationStart {
			return errors.Errorf("the chain is empty, but %d bytes were obtained since the last reset", frontier-a.generationStart)
		}
		return nil
	}

	if int(a.head) != a.generationStart {
		return errors.Errorf("the head block should be at offset %d, but instead it is at offset %d", a.generationStart, a.head)
	}

	expectedOffset := a.generationStart
	last := NoBlock
	cursorFound := a.cursor == NoBlock

	for b := a.head; b != NoBlock; b = readNext(data, b) {
		if int(b) != expectedOffset {
			return errors.Errorf("block at offset %d does not start where the previous block ends (offset %d)", b, expectedOffset)
		}
		if int(b)+HeaderSize > frontier {
			return errors.Errorf("block at offset %d has a header past the frontier at %d", b, frontier)
		}

		size := readPayloadSize(data, b)
		if size < 0 {
			return errors.Errorf("block at offset %d has a negative payload size", b)
		}

		if b == a.cursor {
			cursorFound = true
		}

		expectedOffset = int(b) + HeaderSize + size
		last = b
	}

	if expectedOffset != frontier {
		return errors.Errorf("the blocks end at offset %d, but the frontier is at offset %d", expectedOffset, frontier)
	}

	if last != a.tail {
		return errors.Errorf("the last block in the chain is at offset %d, but the tail is set to offset %d", last, a.tail)
	}

	if !cursorFound {
		return errors.Errorf("the cursor is set to offset %d, which is not part of the chain", a.cursor)
	}

	return nil
}

// AddStatistics sums this arena's block statistics into the statistics currently present in the
// provided memutils.Statistics object
func (a *Arena) AddStatistics(stats *memutils.Statistics) {
	data := a.data()
	for b := a.head; b != NoBlock; b = readNext(data, b) {
		size := readPayloadSize(data, b)
		stats.BlockCount++
		stats.BlockBytes += size

		if !readFree(data, b) {
			stats.AllocationCount++
			stats.AllocationBytes += size
		}
	}
}

// AddDetailedStatistics sums this arena's block statistics into the statistics currently present
// in the provided memutils.DetailedStatistics object
func (a *Arena) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	data := a.data()
	for b := a.head; b != NoBlock; b = readNext(data, b) {
		size := readPayloadSize(data, b)
		stats.BlockCount++
		stats.BlockBytes += size

		if readFree(data, b) {
			stats.AddUnusedRange(size)
		} else {
			stats.AddAllocation(size)
		}
	}
}

// BlockJsonData populates a json object with information about this arena
func (a *Arena) BlockJsonData(json *jwriter.ObjectState) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	a.AddDetailedStatistics(&stats)

	json.Name("TotalBytes").Int(a.source.Frontier() - a.generationStart)
	json.Name("HeaderBytes").Int(stats.BlockCount * HeaderSize)
	json.Name("UnusedBytes").Int(stats.UnusedBytes())
	json.Name("Allocations").Int(stats.AllocationCount)
	json.Name("UnusedRanges").Int(stats.UnusedRangeCount)
}

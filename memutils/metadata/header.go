package metadata

import (
	"encoding/binary"
)

// Block is the offset of a block header within an arena's bytes
type Block int

const (
	// NoBlock marks the absence of a block: an empty chain, an unset cursor or the end of the chain
	NoBlock Block = -1

	// HeaderSize is the number of bytes every block header occupies immediately before its payload
	HeaderSize int = 24

	payloadSizeOffset = 0
	freeFlagOffset    = 8
	nextOffset        = 16
)

// BlockHeader is the decoded form of the record that prefixes every region of an arena
type BlockHeader struct {
	// PayloadSize is the number of usable bytes following the header
	PayloadSize int
	// Free is true while the block is available to placement strategies
	Free bool
	// Next is the following block in address order, or NoBlock at the tail
	Next Block
}

func readPayloadSize(data []byte, b Block) int {
	return int(binary.LittleEndian.Uint64(data[int(b)+payloadSizeOffset:]))
}

func writePayloadSize(data []byte, b Block, size int) {
	binary.LittleEndian.PutUint64(data[int(b)+payloadSizeOffset:], uint64(size))
}

func readFree(data []byte, b Block) bool {
	return binary.LittleEndian.Uint32(data[int(b)+freeFlagOffset:]) != 0
}

func writeFree(data []byte, b Block, free bool) {
	var flag uint32
	if free {
		flag = 1
	}
	binary.LittleEndian.PutUint32(data[int(b)+freeFlagOffset:], flag)
}

func readNext(data []byte, b Block) Block {
	return Block(int64(binary.LittleEndian.Uint64(data[int(b)+nextOffset:])))
}

func writeNext(data []byte, b Block, next Block) {
	binary.LittleEndian.PutUint64(data[int(b)+nextOffset:], uint64(int64(next)))
}

func writeHeader(data []byte, b Block, header BlockHeader) {
	writePayloadSize(data, b, header.PayloadSize)
	writeFree(data, b, header.Free)
	// padding
	binary.LittleEndian.PutUint32(data[int(b)+freeFlagOffset+4:], 0)
	writeNext(data, b, header.Next)
}

func readHeader(data []byte, b Block) BlockHeader {
	return BlockHeader{
		PayloadSize: readPayloadSize(data, b),
		Free:        readFree(data, b),
		Next:        readNext(data, b),
	}
}

package metadata

// BestFit scans the whole chain for the smallest free block that is large enough, keeping the first
// one seen on ties. If the block has more than SplitThreshold bytes to spare once a header is
// subtracted, it is split and the remainder becomes a new free block right after it. Otherwise the
// spare bytes stay inside the allocation.
type BestFit struct {
	SplitThreshold int
}

var _ Strategy = BestFit{}

func NewBestFit(splitThreshold int) BestFit {
	return BestFit{SplitThreshold: splitThreshold}
}

func (s BestFit) Kind() StrategyKind { return StrategyBestFit }

func (s BestFit) FindFree(arena *Arena, size int) (Block, bool) {
	data := arena.data()

	best := NoBlock
	bestSize := 0
	for b := arena.head; b != NoBlock; b = readNext(data, b) {
		if !readFree(data, b) {
			continue
		}

		blockSize := readPayloadSize(data, b)
		if blockSize >= size && (best == NoBlock || blockSize < bestSize) {
			best = b
			bestSize = blockSize
		}
	}

	return best, best != NoBlock
}

func (s BestFit) Claim(arena *Arena, block Block, size int) bool {
	split := false
	if arena.PayloadSize(block)-size-HeaderSize > s.SplitThreshold {
		arena.Split(block, size)
		split = true
	}

	arena.MarkUsed(block)
	return split
}

func (s BestFit) Appended(arena *Arena, block Block) {}

package metadata

// FirstFit scans from the head of the chain and takes the first free block that is large enough.
// The block is handed out whole, however oversized.
type FirstFit struct{}

var _ Strategy = FirstFit{}

func NewFirstFit() FirstFit { return FirstFit{} }

func (s FirstFit) Kind() StrategyKind { return StrategyFirstFit }

func (s FirstFit) FindFree(arena *Arena, size int) (Block, bool) {
	data := arena.data()
	for b := arena.head; b != NoBlock; b = readNext(data, b) {
		if readFree(data, b) && readPayloadSize(data, b) >= size {
			return b, true
		}
	}

	return NoBlock, false
}

func (s FirstFit) Claim(arena *Arena, block Block, size int) bool {
	return wholeBlock(arena, block)
}

func (s FirstFit) Appended(arena *Arena, block Block) {}

package metadata

// WorstFit scans the whole chain for the largest free block that is large enough, keeping the first
// one seen on ties, and hands it out whole
type WorstFit struct{}

var _ Strategy = WorstFit{}

func NewWorstFit() WorstFit { return WorstFit{} }

func (s WorstFit) Kind() StrategyKind { return StrategyWorstFit }

func (s WorstFit) FindFree(arena *Arena, size int) (Block, bool) {
	data := arena.data()

	worst := NoBlock
	worstSize := 0
	for b := arena.head; b != NoBlock; b = readNext(data, b) {
		if !readFree(data, b) {
			continue
		}

		blockSize := readPayloadSize(data, b)
		if blockSize >= size && (worst == NoBlock || blockSize > worstSize) {
			worst = b
			worstSize = blockSize
		}
	}

	return worst, worst != NoBlock
}

func (s WorstFit) Claim(arena *Arena, block Block, size int) bool {
	return wholeBlock(arena, block)
}

func (s WorstFit) Appended(arena *Arena, block Block) {}

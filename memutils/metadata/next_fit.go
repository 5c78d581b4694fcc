package metadata

// NextFit begins scanning at the block after the arena's cursor, wraps around to the head once it
// passes the tail, and gives up when it comes back to where it started. The cursor follows every
// block it hands out and every block the arena grows for it. Blocks are not split.
type NextFit struct{}

var _ Strategy = NextFit{}

func NewNextFit() NextFit { return NextFit{} }

func (s NextFit) Kind() StrategyKind { return StrategyNextFit }

func (s NextFit) FindFree(arena *Arena, size int) (Block, bool) {
	data := arena.data()

	start := arena.head
	if arena.cursor != NoBlock {
		if next := readNext(data, arena.cursor); next != NoBlock {
			start = next
		}
	}

	if start == NoBlock {
		return NoBlock, false
	}

	b := start
	for {
		if readFree(data, b) && readPayloadSize(data, b) >= size {
			return b, true
		}

		b = readNext(data, b)
		if b == NoBlock {
			b = arena.head
		}
		if b == start {
			return NoBlock, false
		}
	}
}

func (s NextFit) Claim(arena *Arena, block Block, size int) bool {
	arena.cursor = block
	return wholeBlock(arena, block)
}

func (s NextFit) Appended(arena *Arena, block Block) {
	arena.cursor = block
}

package metadata

import (
	"github.com/cockroachdb/errors"
)

// StrategyKind identifies one of the placement strategies that decide which free block satisfies an
// allocation request
type StrategyKind uint32

const (
	// StrategyFirstFit hands out the first free block in chain order that is large enough
	StrategyFirstFit StrategyKind = iota + 1
	// StrategyNextFit resumes scanning after the block the previous search settled on, wrapping
	// around to the head of the chain
	StrategyNextFit
	// StrategyBestFit hands out the smallest free block that is large enough, splitting off the
	// remainder when it is worth keeping
	StrategyBestFit
	// StrategyWorstFit hands out the largest free block, whole
	StrategyWorstFit
)

// DefaultSplitThreshold is the number of leftover bytes, after subtracting a header, that a best-fit
// block must exceed before it is split
const DefaultSplitThreshold int = 4

var strategyKindMapping = map[StrategyKind]string{
	StrategyFirstFit: "First Fit",
	StrategyNextFit:  "Next Fit",
	StrategyBestFit:  "Best Fit",
	StrategyWorstFit: "Worst Fit",
}

func (k StrategyKind) String() string {
	return strategyKindMapping[k]
}

var strategyKinds = [...]StrategyKind{StrategyBestFit, StrategyFirstFit, StrategyWorstFit, StrategyNextFit}

// StrategyKinds returns every placement strategy in the order reports present them. The slice is a
// fresh copy on each call.
func StrategyKinds() []StrategyKind {
	kinds := make([]StrategyKind, len(strategyKinds))
	copy(kinds, strategyKinds[:])
	return kinds
}

// ParseStrategyKind maps a name as returned by StrategyKind.String back to its kind
func ParseStrategyKind(name string) (StrategyKind, error) {
	for kind, kindName := range strategyKindMapping {
		if kindName == name {
			return kind, nil
		}
	}

	return 0, errors.Newf("unknown placement strategy: %q", name)
}

// Strategy is a placement policy over an Arena. A Strategy may keep per-arena state in the arena
// itself (the next-fit cursor) but holds none of its own, so one value can serve many arenas.
type Strategy interface {
	// Kind identifies the strategy
	Kind() StrategyKind
	// FindFree returns the free block this strategy would place an allocation of size bytes in. It
	// must not modify the arena.
	FindFree(arena *Arena, size int) (Block, bool)
	// Claim marks a block returned by FindFree as used for an allocation of size bytes, splitting it
	// if the strategy does so. It returns true if a split took place.
	Claim(arena *Arena, block Block, size int) bool
	// Appended is called when FindFree came up empty and the arena grew to supply block instead
	Appended(arena *Arena, block Block)
}

// NewStrategy creates the strategy for kind. splitThreshold is only used by best-fit.
func NewStrategy(kind StrategyKind, splitThreshold int) (Strategy, error) {
	switch kind {
	case StrategyFirstFit:
		return NewFirstFit(), nil
	case StrategyNextFit:
		return NewNextFit(), nil
	case StrategyBestFit:
		return NewBestFit(splitThreshold), nil
	case StrategyWorstFit:
		return NewWorstFit(), nil
	}

	return nil, errors.Newf("unknown placement strategy: %d", kind)
}

// wholeBlock is the Claim behavior shared by every strategy that never splits
func wholeBlock(arena *Arena, block Block) bool {
	arena.MarkUsed(block)
	return false
}

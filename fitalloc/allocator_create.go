package fitalloc

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heapfit/fitalloc/internal/utils"
	"github.com/vkngwrapper/heapfit/memutils"
	"github.com/vkngwrapper/heapfit/memutils/metadata"
	"github.com/vkngwrapper/heapfit/memutils/source"
	"golang.org/x/exp/slog"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// AllocatorCreateExternallySynchronized ensures that this allocator will not be synchronized
	// internally. The consumer must guarantee it is used from only one goroutine at a time or is
	// synchronized by some other mechanism, but allocation latency improves because no mutex is taken.
	AllocatorCreateExternallySynchronized CreateFlags = 1 << iota
	// AllocatorCreateMmapSource grows the arena out of an anonymous memory mapping instead of a Go
	// slice when no Source is provided. Only available on unix platforms.
	AllocatorCreateMmapSource
)

var createFlagsMapping = []struct {
	flag CreateFlags
	name string
}{
	{AllocatorCreateExternallySynchronized, "AllocatorCreateExternallySynchronized"},
	{AllocatorCreateMmapSource, "AllocatorCreateMmapSource"},
}

func (f CreateFlags) String() string {
	var names []string
	for _, mapping := range createFlagsMapping {
		if f&mapping.flag != 0 {
			names = append(names, mapping.name)
		}
	}

	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, "|")
}

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// Strategy is the placement strategy the allocator uses for its whole lifetime. The default
	// is metadata.StrategyFirstFit.
	Strategy metadata.StrategyKind
	// SplitThreshold is the number of spare bytes, after one header is subtracted, that a best-fit
	// block must exceed before it is split. The default is metadata.DefaultSplitThreshold. It has no
	// effect on other strategies.
	SplitThreshold int
	// Alignment rounds every request size up to a multiple of itself before searching. Must be a
	// power of two. The default is 1, which leaves requests as they are. Payload addresses are not
	// aligned: headers are 24 bytes and best-fit remainders keep whatever size is left over.
	Alignment uint
	// ArenaLimit is the most memory, headers included, the arena may ever obtain. Only used
	// when Source is nil. The default is source.DefaultLimit.
	ArenaLimit int
	// Source is the growth primitive the arena extends itself with. If nil, one is created from
	// ArenaLimit and Flags. A Source must not be shared between allocators.
	Source source.Source
}

// New creates an Allocator. logger may be nil, in which case nothing is logged.
func New(logger *slog.Logger, options CreateOptions) (*Allocator, error) {
	if logger == nil {
		logger = discardLogger()
	}

	if options.Strategy == 0 {
		options.Strategy = metadata.StrategyFirstFit
	}
	if options.SplitThreshold == 0 {
		options.SplitThreshold = metadata.DefaultSplitThreshold
	}
	if options.SplitThreshold < 0 {
		return nil, errors.Errorf("invalid split threshold: %d", options.SplitThreshold)
	}
	if options.Alignment == 0 {
		options.Alignment = 1
	}

	err := memutils.CheckPow2(options.Alignment, "alignment")
	if err != nil {
		return nil, err
	}

	strategy, err := metadata.NewStrategy(options.Strategy, options.SplitThreshold)
	if err != nil {
		return nil, err
	}

	src := options.Source
	if src == nil {
		src, err = newSource(options)
		if err != nil {
			return nil, err
		}
	}

	allocator := &Allocator{
		logger:    logger,
		mutex:     utils.OptionalRWMutex{UseMutex: options.Flags&AllocatorCreateExternallySynchronized == 0},
		arena:     metadata.NewArena(src),
		strategy:  strategy,
		alignment: options.Alignment,
	}

	logger.Debug("Allocator::New",
		slog.String("Strategy", options.Strategy.String()),
		slog.String("Flags", options.Flags.String()),
		slog.Int("Limit", src.Limit()),
		slog.Int("Alignment", int(options.Alignment)),
	)

	return allocator, nil
}

func newSource(options CreateOptions) (source.Source, error) {
	if options.Flags&AllocatorCreateMmapSource != 0 {
		return source.NewMmapSource(options.ArenaLimit)
	}

	return source.NewHeapSource(options.ArenaLimit)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

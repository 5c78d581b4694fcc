package fitalloc

// Counters records what an allocator has done since it was created or last reset
type Counters struct {
	// Allocations is the number of successful calls to Allocate
	Allocations int
	// FailedAllocations is the number of calls to Allocate that returned the null handle
	FailedAllocations int
	// Frees is the number of successful calls to Free with a non-null handle
	Frees int
	// Grows is the number of allocations that had to extend the arena
	Grows int
	// Reuses is the number of allocations that were placed in an existing free block
	Reuses int
	// Splits is the number of reused blocks that were split to fit the request
	Splits int
	// BytesRequested is the sum of the sizes passed to successful calls to Allocate
	BytesRequested int
	// BytesGranted is the sum of the payload sizes handed out by successful calls to Allocate
	BytesGranted int
	// BytesGrown is the number of bytes, headers included, the arena has been extended by
	BytesGrown int
}

// InternalFragmentation is the share of granted bytes that were not asked for:
// 1 - (BytesRequested / BytesGranted). It is 0 before anything has been allocated.
func (c Counters) InternalFragmentation() float64 {
	if c.BytesGranted == 0 {
		return 0
	}

	return 1 - float64(c.BytesRequested)/float64(c.BytesGranted)
}

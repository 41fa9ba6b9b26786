package blobseq

import (
	"errors"
	"fmt"
)

// Allocator provides the buffers a Sequence copies blobs into.
//
// Alloc must return a slice of exactly n bytes or an error. Free is called
// with every buffer the Sequence no longer needs, including buffers from a
// failed Insert.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(b []byte)
}

// ensure we implement desired interface
var (
	_ Allocator = HeapAllocator{}
	_ Allocator = &LimitAllocator{}
)

// HeapAllocator allocates from the Go heap.
// Sizes the runtime refuses to allocate are reported as ErrAllocation
// instead of a panic.
type HeapAllocator struct{}

func (HeapAllocator) Alloc(n int) (b []byte, err error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrAllocation, n)
	}
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = fmt.Errorf("%w: %d bytes: %v", ErrAllocation, n, r)
		}
	}()
	return make([]byte, n), nil
}

// Free is a no-op, the garbage collector reclaims the buffer.
func (HeapAllocator) Free(b []byte) {}

// LimitAllocator hands out at most Max bytes at a time.
// Freed buffers give their bytes back to the budget.
// It can be shared by several sequences (but not between goroutines).
type LimitAllocator struct {
	Max int64
	// Next does the actual allocation, HeapAllocator if nil
	Next Allocator

	inUse int64
}

func NewLimitAllocator(max int64) *LimitAllocator {
	return &LimitAllocator{Max: max}
}

func (a *LimitAllocator) next() Allocator {
	if a.Next == nil {
		return HeapAllocator{}
	}
	return a.Next
}

func (a *LimitAllocator) Alloc(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrAllocation, n)
	}
	if a.inUse+int64(n) > a.Max {
		return nil, fmt.Errorf("%w: %d bytes requested, %d of %d in use", ErrAllocation, n, a.inUse, a.Max)
	}
	b, err := a.next().Alloc(n)
	if err != nil {
		return nil, err
	}
	a.inUse += int64(len(b))
	return b, nil
}

func (a *LimitAllocator) Free(b []byte) {
	a.inUse -= int64(len(b))
	a.next().Free(b)
}

// InUse returns the number of bytes handed out and not yet freed.
func (a *LimitAllocator) InUse() int64 {
	return a.inUse
}

// allocCopy returns a copy of data in a buffer from alloc.
// On error nothing is left allocated.
func allocCopy(alloc Allocator, data []byte) ([]byte, error) {
	n := len(data)
	b, err := alloc.Alloc(n)
	if err != nil {
		if !errors.Is(err, ErrAllocation) {
			err = fmt.Errorf("%w: %w", ErrAllocation, err)
		}
		return nil, err
	}
	if len(b) != n {
		alloc.Free(b)
		return nil, fmt.Errorf("%w: allocator returned %d bytes, wanted %d", ErrAllocation, len(b), n)
	}
	copy(b, data)
	return b, nil
}

// makeEntries allocates an empty entry table with room for n entries.
func makeEntries(n int) (res [][]byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: entry table for %d entries: %v", ErrAllocation, n, r)
		}
	}()
	return make([][]byte, 0, n), nil
}

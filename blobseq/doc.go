// Package blobseq provides an ordered, append-only container of
// variable-length byte blobs.
//
// A [Sequence] owns a copy of every blob inserted into it. Blobs are
// addressed by their zero-based position in insertion order.
//
// # Basic Usage
//
//	s, err := blobseq.New(nil)
//	if err != nil {
//	    return err
//	}
//	defer s.Destroy()
//
//	err = s.Insert([]byte("ab"))
//	err = s.Insert([]byte("cde"))
//
//	n, _ := s.Len()   // 2
//	d, _ := s.Get(1)  // "cde"
//	_, err = s.Get(2) // errors.Is(err, blobseq.ErrOutOfRange)
//
// # Ownership
//
// Insert copies the caller's bytes, so the caller can reuse its buffer as
// soon as Insert returns. Get returns a view into the stored copy, not a
// new slice. The view must not be modified and is only valid until
// Destroy is called. Its capacity is clipped to its length so appending
// to it never writes into the sequence.
//
// # Errors
//
// Every error returned by this package wraps one of [ErrInvalidArgument],
// [ErrOutOfRange] or [ErrAllocation]; use errors.Is to test for them.
// A failed call never leaves the sequence changed.
//
// # Memory
//
// Byte buffers come from an [Allocator]. The default [HeapAllocator]
// uses the Go heap; [LimitAllocator] caps the number of bytes held by
// one or more sequences.
//
// # Thread Safety
//
// A Sequence is not safe for concurrent use. Callers sharing one between
// goroutines must provide their own locking.
package blobseq

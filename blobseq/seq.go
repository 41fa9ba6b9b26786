package blobseq

import (
	"fmt"
	"iter"
)

const minTableGrow = 8

type Options struct {
	// number of entries to allocate room for up front
	InitialCap int
	// if > 0, the entry table never grows beyond that many entries and
	// inserting more fails with ErrAllocation
	MaxEntries int
	// where blob copies are allocated, HeapAllocator if nil
	Allocator Allocator
}

// Sequence is an append-only list of owned byte blobs.
// A nil *Sequence is valid to call methods on and fails with
// ErrInvalidArgument, the same as a destroyed one.
type Sequence struct {
	// entries[i] is the copy of the i-th inserted blob
	// len(entries) is the number of entries
	entries    [][]byte
	size       int64
	alloc      Allocator
	maxEntries int
	destroyed  bool
}

// New creates an empty sequence. opts can be nil.
func New(opts *Options) (*Sequence, error) {
	if opts == nil {
		opts = &Options{}
	}
	if opts.InitialCap < 0 {
		return nil, fmt.Errorf("%w: negative InitialCap %d", ErrInvalidArgument, opts.InitialCap)
	}
	if opts.MaxEntries < 0 {
		return nil, fmt.Errorf("%w: negative MaxEntries %d", ErrInvalidArgument, opts.MaxEntries)
	}
	s := &Sequence{
		alloc:      opts.Allocator,
		maxEntries: opts.MaxEntries,
	}
	if s.alloc == nil {
		s.alloc = HeapAllocator{}
	}
	n := opts.InitialCap
	if s.maxEntries > 0 && n > s.maxEntries {
		n = s.maxEntries
	}
	if n > 0 {
		var err error
		s.entries, err = makeEntries(n)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Sequence) check(op string) error {
	if s == nil {
		return fmt.Errorf("%w: %s: nil sequence", ErrInvalidArgument, op)
	}
	if s.destroyed {
		return fmt.Errorf("%w: %s: sequence was destroyed", ErrInvalidArgument, op)
	}
	return nil
}

// reserveSlot makes room in the entry table for one more entry.
// The number of entries doesn't change.
func (s *Sequence) reserveSlot() error {
	n := len(s.entries)
	if s.maxEntries > 0 && n >= s.maxEntries {
		return fmt.Errorf("%w: entry table is full at %d entries", ErrAllocation, n)
	}
	if n < cap(s.entries) {
		return nil
	}
	newCap := max(n*2, minTableGrow)
	if s.maxEntries > 0 && newCap > s.maxEntries {
		newCap = s.maxEntries
	}
	entries, err := makeEntries(newCap)
	if err != nil {
		return err
	}
	s.entries = append(entries, s.entries...)
	return nil
}

// Insert appends a copy of data.
// data must be non-nil and not empty.
// On error the sequence is left as it was.
func (s *Sequence) Insert(data []byte) error {
	_, err := s.InsertPos(data)
	return err
}

// InsertPos is like Insert but also returns the position of the new entry.
// Returns -1 on error.
func (s *Sequence) InsertPos(data []byte) (int, error) {
	if err := s.check("insert"); err != nil {
		return -1, err
	}
	if data == nil {
		return -1, fmt.Errorf("%w: insert: nil data", ErrInvalidArgument)
	}
	if len(data) == 0 {
		return -1, fmt.Errorf("%w: insert: empty data", ErrInvalidArgument)
	}
	// room for the entry first, then the copy, so that a failed copy
	// doesn't leave anything to undo in the table
	if err := s.reserveSlot(); err != nil {
		return -1, err
	}
	b, err := allocCopy(s.alloc, data)
	if err != nil {
		return -1, err
	}
	s.entries = append(s.entries, b)
	s.size += int64(len(b))
	return len(s.entries) - 1, nil
}

// Get returns the blob at pos.
// The returned slice is owned by the sequence: don't modify it and don't
// use it after Destroy.
func (s *Sequence) Get(pos int) ([]byte, error) {
	if err := s.check("get"); err != nil {
		return nil, err
	}
	n := len(s.entries)
	if pos < 0 || pos >= n {
		return nil, fmt.Errorf("%w: position %d, length %d", ErrOutOfRange, pos, n)
	}
	b := s.entries[pos]
	return b[:len(b):len(b)], nil
}

// Len returns the number of entries.
func (s *Sequence) Len() (int, error) {
	if err := s.check("len"); err != nil {
		return 0, err
	}
	return len(s.entries), nil
}

// Size returns the total number of bytes stored in all entries.
func (s *Sequence) Size() (int64, error) {
	if err := s.check("size"); err != nil {
		return 0, err
	}
	return s.size, nil
}

// All iterates over entries in insertion order.
// The same ownership rules as for Get apply to the yielded slices.
// Yields nothing for a nil or destroyed sequence.
func (s *Sequence) All() iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		if s.check("all") != nil {
			return
		}
		for i, b := range s.entries {
			if !yield(i, b[:len(b):len(b)]) {
				return
			}
		}
	}
}

// Destroy releases all entries. The sequence can't be used afterwards:
// all methods fail with ErrInvalidArgument.
func (s *Sequence) Destroy() error {
	if err := s.check("destroy"); err != nil {
		return err
	}
	for i, b := range s.entries {
		s.alloc.Free(b)
		s.entries[i] = nil
	}
	s.entries = nil
	s.size = 0
	s.destroyed = true
	return nil
}

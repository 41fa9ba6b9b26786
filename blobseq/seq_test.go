package blobseq

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rng = rand.New(rand.NewSource(time.Now().UnixNano()))

func genRandomBlob(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Intn(256))
	}
	return b
}

func genRandomBlobs(n int) [][]byte {
	res := make([][]byte, n)
	for i := range res {
		res[i] = genRandomBlob(1 + rng.Intn(1000))
	}
	return res
}

func newSeq(t *testing.T, opts *Options) *Sequence {
	s, err := New(opts)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

func mustLen(t *testing.T, s *Sequence) int {
	n, err := s.Len()
	require.NoError(t, err)
	return n
}

// countingAllocator fails the failOn-th call to Alloc (1-based)
// and counts live buffers
type countingAllocator struct {
	failOn    int
	shortBy   int
	calls     int
	allocated int
	freed     int
}

func (a *countingAllocator) Alloc(n int) ([]byte, error) {
	a.calls++
	if a.calls == a.failOn {
		return nil, errors.New("out of memory")
	}
	a.allocated++
	return make([]byte, n-a.shortBy), nil
}

func (a *countingAllocator) Free(b []byte) {
	a.freed++
}

func (a *countingAllocator) live() int {
	return a.allocated - a.freed
}

func TestExampleScenario(t *testing.T) {
	s := newSeq(t, nil)
	require.NoError(t, s.Insert([]byte("ab")))
	require.NoError(t, s.Insert([]byte("cde")))
	assert.Equal(t, 2, mustLen(t, s))

	d, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), d)
	assert.Len(t, d, 2)

	d, err = s.Get(1)
	require.NoError(t, err)
	assert.Equal(t, []byte("cde"), d)
	assert.Len(t, d, 3)

	d, err = s.Get(2)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Nil(t, d)

	require.NoError(t, s.Destroy())
}

func TestInsertAndGetMany(t *testing.T) {
	for _, n := range []int{0, 1, 7, 8, 9, 1000} {
		s := newSeq(t, nil)
		blobs := genRandomBlobs(n)
		var size int64
		for i, b := range blobs {
			pos, err := s.InsertPos(b)
			require.NoError(t, err)
			assert.Equal(t, i, pos)
			size += int64(len(b))
		}
		assert.Equal(t, n, mustLen(t, s))
		got, err := s.Size()
		require.NoError(t, err)
		assert.Equal(t, size, got)
		for i, b := range blobs {
			d, err := s.Get(i)
			require.NoError(t, err)
			if !bytes.Equal(b, d) {
				t.Fatalf("blob %d: data mismatch, len exp: %d, got: %d", i, len(b), len(d))
			}
		}
		_, err = s.Get(n)
		assert.ErrorIs(t, err, ErrOutOfRange)
		require.NoError(t, s.Destroy())
	}
}

func TestInsertInvalid(t *testing.T) {
	s := newSeq(t, nil)
	require.NoError(t, s.Insert([]byte("x")))

	pos, err := s.InsertPos(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, -1, pos)

	err = s.Insert([]byte{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, 1, mustLen(t, s))
}

func TestGetOutOfRange(t *testing.T) {
	s := newSeq(t, nil)
	_, err := s.Get(0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	require.NoError(t, s.Insert([]byte("a")))
	for _, pos := range []int{1, 2, 100, math.MaxInt, -1, math.MinInt} {
		d, err := s.Get(pos)
		assert.ErrorIs(t, err, ErrOutOfRange, "pos: %d", pos)
		assert.Nil(t, d)
	}
}

func TestEmbeddedZeros(t *testing.T) {
	s := newSeq(t, nil)
	in := []byte{0x00, 0x01, 0x00, 0xFF}
	require.NoError(t, s.Insert(in))
	d, err := s.Get(0)
	require.NoError(t, err)
	assert.Len(t, d, 4)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0xFF}, d)
}

func TestInsertCopies(t *testing.T) {
	s := newSeq(t, nil)
	in := []byte("hello")
	require.NoError(t, s.Insert(in))
	in[0] = 'j'
	in[4] = 0
	d, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(d))
}

func TestGetViewIsClipped(t *testing.T) {
	s := newSeq(t, nil)
	require.NoError(t, s.Insert([]byte("abc")))
	require.NoError(t, s.Insert([]byte("def")))
	d, err := s.Get(0)
	require.NoError(t, err)
	assert.Equal(t, len(d), cap(d))
	_ = append(d, 'x', 'y', 'z')

	d0, _ := s.Get(0)
	d1, _ := s.Get(1)
	assert.Equal(t, "abc", string(d0))
	assert.Equal(t, "def", string(d1))
}

func TestNilSequence(t *testing.T) {
	var s *Sequence
	assert.ErrorIs(t, s.Insert([]byte("a")), ErrInvalidArgument)
	d, err := s.Get(0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Nil(t, d)
	_, err = s.Len()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.Size()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, s.Destroy(), ErrInvalidArgument)
	for range s.All() {
		t.Fatal("nil sequence should yield nothing")
	}
}

func TestDestroy(t *testing.T) {
	// no entries
	s := newSeq(t, nil)
	require.NoError(t, s.Destroy())

	a := &countingAllocator{}
	s = newSeq(t, &Options{Allocator: a})
	for _, b := range genRandomBlobs(20) {
		require.NoError(t, s.Insert(b))
	}
	assert.Equal(t, 20, a.live())
	require.NoError(t, s.Destroy())
	assert.Equal(t, 0, a.live())

	// destroyed sequence is as good as nil
	assert.ErrorIs(t, s.Insert([]byte("a")), ErrInvalidArgument)
	_, err := s.Get(0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = s.Len()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, s.Destroy(), ErrInvalidArgument)
}

func TestInsertAllocFailure(t *testing.T) {
	a := &countingAllocator{failOn: 3}
	s := newSeq(t, &Options{Allocator: a})
	require.NoError(t, s.Insert([]byte("one")))
	require.NoError(t, s.Insert([]byte("two")))

	pos, err := s.InsertPos([]byte("three"))
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, -1, pos)
	assert.Equal(t, 2, mustLen(t, s))
	size, _ := s.Size()
	assert.Equal(t, int64(6), size)
	assert.Equal(t, 2, a.live())

	// caller can retry
	pos, err = s.InsertPos([]byte("three"))
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
	d, _ := s.Get(2)
	assert.Equal(t, "three", string(d))

	require.NoError(t, s.Destroy())
	assert.Equal(t, 0, a.live())
}

func TestInsertShortAlloc(t *testing.T) {
	a := &countingAllocator{shortBy: 1}
	s := newSeq(t, &Options{Allocator: a})
	err := s.Insert([]byte("abc"))
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 0, mustLen(t, s))
	assert.Equal(t, 1, a.allocated)
	assert.Equal(t, 0, a.live())
}

func TestMaxEntries(t *testing.T) {
	la := NewLimitAllocator(1 << 20)
	s := newSeq(t, &Options{MaxEntries: 2, Allocator: la})
	require.NoError(t, s.Insert([]byte("a")))
	require.NoError(t, s.Insert([]byte("b")))
	err := s.Insert([]byte("c"))
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 2, mustLen(t, s))
	assert.Equal(t, int64(2), la.InUse())
}

func TestLimitAllocator(t *testing.T) {
	la := NewLimitAllocator(10)
	s1 := newSeq(t, &Options{Allocator: la})
	s2 := newSeq(t, &Options{Allocator: la})

	require.NoError(t, s1.Insert([]byte("12345")))
	require.NoError(t, s2.Insert([]byte("1234")))
	assert.Equal(t, int64(9), la.InUse())

	err := s1.Insert([]byte("ab"))
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 1, mustLen(t, s1))
	assert.Equal(t, int64(9), la.InUse())

	require.NoError(t, s1.Insert([]byte("a")))
	assert.Equal(t, int64(10), la.InUse())

	require.NoError(t, s2.Destroy())
	assert.Equal(t, int64(6), la.InUse())
	require.NoError(t, s1.Insert([]byte("abcd")))
	require.NoError(t, s1.Destroy())
	assert.Equal(t, int64(0), la.InUse())
}

func TestHeapAllocatorTooLarge(t *testing.T) {
	b, err := HeapAllocator{}.Alloc(math.MaxInt)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Nil(t, b)

	_, err = HeapAllocator{}.Alloc(-1)
	assert.ErrorIs(t, err, ErrAllocation)
}

func TestNewOptions(t *testing.T) {
	s, err := New(&Options{InitialCap: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Nil(t, s)

	s, err = New(&Options{MaxEntries: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Nil(t, s)

	s, err = New(&Options{InitialCap: math.MaxInt})
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Nil(t, s)

	s = newSeq(t, &Options{InitialCap: 100, MaxEntries: 3})
	assert.Equal(t, 0, mustLen(t, s))
	assert.Equal(t, 3, cap(s.entries))
}

func TestAll(t *testing.T) {
	s := newSeq(t, nil)
	blobs := genRandomBlobs(50)
	for _, b := range blobs {
		require.NoError(t, s.Insert(b))
	}
	n := 0
	for i, d := range s.All() {
		assert.Equal(t, n, i)
		assert.True(t, bytes.Equal(blobs[i], d), "blob %d", i)
		n++
	}
	assert.Equal(t, len(blobs), n)

	// early break
	n = 0
	for i := range s.All() {
		if i == 9 {
			break
		}
		n++
	}
	assert.Equal(t, 9, n)

	require.NoError(t, s.Destroy())
	for range s.All() {
		t.Fatal("destroyed sequence should yield nothing")
	}
}

func TestPrefixStable(t *testing.T) {
	s := newSeq(t, nil)
	blobs := genRandomBlobs(100)
	for i, b := range blobs {
		require.NoError(t, s.Insert(b))
		// everything inserted so far is still where it was
		for j := 0; j <= i; j += 1 + rng.Intn(10) {
			d, err := s.Get(j)
			require.NoError(t, err)
			require.True(t, bytes.Equal(blobs[j], d), "after %d inserts, blob %d changed", i+1, j)
		}
	}
}

package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/procheap/term"
)

func TestEqual(t *testing.T) {
	reg := newRegistry(t)
	a := newTestHeap(t, Config{}, WithRegistry(reg))
	b := newTestHeap(t, Config{}, WithRegistry(reg))

	build := func(h *Heap, n int64) term.Term {
		f, err := h.Float(0.5)
		require.NoError(t, err)
		l, err := h.List(small(n), f)
		require.NoError(t, err)
		tup, err := h.TupleOf(l, term.Atom(3), term.Pid(9))
		require.NoError(t, err)
		return tup
	}

	x := build(a.Heap, 1)
	assert.True(t, Equal(a.Heap, x, b.Heap, build(b.Heap, 1)))
	assert.False(t, Equal(a.Heap, x, b.Heap, build(b.Heap, 2)))
	assert.True(t, Equal(a.Heap, x, a.Heap, x))
	assert.False(t, Equal(a.Heap, x, a.Heap, small(1)))

	// Binaries compare by content across representations.
	heapBin, err := a.Binary([]byte("payload"))
	require.NoError(t, err)
	refc, err := b.NewRefcBinary([]byte("xpayload"))
	require.NoError(t, err)
	view, err := b.SubBinary(refc, 1, 7)
	require.NoError(t, err)
	assert.True(t, Equal(a.Heap, heapBin, b.Heap, view))
	assert.False(t, Equal(a.Heap, heapBin, b.Heap, refc))

	// Numbers of different kinds differ.
	f, _ := a.Float(1)
	assert.False(t, Equal(a.Heap, f, a.Heap, small(1)))
}

func TestEqual_Cycles(t *testing.T) {
	a := newTestHeap(t, Config{})
	b := newTestHeap(t, Config{})

	cycle := func(h *Heap, v int64) term.Term {
		tup, err := h.Tuple(2)
		require.NoError(t, err)
		require.NoError(t, h.Set(tup, 0, small(v)))
		require.NoError(t, h.Set(tup, 1, tup))
		return tup
	}
	assert.True(t, Equal(a.Heap, cycle(a.Heap, 1), b.Heap, cycle(b.Heap, 1)))
	assert.False(t, Equal(a.Heap, cycle(a.Heap, 1), b.Heap, cycle(b.Heap, 2)))
}

func TestCompare_Cycles(t *testing.T) {
	h := newTestHeap(t, Config{})

	selfRef := func(v int64) term.Term {
		tup, err := h.Tuple(2)
		require.NoError(t, err)
		require.NoError(t, h.Set(tup, 0, small(v)))
		require.NoError(t, h.Set(tup, 1, tup))
		return tup
	}
	a, b, c := selfRef(1), selfRef(1), selfRef(2)

	got, err := h.Compare(a, b)
	require.NoError(t, err)
	assert.Zero(t, got)
	got, err = h.Compare(a, c)
	require.NoError(t, err)
	assert.Equal(t, -1, got)

	// Equal cyclic keys collapse to one entry; the last value wins.
	m, err := h.Map(a, small(1), b, small(2))
	require.NoError(t, err)
	keys, values, err := h.MapPairs(m)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, []term.Term{small(2)}, values)
}

func TestCompare_TermOrder(t *testing.T) {
	h := newTestHeap(t, Config{})

	f, _ := h.Float(2.5)
	big, _ := h.Integer(1 << 62)
	fn, _ := h.Closure(1)
	t1, _ := h.TupleOf(small(1))
	t2, _ := h.TupleOf(small(1), small(1))
	m, _ := h.Map()
	l, _ := h.List(small(1))
	bin, _ := h.Binary([]byte("a"))

	// Ascending standard order.
	ordered := []term.Term{
		small(-5), small(2), f, small(3), big,
		term.False, term.True, term.Atom(0), term.Atom(7),
		term.Ref(1),
		fn,
		term.Pid(1),
		t1, t2,
		m,
		term.Nil,
		l,
		bin,
	}
	for i := range ordered {
		for j := range ordered {
			c, err := h.Compare(ordered[i], ordered[j])
			require.NoError(t, err)
			want := 0
			switch {
			case i < j:
				want = -1
			case i > j:
				want = 1
			}
			assert.Equal(t, want, c, "compare(%s, %s)", h.Format(ordered[i]), h.Format(ordered[j]))
		}
	}

	one, _ := h.Float(1)
	c, err := h.Compare(small(1), one)
	require.NoError(t, err)
	assert.Equal(t, -1, c)
}

func TestCompare_Lists(t *testing.T) {
	h := newTestHeap(t, Config{})

	short, _ := h.List(small(1), small(2))
	long, _ := h.List(small(1), small(2), small(0))
	other, _ := h.List(small(1), small(3))

	c, err := h.Compare(short, long)
	require.NoError(t, err)
	assert.Equal(t, -1, c)
	c, _ = h.Compare(long, other)
	assert.Equal(t, -1, c)
	c, _ = h.Compare(other, other)
	assert.Equal(t, 0, c)
}

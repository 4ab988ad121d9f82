package heap

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/procheap/term"
)

func TestConstruct_Numbers(t *testing.T) {
	h := newTestHeap(t, Config{})

	f, err := h.Float(3.25)
	require.NoError(t, err)
	v, err := h.FloatValue(f)
	require.NoError(t, err)
	assert.InDelta(t, 3.25, v, 0)

	_, err = h.Float(math.NaN())
	assert.ErrorIs(t, err, ErrBadArgument)

	i, err := h.Integer(42)
	require.NoError(t, err)
	assert.True(t, i.IsSmall())

	tests := []string{
		"576460752303423488",  // MaxSmall + 1
		"-576460752303423489", // MinSmall - 1
		"123456789012345678901234567890123456789",
		"-98765432109876543210987654321",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			x, ok := new(big.Int).SetString(s, 10)
			require.True(t, ok)
			b, err := h.BigInt(x)
			require.NoError(t, err)
			assert.Equal(t, term.KindBigInt, b.Kind())
			got, err := h.BigIntValue(b)
			require.NoError(t, err)
			assert.Zero(t, x.Cmp(got), "got %s", got)
		})
	}

	m, err := h.Integer(math.MinInt64)
	require.NoError(t, err)
	assert.Equal(t, term.KindBigInt, m.Kind())
	got, err := h.BigIntValue(m)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), got.Int64())
}

func TestConstruct_Binaries(t *testing.T) {
	reg := newRegistry(t)
	h := newTestHeap(t, Config{}, WithRegistry(reg))

	data := []byte("hello, heap world")
	bin, err := h.Binary(data)
	require.NoError(t, err)
	n, err := h.BinarySize(bin)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	sub, err := h.SubBinary(bin, 7, 10)
	require.NoError(t, err)
	got, err := h.BinaryBytes(sub)
	require.NoError(t, err)
	assert.Equal(t, []byte("heap world"), got)

	subsub, err := h.SubBinary(sub, 5, 5)
	require.NoError(t, err)
	got, err = h.BinaryBytes(subsub)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)

	_, err = h.SubBinary(sub, 8, 5)
	assert.ErrorIs(t, err, ErrBadArgument)

	refc, err := h.NewRefcBinary([]byte("shared bytes"))
	require.NoError(t, err)
	view, err := h.SubBinary(refc, 7, 5)
	require.NoError(t, err)
	got, err = h.BinaryBytes(view)
	require.NoError(t, err)
	assert.Equal(t, []byte("bytes"), got)

	empty, err := h.Binary(nil)
	require.NoError(t, err)
	got, err = h.BinaryBytes(empty)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConstruct_RefcBinaryNeedsRegistry(t *testing.T) {
	h := newTestHeap(t, Config{})
	_, err := h.NewRefcBinary([]byte("x"))
	assert.ErrorIs(t, err, ErrNoRegistry)
}

func TestConstruct_Map(t *testing.T) {
	h := newTestHeap(t, Config{})

	key, err := h.Binary([]byte("k"))
	require.NoError(t, err)
	m, err := h.Map(
		small(3), small(30),
		term.Atom(1), small(10),
		key, small(99),
		small(3), small(31), // replaces 3 => 30
	)
	require.NoError(t, err)

	n, err := h.Arity(m)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	keys, values, err := h.MapPairs(m)
	require.NoError(t, err)
	assert.Equal(t, []term.Term{small(3), term.Atom(1), key}, keys)
	assert.Equal(t, []term.Term{small(31), small(10), small(99)}, values)

	other, err := h.Binary([]byte("k"))
	require.NoError(t, err)
	v, ok, err := h.MapGet(m, other)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, small(99), v)

	_, ok, err = h.MapGet(m, small(4))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.Map(small(1))
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestConstruct_ClosureAndLists(t *testing.T) {
	h := newTestHeap(t, Config{})

	l, err := h.List(small(1), small(2), small(3))
	require.NoError(t, err)
	fn, err := h.Closure(17, l, term.Pid(4))
	require.NoError(t, err)

	id, err := h.ClosureFunction(fn)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), id)
	env, err := h.ClosureEnv(fn, 0)
	require.NoError(t, err)
	assert.Equal(t, l, env)
	_, err = h.ClosureEnv(fn, 2)
	assert.ErrorIs(t, err, ErrBadArgument)

	elems, err := h.ListElements(l)
	require.NoError(t, err)
	assert.Equal(t, []term.Term{small(1), small(2), small(3)}, elems)

	improper, err := h.ImproperList(small(9), small(1))
	require.NoError(t, err)
	_, err = h.ListElements(improper)
	assert.ErrorIs(t, err, ErrBadArgument)

	assert.Equal(t, "#Fun<17/2>", h.Format(fn))
	assert.Equal(t, "[1,2,3]", h.Format(l))
	assert.Equal(t, "[1|9]", h.Format(improper))
}

func TestConstruct_Format(t *testing.T) {
	h := newTestHeap(t, Config{})

	f, _ := h.Float(1.5)
	bin, _ := h.Binary([]byte{1, 2, 3})
	m, _ := h.Map(small(1), bin)
	tup, err := h.TupleOf(f, m, term.Nil, term.True)
	require.NoError(t, err)
	assert.Equal(t, "{1.5,#{1 => <<1,2,3>>},[],true}", h.Format(tup))
}

func TestConstruct_SurvivesCollection(t *testing.T) {
	// A young generation this small collects on almost every constructor.
	h := newTestHeap(t, Config{InitialYoungWords: 8, PromotionAge: 3})

	l, err := h.List(small(1), small(2), small(3), small(4), small(5))
	require.NoError(t, err)
	slot := h.stack.Push(l)
	for i := range 20 {
		head, err := h.TupleOf(small(int64(i)), h.stack.Get(slot))
		require.NoError(t, err)
		l, err = h.Cons(head, h.stack.Get(slot))
		require.NoError(t, err)
		h.stack.Set(slot, l)
	}
	assert.Positive(t, h.Stats().MinorCollections)

	elems, err := h.ListElements(h.stack.Get(slot))
	require.NoError(t, err)
	require.Len(t, elems, 25)
	for i, e := range elems[:20] {
		first, err := h.Element(e, 0)
		require.NoError(t, err)
		assert.Equal(t, small(int64(19-i)), first)
	}
	assert.Equal(t, []term.Term{small(1), small(2), small(3), small(4), small(5)}, elems[20:])
}

func TestSet(t *testing.T) {
	h := newTestHeap(t, Config{})

	tup, err := h.Tuple(2)
	require.NoError(t, err)
	e, _ := h.Element(tup, 0)
	assert.Equal(t, term.None, e)

	require.NoError(t, h.Set(tup, 1, small(5)))
	e, _ = h.Element(tup, 1)
	assert.Equal(t, small(5), e)

	assert.ErrorIs(t, h.Set(tup, 2, small(1)), ErrBadArgument)
	assert.ErrorIs(t, h.Set(small(1), 0, small(1)), ErrBadArgument)
	assert.ErrorIs(t, h.Set(tup, 0, term.MakeHeader(term.KindTuple, 0)), ErrBadArgument)
}

func TestRootStack(t *testing.T) {
	var s RootStack
	assert.Equal(t, 0, s.Push(small(1)))
	assert.Equal(t, 1, s.Push(small(2)))
	s.Push(small(3))
	assert.Equal(t, small(3), s.Pop())
	s.Set(0, small(9))

	var seen []term.Term
	for r := range (MultiRoots{&s, RootSlice{}}).Roots() {
		seen = append(seen, *r)
	}
	assert.Equal(t, []term.Term{small(9), small(2)}, seen)

	s.Truncate(1)
	assert.Equal(t, 1, s.Len())
}

func TestKind(t *testing.T) {
	h := newTestHeap(t, Config{})

	c, err := h.Cons(term.Nil, term.Nil)
	require.NoError(t, err)
	k, err := h.Kind(c)
	require.NoError(t, err)
	assert.Equal(t, term.KindCons, k)

	k, err = h.Kind(term.MustSmallInt(1))
	require.NoError(t, err)
	assert.Equal(t, term.KindNone, k)

	_, err = h.Kind(term.Term(0xF))
	assert.ErrorIs(t, err, ErrInvalidTermLayout)
}

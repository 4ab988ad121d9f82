package literal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/procheap/heap"
	"github.com/hupe1980/procheap/offheap"
	"github.com/hupe1980/procheap/term"
)

func newArea(t *testing.T) (*Area, *offheap.Registry) {
	t.Helper()
	reg := offheap.NewRegistry()
	area, err := NewArea(4)
	require.NoError(t, err)
	t.Cleanup(func() {
		area.Close()
		assert.NoError(t, reg.Close())
	})
	return area, reg
}

func newHeap(t *testing.T, area *Area, reg *offheap.Registry) *heap.Heap {
	t.Helper()
	h, err := heap.New(1, heap.Config{}, heap.WithLiterals(area), heap.WithRegistry(reg), heap.WithHeapBacking())
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestArea_Intern(t *testing.T) {
	area, reg := newArea(t)
	builder := newHeap(t, area, reg)

	shared, err := builder.List(term.MustSmallInt(1), term.MustSmallInt(2))
	require.NoError(t, err)
	bin, err := builder.NewRefcBinary([]byte("constant"))
	require.NoError(t, err)
	tup, err := builder.TupleOf(shared, shared, bin)
	require.NoError(t, err)

	lit, err := area.Intern(builder, tup)
	require.NoError(t, err)
	assert.True(t, lit.IsLiteral())
	assert.Equal(t, term.KindTuple, lit.Kind())
	assert.Equal(t, 4+3+3+2, area.Len())
	assert.Equal(t, 4, area.Objects())
	area.Seal()

	// The builder heap can go; the literal keeps the binary alive.
	require.NoError(t, builder.Close())
	assert.Equal(t, 1, reg.Stats().Live)

	h := newHeap(t, area, reg)
	assert.Equal(t, heap.SpaceLiteral, h.SpaceOf(lit))
	a, err := h.Element(lit, 0)
	require.NoError(t, err)
	b, err := h.Element(lit, 1)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, a.IsLiteral())

	elems, err := h.ListElements(a)
	require.NoError(t, err)
	assert.Equal(t, []term.Term{term.MustSmallInt(1), term.MustSmallInt(2)}, elems)

	c, _ := h.Element(lit, 2)
	data, err := h.BinaryBytes(c)
	require.NoError(t, err)
	assert.Equal(t, []byte("constant"), data)
}

func TestArea_LiteralsSurviveCollectionAndCopy(t *testing.T) {
	area, reg := newArea(t)
	builder := newHeap(t, area, reg)

	l, err := builder.List(term.MustSmallInt(7))
	require.NoError(t, err)
	lit, err := area.Intern(builder, l)
	require.NoError(t, err)
	area.Seal()

	stack := &heap.RootStack{}
	h, err := heap.New(2, heap.Config{}, heap.WithLiterals(area), heap.WithRootSet(stack), heap.WithHeapBacking())
	require.NoError(t, err)
	defer h.Close()

	tup, err := h.TupleOf(lit, lit)
	require.NoError(t, err)
	slot := stack.Push(tup)
	require.NoError(t, h.CollectMinor(nil))
	require.NoError(t, h.CollectMajor(nil))

	e, err := h.Element(stack.Get(slot), 0)
	require.NoError(t, err)
	assert.Equal(t, lit, e)

	dst := newHeap(t, area, reg)
	out, err := h.CopyTo(dst, stack.Get(slot))
	require.NoError(t, err)
	e, err = dst.Element(out, 1)
	require.NoError(t, err)
	assert.Equal(t, lit, e, "copies keep literal pointers")
	assert.Equal(t, uint64(3), dst.Stats().WordsAllocated)
}

func TestArea_Sealed(t *testing.T) {
	area, reg := newArea(t)
	h := newHeap(t, area, reg)

	imm, err := area.Intern(h, term.Atom(3))
	require.NoError(t, err)
	assert.Equal(t, term.Atom(3), imm)

	area.Seal()
	assert.True(t, area.Sealed())
	tup, err := h.TupleOf(term.Nil)
	require.NoError(t, err)
	_, err = area.Intern(h, tup)
	assert.ErrorIs(t, err, ErrSealed)
}

func TestArea_SealWaitsForIntern(t *testing.T) {
	area, reg := newArea(t)
	builders := make([]*heap.Heap, 4)
	for i := range builders {
		builders[i] = newHeap(t, area, reg)
	}

	var wg sync.WaitGroup
	for _, h := range builders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				tup, err := h.TupleOf(term.MustSmallInt(int64(i)), term.Nil)
				if !assert.NoError(t, err) {
					return
				}
				if _, err := area.Intern(h, tup); err != nil {
					assert.ErrorIs(t, err, ErrSealed)
					return
				}
			}
		}()
	}

	area.Seal()
	words, objects := area.Len(), area.Objects()
	wg.Wait()

	assert.Equal(t, words, area.Len(), "no words written after Seal returned")
	assert.Equal(t, objects, area.Objects())
}

func TestArea_ConcurrentReaders(t *testing.T) {
	area, reg := newArea(t)
	builder := newHeap(t, area, reg)
	elems := make([]term.Term, 64)
	for i := range elems {
		elems[i] = term.MustSmallInt(int64(i))
	}
	tup, err := builder.TupleOf(elems...)
	require.NoError(t, err)
	lit, err := area.Intern(builder, tup)
	require.NoError(t, err)
	area.Seal()

	var wg sync.WaitGroup
	for p := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := heap.New(uint64(p), heap.Config{}, heap.WithLiterals(area), heap.WithHeapBacking())
			if !assert.NoError(t, err) {
				return
			}
			defer h.Close()
			for i := range 64 {
				e, err := h.Element(lit, i)
				assert.NoError(t, err)
				assert.Equal(t, term.MustSmallInt(int64(i)), e)
			}
		}()
	}
	wg.Wait()
}

package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hupe1980/procheap/offheap"
	"github.com/hupe1980/procheap/term"
)

type testHeap struct {
	*Heap
	stack *RootStack
}

func newTestHeap(t *testing.T, cfg Config, opts ...Option) *testHeap {
	t.Helper()

	stack := &RootStack{}
	opts = append([]Option{WithRootSet(stack), WithHeapBacking()}, opts...)
	h, err := New(1, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return &testHeap{Heap: h, stack: stack}
}

func newRegistry(t *testing.T) *offheap.Registry {
	t.Helper()
	reg := offheap.NewRegistry()
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func small(v int64) term.Term {
	return term.MustSmallInt(v)
}

// smallTuple builds {0, 1, ..., arity-1}.
func smallTuple(t *testing.T, h *Heap, arity int) term.Term {
	t.Helper()
	elems := make([]term.Term, arity)
	for i := range elems {
		elems[i] = small(int64(i))
	}
	tup, err := h.TupleOf(elems...)
	require.NoError(t, err)
	return tup
}

// snapshot copies t into a fresh heap so it can be compared after h changes.
func snapshot(t *testing.T, h *Heap, v term.Term) (*Heap, term.Term) {
	t.Helper()
	ref, err := New(99, Config{InitialYoungWords: 1024}, WithHeapBacking(), WithRegistry(h.registry), WithLiterals(h.literals))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ref.Close() })
	c, err := h.CopyTo(ref, v)
	require.NoError(t, err)
	return ref, c
}

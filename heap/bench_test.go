package heap

import (
	"testing"

	"github.com/hupe1980/procheap/term"
)

func BenchmarkHeap_Cons(b *testing.B) {
	h, err := New(1, Config{}, WithHeapBacking())
	if err != nil {
		b.Fatal(err)
	}
	defer h.Close()

	b.ReportAllocs()
	for b.Loop() {
		if _, err := h.Cons(term.MustSmallInt(1), term.Nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHeap_MinorCollection(b *testing.B) {
	stack := &RootStack{}
	h, err := New(1, Config{InitialYoungWords: 1 << 16, PromotionAge: 255}, WithHeapBacking(), WithRootSet(stack))
	if err != nil {
		b.Fatal(err)
	}
	defer h.Close()

	l := term.Nil
	for i := range 1000 {
		if l, err = h.Cons(term.MustSmallInt(int64(i)), l); err != nil {
			b.Fatal(err)
		}
	}
	stack.Push(l)

	b.ResetTimer()
	for range b.N {
		if err := h.CollectMinor(nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHeap_MajorCollection(b *testing.B) {
	stack := &RootStack{}
	h, err := New(1, Config{PromotionAge: 1}, WithHeapBacking(), WithRootSet(stack))
	if err != nil {
		b.Fatal(err)
	}
	defer h.Close()

	for i := range 1000 {
		t, err := h.TupleOf(term.MustSmallInt(int64(i)), term.Nil)
		if err != nil {
			b.Fatal(err)
		}
		if i%2 == 0 {
			stack.Push(t)
		}
	}

	b.ResetTimer()
	for range b.N {
		if err := h.CollectMajor(nil); err != nil {
			b.Fatal(err)
		}
	}
}

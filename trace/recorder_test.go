package trace

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingSink(t *testing.T) {
	r := NewRingSink(3)
	for i := range 5 {
		r.Record(Event{Kind: KindAlloc, Words: int64(i)})
	}

	events := r.Events()
	assert.Len(t, events, 3)
	assert.Equal(t, int64(2), events[0].Words)
	assert.Equal(t, int64(4), events[2].Words)
	assert.Equal(t, uint64(2), r.Dropped())
	assert.Equal(t, 3, r.Count(KindAlloc))
	assert.Zero(t, r.Count(KindFree))
}

func TestRingSink_Concurrent(t *testing.T) {
	r := NewRingSink(0)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				r.Record(Event{Kind: KindMinorGC})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, r.Count(KindMinorGC))
}

func TestTee(t *testing.T) {
	a, b := NewRingSink(4), NewRingSink(4)
	Tee(a, b).Record(Event{Kind: KindGrow})
	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestSampler(t *testing.T) {
	sink := NewRingSink(100)
	s := NewSampler(sink, 0, 5) // burst only, no refill
	for range 20 {
		s.Record(Event{Kind: KindAlloc})
	}
	assert.Len(t, sink.Events(), 5)
	assert.Equal(t, uint64(15), s.Dropped())
}

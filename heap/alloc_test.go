package heap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/procheap/internal/resource"
	"github.com/hupe1980/procheap/term"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: Config{}},
		{name: "tiny young", cfg: Config{InitialYoungWords: 4}, wantErr: true},
		{name: "ceiling below young", cfg: Config{InitialYoungWords: 64, GrowthCeilingWords: 32}, wantErr: true},
		{name: "promotion age too large", cfg: Config{PromotionAge: 1000}, wantErr: true},
		{name: "negative threshold", cfg: Config{LargeObjectThresholdBytes: -1}, wantErr: true},
		{name: "custom", cfg: Config{InitialYoungWords: 64, GrowthCeilingWords: 256, PromotionAge: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}

	def := DefaultConfig()
	assert.Equal(t, DefaultInitialYoungWords, def.InitialYoungWords)
	assert.Equal(t, DefaultInitialYoungWords, def.OldInitialWords)
	assert.Equal(t, DefaultPromotionAge, def.PromotionAge)
}

func TestAllocate_FastPath(t *testing.T) {
	h := newTestHeap(t, Config{InitialYoungWords: 64})

	a, err := h.Allocate(4)
	require.NoError(t, err)
	b, err := h.Allocate(8)
	require.NoError(t, err)

	assert.Equal(t, h.young.id, a.Space())
	assert.Equal(t, 0, a.Offset())
	assert.Equal(t, 4, b.Offset())
	assert.Equal(t, uint64(12), h.Stats().WordsAllocated)
	assert.Zero(t, h.Stats().MinorCollections)
}

func TestAllocate_InvalidSize(t *testing.T) {
	h := newTestHeap(t, Config{})

	_, err := h.Allocate(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = h.AllocateLarge(-1)
	assert.ErrorIs(t, err, ErrInvalidSize)
	assert.NoError(t, h.Err())
}

func TestAllocate_RoutesLargeRequests(t *testing.T) {
	h := newTestHeap(t, Config{LargeObjectThresholdBytes: 512})

	addr, err := h.Allocate(64) // 512 bytes
	require.NoError(t, err)
	assert.NotEqual(t, h.young.id, addr.Space())
	assert.Equal(t, 0, addr.Offset())
	assert.Equal(t, 1, h.Stats().LargeObjects)
	assert.Equal(t, 64, h.Stats().LargeWords)
}

func TestAllocate_CollectsBeforeGrowing(t *testing.T) {
	h := newTestHeap(t, Config{InitialYoungWords: 64})

	// Garbage only: every slow path is satisfied by a minor collection.
	for range 100 {
		_ = smallTuple(t, h.Heap, 9)
	}
	s := h.Stats()
	assert.Positive(t, s.MinorCollections)
	assert.Zero(t, s.Growths)
	assert.Equal(t, 64, s.YoungCapacity)
}

func TestAllocate_GrowsYoungGeneration(t *testing.T) {
	h := newTestHeap(t, Config{InitialYoungWords: 16, PromotionAge: 100})

	const n = 40
	for i := range n {
		tup, err := h.TupleOf(small(int64(i)), small(int64(i*i)))
		require.NoError(t, err)
		h.stack.Push(tup)
	}

	s := h.Stats()
	assert.Positive(t, s.Growths)
	assert.GreaterOrEqual(t, s.YoungCapacity, n*3)
	for i := range n {
		e, err := h.Element(h.stack.Get(i), 1)
		require.NoError(t, err)
		assert.Equal(t, small(int64(i*i)), e)
	}
}

func TestAllocate_GrowthToExhaustion(t *testing.T) {
	var (
		calls  int
		reason error
	)
	h := newTestHeap(t, Config{InitialYoungWords: 64, GrowthCeilingWords: 256},
		WithTerminationHandler(func(pid uint64, err error) {
			calls++
			reason = err
		}))

	var err error
	allocated := 0
	for allocated < 100 {
		var tup term.Term
		tup, err = h.Tuple(39) // 40 words
		if err != nil {
			break
		}
		h.stack.Push(tup)
		allocated++
	}

	require.ErrorIs(t, err, ErrAllocationExhausted)
	var exhausted *AllocationExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, uint64(1), exhausted.PID)
	assert.Equal(t, 40, exhausted.Requested)
	assert.Equal(t, 256, exhausted.Ceiling)

	assert.Positive(t, allocated)
	assert.Less(t, allocated, 256/40+1)
	assert.Positive(t, h.Stats().Growths)
	assert.Positive(t, h.Stats().MajorCollections)

	assert.Equal(t, 1, calls)
	assert.Same(t, exhausted, reason)

	// The heap stays dead; the callback does not fire again.
	_, err = h.Allocate(1)
	assert.ErrorIs(t, err, ErrAllocationExhausted)
	_, err = h.Cons(term.Nil, term.Nil)
	assert.ErrorIs(t, err, ErrAllocationExhausted)
	assert.Equal(t, 1, calls)

	// A sibling heap is unaffected.
	other := newTestHeap(t, Config{InitialYoungWords: 64, GrowthCeilingWords: 256})
	_, err = other.Tuple(39)
	assert.NoError(t, err)
}

func TestAllocateLarge_CeilingTriggersMajor(t *testing.T) {
	h := newTestHeap(t, Config{InitialYoungWords: 64, GrowthCeilingWords: 1024, LargeObjectThresholdBytes: 512})

	// Each binary is 1 + 100 words; unrooted ones are reclaimed by the major
	// collection AllocateLarge falls back to.
	for range 50 {
		_, err := h.Binary(make([]byte, 800))
		require.NoError(t, err)
	}
	s := h.Stats()
	assert.Positive(t, s.MajorCollections)
	assert.Positive(t, s.LargeFrees)
	assert.LessOrEqual(t, s.Footprint, 1024)

	// Only one semispace and the used old words count.
	assert.Equal(t, s.YoungCapacity+s.OldUsed+s.LargeWords, s.Footprint)
	assert.LessOrEqual(t, 2*s.YoungCapacity+s.OldCapacity+s.LargeWords, 3*s.Ceiling)
}

func TestAllocate_MemoryBudget(t *testing.T) {
	ctrl := resource.NewController(resource.Config{MemoryLimitBytes: 64 * 1024})
	h, err := New(7, Config{InitialYoungWords: 256}, WithMemoryAcquirer(ctrl), WithHeapBacking())
	require.NoError(t, err)

	// Two semispaces and the old generation.
	assert.Equal(t, int64(3*256*8), ctrl.MemoryUsage())

	_, err = New(8, Config{InitialYoungWords: 4096}, WithMemoryAcquirer(ctrl), WithHeapBacking())
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)

	require.NoError(t, h.Close())
	assert.Zero(t, ctrl.MemoryUsage())
}

func TestHeap_Closed(t *testing.T) {
	h := newTestHeap(t, Config{})
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	_, err := h.Allocate(1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, h.CollectMinor(nil), ErrClosed)
	assert.ErrorIs(t, h.CollectMajor(nil), ErrClosed)
	assert.Zero(t, h.Stats().Footprint)
}

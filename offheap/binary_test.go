package offheap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lifecycle(t *testing.T) {
	r := NewRegistry()

	src := []byte("shared payload")
	b := r.New(src)
	src[0] = 'X'

	assert.Equal(t, "shared payload", string(b.Bytes()))
	assert.Equal(t, int64(1), b.Refs())
	assert.Equal(t, 14, b.Len())

	got, err := r.Lookup(b.Handle())
	require.NoError(t, err)
	assert.Same(t, b, got)

	b.Retain()
	b.Release()
	assert.Equal(t, int64(1), b.Refs())

	b.Release()
	_, err = r.Lookup(b.Handle())
	assert.ErrorIs(t, err, ErrUnknownHandle)

	stats := r.Stats()
	assert.Equal(t, 0, stats.Live)
	assert.Equal(t, uint64(1), stats.Created)
	assert.Equal(t, uint64(1), stats.Freed)
	assert.Zero(t, stats.LiveBytes)

	assert.NoError(t, r.Close())
}

func TestRegistry_Underflow(t *testing.T) {
	r := NewRegistry()
	b := r.New([]byte{1})
	b.Release()

	assert.PanicsWithError(t, "offheap: reference count underflow: handle 1", func() {
		b.Release()
	})
}

func TestRegistry_Pinned(t *testing.T) {
	r := NewRegistry()
	b := r.NewPinned([]byte("literal"))
	assert.True(t, b.Pinned())

	b.Release()
	_, err := r.Lookup(b.Handle())
	require.NoError(t, err, "pinned binaries survive a zero count")

	assert.NoError(t, r.Close())
}

func TestRegistry_CloseReportsLive(t *testing.T) {
	r := NewRegistry()
	_ = r.New([]byte("leaked"))

	err := r.Close()
	assert.ErrorIs(t, err, ErrLiveBinaries)
	assert.NoError(t, r.Close())
	assert.Panics(t, func() { r.New(nil) })
}

func TestBinary_ConcurrentRefcounts(t *testing.T) {
	r := NewRegistry()
	b := r.New(make([]byte, 1024))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				b.Retain()
				b.Release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), b.Refs())
	b.Release()
	assert.Equal(t, 0, r.Stats().Live)
}

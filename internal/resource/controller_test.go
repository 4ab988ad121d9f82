package resource

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should fail - limit exceeded)
	err := c.AcquireMemory(20)
	assert.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(90), c.MemoryPeak())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 0})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
	assert.Zero(t, c.MemoryLimit())
}

func TestController_NilSafe(t *testing.T) {
	var c *Controller

	assert.NoError(t, c.AcquireMemory(1<<20))
	c.ReleaseMemory(1 << 20)
	assert.Zero(t, c.MemoryUsage())
	assert.Zero(t, c.MemoryPeak())
	assert.Zero(t, c.MemoryLimit())
}

func TestController_ConcurrentHeaps(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 1 << 20})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if err := c.AcquireMemory(512); err == nil {
					c.ReleaseMemory(512)
				}
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, c.MemoryUsage())
	assert.LessOrEqual(t, c.MemoryPeak(), int64(1<<20))
}

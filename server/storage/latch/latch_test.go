package latch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatch(t *testing.T) {
	t.Run("写闩互斥", func(t *testing.T) {
		lt := NewLatch()
		lt.Lock()
		assert.False(t, lt.TryLock())
		lt.Unlock()
		assert.True(t, lt.TryLock())
		lt.Unlock()
	})

	t.Run("读闩共享", func(t *testing.T) {
		lt := NewLatch()
		lt.RLock()
		lt.RLock()
		assert.False(t, lt.TryLock())
		lt.RUnlock()
		lt.RUnlock()
	})

	t.Run("并发计数", func(t *testing.T) {
		lt := NewLatch()
		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				lt.Lock()
				counter++
				lt.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, counter)
	})
}

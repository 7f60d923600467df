package drop

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("k")
			counter++
			km.Unlock("k")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("a")
	done := make(chan struct{})
	go func() {
		km.Lock("b") // must not block on "a"
		km.Unlock("b")
		close(done)
	}()
	<-done
	km.Unlock("a")
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("a")
	km.Unlock("a")
	km.Lock("b")
	km.Unlock("b")

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}

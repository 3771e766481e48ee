package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGateSerializesSameConversation(t *testing.T) {
	g := NewGate()

	var mu sync.Mutex
	active := 0
	maxActive := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Lock(7)
			defer g.Unlock(7)

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}

func TestGateDistinctConversationsIndependent(t *testing.T) {
	g := NewGate()
	g.Lock(1)
	defer g.Unlock(1)

	done := make(chan struct{})
	go func() {
		g.Lock(2)
		g.Unlock(2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("conversation 2 blocked behind conversation 1")
	}
}

func TestGateReusesLock(t *testing.T) {
	g := NewGate()
	g.Lock(3)
	g.Unlock(3)
	g.Lock(3)
	g.Unlock(3)

	assert.Len(t, g.locks, 1)
}

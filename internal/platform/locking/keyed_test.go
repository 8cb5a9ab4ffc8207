package locking

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerialisesSameKey(t *testing.T) {
	m := NewKeyedMutex()

	const iterations = 200
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.Lock("session-a")
				counter++
				m.Unlock("session-a")
			}
		}()
	}
	wg.Wait()

	if counter != 8*iterations {
		t.Fatalf("expected %d increments, got %d", 8*iterations, counter)
	}
}

func TestKeyedMutexAllowsDistinctKeys(t *testing.T) {
	m := NewKeyedMutex()

	m.Lock("session-a")
	done := make(chan struct{})
	go func() {
		m.Lock("session-b")
		m.Unlock("session-b")
		close(done)
	}()

	<-done
	m.Unlock("session-a")
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	m := NewKeyedMutex()

	m.Lock("session-a")
	m.Unlock("session-a")

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) != 0 {
		t.Fatalf("expected entries map emptied, got %d entries", len(m.entries))
	}
}

func TestKeyedMutexUnlockUnheldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unlock of unheld key")
		}
	}()

	NewKeyedMutex().Unlock("session-a")
}

package network

import (
	"sync"
	"testing"
)

func TestTryAddHonoursCap(t *testing.T) {
	m := NewConnManager()
	const max = 10

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for n := 0; n < 50; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.TryAdd(NewSession(nil, nil, nil), max) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if accepted != max || m.Count() != max {
		t.Fatalf("accepted %d, registered %d, cap %d", accepted, m.Count(), max)
	}
	s := NewSession(nil, nil, nil)
	m.Add(s)
	if m.Count() != max+1 {
		t.Fatalf("Add is capped: %d", m.Count())
	}
	if !m.Remove(s.ID) || m.Remove(s.ID) {
		t.Fatal("Remove should report presence once")
	}
}

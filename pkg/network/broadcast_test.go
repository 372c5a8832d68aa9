package network

import (
	"strconv"
	"sync"
	"testing"
)

func TestBroadcastKeepsLatest(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe()
	for _, f := range []string{"a", "b", "c"} {
		b.Publish([]byte(f))
	}
	got := <-sub.C()
	if string(got) != "c" {
		t.Fatalf("got %q, want the newest frame", got)
	}
	select {
	case f := <-sub.C():
		t.Fatalf("stale frame %q still queued", f)
	default:
	}
}

func TestBroadcastPrimesLateSubscriber(t *testing.T) {
	b := NewBroadcaster()
	b.Publish([]byte("x"))
	sub := b.Subscribe()
	if got := <-sub.C(); string(got) != "x" {
		t.Fatalf("late subscriber got %q", got)
	}
}

func TestBroadcastUnsubscribeAndClose(t *testing.T) {
	b := NewBroadcaster()
	a, c := b.Subscribe(), b.Subscribe()
	b.Unsubscribe(a)
	b.Unsubscribe(a)
	if _, ok := <-a.C(); ok {
		t.Fatal("unsubscribed channel still open")
	}
	if b.Len() != 1 {
		t.Fatalf("len = %d", b.Len())
	}

	b.Publish([]byte("last"))
	b.Close()
	b.Close()
	if got, ok := <-c.C(); !ok || string(got) != "last" {
		t.Fatalf("final frame lost: %q %v", got, ok)
	}
	if _, ok := <-c.C(); ok {
		t.Fatal("channel open after Close")
	}
	b.Publish([]byte("dropped"))
	if _, ok := <-b.Subscribe().C(); ok {
		t.Fatal("subscription after Close is open")
	}
}

func TestBroadcastConcurrentReaders(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup
	for n := 0; n < 8; n++ {
		sub := b.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last string
			for f := range sub.C() {
				last = string(f)
			}
			if last != "99" {
				t.Errorf("reader finished on %q", last)
			}
		}()
	}
	for i := 0; i < 100; i++ {
		b.Publish([]byte(strconv.Itoa(i)))
	}
	b.Close()
	wg.Wait()
}


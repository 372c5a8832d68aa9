package network

import "sync"

// Subscription receives the frames published after it was created. Only the
// newest undelivered frame is kept; a slow reader skips intermediate ones.
type Subscription struct {
	ch chan []byte
}

// C is closed when the broadcaster shuts down or the subscription is dropped.
func (s *Subscription) C() <-chan []byte { return s.ch }

// Broadcaster fans one producer's frames out to any number of subscribers.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	last   []byte
	closed bool
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new subscriber. A late subscriber is primed with the
// most recent frame so it does not wait a full tick for its first picture.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{ch: make(chan []byte, 1)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	if b.last != nil {
		s.ch <- b.last
	}
	b.subs[s] = struct{}{}
	return s
}

// Unsubscribe drops s and closes its channel. It is safe to call twice.
func (b *Broadcaster) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; !ok {
		return
	}
	delete(b.subs, s)
	close(s.ch)
}

// Publish hands frame to every subscriber without blocking, replacing any
// frame the subscriber has not picked up yet. Frames are shared, so callers
// must not modify them afterwards.
func (b *Broadcaster) Publish(frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.last = frame
	for s := range b.subs {
		select {
		case s.ch <- frame:
			continue
		default:
		}
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- frame:
		default:
		}
	}
}

// Len is the number of live subscriptions.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscription; later publishes are dropped.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}

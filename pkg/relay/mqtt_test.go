package relay

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakePublisher struct {
	topics   []string
	payloads [][]byte
	fail     map[string]bool
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	if f.fail[string(payload)] {
		return errors.New("broker gone")
	}
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) Close() {}

func TestMirrorForwardsFrames(t *testing.T) {
	pub := &fakePublisher{fail: map[string]bool{"c": true}}
	frames := make(chan []byte, 4)
	for _, f := range []string{"a", "b", "c", "d"} {
		frames <- []byte(f)
	}
	close(frames)

	sent := NewMirror(pub, "snake/frames", 0, nil).Run(context.Background(), frames)
	if sent != 3 {
		t.Fatalf("sent = %d", sent)
	}
	if len(pub.topics) != 3 || pub.topics[0] != "snake/frames" || string(pub.payloads[2]) != "d" {
		t.Fatalf("published %q to %q", pub.payloads, pub.topics)
	}
}

func TestMirrorThinsFrames(t *testing.T) {
	pub := &fakePublisher{}
	frames := make(chan []byte, 7)
	for i := 0; i < 7; i++ {
		frames <- []byte{byte(i)}
	}
	close(frames)

	if sent := NewMirror(pub, "t", 3, nil).Run(context.Background(), frames); sent != 3 {
		t.Fatalf("sent = %d", sent)
	}
	if pub.payloads[0][0] != 0 || pub.payloads[1][0] != 3 || pub.payloads[2][0] != 6 {
		t.Fatalf("payloads %v", pub.payloads)
	}
}

func TestMirrorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() { done <- NewMirror(&fakePublisher{}, "t", 1, nil).Run(ctx, make(chan []byte)) }()
	cancel()
	select {
	case n := <-done:
		if n != 0 {
			t.Fatalf("sent = %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("mirror ignored cancellation")
	}
}

func TestDialUnreachableBroker(t *testing.T) {
	if _, err := DialMQTT("tcp://127.0.0.1:1", "test", 500*time.Millisecond); err == nil {
		t.Fatal("dial to a closed port succeeded")
	}
}

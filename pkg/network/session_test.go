package network

import (
	"bytes"
	"log"
	"strings"
	"testing"
	"time"

	"gridsnake/pkg/protocol"
)

func TestPongRecordsAndLogsRTT(t *testing.T) {
	var buf bytes.Buffer
	s := NewSession(nil, nil, log.New(&buf, "", 0))

	_, ping, err := protocol.Split(protocol.PingFrame(time.Now().Add(-30 * time.Millisecond)))
	if err != nil {
		t.Fatal(err)
	}
	if quit := s.handle(protocol.PongFrame(ping), nil); quit {
		t.Fatal("PONG treated as quit")
	}
	if s.RTT() < 30*time.Millisecond {
		t.Fatalf("rtt = %v", s.RTT())
	}
	if !strings.Contains(buf.String(), "[PING] "+s.ID) {
		t.Fatalf("log %q", buf.String())
	}
}

package network

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gridsnake/pkg/game"
	"gridsnake/pkg/protocol"
)

const (
	writeWait      = 5 * time.Second
	readWait       = 60 * time.Second
	maxMessageSize = 512
)

// Session is one connected player.
type Session struct {
	ID string

	ws      *websocket.Conn
	sub     *Subscription
	logger  *log.Logger
	writeMu sync.Mutex // gorilla allows a single concurrent writer

	mu      sync.Mutex // protects the fields below
	dir     game.Direction
	hasDir  bool
	snakeID uint16
	alive   bool
	rtt     time.Duration

	done      chan struct{}
	stopOnce  sync.Once
	leaveOnce sync.Once
}

// NewSession wraps ws; sub feeds the write pump and may be nil in tests that
// never start it.
func NewSession(ws *websocket.Conn, sub *Subscription, logger *log.Logger) *Session {
	return &Session{
		ID:     uuid.New().String(),
		ws:     ws,
		sub:    sub,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// SetDirection stores the latest requested direction, replacing any request
// the driver has not consumed yet.
func (s *Session) SetDirection(d game.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dir = d
	s.hasDir = true
}

// TakeDirection returns and clears the pending request.
func (s *Session) TakeDirection() (game.Direction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dir, s.hasDir
	s.hasDir = false
	return d, ok
}

// Snake returns the id of the player's snake and whether it is in play.
func (s *Session) Snake() (uint16, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snakeID, s.alive
}

func (s *Session) setSnake(id uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snakeID = id
	s.alive = true
	s.hasDir = false
}

// markDead forgets the snake if it is still id.
func (s *Session) markDead(id uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || s.snakeID != id {
		return false
	}
	s.alive = false
	s.hasDir = false
	return true
}

// RTT is the last measured PING/PONG round trip.
func (s *Session) RTT() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rtt
}

// Send writes one binary frame.
func (s *Session) Send(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return s.ws.WriteMessage(websocket.BinaryMessage, frame)
}

// CloseWith sends a close frame and drops the connection.
func (s *Session) CloseWith(code int, reason string) {
	closeWith(s.ws, code, reason)
}

// stop ends the write pump; it is idempotent.
func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// ReadLoop handles client frames until the connection ends, then calls
// onLeave. onRespawn runs for every RESPAWN request.
func (s *Session) ReadLoop(onRespawn, onLeave func(*Session)) {
	defer onLeave(s)

	s.ws.SetReadLimit(maxMessageSize)
	_ = s.ws.SetReadDeadline(time.Now().Add(readWait))
	s.ws.SetPongHandler(func(string) error {
		return s.ws.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		kind, raw, err := s.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logf("[READ] %s: %v", s.ID, err)
			}
			return
		}
		_ = s.ws.SetReadDeadline(time.Now().Add(readWait))
		if kind != websocket.BinaryMessage {
			continue
		}
		if quit := s.handle(raw, onRespawn); quit {
			return
		}
	}
}

// handle applies one client frame and reports whether the client quit.
func (s *Session) handle(raw []byte, onRespawn func(*Session)) bool {
	tag, payload, err := protocol.Split(raw)
	if err != nil {
		return false
	}
	switch tag {
	case protocol.TagDirection:
		code, err := protocol.DecodeDirection(payload)
		if err != nil {
			s.logf("[INPUT] %s: %v", s.ID, err)
			return false
		}
		d, _ := game.DirectionFromCode(code)
		s.SetDirection(d)
	case protocol.TagPong:
		sent, err := protocol.DecodeStamp(payload)
		if err != nil {
			return false
		}
		rtt := time.Since(sent)
		s.mu.Lock()
		s.rtt = rtt
		s.mu.Unlock()
		s.logf("[PING] %s rtt %v", s.ID, rtt)
	case protocol.TagQuit:
		return true
	case protocol.TagRespawn:
		onRespawn(s)
	default:
		s.logf("[INPUT] %s: unknown tag %d dropped", s.ID, tag)
	}
	return false
}

// WritePump forwards broadcast frames, each followed by a PING, until the
// subscription closes or the session stops. A failed send closes the socket,
// which ends ReadLoop and with it the session.
func (s *Session) WritePump() {
	for {
		select {
		case frame, ok := <-s.sub.C():
			if !ok {
				s.CloseWith(websocket.CloseNormalClosure, "server shutting down")
				return
			}
			if err := s.Send(frame); err != nil {
				s.dropAfter(err)
				return
			}
			if err := s.Send(protocol.PingFrame(time.Now())); err != nil {
				s.dropAfter(err)
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Session) dropAfter(err error) {
	select {
	case <-s.done:
		// already leaving
	default:
		s.logf("[WS] %s: send failed, disconnecting: %v", s.ID, err)
	}
	s.ws.Close()
}

func (s *Session) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

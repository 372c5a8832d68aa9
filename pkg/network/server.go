package network

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gridsnake/pkg/protocol"
)

// WebSocketPath is where clients connect.
const WebSocketPath = "/ws"

// ipRateLimiter remembers the last accepted connection per IP.
type ipRateLimiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	times    map[string]time.Time
}

func newIPRateLimiter(cooldown time.Duration) *ipRateLimiter {
	return &ipRateLimiter{cooldown: cooldown, times: make(map[string]time.Time)}
}

// allow reports whether ip may connect now and records the attempt.
func (rl *ipRateLimiter) allow(ip string, now time.Time) bool {
	if rl.cooldown <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := now.Add(-rl.cooldown)
	for other, t := range rl.times {
		if t.Before(cutoff) {
			delete(rl.times, other)
		}
	}
	if last, ok := rl.times[ip]; ok && now.Sub(last) < rl.cooldown {
		return false
	}
	rl.times[ip] = now
	return true
}

// ServerOptions tunes the connection policy.
type ServerOptions struct {
	// MaxPlayers caps concurrent sessions; 0 means unlimited.
	MaxPlayers int
	// IPCooldown is the minimum time between two connections from one IP.
	IPCooldown time.Duration
	// StaticDir, when set, is served at /.
	StaticDir string
}

// Server accepts players over WebSocket and exposes /stats.
type Server struct {
	world    *World
	conns    *ConnManager
	bcast    *Broadcaster
	stats    *Stats
	opts     ServerOptions
	limiter  *ipRateLimiter
	upgrader websocket.Upgrader
	logger   *log.Logger
}

// NewServer wires a server around the shared world. stats and logger may be nil.
func NewServer(world *World, conns *ConnManager, bcast *Broadcaster, stats *Stats, opts ServerOptions, logger *log.Logger) *Server {
	if stats == nil {
		stats = NewStats()
	}
	return &Server{
		world:   world,
		conns:   conns,
		bcast:   bcast,
		stats:   stats,
		opts:    opts,
		limiter: newIPRateLimiter(opts.IPCooldown),
		upgrader: websocket.Upgrader{
			CheckOrigin:       func(r *http.Request) bool { return true },
			ReadBufferSize:    1024,
			WriteBufferSize:   4096,
			EnableCompression: true,
		},
		logger: logger,
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, s.HandleWS)
	mux.HandleFunc("/stats", HandleStats(s.stats, s.world, s.conns))
	if s.opts.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.opts.StaticDir)))
	}
	return mux
}

// HandleWS upgrades the request, hatches a snake for the player, sends its
// id in a NOTIFY frame and serves the session until it disconnects.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip, _, _ = net.SplitHostPort(r.RemoteAddr)
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("[WS] upgrade from %s: %v", r.RemoteAddr, err)
		return
	}

	// limits are checked after the upgrade so the client gets a close reason
	sess := NewSession(ws, nil, s.logger)
	if !s.conns.TryAdd(sess, s.opts.MaxPlayers) {
		closeWith(ws, websocket.CloseTryAgainLater, "server full")
		return
	}
	if !s.limiter.allow(ip, time.Now()) {
		s.conns.Remove(sess.ID)
		closeWith(ws, websocket.ClosePolicyViolation, "too many connections")
		return
	}
	ws.EnableWriteCompression(true)

	id, err := s.world.Join()
	if err != nil {
		s.conns.Remove(sess.ID)
		s.logf("[JOIN] %s from %s refused: %v", sess.ID, ip, err)
		closeWith(ws, websocket.CloseTryAgainLater, "no room on the field")
		return
	}
	sess.sub = s.bcast.Subscribe()
	sess.setSnake(id)
	s.stats.recordJoin(s.conns.Count())
	s.logf("[JOIN] %s from %s as snake %d", sess.ID, ip, id)

	if err := sess.Send(protocol.NotifyFrame(id)); err != nil {
		s.leave(sess)
		return
	}
	go sess.WritePump()
	sess.ReadLoop(s.respawn, s.leave)
}

// respawn hatches a new snake for a session whose snake was eliminated.
func (s *Server) respawn(sess *Session) {
	if old, alive := sess.Snake(); alive && s.world.Alive(old) {
		return
	}
	id, err := s.world.Join()
	if err != nil {
		s.logf("[RESPAWN] %s: %v", sess.ID, err)
		return
	}
	sess.setSnake(id)
	s.logf("[RESPAWN] %s as snake %d", sess.ID, id)
	if err := sess.Send(protocol.NotifyFrame(id)); err != nil {
		s.logf("[RESPAWN] %s: notify: %v", sess.ID, err)
	}
}

// leave tears the session down. The read loop and a failed send may both get
// here; only the first call has any effect.
func (s *Server) leave(sess *Session) {
	sess.leaveOnce.Do(func() {
		s.conns.Remove(sess.ID)
		sess.stop()
		s.bcast.Unsubscribe(sess.sub)
		if id, alive := sess.Snake(); alive {
			s.world.Leave(id)
			sess.markDead(id)
		}
		sess.ws.Close()
		s.stats.recordLeave()
		s.logf("[LEAVE] %s", sess.ID)
	})
}

// Count is the number of connected players.
func (s *Server) Count() int { return s.conns.Count() }

func closeWith(ws *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	ws.Close()
}

func (s *Server) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}

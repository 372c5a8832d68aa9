package network

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"gridsnake/pkg/game"
)

// Stats collects server counters and a ring of recent tick durations.
type Stats struct {
	mu            sync.Mutex
	started       time.Time
	tickDurations [60]time.Duration
	tickIdx       int
	maxTick       time.Duration
	overruns      int64
	joins         int64
	leaves        int64
	eliminations  int64
	peakPlayers   int
}

// NewStats starts the uptime clock.
func NewStats() *Stats {
	return &Stats{started: time.Now()}
}

func (s *Stats) recordTick(elapsed time.Duration, overrun bool, eliminated int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickDurations[s.tickIdx%len(s.tickDurations)] = elapsed
	s.tickIdx++
	if elapsed > s.maxTick {
		s.maxTick = elapsed
	}
	if overrun {
		s.overruns++
	}
	s.eliminations += int64(eliminated)
}

func (s *Stats) recordJoin(players int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.joins++
	if players > s.peakPlayers {
		s.peakPlayers = players
	}
}

func (s *Stats) recordLeave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaves++
}

// StatsSnapshot is the body of the /stats endpoint.
type StatsSnapshot struct {
	UptimeSec      int64                   `json:"uptimeSec" msgpack:"uptimeSec"`
	State          string                  `json:"state" msgpack:"state"`
	Tick           uint32                  `json:"tick" msgpack:"tick"`
	CurrentPlayers int                     `json:"currentPlayers" msgpack:"currentPlayers"`
	PeakPlayers    int                     `json:"peakPlayers" msgpack:"peakPlayers"`
	Snakes         int                     `json:"snakes" msgpack:"snakes"`
	Bots           int                     `json:"bots" msgpack:"bots"`
	FoodCount      int                     `json:"foodCount" msgpack:"foodCount"`
	FreeCells      int                     `json:"freeCells" msgpack:"freeCells"`
	TotalJoins     int64                   `json:"totalJoins" msgpack:"totalJoins"`
	TotalLeaves    int64                   `json:"totalLeaves" msgpack:"totalLeaves"`
	Eliminations   int64                   `json:"eliminations" msgpack:"eliminations"`
	AvgTickMs      float64                 `json:"avgTickMs" msgpack:"avgTickMs"`
	MaxTickMs      float64                 `json:"maxTickMs" msgpack:"maxTickMs"`
	Overruns       int64                   `json:"overruns" msgpack:"overruns"`
	Leaderboard    []game.LeaderboardEntry `json:"leaderboard" msgpack:"leaderboard"`
}

const leaderboardSize = 10

// Snapshot gathers the counters together with the current game figures.
func (s *Stats) Snapshot(w *World, conns *ConnManager) StatsSnapshot {
	var snap StatsSnapshot
	w.Do(func(g *game.Game, bots *game.BotManager) {
		snap.State = g.State().String()
		snap.Tick = g.TickCount()
		snap.Snakes = g.Len()
		snap.FoodCount = g.Food().Len()
		snap.FreeCells = g.Field().Free()
		snap.Leaderboard = g.Leaderboard(leaderboardSize)
		if bots != nil {
			snap.Bots = bots.Live()
		}
	})
	snap.CurrentPlayers = conns.Count()

	s.mu.Lock()
	defer s.mu.Unlock()
	snap.UptimeSec = int64(time.Since(s.started).Seconds())
	snap.PeakPlayers = s.peakPlayers
	snap.TotalJoins = s.joins
	snap.TotalLeaves = s.leaves
	snap.Eliminations = s.eliminations
	snap.Overruns = s.overruns
	snap.MaxTickMs = float64(s.maxTick.Nanoseconds()) / 1e6

	var total time.Duration
	n := 0
	for _, d := range s.tickDurations {
		if d > 0 {
			total += d
			n++
		}
	}
	if n > 0 {
		snap.AvgTickMs = float64(total.Nanoseconds()) / float64(n) / 1e6
	}
	return snap
}

// HandleStats serves the snapshot as JSON, or as MessagePack when asked for
// with ?format=msgpack or an Accept header.
func HandleStats(s *Stats, w *World, conns *ConnManager) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		snap := s.Snapshot(w, conns)
		rw.Header().Set("Access-Control-Allow-Origin", "*")
		if wantsMsgpack(r) {
			body, err := msgpack.Marshal(&snap)
			if err != nil {
				http.Error(rw, err.Error(), http.StatusInternalServerError)
				return
			}
			rw.Header().Set("Content-Type", "application/msgpack")
			_, _ = rw.Write(body)
			return
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(snap)
	}
}

func wantsMsgpack(r *http.Request) bool {
	if r.URL.Query().Get("format") == "msgpack" {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/msgpack") || strings.Contains(accept, "application/x-msgpack")
}

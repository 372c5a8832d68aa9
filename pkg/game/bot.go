package game

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// botNames is the pool bots are named from, in order.
var botNames = []string{
	"Viper", "Cobra", "Mamba", "Python", "Anaconda",
	"Sidewinder", "Krait", "Taipan", "Boomslang", "Adder",
}

// DefaultBotRespawnDelay is the number of ticks a dead bot waits.
const DefaultBotRespawnDelay = 20

// seekLimit bounds how long a bot chases the same food before wandering off.
const seekLimit = 60

// Bot tracks per-bot autopilot state.
type Bot struct {
	ID        uint16
	Name      string
	respawnIn int
	seekTicks int
	lastScore uint32
	dead      bool
}

// BotManager keeps a fixed number of autopilot snakes in a game. It must be
// used by the same owner that drives the game.
type BotManager struct {
	game         *Game
	count        int
	respawnDelay int
	named        int
	bots         []*Bot
	rng          *rand.Rand
}

// NewBotManager creates a manager that maintains count bots in g.
func NewBotManager(g *Game, count, respawnDelay int, seed uint64) *BotManager {
	if respawnDelay < 0 {
		respawnDelay = 0
	}
	return &BotManager{
		game:         g,
		count:        count,
		respawnDelay: respawnDelay,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Bots returns the managed bots, dead ones included.
func (bm *BotManager) Bots() []*Bot { return bm.bots }

// Live is the number of bots in play.
func (bm *BotManager) Live() int {
	n := 0
	for _, b := range bm.bots {
		if !b.dead {
			n++
		}
	}
	return n
}

// IsBot reports whether id belongs to a live bot.
func (bm *BotManager) IsBot(id uint16) bool {
	for _, b := range bm.bots {
		if !b.dead && b.ID == id {
			return true
		}
	}
	return false
}

// Spawn adds one bot snake to the game.
func (bm *BotManager) Spawn() (*Bot, error) {
	id, err := bm.game.AddSnake()
	if err != nil {
		return nil, fmt.Errorf("spawn bot: %w", err)
	}
	b := &Bot{ID: id, Name: botNames[bm.named%len(botNames)]}
	bm.named++
	bm.bots = append(bm.bots, b)
	return b, nil
}

// Steer points every live bot for the coming tick.
func (bm *BotManager) Steer() {
	for _, b := range bm.bots {
		if b.dead {
			continue
		}
		s, ok := bm.game.Snake(b.ID)
		if !ok {
			continue
		}
		if s.Score > b.lastScore {
			b.seekTicks = 0
		}
		b.lastScore = s.Score
		b.seekTicks++

		var d Direction
		if b.seekTicks > seekLimit {
			d, ok = bm.wander(s)
			b.seekTicks = 0
		} else {
			d, ok = Autopilot(bm.game, s)
		}
		if ok {
			s.HeadTo(d)
		}
	}
}

// wander picks a random safe move, breaking loops around unreachable food.
func (bm *BotManager) wander(s *Snake) (Direction, bool) {
	moves := safeMoves(bm.game, s)
	if len(moves) == 0 {
		return 0, false
	}
	return moves[bm.rng.Intn(len(moves))], true
}

// HandleDeaths starts the respawn countdown of every bot that left the game.
func (bm *BotManager) HandleDeaths() {
	for _, b := range bm.bots {
		if b.dead {
			continue
		}
		if _, ok := bm.game.Snake(b.ID); !ok {
			b.dead = true
			b.respawnIn = bm.respawnDelay
		}
	}
}

// Maintain counts down dead bots and respawns the ones that are due, then
// tops the population up to the configured count. It returns the bots added.
func (bm *BotManager) Maintain() []*Bot {
	kept := bm.bots[:0]
	for _, b := range bm.bots {
		if b.dead {
			if b.respawnIn > 0 {
				b.respawnIn--
			}
			if b.respawnIn == 0 {
				continue
			}
		}
		kept = append(kept, b)
	}
	bm.bots = kept

	var added []*Bot
	for len(bm.bots) < bm.count {
		b, err := bm.Spawn()
		if err != nil {
			break
		}
		added = append(added, b)
	}
	return added
}

// Autopilot picks the move that brings s closest to the nearest food while
// staying off filled cells. Ties keep the current heading. It reports false
// when every move is blocked.
func Autopilot(g *Game, s *Snake) (Direction, bool) {
	moves := safeMoves(g, s)
	if len(moves) == 0 {
		return 0, false
	}
	w, h := g.field.Width(), g.field.Height()
	head := s.Head().Position
	foods := g.food.Foods()
	if len(foods) == 0 {
		return moves[0], true
	}

	best, bestDist := moves[0], -1
	for _, d := range moves {
		next := head.Add(d, w, h)
		dist := -1
		for _, f := range foods {
			for _, c := range f.Cells() {
				if dd := torusDistance(next, c, w, h); dist < 0 || dd < dist {
					dist = dd
				}
			}
		}
		if bestDist < 0 || dist < bestDist || (dist == bestDist && d == s.Heading()) {
			best, bestDist = d, dist
		}
	}
	return best, true
}

// safeMoves lists the moves s may take without hitting a filled cell, the
// current heading first.
func safeMoves(g *Game, s *Snake) []Direction {
	cur := s.Head().Direction
	candidates := []Direction{s.Heading()}
	for _, d := range []Direction{Up, Right, Down, Left} {
		if d != cur && d != cur.Opposite() && d != s.Heading() {
			candidates = append(candidates, d)
		}
	}

	head := s.Head().Position
	tail := s.Tail().Position
	var moves []Direction
	for _, d := range candidates {
		next := head.Add(d, g.field.Width(), g.field.Height())
		if g.field.Filled(next) && next != tail {
			continue
		}
		moves = append(moves, d)
	}
	return moves
}

func torusDistance(a, b FieldPoint, w, h int) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	return min(dx, w-dx) + min(dy, h-dy)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

package game

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"gridsnake/pkg/protocol"
)

// TickResult summarises one simulation step.
type TickResult struct {
	Tick       uint32
	Ate        []uint16
	Eliminated []uint16
	Expired    []Food
	Added      []Food
}

// Game holds the whole simulation: the field, every snake and the food.
// It is not safe for concurrent use; one owner drives it.
type Game struct {
	cfg    Config
	snakes map[uint16]*Snake
	field  *Field
	food   *FoodField
	state  State
	tick   uint32
	nextID uint16
	render Renderer
}

// NewGame creates an empty game in state None. r may be nil.
func NewGame(cfg Config, r Renderer) (*Game, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if r == nil {
		r = NopRenderer{}
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Game{
		cfg:    cfg,
		snakes: make(map[uint16]*Snake),
		field:  NewField(cfg.Width, cfg.Height),
		food:   NewFoodField(cfg.SpecialEvery, cfg.SpecialTicks, seed),
		render: r,
	}, nil
}

func (g *Game) Config() Config    { return g.cfg }
func (g *Game) State() State      { return g.state }
func (g *Game) TickCount() uint32 { return g.tick }
func (g *Game) Field() *Field     { return g.field }
func (g *Game) Food() *FoodField  { return g.food }

// Start moves the game from None to Playing. Any later call returns
// ErrAlreadyStarted and changes nothing.
func (g *Game) Start() error {
	if g.state != StateNone {
		return ErrAlreadyStarted
	}
	g.state = StatePlaying
	return nil
}

// Finish ends a running game.
func (g *Game) Finish() {
	if g.state == StatePlaying {
		g.state = StateOver
	}
}

// Quit marks the game as shut down.
func (g *Game) Quit() {
	if !g.state.Terminal() {
		g.state = StateQuit
	}
}

// Snake looks up a live snake.
func (g *Game) Snake(id uint16) (*Snake, bool) {
	s, ok := g.snakes[id]
	return s, ok
}

// SnakeIDs lists the live snakes in ascending id order, the order ticks
// resolve them in.
func (g *Game) SnakeIDs() []uint16 {
	ids := make([]uint16, 0, len(g.snakes))
	for id := range g.snakes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len is the number of live snakes.
func (g *Game) Len() int { return len(g.snakes) }

// AddSnake hatches a new snake in the slot after the current snakes: the row
// (or column, for vertical headings) offset by the snake count from the
// configured start. Occupied slots are skipped.
func (g *Game) AddSnake() (uint16, error) {
	if g.state.Terminal() {
		return 0, ErrGameEnded
	}
	slots := g.cfg.Height
	if g.cfg.Heading == Up || g.cfg.Heading == Down {
		slots = g.cfg.Width
	}
	for k := 0; k < slots; k++ {
		start := g.slotStart(len(g.snakes) + k)
		if !g.open(seedCells(g.field, start, g.cfg.Heading, g.cfg.Size)) {
			continue
		}
		id, err := g.allocID()
		if err != nil {
			return 0, err
		}
		s := NewSnake(g.field, id, start, g.cfg.Heading, g.cfg.Size)
		g.snakes[id] = s
		g.food.Minimum++
		g.render.SnakeFull(s)
		return id, nil
	}
	return 0, ErrNoRoom
}

func (g *Game) slotStart(slot int) FieldPoint {
	p := g.cfg.Start
	if g.cfg.Heading == Up || g.cfg.Heading == Down {
		p.X = (p.X + slot) % g.cfg.Width
	} else {
		p.Y = (p.Y + slot) % g.cfg.Height
	}
	return p
}

func (g *Game) open(cells []FieldPoint) bool {
	for _, c := range cells {
		if g.field.Filled(c) {
			return false
		}
		if _, ok := g.food.HasAt(c); ok {
			return false
		}
	}
	return true
}

func (g *Game) allocID() (uint16, error) {
	for n := 0; n < 1<<16; n++ {
		g.nextID++
		if g.nextID == 0 {
			continue
		}
		if _, used := g.snakes[g.nextID]; !used {
			return g.nextID, nil
		}
	}
	return 0, fmt.Errorf("%w: snake ids exhausted", ErrNoRoom)
}

// RemoveSnake frees every cell of the snake and drops it from play. Unknown
// ids are ignored; it reports whether a snake was removed.
func (g *Game) RemoveSnake(id uint16) bool {
	s, ok := g.snakes[id]
	if !ok {
		return false
	}
	g.drop(s)
	g.render.Removed(s, false)
	return true
}

func (g *Game) drop(s *Snake) {
	for _, c := range s.Cells() {
		g.field.Set(c, false)
	}
	delete(g.snakes, s.ID)
	if g.food.Minimum > 0 {
		g.food.Minimum--
	}
}

// HeadTo turns snake id; see Snake.HeadTo.
func (g *Game) HeadTo(id uint16, d Direction) bool {
	s, ok := g.snakes[id]
	if !ok {
		return false
	}
	return s.HeadTo(d)
}

// Tick advances every snake one cell, resolving food and collisions, then
// expires specials and restores the Basic food minimum.
//
// A snake whose next cell is occupied (its own tail cell excepted, since that
// cell is vacated by the same move) is eliminated: its body is freed and the
// other snakes carry on.
func (g *Game) Tick() TickResult {
	if g.state != StatePlaying {
		return TickResult{Tick: g.tick}
	}
	var res TickResult

	for _, id := range g.SnakeIDs() {
		s := g.snakes[id]
		next := s.NextHead()
		if g.field.Filled(next.Position) && next.Position != s.Tail().Position {
			g.drop(s)
			g.render.Removed(s, true)
			res.Eliminated = append(res.Eliminated, id)
			continue
		}

		g.field.Set(next.Position, true)
		if f, ok := g.food.Grab(next.Position); ok {
			next.Stuffed = true
			s.Score += uint32(f.Weight)
			s.push(next)
			g.render.FoodRemoved(f)
			g.render.Grow(s, f)
			g.render.Score(s.ID, s.Score)
			res.Ate = append(res.Ate, id)
			continue
		}
		s.push(next)
		prev := s.popTail()
		if prev.Position != next.Position {
			g.field.Set(prev.Position, false)
		}
		g.render.Crawl(s, prev)
	}

	res.Expired = g.food.Tick()
	for _, f := range res.Expired {
		g.render.FoodRemoved(f)
	}
	res.Added = g.AddMissingFood()

	g.tick++
	res.Tick = g.tick
	if g.field.Free() == 0 {
		g.state = StateOver
	}
	return res
}

// AddMissingFood spawns Basic food until there is one per live snake, or
// until the field has no room left.
func (g *Game) AddMissingFood() []Food {
	var added []Food
	for g.food.Basics() < g.food.Minimum {
		fs := g.food.AddFood(g.field)
		if len(fs) == 0 {
			break
		}
		for _, f := range fs {
			g.render.FoodAdded(f)
		}
		added = append(added, fs...)
	}
	return added
}

// LeaderboardEntry is one row of Leaderboard.
type LeaderboardEntry struct {
	ID    uint16 `json:"id" msgpack:"id"`
	Score uint32 `json:"score" msgpack:"score"`
	Len   int    `json:"len" msgpack:"len"`
}

// Leaderboard returns the top n snakes by score, ties broken by id.
func (g *Game) Leaderboard(n int) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(g.snakes))
	for _, s := range g.snakes {
		entries = append(entries, LeaderboardEntry{ID: s.ID, Score: s.Score, Len: s.Len()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].ID < entries[j].ID
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Snapshot captures the full state for broadcasting.
func (g *Game) Snapshot() protocol.GameData {
	d := protocol.GameData{
		State: byte(g.state),
		Tick:  g.tick,
		Config: protocol.ConfigDTO{
			Width:   uint16(g.cfg.Width),
			Height:  uint16(g.cfg.Height),
			Size:    uint16(g.cfg.Size),
			StartX:  uint16(g.cfg.Start.X),
			StartY:  uint16(g.cfg.Start.Y),
			Heading: g.cfg.Heading.Code(),
		},
		Food: g.food.ToDTO(),
	}
	for _, id := range g.SnakeIDs() {
		d.Snakes = append(d.Snakes, g.snakes[id].ToDTO())
	}
	return d
}

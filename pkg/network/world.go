package network

import (
	"sync"

	"gridsnake/pkg/game"
)

// World owns the game and its bots. Every access goes through mu: the driver
// holds it for a whole tick, sessions for a join or a leave.
type World struct {
	mu   sync.Mutex
	game *game.Game
	bots *game.BotManager
}

// NewWorld wraps g. bots may be nil when the server runs without them.
func NewWorld(g *game.Game, bots *game.BotManager) *World {
	return &World{game: g, bots: bots}
}

// Join hatches a snake for a new player.
func (w *World) Join() (uint16, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.game.AddSnake()
}

// Leave removes a player's snake if it is still in play.
func (w *World) Leave(id uint16) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.game.RemoveSnake(id)
}

// Alive reports whether snake id is still in play.
func (w *World) Alive(id uint16) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.game.Snake(id)
	return ok
}

// Do runs fn with the world locked.
func (w *World) Do(fn func(g *game.Game, bots *game.BotManager)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.game, w.bots)
}

package game

// Renderer is the view of an external drawing target. The game calls it on
// every state change; implementations must not mutate the game.
type Renderer interface {
	// SnakeFull draws a snake from scratch.
	SnakeFull(s *Snake)
	// Crawl draws one move without growth; prevTail is the vacated segment.
	Crawl(s *Snake, prevTail SnakeNode)
	// Grow draws one move that ate f.
	Grow(s *Snake, f Food)
	FoodAdded(f Food)
	FoodRemoved(f Food)
	Score(id uint16, score uint32)
	// Removed is called when a snake leaves play, by collision or disconnect.
	Removed(s *Snake, collided bool)
}

// NopRenderer ignores everything.
type NopRenderer struct{}

func (NopRenderer) SnakeFull(*Snake)        {}
func (NopRenderer) Crawl(*Snake, SnakeNode) {}
func (NopRenderer) Grow(*Snake, Food)       {}
func (NopRenderer) FoodAdded(Food)          {}
func (NopRenderer) FoodRemoved(Food)        {}
func (NopRenderer) Score(uint16, uint32)    {}
func (NopRenderer) Removed(*Snake, bool)    {}

package game

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrAlreadyStarted = errors.New("game: already started")
	ErrGameEnded      = errors.New("game: already over")
	ErrNoRoom         = errors.New("game: no room for another snake")
	ErrInvalidConfig  = errors.New("game: invalid config")
)

// Config holds the tunables of one game.
type Config struct {
	Width   int        `json:"width"`
	Height  int        `json:"height"`
	Size    int        `json:"size"`
	Start   FieldPoint `json:"start"`
	Heading Direction  `json:"heading"`

	// SpecialEvery attempts a special food with every n-th Basic spawn.
	SpecialEvery int `json:"specialEvery"`
	// SpecialTicks is the lifespan of a special food.
	SpecialTicks int `json:"specialTicks"`
	// Seed drives food placement; 0 keeps the default source.
	Seed uint64 `json:"seed"`
}

// DefaultConfig returns the settings used by the public server.
func DefaultConfig() Config {
	return Config{
		Width:        30,
		Height:       20,
		Size:         5,
		Start:        FieldPoint{X: 1, Y: 0},
		Heading:      Right,
		SpecialEvery: 5,
		SpecialTicks: 20,
	}
}

// Validate checks that the config describes a playable field.
func (c Config) Validate() error {
	switch {
	case c.Width < 1 || c.Height < 1 || c.Width*c.Height > math.MaxUint16:
		// every snake, node and food count goes on the wire as a u16
		return fmt.Errorf("%w: field %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.Start.X < 0 || c.Start.X >= c.Width || c.Start.Y < 0 || c.Start.Y >= c.Height:
		return fmt.Errorf("%w: start %v outside field", ErrInvalidConfig, c.Start)
	case !c.Heading.Valid():
		return fmt.Errorf("%w: heading %v", ErrInvalidConfig, c.Heading)
	case c.Size < 1 || c.Size > c.span():
		return fmt.Errorf("%w: snake size %d does not fit a %v line of %d cells", ErrInvalidConfig, c.Size, c.Heading, c.span())
	case c.SpecialEvery < 0 || c.SpecialTicks < 0 || c.SpecialTicks > math.MaxUint16:
		return fmt.Errorf("%w: special food every %d, lasting %d ticks", ErrInvalidConfig, c.SpecialEvery, c.SpecialTicks)
	}
	return nil
}

// span is the number of cells along the starting heading.
func (c Config) span() int {
	if c.Heading == Left || c.Heading == Right {
		return c.Width
	}
	return c.Height
}

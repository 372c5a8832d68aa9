package game

import (
	"fmt"

	"gridsnake/pkg/protocol"
)

// FieldPoint is a cell coordinate, 0 <= X < width and 0 <= Y < height.
type FieldPoint struct {
	X int
	Y int
}

func (p FieldPoint) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Add steps one cell towards d, re-entering from the opposite edge.
func (p FieldPoint) Add(d Direction, width, height int) FieldPoint {
	switch d {
	case Up:
		p.Y = (p.Y + height - 1) % height
	case Down:
		p.Y = (p.Y + 1) % height
	case Left:
		p.X = (p.X + width - 1) % width
	case Right:
		p.X = (p.X + 1) % width
	}
	return p
}

// Direction is a heading on the grid.
type Direction uint8

const (
	Up Direction = iota
	Right
	Down
	Left
)

var directionNames = [...]string{"Up", "Right", "Down", "Left"}

func (d Direction) String() string {
	if int(d) < len(directionNames) {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Opposite returns the reverse heading.
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// Valid reports whether d is one of the four headings.
func (d Direction) Valid() bool {
	return d <= Left
}

// Code returns the wire code of d.
func (d Direction) Code() byte {
	switch d {
	case Up:
		return protocol.DirUp
	case Right:
		return protocol.DirRight
	case Down:
		return protocol.DirDown
	default:
		return protocol.DirLeft
	}
}

// DirectionFromCode maps a wire code to a Direction.
func DirectionFromCode(code byte) (Direction, bool) {
	switch code {
	case protocol.DirLeft:
		return Left, true
	case protocol.DirUp:
		return Up, true
	case protocol.DirRight:
		return Right, true
	case protocol.DirDown:
		return Down, true
	}
	return 0, false
}

// State is the lifecycle of a Game.
type State uint8

const (
	StateNone State = iota
	StatePlaying
	StateOver
	StateQuit
)

var stateNames = [...]string{"None", "Playing", "Over", "Quit"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateOver || s == StateQuit
}

package game

import "gridsnake/pkg/protocol"

// SnakeNode is one body segment. Direction is the heading the segment had
// when it was laid; Stuffed marks a segment laid while eating.
type SnakeNode struct {
	Direction Direction
	Position  FieldPoint
	Stuffed   bool
}

// Snake is an ordered body, nodes[0] is the tail and the last node the head.
type Snake struct {
	ID      uint16
	Score   uint32
	nodes   []SnakeNode
	heading Direction
	width   int
	height  int
}

// NewSnake hatches a snake of size cells with its head on start. The trailing
// cells are laid behind the head, opposite to heading, and marked on field.
func NewSnake(field *Field, id uint16, start FieldPoint, heading Direction, size int) *Snake {
	if size < 1 {
		size = 1
	}
	s := &Snake{
		ID:      id,
		heading: heading,
		width:   field.Width(),
		height:  field.Height(),
		nodes:   make([]SnakeNode, 0, size+8),
	}
	s.nodes = append(s.nodes, SnakeNode{Direction: heading, Position: start})
	field.Set(start, true)

	back := heading.Opposite()
	p := start
	for i := 1; i < size; i++ {
		p = field.Step(p, back)
		s.nodes = append([]SnakeNode{{Direction: heading, Position: p}}, s.nodes...)
		field.Set(p, true)
	}
	return s
}

// seedCells lists the cells NewSnake would occupy, tail first.
func seedCells(field *Field, start FieldPoint, heading Direction, size int) []FieldPoint {
	cells := make([]FieldPoint, size)
	p := start
	cells[size-1] = p
	for i := size - 2; i >= 0; i-- {
		p = field.Step(p, heading.Opposite())
		cells[i] = p
	}
	return cells
}

// Heading is the direction the next move will take.
func (s *Snake) Heading() Direction { return s.heading }

// Len is the number of body segments.
func (s *Snake) Len() int { return len(s.nodes) }

// Head returns the front segment.
func (s *Snake) Head() SnakeNode { return s.nodes[len(s.nodes)-1] }

// Tail returns the back segment.
func (s *Snake) Tail() SnakeNode { return s.nodes[0] }

// Nodes returns a copy of the body, tail first.
func (s *Snake) Nodes() []SnakeNode {
	out := make([]SnakeNode, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Cells returns the body positions, tail first.
func (s *Snake) Cells() []FieldPoint {
	out := make([]FieldPoint, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Position
	}
	return out
}

// NextHead computes the segment the snake would lay next. It does not move.
func (s *Snake) NextHead() SnakeNode {
	return SnakeNode{
		Direction: s.heading,
		Position:  s.Head().Position.Add(s.heading, s.width, s.height),
	}
}

// HeadTo turns the snake unless d is the current head direction or its
// opposite. It reports whether the heading changed.
func (s *Snake) HeadTo(d Direction) bool {
	if !d.Valid() {
		return false
	}
	cur := s.Head().Direction
	if d == cur || d == cur.Opposite() {
		return false
	}
	s.heading = d
	return true
}

func (s *Snake) push(n SnakeNode) {
	s.nodes = append(s.nodes, n)
}

func (s *Snake) popTail() SnakeNode {
	tail := s.nodes[0]
	s.nodes = s.nodes[1:]
	return tail
}

// ToDTO converts the snake to its wire form.
func (s *Snake) ToDTO() protocol.SnakeDTO {
	nodes := make([]protocol.NodeDTO, len(s.nodes))
	for i, n := range s.nodes {
		nodes[i] = protocol.NodeDTO{
			X:         uint16(n.Position.X),
			Y:         uint16(n.Position.Y),
			Direction: n.Direction.Code(),
			Stuffed:   n.Stuffed,
		}
	}
	return protocol.SnakeDTO{
		ID:      s.ID,
		Heading: s.heading.Code(),
		Score:   s.Score,
		Nodes:   nodes,
	}
}

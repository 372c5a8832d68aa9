package game

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Field is the occupancy grid. A bit is set iff a snake segment covers the
// cell; food is tracked by FoodField, not here.
type Field struct {
	width  int
	height int
	bits   *bitset.BitSet
	count  int
}

// NewField creates an empty width x height field.
func NewField(width, height int) *Field {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("game: invalid field size %dx%d", width, height))
	}
	return &Field{
		width:  width,
		height: height,
		bits:   bitset.New(uint(width * height)),
	}
}

// Width and Height are the field dimensions in cells.
func (f *Field) Width() int  { return f.width }
func (f *Field) Height() int { return f.height }

// Len is the number of cells.
func (f *Field) Len() int { return f.width * f.height }

// Count is the number of occupied cells.
func (f *Field) Count() int { return f.count }

// Free is the number of unoccupied cells.
func (f *Field) Free() int { return f.Len() - f.count }

// Index maps p to its bit index, p.Y*width + p.X.
func (f *Field) Index(p FieldPoint) int {
	if p.X < 0 || p.X >= f.width || p.Y < 0 || p.Y >= f.height {
		panic(fmt.Sprintf("game: point %v outside %dx%d field", p, f.width, f.height))
	}
	return p.Y*f.width + p.X
}

// FromIndex is the inverse of Index.
func (f *Field) FromIndex(i int) FieldPoint {
	if i < 0 || i >= f.Len() {
		panic(fmt.Sprintf("game: index %d outside field of %d cells", i, f.Len()))
	}
	return FieldPoint{X: i % f.width, Y: i / f.width}
}

// Set marks p occupied or free.
func (f *Field) Set(p FieldPoint, occupied bool) {
	i := uint(f.Index(p))
	if f.bits.Test(i) == occupied {
		return
	}
	f.bits.SetTo(i, occupied)
	if occupied {
		f.count++
	} else {
		f.count--
	}
}

// Filled reports whether p is occupied.
func (f *Field) Filled(p FieldPoint) bool {
	return f.bits.Test(uint(f.Index(p)))
}

// IndexFilled reports whether the cell at index i is occupied.
func (f *Field) IndexFilled(i int) bool {
	return f.bits.Test(uint(i))
}

// Step moves p one cell towards d with wraparound.
func (f *Field) Step(p FieldPoint, d Direction) FieldPoint {
	return p.Add(d, f.width, f.height)
}

// Occupied lists every occupied cell in index order.
func (f *Field) Occupied() []FieldPoint {
	cells := make([]FieldPoint, 0, f.count)
	for i, ok := f.bits.NextSet(0); ok; i, ok = f.bits.NextSet(i + 1) {
		cells = append(cells, f.FromIndex(int(i)))
	}
	return cells
}

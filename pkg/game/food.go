package game

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"gridsnake/pkg/protocol"
)

// FoodShape is the kind of a food item. Everything but Basic is special.
type FoodShape uint8

const (
	Basic FoodShape = iota
	Whale
	Turtle
	Chameleon
	Elephant
	Alien
	Caterpillar
)

var shapeNames = [...]string{"Basic", "Whale", "Turtle", "Chameleon", "Elephant", "Alien", "Caterpillar"}

func (s FoodShape) String() string {
	if int(s) < len(shapeNames) {
		return shapeNames[s]
	}
	return fmt.Sprintf("FoodShape(%d)", uint8(s))
}

// specialShapes is the content of the rotating bag.
var specialShapes = [6]FoodShape{Whale, Turtle, Chameleon, Elephant, Alien, Caterpillar}

const (
	BasicWeight   = 8
	SpecialWeight = 45
)

// Food is one item on the field. Specials cover Location and the cell to its
// right and disappear when TicksLeft runs out; Basic food never expires.
type Food struct {
	Shape     FoodShape
	Location  FieldPoint
	TicksLeft int
	Size      int
	Weight    int
}

// Special reports whether f is a two cell, time limited item.
func (f Food) Special() bool { return f.Shape != Basic }

// IsAt reports whether f covers p.
func (f Food) IsAt(p FieldPoint) bool {
	if p.Y != f.Location.Y {
		return false
	}
	return p.X >= f.Location.X && p.X < f.Location.X+f.Size
}

// Cells lists the cells covered by f.
func (f Food) Cells() []FieldPoint {
	cells := make([]FieldPoint, f.Size)
	for i := range cells {
		cells[i] = FieldPoint{X: f.Location.X + i, Y: f.Location.Y}
	}
	return cells
}

// ToDTO converts f to its wire form.
func (f Food) ToDTO() protocol.FoodDTO {
	return protocol.FoodDTO{
		Shape:     byte(f.Shape),
		X:         uint16(f.Location.X),
		Y:         uint16(f.Location.Y),
		TicksLeft: uint16(f.TicksLeft),
		Size:      byte(f.Size),
		Weight:    uint16(f.Weight),
	}
}

// FoodField is the food inventory.
type FoodField struct {
	// Minimum is the number of Basic items kept on the field, one per live snake.
	Minimum int
	// Count is the number of Basic items spawned so far. The wire field
	// saturates at 65535.
	Count int

	foods        []Food
	bag          [len(specialShapes)]FoodShape
	bagNext      int
	lastSpecial  FoodShape
	specialEvery int
	specialTicks int
	rng          *rand.Rand
}

// NewFoodField creates an empty inventory. A special spawn is attempted with
// every specialEvery-th Basic item (0 disables specials); specials live
// specialTicks ticks. seed drives placement and the shape bag.
func NewFoodField(specialEvery, specialTicks int, seed uint64) *FoodField {
	return &FoodField{
		bag:          specialShapes,
		specialEvery: specialEvery,
		specialTicks: specialTicks,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Foods returns a copy of the inventory.
func (ff *FoodField) Foods() []Food {
	out := make([]Food, len(ff.foods))
	copy(out, ff.foods)
	return out
}

// Len is the number of items on the field.
func (ff *FoodField) Len() int { return len(ff.foods) }

// Basics is the number of Basic items on the field.
func (ff *FoodField) Basics() int {
	n := 0
	for _, f := range ff.foods {
		if !f.Special() {
			n++
		}
	}
	return n
}

// Reserved is the number of cells covered by food.
func (ff *FoodField) Reserved() int {
	n := 0
	for _, f := range ff.foods {
		n += f.Size
	}
	return n
}

// HasAt returns the index of the item covering p.
func (ff *FoodField) HasAt(p FieldPoint) (int, bool) {
	for i, f := range ff.foods {
		if f.IsAt(p) {
			return i, true
		}
	}
	return -1, false
}

// Grab removes and returns the item covering p.
func (ff *FoodField) Grab(p FieldPoint) (Food, bool) {
	i, ok := ff.HasAt(p)
	if !ok {
		return Food{}, false
	}
	f := ff.foods[i]
	ff.foods = append(ff.foods[:i], ff.foods[i+1:]...)
	return f, true
}

// Put places f without any checks.
func (ff *FoodField) Put(f Food) {
	ff.foods = append(ff.foods, f)
}

func (ff *FoodField) claimed(field *Field) []bool {
	claimed := make([]bool, field.Len())
	for _, f := range ff.foods {
		for _, c := range f.Cells() {
			claimed[field.Index(c)] = true
		}
	}
	return claimed
}

// AddFood spawns one Basic item on a uniformly random free cell and, with
// every specialEvery-th one, tries a special as well. It returns the items
// placed; none when the field is saturated.
func (ff *FoodField) AddFood(field *Field) []Food {
	claimed := ff.claimed(field)
	maxFree := field.Free() - ff.Reserved()
	if maxFree < 1 {
		return nil
	}

	// n-th free and unclaimed cell, counted in index order
	n := ff.rng.Intn(maxFree)
	idx := -1
	for i := 0; i < field.Len(); i++ {
		if field.IndexFilled(i) || claimed[i] {
			continue
		}
		if n == 0 {
			idx = i
			break
		}
		n--
	}
	if idx < 0 {
		return nil
	}

	basic := Food{Shape: Basic, Location: field.FromIndex(idx), Size: 1, Weight: BasicWeight}
	ff.Put(basic)
	ff.Count++
	added := []Food{basic}

	if ff.specialEvery > 0 && ff.Count%ff.specialEvery == 0 {
		if sp, ok := ff.RandomSpecial(field); ok {
			ff.Put(sp)
			added = append(added, sp)
		}
	}
	return added
}

// RandomSpecial picks a uniformly random pair of horizontally adjacent free
// and unclaimed cells inside one row. It reports false when there is none;
// the spawn attempt is then skipped.
func (ff *FoodField) RandomSpecial(field *Field) (Food, bool) {
	w := field.Width()
	if w < 2 {
		return Food{}, false
	}
	claimed := ff.claimed(field)
	open := func(i int) bool {
		return !field.IndexFilled(i) && !claimed[i] && !field.IndexFilled(i+1) && !claimed[i+1]
	}

	maxFree := 0
	for i := 0; i < field.Len(); i++ {
		if i%w != w-1 && open(i) {
			maxFree++
		}
	}
	if maxFree < 1 {
		return Food{}, false
	}

	n := ff.rng.Intn(maxFree)
	for i := 0; i < field.Len(); i++ {
		if i%w == w-1 || !open(i) {
			continue
		}
		if n == 0 {
			return Food{
				Shape:     ff.nextShape(),
				Location:  field.FromIndex(i),
				TicksLeft: ff.specialTicks,
				Size:      2,
				Weight:    SpecialWeight,
			}, true
		}
		n--
	}
	return Food{}, false
}

// nextShape draws from the rotating bag, reshuffling once it is exhausted.
func (ff *FoodField) nextShape() FoodShape {
	if ff.bagNext == 0 {
		ff.rng.Shuffle(len(ff.bag), func(i, j int) {
			ff.bag[i], ff.bag[j] = ff.bag[j], ff.bag[i]
		})
		if ff.lastSpecial != Basic && ff.bag[0] == ff.lastSpecial {
			j := 1 + ff.rng.Intn(len(ff.bag)-1)
			ff.bag[0], ff.bag[j] = ff.bag[j], ff.bag[0]
		}
	}
	shape := ff.bag[ff.bagNext]
	ff.bagNext = (ff.bagNext + 1) % len(ff.bag)
	ff.lastSpecial = shape
	return shape
}

// Tick counts down every special and removes the ones that expire.
func (ff *FoodField) Tick() []Food {
	var expired []Food
	kept := ff.foods[:0]
	for _, f := range ff.foods {
		if f.Special() {
			f.TicksLeft--
			if f.TicksLeft <= 0 {
				expired = append(expired, f)
				continue
			}
		}
		kept = append(kept, f)
	}
	ff.foods = kept
	return expired
}

// ToDTO converts the inventory to its wire form.
func (ff *FoodField) ToDTO() protocol.FoodFieldDTO {
	d := protocol.FoodFieldDTO{
		Minimum: uint16(ff.Minimum),
		Count:   uint16(min(ff.Count, math.MaxUint16)),
	}
	for _, f := range ff.foods {
		d.Foods = append(d.Foods, f.ToDTO())
	}
	return d
}

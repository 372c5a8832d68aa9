package protocol

import (
	"encoding/binary"
	"fmt"
)

// SnapshotVersion is the first byte of every GAME_DATA payload.
const SnapshotVersion byte = 1

// ConfigDTO is the game configuration as carried on the wire.
type ConfigDTO struct {
	Width   uint16
	Height  uint16
	Size    uint16
	StartX  uint16
	StartY  uint16
	Heading byte
}

// NodeDTO is one body segment.
type NodeDTO struct {
	X         uint16
	Y         uint16
	Direction byte
	Stuffed   bool
}

// SnakeDTO is one snake, nodes ordered tail first.
type SnakeDTO struct {
	ID      uint16
	Heading byte
	Score   uint32
	Nodes   []NodeDTO
}

// FoodDTO is one food item.
type FoodDTO struct {
	Shape     byte
	X         uint16
	Y         uint16
	TicksLeft uint16
	Size      byte
	Weight    uint16
}

// FoodFieldDTO is the food inventory.
type FoodFieldDTO struct {
	Minimum uint16
	Count   uint16
	Foods   []FoodDTO
}

// GameData is the full snapshot broadcast once per tick.
type GameData struct {
	State  byte
	Tick   uint32
	Config ConfigDTO
	Snakes []SnakeDTO
	Food   FoodFieldDTO
}

const (
	headerSize = 1 + 1 + 4
	configSize = 2*5 + 1
	snakeSize  = 2 + 1 + 4 + 2
	nodeSize   = 2 + 2 + 1 + 1
	foodSize   = 1 + 2 + 2 + 2 + 1 + 2
)

const flagStuffed byte = 1

// EncodeGameData serializes d into a GAME_DATA payload (without the tag).
func EncodeGameData(d *GameData) []byte {
	size := headerSize + configSize + 2 + 2 + 2 + 2 + len(d.Food.Foods)*foodSize
	for _, s := range d.Snakes {
		size += snakeSize + len(s.Nodes)*nodeSize
	}

	buf := make([]byte, 0, size)
	buf = append(buf, SnapshotVersion, d.State)
	buf = binary.BigEndian.AppendUint32(buf, d.Tick)

	c := d.Config
	buf = binary.BigEndian.AppendUint16(buf, c.Width)
	buf = binary.BigEndian.AppendUint16(buf, c.Height)
	buf = binary.BigEndian.AppendUint16(buf, c.Size)
	buf = binary.BigEndian.AppendUint16(buf, c.StartX)
	buf = binary.BigEndian.AppendUint16(buf, c.StartY)
	buf = append(buf, c.Heading)

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(d.Snakes)))
	for _, s := range d.Snakes {
		buf = binary.BigEndian.AppendUint16(buf, s.ID)
		buf = append(buf, s.Heading)
		buf = binary.BigEndian.AppendUint32(buf, s.Score)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(s.Nodes)))
		for _, n := range s.Nodes {
			buf = binary.BigEndian.AppendUint16(buf, n.X)
			buf = binary.BigEndian.AppendUint16(buf, n.Y)
			var flags byte
			if n.Stuffed {
				flags |= flagStuffed
			}
			buf = append(buf, n.Direction, flags)
		}
	}

	buf = binary.BigEndian.AppendUint16(buf, d.Food.Minimum)
	buf = binary.BigEndian.AppendUint16(buf, d.Food.Count)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(d.Food.Foods)))
	for _, f := range d.Food.Foods {
		buf = append(buf, f.Shape)
		buf = binary.BigEndian.AppendUint16(buf, f.X)
		buf = binary.BigEndian.AppendUint16(buf, f.Y)
		buf = binary.BigEndian.AppendUint16(buf, f.TicksLeft)
		buf = append(buf, f.Size)
		buf = binary.BigEndian.AppendUint16(buf, f.Weight)
	}
	return buf
}

// GameDataFrame encodes d and prefixes the GAME_DATA tag.
func GameDataFrame(d *GameData) []byte {
	return Frame(TagGameData, EncodeGameData(d))
}

// reader walks a payload; the first short read sticks in err.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.buf)-r.off < n {
		r.err = fmt.Errorf("game data at offset %d: %w", r.off, ErrShortPayload)
		return false
	}
	return true
}

func (r *reader) u8() byte {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// DecodeGameData parses a GAME_DATA payload (without the tag).
func DecodeGameData(payload []byte) (*GameData, error) {
	r := &reader{buf: payload}
	if v := r.u8(); r.err == nil && v != SnapshotVersion {
		return nil, fmt.Errorf("version %d: %w", v, ErrBadVersion)
	}

	d := &GameData{}
	d.State = r.u8()
	d.Tick = r.u32()
	d.Config = ConfigDTO{
		Width:  r.u16(),
		Height: r.u16(),
		Size:   r.u16(),
		StartX: r.u16(),
		StartY: r.u16(),
	}
	d.Config.Heading = r.u8()

	if n := int(r.u16()); n > 0 && r.need(n*snakeSize) {
		d.Snakes = make([]SnakeDTO, n)
		for i := range d.Snakes {
			s := &d.Snakes[i]
			s.ID = r.u16()
			s.Heading = r.u8()
			s.Score = r.u32()
			nodes := int(r.u16())
			if nodes == 0 || !r.need(nodes*nodeSize) {
				continue
			}
			s.Nodes = make([]NodeDTO, nodes)
			for j := range s.Nodes {
				s.Nodes[j] = NodeDTO{X: r.u16(), Y: r.u16(), Direction: r.u8()}
				s.Nodes[j].Stuffed = r.u8()&flagStuffed != 0
			}
		}
	}

	d.Food.Minimum = r.u16()
	d.Food.Count = r.u16()
	if n := int(r.u16()); n > 0 && r.need(n*foodSize) {
		d.Food.Foods = make([]FoodDTO, n)
		for i := range d.Food.Foods {
			f := &d.Food.Foods[i]
			f.Shape = r.u8()
			f.X = r.u16()
			f.Y = r.u16()
			f.TicksLeft = r.u16()
			f.Size = r.u8()
			f.Weight = r.u16()
		}
	}

	if r.err != nil {
		return nil, r.err
	}
	return d, nil
}

// DecodeFrame parses a server frame. Only GAME_DATA frames return a snapshot;
// other known tags return nil data and no error.
func DecodeFrame(frame []byte) (byte, *GameData, error) {
	tag, payload, err := Split(frame)
	if err != nil {
		return 0, nil, err
	}
	switch tag {
	case TagGameData:
		d, err := DecodeGameData(payload)
		return tag, d, err
	case TagNotify, TagPing:
		return tag, nil, nil
	default:
		return tag, nil, fmt.Errorf("tag %d: %w", tag, ErrUnknownTag)
	}
}

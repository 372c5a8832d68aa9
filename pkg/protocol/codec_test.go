package protocol

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func sampleGameData() *GameData {
	return &GameData{
		State: 1,
		Tick:  70000,
		Config: ConfigDTO{
			Width: 30, Height: 20, Size: 5, StartX: 1, StartY: 0, Heading: DirRight,
		},
		Snakes: []SnakeDTO{
			{ID: 1, Heading: DirUp, Score: 53, Nodes: []NodeDTO{
				{X: 29, Y: 0, Direction: DirRight},
				{X: 0, Y: 0, Direction: DirRight, Stuffed: true},
				{X: 0, Y: 19, Direction: DirUp},
			}},
			{ID: 300, Heading: DirLeft},
		},
		Food: FoodFieldDTO{
			Minimum: 2,
			Count:   11,
			Foods: []FoodDTO{
				{Shape: 0, X: 4, Y: 4, Size: 1, Weight: 8},
				{Shape: 3, X: 10, Y: 7, TicksLeft: 12, Size: 2, Weight: 45},
			},
		},
	}
}

func TestGameDataRoundTrip(t *testing.T) {
	want := sampleGameData()
	tag, got, err := DecodeFrame(GameDataFrame(want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tag != TagGameData {
		t.Fatalf("tag = %d", tag)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip\n got %+v\nwant %+v", got, want)
	}
}

func TestGameDataLayout(t *testing.T) {
	d := &GameData{State: 2, Tick: 0x01020304, Config: ConfigDTO{Width: 0x0a0b}}
	buf := EncodeGameData(d)
	if buf[0] != SnapshotVersion || buf[1] != 2 {
		t.Fatalf("header % x", buf[:2])
	}
	if buf[2] != 1 || buf[3] != 2 || buf[4] != 3 || buf[5] != 4 {
		t.Fatalf("tick not big endian: % x", buf[2:6])
	}
	if buf[6] != 0x0a || buf[7] != 0x0b {
		t.Fatalf("width not big endian: % x", buf[6:8])
	}
	if len(buf) != headerSize+configSize+2+6 {
		t.Fatalf("empty snapshot is %d bytes", len(buf))
	}
}

func TestDecodeTruncated(t *testing.T) {
	payload := EncodeGameData(sampleGameData())
	for n := 0; n < len(payload); n++ {
		if _, err := DecodeGameData(payload[:n]); !errors.Is(err, ErrShortPayload) {
			t.Fatalf("truncated to %d bytes: err = %v", n, err)
		}
	}
}

func TestDecodeBadVersion(t *testing.T) {
	payload := EncodeGameData(sampleGameData())
	payload[0] = SnapshotVersion + 1
	if _, err := DecodeGameData(payload); !errors.Is(err, ErrBadVersion) {
		t.Fatalf("err = %v", err)
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	if _, _, err := DecodeFrame(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Fatalf("empty: %v", err)
	}
	if _, _, err := DecodeFrame([]byte{42}); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("unknown: %v", err)
	}
	tag, d, err := DecodeFrame(NotifyFrame(9))
	if err != nil || tag != TagNotify || d != nil {
		t.Fatalf("notify: %d %v %v", tag, d, err)
	}
}

func TestDirection(t *testing.T) {
	tests := []struct {
		payload []byte
		want    byte
		err     error
	}{
		{[]byte{DirLeft}, DirLeft, nil},
		{[]byte{DirDown}, DirDown, nil},
		{[]byte{4}, 0, ErrBadDirection},
		{[]byte{}, 0, ErrShortPayload},
		{[]byte{1, 2}, 0, ErrShortPayload},
	}
	for _, tt := range tests {
		got, err := DecodeDirection(tt.payload)
		if !errors.Is(err, tt.err) || got != tt.want {
			t.Errorf("DecodeDirection(% x) = %d, %v; want %d, %v", tt.payload, got, err, tt.want, tt.err)
		}
	}
	tag, payload, _ := Split(DirectionFrame(DirUp))
	if tag != TagDirection || len(payload) != 1 || payload[0] != DirUp {
		t.Fatalf("frame % x", DirectionFrame(DirUp))
	}
}

func TestNotifyAndPing(t *testing.T) {
	_, payload, _ := Split(NotifyFrame(0xbeef))
	id, err := DecodeNotify(payload)
	if err != nil || id != 0xbeef {
		t.Fatalf("notify id %x, %v", id, err)
	}
	if _, err := DecodeNotify([]byte{1}); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("short notify: %v", err)
	}

	now := time.Unix(1700000000, 123456789)
	tag, ping, _ := Split(PingFrame(now))
	if tag != TagPing {
		t.Fatalf("tag %d", tag)
	}
	tag, pong, _ := Split(PongFrame(ping))
	if tag != TagPong {
		t.Fatalf("pong tag %d", tag)
	}
	got, err := DecodeStamp(pong)
	if err != nil || !got.Equal(now) {
		t.Fatalf("stamp %v, %v", got, err)
	}
}

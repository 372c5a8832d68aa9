package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"gridsnake/pkg/game"
	"gridsnake/pkg/protocol"
)

type fixture struct {
	world *World
	conns *ConnManager
	bcast *Broadcaster
	drv   *Driver
}

func newFixture(t *testing.T, period time.Duration, bots int) *fixture {
	t.Helper()
	cfg := game.DefaultConfig()
	cfg.Width, cfg.Height, cfg.Size = 10, 10, 3
	cfg.Seed = 5
	g, err := game.NewGame(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	var bm *game.BotManager
	if bots > 0 {
		bm = game.NewBotManager(g, bots, 2, 5)
	}
	f := &fixture{
		world: NewWorld(g, bm),
		conns: NewConnManager(),
		bcast: NewBroadcaster(),
	}
	f.drv = NewDriver(f.world, f.conns, f.bcast, nil, period, nil)
	return f
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	f.world.Do(func(g *game.Game, _ *game.BotManager) {
		if err := g.Start(); err != nil {
			t.Fatal(err)
		}
	})
}

// player registers a session with a fresh snake; the session has no socket.
func (f *fixture) player(t *testing.T) *Session {
	t.Helper()
	id, err := f.world.Join()
	if err != nil {
		t.Fatal(err)
	}
	s := NewSession(nil, nil, nil)
	s.setSnake(id)
	f.conns.Add(s)
	return s
}

func (f *fixture) head(t *testing.T, id uint16) game.SnakeNode {
	t.Helper()
	var head game.SnakeNode
	f.world.Do(func(g *game.Game, _ *game.BotManager) {
		s, ok := g.Snake(id)
		if !ok {
			t.Fatalf("snake %d gone", id)
		}
		head = s.Head()
	})
	return head
}

func TestLastDirectionBeforeTickWins(t *testing.T) {
	f := newFixture(t, time.Hour, 0)
	p := f.player(t)
	f.start(t)
	id, _ := p.Snake()

	for _, d := range []game.Direction{game.Up, game.Down, game.Left, game.Up, game.Down} {
		p.SetDirection(d)
	}
	f.drv.Step()

	head := f.head(t, id)
	if head.Position != (game.FieldPoint{X: 1, Y: 1}) || head.Direction != game.Down {
		t.Fatalf("head %v heading %v, want (1,1) Down", head.Position, head.Direction)
	}
	if _, ok := p.TakeDirection(); ok {
		t.Fatal("direction not consumed by the tick")
	}

	f.drv.Step()
	if head := f.head(t, id); head.Position != (game.FieldPoint{X: 1, Y: 2}) {
		t.Fatalf("second tick head %v", head.Position)
	}
}

func TestStepPublishesSnapshot(t *testing.T) {
	f := newFixture(t, time.Hour, 0)
	f.player(t)
	f.player(t)
	f.start(t)
	sub := f.bcast.Subscribe()

	res, over := f.drv.Step()
	if over || res.Tick != 1 {
		t.Fatalf("tick %d over %v", res.Tick, over)
	}
	tag, d, err := protocol.DecodeFrame(<-sub.C())
	if err != nil || tag != protocol.TagGameData {
		t.Fatalf("frame: %d %v", tag, err)
	}
	if d.Tick != 1 || len(d.Snakes) != 2 || d.Food.Minimum != 2 {
		t.Fatalf("snapshot %+v", d)
	}
}

func TestStepMarksEliminatedSessions(t *testing.T) {
	f := newFixture(t, time.Hour, 0)
	a := f.player(t)
	b := f.player(t)
	f.start(t)

	b.SetDirection(game.Up)
	res, _ := f.drv.Step()
	bid, alive := b.Snake()
	if alive || len(res.Eliminated) != 1 || res.Eliminated[0] != bid {
		t.Fatalf("eliminated %v, session b alive %v", res.Eliminated, alive)
	}
	if _, alive := a.Snake(); !alive {
		t.Fatal("session a lost its snake")
	}
	if f.world.Alive(bid) {
		t.Fatal("eliminated snake still in the world")
	}
}

func TestDriverKeepsBots(t *testing.T) {
	f := newFixture(t, time.Hour, 3)
	if err := func() error {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return f.drv.Run(ctx)
	}(); err != nil {
		t.Fatal(err)
	}
	f.world.Do(func(g *game.Game, bots *game.BotManager) {
		if g.Len() != 3 || bots.Live() != 3 {
			t.Fatalf("snakes %d bots %d", g.Len(), bots.Live())
		}
		if g.State() != game.StateQuit {
			t.Fatalf("state %v after cancel", g.State())
		}
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, 5*time.Millisecond, 0)
	f.player(t)
	sub := f.bcast.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.drv.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for ticks := 0; ticks < 3; {
		select {
		case frame := <-sub.C():
			if _, d, err := protocol.DecodeFrame(frame); err == nil && d != nil {
				ticks++
			}
		case <-deadline:
			t.Fatal("no ticks")
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	var last []byte
	for frame := range sub.C() {
		last = frame
	}
	_, d, err := protocol.DecodeFrame(last)
	if err != nil || d.State != byte(game.StateQuit) {
		t.Fatalf("final frame state %v, %v", d, err)
	}
}

func TestRunRejectsFinishedGame(t *testing.T) {
	f := newFixture(t, time.Millisecond, 0)
	f.world.Do(func(g *game.Game, _ *game.BotManager) {
		_ = g.Start()
		g.Finish()
	})
	if err := f.drv.Run(context.Background()); err == nil {
		t.Fatal("Run on a finished game returned nil")
	}
}

func TestRunEndsWhenGameIsOver(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.Width, cfg.Height, cfg.Size = 4, 1, 4
	cfg.Start = game.FieldPoint{}
	g, _ := game.NewGame(cfg, nil)
	w := NewWorld(g, nil)
	if _, err := w.Join(); err != nil {
		t.Fatal(err)
	}
	bcast := NewBroadcaster()
	sub := bcast.Subscribe()
	drv := NewDriver(w, NewConnManager(), bcast, nil, time.Millisecond, nil)

	done := make(chan error, 1)
	go func() { done <- drv.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("driver kept running on a full field")
	}
	_, d, err := protocol.DecodeFrame(<-sub.C())
	if err != nil || d.State != byte(game.StateOver) {
		t.Fatalf("final frame %+v, %v", d, err)
	}
}

func TestSecondRunIsRejected(t *testing.T) {
	const period = 20 * time.Millisecond
	f := newFixture(t, period, 0)
	f.player(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- f.drv.Run(ctx) }()

	ticks := func() uint32 {
		var n uint32
		f.world.Do(func(g *game.Game, _ *game.BotManager) { n = g.TickCount() })
		return n
	}
	deadline := time.Now().Add(2 * time.Second)
	for ticks() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first loop never ticked")
		}
		time.Sleep(time.Millisecond)
	}

	second := make(chan error, 1)
	go func() { second <- f.drv.Run(ctx) }()
	select {
	case err := <-second:
		if !errors.Is(err, game.ErrAlreadyStarted) {
			t.Fatalf("second Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second Run is ticking alongside the first")
	}

	before := ticks()
	time.Sleep(20 * period)
	// one loop yields about 20 ticks here, two would yield about 40
	if n := ticks() - before; n > 30 {
		t.Fatalf("%d ticks in %v at a %v period", n, 20*period, period)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("first Run: %v", err)
	}
}

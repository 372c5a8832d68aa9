package network

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"gridsnake/pkg/game"
	"gridsnake/pkg/protocol"
)

// DefaultTickPeriod is the time between two simulation steps.
const DefaultTickPeriod = 251 * time.Millisecond

// Driver advances the game at a fixed period and publishes a GAME_DATA frame
// after every step. It is the only writer of the game once running.
type Driver struct {
	world  *World
	conns  *ConnManager
	bcast  *Broadcaster
	stats  *Stats
	period time.Duration
	logger *log.Logger

	running atomic.Bool
}

// NewDriver wires a driver. stats and logger may be nil.
func NewDriver(world *World, conns *ConnManager, bcast *Broadcaster, stats *Stats, period time.Duration, logger *log.Logger) *Driver {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	if stats == nil {
		stats = NewStats()
	}
	return &Driver{
		world:  world,
		conns:  conns,
		bcast:  bcast,
		stats:  stats,
		period: period,
		logger: logger,
	}
}

// Run starts the game and ticks it until ctx is cancelled or the game is
// over. A step that takes longer than the period is followed by the next one
// immediately. While a loop is running, further calls return
// game.ErrAlreadyStarted without ticking.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return fmt.Errorf("start driver: %w", game.ErrAlreadyStarted)
	}
	defer d.running.Store(false)

	var startErr error
	d.world.Do(func(g *game.Game, bots *game.BotManager) {
		if err := g.Start(); err != nil && g.State() != game.StatePlaying {
			startErr = fmt.Errorf("start driver in state %v: %w", g.State(), game.ErrGameEnded)
			return
		}
		if bots != nil {
			bots.Maintain()
		}
	})
	if startErr != nil {
		return startErr
	}
	d.logf("[TICK] driver started, period %v", d.period)

	timer := time.NewTimer(d.period)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			d.shutdown()
			return nil
		case <-timer.C:
		}

		start := time.Now()
		res, over := d.Step()
		elapsed := time.Since(start)
		overrun := elapsed > d.period
		d.stats.recordTick(elapsed, overrun, len(res.Eliminated))

		if over {
			d.logf("[TICK] game over at tick %d", res.Tick)
			d.bcast.Close()
			return nil
		}
		if overrun {
			d.logf("[TICK] tick %d took %v, period is %v", res.Tick, elapsed, d.period)
			timer.Reset(0)
			continue
		}
		timer.Reset(d.period - elapsed)
	}
}

// Step applies every pending direction, advances the game by one tick and
// publishes the resulting snapshot. It reports whether the game is over.
func (d *Driver) Step() (game.TickResult, bool) {
	sessions := d.conns.Snapshot()

	var (
		res   game.TickResult
		frame []byte
		over  bool
	)
	d.world.Do(func(g *game.Game, bots *game.BotManager) {
		for _, s := range sessions {
			dir, ok := s.TakeDirection()
			if id, alive := s.Snake(); ok && alive {
				g.HeadTo(id, dir)
			}
		}
		if bots != nil {
			bots.Steer()
		}
		res = g.Tick()
		if bots != nil {
			bots.HandleDeaths()
			bots.Maintain()
		}
		snap := g.Snapshot()
		frame = protocol.GameDataFrame(&snap)
		over = g.State() == game.StateOver
	})

	for _, id := range res.Eliminated {
		for _, s := range sessions {
			if s.markDead(id) {
				d.logf("[DEAD] session %s lost snake %d at tick %d", s.ID, id, res.Tick)
			}
		}
	}
	d.bcast.Publish(frame)
	return res, over
}

// shutdown quits the game, publishes the final picture and closes every
// subscription, which makes the sessions send a normal close frame.
func (d *Driver) shutdown() {
	var frame []byte
	d.world.Do(func(g *game.Game, _ *game.BotManager) {
		g.Quit()
		snap := g.Snapshot()
		frame = protocol.GameDataFrame(&snap)
	})
	d.bcast.Publish(frame)
	d.bcast.Close()
	d.logf("[TICK] driver stopped")
}

func (d *Driver) logf(format string, args ...any) {
	if d.logger != nil {
		d.logger.Printf(format, args...)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gridsnake/pkg/config"
	"gridsnake/pkg/game"
	"gridsnake/pkg/network"
	"gridsnake/pkg/relay"
)

func main() {
	envFile := flag.String("env", ".env", "optional file with SNAKE_* settings")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := log.New(os.Stderr, "", log.LstdFlags)

	g, err := game.NewGame(cfg.Game, nil)
	if err != nil {
		log.Fatalf("new game: %v", err)
	}
	botSeed := cfg.Game.Seed + 1
	if cfg.Game.Seed == 0 {
		botSeed = uint64(time.Now().UnixNano())
	}
	bots := game.NewBotManager(g, cfg.Bots, cfg.BotRespawnDelay, botSeed)

	world := network.NewWorld(g, bots)
	conns := network.NewConnManager()
	bcast := network.NewBroadcaster()
	stats := network.NewStats()
	driver := network.NewDriver(world, conns, bcast, stats, cfg.TickPeriod, logger)
	srv := network.NewServer(world, conns, bcast, stats, network.ServerOptions{
		MaxPlayers: cfg.MaxPlayers,
		IPCooldown: cfg.IPCooldown,
		StaticDir:  cfg.StaticDir,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MQTTBroker != "" {
		pub, err := relay.DialMQTT(cfg.MQTTBroker, cfg.MQTTClientID, 10*time.Second)
		if err != nil {
			log.Printf("mqtt relay disabled: %v", err)
		} else {
			defer pub.Close()
			sub := bcast.Subscribe()
			go func() {
				n := relay.NewMirror(pub, cfg.MQTTTopic, 1, logger).Run(ctx, sub.C())
				log.Printf("mqtt relay stopped after %d frames", n)
			}()
			log.Printf("mirroring frames to %s topic %s", cfg.MQTTBroker, cfg.MQTTTopic)
		}
	}

	hs := &http.Server{Addr: cfg.BindAddr, Handler: srv.Handler()}
	go func() {
		log.Printf("server listening on %s (%dx%d field, tick %v, %d bots)",
			cfg.BindAddr, cfg.Game.Width, cfg.Game.Height, cfg.TickPeriod, cfg.Bots)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	if err := driver.Run(ctx); err != nil {
		log.Printf("driver: %v", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	world.Do(func(g *game.Game, _ *game.BotManager) {
		log.Printf("game %v after %d ticks", g.State(), g.TickCount())
	})
}

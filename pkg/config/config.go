// Package config reads the server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"gridsnake/pkg/game"
)

// Config is everything cmd/gridsnake needs to run.
type Config struct {
	BindAddr   string
	TickPeriod time.Duration
	StaticDir  string

	Game            game.Config
	Bots            int
	BotRespawnDelay int

	MaxPlayers int
	IPCooldown time.Duration

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		BindAddr:        ":8080",
		TickPeriod:      251 * time.Millisecond,
		Game:            game.DefaultConfig(),
		BotRespawnDelay: game.DefaultBotRespawnDelay,
		MaxPlayers:      100,
		MQTTTopic:       "gridsnake/frames",
		MQTTClientID:    "gridsnake",
	}
}

// Load reads the given .env files (".env" when none are named; a missing file
// is not an error), then overlays the SNAKE_* variables on Default.
// Variables already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load env file: %w", err)
	}

	c := Default()
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	millis := func(key string, dst *time.Duration) {
		n := int(dst.Milliseconds())
		num(key, &n)
		*dst = time.Duration(n) * time.Millisecond
	}

	str("SNAKE_BIND_ADDR", &c.BindAddr)
	str("SNAKE_STATIC_DIR", &c.StaticDir)
	millis("SNAKE_TICK_MS", &c.TickPeriod)
	num("SNAKE_WIDTH", &c.Game.Width)
	num("SNAKE_HEIGHT", &c.Game.Height)
	num("SNAKE_SIZE", &c.Game.Size)
	num("SNAKE_START_X", &c.Game.Start.X)
	num("SNAKE_START_Y", &c.Game.Start.Y)
	num("SNAKE_SPECIAL_EVERY", &c.Game.SpecialEvery)
	num("SNAKE_SPECIAL_TICKS", &c.Game.SpecialTicks)
	num("SNAKE_BOTS", &c.Bots)
	num("SNAKE_BOT_RESPAWN", &c.BotRespawnDelay)
	num("SNAKE_MAX_PLAYERS", &c.MaxPlayers)
	str("SNAKE_MQTT_BROKER", &c.MQTTBroker)
	str("SNAKE_MQTT_TOPIC", &c.MQTTTopic)
	str("SNAKE_MQTT_CLIENT_ID", &c.MQTTClientID)

	cooldown := int(c.IPCooldown.Seconds())
	num("SNAKE_IP_COOLDOWN_SEC", &cooldown)
	c.IPCooldown = time.Duration(cooldown) * time.Second

	if v, ok := os.LookupEnv("SNAKE_HEADING"); ok && v != "" {
		d, err := parseHeading(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.Game.Heading = d
		}
	}
	if v, ok := os.LookupEnv("SNAKE_SEED"); ok && v != "" {
		seed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SNAKE_SEED: %w", err))
		} else {
			c.Game.Seed = seed
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the settings that Load cannot check one by one.
func (c Config) Validate() error {
	if c.TickPeriod <= 0 {
		return fmt.Errorf("config: tick period %v must be positive", c.TickPeriod)
	}
	if c.Bots < 0 || c.MaxPlayers < 0 {
		return fmt.Errorf("config: negative bot or player count")
	}
	if err := c.Game.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func parseHeading(v string) (game.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "up":
		return game.Up, nil
	case "right":
		return game.Right, nil
	case "down":
		return game.Down, nil
	case "left":
		return game.Left, nil
	}
	return 0, fmt.Errorf("SNAKE_HEADING: unknown direction %q", v)
}

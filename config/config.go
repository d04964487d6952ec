// Package config holds the settings shared by the gridsnake binaries and the
// environment-variable fallbacks their flags use.
package config

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/brensch/gridsnake/rules"
)

// Board is the engine construction surface: size, reversal guard and seed.
type Board struct {
	Width         int
	Height        int
	AllowReversal bool
	// Seed for food placement. 0 means seed from the clock.
	Seed int64
}

// DefaultBoard is the classic console game: 10x10 with the guard on.
var DefaultBoard = Board{Width: 10, Height: 10}

// RegisterFlags binds b to fs, reading defaults from SNAKE_* variables.
func (b *Board) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&b.Width, "width", GetEnvIntOrDefault("SNAKE_WIDTH", b.Width), "Board width in cells")
	fs.IntVar(&b.Height, "height", GetEnvIntOrDefault("SNAKE_HEIGHT", b.Height), "Board height in cells")
	fs.BoolVar(&b.AllowReversal, "allow-reversal", GetEnvBoolOrDefault("SNAKE_ALLOW_REVERSAL", b.AllowReversal), "Accept moves straight back onto the previous heading")
	fs.Int64Var(&b.Seed, "seed", int64(GetEnvIntOrDefault("SNAKE_SEED", int(b.Seed))), "Food RNG seed (0 = time based)")
}

// Validate checks the board can host a game.
func (b Board) Validate() error {
	if b.Width < 1 || b.Height < 1 || b.Width > math.MaxInt32 || b.Height > math.MaxInt32 {
		return fmt.Errorf("%w: %dx%d", rules.ErrInvalidBoard, b.Width, b.Height)
	}
	return nil
}

// EngineOptions turns the board settings into engine options.
func (b Board) EngineOptions() rules.Options {
	seed := b.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rules.Options{
		AllowReversal: b.AllowReversal,
		Spawner:       rules.NewRandomSpawner(seed),
	}
}

// NewEngine validates b and starts a game with extra options merged in.
func (b Board) NewEngine(opts rules.Options) (*rules.Engine, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	base := b.EngineOptions()
	if opts.Spawner != nil {
		base.Spawner = opts.Spawner
	}
	base.Logger = opts.Logger
	return rules.NewEngine(int32(b.Width), int32(b.Height), base)
}

// Environment variable helpers

func GetEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func GetEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func GetEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func GetEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

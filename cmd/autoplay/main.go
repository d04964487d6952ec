// Command autoplay plays bot games on a worker pool and archives them, one
// Parquet file per run.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/brensch/gridsnake/archive"
	"github.com/brensch/gridsnake/autoplay"
	"github.com/brensch/gridsnake/config"
	"github.com/brensch/gridsnake/logging"
	"github.com/brensch/gridsnake/rules"
	"github.com/brensch/gridsnake/scores"
	"github.com/brensch/gridsnake/store"
)

func main() {
	board := config.DefaultBoard
	board.RegisterFlags(flag.CommandLine)
	dataDir := flag.String("data", config.GetEnvOrDefault("SNAKE_DATA", "data"), "Directory for Parquet game archives")
	scoresPath := flag.String("scores", config.GetEnvOrDefault("SNAKE_SCORES", filepath.Join("data", "scores.db")), "SQLite high-score database (empty disables)")
	workers := flag.Int("workers", config.GetEnvIntOrDefault("WORKERS", 4), "Concurrent games")
	games := flag.Int("games", config.GetEnvIntOrDefault("GAMES", 100), "Games to play (0 = until interrupted)")
	maxSteps := flag.Int("max-steps", config.GetEnvIntOrDefault("MAX_STEPS", 0), "Move cap per game (0 = 4x board area)")
	explore := flag.Int("explore-turns", config.GetEnvIntOrDefault("EXPLORE_TURNS", 10), "Sample moves for this many opening turns")
	logFormat := flag.String("log-format", config.GetEnvOrDefault("LOG_FORMAT", logging.FormatPretty), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.GetEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	flag.Parse()

	logger, err := logging.FromFlags(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		os.Stderr.WriteString("autoplay: " + err.Error() + "\n")
		os.Exit(2)
	}
	fatal := func(msg string, err error) {
		logger.Error(msg, "error", err)
		os.Exit(1)
	}
	if err := board.Validate(); err != nil {
		fatal("invalid board", err)
	}

	batch, err := store.NewBatchWriter(*dataDir)
	if err != nil {
		fatal("open archive", err)
	}
	sink := &archive.Sink{Batch: batch, Player: "bot", Logger: logger}
	if *scoresPath != "" {
		if err := os.MkdirAll(filepath.Dir(*scoresPath), 0o755); err != nil {
			fatal("create scores dir", err)
		}
		db, err := scores.Open(*scoresPath)
		if err != nil {
			fatal("open scores", err)
		}
		defer db.Close()
		sink.Scores = db
	}

	// Seeds double as game numbers so a run can be reproduced with -seed.
	firstSeed := board.Seed
	if firstSeed == 0 {
		firstSeed = time.Now().UnixNano()
	}
	newEngine := func(seed int64) (*rules.Engine, error) {
		b := board
		b.Seed = seed
		return b.NewEngine(rules.Options{})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("autoplay started", "workers", *workers, "games", *games, "first_seed", firstSeed, "width", board.Width, "height", board.Height)
	start := time.Now()
	stats := autoplay.Run(ctx, autoplay.Config{
		Workers:      *workers,
		Games:        *games,
		MaxSteps:     *maxSteps,
		ExploreTurns: int32(*explore),
		Seed:         firstSeed,
	}, newEngine, sink, nil, logger)

	path, archived, err := batch.Finalize()
	if err != nil {
		fatal("finalize archive", err)
	}

	avg := 0.0
	if stats.Games > 0 {
		avg = float64(stats.TotalScore) / float64(stats.Games)
	}
	logger.Info("autoplay finished",
		"games", stats.Games,
		"archived", archived,
		"path", path,
		"best_score", stats.BestScore,
		"avg_score", avg,
		"capped", stats.Capped,
		"failed", stats.Failed,
		"took", time.Since(start),
	)
}

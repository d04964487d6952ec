// Command snake plays snake in the terminal. Finished games are archived to
// Parquet and recorded on the SQLite high-score board.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/brensch/gridsnake/archive"
	"github.com/brensch/gridsnake/config"
	"github.com/brensch/gridsnake/logging"
	"github.com/brensch/gridsnake/rules"
	"github.com/brensch/gridsnake/scores"
	"github.com/brensch/gridsnake/store"
	"github.com/brensch/gridsnake/tui"
	tea "github.com/charmbracelet/bubbletea"
)

type options struct {
	board      config.Board
	dataDir    string
	scoresPath string
	player     string
	tick       time.Duration
	logFile    string
	logFormat  string
	logLevel   string
}

func main() {
	opts := options{board: config.DefaultBoard}
	opts.board.RegisterFlags(flag.CommandLine)
	flag.StringVar(&opts.dataDir, "data", config.GetEnvOrDefault("SNAKE_DATA", "data"), "Directory for Parquet game archives (empty disables)")
	flag.StringVar(&opts.scoresPath, "scores", config.GetEnvOrDefault("SNAKE_SCORES", filepath.Join("data", "scores.db")), "SQLite high-score database (empty disables)")
	flag.StringVar(&opts.player, "player", config.GetEnvOrDefault("USER", "player"), "Name recorded on the high-score board")
	flag.DurationVar(&opts.tick, "tick", config.GetEnvDurationOrDefault("SNAKE_TICK", 0), "Advance automatically every interval (0 = turn based)")
	flag.StringVar(&opts.logFile, "log-file", config.GetEnvOrDefault("SNAKE_LOG_FILE", ""), "Write logs here; the terminal is busy with the board")
	flag.StringVar(&opts.logFormat, "log-format", config.GetEnvOrDefault("LOG_FORMAT", logging.FormatPretty), "Log format: pretty, json or text")
	flag.StringVar(&opts.logLevel, "log-level", config.GetEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "snake:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if err := opts.board.Validate(); err != nil {
		return err
	}

	var logOut io.Writer = io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, err := logging.FromFlags(logOut, opts.logFormat, opts.logLevel)
	if err != nil {
		return err
	}

	sink := &archive.Sink{Player: opts.player, Logger: logger}
	var best int32

	if opts.scoresPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.scoresPath), 0o755); err != nil {
			return fmt.Errorf("create scores dir: %w", err)
		}
		db, err := scores.Open(opts.scoresPath)
		if err != nil {
			return err
		}
		defer db.Close()
		sink.Scores = db
		if best, err = db.Best(context.Background()); err != nil {
			logger.Warn("could not load best score", "error", err)
		}
	}

	var batch *store.BatchWriter
	if opts.dataDir != "" {
		if batch, err = store.NewBatchWriter(opts.dataDir); err != nil {
			return err
		}
		sink.Batch = batch
	}

	newEngine := func() (*rules.Engine, error) {
		return opts.board.NewEngine(rules.Options{Logger: logger})
	}
	model, err := tui.New(newEngine, sink, tui.Config{Tick: opts.tick, Best: best})
	if err != nil {
		return err
	}

	logger.Info("session started",
		"width", opts.board.Width,
		"height", opts.board.Height,
		"allow_reversal", opts.board.AllowReversal,
		"tick", opts.tick,
	)
	_, runErr := tea.NewProgram(model).Run()

	if batch != nil {
		path, games, err := batch.Finalize()
		if err != nil {
			logger.Error("finalize archive", "error", err)
		} else if games > 0 {
			logger.Info("session archived", "path", path, "games", games)
			fmt.Printf("Archived %d game(s) to %s\n", games, path)
		}
	}
	if runErr != nil {
		return fmt.Errorf("terminal: %w", runErr)
	}

	state := model.Engine().State()
	fmt.Print(state.Summary())
	fmt.Println(state.HistoryString())
	if err := model.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "snake: last game was not archived:", err)
	}
	return nil
}

// Command snakeserver serves snake games over websockets at /play.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/brensch/gridsnake/archive"
	"github.com/brensch/gridsnake/config"
	"github.com/brensch/gridsnake/logging"
	"github.com/brensch/gridsnake/rules"
	"github.com/brensch/gridsnake/scores"
	"github.com/brensch/gridsnake/server"
	"github.com/brensch/gridsnake/store"
)

func main() {
	board := config.DefaultBoard
	board.RegisterFlags(flag.CommandLine)
	listen := flag.String("listen", config.GetEnvOrDefault("LISTEN", ":8080"), "HTTP listen address")
	dataDir := flag.String("data", config.GetEnvOrDefault("SNAKE_DATA", "data"), "Directory for Parquet game archives (empty disables)")
	scoresPath := flag.String("scores", config.GetEnvOrDefault("SNAKE_SCORES", filepath.Join("data", "scores.db")), "SQLite high-score database (empty disables)")
	archivedLog := flag.String("archived-log", config.GetEnvOrDefault("ARCHIVED_LOG", filepath.Join("data", "archived_games.log")), "Append-only log of archived game IDs")
	readTimeout := flag.Duration("read-timeout", config.GetEnvDurationOrDefault("READ_TIMEOUT", 5*time.Minute), "Close idle connections after this long")
	logFormat := flag.String("log-format", config.GetEnvOrDefault("LOG_FORMAT", logging.FormatPretty), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.GetEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
	flag.Parse()

	logger, err := logging.FromFlags(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		os.Stderr.WriteString("snakeserver: " + err.Error() + "\n")
		os.Exit(2)
	}
	fatal := func(msg string, err error) {
		logger.Error(msg, "error", err)
		os.Exit(1)
	}

	if err := board.Validate(); err != nil {
		fatal("invalid board", err)
	}

	sink := &archive.Sink{Dir: *dataDir, Player: "remote", Logger: logger}
	var leaderboard server.Leaderboard

	if *dataDir != "" {
		if err := os.MkdirAll(*dataDir, 0o755); err != nil {
			fatal("create data dir", err)
		}
		log, err := store.OpenArchivedLog(*archivedLog)
		if err != nil {
			fatal("open archived log", err)
		}
		defer log.Close()
		sink.Log = log
		logger.Info("archived log loaded", "path", *archivedLog, "games", log.Count())
	}
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
		leaderboard = db
	}

	srv := server.NewServer(server.Options{
		NewEngine: func() (*rules.Engine, error) {
			return board.NewEngine(rules.Options{Logger: logger})
		},
		Sink:        sink,
		Leaderboard: leaderboard,
		Logger:      logger,
		ReadTimeout: *readTimeout,
	})

	httpSrv := &http.Server{
		Addr:              *listen,
		Handler:           srv,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("snake server listening", "addr", *listen, "width", board.Width, "height", board.Height)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("listen", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", "active", srv.Active())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)

	// Hijacked websocket connections outlive Shutdown; close them and give
	// their games a moment to be archived.
	srv.CloseSessions()
	for srv.Active() > 0 && shutdownCtx.Err() == nil {
		time.Sleep(50 * time.Millisecond)
	}
	logger.Info("stopped", "games_archived", srv.Played())
}

// Package archive hands finished games to their long-term homes: a Parquet
// archive of every turn and the SQLite high-score board.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/scores"
	"github.com/brensch/gridsnake/store"
)

// Sink archives finished games. It is safe for concurrent use; the server
// calls it from every connection goroutine.
//
// Rows go to Batch when set (one file per session), otherwise to a fresh
// file under Dir per game. Either may be empty to skip Parquet. Log, when
// set, makes archiving idempotent per game ID.
type Sink struct {
	Batch  *store.BatchWriter
	Dir    string
	Log    *store.ArchivedLog
	Scores *scores.DB
	Player string
	Logger *slog.Logger

	mu sync.Mutex
}

// GameFinished archives one game. Games with no accepted move are dropped.
func (s *Sink) GameFinished(state *game.GameState, rows []store.TurnRow) error {
	if state == nil || len(rows) < 2 {
		return nil
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Log != nil && s.Log.Has(state.ID) {
		logger.Debug("game already archived", "game_id", state.ID)
		return nil
	}

	var errs []error
	switch {
	case s.Batch != nil:
		if err := s.Batch.WriteGame(rows); err != nil {
			errs = append(errs, fmt.Errorf("archive game %s: %w", state.ID, err))
		}
	case s.Dir != "":
		path, err := store.WriteBatchParquetAtomic(s.Dir, rows)
		if err != nil {
			errs = append(errs, fmt.Errorf("archive game %s: %w", state.ID, err))
		} else {
			logger.Debug("wrote game archive", "game_id", state.ID, "path", path)
		}
	}

	if s.Scores != nil {
		if err := s.Scores.Record(context.Background(), scores.EntryFromState(s.Player, state)); err != nil {
			errs = append(errs, fmt.Errorf("record score for %s: %w", state.ID, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if s.Log != nil {
		if err := s.Log.Add(state.ID); err != nil {
			return fmt.Errorf("mark %s archived: %w", state.ID, err)
		}
	}
	logger.Info("game archived",
		"game_id", state.ID,
		"score", state.Score,
		"turns", state.Turn,
		"cause", state.Cause,
		"rows", len(rows),
	)
	return nil
}

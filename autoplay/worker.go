// Package autoplay runs bot games on a worker pool and hands them to an
// archive sink, so the viewer has games to show without a human player.
package autoplay

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
	"github.com/brensch/gridsnake/store"
)

// Sink receives every finished bot game.
type Sink interface {
	GameFinished(state *game.GameState, rows []store.TurnRow) error
}

// NewEngineFunc starts game number seed. The same seed must give the same
// board and food sequence.
type NewEngineFunc func(seed int64) (*rules.Engine, error)

// Config controls a run.
type Config struct {
	Workers int
	// Games to play in total. 0 plays until the context is cancelled.
	Games int
	// MaxSteps caps one game's moves; bots can circle forever otherwise.
	// 0 means 4x the board area.
	MaxSteps int
	// ExploreTurns samples from the policy for the first turns of a game
	// and plays greedily after.
	ExploreTurns int32
	// Seed of the first game; game i uses Seed+i.
	Seed int64
	// Policy defaults to Greedy.
	Policy Policy
}

// Result summarises one bot game.
type Result struct {
	Seed   int64
	GameID string
	Score  int32
	Turns  int32
	Cause  game.Cause
	Rows   int
	// Capped is set when MaxSteps ran out before the game ended.
	Capped bool
}

// Stats are the totals of a Run.
type Stats struct {
	Games      int64
	TotalScore int64
	BestScore  int32
	Capped     int64
	Failed     int64
}

// PlayGame plays e to the end (or the step cap) with rng driving
// exploration, recording every accepted move.
func PlayGame(e *rules.Engine, rng *rand.Rand, cfg Config) (*store.Recorder, Result) {
	policy := cfg.Policy
	if policy == nil {
		policy = Greedy
	}
	s := e.State()
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = int(s.Width*s.Height) * 4
	}

	rec := store.NewRecorder("autoplay", e.Snapshot())
	res := Result{GameID: s.ID}
	for step := 0; ; step++ {
		if e.Over() {
			break
		}
		if step >= maxSteps {
			res.Capped = true
			break
		}
		s = e.State()
		dir := chooseMove(rng, s, policy(s), s.Turn < cfg.ExploreTurns)
		out, err := e.Move(dir)
		rec.Observe(dir, out, e.State())
		if errors.Is(err, rules.ErrBoardFull) {
			break
		}
	}

	s = e.State()
	res.Score = s.Score
	res.Turns = s.Turn
	res.Cause = s.Cause
	res.Rows = len(rec.Rows())
	return rec, res
}

// Run plays games on cfg.Workers goroutines. Each finished game goes to
// sink (if set) and to onResult (if set, called from worker goroutines).
// Games cut off by MaxSteps never ended, so they are counted but not
// archived.
func Run(ctx context.Context, cfg Config, newEngine NewEngineFunc, sink Sink, onResult func(Result), logger *slog.Logger) Stats {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan int64)
	go func() {
		defer close(jobs)
		for i := 0; cfg.Games <= 0 || i < cfg.Games; i++ {
			select {
			case jobs <- cfg.Seed + int64(i):
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		stats Stats
		mu    sync.Mutex
		wg    sync.WaitGroup
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for seed := range jobs {
				e, err := newEngine(seed)
				if err != nil {
					logger.Error("start game", "worker", workerID, "seed", seed, "error", err)
					mu.Lock()
					stats.Failed++
					mu.Unlock()
					continue
				}
				rng := rand.New(rand.NewSource(seed))
				rec, res := PlayGame(e, rng, cfg)
				res.Seed = seed

				if sink != nil && !res.Capped {
					if err := sink.GameFinished(e.Snapshot(), rec.Rows()); err != nil {
						logger.Error("archive game", "worker", workerID, "game_id", res.GameID, "error", err)
						mu.Lock()
						stats.Failed++
						mu.Unlock()
						continue
					}
				}

				mu.Lock()
				stats.Games++
				stats.TotalScore += int64(res.Score)
				stats.BestScore = max(stats.BestScore, res.Score)
				if res.Capped {
					stats.Capped++
				}
				n := stats.Games
				mu.Unlock()

				logger.Debug("game finished",
					"worker", workerID,
					"n", n,
					"game_id", res.GameID,
					"score", res.Score,
					"turns", res.Turns,
					"cause", res.Cause,
					"capped", res.Capped,
				)
				if onResult != nil {
					onResult(res)
				}
			}
		}(w)
	}
	wg.Wait()
	return stats
}

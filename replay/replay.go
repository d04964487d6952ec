// Package replay re-runs archived games through the engine.
//
// The archive stores every food position the game ever saw, so feeding them
// to a ScriptedSpawner reproduces the recorded game exactly. Each replayed
// step is checked against the stored row.
package replay

import (
	"errors"
	"fmt"
	"slices"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
	"github.com/brensch/gridsnake/store"
)

// ErrDiverged means the replayed state does not match the archive.
var ErrDiverged = errors.New("replay diverged from archive")

// Frame is one replayed step. Frame 0 is the initial board.
type Frame struct {
	Seq       int32
	Direction game.Direction
	Outcome   rules.Outcome
	State     *game.GameState
}

// Game replays the rows of a single game, which must be ordered by Seq and
// start with the Seq 0 row.
func Game(rows []store.TurnRow) ([]Frame, error) {
	if len(rows) == 0 {
		return nil, errors.New("no rows to replay")
	}
	first := rows[0]
	if first.Seq != 0 {
		return nil, fmt.Errorf("first row has seq %d, want 0", first.Seq)
	}

	// Food placed after each eat, in order.
	spawner := rules.NewScriptedSpawner()
	for _, r := range rows[1:] {
		if r.Outcome == rules.OutcomeAte.String() && r.HasFood {
			spawner.Push(game.Point{X: r.FoodX, Y: r.FoodY})
		}
	}

	initial := &game.GameState{
		ID:            first.GameID,
		Width:         first.Width,
		Height:        first.Height,
		Body:          first.Body(),
		Score:         first.Score,
		Turn:          first.Turn,
		LastDirection: game.Right,
	}
	// Only accepted moves are archived, so the reversal guard has nothing to
	// reject here.
	e, err := rules.NewEngineFromState(initial, rules.Options{Spawner: spawner, AllowReversal: true})
	if err != nil {
		return nil, fmt.Errorf("restore initial state: %w", err)
	}
	if first.HasFood {
		if err := e.ForceFood(game.Point{X: first.FoodX, Y: first.FoodY}); err != nil {
			return nil, fmt.Errorf("restore initial food: %w", err)
		}
	}

	frames := []Frame{{Seq: 0, State: e.Snapshot()}}
	for _, r := range rows[1:] {
		dir := game.ParseDirection(r.Direction)
		out, err := e.Move(dir)
		// A game that filled the board archived no food after its last eat,
		// so the script is empty at that point.
		if err != nil && !errors.Is(err, rules.ErrBoardFull) && !(errors.Is(err, rules.ErrScriptExhausted) && !r.HasFood) {
			return frames, fmt.Errorf("seq %d: %w", r.Seq, err)
		}
		got := e.Snapshot()
		if err := compare(r, out, got); err != nil {
			return frames, err
		}
		frames = append(frames, Frame{Seq: r.Seq, Direction: dir, Outcome: out, State: got})
	}
	return frames, nil
}

func compare(r store.TurnRow, out rules.Outcome, s *game.GameState) error {
	switch {
	case out.String() != r.Outcome:
		return fmt.Errorf("%w: seq %d outcome %s, archive %s", ErrDiverged, r.Seq, out, r.Outcome)
	case !slices.Equal(s.Body, r.Body()):
		return fmt.Errorf("%w: seq %d body %v, archive %v", ErrDiverged, r.Seq, s.Body, r.Body())
	case s.Score != r.Score:
		return fmt.Errorf("%w: seq %d score %d, archive %d", ErrDiverged, r.Seq, s.Score, r.Score)
	case s.Status.String() != r.Status:
		return fmt.Errorf("%w: seq %d status %s, archive %s", ErrDiverged, r.Seq, s.Status, r.Status)
	}
	return nil
}

// File loads an archive and replays one game from it. An empty gameID picks
// the first game in the file.
func File(path, gameID string) ([]Frame, error) {
	rows, err := store.ReadTurns(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s holds no games", path)
	}
	if gameID == "" {
		gameID = rows[0].GameID
	}
	turns := store.GameTurns(rows, gameID)
	if len(turns) == 0 {
		return nil, fmt.Errorf("game %s not found in %s", gameID, path)
	}
	return Game(turns)
}

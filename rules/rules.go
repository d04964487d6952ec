// Package rules implements the snake movement and collision engine.
//
// An Engine owns one game.GameState and advances it one Move at a time.
// It is not safe for concurrent use; drivers serialise calls themselves.
package rules

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/brensch/gridsnake/game"
)

var (
	// ErrInvalidBoard is returned for boards smaller than 1x1.
	ErrInvalidBoard = errors.New("invalid board dimensions")
	// ErrFoodOnBody is returned when food would sit on an occupied cell.
	ErrFoodOnBody = errors.New("food position overlaps snake body")
)

// Outcome describes what a single Move did.
type Outcome uint8

const (
	// OutcomeIgnored: the direction token was not recognised. No state change.
	OutcomeIgnored Outcome = iota
	// OutcomeRejected: the move would reverse onto the neck. No state change.
	OutcomeRejected
	// OutcomeMoved: the snake advanced without eating.
	OutcomeMoved
	// OutcomeAte: the snake advanced onto food and grew by one.
	OutcomeAte
	// OutcomeGameOver: the move hit a wall or the body, or the game was
	// already over.
	OutcomeGameOver
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeRejected:
		return "rejected"
	case OutcomeMoved:
		return "moved"
	case OutcomeAte:
		return "ate"
	case OutcomeGameOver:
		return "game_over"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Options configures an Engine.
type Options struct {
	// AllowReversal disables the reversal guard.
	AllowReversal bool
	// Spawner places food. Defaults to NewRandomSpawner(1).
	Spawner Spawner
	// Logger receives debug records for accepted and terminal moves.
	Logger *slog.Logger
}

// Engine runs one game.
type Engine struct {
	state   *game.GameState
	opts    Options
	spawner Spawner
	log     *slog.Logger
}

// NewEngine creates a game on a width x height board with the snake at the
// centre cell and the first food placed.
func NewEngine(width, height int32, opts Options) (*Engine, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidBoard, width, height)
	}
	state := game.NewGameState(width, height, game.Point{X: width / 2, Y: height / 2})
	e := newEngine(state, opts)
	if err := e.spawnFood(); err != nil && !errors.Is(err, ErrBoardFull) {
		return nil, fmt.Errorf("place initial food: %w", err)
	}
	return e, nil
}

// NewEngineFromState resumes from an existing state. The body must be
// non-empty, on the board and free of overlaps; food, when present, must be
// on a free cell. The occupancy index is rebuilt from the body.
func NewEngineFromState(state *game.GameState, opts Options) (*Engine, error) {
	if state == nil || len(state.Body) == 0 {
		return nil, errors.New("state has no snake body")
	}
	if state.Width < 1 || state.Height < 1 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidBoard, state.Width, state.Height)
	}
	s := state.Clone()
	s.Occupied = make(game.Occupancy, len(s.Body))
	for _, p := range s.Body {
		if !InBounds(p, s.Width, s.Height) {
			return nil, fmt.Errorf("body cell %v outside %dx%d board", p, s.Width, s.Height)
		}
		if s.Occupied.Has(p) {
			return nil, fmt.Errorf("body overlaps itself at %v", p)
		}
		s.Occupied[p] = struct{}{}
	}
	if s.HasFood {
		if !InBounds(s.Food, s.Width, s.Height) {
			return nil, fmt.Errorf("food %v outside %dx%d board", s.Food, s.Width, s.Height)
		}
		if s.Occupied.Has(s.Food) {
			return nil, fmt.Errorf("%w: %v", ErrFoodOnBody, s.Food)
		}
	}
	if s.LastDirection == game.None {
		s.LastDirection = game.Right
	}
	return newEngine(s, opts), nil
}

func newEngine(state *game.GameState, opts Options) *Engine {
	spawner := opts.Spawner
	if spawner == nil {
		spawner = NewRandomSpawner(1)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		state:   state,
		opts:    opts,
		spawner: spawner,
		log:     logger.With("game_id", state.ID),
	}
}

// State returns the live state. Callers must not mutate it; use Snapshot for
// a copy that outlives further moves.
func (e *Engine) State() *game.GameState {
	return e.state
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() *game.GameState {
	return e.state.Clone()
}

// Over reports whether the game has ended.
func (e *Engine) Over() bool {
	return e.state.Over()
}

// ForceFood places food at p, replacing the current food.
func (e *Engine) ForceFood(p game.Point) error {
	if !InBounds(p, e.state.Width, e.state.Height) {
		return fmt.Errorf("food %v outside %dx%d board", p, e.state.Width, e.state.Height)
	}
	if e.state.Occupied.Has(p) {
		return fmt.Errorf("%w: %v", ErrFoodOnBody, p)
	}
	e.state.Food = p
	e.state.HasFood = true
	return nil
}

// InBounds reports whether p lies on a width x height board.
func InBounds(p game.Point, width, height int32) bool {
	return p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height
}

// HitsBody reports whether p equals any body segment (linear scan).
func HitsBody(p game.Point, body []game.Point) bool {
	for _, bp := range body {
		if bp == p {
			return true
		}
	}
	return false
}

// Move applies one turn.
//
// The only error is a food placement failure after eating; the move itself
// is committed regardless and the returned Outcome is OutcomeAte.
func (e *Engine) Move(dir game.Direction) (Outcome, error) {
	s := e.state
	if s.Over() {
		return OutcomeGameOver, nil
	}
	if dir == game.None || dir.Delta() == (game.Point{}) {
		return OutcomeIgnored, nil
	}
	if !e.opts.AllowReversal && dir == s.LastDirection.Opposite() {
		return OutcomeRejected, nil
	}

	head := s.Head().Add(dir.Delta())

	if !InBounds(head, s.Width, s.Height) {
		e.end(game.CauseWall, dir, head)
		return OutcomeGameOver, nil
	}
	if s.Occupied.Has(head) {
		e.end(game.CauseSelf, dir, head)
		return OutcomeGameOver, nil
	}

	s.Body = append(s.Body, game.Point{})
	copy(s.Body[1:], s.Body)
	s.Body[0] = head
	s.Occupied[head] = struct{}{}

	s.LastDirection = dir
	s.History = append(s.History, dir)
	s.Turn++

	if s.HasFood && head == s.Food {
		s.Score++
		s.HasFood = false
		e.log.Debug("ate food", "turn", s.Turn, "head", head, "score", s.Score, "length", len(s.Body))
		if err := e.spawnFood(); err != nil {
			return OutcomeAte, fmt.Errorf("respawn food: %w", err)
		}
		return OutcomeAte, nil
	}

	tail := s.Body[len(s.Body)-1]
	s.Body = s.Body[:len(s.Body)-1]
	delete(s.Occupied, tail)
	return OutcomeMoved, nil
}

func (e *Engine) end(cause game.Cause, dir game.Direction, at game.Point) {
	e.state.Status = game.GameOver
	e.state.Cause = cause
	e.log.Debug("game over", "cause", cause.String(), "direction", dir.String(), "at", at, "score", e.state.Score, "turn", e.state.Turn)
}

func (e *Engine) spawnFood() error {
	p, err := e.spawner.Spawn(e.state.Width, e.state.Height, e.state.Occupied)
	if err != nil {
		e.state.HasFood = false
		return err
	}
	e.state.Food = p
	e.state.HasFood = true
	return nil
}

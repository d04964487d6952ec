// Package game defines the core state types for a single-player grid snake.
//
// The state is a plain value graph (slices, a map index and counters) so it
// can be cloned cheaply for replay and for handing snapshots to renderers.
// All transition logic lives in package rules.
package game

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Point is a board coordinate.
// (0,0) is the top-left cell; Y grows downward so "up" is Y-1.
type Point struct {
	X int32
	Y int32
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Less orders points lexicographically on (X, Y).
func (p Point) Less(o Point) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	return p.Y < o.Y
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Status is the engine lifecycle: Running until a collision, then GameOver.
type Status uint8

const (
	Running Status = iota
	GameOver
)

func (s Status) String() string {
	if s == GameOver {
		return "game_over"
	}
	return "running"
}

// Cause records why a game ended.
type Cause uint8

const (
	CauseNone Cause = iota
	CauseWall
	CauseSelf
)

func (c Cause) String() string {
	switch c {
	case CauseWall:
		return "wall"
	case CauseSelf:
		return "self"
	default:
		return "none"
	}
}

// Occupancy mirrors the body as a set for O(1) membership tests.
type Occupancy map[Point]struct{}

func (o Occupancy) Has(p Point) bool {
	_, ok := o[p]
	return ok
}

// GameState is the complete state of one game.
// Body[0] is the head, Body[len-1] the tail. Occupied always equals the set
// of Body cells between moves.
type GameState struct {
	ID     string
	Width  int32
	Height int32

	Body     []Point
	Occupied Occupancy

	Food    Point
	HasFood bool

	Score         int32
	Turn          int32
	LastDirection Direction
	History       []Direction

	Status Status
	Cause  Cause
}

// NewGameState returns a state holding a single-segment snake at start.
// Food is not placed; that is the spawner's job.
func NewGameState(width, height int32, start Point) *GameState {
	return &GameState{
		ID:            uuid.NewString(),
		Width:         width,
		Height:        height,
		Body:          []Point{start},
		Occupied:      Occupancy{start: {}},
		LastDirection: Right,
	}
}

// Head returns the head position. The body is never empty.
func (s *GameState) Head() Point {
	return s.Body[0]
}

// Len is the snake length.
func (s *GameState) Len() int {
	return len(s.Body)
}

// Over reports whether the game reached its terminal state.
func (s *GameState) Over() bool {
	return s.Status == GameOver
}

// Clone performs a deep copy of the game state.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}

	out := *s

	out.Body = make([]Point, len(s.Body))
	copy(out.Body, s.Body)

	out.Occupied = make(Occupancy, len(s.Occupied))
	for p := range s.Occupied {
		out.Occupied[p] = struct{}{}
	}

	if len(s.History) > 0 {
		out.History = make([]Direction, len(s.History))
		copy(out.History, s.History)
	} else {
		out.History = nil
	}

	return &out
}

// Summary is the one-screen status block: score, head and food.
func (s *GameState) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d\n", s.Score)
	fmt.Fprintf(&b, "Snake head: (%d, %d)\n", s.Head().X, s.Head().Y)
	if s.HasFood {
		fmt.Fprintf(&b, "Food: (%d, %d)\n", s.Food.X, s.Food.Y)
	} else {
		b.WriteString("Food: none\n")
	}
	return b.String()
}

// HistoryString lists accepted moves as their key letters, e.g. "Moves: w a d".
func (s *GameState) HistoryString() string {
	var b strings.Builder
	b.WriteString("Moves:")
	for _, d := range s.History {
		b.WriteByte(' ')
		b.WriteRune(d.Rune())
	}
	return b.String()
}

// Render draws the board top-to-bottom.
// 'H' head, 'o' body, '*' food, '.' empty.
func (s *GameState) Render() string {
	if s.Width <= 0 || s.Height <= 0 {
		return ""
	}
	grid := make([][]byte, s.Height)
	for y := range grid {
		grid[y] = []byte(strings.Repeat(".", int(s.Width)))
	}
	if s.HasFood && s.inside(s.Food) {
		grid[s.Food.Y][s.Food.X] = '*'
	}
	for i, p := range s.Body {
		if !s.inside(p) {
			continue
		}
		if i == 0 {
			grid[p.Y][p.X] = 'H'
		} else {
			grid[p.Y][p.X] = 'o'
		}
	}
	var b strings.Builder
	for _, row := range grid {
		b.Write(row)
		b.WriteByte('\n')
	}
	return b.String()
}

func (s *GameState) inside(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

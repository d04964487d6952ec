package rules

import (
	"errors"
	"math/rand"

	"github.com/brensch/gridsnake/game"
)

var (
	// ErrBoardFull means every cell is occupied and food cannot be placed.
	ErrBoardFull = errors.New("board full: no free cell for food")
	// ErrScriptExhausted means a ScriptedSpawner ran out of queued points.
	ErrScriptExhausted = errors.New("food script exhausted")
)

// DefaultMaxAttempts bounds the rejection-sampling loop before the spawner
// falls back to enumerating free cells.
const DefaultMaxAttempts = 64

// Spawner places food on a free cell.
type Spawner interface {
	Spawn(width, height int32, occupied game.Occupancy) (game.Point, error)
}

// RandomSpawner picks a uniformly random unoccupied cell.
//
// It first resamples up to MaxAttempts times, which is cheap while the
// board is mostly empty, then draws from the list of free cells so a nearly
// full board still terminates.
type RandomSpawner struct {
	Rng         *rand.Rand
	MaxAttempts int
}

// NewRandomSpawner seeds a spawner. seed == 0 picks a time-independent but
// fixed source so callers opt in to true randomness explicitly.
func NewRandomSpawner(seed int64) *RandomSpawner {
	if seed == 0 {
		seed = 1
	}
	return &RandomSpawner{Rng: rand.New(rand.NewSource(seed)), MaxAttempts: DefaultMaxAttempts}
}

func (s *RandomSpawner) Spawn(width, height int32, occupied game.Occupancy) (game.Point, error) {
	if width <= 0 || height <= 0 {
		return game.Point{}, ErrInvalidBoard
	}
	total := int(width) * int(height)
	if len(occupied) >= total {
		return game.Point{}, ErrBoardFull
	}

	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	for i := 0; i < attempts; i++ {
		p := game.Point{X: int32(s.Rng.Intn(int(width))), Y: int32(s.Rng.Intn(int(height)))}
		if !occupied.Has(p) {
			return p, nil
		}
	}

	free := make([]game.Point, 0, total-len(occupied))
	for y := int32(0); y < height; y++ {
		for x := int32(0); x < width; x++ {
			p := game.Point{X: x, Y: y}
			if !occupied.Has(p) {
				free = append(free, p)
			}
		}
	}
	if len(free) == 0 {
		return game.Point{}, ErrBoardFull
	}
	return free[s.Rng.Intn(len(free))], nil
}

// ScriptedSpawner hands out a fixed sequence of food positions.
// Points that are off the board or under the snake are skipped.
type ScriptedSpawner struct {
	queue []game.Point
}

func NewScriptedSpawner(points ...game.Point) *ScriptedSpawner {
	q := make([]game.Point, len(points))
	copy(q, points)
	return &ScriptedSpawner{queue: q}
}

// Push appends more points to the script.
func (s *ScriptedSpawner) Push(points ...game.Point) {
	s.queue = append(s.queue, points...)
}

// Remaining is the number of queued points.
func (s *ScriptedSpawner) Remaining() int {
	return len(s.queue)
}

func (s *ScriptedSpawner) Spawn(width, height int32, occupied game.Occupancy) (game.Point, error) {
	for len(s.queue) > 0 {
		p := s.queue[0]
		s.queue = s.queue[1:]
		if InBounds(p, width, height) && !occupied.Has(p) {
			return p, nil
		}
	}
	return game.Point{}, ErrScriptExhausted
}

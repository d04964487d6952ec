package autoplay

import (
	"math/rand"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
)

// Directions is the index order used by policies.
var Directions = [4]game.Direction{game.Up, game.Down, game.Left, game.Right}

// Policy returns a probability per entry of Directions. All zeros means
// every move loses.
type Policy func(s *game.GameState) []float32

// Greedy prefers safe moves that close on the food and keep room to turn.
func Greedy(s *game.GameState) []float32 {
	p := make([]float32, len(Directions))
	head := s.Head()
	var total float32
	for i, d := range Directions {
		if d == s.LastDirection.Opposite() {
			continue
		}
		next := head.Add(d.Delta())
		if !safe(s, next) {
			continue
		}
		w := float32(1)
		if s.HasFood && manhattan(next, s.Food) < manhattan(head, s.Food) {
			w += 4
		}
		w += float32(freeNeighbours(s, next))
		p[i] = w
		total += w
	}
	if total == 0 {
		return p
	}
	for i := range p {
		p[i] /= total
	}
	return p
}

func safe(s *game.GameState, p game.Point) bool {
	return rules.InBounds(p, s.Width, s.Height) && !s.Occupied.Has(p)
}

func freeNeighbours(s *game.GameState, p game.Point) int {
	n := 0
	for _, d := range Directions {
		if safe(s, p.Add(d.Delta())) {
			n++
		}
	}
	return n
}

func manhattan(a, b game.Point) int32 {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// chooseMove samples from the policy while exploring and takes the argmax
// otherwise. A trapped snake takes the first move that is not a reversal.
func chooseMove(rng *rand.Rand, s *game.GameState, policy []float32, explore bool) game.Direction {
	var total float32
	for _, v := range policy {
		total += v
	}
	if total == 0 {
		for _, d := range Directions {
			if d != s.LastDirection.Opposite() {
				return d
			}
		}
	}
	if explore {
		return Directions[sampleMove(rng, policy)]
	}
	return Directions[argmax(policy)]
}

func sampleMove(rng *rand.Rand, policy []float32) int {
	r := rng.Float32()
	sum := float32(0)
	for i, p := range policy {
		sum += p
		if r < sum {
			return i
		}
	}
	// Rounding can leave r just above the sum; fall back to the last
	// non-zero entry.
	for i := len(policy) - 1; i >= 0; i-- {
		if policy[i] > 0 {
			return i
		}
	}
	return len(policy) - 1
}

func argmax(policy []float32) int {
	bestIdx := -1
	bestVal := float32(-1)
	for i, p := range policy {
		if p > bestVal {
			bestVal = p
			bestIdx = i
		}
	}
	return bestIdx
}

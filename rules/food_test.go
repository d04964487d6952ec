package rules

import (
	"errors"
	"testing"

	"github.com/brensch/gridsnake/game"
)

func fullExcept(w, h int32, free ...game.Point) game.Occupancy {
	keep := make(map[game.Point]bool, len(free))
	for _, p := range free {
		keep[p] = true
	}
	occ := game.Occupancy{}
	for y := int32(0); y < h; y++ {
		for x := int32(0); x < w; x++ {
			p := game.Point{X: x, Y: y}
			if !keep[p] {
				occ[p] = struct{}{}
			}
		}
	}
	return occ
}

func TestRandomSpawner_NeverOnOccupied(t *testing.T) {
	s := NewRandomSpawner(11)
	occ := game.Occupancy{{X: 0, Y: 0}: {}, {X: 1, Y: 0}: {}, {X: 2, Y: 0}: {}}
	for i := 0; i < 500; i++ {
		p, err := s.Spawn(3, 3, occ)
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		if occ.Has(p) || !InBounds(p, 3, 3) {
			t.Fatalf("spawned on %v", p)
		}
	}
}

func TestRandomSpawner_FindsLastFreeCell(t *testing.T) {
	free := game.Point{X: 7, Y: 3}
	occ := fullExcept(8, 8, free)
	// One attempt forces the enumeration fallback almost always.
	s := NewRandomSpawner(5)
	s.MaxAttempts = 1
	for i := 0; i < 20; i++ {
		p, err := s.Spawn(8, 8, occ)
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		if p != free {
			t.Fatalf("spawned %v want %v", p, free)
		}
	}
}

func TestRandomSpawner_FullBoardErrors(t *testing.T) {
	s := NewRandomSpawner(5)
	if _, err := s.Spawn(4, 4, fullExcept(4, 4)); !errors.Is(err, ErrBoardFull) {
		t.Fatalf("err=%v want ErrBoardFull", err)
	}
}

func TestRandomSpawner_DeterministicForSeed(t *testing.T) {
	a, b := NewRandomSpawner(99), NewRandomSpawner(99)
	for i := 0; i < 50; i++ {
		pa, _ := a.Spawn(10, 10, game.Occupancy{})
		pb, _ := b.Spawn(10, 10, game.Occupancy{})
		if pa != pb {
			t.Fatalf("draw %d differs: %v vs %v", i, pa, pb)
		}
	}
}

func TestScriptedSpawner_SkipsOccupiedAndOffBoard(t *testing.T) {
	s := NewScriptedSpawner(game.Point{X: 1, Y: 1}, game.Point{X: 9, Y: 9}, game.Point{X: 2, Y: 0})
	occ := game.Occupancy{{X: 1, Y: 1}: {}}
	p, err := s.Spawn(3, 3, occ)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if p != (game.Point{X: 2, Y: 0}) {
		t.Fatalf("spawned %v want (2,0)", p)
	}
	if _, err := s.Spawn(3, 3, occ); !errors.Is(err, ErrScriptExhausted) {
		t.Fatalf("err=%v want ErrScriptExhausted", err)
	}
}

func TestEngine_BoardFillsUp(t *testing.T) {
	// 1x3 board, snake at (0,1): food above then below fills the column.
	sp := NewScriptedSpawner(game.Point{X: 0, Y: 0}, game.Point{X: 0, Y: 2})
	e, err := NewEngine(1, 3, Options{Spawner: sp, AllowReversal: true})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if out, err := e.Move(game.Up); out != OutcomeAte || err != nil {
		t.Fatalf("first eat outcome=%s err=%v", out, err)
	}
	// Now body is (0,0),(0,1) and food is at (0,2); the only way there is
	// through the body, so stage the final eat from a fresh state instead.
	st := &game.GameState{Width: 1, Height: 3, Body: []game.Point{{X: 0, Y: 1}, {X: 0, Y: 0}}, LastDirection: game.Down}
	e, err = NewEngineFromState(st, Options{Spawner: NewRandomSpawner(1)})
	if err != nil {
		t.Fatalf("NewEngineFromState: %v", err)
	}
	if err := e.ForceFood(game.Point{X: 0, Y: 2}); err != nil {
		t.Fatalf("ForceFood: %v", err)
	}
	out, err := e.Move(game.Down)
	if out != OutcomeAte || !errors.Is(err, ErrBoardFull) {
		t.Fatalf("outcome=%s err=%v want ate + ErrBoardFull", out, err)
	}
	s := e.State()
	if s.Over() || s.HasFood || s.Len() != 3 || s.Score != 1 {
		t.Fatalf("unexpected state after filling board:\n%s", dumpState(s))
	}
}

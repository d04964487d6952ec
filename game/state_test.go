package game

import (
	"testing"
)

func TestParseDirection(t *testing.T) {
	cases := map[string]Direction{
		"w": Up, "W": Up, "up": Up, " Up ": Up, "k": Up,
		"s": Down, "down": Down, "j": Down,
		"a": Left, "left": Left, "h": Left,
		"d": Right, "RIGHT": Right, "l": Right,
		"": None, "x": None, "q": None, "north": None, "ww": None,
	}
	for tok, want := range cases {
		if got := ParseDirection(tok); got != want {
			t.Fatalf("ParseDirection(%q)=%s want=%s", tok, got, want)
		}
	}
}

func TestIsQuit(t *testing.T) {
	for _, tok := range []string{"q", "Q", "quit", "esc", "ctrl+c"} {
		if !IsQuit(tok) {
			t.Fatalf("IsQuit(%q)=false", tok)
		}
	}
	for _, tok := range []string{"w", "", "qq"} {
		if IsQuit(tok) {
			t.Fatalf("IsQuit(%q)=true", tok)
		}
	}
}

func TestDirectionOppositeAndDelta(t *testing.T) {
	for _, d := range []Direction{Up, Down, Left, Right} {
		if d.Opposite().Opposite() != d {
			t.Fatalf("%s opposite is not an involution", d)
		}
		sum := d.Delta().Add(d.Opposite().Delta())
		if sum != (Point{}) {
			t.Fatalf("%s delta + opposite delta = %v", d, sum)
		}
	}
	if None.Opposite() != None || None.Delta() != (Point{}) {
		t.Fatalf("None should have no heading")
	}
	if Up.Delta() != (Point{X: 0, Y: -1}) {
		t.Fatalf("up delta=%v want (0,-1)", Up.Delta())
	}
}

func TestPointLess(t *testing.T) {
	a, b, c := Point{X: 1, Y: 5}, Point{X: 2, Y: 0}, Point{X: 1, Y: 6}
	if !a.Less(b) || b.Less(a) {
		t.Fatalf("x should dominate ordering")
	}
	if !a.Less(c) || c.Less(a) {
		t.Fatalf("y should break ties")
	}
	if a.Less(a) {
		t.Fatalf("Less must be strict")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := NewGameState(5, 5, Point{X: 2, Y: 2})
	s.History = []Direction{Up}
	c := s.Clone()

	c.Body[0] = Point{X: 0, Y: 0}
	c.Occupied[Point{X: 4, Y: 4}] = struct{}{}
	c.History[0] = Down

	if s.Body[0] != (Point{X: 2, Y: 2}) {
		t.Fatalf("clone shares body")
	}
	if s.Occupied.Has(Point{X: 4, Y: 4}) {
		t.Fatalf("clone shares occupancy")
	}
	if s.History[0] != Up {
		t.Fatalf("clone shares history")
	}
	if c.ID != s.ID {
		t.Fatalf("clone should keep id")
	}
}

func TestRenderAndSummary(t *testing.T) {
	s := NewGameState(4, 3, Point{X: 1, Y: 1})
	s.Body = append(s.Body, Point{X: 0, Y: 1})
	s.Occupied[Point{X: 0, Y: 1}] = struct{}{}
	s.Food = Point{X: 3, Y: 0}
	s.HasFood = true
	s.Score = 2

	want := "...*\n" +
		"oH..\n" +
		"....\n"
	if got := s.Render(); got != want {
		t.Fatalf("render:\n%s\nwant:\n%s", got, want)
	}

	wantSummary := "Score: 2\nSnake head: (1, 1)\nFood: (3, 0)\n"
	if got := s.Summary(); got != wantSummary {
		t.Fatalf("summary=%q want=%q", got, wantSummary)
	}
}

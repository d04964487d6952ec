package server

import (
	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
)

// Coord is a board cell on the wire.
type Coord struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Frame is sent to the client once on connect and once per message it sends.
type Frame struct {
	Type      string  `json:"type"`
	GameID    string  `json:"game_id"`
	Turn      int32   `json:"turn"`
	Width     int32   `json:"width"`
	Height    int32   `json:"height"`
	Body      []Coord `json:"body"`
	Food      *Coord  `json:"food,omitempty"`
	Score     int32   `json:"score"`
	Status    string  `json:"status"`
	Cause     string  `json:"cause"`
	Direction string  `json:"direction,omitempty"`
	Outcome   string  `json:"outcome,omitempty"`
	Message   string  `json:"message,omitempty"`
	// Moves is the move history, sent once the game is over.
	Moves string `json:"moves,omitempty"`
}

const (
	FrameTypeStart = "start"
	FrameTypeMove  = "move"
)

func newFrame(typ string, s *game.GameState) Frame {
	f := Frame{
		Type:   typ,
		GameID: s.ID,
		Turn:   s.Turn,
		Width:  s.Width,
		Height: s.Height,
		Body:   make([]Coord, len(s.Body)),
		Score:  s.Score,
		Status: s.Status.String(),
		Cause:  s.Cause.String(),
	}
	for i, p := range s.Body {
		f.Body[i] = Coord{X: p.X, Y: p.Y}
	}
	if s.HasFood {
		f.Food = &Coord{X: s.Food.X, Y: s.Food.Y}
	}
	if s.Over() {
		f.Moves = s.HistoryString()
	}
	return f
}

func moveFrame(s *game.GameState, dir game.Direction, out rules.Outcome, err error) Frame {
	f := newFrame(FrameTypeMove, s)
	f.Direction = dir.String()
	f.Outcome = out.String()
	f.Message = rules.Describe(out, err, s)
	return f
}

// State rebuilds a renderable game state from the frame. The history is not
// carried on the wire and comes back empty.
func (f Frame) State() *game.GameState {
	s := &game.GameState{
		ID:       f.GameID,
		Width:    f.Width,
		Height:   f.Height,
		Body:     make([]game.Point, len(f.Body)),
		Occupied: make(game.Occupancy, len(f.Body)),
		Score:    f.Score,
		Turn:     f.Turn,
	}
	for i, c := range f.Body {
		p := game.Point{X: c.X, Y: c.Y}
		s.Body[i] = p
		s.Occupied[p] = struct{}{}
	}
	if f.Food != nil {
		s.Food = game.Point{X: f.Food.X, Y: f.Food.Y}
		s.HasFood = true
	}
	if f.Status == game.GameOver.String() {
		s.Status = game.GameOver
	}
	switch f.Cause {
	case game.CauseWall.String():
		s.Cause = game.CauseWall
	case game.CauseSelf.String():
		s.Cause = game.CauseSelf
	}
	return s
}

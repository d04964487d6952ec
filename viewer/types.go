package viewer

import "github.com/brensch/gridsnake/store"

// GameSummary is one archived game in the games list, taken from its final
// row.
type GameSummary struct {
	GameID     string `json:"game_id"`
	StartedNs  int64  `json:"started_ns"`
	Turns      int32  `json:"turns"`
	Width      int32  `json:"width"`
	Height     int32  `json:"height"`
	Score      int32  `json:"score"`
	Length     int32  `json:"length"`
	Status     string `json:"status"`
	Cause      string `json:"cause"`
	Source     string `json:"source"`
	SourceFile string `json:"file,omitempty"`
	Rows       int64  `json:"rows"`
}

// GamesResponse is the paginated response for /api/games.
type GamesResponse struct {
	Total int64         `json:"total"`
	Games []GameSummary `json:"games"`
}

// StatsResponse aggregates over every archived game.
type StatsResponse struct {
	Games      int64            `json:"games"`
	TotalTurns int64            `json:"total_turns"`
	BestScore  int32            `json:"best_score"`
	AvgScore   float64          `json:"avg_score"`
	ByCause    map[string]int64 `json:"by_cause"`
}

// Point is a board cell.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Turn is one archived row as served by /api/games/{id}/turns.
type Turn struct {
	Seq       int32   `json:"seq"`
	Turn      int32   `json:"turn"`
	Direction string  `json:"direction"`
	Outcome   string  `json:"outcome"`
	Body      []Point `json:"body"`
	Food      *Point  `json:"food,omitempty"`
	Score     int32   `json:"score"`
	Status    string  `json:"status"`
	Cause     string  `json:"cause"`
}

func turnFromRow(r store.TurnRow) Turn {
	t := Turn{
		Seq:       r.Seq,
		Turn:      r.Turn,
		Direction: r.Direction,
		Outcome:   r.Outcome,
		Body:      zipPoints(r.BodyX, r.BodyY),
		Score:     r.Score,
		Status:    r.Status,
		Cause:     r.Cause,
	}
	if r.HasFood {
		t.Food = &Point{X: r.FoodX, Y: r.FoodY}
	}
	return t
}

// Package store archives finished games as Parquet, one row per engine step.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// SchemaVersion is written as Parquet key/value metadata under "schema".
const SchemaVersion = "snake_turn_v1"

// TurnRow is the state after one engine step.
//
// Seq 0 is the initial board (Direction "none", Outcome "start"). Every
// accepted move adds a row; a game that ends adds one final row carrying the
// fatal direction, with Turn unchanged since the move was not applied.
type TurnRow struct {
	GameID    string `parquet:"game_id,dict"`
	Seq       int32  `parquet:"seq"`
	Turn      int32  `parquet:"turn"`
	Width     int32  `parquet:"width"`
	Height    int32  `parquet:"height"`
	Direction string `parquet:"direction,dict"`
	Outcome   string `parquet:"outcome,dict"`

	BodyX []int32 `parquet:"body_x"`
	BodyY []int32 `parquet:"body_y"`

	FoodX   int32 `parquet:"food_x"`
	FoodY   int32 `parquet:"food_y"`
	HasFood bool  `parquet:"has_food"`

	Score  int32  `parquet:"score"`
	Status string `parquet:"status,dict"`
	Cause  string `parquet:"cause,dict"`

	// Source names the driver that played the game: tui, server, replay.
	Source    string `parquet:"source,dict"`
	StartedNs int64  `parquet:"started_ns"`
}

// Recorder accumulates rows for one game as it is played.
type Recorder struct {
	source  string
	started time.Time
	rows    []TurnRow
}

// NewRecorder starts a recording with the initial state as Seq 0.
func NewRecorder(source string, initial *game.GameState) *Recorder {
	r := &Recorder{source: source, started: time.Now()}
	r.rows = append(r.rows, r.row(initial, game.None, "start"))
	return r
}

// Observe records the state after a Move. Ignored and rejected moves change
// nothing and are skipped.
func (r *Recorder) Observe(dir game.Direction, out rules.Outcome, after *game.GameState) {
	switch out {
	case rules.OutcomeIgnored, rules.OutcomeRejected:
		return
	case rules.OutcomeGameOver:
		if last := r.rows[len(r.rows)-1]; last.Status == game.GameOver.String() {
			return
		}
	}
	r.rows = append(r.rows, r.row(after, dir, out.String()))
}

// Rows returns the recorded rows.
func (r *Recorder) Rows() []TurnRow {
	return r.rows
}

// Finished reports whether the terminal row has been recorded.
func (r *Recorder) Finished() bool {
	return len(r.rows) > 0 && r.rows[len(r.rows)-1].Status == game.GameOver.String()
}

func (r *Recorder) row(s *game.GameState, dir game.Direction, outcome string) TurnRow {
	bx := make([]int32, len(s.Body))
	by := make([]int32, len(s.Body))
	for i, p := range s.Body {
		bx[i], by[i] = p.X, p.Y
	}
	return TurnRow{
		GameID:    s.ID,
		Seq:       int32(len(r.rows)),
		Turn:      s.Turn,
		Width:     s.Width,
		Height:    s.Height,
		Direction: dir.String(),
		Outcome:   outcome,
		BodyX:     bx,
		BodyY:     by,
		FoodX:     s.Food.X,
		FoodY:     s.Food.Y,
		HasFood:   s.HasFood,
		Score:     s.Score,
		Status:    s.Status.String(),
		Cause:     s.Cause.String(),
		Source:    r.source,
		StartedNs: r.started.UnixNano(),
	}
}

// Body rebuilds the snake body stored in a row.
func (t TurnRow) Body() []game.Point {
	n := len(t.BodyX)
	if len(t.BodyY) < n {
		n = len(t.BodyY)
	}
	out := make([]game.Point, n)
	for i := 0; i < n; i++ {
		out[i] = game.Point{X: t.BodyX[i], Y: t.BodyY[i]}
	}
	return out
}

func writeOptions() []parquet.WriterOption {
	return []parquet.WriterOption{
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", SchemaVersion),
	}
}

// WriteGameParquet writes rows to outPath via a temp file and rename.
func WriteGameParquet(outPath string, rows []TurnRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writeOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// WriteBatchParquetAtomic writes into outDir/tmp and then moves the file into
// outDir, so readers globbing outDir never see a partial file.
func WriteBatchParquetAtomic(outDir string, rows []TurnRow) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows, writeOptions()...); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}
	return finalPath, nil
}

// ReadTurns loads every row in a Parquet archive.
func ReadTurns(path string) ([]TurnRow, error) {
	rows, err := parquet.ReadFile[TurnRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}

// GameTurns returns the rows for one game ordered by Seq.
func GameTurns(rows []TurnRow, gameID string) []TurnRow {
	var out []TurnRow
	for _, r := range rows {
		if r.GameID == gameID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
)

// playShortGame walks up and left on a 3x3 board, then off the top edge.
// The none and right inputs are an unknown token and a reversal.
func playShortGame(t *testing.T) *Recorder {
	t.Helper()
	e, err := rules.NewEngine(3, 3, rules.Options{Spawner: rules.NewScriptedSpawner(game.Point{X: 0, Y: 2})})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	rec := NewRecorder("test", e.Snapshot())
	for _, d := range []game.Direction{game.Up, game.Left, game.None, game.Right, game.Up} {
		out, _ := e.Move(d)
		rec.Observe(d, out, e.State())
	}
	return rec
}

func TestRecorder_RowsFollowAcceptedMoves(t *testing.T) {
	rec := playShortGame(t)
	rows := rec.Rows()

	if len(rows) != 4 {
		t.Fatalf("rows=%d want 4 (start, up, left, fatal up)", len(rows))
	}
	for i, r := range rows {
		t.Logf("seq=%d turn=%d dir=%s out=%s body=%v status=%s", r.Seq, r.Turn, r.Direction, r.Outcome, r.Body(), r.Status)
		if int(r.Seq) != i {
			t.Fatalf("row %d has seq %d", i, r.Seq)
		}
	}
	if rows[0].Outcome != "start" || rows[0].Direction != "none" {
		t.Fatalf("first row=%+v", rows[0])
	}
	if !rec.Finished() {
		t.Fatalf("expected terminal row")
	}
	last := rows[len(rows)-1]
	if last.Status != "game_over" || last.Cause != "wall" {
		t.Fatalf("last row status=%s cause=%s", last.Status, last.Cause)
	}
	for _, r := range rows {
		if r.Outcome == "ignored" || r.Outcome == "rejected" {
			t.Fatalf("no-op move recorded: %+v", r)
		}
	}
}

func TestRecorder_SkipsRepeatedGameOver(t *testing.T) {
	e, err := rules.NewEngine(1, 1, rules.Options{})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	rec := NewRecorder("test", e.Snapshot())
	for i := 0; i < 3; i++ {
		out, _ := e.Move(game.Up)
		rec.Observe(game.Up, out, e.State())
	}
	if len(rec.Rows()) != 2 {
		t.Fatalf("rows=%d want 2 (start + terminal)", len(rec.Rows()))
	}
}

func TestWriteGameParquet_ReadBack(t *testing.T) {
	rec := playShortGame(t)
	path := filepath.Join(t.TempDir(), "games", "g.parquet")
	if err := WriteGameParquet(path, rec.Rows()); err != nil {
		t.Fatalf("WriteGameParquet: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}

	got, err := ReadTurns(path)
	if err != nil {
		t.Fatalf("ReadTurns: %v", err)
	}
	turns := GameTurns(got, rec.Rows()[0].GameID)
	if len(turns) != len(rec.Rows()) {
		t.Fatalf("read %d rows want %d", len(turns), len(rec.Rows()))
	}
	last := turns[len(turns)-1]
	if last.Status != "game_over" {
		t.Fatalf("last status=%s", last.Status)
	}
}

func TestWriteBatchParquetAtomic(t *testing.T) {
	dir := t.TempDir()
	rec := playShortGame(t)
	path, err := WriteBatchParquetAtomic(dir, rec.Rows())
	if err != nil {
		t.Fatalf("WriteBatchParquetAtomic: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("batch written to %s, want under %s", path, dir)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "tmp"))
	if err != nil {
		t.Fatalf("read tmp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("tmp dir not empty: %d entries", len(entries))
	}
}

func TestBatchWriter_MultipleGames(t *testing.T) {
	dir := t.TempDir()
	bw, err := NewBatchWriter(dir)
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	a, b := playShortGame(t), playShortGame(t)
	if err := bw.WriteGame(a.Rows()); err != nil {
		t.Fatalf("WriteGame: %v", err)
	}
	if err := bw.WriteGame(b.Rows()); err != nil {
		t.Fatalf("WriteGame: %v", err)
	}
	path, games, err := bw.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if games != 2 {
		t.Fatalf("games=%d want 2", games)
	}
	rows, err := ReadTurns(path)
	if err != nil {
		t.Fatalf("ReadTurns: %v", err)
	}
	if len(rows) != len(a.Rows())+len(b.Rows()) {
		t.Fatalf("rows=%d want %d", len(rows), len(a.Rows())+len(b.Rows()))
	}
	if err := bw.WriteGame(a.Rows()); err == nil {
		t.Fatalf("write after finalize should fail")
	}
}

func TestBatchWriter_EmptyFinalizeRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	bw, err := NewBatchWriter(dir)
	if err != nil {
		t.Fatalf("NewBatchWriter: %v", err)
	}
	path, games, err := bw.Finalize()
	if err != nil || path != "" || games != 0 {
		t.Fatalf("Finalize=%q,%d,%v", path, games, err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "tmp"))
	if len(entries) != 0 {
		t.Fatalf("temp file not removed")
	}
}

func TestArchivedLog_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "archived.log")
	l, err := OpenArchivedLog(path)
	if err != nil {
		t.Fatalf("OpenArchivedLog: %v", err)
	}
	if err := l.Add("g1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := l.Add("g1"); err != nil {
		t.Fatalf("Add duplicate: %v", err)
	}
	if err := l.Add(""); err == nil {
		t.Fatalf("empty id accepted")
	}
	_ = l.Close()

	l, err = OpenArchivedLog(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l.Close()
	if !l.Has("g1") || l.Count() != 1 {
		t.Fatalf("reloaded log has=%v count=%d", l.Has("g1"), l.Count())
	}
}

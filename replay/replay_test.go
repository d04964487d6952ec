package replay

import (
	"errors"
	"math/rand"
	"path/filepath"
	"slices"
	"testing"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
	"github.com/brensch/gridsnake/store"
)

func recordRandomGame(t *testing.T, seed int64) (*rules.Engine, *store.Recorder) {
	t.Helper()
	e, err := rules.NewEngine(6, 6, rules.Options{Spawner: rules.NewRandomSpawner(seed)})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	rec := store.NewRecorder("test", e.Snapshot())
	rng := rand.New(rand.NewSource(seed))
	dirs := []game.Direction{game.Up, game.Down, game.Left, game.Right}
	for i := 0; i < 300 && !e.Over(); i++ {
		// Bias towards the food so games actually grow.
		d := dirs[rng.Intn(len(dirs))]
		if s := e.State(); s.HasFood && rng.Intn(3) > 0 {
			switch {
			case s.Food.X < s.Head().X:
				d = game.Left
			case s.Food.X > s.Head().X:
				d = game.Right
			case s.Food.Y < s.Head().Y:
				d = game.Up
			default:
				d = game.Down
			}
		}
		out, _ := e.Move(d)
		rec.Observe(d, out, e.State())
	}
	return e, rec
}

func TestGame_ReproducesRecordedGames(t *testing.T) {
	for seed := int64(1); seed <= 15; seed++ {
		e, rec := recordRandomGame(t, seed)
		frames, err := Game(rec.Rows())
		if err != nil {
			t.Fatalf("seed=%d replay: %v", seed, err)
		}
		if len(frames) != len(rec.Rows()) {
			t.Fatalf("seed=%d frames=%d rows=%d", seed, len(frames), len(rec.Rows()))
		}
		final := frames[len(frames)-1].State
		want := e.State()
		if !slices.Equal(final.Body, want.Body) || final.Score != want.Score || final.Status != want.Status || final.Cause != want.Cause {
			t.Fatalf("seed=%d replay ended at\n%s score=%d, game ended at\n%s score=%d",
				seed, final.Render(), final.Score, want.Render(), want.Score)
		}
		if !slices.Equal(final.History, want.History) {
			t.Fatalf("seed=%d history %s vs %s", seed, final.HistoryString(), want.HistoryString())
		}
	}
}

func TestGame_DetectsTamperedArchive(t *testing.T) {
	_, rec := recordRandomGame(t, 3)
	rows := slices.Clone(rec.Rows())
	if len(rows) < 3 {
		t.Fatalf("game too short to tamper: %d rows", len(rows))
	}
	rows[2].Score += 5
	if _, err := Game(rows); !errors.Is(err, ErrDiverged) {
		t.Fatalf("err=%v want ErrDiverged", err)
	}
}

func TestGame_RejectsBadInput(t *testing.T) {
	if _, err := Game(nil); err == nil {
		t.Fatalf("expected error for no rows")
	}
	_, rec := recordRandomGame(t, 4)
	if _, err := Game(rec.Rows()[1:]); err == nil {
		t.Fatalf("expected error when seq 0 is missing")
	}
}

func TestGame_RejectsStartOffTheBoard(t *testing.T) {
	_, rec := recordRandomGame(t, 7)
	rows := slices.Clone(rec.Rows())
	first := rows[0]
	first.BodyX = []int32{first.Width + 3}
	first.BodyY = []int32{0}
	rows[0] = first
	if _, err := Game(rows); err == nil {
		t.Fatalf("replayed a game whose snake starts off the board")
	}
}

func TestFile_PicksGameByID(t *testing.T) {
	_, a := recordRandomGame(t, 5)
	_, b := recordRandomGame(t, 6)
	path := filepath.Join(t.TempDir(), "two.parquet")
	rows := append(slices.Clone(a.Rows()), b.Rows()...)
	if err := store.WriteGameParquet(path, rows); err != nil {
		t.Fatalf("WriteGameParquet: %v", err)
	}

	frames, err := File(path, b.Rows()[0].GameID)
	if err != nil {
		t.Fatalf("File: %v", err)
	}
	if frames[0].State.ID != b.Rows()[0].GameID {
		t.Fatalf("replayed game %s", frames[0].State.ID)
	}

	frames, err = File(path, "")
	if err != nil {
		t.Fatalf("File default: %v", err)
	}
	if frames[0].State.ID != a.Rows()[0].GameID {
		t.Fatalf("default game %s want first", frames[0].State.ID)
	}

	if _, err := File(path, "missing"); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestGame_ReplaysFullBoardWin(t *testing.T) {
	// 1x2 board: snake at (0,1), food above it fills the board.
	e, err := rules.NewEngine(1, 2, rules.Options{Spawner: rules.NewScriptedSpawner(game.Point{X: 0, Y: 0})})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	rec := store.NewRecorder("test", e.Snapshot())
	out, _ := e.Move(game.Up)
	rec.Observe(game.Up, out, e.State())
	t.Logf("final board:\n%s", e.State().Render())
	if e.State().HasFood || e.State().Len() != 2 {
		t.Fatalf("unexpected setup: len=%d hasFood=%v", e.State().Len(), e.State().HasFood)
	}
	frames, err := Game(rec.Rows())
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got := frames[len(frames)-1].State.Score; got != 1 {
		t.Fatalf("score=%d want 1", got)
	}
}

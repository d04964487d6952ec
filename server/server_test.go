package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
	"github.com/brensch/gridsnake/scores"
	"github.com/brensch/gridsnake/store"
	"github.com/gorilla/websocket"
)

type finishedGame struct {
	state *game.GameState
	rows  []store.TurnRow
}

type chanSink chan finishedGame

func (c chanSink) GameFinished(state *game.GameState, rows []store.TurnRow) error {
	c <- finishedGame{state: state, rows: rows}
	return nil
}

func (c chanSink) wait(t *testing.T) finishedGame {
	t.Helper()
	select {
	case g := <-c:
		return g
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for archived game")
	}
	return finishedGame{}
}

// 3x3 board, snake at (1,1), food at (0,0) then (2,2).
func smallBoard() (*rules.Engine, error) {
	return rules.NewEngine(3, 3, rules.Options{Spawner: rules.NewScriptedSpawner(game.Point{X: 0, Y: 0}, game.Point{X: 2, Y: 2})})
}

func startServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	if opts.NewEngine == nil {
		opts.NewEngine = smallBoard
	}
	srv := NewServer(opts)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/play"
}

func dial(t *testing.T, url string) (*Client, Frame) {
	t.Helper()
	c, first, err := Dial(context.Background(), url, 5*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, first
}

func play(t *testing.T, c *Client, token string) Frame {
	t.Helper()
	f, err := c.Play(token)
	if err != nil {
		t.Fatalf("Play(%q): %v", token, err)
	}
	t.Logf("%s -> %s %s\n%s", token, f.Outcome, f.Message, f.State().Render())
	return f
}

func TestPlay_FullGameOverWebsocket(t *testing.T) {
	sink := make(chanSink, 4)
	_, url := startServer(t, Options{Sink: sink})
	c, first := dial(t, url)

	if first.Type != FrameTypeStart || first.Status != "running" || len(first.Body) != 1 || first.Body[0] != (Coord{X: 1, Y: 1}) {
		t.Fatalf("opening frame=%+v", first)
	}
	if first.Food == nil || *first.Food != (Coord{X: 0, Y: 0}) {
		t.Fatalf("opening food=%v", first.Food)
	}

	if f := play(t, c, "x"); f.Outcome != "ignored" || !strings.Contains(f.Message, "Invalid direction") {
		t.Fatalf("unknown token frame=%+v", f)
	}
	if f := play(t, c, "w"); f.Outcome != "moved" || f.Body[0] != (Coord{X: 1, Y: 0}) {
		t.Fatalf("up frame=%+v", f)
	}
	if f := play(t, c, "down"); f.Outcome != "rejected" || f.Turn != 1 {
		t.Fatalf("reversal frame=%+v", f)
	}
	if f := play(t, c, "a"); f.Outcome != "ate" || f.Score != 1 || len(f.Body) != 2 || *f.Food != (Coord{X: 2, Y: 2}) {
		t.Fatalf("eat frame=%+v", f)
	}
	f := play(t, c, "w")
	if f.Outcome != "game_over" || f.Status != "game_over" || f.Cause != "wall" || f.Moves != "Moves: w a" {
		t.Fatalf("wall frame=%+v", f)
	}

	g := sink.wait(t)
	if g.state.ID != first.GameID || len(g.rows) != 4 {
		t.Fatalf("archived %s with %d rows", g.state.ID, len(g.rows))
	}

	next := play(t, c, "new")
	if next.Type != FrameTypeStart || next.GameID == first.GameID || next.Status != "running" {
		t.Fatalf("new game frame=%+v", next)
	}

	c.Close()
	if g := sink.wait(t); g.state.ID != next.GameID {
		t.Fatalf("disconnect archived %s want %s", g.state.ID, next.GameID)
	}
}

func TestPlay_QuitArchivesAndCloses(t *testing.T) {
	sink := make(chanSink, 1)
	_, url := startServer(t, Options{Sink: sink})
	c, first := dial(t, url)
	play(t, c, "d")

	if err := c.Send("quit"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	_, err := c.Next()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.CloseNormalClosure {
		t.Fatalf("err=%v want normal close", err)
	}
	g := sink.wait(t)
	if g.state.ID != first.GameID || g.state.Over() {
		t.Fatalf("quit archived %s over=%v", g.state.ID, g.state.Over())
	}
}

func TestPlay_OversizedFrameClosesAndArchives(t *testing.T) {
	sink := make(chanSink, 1)
	_, url := startServer(t, Options{Sink: sink})
	c, first := dial(t, url)
	play(t, c, "w")

	if err := c.Send(strings.Repeat("w", maxTokenBytes+1)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	_, err := c.Next()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.CloseMessageTooBig {
		t.Fatalf("err=%v want message too big", err)
	}
	if g := sink.wait(t); g.state.ID != first.GameID || len(g.rows) != 2 {
		t.Fatalf("archived %s with %d rows", g.state.ID, len(g.rows))
	}
}

func TestCloseSessions_ArchivesOpenGames(t *testing.T) {
	sink := make(chanSink, 2)
	srv, url := startServer(t, Options{Sink: sink})
	c1, _ := dial(t, url)
	c2, _ := dial(t, url)
	play(t, c1, "w")
	play(t, c2, "d")
	if srv.Active() != 2 {
		t.Fatalf("active=%d want 2", srv.Active())
	}

	srv.CloseSessions()
	for _, c := range []*Client{c1, c2} {
		_, err := c.Next()
		var ce *websocket.CloseError
		if !errors.As(err, &ce) || ce.Code != websocket.CloseGoingAway {
			t.Fatalf("err=%v want going away", err)
		}
	}
	sink.wait(t)
	sink.wait(t)
}

type fakeBoard []scores.Entry

func (b fakeBoard) Top(ctx context.Context, limit int) ([]scores.Entry, error) {
	return b, nil
}

func TestIndexAndScores(t *testing.T) {
	srv := NewServer(Options{NewEngine: smallBoard, Name: "test", Leaderboard: fakeBoard{{GameID: "g1", Player: "p", Score: 9}}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	var idx indexResponse
	if err := json.NewDecoder(rec.Body).Decode(&idx); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if idx.Name != "test" || idx.Play != "/play" {
		t.Fatalf("index=%+v", idx)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scores", nil))
	var top []scores.Entry
	if err := json.NewDecoder(rec.Body).Decode(&top); err != nil {
		t.Fatalf("decode scores: %v", err)
	}
	if len(top) != 1 || top[0].GameID != "g1" || top[0].Score != 9 {
		t.Fatalf("scores=%+v", top)
	}

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path code=%d", rec.Code)
	}

	bare := NewServer(Options{NewEngine: smallBoard})
	rec = httptest.NewRecorder()
	bare.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scores", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("scores without leaderboard code=%d", rec.Code)
	}
}

func TestFrameState_RendersLikeEngine(t *testing.T) {
	e, err := smallBoard()
	if err != nil {
		t.Fatalf("smallBoard: %v", err)
	}
	e.Move(game.Up)
	e.Move(game.Left)
	f := newFrame(FrameTypeMove, e.State())
	if got, want := f.State().Render(), e.State().Render(); got != want {
		t.Fatalf("render mismatch:\n%s\nvs\n%s", got, want)
	}
	if f.State().Summary() != e.State().Summary() {
		t.Fatalf("summary mismatch")
	}
}

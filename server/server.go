// Package server plays snake over a websocket. Each connection owns one
// engine; the client sends direction tokens as text messages and receives a
// JSON Frame after each one.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
	"github.com/brensch/gridsnake/scores"
	"github.com/brensch/gridsnake/store"
	"github.com/gorilla/websocket"
)

// maxTokenBytes caps one client frame. Tokens are a few bytes; anything
// bigger closes the connection with 1009.
const maxTokenBytes = 512

// Sink receives every game when it ends or its connection drops.
type Sink interface {
	GameFinished(state *game.GameState, rows []store.TurnRow) error
}

// Leaderboard serves the /scores route.
type Leaderboard interface {
	Top(ctx context.Context, limit int) ([]scores.Entry, error)
}

// Options configures a Server. NewEngine is required.
type Options struct {
	NewEngine   func() (*rules.Engine, error)
	Sink        Sink
	Leaderboard Leaderboard
	Logger      *slog.Logger
	// ReadTimeout closes a connection that sends nothing for this long.
	// Zero waits forever.
	ReadTimeout time.Duration
	// Name is reported by the index route.
	Name string
}

// Server is an http.Handler serving "/", "/scores" and "/play".
type Server struct {
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	active atomic.Int64
	played atomic.Int64
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Name == "" {
		opts.Name = "gridsnake"
	}
	s := &Server{
		opts: opts,
		log:  opts.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
	s.mux = http.NewServeMux()
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/scores", s.handleScores)
	s.mux.HandleFunc("/play", s.handlePlay)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Active is the number of open play connections.
func (s *Server) Active() int64 { return s.active.Load() }

// Played is the number of games handed to the sink.
func (s *Server) Played() int64 { return s.played.Load() }

type indexResponse struct {
	Name   string `json:"name"`
	Active int64  `json:"active"`
	Played int64  `json:"played"`
	Play   string `json:"play"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, indexResponse{
		Name:   s.opts.Name,
		Active: s.Active(),
		Played: s.Played(),
		Play:   "/play",
	})
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	if s.opts.Leaderboard == nil {
		http.Error(w, "no leaderboard configured", http.StatusNotFound)
		return
	}
	top, err := s.opts.Leaderboard.Top(r.Context(), 10)
	if err != nil {
		s.log.Error("top scores", "error", err)
		http.Error(w, "failed to load scores", http.StatusInternalServerError)
		return
	}
	writeJSON(w, top)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// session is one game on one connection.
type session struct {
	engine   *rules.Engine
	recorder *store.Recorder
	finished bool
}

func (s *Server) newSession() (*session, error) {
	e, err := s.opts.NewEngine()
	if err != nil {
		return nil, err
	}
	return &session{engine: e, recorder: store.NewRecorder("server", e.Snapshot())}, nil
}

// finish hands the game to the sink once.
func (s *Server) finish(sess *session) {
	if sess.finished {
		return
	}
	sess.finished = true
	if s.opts.Sink == nil {
		return
	}
	state := sess.engine.Snapshot()
	if err := s.opts.Sink.GameFinished(state, sess.recorder.Rows()); err != nil {
		s.log.Error("archive game", "game_id", state.ID, "error", err)
		return
	}
	s.played.Add(1)
}

func (s *Server) track(conn *websocket.Conn) func() {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.active.Add(1)
	return func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.active.Add(-1)
	}
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()
	defer s.track(conn)()
	conn.SetReadLimit(maxTokenBytes)

	sess, err := s.newSession()
	if err != nil {
		s.log.Error("start game", "error", err)
		s.closeWith(conn, websocket.CloseInternalServerErr, "failed to start game")
		return
	}
	s.log.Info("game started", "game_id", sess.engine.State().ID, "remote", r.RemoteAddr)
	if err := conn.WriteJSON(newFrame(FrameTypeStart, sess.engine.State())); err != nil {
		return
	}

	for {
		if s.opts.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
		}
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("connection read ended", "game_id", sess.engine.State().ID, "error", err)
			}
			s.finish(sess)
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		token := strings.TrimSpace(string(msg))
		switch {
		case game.IsQuit(token):
			s.finish(sess)
			s.closeWith(conn, websocket.CloseNormalClosure, "bye")
			return

		case strings.EqualFold(token, "new"):
			s.finish(sess)
			next, err := s.newSession()
			if err != nil {
				s.log.Error("start game", "error", err)
				s.closeWith(conn, websocket.CloseInternalServerErr, "failed to start game")
				return
			}
			sess = next
			if err := conn.WriteJSON(newFrame(FrameTypeStart, sess.engine.State())); err != nil {
				return
			}

		default:
			dir := game.ParseDirection(token)
			out, moveErr := sess.engine.Move(dir)
			sess.recorder.Observe(dir, out, sess.engine.State())
			frame := moveFrame(sess.engine.State(), dir, out, moveErr)
			if out == rules.OutcomeGameOver || errors.Is(moveErr, rules.ErrBoardFull) {
				s.finish(sess)
			}
			if err := conn.WriteJSON(frame); err != nil {
				s.finish(sess)
				return
			}
		}
	}
}

func (s *Server) closeWith(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

// CloseSessions asks every open connection to close. Their games are
// archived as the read loops exit. http.Server.Shutdown does not touch
// hijacked connections, so call this alongside it.
func (s *Server) CloseSessions() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		s.closeWith(c, websocket.CloseGoingAway, "server shutting down")
	}
}

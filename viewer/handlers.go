// Package viewer serves archived games: a JSON API backed by DuckDB over the
// Parquet archives and HTML pages that replay a game board by board.
package viewer

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Server holds shared state for the HTTP handlers.
type Server struct {
	roots   []string
	dbCache *DBCache
	log     *slog.Logger
}

// NewServer reads archives under roots. The DuckDB view is rebuilt at most
// every refresh.
func NewServer(roots []string, refresh time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		roots:   roots,
		dbCache: NewDBCache(roots, refresh, logger),
		log:     logger,
	}
}

func (s *Server) Close() error { return s.dbCache.Close() }

// RegisterRoutes sets up the API and page routes on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/games", s.handleGames)
	mux.HandleFunc("/api/games/", s.handleGameTurns)
	mux.HandleFunc("/api/top", s.handleTop)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/games/", s.handleGamePage)
	mux.HandleFunc("/", s.handleIndexPage)
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return false
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	// Refresh so games archived since the last request are listed.
	if err := s.dbCache.Refresh(); err != nil {
		http.Error(w, fmt.Sprintf("failed to refresh db: %v", err), http.StatusInternalServerError)
		return
	}
	index, err := s.dbCache.GamesIndex(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	limit := parseIntQuery(r, "limit", 1000)
	offset := parseIntQuery(r, "offset", 0)
	sortKey := strings.TrimSpace(r.URL.Query().Get("sort"))
	sortDir := strings.TrimSpace(r.URL.Query().Get("dir"))

	writeJSON(w, GamesResponse{
		Total: int64(len(index)),
		Games: paginateGames(index, limit, offset, sortKey, sortDir),
	})
}

func (s *Server) handleGameTurns(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	// /api/games/{id}/turns
	rest := strings.TrimPrefix(r.URL.Path, "/api/games/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "turns" {
		http.NotFound(w, r)
		return
	}
	gameID, err := url.PathUnescape(parts[0])
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rows, err := queryGameRows(r.Context(), db, gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	turns := make([]Turn, len(rows))
	for i, row := range rows {
		turns[i] = turnFromRow(row)
	}
	writeJSON(w, turns)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	top, err := queryTopScores(r.Context(), db, parseIntQuery(r, "limit", 10))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, top)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	stats, err := queryStats(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func normalizeSort(sortKey string, sortDir string) (string, string) {
	sk := strings.ToLower(strings.TrimSpace(sortKey))
	sd := strings.ToLower(strings.TrimSpace(sortDir))
	if sd != "asc" && sd != "desc" {
		sd = "desc"
	}
	switch sk {
	case "time", "started", "started_ns":
		sk = "started_ns"
	case "id", "game", "game_id":
		sk = "game_id"
	case "turns":
		sk = "turns"
	case "score":
		sk = "score"
	case "length":
		sk = "length"
	case "source":
		sk = "source"
	default:
		sk = "started_ns"
		sd = "desc"
	}
	return sk, sd
}

// paginateGames sorts a copy of the index and returns one page of it.
func paginateGames(games []GameSummary, limit, offset int, sortKey, sortDir string) []GameSummary {
	sk, sd := normalizeSort(sortKey, sortDir)

	sorted := make([]GameSummary, len(games))
	copy(sorted, games)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if sd == "desc" {
			a, b = b, a
		}
		switch sk {
		case "game_id":
			return a.GameID < b.GameID
		case "turns":
			return a.Turns < b.Turns
		case "score":
			return a.Score < b.Score
		case "length":
			return a.Length < b.Length
		case "source":
			return a.Source < b.Source
		default:
			return a.StartedNs < b.StartedNs
		}
	})

	if offset >= len(sorted) {
		return []GameSummary{}
	}
	end := min(offset+limit, len(sorted))
	return sorted[offset:end]
}

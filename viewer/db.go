package viewer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brensch/gridsnake/store"
	_ "github.com/duckdb/duckdb-go/v2"
)

// DBCache keeps a DuckDB view over the Parquet archives and rebuilds it
// every refreshRate so newly archived games show up.
type DBCache struct {
	roots       []string
	refreshRate time.Duration
	log         *slog.Logger

	mu          sync.RWMutex
	db          *sql.DB
	lastRefresh time.Time

	gamesIndex []GameSummary
}

func NewDBCache(roots []string, refreshRate time.Duration, logger *slog.Logger) *DBCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DBCache{
		roots:       roots,
		refreshRate: refreshRate,
		log:         logger,
	}
}

// Get returns the cached connection, refreshing it when stale.
func (c *DBCache) Get() (*sql.DB, error) {
	c.mu.RLock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		db := c.db
		c.mu.RUnlock()
		return db, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	return c.refreshLocked()
}

// Refresh forces the view to be rebuilt.
func (c *DBCache) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.refreshLocked()
	return err
}

func (c *DBCache) refreshLocked() (*sql.DB, error) {
	start := time.Now()

	newDB, err := openDuckDBForRoots(c.roots)
	if err != nil {
		return nil, err
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	c.db = newDB
	c.lastRefresh = time.Now()
	c.gamesIndex = nil

	c.log.Debug("duckdb view refreshed", "roots", c.roots, "took", time.Since(start))
	return c.db, nil
}

// GamesIndex returns one summary per archived game, newest first. The index
// is rebuilt only when the view is.
func (c *DBCache) GamesIndex(ctx context.Context) ([]GameSummary, error) {
	c.mu.RLock()
	if c.gamesIndex != nil && c.db != nil {
		idx := c.gamesIndex
		c.mu.RUnlock()
		return idx, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gamesIndex != nil && c.db != nil {
		return c.gamesIndex, nil
	}
	if c.db == nil {
		if _, err := c.refreshLocked(); err != nil {
			return nil, err
		}
	}

	games, err := queryAllGames(ctx, c.db, c.roots)
	if err != nil {
		return nil, err
	}
	c.gamesIndex = games
	c.log.Debug("games index rebuilt", "games", len(games))
	return c.gamesIndex, nil
}

func (c *DBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}

// emptyTurnsView matches the store.TurnRow schema so queries work before
// any game has been archived.
const emptyTurnsView = `CREATE OR REPLACE VIEW turns AS
	SELECT * FROM (
		SELECT
			NULL::VARCHAR AS game_id,
			NULL::INTEGER AS seq,
			NULL::INTEGER AS turn,
			NULL::INTEGER AS width,
			NULL::INTEGER AS height,
			NULL::VARCHAR AS direction,
			NULL::VARCHAR AS outcome,
			NULL::INTEGER[] AS body_x,
			NULL::INTEGER[] AS body_y,
			NULL::INTEGER AS food_x,
			NULL::INTEGER AS food_y,
			NULL::BOOLEAN AS has_food,
			NULL::INTEGER AS score,
			NULL::VARCHAR AS status,
			NULL::VARCHAR AS cause,
			NULL::VARCHAR AS source,
			NULL::BIGINT AS started_ns,
			NULL::VARCHAR AS filename
	) WHERE 1=0`

// openDuckDBForRoots creates an in-memory DuckDB whose "turns" view reads
// every finished Parquet archive under the roots.
func openDuckDBForRoots(roots []string) (*sql.DB, error) {
	files, err := findParquetFilesMulti(roots)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	// Ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")

	sqlText := emptyTurnsView
	if len(files) > 0 {
		quoted := make([]string, len(files))
		for i, f := range files {
			quoted[i] = "'" + escapeSQLString(f) + "'"
		}
		sqlText = `CREATE OR REPLACE VIEW turns AS
			SELECT * FROM read_parquet([` + strings.Join(quoted, ",") + `], filename=true, union_by_name=true)`
	}
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// findParquetFiles lists the archives under root. In-flight files live in
// tmp/ directories and are skipped.
func findParquetFiles(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == "tmp" && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".parquet") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return out, nil
}

func findParquetFilesMulti(roots []string) ([]string, error) {
	var all []string
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		files, err := findParquetFiles(root)
		if err != nil {
			return nil, err
		}
		all = append(all, files...)
	}
	sort.Strings(all)
	return all, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// lastRowsCTE picks each game's final row, which carries its end state.
const lastRowsCTE = `WITH ranked AS (
	SELECT
		game_id, started_ns, turn, width, height, score,
		len(body_x) AS snake_len, status, cause, source, filename,
		count(*) OVER (PARTITION BY game_id) AS row_count,
		row_number() OVER (PARTITION BY game_id ORDER BY seq DESC) AS rn
	FROM turns
)`

func queryAllGames(ctx context.Context, db *sql.DB, roots []string) ([]GameSummary, error) {
	rows, err := db.QueryContext(ctx, lastRowsCTE+`
		SELECT game_id, started_ns::BIGINT, turn::INTEGER, width::INTEGER, height::INTEGER,
			score::INTEGER, snake_len::INTEGER, status, cause, source, filename, row_count::BIGINT
		FROM ranked WHERE rn = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]GameSummary, 0, 256)
	for rows.Next() {
		var g GameSummary
		var file string
		if err := rows.Scan(&g.GameID, &g.StartedNs, &g.Turns, &g.Width, &g.Height,
			&g.Score, &g.Length, &g.Status, &g.Cause, &g.Source, &file, &g.Rows); err != nil {
			return nil, err
		}
		g.SourceFile = makeRelativeToRoots(file, roots)
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedNs != out[j].StartedNs {
			return out[i].StartedNs > out[j].StartedNs
		}
		return out[i].GameID > out[j].GameID
	})
	return out, nil
}

// queryTopScores ranks games by final score; ties go to fewer turns.
func queryTopScores(ctx context.Context, db *sql.DB, limit int) ([]GameSummary, error) {
	rows, err := db.QueryContext(ctx, lastRowsCTE+`
		SELECT game_id, started_ns::BIGINT, turn::INTEGER, width::INTEGER, height::INTEGER,
			score::INTEGER, snake_len::INTEGER, status, cause, source, row_count::BIGINT
		FROM ranked WHERE rn = 1
		ORDER BY score DESC, turn ASC, game_id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.GameID, &g.StartedNs, &g.Turns, &g.Width, &g.Height,
			&g.Score, &g.Length, &g.Status, &g.Cause, &g.Source, &g.Rows); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func queryStats(ctx context.Context, db *sql.DB) (StatsResponse, error) {
	rows, err := db.QueryContext(ctx, lastRowsCTE+`
		SELECT cause, COUNT(*)::BIGINT, SUM(turn)::BIGINT, MAX(score)::INTEGER, AVG(score)::DOUBLE
		FROM ranked WHERE rn = 1
		GROUP BY cause
		ORDER BY cause`)
	if err != nil {
		return StatsResponse{}, err
	}
	defer rows.Close()

	resp := StatsResponse{ByCause: map[string]int64{}}
	var weighted float64
	for rows.Next() {
		var (
			cause string
			games int64
			turns int64
			best  int32
			avg   float64
		)
		if err := rows.Scan(&cause, &games, &turns, &best, &avg); err != nil {
			return StatsResponse{}, err
		}
		resp.ByCause[cause] = games
		resp.Games += games
		resp.TotalTurns += turns
		resp.BestScore = max(resp.BestScore, best)
		weighted += avg * float64(games)
	}
	if err := rows.Err(); err != nil {
		return StatsResponse{}, err
	}
	if resp.Games > 0 {
		resp.AvgScore = weighted / float64(resp.Games)
	}
	return resp, nil
}

// queryGameRows loads one game's rows in Seq order. Returns sql.ErrNoRows
// for an unknown game.
func queryGameRows(ctx context.Context, db *sql.DB, gameID string) ([]store.TurnRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT game_id, seq::INTEGER, turn::INTEGER, width::INTEGER, height::INTEGER,
			direction, outcome, body_x, body_y, food_x::INTEGER, food_y::INTEGER, has_food,
			score::INTEGER, status, cause, source, started_ns::BIGINT
		 FROM turns
		 WHERE game_id = ?
		 ORDER BY seq ASC`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]store.TurnRow, 0, 64)
	for rows.Next() {
		var r store.TurnRow
		var bodyXAny, bodyYAny any
		if err := rows.Scan(&r.GameID, &r.Seq, &r.Turn, &r.Width, &r.Height,
			&r.Direction, &r.Outcome, &bodyXAny, &bodyYAny, &r.FoodX, &r.FoodY, &r.HasFood,
			&r.Score, &r.Status, &r.Cause, &r.Source, &r.StartedNs); err != nil {
			return nil, err
		}
		r.BodyX = asInt32Slice(bodyXAny)
		r.BodyY = asInt32Slice(bodyYAny)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, sql.ErrNoRows
	}
	return out, nil
}

func makeRelativeToRoots(filename string, roots []string) string {
	fn := strings.TrimSpace(filename)
	if fn == "" {
		return ""
	}
	best := fn
	for _, r := range roots {
		root := strings.TrimSpace(r)
		if root == "" {
			continue
		}
		rel, err := filepath.Rel(root, fn)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if cand := filepath.ToSlash(rel); len(cand) < len(best) {
			best = cand
		}
	}
	return best
}

// DefaultRoots is used when no data directory is configured.
func DefaultRoots() []string {
	if _, err := os.Stat("data"); err == nil {
		return []string{"data"}
	}
	return nil
}

// Package scores keeps the high-score board and each game's move log in
// SQLite.
package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brensch/gridsnake/game"
	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite connection with serialised writes.
type DB struct {
	conn *sql.DB
	mu   sync.Mutex
}

// Entry is one finished game on the board.
type Entry struct {
	GameID   string
	Player   string
	Width    int32
	Height   int32
	Score    int32
	Length   int32
	Turns    int32
	Cause    string
	Moves    string
	PlayedAt time.Time
}

// EntryFromState summarises a finished (or abandoned) game.
func EntryFromState(player string, s *game.GameState) Entry {
	var moves strings.Builder
	for _, d := range s.History {
		moves.WriteRune(d.Rune())
	}
	return Entry{
		GameID: s.ID,
		Player: player,
		Width:  s.Width,
		Height: s.Height,
		Score:  s.Score,
		Length: int32(s.Len()),
		Turns:  s.Turn,
		Cause:  s.Cause.String(),
		Moves:  moves.String(),
	}
}

// Open creates or opens the database at path and initialises the schema.
// Use ":memory:" for a throwaway board.
func Open(path string) (*DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one writer; an in-memory DB also must not be
	// spread across connections.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS games (
		id TEXT PRIMARY KEY,
		player TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		score INTEGER NOT NULL,
		length INTEGER NOT NULL,
		turns INTEGER NOT NULL,
		cause TEXT NOT NULL,
		played_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- One row per accepted move, in order.
	CREATE TABLE IF NOT EXISTS moves (
		game_id TEXT,
		seq INTEGER,
		direction TEXT,
		PRIMARY KEY (game_id, seq),
		FOREIGN KEY(game_id) REFERENCES games(id)
	);

	CREATE INDEX IF NOT EXISTS idx_games_score ON games(score DESC);
	`

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Record inserts a game and its moves in one transaction. Recording the
// same game twice is a no-op.
func (db *DB) Record(ctx context.Context, e Entry) error {
	if e.GameID == "" {
		return errors.New("entry has no game id")
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO games (id, player, width, height, score, length, turns, cause)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.GameID, e.Player, e.Width, e.Height, e.Score, e.Length, e.Turns, e.Cause,
	)
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO moves (game_id, seq, direction) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare move statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range e.Moves {
		if _, err := stmt.ExecContext(ctx, e.GameID, i, string(r)); err != nil {
			return fmt.Errorf("insert move %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Top returns the best games, highest score first; ties go to the game
// finished in fewer turns.
func (db *DB) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, player, width, height, score, length, turns, cause, played_at
		 FROM games ORDER BY score DESC, turns ASC, played_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top scores: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.GameID, &e.Player, &e.Width, &e.Height, &e.Score, &e.Length, &e.Turns, &e.Cause, &e.PlayedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Moves returns a game's move letters in order, e.g. "wwad".
func (db *DB) Moves(ctx context.Context, gameID string) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, "SELECT direction FROM moves WHERE game_id = ? ORDER BY seq", gameID)
	if err != nil {
		return "", fmt.Errorf("query moves: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return "", err
		}
		b.WriteString(d)
	}
	return b.String(), rows.Err()
}

// Best is the highest recorded score, 0 for an empty board.
func (db *DB) Best(ctx context.Context) (int32, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var best sql.NullInt64
	if err := db.conn.QueryRowContext(ctx, "SELECT MAX(score) FROM games").Scan(&best); err != nil {
		return 0, fmt.Errorf("query best score: %w", err)
	}
	return int32(best.Int64), nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

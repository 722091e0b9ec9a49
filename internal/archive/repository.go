package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS chessboard_games (
	game_id        TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	mode           TEXT NOT NULL,
	turns          INTEGER NOT NULL,
	current_player TEXT NOT NULL,
	placements     JSONB NOT NULL,
	reason         TEXT NOT NULL,
	started_at     TIMESTAMPTZ NOT NULL,
	ended_at       TIMESTAMPTZ NOT NULL,
	duration_ms    BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS chessboard_games_session_idx ON chessboard_games (session_id, ended_at DESC);
`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the archive table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// SaveGame upserts by game id; archiving the same game twice keeps the latest view.
func (r *PostgresRepository) SaveGame(ctx context.Context, g *Game) error {
	if g == nil || strings.TrimSpace(g.ID) == "" {
		return ErrEmptyGame
	}
	placements, err := json.Marshal(g.Placements)
	if err != nil {
		return fmt.Errorf("marshal placements: %w", err)
	}
	const q = `
		INSERT INTO chessboard_games (
			game_id, session_id, mode, turns, current_player,
			placements, reason, started_at, ended_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10)
		ON CONFLICT (game_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			turns = EXCLUDED.turns,
			current_player = EXCLUDED.current_player,
			placements = EXCLUDED.placements,
			reason = EXCLUDED.reason,
			ended_at = EXCLUDED.ended_at,
			duration_ms = EXCLUDED.duration_ms`
	_, err = r.db.ExecContext(ctx, q,
		g.ID,
		g.SessionID,
		g.Mode,
		g.Turns,
		g.CurrentPlayer,
		placements,
		g.Reason,
		g.StartedAt,
		g.EndedAt,
		g.Duration().Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("upsert archived game: %w", err)
	}
	return nil
}

const selectColumns = `game_id, session_id, mode, turns, current_player, placements, reason, started_at, ended_at`

func (r *PostgresRepository) GetGame(ctx context.Context, id string) (*Game, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM chessboard_games WHERE game_id = $1`, id)
	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return g, err
}

func (r *PostgresRepository) RecentGames(ctx context.Context, sessionID string, limit int) ([]*Game, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM chessboard_games WHERE session_id = $1 ORDER BY ended_at DESC LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query archived games: %w", err)
	}
	defer rows.Close()

	var out []*Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(s rowScanner) (*Game, error) {
	var (
		g   Game
		raw []byte
	)
	if err := s.Scan(&g.ID, &g.SessionID, &g.Mode, &g.Turns, &g.CurrentPlayer, &raw, &g.Reason, &g.StartedAt, &g.EndedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &g.Placements); err != nil {
			return nil, fmt.Errorf("decode placements: %w", err)
		}
	}
	return &g, nil
}

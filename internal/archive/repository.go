// Package archive stores finished matches in SQL (Postgres or SQLite) together
// with a PGN or PDN record of the game.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/park285/cheese-arena/internal/game"
	"github.com/park285/cheese-arena/internal/match"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrNotFound = errors.New("archived match not found")

// Result is one archived match.
type Result struct {
	MatchID    string          `json:"match_id"`
	Variant    game.Variant    `json:"variant"`
	Players    [2]match.Player `json:"players"`
	WinnerID   string          `json:"winner_id,omitempty"`
	Winner     game.Color      `json:"winner,omitempty"`
	Status     game.Status     `json:"status"`
	Result     string          `json:"result"`
	Details    string          `json:"details,omitempty"`
	Moves      []string        `json:"moves"`
	Record     string          `json:"record"`
	Scores     [2]int          `json:"scores"`
	StartedAt  time.Time       `json:"started_at"`
	EndedAt    time.Time       `json:"ended_at"`
	DurationMS int64           `json:"duration_ms"`
}

type Repository struct {
	db     *sql.DB
	driver string
}

// Open connects to databaseURL with driver and applies the schema.
func Open(ctx context.Context, driver, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer; also keeps ":memory:" databases on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(16)
		db.SetMaxIdleConns(8)
		db.SetConnMaxLifetime(30 * time.Minute)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	r := &Repository{db: db, driver: driver}
	if err := r.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS match_results (
		match_id      TEXT PRIMARY KEY,
		variant       TEXT NOT NULL,
		first_id      TEXT NOT NULL,
		first_name    TEXT NOT NULL,
		first_color   TEXT NOT NULL,
		second_id     TEXT NOT NULL,
		second_name   TEXT NOT NULL,
		second_color  TEXT NOT NULL,
		winner_id     TEXT NOT NULL,
		winner_color  TEXT NOT NULL,
		status        TEXT NOT NULL,
		result        TEXT NOT NULL,
		details       TEXT NOT NULL,
		moves         TEXT NOT NULL,
		record        TEXT NOT NULL,
		first_score   INTEGER NOT NULL,
		second_score  INTEGER NOT NULL,
		started_at    BIGINT NOT NULL,
		ended_at      BIGINT NOT NULL,
		duration_ms   BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS match_results_first_idx ON match_results (first_id, ended_at)`,
	`CREATE INDEX IF NOT EXISTS match_results_second_idx ON match_results (second_id, ended_at)`,
}

// Migrate creates the tables when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, q := range schema {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites $n placeholders for drivers that want ?.
func (r *Repository) rebind(q string) string {
	if r.driver != DriverSQLite {
		return q
	}
	var b strings.Builder
	for i := 0; i < len(q); i++ {
		if q[i] != '$' {
			b.WriteByte(q[i])
			continue
		}
		j := i + 1
		for j < len(q) && q[j] >= '0' && q[j] <= '9' {
			j++
		}
		if j == i+1 {
			b.WriteByte(q[i])
			continue
		}
		b.WriteByte('?')
		b.WriteString(q[i+1 : j])
		i = j - 1
	}
	return b.String()
}

// SaveResult upserts a finished match. Running matches are ignored.
func (r *Repository) SaveResult(ctx context.Context, m *match.Match) error {
	if r == nil || r.db == nil || m == nil || m.Status != match.StatusFinished {
		return nil
	}
	res, err := FromMatch(m)
	if err != nil {
		return err
	}
	movesRaw, err := json.Marshal(res.Moves)
	if err != nil {
		return err
	}

	q := `INSERT INTO match_results (
		match_id, variant, first_id, first_name, first_color,
		second_id, second_name, second_color, winner_id, winner_color,
		status, result, details, moves, record,
		first_score, second_score, started_at, ended_at, duration_ms
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20
	) ON CONFLICT (match_id) DO UPDATE SET
		winner_id=EXCLUDED.winner_id,
		winner_color=EXCLUDED.winner_color,
		status=EXCLUDED.status,
		result=EXCLUDED.result,
		details=EXCLUDED.details,
		moves=EXCLUDED.moves,
		record=EXCLUDED.record,
		first_score=EXCLUDED.first_score,
		second_score=EXCLUDED.second_score,
		ended_at=EXCLUDED.ended_at,
		duration_ms=EXCLUDED.duration_ms`

	a, b := res.Players[0], res.Players[1]
	_, err = r.db.ExecContext(ctx, r.rebind(q),
		res.MatchID, string(res.Variant),
		a.ID, a.Name, a.Color.String(),
		b.ID, b.Name, b.Color.String(),
		res.WinnerID, res.Winner.String(),
		string(res.Status), res.Result, res.Details, string(movesRaw), res.Record,
		res.Scores[0], res.Scores[1],
		res.StartedAt.UnixMilli(), res.EndedAt.UnixMilli(), res.DurationMS,
	)
	return err
}

const selectColumns = `match_id, variant, first_id, first_name, first_color,
	second_id, second_name, second_color, winner_id, winner_color,
	status, result, details, moves, record,
	first_score, second_score, started_at, ended_at, duration_ms`

// Get returns one archived match.
func (r *Repository) Get(ctx context.Context, matchID string) (*Result, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+selectColumns+` FROM match_results WHERE match_id = $1`), strings.TrimSpace(matchID))
	res, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// Recent returns the latest results a player took part in, newest first.
func (r *Repository) Recent(ctx context.Context, playerID string, limit int) ([]*Result, error) {
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}
	q := `SELECT ` + selectColumns + ` FROM match_results
		WHERE first_id = $1 OR second_id = $1
		ORDER BY ended_at DESC, match_id LIMIT ` + strconv.Itoa(limit)
	rows, err := r.db.QueryContext(ctx, r.rebind(q), strings.TrimSpace(playerID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(s scanner) (*Result, error) {
	var (
		res                  Result
		variant, status      string
		aColor, bColor, wCol string
		movesRaw             string
		started, ended       int64
	)
	a, b := &res.Players[0], &res.Players[1]
	err := s.Scan(&res.MatchID, &variant, &a.ID, &a.Name, &aColor,
		&b.ID, &b.Name, &bColor, &res.WinnerID, &wCol,
		&status, &res.Result, &res.Details, &movesRaw, &res.Record,
		&res.Scores[0], &res.Scores[1], &started, &ended, &res.DurationMS)
	if err != nil {
		return nil, err
	}
	res.Variant = game.Variant(variant)
	res.Status = game.Status(status)
	for _, c := range []struct {
		dst *game.Color
		raw string
	}{{&a.Color, aColor}, {&b.Color, bColor}, {&res.Winner, wCol}} {
		if *c.dst, err = game.ParseColor(c.raw); err != nil {
			return nil, err
		}
	}
	if err := json.Unmarshal([]byte(movesRaw), &res.Moves); err != nil {
		return nil, fmt.Errorf("moves of %s: %w", res.MatchID, err)
	}
	res.StartedAt = time.UnixMilli(started).UTC()
	res.EndedAt = time.UnixMilli(ended).UTC()
	return &res, nil
}

// internal/database/database.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InitialState is the deal as it left the shuffle: hands by seat, the
// revealed top card and the size of the remaining deck.
type InitialState struct {
	Seed         uint64              `json:"seed"`
	StartingSeat int                 `json:"startingSeat"`
	TopCard      string              `json:"topCard"`
	DeckSize     int                 `json:"deckSize"`
	Hands        map[string][]string `json:"hands"` // seat id -> cards
}

// GameResult is the archived outcome of one game.
type GameResult struct {
	GameID     uuid.UUID
	WinnerSeat int // -1 when drawn
	Draw       bool
	Turns      int
	Scores     map[string]int      // seat id -> points
	FinalHands map[string][]string // seat id -> cards left
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store archives deals and results in Postgres.
type Store struct {
	db   execer
	pool *pgxpool.Pool
}

// Connect opens a pool for url and pings it.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS games (
		id            UUID PRIMARY KEY,
		initial_state JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS game_results (
		game_id     UUID PRIMARY KEY,
		winner_seat INTEGER NOT NULL,
		draw        BOOLEAN NOT NULL,
		turns       INTEGER NOT NULL,
		scores      JSONB NOT NULL,
		final_hands JSONB NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// UpsertInitialGameState records the deal of a game, replacing an earlier
// deal for the same id (a reset followed by a new deal).
func (s *Store) UpsertInitialGameState(ctx context.Context, gameID uuid.UUID, state InitialState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode initial state: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO games (id, initial_state) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET initial_state = EXCLUDED.initial_state, created_at = now()`,
		gameID, data)
	if err != nil {
		return fmt.Errorf("upsert initial state for %s: %w", gameID, err)
	}
	return nil
}

// StoreGameResult archives the outcome of a finished game.
func (s *Store) StoreGameResult(ctx context.Context, r GameResult) error {
	scores, err := json.Marshal(r.Scores)
	if err != nil {
		return fmt.Errorf("encode scores: %w", err)
	}
	hands, err := json.Marshal(r.FinalHands)
	if err != nil {
		return fmt.Errorf("encode final hands: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO game_results (game_id, winner_seat, draw, turns, scores, final_hands)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id) DO UPDATE SET
			winner_seat = EXCLUDED.winner_seat,
			draw        = EXCLUDED.draw,
			turns       = EXCLUDED.turns,
			scores      = EXCLUDED.scores,
			final_hands = EXCLUDED.final_hands,
			finished_at = now()`,
		r.GameID, r.WinnerSeat, r.Draw, r.Turns, scores, hands)
	if err != nil {
		return fmt.Errorf("store result for %s: %w", r.GameID, err)
	}
	return nil
}

// Tally is the win/draw count across archived games.
type Tally struct {
	Games int         `json:"games"`
	Draws int         `json:"draws"`
	Wins  map[int]int `json:"wins"` // seat -> games won
}

// LoadTally summarises archived results.
func (s *Store) LoadTally(ctx context.Context) (Tally, error) {
	t := Tally{Wins: make(map[int]int)}
	var wins []byte
	err := s.db.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE draw),
		       coalesce((SELECT jsonb_object_agg(winner_seat, n) FROM (
		           SELECT winner_seat, count(*) AS n FROM game_results
		           WHERE NOT draw GROUP BY winner_seat) w), '{}'::jsonb)
		FROM game_results`).Scan(&t.Games, &t.Draws, &wins)
	if err != nil {
		return t, fmt.Errorf("load tally: %w", err)
	}
	if err := json.Unmarshal(wins, &t.Wins); err != nil {
		return t, fmt.Errorf("decode tally: %w", err)
	}
	return t, nil
}

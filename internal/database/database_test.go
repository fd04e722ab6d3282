package database

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

// fakeDB records statements instead of talking to Postgres.
type fakeDB struct {
	calls []execCall
	err   error
	row   pgx.Row
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return f.row
}

type fakeRow struct {
	games, draws int
	wins         string
	err          error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int) = r.games
	*dest[1].(*int) = r.draws
	*dest[2].(*[]byte) = []byte(r.wins)
	return nil
}

func TestMigrateRunsEveryStatement(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	require.NoError(t, s.Migrate(context.Background()))
	require.Len(t, db.calls, len(schema))
	assert.Contains(t, db.calls[0].sql, "CREATE TABLE IF NOT EXISTS games")
	assert.Contains(t, db.calls[1].sql, "game_results")
}

func TestUpsertInitialGameState(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	id := uuid.New()
	state := InitialState{
		Seed:         42,
		StartingSeat: 1,
		TopCard:      "3H",
		DeckSize:     37,
		Hands:        map[string][]string{"a": {"8S", "2C"}},
	}
	require.NoError(t, s.UpsertInitialGameState(context.Background(), id, state))
	require.Len(t, db.calls, 1)
	call := db.calls[0]
	assert.Contains(t, call.sql, "ON CONFLICT (id)")
	require.Len(t, call.args, 2)
	assert.Equal(t, id, call.args[0])

	var decoded InitialState
	require.NoError(t, json.Unmarshal(call.args[1].([]byte), &decoded))
	assert.Equal(t, state, decoded)
}

func TestStoreGameResult(t *testing.T) {
	db := &fakeDB{}
	s := &Store{db: db}
	r := GameResult{
		GameID:     uuid.New(),
		WinnerSeat: -1,
		Draw:       true,
		Turns:      31,
		Scores:     map[string]int{"a": 0, "b": 0},
		FinalHands: map[string][]string{"a": {"5D"}, "b": {"KS"}},
	}
	require.NoError(t, s.StoreGameResult(context.Background(), r))
	args := db.calls[0].args
	require.Len(t, args, 6)
	assert.Equal(t, r.GameID, args[0])
	assert.Equal(t, -1, args[1])
	assert.Equal(t, true, args[2])
	assert.JSONEq(t, `{"a":["5D"],"b":["KS"]}`, string(args[5].([]byte)))
}

func TestExecErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	s := &Store{db: &fakeDB{err: boom}}
	err := s.StoreGameResult(context.Background(), GameResult{GameID: uuid.New()})
	assert.ErrorIs(t, err, boom)
	err = s.Migrate(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestLoadTally(t *testing.T) {
	s := &Store{db: &fakeDB{row: fakeRow{games: 10, draws: 2, wins: `{"0": 5, "1": 3}`}}}
	tally, err := s.LoadTally(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, tally.Games)
	assert.Equal(t, 2, tally.Draws)
	assert.Equal(t, map[int]int{0: 5, 1: 3}, tally.Wins)
}

package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps streams and keys in memory, storing values as strings the
// way the server returns them.
type fakeRedis struct {
	mu      sync.Mutex
	streams map[string][]redis.XMessage
	keys    map[string]string
	ttl     map[string]time.Duration
	failSet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		streams: make(map[string][]redis.XMessage),
		keys:    make(map[string]string),
		ttl:     make(map[string]time.Duration),
	}
}

func (f *fakeRedis) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	vals := make(map[string]interface{})
	for k, v := range a.Values.(map[string]interface{}) {
		vals[k] = fmt.Sprint(v)
	}
	id := strconv.Itoa(len(f.streams[a.Stream])+1) + "-0"
	f.streams[a.Stream] = append(f.streams[a.Stream], redis.XMessage{ID: id, Values: vals})
	return redis.NewStringResult(id, nil)
}

func (f *fakeRedis) XRange(_ context.Context, stream, _, _ string) *redis.XMessageSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return redis.NewXMessageSliceCmdResult(append([]redis.XMessage(nil), f.streams[stream]...), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, exp time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return redis.NewStatusResult("", f.failSet)
	}
	switch v := value.(type) {
	case []byte:
		f.keys[key] = string(v)
	default:
		f.keys[key] = fmt.Sprint(v)
	}
	f.ttl[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.keys[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.keys[k]; ok {
			delete(f.keys, k)
			delete(f.ttl, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestPublishAndReadActions(t *testing.T) {
	f := newFakeRedis()
	h := newHistorian(f, time.Hour)
	ctx := context.Background()
	gameID, actor := uuid.New(), uuid.New()

	recs := []GameActionRecord{
		{GameID: gameID, ActionIndex: 1, ActorUserID: uuid.Nil, ActionType: "game_start", Timestamp: 1000},
		{GameID: gameID, ActionIndex: 2, ActorUserID: actor, ActionType: "action_play",
			ActionPayload: map[string]interface{}{"card": "8H"}, Timestamp: 1500},
	}
	for _, r := range recs {
		require.NoError(t, h.PublishGameAction(ctx, r))
	}
	// Another session's stream stays separate.
	require.NoError(t, h.PublishGameAction(ctx, GameActionRecord{GameID: uuid.New(), ActionIndex: 1, ActionType: "x"}))

	got, err := h.Actions(ctx, gameID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "game_start", got[0].ActionType)
	assert.Equal(t, uuid.Nil, got[0].ActorUserID)
	assert.Equal(t, 2, got[1].ActionIndex)
	assert.Equal(t, actor, got[1].ActorUserID)
	assert.Equal(t, int64(1500), got[1].Timestamp)
	assert.Equal(t, "8H", got[1].ActionPayload["card"])
}

func TestSnapshotRoundTrip(t *testing.T) {
	f := newFakeRedis()
	h := newHistorian(f, 30*time.Minute)
	ctx := context.Background()
	id := uuid.New()

	_, err := h.LoadSnapshot(ctx, id)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	require.NoError(t, h.SaveSnapshot(ctx, id, []byte(`{"turn":1}`)))
	data, err := h.LoadSnapshot(ctx, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"turn":1}`, string(data))
	assert.Equal(t, 30*time.Minute, f.ttl[snapshotKey(id)])
}

func TestDeleteSnapshot(t *testing.T) {
	f := newFakeRedis()
	h := newHistorian(f, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, h.SaveSnapshot(ctx, id, []byte(`{}`)))
	require.NoError(t, h.PublishGameAction(ctx, GameActionRecord{GameID: id, ActionIndex: 1, ActionType: "game_start"}))
	require.NoError(t, h.DeleteSnapshot(ctx, id))

	_, err := h.LoadSnapshot(ctx, id)
	assert.ErrorIs(t, err, ErrNoSnapshot)
	recs, err := h.Actions(ctx, id)
	require.NoError(t, err)
	assert.Len(t, recs, 1, "history outlives the snapshot")

	// Deleting twice is fine.
	require.NoError(t, h.DeleteSnapshot(ctx, id))
}

func TestSaveSnapshotWrapsError(t *testing.T) {
	f := newFakeRedis()
	f.failSet = fmt.Errorf("connection refused")
	h := newHistorian(f, 0)
	err := h.SaveSnapshot(context.Background(), uuid.New(), []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDecodeActionRejectsGarbage(t *testing.T) {
	_, err := decodeAction(uuid.New(), map[string]interface{}{"idx": "x", "actor": uuid.Nil.String(), "ts": "1"})
	assert.Error(t, err)
}

// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing is stored for a session.
var ErrNoSnapshot = errors.New("no snapshot stored")

// GameActionRecord is one entry of a session's action history.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"gameId"`
	ActionIndex   int                    `json:"actionIndex"`
	ActorUserID   uuid.UUID              `json:"actorUserId"` // Nil for engine-driven events.
	ActionType    string                 `json:"actionType"`
	ActionPayload map[string]interface{} `json:"actionPayload"`
	Timestamp     int64                  `json:"timestamp"` // Unix milliseconds.
}

// redisClient is the subset of *redis.Client the historian uses.
type redisClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRange(ctx context.Context, stream, start, stop string) *redis.XMessageSliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Historian appends session actions to a Redis stream and keeps the latest
// snapshot of each session for resuming.
type Historian struct {
	rdb          redisClient
	streamMaxLen int64
	snapshotTTL  time.Duration
}

// Connect parses a redis:// URL and checks the server is reachable.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewHistorian wraps rdb. Snapshots expire after snapshotTTL; zero keeps them.
func NewHistorian(rdb *redis.Client, snapshotTTL time.Duration) *Historian {
	return newHistorian(rdb, snapshotTTL)
}

func newHistorian(rdb redisClient, snapshotTTL time.Duration) *Historian {
	return &Historian{rdb: rdb, streamMaxLen: 10000, snapshotTTL: snapshotTTL}
}

func actionsKey(gameID uuid.UUID) string  { return "game:" + gameID.String() + ":actions" }
func snapshotKey(gameID uuid.UUID) string { return "game:" + gameID.String() + ":snapshot" }

// PublishGameAction appends rec to the session's action stream.
func (h *Historian) PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return fmt.Errorf("encode action payload: %w", err)
	}
	err = h.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: actionsKey(rec.GameID),
		MaxLen: h.streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"idx":     rec.ActionIndex,
			"actor":   rec.ActorUserID.String(),
			"type":    rec.ActionType,
			"payload": string(payload),
			"ts":      rec.Timestamp,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", actionsKey(rec.GameID), err)
	}
	return nil
}

// Actions returns the recorded history of a session, oldest first.
func (h *Historian) Actions(ctx context.Context, gameID uuid.UUID) ([]GameActionRecord, error) {
	msgs, err := h.rdb.XRange(ctx, actionsKey(gameID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("xrange %s: %w", actionsKey(gameID), err)
	}
	out := make([]GameActionRecord, 0, len(msgs))
	for _, m := range msgs {
		rec, err := decodeAction(gameID, m.Values)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", m.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeAction(gameID uuid.UUID, v map[string]interface{}) (GameActionRecord, error) {
	rec := GameActionRecord{GameID: gameID}
	str := func(k string) string {
		s, _ := v[k].(string)
		return s
	}
	var err error
	if rec.ActionIndex, err = strconv.Atoi(str("idx")); err != nil {
		return rec, fmt.Errorf("idx: %w", err)
	}
	if rec.ActorUserID, err = uuid.Parse(str("actor")); err != nil {
		return rec, fmt.Errorf("actor: %w", err)
	}
	if rec.Timestamp, err = strconv.ParseInt(str("ts"), 10, 64); err != nil {
		return rec, fmt.Errorf("ts: %w", err)
	}
	rec.ActionType = str("type")
	if p := str("payload"); p != "" {
		if err := json.Unmarshal([]byte(p), &rec.ActionPayload); err != nil {
			return rec, fmt.Errorf("payload: %w", err)
		}
	}
	return rec, nil
}

// SaveSnapshot stores the latest encoded snapshot of a session.
func (h *Historian) SaveSnapshot(ctx context.Context, gameID uuid.UUID, data []byte) error {
	if err := h.rdb.Set(ctx, snapshotKey(gameID), data, h.snapshotTTL).Err(); err != nil {
		return fmt.Errorf("set %s: %w", snapshotKey(gameID), err)
	}
	return nil
}

// LoadSnapshot returns the stored snapshot, or ErrNoSnapshot.
func (h *Historian) LoadSnapshot(ctx context.Context, gameID uuid.UUID) ([]byte, error) {
	data, err := h.rdb.Get(ctx, snapshotKey(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", snapshotKey(gameID), err)
	}
	return data, nil
}

// DeleteSnapshot drops the stored snapshot so the session cannot be resumed.
// The action stream is kept as history.
func (h *Historian) DeleteSnapshot(ctx context.Context, gameID uuid.UUID) error {
	if err := h.rdb.Del(ctx, snapshotKey(gameID)).Err(); err != nil {
		return fmt.Errorf("del %s: %w", snapshotKey(gameID), err)
	}
	return nil
}

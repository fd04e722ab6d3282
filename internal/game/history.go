// internal/game/history.go
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dqtoy/crazy-eights/engine"
	"github.com/dqtoy/crazy-eights/internal/cache"
	"github.com/dqtoy/crazy-eights/internal/database"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// writeTimeout bounds each background write to Redis or Postgres.
const writeTimeout = 2 * time.Second

// Historian records a session's action log and latest snapshot.
// *cache.Historian implements it.
type Historian interface {
	PublishGameAction(ctx context.Context, rec cache.GameActionRecord) error
	SaveSnapshot(ctx context.Context, gameID uuid.UUID, data []byte) error
	LoadSnapshot(ctx context.Context, gameID uuid.UUID) ([]byte, error)
}

// ResultStore archives deals and outcomes. *database.Store implements it.
type ResultStore interface {
	UpsertInitialGameState(ctx context.Context, gameID uuid.UUID, state database.InitialState) error
	StoreGameResult(ctx context.Context, r database.GameResult) error
}

// SessionSnapshot is everything needed to rebuild a session after a restart.
type SessionSnapshot struct {
	ID          uuid.UUID       `json:"id"`
	Seed        uint64          `json:"seed"`
	Seats       []Seat          `json:"seats"`
	ActionIndex int             `json:"actionIndex"`
	Game        engine.Snapshot `json:"game"`
}

// Snapshot returns the current session snapshot.
func (s *Session) Snapshot() SessionSnapshot {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() SessionSnapshot {
	seats := make([]Seat, len(s.Seats))
	for i, seat := range s.Seats {
		seats[i] = *seat
	}
	return SessionSnapshot{
		ID:          s.ID,
		Seed:        s.Seed,
		Seats:       seats,
		ActionIndex: s.actionIndex,
		Game:        s.Engine.Save(),
	}
}

// ResumeSession rebuilds a session from snap. Seat ids and the action
// counter carry over, and the engine continues from the saved phase.
func ResumeSession(cfg Config, snap SessionSnapshot, opts ...Option) (*Session, error) {
	if len(snap.Seats) != len(snap.Game.Hands) {
		return nil, fmt.Errorf("resume %s: %d seats for %d hands: %w", snap.ID, len(snap.Seats), len(snap.Game.Hands), engine.ErrInvariant)
	}
	cfg.Seed = snap.Seed
	cfg.Rules = snap.Game.Rules
	opts = append([]Option{WithID(snap.ID), WithSeats(snap.Seats)}, opts...)
	s := NewSession(cfg, opts...)

	s.Mu.Lock()
	defer s.Mu.Unlock()
	if err := s.Engine.Restore(snap.Game); err != nil {
		s.log.WithError(err).Error("snapshot rejected")
		s.closeLocked()
		return nil, fmt.Errorf("resume %s: %w", snap.ID, err)
	}
	s.actionIndex = snap.ActionIndex
	s.log.WithFields(logrus.Fields{"phase": s.Engine.Phase().String(), "turn": s.Engine.TurnNumber()}).Info("session resumed")
	s.logAction(uuid.Nil, "session_resumed", nil)
	if s.Engine.Phase().Accepting() {
		s.scheduleTurnTimer(int(s.Engine.Turn()))
	}
	return s, nil
}

// LoadSession fetches the latest snapshot for id from h and resumes it.
func LoadSession(ctx context.Context, h Historian, id uuid.UUID, cfg Config, opts ...Option) (*Session, error) {
	data, err := h.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return ResumeSession(cfg, snap, append(opts, WithHistorian(h))...)
}

// runJobs performs queued writes in order until the queue is closed.
func (s *Session) runJobs() {
	defer s.bg.Done()
	for job := range s.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		job(ctx)
		cancel()
	}
}

// enqueue queues a background write. Writes run in the order they were
// queued, so a later snapshot never lands before an earlier one.
// Assumes lock is held by caller.
func (s *Session) enqueue(job func(ctx context.Context)) {
	if s.closed {
		return
	}
	select {
	case s.jobs <- job:
	default:
		s.log.Warn("write queue full, dropping write")
	}
}

// closeLocked stops timers and the writer without waiting for it.
// Assumes lock is held by caller.
func (s *Session) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	if s.timers != nil {
		s.timers.Stop()
	}
	close(s.jobs)
}

// logAction records an action in the session's history stream.
// Assumes lock is held by caller.
func (s *Session) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if s.historian == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	rec := cache.GameActionRecord{
		GameID:        s.ID,
		ActionIndex:   s.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	h, log := s.historian, s.log
	s.enqueue(func(ctx context.Context) {
		if err := h.PublishGameAction(ctx, rec); err != nil {
			log.WithError(err).Errorf("failed publishing action %d (%s)", rec.ActionIndex, rec.ActionType)
		}
	})
}

// saveSnapshot stores the current session snapshot.
// Assumes lock is held by caller.
func (s *Session) saveSnapshot() {
	if s.historian == nil {
		return
	}
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		s.log.WithError(err).Error("encode snapshot")
		return
	}
	h, id, log := s.historian, s.ID, s.log
	s.enqueue(func(ctx context.Context) {
		if err := h.SaveSnapshot(ctx, id, data); err != nil {
			log.WithError(err).Error("failed saving snapshot")
		}
	})
}

// handsBySeat maps seat ids to their current hands in two-letter form.
// Assumes lock is held by caller.
func (s *Session) handsBySeat() map[string][]string {
	hands := make(map[string][]string, len(s.Seats))
	for i, seat := range s.Seats {
		hand := s.Engine.Player(uint8(i)).Hand()
		codes := make([]string, len(hand))
		for j, c := range hand {
			codes[j] = c.String()
		}
		hands[seat.ID.String()] = codes
	}
	return hands
}

// persistInitialGameState saves the deal to the database.
// Assumes lock is held by caller.
func (s *Session) persistInitialGameState() {
	state := database.InitialState{
		Seed:         s.Seed,
		StartingSeat: int(s.Engine.Turn()),
		TopCard:      s.Engine.Top().String(),
		DeckSize:     s.Engine.DeckLen(),
		Hands:        s.handsBySeat(),
	}
	s.logAction(uuid.Nil, "game_initial_state_saved", map[string]interface{}{
		"deckSize": state.DeckSize,
		"topCard":  state.TopCard,
		"first":    state.StartingSeat,
	})
	if s.store == nil {
		return
	}
	st, id, log := s.store, s.ID, s.log
	s.enqueue(func(ctx context.Context) {
		if err := st.UpsertInitialGameState(ctx, id, state); err != nil {
			log.WithError(err).Error("failed saving initial state")
		}
	})
}

// persistFinalGameState archives the outcome of a finished game.
// Assumes lock is held by caller.
func (s *Session) persistFinalGameState(winner int, scores map[string]int) {
	if s.store == nil {
		return
	}
	r := database.GameResult{
		GameID:     s.ID,
		WinnerSeat: winner,
		Draw:       winner == engine.WinnerDraw,
		Turns:      int(s.Engine.TurnNumber()),
		Scores:     scores,
		FinalHands: s.handsBySeat(),
	}
	if r.Draw {
		r.WinnerSeat = -1
	}
	st, log := s.store, s.log
	s.enqueue(func(ctx context.Context) {
		if err := st.StoreGameResult(ctx, r); err != nil {
			log.WithError(err).Error("failed storing game result")
		}
	})
}

// IsNoSnapshot reports whether err means nothing was stored for a session.
func IsNoSnapshot(err error) bool { return errors.Is(err, cache.ErrNoSnapshot) }

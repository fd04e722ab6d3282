// internal/game/session.go
package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dqtoy/crazy-eights/engine"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrUnknownSeat is returned when an action names a seat that is not at the table.
var ErrUnknownSeat = errors.New("unknown seat")

// OnGameEndFunc is called when a game finishes. winner is uuid.Nil for a
// drawn game. It runs with the session lock held and must not call back
// into the session.
type OnGameEndFunc func(sessionID uuid.UUID, winner uuid.UUID, scores map[uuid.UUID]int)

// Seat is one place at the table.
type Seat struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Human     bool      `json:"human"`
	Connected bool      `json:"-"`
}

// Config holds per-session settings.
type Config struct {
	Rules       engine.HouseRules
	Timing      engine.Timing
	Seed        uint64        // 0 picks a seed from the clock
	TurnTimeout time.Duration // 0 disables the human turn timer
}

// DefaultConfig returns the standard two-player game with the desktop pacing.
func DefaultConfig() Config {
	return Config{
		Rules:  engine.DefaultHouseRules(),
		Timing: engine.DefaultTiming(),
	}
}

// Session wraps one engine.Game for a table of seats. Seat 0 is the human
// seat; the others are played by the engine's AI strategy.
type Session struct {
	ID    uuid.UUID
	Seed  uint64
	Seats []*Seat

	Engine      *engine.Game
	TurnTimeout time.Duration
	Mu          sync.Mutex

	// Communication callbacks. They run with Mu held.
	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(seatID uuid.UUID, ev GameEvent)
	OnGameEnd           OnGameEndFunc

	historian Historian
	store     ResultStore

	sched   engine.Scheduler
	timers  *TimerScheduler // nil when a scheduler was injected
	baseLog logrus.FieldLogger
	log     *logrus.Entry

	actionIndex int
	jobs        chan func(ctx context.Context)
	bg          sync.WaitGroup
	closed      bool
}

// Option customises a Session at construction.
type Option func(*Session)

// WithScheduler replaces the wall-clock scheduler, e.g. with an engine.ManualScheduler in tests.
func WithScheduler(sched engine.Scheduler) Option { return func(s *Session) { s.sched = sched } }

// WithLogger sets the logger used for the session.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Session) { s.baseLog = l } }

// WithID fixes the session id, used when resuming.
func WithID(id uuid.UUID) Option { return func(s *Session) { s.ID = id } }

// WithSeats fixes the seat table, used when resuming.
func WithSeats(seats []Seat) Option {
	return func(s *Session) {
		s.Seats = s.Seats[:0]
		for i := range seats {
			seat := seats[i]
			seat.Connected = !seat.Human
			s.Seats = append(s.Seats, &seat)
		}
	}
}

// WithHistorian records actions and snapshots through h.
func WithHistorian(h Historian) Option { return func(s *Session) { s.historian = h } }

// WithStore archives deals and results through st.
func WithStore(st ResultStore) Option { return func(s *Session) { s.store = st } }

// NewSession creates a session with a fresh engine. Call Close when done.
func NewSession(cfg Config, opts ...Option) *Session {
	s := &Session{
		ID:          uuid.New(),
		Seed:        cfg.Seed,
		TurnTimeout: cfg.TurnTimeout,
		jobs:        make(chan func(ctx context.Context), 256),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.baseLog == nil {
		s.baseLog = logrus.StandardLogger()
	}
	s.log = s.baseLog.WithField("session", s.ID)
	if s.sched == nil {
		s.timers = NewTimerScheduler(&s.Mu)
		s.sched = s.timers
	}
	if s.Seed == 0 {
		s.Seed = uint64(time.Now().UnixNano())
	}

	s.Engine = engine.NewGame(s.Seed, cfg.Rules,
		engine.WithTiming(cfg.Timing),
		engine.WithScheduler(s.sched),
	)
	if len(s.Seats) != s.Engine.NumPlayers() {
		s.Seats = s.Seats[:0]
		for i := 0; i < s.Engine.NumPlayers(); i++ {
			seat := &Seat{ID: uuid.New(), Name: fmt.Sprintf("AI %d", i), Connected: true}
			if i == 0 {
				seat.Name, seat.Human, seat.Connected = "Player", true, false
			}
			s.Seats = append(s.Seats, seat)
		}
	}
	s.Engine.Subscribe(s.onEngineEvent)

	s.bg.Add(1)
	go s.runJobs()
	return s
}

// HumanSeat returns the id of the human-controlled seat.
func (s *Session) HumanSeat() uuid.UUID { return s.Seats[0].ID }

// Start deals a new game. It returns false if a game is already in progress.
func (s *Session) Start() (bool, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.start()
}

// Reset abandons the current game.
func (s *Session) Reset() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.reset()
}

// HandleAction routes an action from a client seat. Refused actions are
// reported to the seat as private_action_rejected and return nil; an error
// means the seat is unknown or the engine state is broken.
func (s *Session) HandleAction(seatID uuid.UUID, a Action) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	idx, ok := s.seatIndex(seatID)
	if !ok {
		s.log.WithField("seat", seatID).Warnf("action %s from unknown seat", a.ActionType)
		return fmt.Errorf("%w: %s", ErrUnknownSeat, seatID)
	}
	seat := s.Seats[idx]
	if !seat.Human {
		s.reject(seat, a, "seat is played by the computer")
		return nil
	}

	switch a.ActionType {
	case ActionStart:
		ok, err := s.start()
		if err != nil {
			return err
		}
		if !ok {
			s.reject(seat, a, "a game is already in progress")
		}
	case ActionReset:
		s.reset()
	case ActionPlay:
		c, err := engine.ParseCard(a.Card)
		if err != nil {
			s.reject(seat, a, "invalid card")
			return nil
		}
		if !s.isTurnOf(idx) {
			s.reject(seat, a, "it is not your turn")
			return nil
		}
		ok, err := s.Engine.PlayCard(c)
		if err != nil {
			s.log.WithError(err).WithField("card", c.String()).Error("play broke an engine invariant")
			return fmt.Errorf("play %s: %w", c, err)
		}
		if !ok {
			s.reject(seat, a, "that card cannot be played")
			return nil
		}
		s.saveSnapshot()
	case ActionDraw:
		if !s.isTurnOf(idx) {
			s.reject(seat, a, "it is not your turn")
			return nil
		}
		ok, err := s.Engine.DrawCardForCurrentPlayer()
		if err != nil {
			s.log.WithError(err).Error("draw broke an engine invariant")
			return fmt.Errorf("draw: %w", err)
		}
		if !ok {
			s.reject(seat, a, "you cannot draw now")
			return nil
		}
		s.saveSnapshot()
	case ActionSync:
		s.sendSyncState(seat.ID)
	default:
		s.reject(seat, a, "unknown action type")
	}
	return nil
}

// Connect marks a seat connected and sends it the current state.
func (s *Session) Connect(seatID uuid.UUID) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	idx, ok := s.seatIndex(seatID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSeat, seatID)
	}
	s.Seats[idx].Connected = true
	s.log.WithField("seat", seatID).Info("seat connected")
	s.logAction(seatID, "player_connect", nil)
	s.sendSyncState(seatID)
	return nil
}

// Disconnect marks a seat disconnected. The game keeps running; pending
// continuations still fire.
func (s *Session) Disconnect(seatID uuid.UUID) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	idx, ok := s.seatIndex(seatID)
	if !ok || !s.Seats[idx].Connected {
		return
	}
	s.Seats[idx].Connected = false
	s.log.WithField("seat", seatID).Info("seat disconnected")
	s.logAction(seatID, "player_disconnect", nil)
}

// State returns the state as seen from seatID.
func (s *Session) State(seatID uuid.UUID) ObfGameState {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.currentObfuscatedState(seatID)
}

// Close stops pending timers and waits for queued writes to finish.
func (s *Session) Close() {
	s.Mu.Lock()
	s.closeLocked()
	s.Mu.Unlock()
	s.bg.Wait()
}

// start assumes lock is held by caller.
func (s *Session) start() (bool, error) {
	ok, err := s.Engine.StartGame()
	if err != nil {
		s.log.WithError(err).Error("start game failed")
		return false, fmt.Errorf("start game: %w", err)
	}
	if !ok {
		return false, nil
	}
	s.log.WithFields(logrus.Fields{"top": s.Engine.Top().String(), "first": s.Engine.Turn()}).Info("game started")
	s.persistInitialGameState()
	s.saveSnapshot()
	return true, nil
}

// reset assumes lock is held by caller.
func (s *Session) reset() {
	s.Engine.ResetGame()
	s.log.Info("game reset")
	s.logAction(uuid.Nil, string(EventGameReset), nil)
	s.saveSnapshot()
}

func (s *Session) isTurnOf(idx int) bool {
	return s.Engine.Phase().Accepting() && int(s.Engine.Turn()) == idx
}

func (s *Session) seatIndex(id uuid.UUID) (int, bool) {
	for i, seat := range s.Seats {
		if seat.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Session) eventUser(idx int) *EventUser {
	if idx < 0 || idx >= len(s.Seats) {
		return nil
	}
	return &EventUser{ID: s.Seats[idx].ID, Seat: idx}
}

// onEngineEvent translates engine notifications into public and private
// GameEvents. It runs inside engine calls, so the lock is already held.
func (s *Session) onEngineEvent(ev engine.Event) {
	turn := int(ev.Turn)
	delay := ev.Delay.Milliseconds()

	switch ev.Type {
	case engine.EventCardDealt:
		user := s.eventUser(ev.Player)
		s.fireEvent(GameEvent{Type: EventPlayerCardDealt, User: user, DelayMs: delay, Turn: turn})
		s.fireEventToPlayer(user.ID, GameEvent{Type: EventPrivateCardDealt, User: user, Card: toEventCard(ev.Card), DelayMs: delay, Turn: turn})

	case engine.EventTopCardRevealed:
		s.fireEvent(GameEvent{Type: EventGameTopCard, Card: toEventCard(ev.Card), DelayMs: delay, Turn: turn})

	case engine.EventTurnChanged:
		user := s.eventUser(ev.Player)
		s.log.WithFields(logrus.Fields{"turn": turn, "seat": ev.Player}).Debug("turn started")
		s.fireEvent(GameEvent{Type: EventGamePlayerTurn, User: user, Turn: turn})
		s.logAction(user.ID, string(EventGamePlayerTurn), map[string]interface{}{"turn": turn})
		s.scheduleTurnTimer(ev.Player)
		s.saveSnapshot()

	case engine.EventCardPlayed:
		user := s.eventUser(ev.Player)
		s.fireEvent(GameEvent{Type: EventPlayerCardPlayed, User: user, Card: toEventCard(ev.Card), Turn: turn})
		s.logAction(user.ID, string(EventPlayerCardPlayed), map[string]interface{}{"card": ev.Card.String()})

	case engine.EventCardDrawn:
		user := s.eventUser(ev.Player)
		s.fireEvent(GameEvent{Type: EventPlayerCardDrawn, User: user, DelayMs: delay, Turn: turn,
			Payload: map[string]interface{}{"deckSize": s.Engine.DeckLen()}})
		s.fireEventToPlayer(user.ID, GameEvent{Type: EventPrivateCardDrawn, User: user, Card: toEventCard(ev.Card), DelayMs: delay, Turn: turn})
		s.logAction(user.ID, string(EventPlayerCardDrawn), map[string]interface{}{"card": ev.Card.String()})

	case engine.EventDeckExhausted:
		s.log.Info("deck exhausted")
		s.fireEvent(GameEvent{Type: EventGameDeckExhausted, Turn: turn})
		s.logAction(uuid.Nil, string(EventGameDeckExhausted), nil)

	case engine.EventDrawPrompt:
		user := s.eventUser(ev.Player)
		s.fireEventToPlayer(user.ID, GameEvent{Type: EventPrivateDrawPrompt, User: user, Turn: turn})

	case engine.EventGameEnded:
		s.endGame(ev.Winner)

	case engine.EventGameReset:
		s.fireEvent(GameEvent{Type: EventGameReset, Turn: turn})

	case engine.EventFault:
		s.log.WithError(ev.Err).Error("engine invariant violated in a deferred step")
	}
}

// endGame reports results, archives them and runs the OnGameEnd callback.
// Assumes lock is held by caller.
func (s *Session) endGame(winner int) {
	scores := s.Engine.Scores()
	byID := make(map[uuid.UUID]int, len(s.Seats))
	byKey := make(map[string]int, len(s.Seats))
	for i, seat := range s.Seats {
		byID[seat.ID] = scores[i]
		byKey[seat.ID.String()] = scores[i]
	}

	winnerID := uuid.Nil
	if winner >= 0 && winner < len(s.Seats) {
		winnerID = s.Seats[winner].ID
	}
	draw := winner == engine.WinnerDraw

	s.log.WithFields(logrus.Fields{"winner": winner, "draw": draw, "scores": scores}).Info("game ended")
	s.logAction(uuid.Nil, string(EventGameEnd), map[string]interface{}{"winner": winner, "draw": draw, "scores": byKey})
	s.persistFinalGameState(winner, byKey)

	payload := map[string]interface{}{
		"winner": winnerID.String(),
		"draw":   draw,
		"scores": byKey,
	}
	s.fireEvent(GameEvent{Type: EventGameEnd, Turn: int(s.Engine.TurnNumber()), Payload: payload})
	s.broadcastSyncStateToAll()
	s.saveSnapshot()

	if s.OnGameEnd != nil {
		s.OnGameEnd(s.ID, winnerID, byID)
	}
}

// reject tells a seat its action was refused.
// Assumes lock is held by caller.
func (s *Session) reject(seat *Seat, a Action, reason string) {
	s.log.WithFields(logrus.Fields{"seat": seat.ID, "action": a.ActionType, "card": a.Card}).Warnf("action rejected: %s", reason)
	s.fireEventToPlayer(seat.ID, GameEvent{
		Type:    EventPrivateRejected,
		Turn:    int(s.Engine.TurnNumber()),
		Payload: map[string]interface{}{"action": a.ActionType, "message": reason},
	})
}

// fireEvent broadcasts an event to all connected seats via the BroadcastFn callback.
// Assumes lock is held by caller.
func (s *Session) fireEvent(ev GameEvent) {
	if s.BroadcastFn == nil {
		return
	}
	ev.ID = uuid.New()
	s.BroadcastFn(ev)
}

// fireEventToPlayer sends an event to one connected seat.
// Assumes lock is held by caller.
func (s *Session) fireEventToPlayer(seatID uuid.UUID, ev GameEvent) {
	if s.BroadcastToPlayerFn == nil {
		return
	}
	idx, ok := s.seatIndex(seatID)
	if !ok || !s.Seats[idx].Connected || !s.Seats[idx].Human {
		return
	}
	ev.ID = uuid.New()
	s.BroadcastToPlayerFn(seatID, ev)
}

// sendSyncState sends the current obfuscated game state to a single seat.
// Assumes lock is held by caller.
func (s *Session) sendSyncState(seatID uuid.UUID) {
	state := s.currentObfuscatedState(seatID)
	s.fireEventToPlayer(seatID, GameEvent{Type: EventPrivateSyncState, Turn: state.TurnNumber, State: &state})
}

// broadcastSyncStateToAll sends each connected human seat its own view.
// Assumes lock is held by caller.
func (s *Session) broadcastSyncStateToAll() {
	for _, seat := range s.Seats {
		if seat.Human && seat.Connected {
			s.sendSyncState(seat.ID)
		}
	}
}

// Package engine implements the Crazy Eights rules core.
//
// A Game owns its deck, players, owner table and scheduler. It is driven
// from a single goroutine: commands from the presentation layer and
// scheduled continuations must not run concurrently. Delays are modelled
// with a Scheduler so that tests and simulations can run on a logical clock.
package engine

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvariant reports a broken card-ownership or phase invariant.
var ErrInvariant = errors.New("engine invariant violated")

// Game is the orchestrator for one table. Create it once per session and
// reuse it across games with ResetGame and StartGame.
type Game struct {
	Rules  HouseRules
	Timing Timing

	deck    *Deck
	players []*Player
	owners  [DeckSize]Owner

	top       Card
	discarded []Card

	phase         Phase
	turn          uint8
	turnNumber    uint16
	dealt         bool
	mustDraw      bool
	deckExhausted bool
	moveTaken     bool
	winner        int

	epoch uint64
	rng   uint64
	sched Scheduler

	observers []Observer
	err       error
}

// Option customises a Game at construction.
type Option func(*Game)

// WithTiming overrides the default pauses.
func WithTiming(t Timing) Option { return func(g *Game) { g.Timing = t } }

// WithScheduler sets the scheduler used for deferred continuations.
func WithScheduler(s Scheduler) Option { return func(g *Game) { g.sched = s } }

// WithStrategies assigns strategies by seat. Seats without one get AIStrategy.
func WithStrategies(s ...Strategy) Option {
	return func(g *Game) {
		for i, p := range g.players {
			if i < len(s) && s[i] != nil {
				p.Strategy = s[i]
			}
		}
	}
}

// NewGame builds a game with the given seed and rules. By default seat 0 is
// human, every other seat is AI, and continuations go to a ManualScheduler.
func NewGame(seed uint64, rules HouseRules, opts ...Option) *Game {
	g := &Game{
		Rules:  rules,
		Timing: DefaultTiming(),
		deck:   NewDeck(seed),
		top:    EmptyCard,
		winner: WinnerNone,
		rng:    seed ^ 0x9E3779B97F4A7C15,
		sched:  NewManualScheduler(),
	}
	if g.rng == 0 {
		g.rng = 1
	}
	n := rules.numPlayers()
	if n > MaxPlayers {
		n = MaxPlayers
		g.Rules.NumPlayers = MaxPlayers
	}
	for i := uint8(0); i < n; i++ {
		var s Strategy = AIStrategy{}
		if i == 0 {
			s = HumanStrategy{}
		}
		g.players = append(g.players, NewPlayer(i, s))
	}
	for i := range g.owners {
		g.owners[i] = OwnerDeck
	}
	g.deck.OnExhausted(g.NotifyDeckExhausted)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// xorshift64, separate from the deck's source.
func (g *Game) nextRand() uint64 {
	x := g.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.rng = x
	return x
}

// randN returns a random number in [0, n).
func (g *Game) randN(n uint64) uint64 {
	return g.nextRand() % n
}

func (g *Game) transition(t Transition) error {
	next, ok := g.phase.Next(t)
	if !ok {
		return fmt.Errorf("%w: transition %s from phase %s", ErrInvariant, t, g.phase)
	}
	g.phase = next
	return nil
}

// schedule defers fn. A reset or restore in between turns fn into a no-op.
func (g *Game) schedule(d time.Duration, fn func()) {
	epoch := g.epoch
	g.sched.After(d, func() {
		if g.epoch != epoch {
			return
		}
		fn()
	})
}

// fault records the first invariant violation seen by a continuation.
func (g *Game) fault(err error) {
	if g.err == nil {
		g.err = err
	}
	g.emit(Event{Type: EventFault, Player: -1, Card: EmptyCard, Winner: WinnerNone, Err: err})
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// StartGame shuffles, deals CardsPerPlayer cards to each player alternately,
// reveals the top card and picks a random starting player. It returns false
// without changing anything if a game is already in progress.
func (g *Game) StartGame() (bool, error) {
	switch g.phase {
	case PhaseNotStarted:
	case PhaseEnded:
		g.ResetGame()
	default:
		return false, nil
	}

	n := uint8(len(g.players))
	if int(g.Rules.CardsPerPlayer)*int(n)+1 > DeckSize {
		return false, fmt.Errorf("deal %d cards to %d players: not enough cards", g.Rules.CardsPerPlayer, n)
	}

	g.epoch++
	if err := g.transition(TransDeal); err != nil {
		return false, err
	}

	g.deck.Reset()
	for _, p := range g.players {
		p.ResetHand()
	}
	g.top = EmptyCard
	g.deckExhausted = false
	g.mustDraw = false
	g.moveTaken = false
	g.winner = WinnerNone
	g.turnNumber = 0
	g.discarded = g.discarded[:0]
	for i := range g.owners {
		g.owners[i] = OwnerDeck
	}

	seq := 0
	for c := uint8(0); c < g.Rules.CardsPerPlayer; c++ {
		for p := uint8(0); p < n; p++ {
			card, err := g.drawTo(p)
			if err != nil {
				return false, fmt.Errorf("deal: %w", err)
			}
			g.emitPlayer(EventCardDealt, p, card, time.Duration(seq)*g.Timing.DealStagger)
			seq++
		}
	}

	top, err := g.deck.Draw()
	if err != nil {
		return false, fmt.Errorf("reveal top card: %w", err)
	}
	g.owners[top] = OwnerInPlay
	g.top = top
	ev := Event{Type: EventTopCardRevealed, Player: -1, Card: top, Delay: time.Duration(seq) * g.Timing.DealStagger, Winner: WinnerNone}
	g.emit(ev)

	if err := g.transition(TransReveal); err != nil {
		return false, err
	}
	g.dealt = true
	g.turn = uint8(g.randN(uint64(n)))
	g.beginTurn()
	return true, nil
}

// ResetGame abandons the current game, returns all cards and cancels every
// pending continuation. StartGame may be called afterwards.
func (g *Game) ResetGame() {
	g.epoch++
	for _, p := range g.players {
		for _, c := range p.ResetHand() {
			g.owners[c] = OwnerDeck
		}
	}
	if g.top != EmptyCard {
		g.owners[g.top] = OwnerDeck
	}
	for _, c := range g.discarded {
		g.owners[c] = OwnerDeck
	}
	g.top = EmptyCard
	g.discarded = g.discarded[:0]
	g.winner = WinnerNone
	g.mustDraw = false
	g.moveTaken = false
	g.dealt = false
	g.deckExhausted = false
	g.turnNumber = 0
	g.err = nil
	g.phase, _ = g.phase.Next(TransReset)
	g.emitGlobal(EventGameReset)
}

// NotifyDeckExhausted records that the deck ran out. The deck calls it when
// a draw takes the last card.
func (g *Game) NotifyDeckExhausted() {
	if g.deckExhausted {
		return
	}
	g.deckExhausted = true
	g.emitGlobal(EventDeckExhausted)
}

// beginTurn announces the current player and hands control to its strategy.
func (g *Game) beginTurn() {
	g.moveTaken = false
	g.mustDraw = false
	p := g.players[g.turn]
	g.emitPlayer(EventTurnChanged, p.ID, EmptyCard, 0)
	if p.Strategy != nil {
		p.Strategy.OnTurnStart(g, p)
	}
}

// drawTo moves the next deck card into player id's hand.
func (g *Game) drawTo(id uint8) (Card, error) {
	c, err := g.deck.Draw()
	if err != nil {
		return EmptyCard, err
	}
	if g.owners[c] != OwnerDeck {
		return EmptyCard, fmt.Errorf("%w: drew %s owned by %d", ErrInvariant, c, g.owners[c])
	}
	g.owners[c] = Owner(id)
	g.players[id].Receive(c)
	return c, nil
}

// ---------------------------------------------------------------------------
// Query methods
// ---------------------------------------------------------------------------

// Phase returns the current lifecycle phase.
func (g *Game) Phase() Phase { return g.phase }

// IsTerminal returns true when the game is over.
func (g *Game) IsTerminal() bool { return g.phase == PhaseEnded }

// Top returns the current top card, or EmptyCard before the reveal.
func (g *Game) Top() Card { return g.top }

// Turn returns the index of the player whose turn it is.
func (g *Game) Turn() uint8 { return g.turn }

// TurnNumber counts completed turn transitions in the current game.
func (g *Game) TurnNumber() uint16 { return g.turnNumber }

// Winner returns WinnerNone, WinnerDraw, or the winning player id.
func (g *Game) Winner() int { return g.winner }

func (g *Game) Dealt() bool         { return g.dealt }
func (g *Game) MustDraw() bool      { return g.mustDraw }
func (g *Game) DeckExhausted() bool { return g.deckExhausted }
func (g *Game) MoveTaken() bool     { return g.moveTaken }

// Epoch changes whenever a game starts, resets or is restored.
func (g *Game) Epoch() uint64 { return g.epoch }

// Err returns the first invariant violation raised by a deferred continuation.
func (g *Game) Err() error { return g.err }

// NumPlayers returns the number of seats.
func (g *Game) NumPlayers() int { return len(g.players) }

// Player returns the player at seat id.
func (g *Game) Player(id uint8) *Player { return g.players[id] }

// DeckLen returns the number of undealt cards.
func (g *Game) DeckLen() int { return g.deck.Len() }

// Owner returns where c currently lives.
func (g *Game) Owner(c Card) Owner { return g.owners[c] }

// Discarded returns the former top cards, oldest first.
func (g *Game) Discarded() []Card {
	out := make([]Card, len(g.discarded))
	copy(out, g.discarded)
	return out
}

// HasLegalMove reports whether player id holds any card playable on the top card.
func (g *Game) HasLegalMove(id uint8) bool {
	_, ok := g.players[id].FirstLegalMove(g.top)
	return ok
}

// NextPlayer returns the next player after current in turn order.
func (g *Game) NextPlayer(current uint8) uint8 {
	return (current + 1) % uint8(len(g.players))
}

// internal/game/sync_state.go
package game

import (
	"github.com/dqtoy/crazy-eights/engine"
	"github.com/google/uuid"
)

// ObfCard represents a card's state for client synchronization.
type ObfCard struct {
	Code  string `json:"code"`
	Rank  string `json:"rank"`
	Suit  string `json:"suit"`
	Value int    `json:"value"`
	Idx   *int   `json:"idx,omitempty"` // Position in hand, for hand cards.
}

// ObfPlayerState represents the state of a single seat, obfuscated for a specific observer.
type ObfPlayerState struct {
	SeatID        uuid.UUID `json:"seatId"`
	Seat          int       `json:"seat"`
	Name          string    `json:"name"`
	Human         bool      `json:"human"`
	Connected     bool      `json:"connected"`
	HandSize      int       `json:"handSize"`
	IsCurrentTurn bool      `json:"isCurrentTurn"`
	// RevealedHand, LegalMoves and MustDraw are populated only for the requesting seat.
	RevealedHand []ObfCard `json:"revealedHand,omitempty"`
	LegalMoves   []string  `json:"legalMoves,omitempty"`
	MustDraw     bool      `json:"mustDraw,omitempty"`
}

// ObfGameState represents the overall game state, obfuscated for a specific observer.
type ObfGameState struct {
	SessionID      uuid.UUID         `json:"sessionId"`
	Phase          string            `json:"phase"`
	Started        bool              `json:"started"`
	GameOver       bool              `json:"gameOver"`
	CurrentSeatID  uuid.UUID         `json:"currentSeatId"`
	TurnNumber     int               `json:"turnNumber"`
	DeckSize       int               `json:"deckSize"`
	DeckExhausted  bool              `json:"deckExhausted"`
	DiscardedCount int               `json:"discardedCount"`
	Top            *ObfCard          `json:"top,omitempty"`
	Players        []ObfPlayerState  `json:"players"`
	WinnerSeatID   uuid.UUID         `json:"winnerSeatId,omitempty"`
	Draw           bool              `json:"draw"`
	HouseRules     engine.HouseRules `json:"houseRules"`
}

func toObfCard(c engine.Card) *ObfCard {
	if !c.Valid() {
		return nil
	}
	return &ObfCard{Code: c.String(), Rank: c.RankString(), Suit: c.SuitString(), Value: c.Value()}
}

// currentObfuscatedState builds the state as seen from forSeat. Opponent
// hands are reported as a count only.
// Assumes lock is held by caller.
func (s *Session) currentObfuscatedState(forSeat uuid.UUID) ObfGameState {
	g := s.Engine
	phase := g.Phase()
	inPlay := phase == engine.PhaseAwaitingMove || phase == engine.PhaseTurnEnding

	obf := ObfGameState{
		SessionID:      s.ID,
		Phase:          phase.String(),
		Started:        g.Dealt() || g.IsTerminal(),
		GameOver:       g.IsTerminal(),
		TurnNumber:     int(g.TurnNumber()),
		DeckSize:       g.DeckLen(),
		DeckExhausted:  g.DeckExhausted(),
		DiscardedCount: len(g.Discarded()),
		Top:            toObfCard(g.Top()),
		Draw:           g.Winner() == engine.WinnerDraw,
		HouseRules:     g.Rules,
	}
	if inPlay {
		obf.CurrentSeatID = s.Seats[g.Turn()].ID
	}
	if w := g.Winner(); w >= 0 && w < len(s.Seats) {
		obf.WinnerSeatID = s.Seats[w].ID
	}

	obf.Players = make([]ObfPlayerState, len(s.Seats))
	for i, seat := range s.Seats {
		p := g.Player(uint8(i))
		ps := ObfPlayerState{
			SeatID:        seat.ID,
			Seat:          i,
			Name:          seat.Name,
			Human:         seat.Human,
			Connected:     seat.Connected,
			HandSize:      p.HandLen(),
			IsCurrentTurn: inPlay && int(g.Turn()) == i,
		}
		if seat.ID == forSeat {
			hand := p.Hand()
			ps.RevealedHand = make([]ObfCard, len(hand))
			for j, c := range hand {
				idx := j
				ps.RevealedHand[j] = *toObfCard(c)
				ps.RevealedHand[j].Idx = &idx
			}
			for _, c := range g.LegalMoves(uint8(i)) {
				ps.LegalMoves = append(ps.LegalMoves, c.String())
			}
			ps.MustDraw = ps.IsCurrentTurn && g.MustDraw() && !g.MoveTaken()
		}
		obf.Players[i] = ps
	}
	return obf
}

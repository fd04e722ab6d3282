// internal/game/events.go
package game

import (
	"github.com/dqtoy/crazy-eights/engine"
	"github.com/google/uuid"
)

// GameEventType represents the type of a game-related event broadcast via WebSockets.
type GameEventType string

// Constants defining the various GameEvent types used for WebSocket communication.
const (
	EventGamePlayerTurn    GameEventType = "game_player_turn"        // Public: the acting seat changed.
	EventPlayerCardDealt   GameEventType = "player_card_dealt"       // Public: a seat received a dealt card (hidden).
	EventPrivateCardDealt  GameEventType = "private_card_dealt"      // Private: the dealt card's face.
	EventGameTopCard       GameEventType = "game_top_card"           // Public: the opening top card.
	EventPlayerCardPlayed  GameEventType = "player_card_played"      // Public: a card went on top.
	EventPlayerCardDrawn   GameEventType = "player_card_drawn"       // Public: a seat drew (hidden).
	EventPrivateCardDrawn  GameEventType = "private_card_drawn"      // Private: the drawn card's face.
	EventGameDeckExhausted GameEventType = "game_deck_exhausted"     // Public: the last card left the deck.
	EventPrivateDrawPrompt GameEventType = "private_draw_prompt"     // Private: nothing playable, tap the deck.
	EventPrivateRejected   GameEventType = "private_action_rejected" // Private: an action was refused.
	EventPrivateSyncState  GameEventType = "private_sync_state"      // Private: full state for one seat.
	EventPlayerTimeout     GameEventType = "player_timeout"          // Public: the turn timer moved for a seat.
	EventGameReset         GameEventType = "game_reset"              // Public: the table was cleared.
	EventGameEnd           GameEventType = "game_end"                // Public: game over, includes results.
)

// EventUser identifies a seat within a GameEvent payload.
type EventUser struct {
	ID   uuid.UUID `json:"id"`
	Seat int       `json:"seat"`
}

// EventCard describes a card within a GameEvent payload.
type EventCard struct {
	Code  string `json:"code"` // two-letter form, e.g. "8H"
	Rank  string `json:"rank"`
	Suit  string `json:"suit"`
	Value int    `json:"value"`
}

// GameEvent is the standard structure for broadcasting game state changes and actions.
type GameEvent struct {
	ID      uuid.UUID     `json:"id"`
	Type    GameEventType `json:"type"`
	User    *EventUser    `json:"user,omitempty"`
	Card    *EventCard    `json:"card,omitempty"`
	DelayMs int64         `json:"delayMs,omitempty"` // presentation offset, e.g. deal stagger
	Turn    int           `json:"turn"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	State *ObfGameState `json:"state,omitempty"` // Full obfuscated state for sync events.
}

// Action is a command sent by a client.
type Action struct {
	ActionType string `json:"type"`
	Card       string `json:"card,omitempty"` // two-letter form for action_play
}

// Action types accepted by Session.HandleAction.
const (
	ActionStart = "action_start"
	ActionReset = "action_reset"
	ActionPlay  = "action_play"
	ActionDraw  = "action_draw"
	ActionSync  = "action_sync"
)

func toEventCard(c engine.Card) *EventCard {
	if !c.Valid() {
		return nil
	}
	return &EventCard{
		Code:  c.String(),
		Rank:  c.RankString(),
		Suit:  c.SuitString(),
		Value: c.Value(),
	}
}

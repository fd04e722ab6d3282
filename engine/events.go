package engine

import "time"

// EventType identifies an engine notification.
type EventType string

const (
	EventTurnChanged     EventType = "turn_changed"
	EventCardDealt       EventType = "card_dealt"
	EventCardPlayed      EventType = "card_played"
	EventCardDrawn       EventType = "card_drawn"
	EventTopCardRevealed EventType = "top_card_revealed"
	EventDeckExhausted   EventType = "deck_exhausted"
	EventDrawPrompt      EventType = "draw_prompt" // human has no legal move and may tap the deck
	EventGameEnded       EventType = "game_ended"
	EventGameReset       EventType = "game_reset"
	EventFault           EventType = "fault" // an invariant broke inside a deferred continuation
)

// Event is emitted to subscribers in the order state changes happen.
// Fields that do not apply to a type are left at their zero value, except
// Player and Winner which use -1 for "none".
type Event struct {
	Type   EventType
	Player int
	Card   Card
	Delay  time.Duration // presentation offset, e.g. deal stagger
	Turn   uint16        // turn counter at emission
	Winner int
	Err    error
}

// Observer receives engine events.
type Observer func(Event)

// Subscribe registers obs. Observers are called synchronously in registration order.
func (g *Game) Subscribe(obs Observer) {
	g.observers = append(g.observers, obs)
}

func (g *Game) emit(ev Event) {
	ev.Turn = g.turnNumber
	for _, obs := range g.observers {
		obs(ev)
	}
}

func (g *Game) emitPlayer(t EventType, player uint8, c Card, delay time.Duration) {
	g.emit(Event{Type: t, Player: int(player), Card: c, Delay: delay, Winner: WinnerNone})
}

func (g *Game) emitGlobal(t EventType) {
	g.emit(Event{Type: t, Player: -1, Card: EmptyCard, Winner: WinnerNone})
}

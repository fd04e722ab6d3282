package engine

import "fmt"

// MarshalText encodes a card in its two-letter form.
func (c Card) MarshalText() ([]byte, error) {
	if c != EmptyCard && !c.Valid() {
		return nil, fmt.Errorf("marshal card %d: out of range", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes the form produced by MarshalText.
func (c *Card) UnmarshalText(b []byte) error {
	if string(b) == EmptyCard.String() {
		*c = EmptyCard
		return nil
	}
	parsed, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Snapshot is a serialisable copy of a game in progress. Deck is in storage
// order: the last element is the next card drawn.
type Snapshot struct {
	Rules         HouseRules `json:"rules"`
	Phase         Phase      `json:"phase"`
	Deck          []Card     `json:"deck"`
	Hands         [][]Card   `json:"hands"`
	Top           Card       `json:"top"`
	Discarded     []Card     `json:"discarded"`
	Turn          uint8      `json:"turn"`
	TurnNumber    uint16     `json:"turnNumber"`
	Dealt         bool       `json:"dealt"`
	MustDraw      bool       `json:"mustDraw"`
	DeckExhausted bool       `json:"deckExhausted"`
	MoveTaken     bool       `json:"moveTaken"`
	Winner        int        `json:"winner"`

	// Random sources, so a restored game deals the same next game as the
	// original would. Zero keeps the sources seeded at construction.
	RNG     uint64 `json:"rng,omitempty"`
	DeckRNG uint64 `json:"deckRng,omitempty"`
}

// Save returns a snapshot of the current game state.
func (g *Game) Save() Snapshot {
	s := Snapshot{
		Rules:         g.Rules,
		Phase:         g.phase,
		Deck:          g.deck.Cards(),
		Top:           g.top,
		Discarded:     g.Discarded(),
		Turn:          g.turn,
		TurnNumber:    g.turnNumber,
		Dealt:         g.dealt,
		MustDraw:      g.mustDraw,
		DeckExhausted: g.deckExhausted,
		MoveTaken:     g.moveTaken,
		Winner:        g.winner,
		RNG:           g.rng,
		DeckRNG:       g.deck.rng,
	}
	for _, p := range g.players {
		s.Hands = append(s.Hands, p.Hand())
	}
	return s
}

// Restore replaces the game state with s after checking that every card is
// accounted for exactly once. Pending continuations from before the restore
// are dropped; an unfinished turn is resumed.
func (g *Game) Restore(s Snapshot) error {
	if len(s.Hands) != len(g.players) {
		return fmt.Errorf("%w: snapshot has %d hands, game has %d players", ErrInvariant, len(s.Hands), len(g.players))
	}
	if int(s.Turn) >= len(g.players) {
		return fmt.Errorf("%w: snapshot turn %d out of range", ErrInvariant, s.Turn)
	}
	if s.Phase > PhaseEnded {
		return fmt.Errorf("%w: snapshot phase %d unknown", ErrInvariant, s.Phase)
	}
	if err := checkPhaseState(s, len(g.players)); err != nil {
		return err
	}
	owners, err := ownersOf(s)
	if err != nil {
		return err
	}

	g.epoch++
	if s.RNG != 0 {
		g.rng = s.RNG
	}
	if s.DeckRNG != 0 {
		g.deck.rng = s.DeckRNG
	}
	g.owners = owners
	g.deck.load(s.Deck)
	for i, p := range g.players {
		p.ResetHand()
		for _, c := range s.Hands[i] {
			p.Receive(c)
		}
	}
	g.top = s.Top
	g.discarded = append(g.discarded[:0], s.Discarded...)
	g.phase = s.Phase
	g.turn = s.Turn
	g.turnNumber = s.TurnNumber
	g.dealt = s.Dealt
	g.mustDraw = s.MustDraw
	g.deckExhausted = s.DeckExhausted
	g.moveTaken = s.MoveTaken
	g.winner = s.Winner
	g.err = nil

	switch g.phase {
	case PhaseTurnEnding:
		g.schedule(g.Timing.EndTurnDelay, g.resolveTurn)
	case PhaseAwaitingMove:
		if !g.moveTaken {
			if p := g.players[g.turn]; p.Strategy != nil {
				p.Strategy.OnTurnStart(g, p)
			}
		}
	}
	return nil
}

// checkPhaseState rejects snapshots whose top card, hands or winner do not
// fit their phase.
func checkPhaseState(s Snapshot, players int) error {
	switch s.Phase {
	case PhaseDealing:
		return fmt.Errorf("%w: snapshot taken mid-deal", ErrInvariant)
	case PhaseNotStarted:
		if s.Top != EmptyCard || len(s.Discarded) > 0 {
			return fmt.Errorf("%w: cards in play before the deal", ErrInvariant)
		}
		for i, hand := range s.Hands {
			if len(hand) > 0 {
				return fmt.Errorf("%w: seat %d holds %d cards before the deal", ErrInvariant, i, len(hand))
			}
		}
	default:
		if !s.Top.Valid() {
			return fmt.Errorf("%w: phase %s without a top card", ErrInvariant, s.Phase)
		}
	}

	switch {
	case s.Phase == PhaseEnded:
		if s.Winner != WinnerDraw && (s.Winner < 0 || s.Winner >= players) {
			return fmt.Errorf("%w: ended game with winner %d", ErrInvariant, s.Winner)
		}
	case s.Winner != WinnerNone:
		return fmt.Errorf("%w: phase %s with winner %d", ErrInvariant, s.Phase, s.Winner)
	}
	return nil
}

// ownersOf builds the owner table implied by s, failing on duplicates or,
// once cards are in play, on missing identities.
func ownersOf(s Snapshot) ([DeckSize]Owner, error) {
	var owners [DeckSize]Owner
	var seen [DeckSize]bool
	total := 0
	place := func(c Card, o Owner) error {
		if !c.Valid() {
			return fmt.Errorf("%w: card %d out of range", ErrInvariant, uint8(c))
		}
		if seen[c] {
			return fmt.Errorf("%w: card %s appears twice", ErrInvariant, c)
		}
		seen[c] = true
		owners[c] = o
		total++
		return nil
	}

	for _, c := range s.Deck {
		if err := place(c, OwnerDeck); err != nil {
			return owners, err
		}
	}
	for i, hand := range s.Hands {
		for _, c := range hand {
			if err := place(c, Owner(i)); err != nil {
				return owners, err
			}
		}
	}
	if s.Top != EmptyCard {
		if err := place(s.Top, OwnerInPlay); err != nil {
			return owners, err
		}
	}
	for _, c := range s.Discarded {
		if err := place(c, OwnerDiscarded); err != nil {
			return owners, err
		}
	}

	inPlay := s.Phase != PhaseNotStarted && s.Phase != PhaseDealing
	if inPlay && total != DeckSize {
		return owners, fmt.Errorf("%w: %d of %d cards accounted for", ErrInvariant, total, DeckSize)
	}
	for i := range owners {
		if !seen[i] {
			owners[i] = OwnerDeck
		}
	}
	return owners, nil
}

// CheckInvariants verifies that deck, hands, top card and discarded cards
// together hold every identity exactly once and agree with the owner table.
func (g *Game) CheckInvariants() error {
	owners, err := ownersOf(g.Save())
	if err != nil {
		return err
	}
	if g.phase == PhaseNotStarted || g.phase == PhaseDealing {
		return nil
	}
	for i := range owners {
		if owners[i] != g.owners[i] {
			return fmt.Errorf("%w: card %s owner table says %d, containers say %d", ErrInvariant, Card(i), g.owners[i], owners[i])
		}
	}
	return nil
}

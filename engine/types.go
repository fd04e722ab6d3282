package engine

import "fmt"

// Suit constants. The ordinal matches the card numbering id = suit*13 + rank.
const (
	SuitHearts   uint8 = 0
	SuitSpades   uint8 = 1
	SuitDiamonds uint8 = 2
	SuitClubs    uint8 = 3
)

// Rank constants.
const (
	RankAce   uint8 = 0
	RankTwo   uint8 = 1
	RankThree uint8 = 2
	RankFour  uint8 = 3
	RankFive  uint8 = 4
	RankSix   uint8 = 5
	RankSeven uint8 = 6
	RankEight uint8 = 7
	RankNine  uint8 = 8
	RankTen   uint8 = 9
	RankJack  uint8 = 10
	RankQueen uint8 = 11
	RankKing  uint8 = 12
)

const (
	NumSuits = 4
	NumRanks = 13
	DeckSize = NumSuits * NumRanks
)

// Card is a card identity in [0, DeckSize): suit*13 + rank.
type Card uint8

// EmptyCard represents the absence of a card.
const EmptyCard Card = 0xFF

// NewCard constructs a Card from suit and rank.
func NewCard(suit, rank uint8) Card {
	return Card(suit*NumRanks + rank)
}

// Suit returns the card's suit.
func (c Card) Suit() uint8 { return uint8(c) / NumRanks }

// Rank returns the card's rank.
func (c Card) Rank() uint8 { return uint8(c) % NumRanks }

// Valid reports whether c is one of the 52 identities.
func (c Card) Valid() bool { return c < DeckSize }

var rankNames = [NumRanks]string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "T", "J", "Q", "K"}
var suitNames = [NumSuits]string{"H", "S", "D", "C"}

// RankString returns the short rank name ("A", "2", ..., "K").
func (c Card) RankString() string {
	if !c.Valid() {
		return "?"
	}
	return rankNames[c.Rank()]
}

// SuitString returns the short suit name ("H", "S", "D", "C").
func (c Card) SuitString() string {
	if !c.Valid() {
		return "?"
	}
	return suitNames[c.Suit()]
}

func (c Card) String() string {
	if c == EmptyCard {
		return "--"
	}
	return c.RankString() + c.SuitString()
}

// ParseCard parses the two-letter form produced by Card.String, e.g. "8H" or "TS".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return EmptyCard, fmt.Errorf("parse card %q: want 2 characters", s)
	}
	rank, suit := -1, -1
	for i, n := range rankNames {
		if n[0] == s[0] {
			rank = i
		}
	}
	for i, n := range suitNames {
		if n[0] == s[1] {
			suit = i
		}
	}
	if rank < 0 || suit < 0 {
		return EmptyCard, fmt.Errorf("parse card %q: unknown rank or suit", s)
	}
	return NewCard(uint8(suit), uint8(rank)), nil
}

// Owner records where a card identity currently lives.
// Values >= 0 are player ids.
type Owner int8

const (
	OwnerDeck      Owner = -1 // undealt
	OwnerInPlay    Owner = -2 // the current top card
	OwnerDiscarded Owner = -3 // a former top card, out of the game
)

// IsPlayer reports whether o names a player.
func (o Owner) IsPlayer() bool { return o >= 0 }

// Winner sentinels.
const (
	WinnerNone = -1
	WinnerDraw = -2
)

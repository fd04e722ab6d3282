package engine

import "errors"

// ErrEmptyDeck is returned by Deck.Draw when no cards remain.
var ErrEmptyDeck = errors.New("deck is empty")

// Deck is the ordered stack of undealt card identities.
// It owns its random source so shuffles are reproducible from the seed alone.
type Deck struct {
	cards [DeckSize]Card
	n     uint8
	rng   uint64

	onExhausted func()
}

// NewDeck returns an empty deck seeded with seed. Call Reset before drawing.
func NewDeck(seed uint64) *Deck {
	d := &Deck{rng: seed}
	if d.rng == 0 {
		d.rng = 1 // xorshift can't start at 0
	}
	return d
}

// OnExhausted registers fn to run when a draw takes the last card.
func (d *Deck) OnExhausted(fn func()) { d.onExhausted = fn }

// xorshift64
func (d *Deck) nextRand() uint64 {
	x := d.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	d.rng = x
	return x
}

// Reset refills the deck with all 52 identities and shuffles them.
func (d *Deck) Reset() {
	for i := 0; i < DeckSize; i++ {
		d.cards[i] = Card(i)
	}
	d.n = DeckSize

	// Fisher-Yates, forward form: position i takes a uniform pick from [i, n-1].
	n := int(d.n)
	for i := 0; i < n; i++ {
		j := i + int(d.nextRand()%uint64(n-i))
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the next card. The last element is drawn first.
func (d *Deck) Draw() (Card, error) {
	if d.n == 0 {
		return EmptyCard, ErrEmptyDeck
	}
	d.n--
	c := d.cards[d.n]
	if d.n == 0 && d.onExhausted != nil {
		d.onExhausted()
	}
	return c, nil
}

// Len returns the number of undealt cards.
func (d *Deck) Len() int { return int(d.n) }

// IsEmpty reports whether the deck has no cards left.
func (d *Deck) IsEmpty() bool { return d.n == 0 }

// Cards returns a copy of the remaining cards in storage order (the last one is drawn next).
func (d *Deck) Cards() []Card {
	out := make([]Card, d.n)
	copy(out, d.cards[:d.n])
	return out
}

// load replaces the deck contents, used when restoring a snapshot.
func (d *Deck) load(cards []Card) {
	d.n = uint8(copy(d.cards[:], cards))
}

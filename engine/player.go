package engine

import (
	"errors"
	"fmt"
)

// ErrCardNotInHand is returned by Player.Remove when the card is not held.
var ErrCardNotInHand = errors.New("card not in hand")

// Player holds one seat's hand and decision strategy.
type Player struct {
	ID       uint8
	Strategy Strategy

	hand []Card // insertion order; FirstLegalMove depends on it
}

// NewPlayer returns a player with an empty hand.
func NewPlayer(id uint8, strategy Strategy) *Player {
	return &Player{ID: id, Strategy: strategy, hand: make([]Card, 0, DeckSize)}
}

// Hand returns a copy of the hand in insertion order.
func (p *Player) Hand() []Card {
	out := make([]Card, len(p.hand))
	copy(out, p.hand)
	return out
}

// HandLen returns the number of cards held.
func (p *Player) HandLen() int { return len(p.hand) }

// Has reports whether c is in the hand.
func (p *Player) Has(c Card) bool {
	for _, h := range p.hand {
		if h == c {
			return true
		}
	}
	return false
}

// FirstLegalMove scans the hand oldest-first and returns the first card legal on top.
func (p *Player) FirstLegalMove(top Card) (Card, bool) {
	for _, c := range p.hand {
		if IsLegal(top, c) {
			return c, true
		}
	}
	return EmptyCard, false
}

// Receive appends c to the hand.
func (p *Player) Receive(c Card) {
	p.hand = append(p.hand, c)
}

// Remove takes c out of the hand, preserving the order of the rest.
func (p *Player) Remove(c Card) error {
	for i, h := range p.hand {
		if h == c {
			p.hand = append(p.hand[:i], p.hand[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("player %d: remove %s: %w", p.ID, c, ErrCardNotInHand)
}

// ResetHand empties the hand and returns the released cards.
func (p *Player) ResetHand() []Card {
	released := p.Hand()
	p.hand = p.hand[:0]
	return released
}

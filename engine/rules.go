package engine

import "time"

// WildRank is the rank that can be played on any top card (the eight).
const WildRank = RankEight

// MaxPlayers bounds the player table. The ruleset is designed for two.
const MaxPlayers = 4

// HouseRules holds configurable game settings.
type HouseRules struct {
	CardsPerPlayer uint8 `json:"cardsPerPlayer"`
	NumPlayers     uint8 `json:"numPlayers"` // 0 treated as 2
}

// DefaultHouseRules returns the standard two-player, seven-card rules.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		CardsPerPlayer: 7,
		NumPlayers:     2,
	}
}

// numPlayers returns the effective number of players, treating 0 as 2.
func (r *HouseRules) numPlayers() uint8 {
	if r.NumPlayers == 0 {
		return 2
	}
	return r.NumPlayers
}

// Timing holds the scheduling pauses the engine inserts between actions.
// They only order continuations; no rule depends on their length.
type Timing struct {
	EndTurnDelay time.Duration // between an action and the end-of-turn evaluation
	ThinkDelay   time.Duration // AI pause before deciding
	DealStagger  time.Duration // per-card presentation offset while dealing
	AIDrawDelay  time.Duration // presentation offset for a card drawn by the AI
}

// DefaultTiming mirrors the pacing of the desktop game.
func DefaultTiming() Timing {
	return Timing{
		EndTurnDelay: 500 * time.Millisecond,
		ThinkDelay:   time.Second,
		DealStagger:  400 * time.Millisecond,
		AIDrawDelay:  400 * time.Millisecond,
	}
}

// IsLegal reports whether candidate may be played on top.
// Only the candidate's rank is checked against WildRank.
func IsLegal(top, candidate Card) bool {
	return candidate.Rank() == top.Rank() ||
		candidate.Suit() == top.Suit() ||
		candidate.Rank() == WildRank
}

package engine

// Value returns the penalty points a card counts for when left in hand:
// eights 50, tens and faces 10, aces 1, other ranks their pip value.
func (c Card) Value() int {
	switch r := c.Rank(); {
	case r == WildRank:
		return 50
	case r == RankAce:
		return 1
	case r >= RankTen:
		return 10
	default:
		return int(r) + 1
	}
}

// HandPoints returns the penalty total of each player's hand.
func (g *Game) HandPoints() []int {
	points := make([]int, len(g.players))
	for i, p := range g.players {
		for _, c := range p.hand {
			points[i] += c.Value()
		}
	}
	return points
}

// Scores returns the points each player earns for the finished game.
// The winner collects the penalty total of every other hand; a drawn or
// unfinished game scores nothing.
func (g *Game) Scores() []int {
	scores := make([]int, len(g.players))
	if !g.IsTerminal() || g.winner < 0 {
		return scores
	}
	for i, pts := range g.HandPoints() {
		if i != g.winner {
			scores[g.winner] += pts
		}
	}
	return scores
}

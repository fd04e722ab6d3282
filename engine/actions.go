package engine

import "fmt"

// PlayCard plays c for the current player. It returns false without changing
// state when the play is not allowed: wrong phase, a move already taken this
// turn, a card the current player does not hold, or a card that does not
// match the top. An error means the owner table and the hand disagree.
func (g *Game) PlayCard(c Card) (bool, error) {
	if !g.phase.Accepting() || g.moveTaken || !c.Valid() {
		return false, nil
	}
	acting := g.turn
	if g.owners[c] != Owner(acting) {
		return false, nil
	}
	if !IsLegal(g.top, c) {
		return false, nil
	}
	if err := g.players[acting].Remove(c); err != nil {
		return false, fmt.Errorf("%w: play: %w", ErrInvariant, err)
	}

	g.moveTaken = true

	// The previous top leaves the game; it is not returned to the deck.
	prev := g.top
	g.owners[prev] = OwnerDiscarded
	g.discarded = append(g.discarded, prev)

	g.owners[c] = OwnerInPlay
	g.top = c
	g.emitPlayer(EventCardPlayed, acting, c, 0)

	return true, g.endTurn()
}

// DrawCardForCurrentPlayer draws one card for a player who has been told to
// draw. It returns false when no forced draw is pending or the deck is out.
func (g *Game) DrawCardForCurrentPlayer() (bool, error) {
	if !g.phase.Accepting() || g.moveTaken || !g.mustDraw || g.deckExhausted {
		return false, nil
	}
	acting := g.turn
	c, err := g.drawTo(acting)
	if err != nil {
		return false, fmt.Errorf("forced draw: %w", err)
	}
	g.mustDraw = false
	g.moveTaken = true
	g.emitPlayer(EventCardDrawn, acting, c, 0)

	return true, g.endTurn()
}

// endTurn closes the current turn and schedules its evaluation.
func (g *Game) endTurn() error {
	if err := g.transition(TransAct); err != nil {
		return err
	}
	g.schedule(g.Timing.EndTurnDelay, g.resolveTurn)
	return nil
}

// resolveTurn checks for a winner, then for a drawn game, and otherwise
// passes the turn on.
func (g *Game) resolveTurn() {
	if g.phase != PhaseTurnEnding {
		return
	}

	for _, p := range g.players {
		if p.HandLen() == 0 {
			g.finish(int(p.ID))
			return
		}
	}

	if g.deckExhausted && !g.anyLegalMove() {
		g.finish(WinnerDraw)
		return
	}

	if err := g.transition(TransAdvance); err != nil {
		g.fault(err)
		return
	}
	g.turn = g.NextPlayer(g.turn)
	g.turnNumber++
	g.beginTurn()
}

func (g *Game) finish(winner int) {
	if err := g.transition(TransFinish); err != nil {
		g.fault(err)
		return
	}
	g.winner = winner
	g.dealt = false
	g.emit(Event{Type: EventGameEnded, Player: -1, Card: EmptyCard, Winner: winner})
}

func (g *Game) anyLegalMove() bool {
	for _, p := range g.players {
		if _, ok := p.FirstLegalMove(g.top); ok {
			return true
		}
	}
	return false
}

package engine

// Strategy decides what a player does when its turn starts.
type Strategy interface {
	OnTurnStart(g *Game, p *Player)
}

// HumanStrategy waits for external input. It only flags a forced draw when
// the hand has nothing playable.
type HumanStrategy struct{}

func (HumanStrategy) OnTurnStart(g *Game, p *Player) {
	if _, ok := p.FirstLegalMove(g.top); ok {
		return
	}
	g.requestForcedDraw(p.ID)
}

// AIStrategy plays the first legal card after a thinking pause, or draws one.
type AIStrategy struct{}

func (AIStrategy) OnTurnStart(g *Game, p *Player) {
	turn := g.turnNumber
	g.schedule(g.Timing.ThinkDelay, func() {
		if g.phase != PhaseAwaitingMove || g.turnNumber != turn || g.turn != p.ID || g.moveTaken {
			return
		}
		g.aiMove(p)
	})
}

func (g *Game) aiMove(p *Player) {
	if c, ok := p.FirstLegalMove(g.top); ok {
		if _, err := g.PlayCard(c); err != nil {
			g.fault(err)
		}
		return
	}
	if !g.deckExhausted {
		c, err := g.drawTo(p.ID)
		if err != nil {
			g.fault(err)
			return
		}
		g.emitPlayer(EventCardDrawn, p.ID, c, g.Timing.AIDrawDelay)
	}
	g.moveTaken = true
	if err := g.endTurn(); err != nil {
		g.fault(err)
	}
}

// requestForcedDraw marks the current player as having to draw. With an
// exhausted deck there is nothing to draw, so the turn passes and the
// end-of-turn evaluation decides whether the game is drawn.
func (g *Game) requestForcedDraw(id uint8) {
	if g.turn != id || g.phase != PhaseAwaitingMove {
		return
	}
	g.mustDraw = true
	if !g.deckExhausted {
		g.emitPlayer(EventDrawPrompt, id, EmptyCard, 0)
		return
	}
	g.moveTaken = true
	if err := g.endTurn(); err != nil {
		g.fault(err)
	}
}

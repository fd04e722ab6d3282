package engine

// DecisionContext describes what the player whose turn it is must do.
type DecisionContext uint8

const (
	CtxIdle     DecisionContext = iota // no game, or between turns
	CtxPlay                            // at least one card is playable
	CtxDraw                            // forced draw pending
	CtxStuck                           // nothing playable and nothing to draw
	CtxTerminal                        // game over
)

// DecisionCtx returns the current decision context for the acting player.
func (g *Game) DecisionCtx() DecisionContext {
	switch {
	case g.IsTerminal():
		return CtxTerminal
	case g.phase != PhaseAwaitingMove || g.moveTaken:
		return CtxIdle
	case g.HasLegalMove(g.turn):
		return CtxPlay
	case g.deckExhausted:
		return CtxStuck
	}
	return CtxDraw
}

// LegalMoves returns every card in player id's hand that could be played on
// the current top card, in hand order. It is empty when it is not that
// player's turn to act.
func (g *Game) LegalMoves(id uint8) []Card {
	if int(id) >= len(g.players) || g.turn != id || g.DecisionCtx() != CtxPlay {
		return nil
	}
	var out []Card
	for _, c := range g.players[id].hand {
		if IsLegal(g.top, c) {
			out = append(out, c)
		}
	}
	return out
}

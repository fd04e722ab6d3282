// internal/game/turn_timer.go
package game

import (
	"github.com/dqtoy/crazy-eights/engine"
	"github.com/sirupsen/logrus"
)

// scheduleTurnTimer arms the turn timer for a human seat. The timer is
// dropped if the game is reset, restored, or the turn moves on first.
// Assumes lock is held by caller.
func (s *Session) scheduleTurnTimer(seat int) {
	if s.TurnTimeout <= 0 || seat < 0 || seat >= len(s.Seats) || !s.Seats[seat].Human {
		return
	}
	epoch, turn := s.Engine.Epoch(), s.Engine.TurnNumber()
	s.sched.After(s.TurnTimeout, func() {
		g := s.Engine
		if s.closed || g.Epoch() != epoch || g.TurnNumber() != turn || !g.Phase().Accepting() || g.MoveTaken() {
			return
		}
		s.handleTimeout(seat)
	})
}

// handleTimeout moves for a seat that let its timer run out: the first
// playable card, otherwise a draw.
// Assumes lock is held by caller.
func (s *Session) handleTimeout(seat int) {
	g := s.Engine
	id := uint8(seat)
	user := s.eventUser(seat)
	log := s.log.WithFields(logrus.Fields{"seat": user.ID, "turn": g.TurnNumber()})

	card := engine.EmptyCard
	move := "draw"
	switch g.DecisionCtx() {
	case engine.CtxPlay:
		card = g.LegalMoves(id)[0]
		move = "play " + card.String()
	case engine.CtxDraw:
	default:
		return
	}

	log.Infof("turn timer expired, auto %s", move)
	s.logAction(user.ID, string(EventPlayerTimeout), map[string]interface{}{"turn": int(g.TurnNumber()), "move": move})
	s.fireEvent(GameEvent{Type: EventPlayerTimeout, User: user, Turn: int(g.TurnNumber()), Payload: map[string]interface{}{"move": move}})

	var err error
	if card.Valid() {
		_, err = g.PlayCard(card)
	} else {
		_, err = g.DrawCardForCurrentPlayer()
	}
	if err != nil {
		log.WithError(err).Error("auto move broke an engine invariant")
		return
	}
	s.saveSnapshot()
}

package engine

// Phase is the game's lifecycle state.
type Phase uint8

const (
	PhaseNotStarted   Phase = iota // not started
	PhaseDealing                   // dealing
	PhaseAwaitingMove              // awaiting move
	PhaseTurnEnding                // turn ending
	PhaseEnded                     // ended
)

var phaseNames = [...]string{"not started", "dealing", "awaiting move", "turn ending", "ended"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Transition names an edge of the phase machine.
type Transition uint8

const (
	TransDeal    Transition = iota // NotStarted -> Dealing
	TransReveal                    // Dealing -> AwaitingMove
	TransAct                       // AwaitingMove -> TurnEnding
	TransAdvance                   // TurnEnding -> AwaitingMove
	TransFinish                    // TurnEnding -> Ended
	TransReset                     // any -> NotStarted
)

var transitionNames = [...]string{"deal", "reveal", "act", "advance", "finish", "reset"}

func (t Transition) String() string {
	if int(t) < len(transitionNames) {
		return transitionNames[t]
	}
	return "unknown"
}

// Next returns the phase reached by taking t from p, or false if t is not allowed in p.
func (p Phase) Next(t Transition) (Phase, bool) {
	switch t {
	case TransReset:
		return PhaseNotStarted, true
	case TransDeal:
		if p == PhaseNotStarted {
			return PhaseDealing, true
		}
	case TransReveal:
		if p == PhaseDealing {
			return PhaseAwaitingMove, true
		}
	case TransAct:
		if p == PhaseAwaitingMove {
			return PhaseTurnEnding, true
		}
	case TransAdvance:
		if p == PhaseTurnEnding {
			return PhaseAwaitingMove, true
		}
	case TransFinish:
		if p == PhaseTurnEnding {
			return PhaseEnded, true
		}
	}
	return p, false
}

// Accepting reports whether moves can be submitted in p.
func (p Phase) Accepting() bool { return p == PhaseAwaitingMove }

package engine

import "testing"

// TestPlayMatchingRank covers a human holding 3C and 5D on a 3H: the five is
// refused, the three is accepted and the turn passes once the pause elapses.
func TestPlayMatchingRank(t *testing.T) {
	g, s, rec := arrangeGame(t, mustCard("3H"), 0,
		[][]Card{cards("3C", "5D"), cards("KS", "QS")}, cards("2D", "4D"))

	ok, err := g.PlayCard(mustCard("5D"))
	if ok || err != nil {
		t.Fatalf("PlayCard(5D) = %v, %v; want false, nil", ok, err)
	}
	if g.Top() != mustCard("3H") || g.Player(0).HandLen() != 2 || g.MoveTaken() {
		t.Fatal("rejected play changed state")
	}

	ok, err = g.PlayCard(mustCard("3C"))
	if !ok || err != nil {
		t.Fatalf("PlayCard(3C) = %v, %v", ok, err)
	}
	if g.Top() != mustCard("3C") {
		t.Errorf("top = %s, want 3C", g.Top())
	}
	if g.Owner(mustCard("3C")) != OwnerInPlay || g.Owner(mustCard("3H")) != OwnerDiscarded {
		t.Errorf("owners: 3C %d 3H %d", g.Owner(mustCard("3C")), g.Owner(mustCard("3H")))
	}
	if g.Phase() != PhaseTurnEnding || !g.MoveTaken() {
		t.Errorf("phase %s moveTaken %v", g.Phase(), g.MoveTaken())
	}
	played := rec.of(EventCardPlayed)
	if len(played) != 1 || played[0].Player != 0 || played[0].Card != mustCard("3C") {
		t.Fatalf("card_played events %+v", played)
	}

	// Nothing happens until the end-of-turn pause has elapsed.
	s.Advance(g.Timing.EndTurnDelay - 1)
	if g.Turn() != 0 {
		t.Fatal("turn passed early")
	}
	s.Advance(1)
	if g.Turn() != 1 || g.Phase() != PhaseAwaitingMove {
		t.Fatalf("turn %d phase %s, want 1 awaiting move", g.Turn(), g.Phase())
	}
	changed := rec.of(EventTurnChanged)
	if len(changed) != 1 || changed[0].Player != 1 {
		t.Fatalf("turn_changed events %+v", changed)
	}
	if err := g.CheckInvariants(); err != nil {
		t.Fatal(err)
	}
}

func TestPlayWildOnAnything(t *testing.T) {
	g, _, _ := arrangeGame(t, mustCard("3H"), 0,
		[][]Card{cards("KC", "8S"), cards("KS")}, cards("2D"))
	if ok, _ := g.PlayCard(mustCard("KC")); ok {
		t.Fatal("KC should not play on 3H")
	}
	if ok, err := g.PlayCard(mustCard("8S")); !ok || err != nil {
		t.Fatalf("PlayCard(8S) = %v, %v", ok, err)
	}
}

// TestPlayRejected verifies every refused play is a silent no-op.
func TestPlayRejected(t *testing.T) {
	tests := []struct {
		name  string
		setup func(g *Game)
		card  Card
	}{
		{"card held by the other player", func(*Game) {}, mustCard("3S")},
		{"card still in the deck", func(*Game) {}, mustCard("3D")},
		{"card already discarded", func(*Game) {}, mustCard("AH")},
		{"the top card itself", func(*Game) {}, mustCard("3H")},
		{"empty card", func(*Game) {}, EmptyCard},
		{"out of range", func(*Game) {}, Card(77)},
		{"second play in one turn", func(g *Game) { g.PlayCard(mustCard("3C")) }, mustCard("4H")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _, rec := arrangeGame(t, mustCard("3H"), 0,
				[][]Card{cards("3C", "4H"), cards("3S")}, cards("3D"))
			tt.setup(g)
			before := g.Save()
			n := len(rec.events)
			ok, err := g.PlayCard(tt.card)
			if ok || err != nil {
				t.Fatalf("PlayCard(%s) = %v, %v; want false, nil", tt.card, ok, err)
			}
			after := g.Save()
			if after.Top != before.Top || len(after.Hands[0]) != len(before.Hands[0]) || len(rec.events) != n {
				t.Fatal("rejected play changed state")
			}
		})
	}
}

func TestPlayBeforeStart(t *testing.T) {
	g := NewGame(1, DefaultHouseRules())
	if ok, err := g.PlayCard(mustCard("3H")); ok || err != nil {
		t.Fatalf("PlayCard before start = %v, %v", ok, err)
	}
	if ok, err := g.DrawCardForCurrentPlayer(); ok || err != nil {
		t.Fatalf("Draw before start = %v, %v", ok, err)
	}
}

// TestWinEndsBeforeNextTurn verifies an emptied hand ends the game without
// announcing another turn.
func TestWinEndsBeforeNextTurn(t *testing.T) {
	g, s, rec := arrangeGame(t, mustCard("3H"), 0,
		[][]Card{cards("3C"), cards("KS", "QS")}, cards("2D"))
	g.PlayCard(mustCard("3C"))
	rec.reset()
	s.RunUntilIdle(100)

	if g.Winner() != 0 || !g.IsTerminal() || g.Dealt() {
		t.Fatalf("winner %d phase %s dealt %v", g.Winner(), g.Phase(), g.Dealt())
	}
	types := rec.types()
	if len(types) != 1 || types[0] != EventGameEnded {
		t.Fatalf("events after the winning play %v, want [game_ended]", types)
	}
	if rec.events[0].Winner != 0 {
		t.Errorf("game_ended winner %d", rec.events[0].Winner)
	}
	if ok, _ := g.PlayCard(mustCard("KS")); ok {
		t.Error("play accepted after the game ended")
	}
}

// TestDrawnGame verifies a game ends drawn when the deck is out and nobody
// can follow the top card.
func TestDrawnGame(t *testing.T) {
	g, s, _ := arrangeGame(t, mustCard("3H"), 0,
		[][]Card{cards("3C", "5D"), cards("KS")}, nil)
	if !g.DeckExhausted() {
		t.Fatal("empty deck should be exhausted")
	}
	g.PlayCard(mustCard("3C"))
	s.Advance(g.Timing.EndTurnDelay)
	if g.Winner() != WinnerDraw || !g.IsTerminal() {
		t.Fatalf("winner %d phase %s, want a draw", g.Winner(), g.Phase())
	}
	for _, sc := range g.Scores() {
		if sc != 0 {
			t.Fatalf("drawn game scored %v", g.Scores())
		}
	}
}

// TestForcedDraw covers a human with nothing playable: a prompt is raised,
// plays are refused and one draw ends the turn.
func TestForcedDraw(t *testing.T) {
	g, s, rec := arrangeGame(t, mustCard("3H"), 0,
		[][]Card{cards("5D"), cards("KS", "QS")}, cards("2C", "9C"))

	if !g.MustDraw() || g.DecisionCtx() != CtxDraw {
		t.Fatalf("mustDraw %v ctx %d", g.MustDraw(), g.DecisionCtx())
	}
	prompts := rec.of(EventDrawPrompt)
	if len(prompts) != 1 || prompts[0].Player != 0 {
		t.Fatalf("draw_prompt events %+v", prompts)
	}
	if ok, _ := g.PlayCard(mustCard("5D")); ok {
		t.Fatal("illegal play accepted during forced draw")
	}

	ok, err := g.DrawCardForCurrentPlayer()
	if !ok || err != nil {
		t.Fatalf("Draw = %v, %v", ok, err)
	}
	if !g.Player(0).Has(mustCard("9C")) || g.DeckLen() != 1 {
		t.Fatalf("hand %v deck %d", g.Player(0).Hand(), g.DeckLen())
	}
	drawn := rec.of(EventCardDrawn)
	if len(drawn) != 1 || drawn[0].Card != mustCard("9C") || drawn[0].Player != 0 {
		t.Fatalf("card_drawn events %+v", drawn)
	}
	if g.MustDraw() || g.Phase() != PhaseTurnEnding {
		t.Fatalf("mustDraw %v phase %s", g.MustDraw(), g.Phase())
	}
	if ok, _ := g.DrawCardForCurrentPlayer(); ok {
		t.Fatal("second draw accepted")
	}

	s.Advance(g.Timing.EndTurnDelay)
	if g.Turn() != 1 {
		t.Errorf("turn %d, want 1", g.Turn())
	}
}

func TestDrawWithoutPromptRejected(t *testing.T) {
	g, _, _ := arrangeGame(t, mustCard("3H"), 0,
		[][]Card{cards("3C"), cards("KS")}, cards("2D"))
	if ok, err := g.DrawCardForCurrentPlayer(); ok || err != nil {
		t.Fatalf("Draw = %v, %v; want false, nil", ok, err)
	}
	if g.DeckLen() != 1 {
		t.Error("deck changed")
	}
}

// TestLastCardExhaustsImmediately verifies the deck is flagged exhausted as
// soon as its last card is drawn.
func TestLastCardExhaustsImmediately(t *testing.T) {
	g, s, rec := arrangeGame(t, mustCard("3H"), 0,
		[][]Card{cards("5D"), cards("KS")}, cards("9C"))
	rec.reset()

	if ok, err := g.DrawCardForCurrentPlayer(); !ok || err != nil {
		t.Fatalf("Draw = %v, %v", ok, err)
	}
	if !g.DeckExhausted() || g.DeckLen() != 0 {
		t.Fatalf("exhausted %v len %d", g.DeckExhausted(), g.DeckLen())
	}
	types := rec.types()
	if len(types) != 2 || types[0] != EventDeckExhausted || types[1] != EventCardDrawn {
		t.Fatalf("events %v, want [deck_exhausted card_drawn]", types)
	}

	// 5D and 9C on 3H, KS on 3H: nobody can play.
	s.Advance(g.Timing.EndTurnDelay)
	if g.Winner() != WinnerDraw {
		t.Errorf("winner %d, want draw", g.Winner())
	}
}

// TestExhaustedHumanPasses verifies a human with nothing to play and nothing
// to draw passes instead of blocking the game.
func TestExhaustedHumanPasses(t *testing.T) {
	g, s, rec := arrangeGame(t, mustCard("3H"), 0,
		[][]Card{cards("5D", "6D"), cards("KH")}, nil)

	if len(rec.of(EventDrawPrompt)) != 0 {
		t.Error("no prompt expected with an empty deck")
	}
	if g.Phase() != PhaseTurnEnding {
		t.Fatalf("phase %s, want turn ending", g.Phase())
	}
	s.Advance(g.Timing.EndTurnDelay)
	if g.Turn() != 1 || g.IsTerminal() {
		t.Fatalf("turn %d terminal %v; the AI can still play", g.Turn(), g.IsTerminal())
	}
	s.RunUntilIdle(100)
	if g.Winner() != 1 {
		t.Errorf("winner %d, want 1", g.Winner())
	}
}

// TestTurnRotation verifies turns alternate 0, 1, 0.
func TestTurnRotation(t *testing.T) {
	g, s, rec := arrangeGame(t, mustCard("3H"), 0,
		[][]Card{cards("3C", "4C", "2S"), cards("5C", "6C", "2D")}, cards("AD"),
		HumanStrategy{}, HumanStrategy{})

	if ok, _ := g.PlayCard(mustCard("3C")); !ok {
		t.Fatal("3C refused")
	}
	s.Advance(g.Timing.EndTurnDelay)
	if g.Turn() != 1 || g.TurnNumber() != 2 {
		t.Fatalf("turn %d number %d", g.Turn(), g.TurnNumber())
	}
	if ok, _ := g.PlayCard(mustCard("4C")); ok {
		t.Fatal("player 1 played player 0's card")
	}
	if ok, _ := g.PlayCard(mustCard("5C")); !ok {
		t.Fatal("5C refused")
	}
	s.Advance(g.Timing.EndTurnDelay)
	if g.Turn() != 0 || g.TurnNumber() != 3 {
		t.Fatalf("turn %d number %d", g.Turn(), g.TurnNumber())
	}
	var seats []int
	for _, ev := range rec.of(EventTurnChanged) {
		seats = append(seats, ev.Player)
	}
	if len(seats) != 2 || seats[0] != 1 || seats[1] != 0 {
		t.Errorf("turn_changed seats %v, want [1 0]", seats)
	}
}

// TestAIDrawsWhenStuck verifies the AI thinks, draws a card it cannot play
// and hands the turn back.
func TestAIDrawsWhenStuck(t *testing.T) {
	g, s, rec := arrangeGame(t, mustCard("3H"), 0,
		[][]Card{cards("3C", "2C"), cards("KS")}, cards("4D", "9D"))
	g.PlayCard(mustCard("3C"))
	s.Advance(g.Timing.EndTurnDelay)
	if g.Turn() != 1 {
		t.Fatalf("turn %d", g.Turn())
	}
	rec.reset()

	s.Advance(g.Timing.ThinkDelay - 1)
	if len(rec.events) != 0 {
		t.Fatalf("AI acted before thinking: %v", rec.types())
	}
	s.Advance(1)
	drawn := rec.of(EventCardDrawn)
	if len(drawn) != 1 || drawn[0].Player != 1 || drawn[0].Card != mustCard("9D") {
		t.Fatalf("card_drawn %+v", drawn)
	}
	if drawn[0].Delay != g.Timing.AIDrawDelay {
		t.Errorf("draw delay %v, want %v", drawn[0].Delay, g.Timing.AIDrawDelay)
	}
	s.Advance(g.Timing.EndTurnDelay)
	if g.Turn() != 0 {
		t.Fatalf("turn %d, want 0", g.Turn())
	}
	hand := g.Player(1).Hand()
	if len(hand) != 2 || hand[1] != mustCard("9D") {
		t.Errorf("AI hand %v", hand)
	}
}

// TestAIPlaysFirstLegalCard verifies the AI picks the oldest playable card.
func TestAIPlaysFirstLegalCard(t *testing.T) {
	g, s, rec := arrangeGame(t, mustCard("3H"), 1,
		[][]Card{cards("2C"), cards("KS", "9H", "3D", "8C")}, cards("4D"))
	s.Advance(g.Timing.ThinkDelay)
	played := rec.of(EventCardPlayed)
	if len(played) != 1 || played[0].Card != mustCard("9H") {
		t.Fatalf("card_played %+v, want 9H", played)
	}
}

// TestAIPassesWithExhaustedDeck verifies a stuck AI passes and the game
// carries on while someone else can still play.
func TestAIPassesWithExhaustedDeck(t *testing.T) {
	g, s, rec := arrangeGame(t, mustCard("3H"), 1,
		[][]Card{cards("3S", "KD"), cards("KC")}, nil)
	if g.DecisionCtx() != CtxStuck {
		t.Fatalf("ctx %d, want stuck", g.DecisionCtx())
	}
	s.Advance(g.Timing.ThinkDelay + g.Timing.EndTurnDelay)
	if len(rec.of(EventCardDrawn)) != 0 || len(rec.of(EventCardPlayed)) != 0 {
		t.Fatalf("AI should pass, got %v", rec.types())
	}
	if g.Turn() != 0 || g.IsTerminal() {
		t.Fatalf("turn %d terminal %v", g.Turn(), g.IsTerminal())
	}
}

package main

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dqtoy/crazy-eights/engine"
)

// maxSteps bounds one game; a real game runs a few hundred continuations.
const maxSteps = 100000

type tally struct {
	games  int
	wins   []int
	draws  int
	faults int
	turns  int
}

// simulate plays AI-only games on a logical clock, seeding game i with seed+i.
func simulate(games int, seed uint64, rules engine.HouseRules) tally {
	n := int(rules.NumPlayers)
	if n == 0 {
		n = 2
	}
	strategies := make([]engine.Strategy, n)
	for i := range strategies {
		strategies[i] = engine.AIStrategy{}
	}

	t := tally{wins: make([]int, n)}
	for i := 0; i < games; i++ {
		sched := engine.NewManualScheduler()
		g := engine.NewGame(seed+uint64(i), rules,
			engine.WithScheduler(sched),
			engine.WithStrategies(strategies...),
		)
		t.games++
		if ok, err := g.StartGame(); !ok || err != nil {
			t.faults++
			continue
		}
		for step := 0; step < maxSteps && !g.IsTerminal(); step++ {
			if sched.RunUntilIdle(1) == 0 {
				break
			}
		}
		t.turns += int(g.TurnNumber())
		switch w := g.Winner(); {
		case g.Err() != nil || !g.IsTerminal():
			t.faults++
		case w == engine.WinnerDraw:
			t.draws++
		case w >= 0:
			t.wins[w]++
		}
	}
	return t
}

func runSimulate(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(out)
	games := fs.Int("games", 1000, "number of games to play")
	seed := fs.Uint64("seed", 1, "seed of the first game")
	players := fs.Uint("players", 2, "seats at the table (2..4)")
	cards := fs.Uint("cards", 7, "cards dealt to each seat")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *games < 1 || *players < 2 || *players > engine.MaxPlayers || *cards < 1 || int(*cards*(*players))+1 > engine.DeckSize {
		fmt.Fprintln(out, "simulate: invalid -games, -players or -cards")
		return 2
	}

	rules := engine.HouseRules{CardsPerPlayer: uint8(*cards), NumPlayers: uint8(*players)}
	start := time.Now()
	t := simulate(*games, *seed, rules)

	fmt.Fprintf(out, "games: %d  seeds %d..%d  (%s)\n", t.games, *seed, *seed+uint64(*games)-1, time.Since(start).Round(time.Millisecond))
	for i, w := range t.wins {
		fmt.Fprintf(out, "seat %d wins: %d (%.1f%%)\n", i, w, pct(w, t.games))
	}
	fmt.Fprintf(out, "draws: %d (%.1f%%)\n", t.draws, pct(t.draws, t.games))
	fmt.Fprintf(out, "avg turns: %.1f\n", float64(t.turns)/float64(t.games))
	if t.faults > 0 {
		fmt.Fprintf(out, "faults: %d\n", t.faults)
		return 1
	}
	return 0
}

func pct(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return 100 * float64(n) / float64(of)
}

package engine

import "testing"

// TestCardSuitRank verifies the id = suit*13 + rank numbering for every card.
func TestCardSuitRank(t *testing.T) {
	for s := uint8(0); s < NumSuits; s++ {
		for r := uint8(0); r < NumRanks; r++ {
			c := NewCard(s, r)
			if int(c) != int(s)*NumRanks+int(r) {
				t.Errorf("NewCard(%d,%d) = %d, want %d", s, r, c, int(s)*NumRanks+int(r))
			}
			if c.Suit() != s || c.Rank() != r {
				t.Errorf("card %d: Suit/Rank = %d/%d, want %d/%d", c, c.Suit(), c.Rank(), s, r)
			}
			if !c.Valid() {
				t.Errorf("card %d should be valid", c)
			}
		}
	}
	if EmptyCard.Valid() || Card(DeckSize).Valid() {
		t.Error("out-of-range cards should not be valid")
	}
}

// TestCardNumbering pins the suit order used by the card ids.
func TestCardNumbering(t *testing.T) {
	tests := []struct {
		card Card
		want string
	}{
		{0, "AH"},
		{12, "KH"},
		{13, "AS"},
		{NewCard(SuitSpades, RankEight), "8S"},
		{26, "AD"},
		{39, "AC"},
		{51, "KC"},
		{NewCard(SuitDiamonds, RankTen), "TD"},
		{EmptyCard, "--"},
	}
	for _, tt := range tests {
		if got := tt.card.String(); got != tt.want {
			t.Errorf("Card(%d).String() = %q, want %q", tt.card, got, tt.want)
		}
	}
}

// TestParseCard verifies ParseCard inverts String and rejects junk.
func TestParseCard(t *testing.T) {
	for i := 0; i < DeckSize; i++ {
		c := Card(i)
		got, err := ParseCard(c.String())
		if err != nil {
			t.Fatalf("ParseCard(%q): %v", c.String(), err)
		}
		if got != c {
			t.Errorf("ParseCard(%q) = %d, want %d", c.String(), got, c)
		}
	}
	for _, bad := range []string{"", "8", "8HH", "1H", "8X", "--", "h8"} {
		if _, err := ParseCard(bad); err == nil {
			t.Errorf("ParseCard(%q) should fail", bad)
		}
	}
}

// TestCardText verifies the text encoding used in snapshots, including the
// empty card.
func TestCardText(t *testing.T) {
	b, err := EmptyCard.MarshalText()
	if err != nil || string(b) != "--" {
		t.Fatalf("EmptyCard.MarshalText() = %q, %v", b, err)
	}
	var c Card
	if err := c.UnmarshalText([]byte("--")); err != nil || c != EmptyCard {
		t.Fatalf("UnmarshalText(--) = %d, %v", c, err)
	}
	if err := c.UnmarshalText([]byte("QD")); err != nil || c != NewCard(SuitDiamonds, RankQueen) {
		t.Fatalf("UnmarshalText(QD) = %s, %v", c, err)
	}
	if _, err := Card(60).MarshalText(); err == nil {
		t.Error("MarshalText of card 60 should fail")
	}
}

func TestOwnerIsPlayer(t *testing.T) {
	if OwnerDeck.IsPlayer() || OwnerInPlay.IsPlayer() || OwnerDiscarded.IsPlayer() {
		t.Error("sentinel owners are not players")
	}
	if !Owner(0).IsPlayer() || !Owner(1).IsPlayer() {
		t.Error("non-negative owners are players")
	}
}

package game

import (
	"context"
	"errors"
	"testing"
)

func TestNewDieRejectsMalformedFaces(t *testing.T) {
	tests := []struct {
		name  string
		faces []int
	}{
		{"five faces", []int{1, 2, 3, 4, 5}},
		{"seven faces", []int{1, 2, 3, 4, 5, 6, 6}},
		{"zero face", []int{0, 2, 3, 4, 5, 6}},
		{"seven on a face", []int{1, 2, 3, 4, 5, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDie("bad", "", tt.faces)
			if !errors.Is(err, ErrMalformedDie) {
				t.Errorf("Expected ErrMalformedDie, got %v", err)
			}
		})
	}
}

func TestDieMean(t *testing.T) {
	if m := NormalDie().Mean(); m != 3.5 {
		t.Errorf("Expected 3.5, got %v", m)
	}
}

func TestDiceSetBankMovesDice(t *testing.T) {
	s := NewDiceSet(normals(4), 6)
	s.Roll(rolls(2, 2, 5, 6))

	banked, err := s.Bank([]int{2, 2})
	if err != nil {
		t.Fatalf("Bank: %v", err)
	}
	if len(banked) != 2 {
		t.Errorf("Expected 2 banked dice, got %d", len(banked))
	}
	if s.LiveCount() != 2 {
		t.Errorf("Expected 2 live dice, got %d", s.LiveCount())
	}
	if got := s.LiveRoll(); got != RollOf(5, 6) {
		t.Errorf("Expected live {5, 6}, got %s", got)
	}
}

func TestDiceSetBankRejectsMissingFaces(t *testing.T) {
	s := NewDiceSet(normals(3), 6)
	s.Roll(rolls(1, 2, 3))

	if _, err := s.Bank([]int{3, 3}); !errors.Is(err, ErrInvalidBankSelection) {
		t.Errorf("Expected ErrInvalidBankSelection, got %v", err)
	}
	if s.LiveCount() != 3 {
		t.Errorf("Expected the set unchanged, got %d live", s.LiveCount())
	}
}

func TestDiceSetEchoCapped(t *testing.T) {
	s := NewDiceSet(normals(6), 6)
	s.Roll(rolls(4, 4, 4, 1, 2, 6))
	if _, err := s.Bank([]int{4, 4, 4}); err != nil {
		t.Fatalf("Bank: %v", err)
	}

	added, dropped := s.AddEcho(4, NormalDie())
	if added != 3 || dropped != 1 {
		t.Errorf("Expected 3 added and 1 dropped, got %d and %d", added, dropped)
	}
	if s.LiveCount() != 6 {
		t.Errorf("Expected 6 live dice, got %d", s.LiveCount())
	}
	echo := 0
	for _, d := range s.Dice() {
		if d.Origin == OriginEcho {
			echo++
		}
	}
	if echo != 3 {
		t.Errorf("Expected 3 echo dice, got %d", echo)
	}
}

func TestDiceSetPendingEcho(t *testing.T) {
	s := NewDiceSet(normals(6), 6)
	s.Roll(rolls(4, 4, 4, 1, 2, 6))
	if _, err := s.Bank([]int{4, 4, 4}); err != nil {
		t.Fatalf("Bank: %v", err)
	}
	s.AddEcho(2, NormalDie())

	if got := s.LiveFaces(); len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 6 {
		t.Errorf("Expected live faces [1 2 6], got %v", got)
	}
	if s.PendingEcho() != 2 {
		t.Errorf("Expected 2 pending echo dice, got %d", s.PendingEcho())
	}

	s.Roll(rolls(3, 3, 5, 5, 1))
	if s.PendingEcho() != 0 {
		t.Errorf("Expected no pending echo after rolling, got %d", s.PendingEcho())
	}
	for _, f := range s.LiveFaces() {
		if f == 0 {
			t.Errorf("Expected only rolled faces, got %v", s.LiveFaces())
		}
	}
	if len(s.LiveFaces()) != 5 {
		t.Errorf("Expected 5 live faces, got %d", len(s.LiveFaces()))
	}
}

func TestThresholdRerollCountsPendingEcho(t *testing.T) {
	greedy := Greedy()
	view := TurnView{LiveFaces: []int{1, 2, 6}}
	if again, _ := greedy.ChooseReroll(context.Background(), view); again {
		t.Error("Expected greedy to commit with 3 live dice")
	}
	view.PendingEcho = 1
	if again, _ := greedy.ChooseReroll(context.Background(), view); !again {
		t.Error("Expected greedy to reroll with 3 live dice plus 1 echo")
	}
}

func TestDiceSetWaxyKeepsValue(t *testing.T) {
	s := NewDiceSet(normals(3), 6)
	s.Roll(rolls(2, 5, 3))

	idx := s.HighestUnfrozen()
	if idx != 1 {
		t.Fatalf("Expected die 1 to be the highest, got %d", idx)
	}
	if !s.Freeze(idx) {
		t.Fatal("Expected freeze to succeed")
	}
	if s.Freeze(idx) {
		t.Error("Expected a second freeze of the same die to fail")
	}

	r, rolled := s.Roll(rolls(1, 1))
	if len(rolled) != 2 {
		t.Errorf("Expected 2 dice rolled, got %d", len(rolled))
	}
	if r != RollOf(1, 5, 1) {
		t.Errorf("Expected {1:2, 5:1}, got %s", r)
	}
	if s.LiveCount() != 3 {
		t.Errorf("Expected waxy dice to count as live, got %d", s.LiveCount())
	}

	s.Thaw()
	if s.Dice()[1].Role != RoleLive {
		t.Errorf("Expected die to thaw, got %s", s.Dice()[1].Role)
	}
}

func TestRollHelpers(t *testing.T) {
	r := RollOf(6, 6, 6, 6, 2, 2)
	if r.Total() != 6 || r.Sum() != 28 {
		t.Errorf("Expected 6 dice summing 28, got %d and %d", r.Total(), r.Sum())
	}
	if r.String() != "{2:2, 6:4}" {
		t.Errorf("Expected {2:2, 6:4}, got %s", r.String())
	}
	if !r.Contains([]int{6, 2, 6}) || r.Contains([]int{2, 2, 2}) {
		t.Error("Contains gave the wrong answer")
	}
}

package game

import (
	"context"
	"errors"
	"testing"

	"github.com/psychodicenamic/dicesim/internal/log"
)

// TestFumbleWipesBanked: P1 banks a pair, re-rolls into nothing and loses the pair.
func TestFumbleWipesBanked(t *testing.T) {
	p0 := NewScriptedStrategy(t, "P1").AddBankAll().AddReroll(true)
	p1 := NewScriptedStrategy(t, "P2")
	dc, logger := newTestDebate(t, DefaultRules(), normalArchetype("A", 4), normalArchetype("B", 2),
		rolls(2, 2, 5, 6, 3, 5), rolls(1, 1), p0, p1)

	r := NewRoundResolver(dc, 0)
	done, err := r.Step(context.Background())
	if err != nil || done {
		t.Fatalf("Expected the turn to continue, got done=%v err=%v", done, err)
	}
	ps := dc.Players[0]
	if len(ps.Banked) != 1 || ps.Banked[0].Pattern != PatternPair {
		t.Fatalf("Expected a banked pair, got %v", ps.Banked)
	}

	done, err = r.Step(context.Background())
	if err != nil || !done {
		t.Fatalf("Expected the turn to end, got done=%v err=%v", done, err)
	}
	if !ps.Fumbled || ps.State != StateFumbled {
		t.Errorf("Expected a fumble, got state %s", ps.State)
	}
	if len(ps.Banked) != 0 {
		t.Errorf("Expected banked insults to be wiped, got %v", ps.Banked)
	}
	fumbles := logger.EventsOfType(log.EventFumble)
	if len(fumbles) != 1 {
		t.Fatalf("Expected 1 fumble event, got %d", len(fumbles))
	}
	if fumbles[0].Details != "P1 fumbles, losing 1 banked insults (no combo)" {
		t.Errorf("Unexpected fumble details %q", fumbles[0].Details)
	}
}

func TestPerfectBankEndsTurn(t *testing.T) {
	p0 := NewScriptedStrategy(t, "P1").AddBankAll().AddReroll(true)
	dc, logger := newTestDebate(t, DefaultRules(), normalArchetype("A", 6), normalArchetype("B", 2),
		rolls(1, 2, 3, 4, 5, 6), rolls(1, 1), p0, NewScriptedStrategy(t, "P2"))

	r := NewRoundResolver(dc, 0)
	done, err := r.Step(context.Background())
	if err != nil || !done {
		t.Fatalf("Expected the turn to end, got done=%v err=%v", done, err)
	}
	ps := dc.Players[0]
	if !ps.PerfectBank || ps.State != StateCommitted {
		t.Errorf("Expected a perfect bank commit, got state %s perfect=%v", ps.State, ps.PerfectBank)
	}
	if ps.EchoSummoned != 1 {
		t.Errorf("Expected 1 echo die, got %d", ps.EchoSummoned)
	}
	if len(logger.EventsOfType(log.EventPerfectBank)) != 1 {
		t.Error("Expected a perfect bank event")
	}
	if p0.rerollPos != 0 {
		t.Error("Expected no re-roll prompt after a perfect bank")
	}
}

func TestInvalidBankSelection(t *testing.T) {
	tests := []struct {
		name  string
		picks []int
	}{
		{"out of range", []int{3}},
		{"negative", []int{-1}},
		{"duplicate", []int{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p0 := NewScriptedStrategy(t, "P1").AddBank(tt.picks...)
			dc, _ := newTestDebate(t, DefaultRules(), normalArchetype("A", 4), normalArchetype("B", 2),
				rolls(2, 2, 5, 6), rolls(1, 1), p0, NewScriptedStrategy(t, "P2"))

			r := NewRoundResolver(dc, 0)
			_, err := r.Step(context.Background())
			if !errors.Is(err, ErrInvalidBankSelection) {
				t.Fatalf("Expected ErrInvalidBankSelection, got %v", err)
			}
			ps := dc.Players[0]
			if ps.State != StateBanking || len(ps.Banked) != 0 || ps.Dice.LiveCount() != 4 {
				t.Errorf("Expected state unchanged, got %s banked=%d live=%d",
					ps.State, len(ps.Banked), ps.Dice.LiveCount())
			}
		})
	}
}

func TestRerollWithoutLiveDiceIsIllegal(t *testing.T) {
	dc, _ := newTestDebate(t, DefaultRules(), normalArchetype("A", 2), normalArchetype("B", 2),
		rolls(3, 3), rolls(1, 1), NewScriptedStrategy(t, "P1"), NewScriptedStrategy(t, "P2"))

	r := NewRoundResolver(dc, 0)
	if _, err := r.Roll(); err != nil {
		t.Fatalf("Roll: %v", err)
	}
	// Empty the pool behind the resolver's back.
	if _, err := dc.Players[0].Dice.Bank([]int{3, 3}); err != nil {
		t.Fatalf("Bank: %v", err)
	}
	if err := r.Reroll(); !errors.Is(err, ErrIllegalReroll) {
		t.Errorf("Expected ErrIllegalReroll, got %v", err)
	}
	if dc.Players[0].State != StateBanking {
		t.Errorf("Expected state unchanged, got %s", dc.Players[0].State)
	}
}

func TestRollLimitForcesCommit(t *testing.T) {
	rules := DefaultRules()
	rules.MaxRollsPerRound = 2
	p0 := NewScriptedStrategy(t, "P1").AddBank().AddReroll(true).AddBank().AddReroll(true)
	dc, logger := newTestDebate(t, rules, normalArchetype("A", 6), normalArchetype("B", 2),
		rolls(1), rolls(1, 1), p0, NewScriptedStrategy(t, "P2"))

	if err := NewRoundResolver(dc, 0).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ps := dc.Players[0]
	if ps.Rolls != 2 || ps.State != StateCommitted {
		t.Errorf("Expected a commit after 2 rolls, got %d rolls in state %s", ps.Rolls, ps.State)
	}
	forced := logger.EventsOfType(log.EventForcedCommit)
	if len(forced) != 1 || forced[0].Details != "P1 is forced to commit (roll limit 2)" {
		t.Errorf("Expected a roll limit forced commit, got %v", forced)
	}
}

func TestBankSummonsEchoDice(t *testing.T) {
	p0 := NewScriptedStrategy(t, "P1").AddBankAll()
	dc, logger := newTestDebate(t, DefaultRules(), normalArchetype("A", 6), normalArchetype("B", 2),
		rolls(4, 4, 4, 1, 2, 6), rolls(1, 1), p0, NewScriptedStrategy(t, "P2"))

	r := NewRoundResolver(dc, 0)
	if _, err := r.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	ps := dc.Players[0]
	if ps.EchoSummoned != 1 {
		t.Errorf("Expected 1 echo die, got %d", ps.EchoSummoned)
	}
	if ps.Dice.LiveCount() != 4 {
		t.Errorf("Expected 3 residual plus 1 echo live dice, got %d", ps.Dice.LiveCount())
	}
	if ps.Dice.PendingEcho() != 1 {
		t.Errorf("Expected the echo die pending, got %d", ps.Dice.PendingEcho())
	}
	if view := r.View(); len(view.LiveFaces) != 3 || view.PendingEcho != 1 {
		t.Errorf("Expected 3 rolled live faces plus 1 pending echo, got %v +%d", view.LiveFaces, view.PendingEcho)
	}
	if len(logger.EventsOfType(log.EventEchoSummon)) != 1 {
		t.Error("Expected an echo summon event")
	}
}

func TestBankNothingKeepsRolling(t *testing.T) {
	p0 := NewScriptedStrategy(t, "P1").AddBank().AddReroll(true).AddBankAll()
	dc, _ := newTestDebate(t, DefaultRules(), normalArchetype("A", 2), normalArchetype("B", 2),
		rolls(5, 5, 6, 6), rolls(1, 1), p0, NewScriptedStrategy(t, "P2"))

	if err := NewRoundResolver(dc, 0).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ps := dc.Players[0]
	if len(ps.Banked) != 1 || ps.Banked[0].Sum() != 12 {
		t.Errorf("Expected the second pair to be banked, got %v", ps.Banked)
	}
	if !ps.PerfectBank {
		t.Error("Expected the second roll to be a perfect bank")
	}
}

func TestStepHonorsCancellation(t *testing.T) {
	dc, _ := newTestDebate(t, DefaultRules(), normalArchetype("A", 2), normalArchetype("B", 2),
		rolls(1), rolls(1), NewScriptedStrategy(t, "P1"), NewScriptedStrategy(t, "P2"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewRoundResolver(dc, 0).Step(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

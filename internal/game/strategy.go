package game

import (
	"context"
	"fmt"
	"sort"

	"github.com/psychodicenamic/dicesim/internal/log"
)

// TurnView is what a strategy sees when asked for a decision.
type TurnView struct {
	Player         int
	Debate         int
	Roll           int // roll number within this turn (1-based)
	Rolled         Roll
	LiveFaces      []int // rolled live values after any banking
	PendingEcho    int   // live echo dice not rolled yet
	Banked         []Insult
	Health         int
	OpponentHealth int
}

// Strategy makes the bank and re-roll decisions for one player. Simulated
// players, network players and tests all implement it.
type Strategy interface {
	// ChooseBank picks which offers to bank, as indexes into offers. An empty
	// selection banks nothing.
	ChooseBank(ctx context.Context, view TurnView, offers []Insult) ([]int, error)

	// ChooseReroll decides whether to roll the remaining live dice again.
	// Returning false commits.
	ChooseReroll(ctx context.Context, view TurnView) (bool, error)

	// Notify sends a debate event notification (no response needed).
	Notify(ctx context.Context, event log.GameEvent) error
}

// ThresholdStrategy banks every offered combo and commits once enough
// insults are banked or too few live dice remain. It is stateless and safe
// to share between concurrent debates.
type ThresholdStrategy struct {
	Name            string
	CommitAtInsults int // commit once this many insults are banked (0 = no limit)
	CommitBelowLive int // commit when fewer live dice than this remain
}

// ChooseBank banks every non-single offer. When only singles are offered it
// banks the highest one.
func (s *ThresholdStrategy) ChooseBank(ctx context.Context, view TurnView, offers []Insult) ([]int, error) {
	var picks []int
	firstSingle := -1
	for i, o := range offers {
		if o.Pattern == PatternSingle {
			if firstSingle < 0 || o.Faces[0] > offers[firstSingle].Faces[0] {
				firstSingle = i
			}
			continue
		}
		picks = append(picks, i)
	}
	if len(picks) == 0 && firstSingle >= 0 {
		picks = append(picks, firstSingle)
	}
	return picks, nil
}

func (s *ThresholdStrategy) ChooseReroll(ctx context.Context, view TurnView) (bool, error) {
	if s.CommitAtInsults > 0 && len(view.Banked) >= s.CommitAtInsults {
		return false, nil
	}
	if len(view.LiveFaces)+view.PendingEcho < s.CommitBelowLive {
		return false, nil
	}
	return true, nil
}

func (s *ThresholdStrategy) Notify(ctx context.Context, event log.GameEvent) error {
	return nil
}

// Greedy commits at two insults or under four live dice.
func Greedy() Strategy {
	return &ThresholdStrategy{Name: "greedy", CommitAtInsults: 2, CommitBelowLive: 4}
}

// Cautious commits as soon as anything is banked.
func Cautious() Strategy {
	return &ThresholdStrategy{Name: "cautious", CommitAtInsults: 1, CommitBelowLive: 6}
}

// Aggressive keeps rolling while at least two live dice remain.
func Aggressive() Strategy {
	return &ThresholdStrategy{Name: "aggressive", CommitBelowLive: 2}
}

// StrategyRegistry maps strategy names to constructors.
var StrategyRegistry = map[string]func() Strategy{
	"greedy":     Greedy,
	"cautious":   Cautious,
	"aggressive": Aggressive,
}

// LookupStrategy builds a strategy by name. The empty name is greedy.
func LookupStrategy(name string) (Strategy, error) {
	if name == "" {
		name = "greedy"
	}
	ctor, ok := StrategyRegistry[name]
	if !ok {
		return nil, fmt.Errorf("strategy %q: %w", name, ErrUnknownStrategy)
	}
	return ctor(), nil
}

// StrategyNames returns the registered strategy names, sorted.
func StrategyNames() []string {
	names := make([]string, 0, len(StrategyRegistry))
	for name := range StrategyRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

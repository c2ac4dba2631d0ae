package sim

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/goleak"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testSeed = 20261017

func runPair(t *testing.T, a, b *game.Archetype, cfg Config) *Stats {
	t.Helper()
	stats, err := Run(context.Background(), a, b, cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return stats
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trials = 2000
	cfg.Seed = testSeed

	first := runPair(t, game.Euphoria(), game.Anxiety(), cfg)
	second := runPair(t, game.Euphoria(), game.Anxiety(), cfg)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed gave different stats (-first +second):\n%s", diff)
	}
	j1, err := first.JSON()
	if err != nil {
		t.Fatal(err)
	}
	j2, _ := second.JSON()
	if !bytes.Equal(j1, j2) {
		t.Error("Expected byte-identical JSON for the same seed")
	}
}

func TestRunIndependentOfWorkerCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trials = 1500
	cfg.Seed = testSeed

	cfg.Workers = 1
	serial := runPair(t, game.Temperance(), game.TabulaRasa(), cfg)
	cfg.Workers = 7
	parallel := runPair(t, game.Temperance(), game.TabulaRasa(), cfg)

	if diff := cmp.Diff(serial, parallel, cmpopts.IgnoreFields(Stats{}, "Workers")); diff != "" {
		t.Errorf("worker count changed the stats (-1 worker +7 workers):\n%s", diff)
	}
	if parallel.Workers != 7 {
		t.Errorf("Expected 7 workers recorded, got %d", parallel.Workers)
	}
}

func TestRunCountsAddUp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trials = 1000
	cfg.Seed = testSeed
	stats := runPair(t, game.Rationalist(), game.Machiavellian(), cfg)

	if stats.Trials != 1000 || stats.Debates != 1000 {
		t.Errorf("Expected 1000 trials and debates, got %d and %d", stats.Trials, stats.Debates)
	}
	if got := stats.Players[0].Wins + stats.Players[1].Wins + stats.Ties; got != stats.Trials {
		t.Errorf("Expected wins and ties to sum to %d, got %d", stats.Trials, got)
	}
	if stats.Seed != testSeed || stats.Mode != "debate" {
		t.Errorf("Unexpected seed %d or mode %s", stats.Seed, stats.Mode)
	}
	if stats.Players[0].Name != "The Rationalist" || stats.Players[1].Name != "The Machiavellian" {
		t.Errorf("Unexpected names %q and %q", stats.Players[0].Name, stats.Players[1].Name)
	}
}

func TestRunFreshSeedRecorded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trials = 10
	stats := runPair(t, game.TabulaRasa(), game.TabulaRasa(), cfg)
	if stats.Seed == 0 {
		t.Error("Expected a generated seed to be recorded")
	}
}

// Shifting every face up one (clipped at 6) must beat plain dice.
func TestDominantArchetypeWins(t *testing.T) {
	if testing.Short() {
		t.Skip("statistical test")
	}
	cfg := DefaultConfig()
	cfg.Trials = 10000
	cfg.Seed = testSeed
	stats := runPair(t, game.Dominant(), game.TabulaRasa(), cfg)

	lo, _ := stats.WinRateInterval(0, 1.96)
	if lo <= 0.5 {
		t.Errorf("Expected the 95%% lower bound of the dominant win rate above 0.5, got %.4f (rate %.4f)",
			lo, stats.WinRate(0))
	}
	if stats.WinRate(0) <= stats.WinRate(1) {
		t.Errorf("Expected dominant to out-win baseline, got %.3f vs %.3f", stats.WinRate(0), stats.WinRate(1))
	}
}

func TestRunMatchMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trials = 300
	cfg.Seed = testSeed
	cfg.Mode = ModeMatch
	stats := runPair(t, game.Dominant(), game.TabulaRasa(), cfg)

	if stats.Mode != "match" {
		t.Errorf("Expected match mode, got %s", stats.Mode)
	}
	if stats.Debates < stats.Trials || stats.Debates > stats.Trials*game.DefaultMaxDebates {
		t.Errorf("Expected 1 to %d debates per trial, got %d debates for %d trials",
			game.DefaultMaxDebates, stats.Debates, stats.Trials)
	}
	if stats.Players[0].Knockouts > stats.Players[0].Wins {
		t.Errorf("Expected knockouts to be a subset of wins, got %d > %d", stats.Players[0].Knockouts, stats.Players[0].Wins)
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.Strategies = [2]string{"greedy", "reckless"}
	if _, err := Run(ctx, game.TabulaRasa(), game.TabulaRasa(), cfg); !errors.Is(err, game.ErrUnknownStrategy) {
		t.Errorf("Expected ErrUnknownStrategy, got %v", err)
	}

	broken := &game.Archetype{Name: "Broken", Dice: []game.Die{{Name: "blank"}}}
	if _, err := Run(ctx, broken, game.TabulaRasa(), DefaultConfig()); !errors.Is(err, game.ErrMalformedDie) {
		t.Errorf("Expected ErrMalformedDie, got %v", err)
	}

	if _, err := Run(ctx, nil, game.TabulaRasa(), DefaultConfig()); !errors.Is(err, game.ErrUnknownArchetype) {
		t.Errorf("Expected ErrUnknownArchetype, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.Rules.StartingHealth = 0
	if _, err := Run(ctx, game.TabulaRasa(), game.TabulaRasa(), cfg); !errors.Is(err, game.ErrInvalidRules) {
		t.Errorf("Expected ErrInvalidRules, got %v", err)
	}
}

// overreach banks an offer that was never made.
type overreach struct{}

func (overreach) ChooseBank(ctx context.Context, view game.TurnView, offers []game.Insult) ([]int, error) {
	return []int{len(offers) + 5}, nil
}

func (overreach) ChooseReroll(ctx context.Context, view game.TurnView) (bool, error) {
	return false, nil
}

func (overreach) Notify(ctx context.Context, event log.GameEvent) error {
	return nil
}

func TestRunSurfacesInvalidBankSelection(t *testing.T) {
	game.StrategyRegistry["overreach"] = func() game.Strategy { return overreach{} }
	t.Cleanup(func() { delete(game.StrategyRegistry, "overreach") })

	cfg := DefaultConfig()
	cfg.Trials = 50
	cfg.Seed = testSeed
	cfg.Strategies = [2]string{"overreach", "greedy"}
	_, err := Run(context.Background(), game.TabulaRasa(), game.TabulaRasa(), cfg)
	if !errors.Is(err, game.ErrInvalidBankSelection) {
		t.Errorf("Expected ErrInvalidBankSelection, got %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultConfig()
	cfg.Seed = testSeed
	stats, err := Run(ctx, game.TabulaRasa(), game.TabulaRasa(), cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if stats == nil || !stats.Cancelled {
		t.Fatalf("Expected partial stats marked cancelled, got %+v", stats)
	}
	if stats.Trials >= int64(cfg.Trials) {
		t.Errorf("Expected fewer than %d trials, got %d", cfg.Trials, stats.Trials)
	}
}

func TestRunCancelledFromProgress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := DefaultConfig()
	cfg.Trials = 100000
	cfg.Seed = testSeed
	cfg.Workers = 2
	cfg.ProgressEvery = 100
	cfg.Progress = func(done, total int64) {
		if done >= 500 {
			cancel()
		}
	}
	stats, err := Run(ctx, game.TabulaRasa(), game.TabulaRasa(), cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if stats.Trials < 500 || stats.Trials >= 100000 {
		t.Errorf("Expected a partial run, got %d trials", stats.Trials)
	}
}

func TestRunReportsProgress(t *testing.T) {
	var calls, last atomic.Int64
	cfg := DefaultConfig()
	cfg.Trials = 400
	cfg.Seed = testSeed
	cfg.ProgressEvery = 100
	cfg.Progress = func(done, total int64) {
		calls.Add(1)
		if done == total {
			last.Store(done)
		}
	}
	runPair(t, game.TabulaRasa(), game.Euphoria(), cfg)

	if calls.Load() != 4 {
		t.Errorf("Expected 4 progress calls, got %d", calls.Load())
	}
	if last.Load() != 400 {
		t.Errorf("Expected a final progress call at 400, got %d", last.Load())
	}
}

func TestParseTrialMode(t *testing.T) {
	for _, m := range []TrialMode{ModeDebate, ModeMatch} {
		got, err := ParseTrialMode(m.String())
		if err != nil || got != m {
			t.Errorf("Expected %s, got %s (%v)", m, got, err)
		}
	}
	if _, err := ParseTrialMode("league"); err == nil {
		t.Error("Expected an error for an unknown mode")
	}
}

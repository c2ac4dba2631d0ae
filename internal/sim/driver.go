// Package sim runs Monte-Carlo trials between archetypes and aggregates
// the outcomes. Trials are independent: each gets fresh player state and its
// own seeded random streams, so results depend only on the run seed and the
// trial count, never on how trials are spread over workers.
package sim

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/log"
)

// TrialMode selects what one trial plays.
type TrialMode int

const (
	ModeDebate TrialMode = iota // one debate per trial
	ModeMatch                   // a full match: debates until knockout or MaxDebates
)

func (m TrialMode) String() string {
	if m == ModeMatch {
		return "match"
	}
	return "debate"
}

// ParseTrialMode is the inverse of TrialMode.String.
func ParseTrialMode(s string) (TrialMode, error) {
	switch strings.ToLower(s) {
	case "", "debate":
		return ModeDebate, nil
	case "match":
		return ModeMatch, nil
	}
	return 0, fmt.Errorf("unknown trial mode %q", s)
}

func parseModeOrDebate(s string) TrialMode {
	m, _ := ParseTrialMode(s)
	return m
}

// ProgressFunc receives the number of completed trials. It is called from
// worker goroutines and must be safe for concurrent use.
type ProgressFunc func(done, total int64)

// Config controls a simulation run.
type Config struct {
	Rules         game.Rules
	Trials        int
	Seed          int64 // 0 draws a fresh seed, recorded in Stats.Seed
	Workers       int   // 0 uses GOMAXPROCS
	Mode          TrialMode
	Strategies    [2]string // strategy names per side ("" = greedy)
	Progress      ProgressFunc
	ProgressEvery int // trials between progress calls (0 = 1% of the run)
	Logger        *zap.Logger
}

// DefaultConfig returns a 1000-trial debate run under the default rules.
func DefaultConfig() Config {
	return Config{
		Rules:  game.DefaultRules(),
		Trials: 1000,
	}
}

// Simulate runs trials single debates between a and b with greedy players.
func Simulate(ctx context.Context, a, b *game.Archetype, trials int, seed int64) (*Stats, error) {
	cfg := DefaultConfig()
	cfg.Trials = trials
	cfg.Seed = seed
	return Run(ctx, a, b, cfg)
}

// Run plays cfg.Trials trials between a and b. Configuration errors are
// returned before any trial runs. A trial error aborts the run. If ctx is
// cancelled the completed trials are returned with Cancelled set, along
// with the context's error.
func Run(ctx context.Context, a, b *game.Archetype, cfg Config) (*Stats, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Trials < 0 {
		return nil, fmt.Errorf("trial count %d: %w", cfg.Trials, game.ErrInvalidRules)
	}
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	for _, arch := range []*game.Archetype{a, b} {
		if arch == nil {
			return nil, fmt.Errorf("missing archetype: %w", game.ErrUnknownArchetype)
		}
		if err := arch.Validate(); err != nil {
			return nil, err
		}
	}
	for _, name := range cfg.Strategies {
		if _, err := game.LookupStrategy(name); err != nil {
			return nil, err
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		var err error
		if seed, err = NewSeed(); err != nil {
			return nil, err
		}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > cfg.Trials && cfg.Trials > 0 {
		workers = cfg.Trials
	}
	every := int64(cfg.ProgressEvery)
	if every <= 0 {
		every = int64(cfg.Trials/100) + 1
	}
	total := int64(cfg.Trials)

	logger.Info("simulation started",
		zap.String("a", a.Name),
		zap.String("b", b.Name),
		zap.String("mode", cfg.Mode.String()),
		zap.Int("trials", cfg.Trials),
		zap.Int("workers", workers),
		zap.Int64("seed", seed))
	start := time.Now()

	partials := make([]*Stats, workers)
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		partial := NewStats(a.Name, b.Name, cfg.Mode, seed)
		partials[w] = partial
		g.Go(func() error {
			s0, _ := game.LookupStrategy(cfg.Strategies[0])
			s1, _ := game.LookupStrategy(cfg.Strategies[1])
			for i := int64(w); i < total; i += int64(workers) {
				if gctx.Err() != nil {
					partial.Cancelled = true
					return nil
				}
				if err := runTrial(gctx, partial, a, b, cfg, seed, i, s0, s1); err != nil {
					if gctx.Err() != nil {
						// interrupted mid-trial; the trial is not recorded
						partial.Cancelled = true
						return nil
					}
					return fmt.Errorf("trial %d: %w", i, err)
				}
				if n := done.Add(1); cfg.Progress != nil && (n%every == 0 || n == total) {
					cfg.Progress(n, total)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("simulation failed", zap.Error(err))
		return nil, err
	}

	stats := NewStats(a.Name, b.Name, cfg.Mode, seed)
	stats.Workers = workers
	for _, p := range partials {
		stats.Merge(p)
	}
	logger.Info("simulation finished",
		zap.Int64("trials", stats.Trials),
		zap.Float64("win_rate_a", stats.WinRate(0)),
		zap.Float64("win_rate_b", stats.WinRate(1)),
		zap.Bool("cancelled", stats.Cancelled),
		zap.Duration("elapsed", time.Since(start)))
	if err := ctx.Err(); err != nil {
		stats.Cancelled = true
		return stats, err
	}
	return stats, nil
}

// runTrial plays trial i and records it.
func runTrial(ctx context.Context, stats *Stats, a, b *game.Archetype, cfg Config, seed, i int64, s0, s1 game.Strategy) error {
	r := trialRands(seed, i)
	rngs := [2]game.Source{r[0], r[1]}
	switch cfg.Mode {
	case ModeMatch:
		out, err := game.PlayMatch(ctx, game.MatchConfig{
			Rules:  cfg.Rules,
			A:      a,
			B:      b,
			Logger: log.NopLogger{},
			Rand:   rngs,
		}, s0, s1)
		if err != nil {
			return err
		}
		stats.Record(out.Winner, out.Debates, out.Knockout)
	default:
		dc, err := game.NewDebate(game.DebateConfig{
			Rules:  cfg.Rules,
			A:      a,
			B:      b,
			Logger: log.NopLogger{},
			Rand:   rngs,
		}, s0, s1)
		if err != nil {
			return err
		}
		out, err := dc.Run(ctx)
		if err != nil {
			return err
		}
		stats.Record(out.Winner, []game.DebateOutcome{out}, false)
	}
	return nil
}

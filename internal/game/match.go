package game

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/psychodicenamic/dicesim/internal/log"
)

// MatchConfig holds configuration for a best-of-debates match.
type MatchConfig struct {
	Rules  Rules
	A, B   *Archetype
	Logger log.EventLogger
	Seed   int64     // RNG seed (0 for random); ignored when Rand is set
	Rand   [2]Source // per-player random sources, shared by every debate
}

// MatchOutcome is the result of a match.
type MatchOutcome struct {
	Winner   int // 0, 1, or -1 for a tie
	Debates  []DebateOutcome
	Health   [2]int // health after the last debate
	Knockout bool   // the match ended because someone reached 0 health
}

// PlayMatch plays up to Rules.MaxDebates debates, carrying health from one
// to the next. A player at 0 health is knocked out and the match ends; both
// at 0 is a tie. Otherwise the higher remaining health wins.
func PlayMatch(ctx context.Context, cfg MatchConfig, s0, s1 Strategy) (MatchOutcome, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return MatchOutcome{}, err
	}
	if cfg.A == nil || cfg.B == nil {
		return MatchOutcome{}, fmt.Errorf("match needs two archetypes: %w", ErrUnknownArchetype)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewMemoryLogger()
	}
	rngs := cfg.Rand
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	for p := range rngs {
		if rngs[p] == nil {
			rngs[p] = rand.New(rand.NewSource(seed + int64(p)*0x9e3779b9))
		}
	}

	maxDebates := cfg.Rules.MaxDebates
	if maxDebates <= 0 {
		maxDebates = DefaultMaxDebates
	}

	out := MatchOutcome{Winner: -1, Health: [2]int{cfg.A.Health(cfg.Rules), cfg.B.Health(cfg.Rules)}}
	for n := 1; n <= maxDebates; n++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if n > 1 {
			logger.Log(log.NewNewDebateEvent(n, out.Health[0], out.Health[1]))
		}
		dc, err := NewDebate(DebateConfig{
			Rules:  cfg.Rules,
			A:      cfg.A,
			B:      cfg.B,
			Logger: logger,
			Rand:   rngs,
			Debate: n,
			Health: out.Health,
		}, s0, s1)
		if err != nil {
			return out, err
		}
		d, err := dc.Run(ctx)
		if err != nil {
			return out, fmt.Errorf("debate %d: %w", n, err)
		}
		out.Debates = append(out.Debates, d)
		out.Health = [2]int{d.Players[0].HealthAfter, d.Players[1].HealthAfter}

		if out.Health[0] == 0 || out.Health[1] == 0 {
			out.Knockout = true
			for p := 0; p < 2; p++ {
				if out.Health[p] == 0 {
					logger.Log(log.NewKnockoutEvent(n, p))
				}
			}
			break
		}
	}

	last := len(out.Debates)
	switch {
	case out.Health[0] > out.Health[1]:
		out.Winner = 0
	case out.Health[1] > out.Health[0]:
		out.Winner = 1
	}
	if out.Winner >= 0 {
		reason := "more health"
		if out.Knockout {
			reason = "knockout"
		}
		logger.Log(log.NewWinEvent(last, out.Winner, "match: "+reason))
	} else {
		logger.Log(log.NewTieEvent(last, "match: equal health"))
	}
	return out, nil
}

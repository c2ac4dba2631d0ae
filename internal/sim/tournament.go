package sim

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/psychodicenamic/dicesim/internal/game"
)

// Pairing is one head-to-head run of a tournament.
type Pairing struct {
	A     string `json:"a" yaml:"a"`
	B     string `json:"b" yaml:"b"`
	Stats *Stats `json:"stats" yaml:"stats"`
}

// Standing is one archetype's tournament record across all its pairings.
type Standing struct {
	Name    string  `json:"name" yaml:"name"`
	Wins    int64   `json:"wins" yaml:"wins"`
	Losses  int64   `json:"losses" yaml:"losses"`
	Ties    int64   `json:"ties" yaml:"ties"`
	Trials  int64   `json:"trials" yaml:"trials"`
	WinRate float64 `json:"win_rate" yaml:"win_rate"`
	TieRate float64 `json:"tie_rate" yaml:"tie_rate"`
	NetDiff int64   `json:"net_damage" yaml:"net_damage"` // damage dealt minus damage taken
}

// TournamentResult holds every pairing and the ranked standings.
type TournamentResult struct {
	Seed      int64      `json:"seed" yaml:"seed"`
	Trials    int        `json:"trials_per_pair" yaml:"trials_per_pair"`
	Pairings  []Pairing  `json:"pairings" yaml:"pairings"`
	Standings []Standing `json:"standings" yaml:"standings"`
}

// Tournament plays a round robin: every archetype against every other, once
// per unordered pair, cfg.Trials trials each. Each pairing derives its own
// run seed from cfg.Seed so the whole tournament is reproducible.
func Tournament(ctx context.Context, archs []*game.Archetype, cfg Config) (*TournamentResult, error) {
	if len(archs) < 2 {
		return nil, fmt.Errorf("tournament needs at least 2 archetypes, got %d", len(archs))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		var err error
		if seed, err = NewSeed(); err != nil {
			return nil, err
		}
	}

	res := &TournamentResult{Seed: seed, Trials: cfg.Trials}
	standings := make(map[string]*Standing, len(archs))
	for _, a := range archs {
		standings[a.Name] = &Standing{Name: a.Name}
	}

	pair := int64(0)
	for i := 0; i < len(archs); i++ {
		for j := i + 1; j < len(archs); j++ {
			pcfg := cfg
			pcfg.Seed = DeriveSeed(seed, pair)
			pcfg.Progress = nil
			pcfg.Logger = logger.With(zap.Int64("pairing", pair))
			pair++

			stats, err := Run(ctx, archs[i], archs[j], pcfg)
			if err != nil {
				return nil, fmt.Errorf("%s vs %s: %w", archs[i].Name, archs[j].Name, err)
			}
			res.Pairings = append(res.Pairings, Pairing{A: archs[i].Name, B: archs[j].Name, Stats: stats})
			standings[archs[i].Name].add(stats, 0)
			standings[archs[j].Name].add(stats, 1)
		}
	}

	for _, a := range archs {
		s := standings[a.Name]
		s.WinRate = ratio(s.Wins, s.Trials)
		s.TieRate = ratio(s.Ties, s.Trials)
		res.Standings = append(res.Standings, *s)
	}
	sort.SliceStable(res.Standings, func(x, y int) bool {
		sx, sy := res.Standings[x], res.Standings[y]
		if sx.WinRate != sy.WinRate {
			return sx.WinRate > sy.WinRate
		}
		return sx.NetDiff > sy.NetDiff
	})
	return res, nil
}

// add folds one pairing's stats into the standing; p is this archetype's side.
func (s *Standing) add(stats *Stats, p int) {
	s.Wins += stats.Players[p].Wins
	s.Losses += stats.Players[1-p].Wins
	s.Ties += stats.Ties
	s.Trials += stats.Trials
	s.NetDiff += stats.Players[p].Damage - stats.Players[1-p].Damage
}

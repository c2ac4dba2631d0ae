package sim

import (
	"context"
	"fmt"
	"sort"

	"github.com/psychodicenamic/dicesim/internal/game"
)

// DieReport is how a special die fared against a plain hand.
type DieReport struct {
	Name          string  `json:"name" yaml:"name"`
	Faces         []int   `json:"faces" yaml:"faces"`
	Pure          bool    `json:"pure" yaml:"pure"`
	Trials        int64   `json:"trials" yaml:"trials"`
	Wins          int64   `json:"wins" yaml:"wins"`
	Losses        int64   `json:"losses" yaml:"losses"`
	Ties          int64   `json:"ties" yaml:"ties"`
	WinRate       float64 `json:"win_rate" yaml:"win_rate"`
	TieRate       float64 `json:"tie_rate" yaml:"tie_rate"`
	LossRate      float64 `json:"loss_rate" yaml:"loss_rate"`
	MeanNetDamage float64 `json:"mean_net_damage" yaml:"mean_net_damage"`
}

// Score ranks dice: win rate plus tie rate.
func (r DieReport) Score() float64 {
	return r.WinRate + r.TieRate
}

func (r *DieReport) finish() {
	r.WinRate = ratio(r.Wins, r.Trials)
	r.TieRate = ratio(r.Ties, r.Trials)
	r.LossRate = ratio(r.Losses, r.Trials)
}

// specialArchetype is two copies of the special die plus four normal dice.
func specialArchetype(name string, faces []int) (*game.Archetype, error) {
	d, err := game.NewDie(name, "special", faces)
	if err != nil {
		return nil, err
	}
	dice := []game.Die{d, d}
	for i := 0; i < 4; i++ {
		dice = append(dice, game.NormalDie())
	}
	return &game.Archetype{Name: name, Dice: dice}, nil
}

// EvaluateDie plays full debates between a special hand and Tabula Rasa.
func EvaluateDie(ctx context.Context, name string, faces []int, cfg Config) (DieReport, error) {
	a, err := specialArchetype(name, faces)
	if err != nil {
		return DieReport{}, err
	}
	stats, err := Run(ctx, a, game.TabulaRasa(), cfg)
	if err != nil {
		return DieReport{}, fmt.Errorf("evaluate %s: %w", name, err)
	}
	r := DieReport{
		Name:          name,
		Faces:         faces,
		Trials:        stats.Trials,
		Wins:          stats.Players[0].Wins,
		Losses:        stats.Players[1].Wins,
		Ties:          stats.Ties,
		MeanNetDamage: stats.MeanDamage(0) - stats.MeanDamage(1),
	}
	r.finish()
	return r, nil
}

// EvaluateDiePure compares single rolls: the special hand and a plain hand
// each roll once, bank every insult found, and clash. No strategy, no
// re-rolls.
func EvaluateDiePure(ctx context.Context, name string, faces []int, cfg Config) (DieReport, error) {
	a, err := specialArchetype(name, faces)
	if err != nil {
		return DieReport{}, err
	}
	if err := cfg.Rules.Validate(); err != nil {
		return DieReport{}, err
	}
	seed := cfg.Seed
	if seed == 0 {
		if seed, err = NewSeed(); err != nil {
			return DieReport{}, err
		}
	}
	plain := game.TabulaRasa()
	r := DieReport{Name: name, Faces: faces, Pure: true}
	var net int64
	for i := int64(0); i < int64(cfg.Trials); i++ {
		if err := ctx.Err(); err != nil {
			return DieReport{}, err
		}
		rngs := trialRands(seed, i)
		hands := [2]*game.PlayerDebateState{
			{Banked: game.Detect(rollHand(a.Dice, rngs[0]), cfg.Rules.AllowSingleDieBanking).Offers()},
			{Banked: game.Detect(rollHand(plain.Dice, rngs[1]), cfg.Rules.AllowSingleDieBanking).Offers()},
		}
		out := game.ResolveClash(cfg.Rules, hands[0], hands[1])
		d := int64(out[0].NetDamage - out[1].NetDamage)
		net += d
		r.Trials++
		switch {
		case d > 0:
			r.Wins++
		case d < 0:
			r.Losses++
		default:
			r.Ties++
		}
	}
	r.MeanNetDamage = ratio(net, r.Trials)
	r.finish()
	return r, nil
}

func rollHand(dice []game.Die, src game.Source) game.Roll {
	var r game.Roll
	for _, d := range dice {
		r[d.Roll(src)]++
	}
	return r
}

// EvaluateDice evaluates every named face set and ranks the reports by
// Score, then by mean net damage.
func EvaluateDice(ctx context.Context, defs map[string][]int, cfg Config, pure bool) ([]DieReport, error) {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	seed := cfg.Seed
	if seed == 0 {
		var err error
		if seed, err = NewSeed(); err != nil {
			return nil, err
		}
	}
	reports := make([]DieReport, 0, len(names))
	for i, name := range names {
		dcfg := cfg
		dcfg.Seed = DeriveSeed(seed, int64(i))
		dcfg.Progress = nil
		var r DieReport
		var err error
		if pure {
			r, err = EvaluateDiePure(ctx, name, defs[name], dcfg)
		} else {
			r, err = EvaluateDie(ctx, name, defs[name], dcfg)
		}
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].Score() != reports[j].Score() {
			return reports[i].Score() > reports[j].Score()
		}
		return reports[i].MeanNetDamage > reports[j].MeanNetDamage
	})
	return reports, nil
}

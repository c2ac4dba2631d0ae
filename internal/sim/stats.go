package sim

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/psychodicenamic/dicesim/internal/game"
)

// SideStats aggregates one archetype's results. All fields are integer sums
// so partial results merge exactly in any order.
type SideStats struct {
	Name         string           `json:"name" yaml:"name"`
	Wins         int64            `json:"wins" yaml:"wins"`
	Damage       int64            `json:"damage" yaml:"damage"`         // net damage dealt, summed over debates
	DamageSq     int64            `json:"damage_sq" yaml:"damage_sq"`   // sum of squared per-debate damage
	Healing      int64            `json:"healing" yaml:"healing"`       // trigger healing
	Fumbles      int64            `json:"fumbles" yaml:"fumbles"`       // debates fumbled
	PerfectBanks int64            `json:"perfect_banks" yaml:"perfect_banks"`
	Rolls        int64            `json:"rolls" yaml:"rolls"`
	EchoSummoned int64            `json:"echo_summoned" yaml:"echo_summoned"`
	Knockouts    int64            `json:"knockouts" yaml:"knockouts"` // match mode: opponents knocked out
	Kinds        map[string]int64 `json:"kinds" yaml:"kinds"`         // banked insults per combo kind
	Patterns     map[string]int64 `json:"patterns" yaml:"patterns"`   // banked insults per pattern
}

func newSideStats(name string) SideStats {
	return SideStats{
		Name:     name,
		Kinds:    make(map[string]int64),
		Patterns: make(map[string]int64),
	}
}

func (s *SideStats) record(o game.PlayerOutcome) {
	d := int64(o.NetDamage)
	s.Damage += d
	s.DamageSq += d * d
	s.Healing += int64(o.Healed)
	if o.Fumbled {
		s.Fumbles++
	}
	if o.PerfectBank {
		s.PerfectBanks++
	}
	s.Rolls += int64(o.Rolls)
	s.EchoSummoned += int64(o.EchoSummoned)
	for _, in := range o.Insults {
		s.Kinds[in.Kind.String()]++
		s.Patterns[in.Pattern.String()]++
	}
}

func (s *SideStats) merge(o SideStats) {
	s.Wins += o.Wins
	s.Damage += o.Damage
	s.DamageSq += o.DamageSq
	s.Healing += o.Healing
	s.Fumbles += o.Fumbles
	s.PerfectBanks += o.PerfectBanks
	s.Rolls += o.Rolls
	s.EchoSummoned += o.EchoSummoned
	s.Knockouts += o.Knockouts
	for k, v := range o.Kinds {
		s.Kinds[k] += v
	}
	for k, v := range o.Patterns {
		s.Patterns[k] += v
	}
}

// Stats is the aggregate of a simulation run. Counters only grow; Reset is
// the only way to lower them.
type Stats struct {
	Mode              string       `json:"mode" yaml:"mode"`
	Seed              int64        `json:"seed" yaml:"seed"`
	Trials            int64        `json:"trials" yaml:"trials"`   // completed trials
	Debates           int64        `json:"debates" yaml:"debates"` // debates played across all trials
	Ties              int64        `json:"ties" yaml:"ties"`
	DebatesWithFumble int64        `json:"debates_with_fumble" yaml:"debates_with_fumble"`
	Cancelled         bool         `json:"cancelled" yaml:"cancelled"`
	Workers           int          `json:"-" yaml:"-"`
	Players           [2]SideStats `json:"players" yaml:"players"`
}

// NewStats returns empty stats for a pairing.
func NewStats(nameA, nameB string, mode TrialMode, seed int64) *Stats {
	return &Stats{
		Mode:    mode.String(),
		Seed:    seed,
		Players: [2]SideStats{newSideStats(nameA), newSideStats(nameB)},
	}
}

// Record adds one trial: its winner (-1 for a tie), the debates it played,
// and whether it ended in a knockout.
func (s *Stats) Record(winner int, debates []game.DebateOutcome, knockout bool) {
	s.Trials++
	switch winner {
	case 0, 1:
		s.Players[winner].Wins++
		if knockout {
			s.Players[winner].Knockouts++
		}
	default:
		s.Ties++
	}
	for _, d := range debates {
		s.Debates++
		if d.Players[0].Fumbled || d.Players[1].Fumbled {
			s.DebatesWithFumble++
		}
		for p := 0; p < 2; p++ {
			s.Players[p].record(d.Players[p])
		}
	}
}

// Merge adds another partial result into s.
func (s *Stats) Merge(o *Stats) {
	s.Trials += o.Trials
	s.Debates += o.Debates
	s.Ties += o.Ties
	s.DebatesWithFumble += o.DebatesWithFumble
	s.Cancelled = s.Cancelled || o.Cancelled
	for p := 0; p < 2; p++ {
		s.Players[p].merge(o.Players[p])
	}
}

// Reset zeroes every counter, keeping names, mode and seed.
func (s *Stats) Reset() {
	*s = *NewStats(s.Players[0].Name, s.Players[1].Name, parseModeOrDebate(s.Mode), s.Seed)
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// WinRate returns the share of trials won by player p.
func (s *Stats) WinRate(p int) float64 {
	return ratio(s.Players[p].Wins, s.Trials)
}

// TieRate returns the share of trials tied.
func (s *Stats) TieRate() float64 {
	return ratio(s.Ties, s.Trials)
}

// FumbleRate returns the share of debates player p fumbled.
func (s *Stats) FumbleRate(p int) float64 {
	return ratio(s.Players[p].Fumbles, s.Debates)
}

// MeanDamage returns player p's mean net damage per debate.
func (s *Stats) MeanDamage(p int) float64 {
	return ratio(s.Players[p].Damage, s.Debates)
}

// DamageVariance returns the sample variance of player p's per-debate damage.
func (s *Stats) DamageVariance(p int) float64 {
	n := s.Debates
	if n < 2 {
		return 0
	}
	sum := float64(s.Players[p].Damage)
	v := (float64(s.Players[p].DamageSq) - sum*sum/float64(n)) / float64(n-1)
	if v < 0 {
		return 0
	}
	return v
}

// DamageStdDev returns the sample standard deviation of player p's damage.
func (s *Stats) DamageStdDev(p int) float64 {
	return math.Sqrt(s.DamageVariance(p))
}

// WinRateInterval returns the Wilson score interval of player p's win rate
// at z standard deviations (1.96 for 95%).
func (s *Stats) WinRateInterval(p int, z float64) (lo, hi float64) {
	n := float64(s.Trials)
	if n == 0 {
		return 0, 1
	}
	phat := s.WinRate(p)
	z2 := z * z
	center := (phat + z2/(2*n)) / (1 + z2/n)
	half := z / (1 + z2/n) * math.Sqrt(phat*(1-phat)/n+z2/(4*n*n))
	return center - half, center + half
}

// Metrics flattens the stats into named rates and means.
func (s *Stats) Metrics() map[string]float64 {
	m := map[string]float64{
		"trials":              float64(s.Trials),
		"debates":             float64(s.Debates),
		"tie_rate":            s.TieRate(),
		"debates_fumble_rate": ratio(s.DebatesWithFumble, s.Debates),
	}
	for p, side := range []string{"a", "b"} {
		m["win_rate_"+side] = s.WinRate(p)
		m["mean_damage_"+side] = s.MeanDamage(p)
		m["stddev_damage_"+side] = s.DamageStdDev(p)
		m["mean_healing_"+side] = ratio(s.Players[p].Healing, s.Debates)
		m["fumble_rate_"+side] = s.FumbleRate(p)
		m["perfect_bank_rate_"+side] = ratio(s.Players[p].PerfectBanks, s.Debates)
		m["mean_rolls_"+side] = ratio(s.Players[p].Rolls, s.Debates)
		m["knockout_rate_"+side] = ratio(s.Players[p].Knockouts, s.Trials)
		for _, k := range game.AllKinds {
			m["banks_per_debate_"+side+"_"+strings.ToLower(k.String())] = ratio(s.Players[p].Kinds[k.String()], s.Debates)
		}
	}
	return m
}

// JSON renders the stats as indented JSON. Map keys are sorted, so equal
// stats always render to identical bytes.
func (s *Stats) JSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

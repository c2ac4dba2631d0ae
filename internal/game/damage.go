package game

import (
	"math"
	"sort"

	"github.com/psychodicenamic/dicesim/internal/log"
)

// PlayerOutcome is one side of a resolved debate.
type PlayerOutcome struct {
	Attack       int // raw banked value plus trigger bonus
	Defense      int // banked value used to block
	Blocked      int // how much of this player's attack the opponent blocked
	NetDamage    int // damage dealt to the opponent by the clash
	Healed       int
	HealthBefore int
	HealthAfter  int
	Fumbled      bool
	PerfectBank  bool
	Rolls        int
	EchoSummoned int
	Insults      []Insult
}

// KindCounts tallies banked insults per combo kind.
func (o PlayerOutcome) KindCounts() map[ComboKind]int {
	counts := make(map[ComboKind]int)
	for _, in := range o.Insults {
		counts[in.Kind]++
	}
	return counts
}

// DebateOutcome is the immutable result of one debate.
type DebateOutcome struct {
	Debate  int
	Winner  int // 0, 1, or -1 for a tie
	Players [2]PlayerOutcome
}

// InsultDamage is the raw damage of one insult under the rules' formula.
func (r Rules) InsultDamage(in Insult) int {
	sum := in.Sum()
	if r.DamageFormula != FormulaKindMultiplier {
		return sum
	}
	return int(math.Floor(float64(sum)*r.Multiplier(in.Kind) + 0.5))
}

// BankedValue sums InsultDamage over a banked collection.
func (r Rules) BankedValue(banked []Insult) int {
	total := 0
	for _, in := range banked {
		total += r.InsultDamage(in)
	}
	return total
}

// SubtractBlock returns how much of attack a defense value blocks:
// floor(defense * ratio), capped at the attack.
func SubtractBlock(attack, defense int, ratio float64) int {
	blocked := int(math.Floor(float64(defense) * ratio))
	if blocked > attack {
		blocked = attack
	}
	if blocked < 0 {
		blocked = 0
	}
	return blocked
}

// MatchBlock pairs each attacking die, smallest first, with the smallest
// unused defending die that is at least as high. It returns the sum of the
// attacking dice nobody blocked.
func MatchBlock(attack, defense []int) int {
	atk := append([]int(nil), attack...)
	def := append([]int(nil), defense...)
	sort.Ints(atk)
	sort.Ints(def)
	unblocked := 0
	j := 0
	for _, a := range atk {
		for j < len(def) && def[j] < a {
			j++
		}
		if j < len(def) {
			j++
			continue
		}
		unblocked += a
	}
	return unblocked
}

func allFaces(banked []Insult) []int {
	var faces []int
	for _, in := range banked {
		faces = append(faces, in.Faces...)
	}
	return faces
}

// ResolveClash computes the damage each side deals the other. Fumbled players
// have nothing banked, so they attack and block for zero. Match blocking
// works on raw faces and ignores the damage formula.
func ResolveClash(rules Rules, a, b *PlayerDebateState) [2]PlayerOutcome {
	players := [2]*PlayerDebateState{a, b}
	var out [2]PlayerOutcome
	for p, ps := range players {
		if rules.BlockingMode == BlockMatch {
			out[p].Defense = RollOf(allFaces(ps.Banked)...).Sum()
		} else {
			out[p].Defense = rules.BankedValue(ps.Banked)
		}
		out[p].Attack = out[p].Defense + ps.BonusDamage
	}
	for p, ps := range players {
		opp := players[1-p]
		var blocked int
		switch rules.BlockingMode {
		case BlockMatch:
			blocked = out[p].Defense - MatchBlock(allFaces(ps.Banked), allFaces(opp.Banked))
		default:
			blocked = SubtractBlock(out[p].Attack, out[1-p].Defense, rules.BlockingRatio)
		}
		out[p].Blocked = blocked
		out[p].NetDamage = out[p].Attack - blocked
	}
	return out
}

// clash resolves damage, applies it to health, fires damage triggers and
// builds the outcome. The winner is whoever dealt more net damage.
func (dc *DebateContext) clash(before [2]int) DebateOutcome {
	a, b := dc.Players[0], dc.Players[1]
	res := ResolveClash(dc.Rules, a, b)

	for p := 0; p < 2; p++ {
		dc.log(log.NewDamageEvent(dc.Debate, p, res[p].Attack, res[p].Blocked, res[p].NetDamage))
	}
	var taken [2]int
	for p := 0; p < 2; p++ {
		target := dc.Players[1-p]
		old := target.Health
		taken[1-p] = target.TakeDamage(res[p].NetDamage)
		dc.logHP(1-p, old, "clash")
	}
	for p := 0; p < 2; p++ {
		if taken[p] > 0 {
			dc.fire(p, TriggerEvent{Kind: OnDamage, Damage: taken[p]})
		}
	}

	outcome := DebateOutcome{Debate: dc.Debate, Winner: -1, Players: res}
	for p, ps := range dc.Players {
		o := &outcome.Players[p]
		o.Healed = ps.Healed
		o.HealthBefore = before[p]
		o.HealthAfter = ps.Health
		o.Fumbled = ps.Fumbled
		o.PerfectBank = ps.PerfectBank
		o.Rolls = ps.Rolls
		o.EchoSummoned = ps.EchoSummoned
		o.Insults = append([]Insult(nil), ps.Banked...)
	}

	switch {
	case res[0].NetDamage > res[1].NetDamage:
		outcome.Winner = 0
		dc.log(log.NewWinEvent(dc.Debate, 0, "more damage dealt"))
	case res[1].NetDamage > res[0].NetDamage:
		outcome.Winner = 1
		dc.log(log.NewWinEvent(dc.Debate, 1, "more damage dealt"))
	default:
		dc.log(log.NewTieEvent(dc.Debate, "equal damage"))
	}
	return outcome
}

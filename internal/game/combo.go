package game

import (
	"fmt"
	"strings"
)

// ComboKind is the scoring tier of an insult. Higher is better.
type ComboKind int

const (
	KindSolid ComboKind = iota
	KindSurprising
	KindShocking
	KindDistressing
	KindAstonishing
)

// AllKinds lists every kind in ascending order.
var AllKinds = []ComboKind{KindSolid, KindSurprising, KindShocking, KindDistressing, KindAstonishing}

func (k ComboKind) String() string {
	switch k {
	case KindSolid:
		return "Solid"
	case KindSurprising:
		return "Surprising"
	case KindShocking:
		return "Shocking"
	case KindDistressing:
		return "Distressing"
	case KindAstonishing:
		return "Astonishing"
	default:
		return "Unknown"
	}
}

// Echo returns the number of echo dice an insult of this kind summons.
func (k ComboKind) Echo() int {
	switch k {
	case KindSurprising:
		return 1
	case KindShocking:
		return 2
	case KindDistressing:
		return 3
	case KindAstonishing:
		return 4
	default:
		return 0
	}
}

// ParseComboKind is the inverse of ComboKind.String.
func ParseComboKind(s string) (ComboKind, error) {
	for _, k := range AllKinds {
		if strings.EqualFold(k.String(), s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown combo kind %q", s)
}

// Pattern is the concrete dice shape behind an insult.
type Pattern int

const (
	PatternSingle Pattern = iota
	PatternPair
	PatternStraight // 3 to 5 consecutive values
	PatternTriplet
	PatternSixStraight
	PatternTwoTriplets
	PatternFourOfAKind
	PatternQuadPair
	PatternFiveOfAKind
	PatternSixOfAKind
)

// AllPatterns lists every pattern in ascending order.
var AllPatterns = []Pattern{
	PatternSingle, PatternPair, PatternStraight, PatternTriplet, PatternSixStraight,
	PatternTwoTriplets, PatternFourOfAKind, PatternQuadPair, PatternFiveOfAKind, PatternSixOfAKind,
}

func (p Pattern) String() string {
	switch p {
	case PatternSingle:
		return "Single"
	case PatternPair:
		return "Pair"
	case PatternStraight:
		return "Straight"
	case PatternTriplet:
		return "Triplet"
	case PatternSixStraight:
		return "SixStraight"
	case PatternTwoTriplets:
		return "TwoTriplets"
	case PatternFourOfAKind:
		return "FourOfAKind"
	case PatternQuadPair:
		return "QuadPair"
	case PatternFiveOfAKind:
		return "FiveOfAKind"
	case PatternSixOfAKind:
		return "SixOfAKind"
	default:
		return "Unknown"
	}
}

// Kind returns the scoring tier of the pattern.
func (p Pattern) Kind() ComboKind {
	switch p {
	case PatternSixOfAKind:
		return KindAstonishing
	case PatternFiveOfAKind:
		return KindDistressing
	case PatternFourOfAKind:
		return KindShocking
	case PatternQuadPair, PatternTwoTriplets, PatternSixStraight, PatternTriplet:
		return KindSurprising
	default:
		return KindSolid
	}
}

// Insult is a scored dice combination. Treat it as immutable.
type Insult struct {
	Kind    ComboKind
	Pattern Pattern
	Faces   []int
	Echo    int
}

func newInsult(p Pattern, faces []int) Insult {
	k := p.Kind()
	return Insult{Kind: k, Pattern: p, Faces: faces, Echo: k.Echo()}
}

// Sum returns the sum of the consumed face values.
func (in Insult) Sum() int {
	s := 0
	for _, f := range in.Faces {
		s += f
	}
	return s
}

// Size returns the number of dice consumed.
func (in Insult) Size() int {
	return len(in.Faces)
}

func (in Insult) String() string {
	parts := make([]string, len(in.Faces))
	for i, f := range in.Faces {
		parts[i] = fmt.Sprintf("%d", f)
	}
	return fmt.Sprintf("%s %s [%s]", in.Kind, in.Pattern, strings.Join(parts, " "))
}

// Detection is the result of evaluating one roll.
type Detection struct {
	Roll     Roll     // the evaluated roll
	Insults  []Insult // best disjoint decomposition, in commit order
	Singles  []Insult // residual dice offered as Solid singles (only when allowed)
	Residual Roll     // dice not covered by Insults
	Fumble   bool
}

// Offers returns everything the player may bank: Insults followed by Singles.
// Bank selections index into this slice.
func (d Detection) Offers() []Insult {
	offers := make([]Insult, 0, len(d.Insults)+len(d.Singles))
	offers = append(offers, d.Insults...)
	return append(offers, d.Singles...)
}

// Consumed returns the number of dice covered by Insults.
func (d Detection) Consumed() int {
	n := 0
	for _, in := range d.Insults {
		n += in.Size()
	}
	return n
}

// Echo returns the total echo dice of Insults.
func (d Detection) Echo() int {
	n := 0
	for _, in := range d.Insults {
		n += in.Echo
	}
	return n
}

// Detect finds the best decomposition of a roll into insults.
//
// Patterns are grouped in tiers tried in a fixed priority order, compound
// shapes ahead of their parts (four of a kind plus a pair is checked before four
// of a kind). The first tier with a match is committed and the remainder is
// decomposed the same way. Every candidate of every pattern in that tier is
// completed, and the completion with the most echo dice wins, then the one
// consuming the most dice, then the highest face sum. The Solid straights and
// pairs share a tier, so a pair plus a short straight beats a long straight
// that strands a die.
func Detect(r Roll, allowSingles bool) Detection {
	det := Detection{Roll: r, Insults: decompose(r, map[Roll][]Insult{})}
	det.Residual = r
	for _, in := range det.Insults {
		det.Residual = det.Residual.Minus(in.Faces)
	}
	if allowSingles {
		for v := MaxFace; v >= MinFace; v-- {
			for i := 0; i < det.Residual[v]; i++ {
				det.Singles = append(det.Singles, newInsult(PatternSingle, []int{v}))
			}
		}
	}
	det.Fumble = len(det.Insults) == 0 && len(det.Singles) == 0
	return det
}

type patternRule struct {
	pattern Pattern
	match   func(r Roll) [][]int
}

// patternTiers lists the rules in priority order. Rules within a tier compete
// on the score of their full decomposition.
var patternTiers = [][]patternRule{
	{{PatternSixOfAKind, ofAKind(6)}},
	{{PatternFiveOfAKind, ofAKind(5)}},
	{{PatternQuadPair, quadPair}},
	{{PatternFourOfAKind, ofAKind(4)}},
	{{PatternTwoTriplets, twoTriplets}},
	{{PatternSixStraight, straight(6)}},
	{{PatternTriplet, ofAKind(3)}},
	{
		{PatternStraight, straight(5)},
		{PatternStraight, straight(4)},
		{PatternStraight, straight(3)},
		{PatternPair, ofAKind(2)},
	},
}

// decompose returns the best decomposition of r. memo caches results per
// remaining roll; the returned slices must not be modified.
func decompose(r Roll, memo map[Roll][]Insult) []Insult {
	if plan, ok := memo[r]; ok {
		return plan
	}
	var best []Insult
	for _, tier := range patternTiers {
		var bestScore planScore
		for _, rule := range tier {
			for _, faces := range rule.match(r) {
				rest := decompose(r.Minus(faces), memo)
				plan := make([]Insult, 0, len(rest)+1)
				plan = append(plan, newInsult(rule.pattern, faces))
				plan = append(plan, rest...)
				if s := scorePlan(plan); best == nil || s.beats(bestScore) {
					best, bestScore = plan, s
				}
			}
		}
		if best != nil {
			break
		}
	}
	memo[r] = best
	return best
}

type planScore struct {
	echo, consumed, sum int
}

func scorePlan(plan []Insult) planScore {
	var s planScore
	for _, in := range plan {
		s.echo += in.Echo
		s.consumed += in.Size()
		s.sum += in.Sum()
	}
	return s
}

func (s planScore) beats(o planScore) bool {
	if s.echo != o.echo {
		return s.echo > o.echo
	}
	if s.consumed != o.consumed {
		return s.consumed > o.consumed
	}
	return s.sum > o.sum
}

func repeat(v, n int) []int {
	faces := make([]int, n)
	for i := range faces {
		faces[i] = v
	}
	return faces
}

// ofAKind matches n dice of one value. Candidates run from high faces to low.
func ofAKind(n int) func(r Roll) [][]int {
	return func(r Roll) [][]int {
		var out [][]int
		for v := MaxFace; v >= MinFace; v-- {
			if r[v] >= n {
				out = append(out, repeat(v, n))
			}
		}
		return out
	}
}

// quadPair matches exactly four of one value with exactly two of another.
// A quad next to a triplet scores better as Shocking plus Surprising, so the
// pair value must not itself hold three or more dice.
func quadPair(r Roll) [][]int {
	var out [][]int
	for q := MaxFace; q >= MinFace; q-- {
		if r[q] != 4 {
			continue
		}
		for p := MaxFace; p >= MinFace; p-- {
			if p != q && r[p] == 2 {
				out = append(out, append(repeat(q, 4), p, p))
			}
		}
	}
	return out
}

func twoTriplets(r Roll) [][]int {
	var out [][]int
	for a := MaxFace; a >= MinFace; a-- {
		if r[a] < 3 {
			continue
		}
		for b := a - 1; b >= MinFace; b-- {
			if r[b] >= 3 {
				out = append(out, append(repeat(a, 3), repeat(b, 3)...))
			}
		}
	}
	return out
}

// straight matches n strictly consecutive distinct values.
func straight(n int) func(r Roll) [][]int {
	return func(r Roll) [][]int {
		var out [][]int
		for lo := MaxFace - n + 1; lo >= MinFace; lo-- {
			ok := true
			for v := lo; v < lo+n; v++ {
				if r[v] == 0 {
					ok = false
					break
				}
			}
			if ok {
				faces := make([]int, n)
				for i := range faces {
					faces[i] = lo + i
				}
				out = append(out, faces)
			}
		}
		return out
	}
}

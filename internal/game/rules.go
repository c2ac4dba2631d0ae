package game

import (
	"fmt"
	"strings"
)

const (
	DefaultStartingHealth   = 12
	DefaultMaxLiveDice      = 6
	DefaultMaxRollsPerRound = 12
	DefaultMaxDebates       = 5
)

// DamageFormula selects how an insult's raw damage is computed.
type DamageFormula int

const (
	FormulaFaceSum        DamageFormula = iota // sum of consumed faces
	FormulaKindMultiplier                      // face sum times the per-kind multiplier
)

func (f DamageFormula) String() string {
	if f == FormulaKindMultiplier {
		return "kind_multiplier"
	}
	return "face_sum"
}

// ParseDamageFormula is the inverse of DamageFormula.String.
func ParseDamageFormula(s string) (DamageFormula, error) {
	switch strings.ToLower(s) {
	case "", "face_sum":
		return FormulaFaceSum, nil
	case "kind_multiplier":
		return FormulaKindMultiplier, nil
	}
	return 0, fmt.Errorf("unknown damage formula %q: %w", s, ErrInvalidRules)
}

// BlockingMode selects how the defender's banked value reduces incoming damage.
type BlockingMode int

const (
	BlockSubtract BlockingMode = iota // net = max(0, attack - floor(defense * ratio))
	BlockMatch                        // each attacking die is stopped by the smallest unused defending die >= it
)

func (m BlockingMode) String() string {
	if m == BlockMatch {
		return "match"
	}
	return "subtract"
}

// ParseBlockingMode is the inverse of BlockingMode.String.
func ParseBlockingMode(s string) (BlockingMode, error) {
	switch strings.ToLower(s) {
	case "", "subtract":
		return BlockSubtract, nil
	case "match":
		return BlockMatch, nil
	}
	return 0, fmt.Errorf("unknown blocking mode %q: %w", s, ErrInvalidRules)
}

// Rules holds the tunable game parameters shared by both players.
type Rules struct {
	AllowSingleDieBanking bool
	StartingHealth        int
	MaxLiveDice           int
	MaxRollsPerRound      int
	MaxDebates            int   // debates per match
	EchoFaces             []int // faces of summoned echo dice
	DamageFormula         DamageFormula
	KindMultipliers       map[ComboKind]float64
	BlockingMode          BlockingMode
	BlockingRatio         float64
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		StartingHealth:   DefaultStartingHealth,
		MaxLiveDice:      DefaultMaxLiveDice,
		MaxRollsPerRound: DefaultMaxRollsPerRound,
		MaxDebates:       DefaultMaxDebates,
		EchoFaces:        []int{1, 2, 3, 4, 5, 6},
		DamageFormula:    FormulaFaceSum,
		BlockingMode:     BlockSubtract,
		BlockingRatio:    1.0,
	}
}

// Validate checks that the rules can drive a debate.
func (r Rules) Validate() error {
	if r.StartingHealth <= 0 {
		return fmt.Errorf("starting health %d: %w", r.StartingHealth, ErrInvalidRules)
	}
	if r.MaxLiveDice <= 0 {
		return fmt.Errorf("max live dice %d: %w", r.MaxLiveDice, ErrInvalidRules)
	}
	if r.MaxRollsPerRound <= 0 {
		return fmt.Errorf("max rolls per round %d: %w", r.MaxRollsPerRound, ErrInvalidRules)
	}
	if r.BlockingRatio < 0 {
		return fmt.Errorf("blocking ratio %v: %w", r.BlockingRatio, ErrInvalidRules)
	}
	if _, err := r.EchoDie(); err != nil {
		return fmt.Errorf("echo faces: %w", err)
	}
	for k, m := range r.KindMultipliers {
		if m < 0 {
			return fmt.Errorf("multiplier for %s is %v: %w", k, m, ErrInvalidRules)
		}
	}
	return nil
}

// EchoDie returns the die used for summoned echo dice.
func (r Rules) EchoDie() (Die, error) {
	if len(r.EchoFaces) == 0 {
		return NormalDie(), nil
	}
	d, err := NewDie("Echo", "echo", r.EchoFaces)
	if err != nil {
		return Die{}, err
	}
	return d, nil
}

// Multiplier returns the damage multiplier for a kind (1 when unset).
func (r Rules) Multiplier(k ComboKind) float64 {
	if m, ok := r.KindMultipliers[k]; ok {
		return m
	}
	return 1
}

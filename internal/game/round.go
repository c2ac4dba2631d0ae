package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/psychodicenamic/dicesim/internal/log"
)

// RoundState is the position of one player's turn in the roll/bank loop.
type RoundState int

const (
	StateRolling RoundState = iota
	StateEvaluating
	StateBanking
	StateFumbled
	StateCommitted
)

func (s RoundState) String() string {
	switch s {
	case StateRolling:
		return "Rolling"
	case StateEvaluating:
		return "Evaluating"
	case StateBanking:
		return "Banking"
	case StateFumbled:
		return "Fumbled"
	case StateCommitted:
		return "Committed"
	default:
		return "Unknown"
	}
}

// PlayerDebateState is one player's mutable state for one debate.
type PlayerDebateState struct {
	Name           string
	Dice           *DiceSet
	Banked         []Insult
	State          RoundState
	Fumbled        bool
	Committed      bool
	PerfectBank    bool
	Rolls          int
	Health         int
	StartingHealth int
	BonusDamage    int // trigger bonus to this debate's attack
	Healed         int // trigger healing applied this debate
	SelfDamage     int // trigger damage taken this debate
	EchoSummoned   int
	Triggers       []Trigger

	last        Detection
	forceCommit bool
	forceFumble bool
}

// NewPlayerDebateState builds fresh debate state for an archetype. health is
// the carried-over health (0 starts at full health).
func NewPlayerDebateState(a *Archetype, rules Rules, health int) (*PlayerDebateState, error) {
	triggers := make([]Trigger, 0, len(a.Triggers))
	for _, name := range a.Triggers {
		t, err := LookupTrigger(name)
		if err != nil {
			return nil, fmt.Errorf("archetype %q: %w", a.Name, err)
		}
		triggers = append(triggers, t)
	}
	start := a.Health(rules)
	if health <= 0 || health > start {
		health = start
	}
	return &PlayerDebateState{
		Name:           a.Name,
		Dice:           NewDiceSet(a.Dice, a.LiveCap(rules)),
		State:          StateRolling,
		Health:         health,
		StartingHealth: start,
		Triggers:       triggers,
	}, nil
}

// Done reports whether the turn has ended.
func (p *PlayerDebateState) Done() bool {
	return p.State == StateFumbled || p.State == StateCommitted
}

// LastDetection returns the detection of the most recent roll.
func (p *PlayerDebateState) LastDetection() Detection {
	return p.last
}

// Heal raises health, capped at the starting health. Returns the amount healed.
func (p *PlayerDebateState) Heal(n int) int {
	if n <= 0 {
		return 0
	}
	if p.Health+n > p.StartingHealth {
		n = p.StartingHealth - p.Health
	}
	p.Health += n
	return n
}

// TakeDamage lowers health, floored at zero. Returns the damage actually taken.
func (p *PlayerDebateState) TakeDamage(n int) int {
	if n <= 0 {
		return 0
	}
	if n > p.Health {
		n = p.Health
	}
	p.Health -= n
	return n
}

// RoundResolver drives one player's turn:
// Rolling → Evaluating → {Banking, Fumbled, Committed}.
type RoundResolver struct {
	dc       *DebateContext
	p        int
	player   *PlayerDebateState
	strategy Strategy
}

// NewRoundResolver returns the resolver for player p of the debate.
func NewRoundResolver(dc *DebateContext, p int) *RoundResolver {
	return &RoundResolver{dc: dc, p: p, player: dc.Players[p], strategy: dc.Strategies[p]}
}

// View returns the player's current decision view.
func (r *RoundResolver) View() TurnView {
	ps := r.player
	return TurnView{
		Player:         r.p,
		Debate:         r.dc.Debate,
		Roll:           ps.Rolls,
		Rolled:         ps.last.Roll,
		LiveFaces:      ps.Dice.LiveFaces(),
		PendingEcho:    ps.Dice.PendingEcho(),
		Banked:         append([]Insult(nil), ps.Banked...),
		Health:         ps.Health,
		OpponentHealth: r.dc.Opponent(r.p).Health,
	}
}

// Roll rolls the live dice, fires roll triggers and evaluates the result.
// A fumble moves the turn to Fumbled and wipes banked insults; otherwise the
// turn moves to Banking with the detection's offers available.
func (r *RoundResolver) Roll() (Detection, error) {
	ps := r.player
	if ps.State != StateRolling {
		return Detection{}, fmt.Errorf("roll requested in state %s", ps.State)
	}
	ps.Rolls++
	roll, rolled := ps.Dice.Roll(r.dc.Rand(r.p))
	ps.State = StateEvaluating
	r.dc.log(log.NewRollEvent(r.dc.Debate, ps.Rolls, r.p, ps.Dice.LiveFaces()))

	dice := ps.Dice.Dice()
	rolledDice := make([]DieState, 0, len(rolled))
	for _, i := range rolled {
		rolledDice = append(rolledDice, dice[i])
	}
	r.dc.fire(r.p, TriggerEvent{Kind: OnRoll, Roll: roll, Dice: rolledDice})

	det := Detect(roll, r.dc.Rules.AllowSingleDieBanking)
	ps.last = det
	switch {
	case ps.forceFumble:
		r.fumble("forced")
		return det, nil
	case det.Fumble:
		r.fumble("no combo")
		return det, nil
	}

	offers := det.Offers()
	names := make([]string, len(offers))
	for i, o := range offers {
		names[i] = o.String()
	}
	r.dc.log(log.NewOfferEvent(r.dc.Debate, ps.Rolls, r.p, names, det.Residual.Total()))
	ps.State = StateBanking
	return det, nil
}

// Bank banks the offers at the given indexes of the latest detection. Indexes
// that were not offered, or repeat, fail with ErrInvalidBankSelection and leave
// the state unchanged. Banking the whole roll is a perfect bank and commits.
func (r *RoundResolver) Bank(picks []int) error {
	ps := r.player
	if ps.State != StateBanking {
		return fmt.Errorf("bank requested in state %s: %w", ps.State, ErrInvalidBankSelection)
	}
	offers := ps.last.Offers()
	seen := make(map[int]bool, len(picks))
	var faces []int
	for _, i := range picks {
		if i < 0 || i >= len(offers) {
			return fmt.Errorf("offer %d of %d: %w", i, len(offers), ErrInvalidBankSelection)
		}
		if seen[i] {
			return fmt.Errorf("offer %d picked twice: %w", i, ErrInvalidBankSelection)
		}
		seen[i] = true
		faces = append(faces, offers[i].Faces...)
	}
	if !ps.Dice.LiveRoll().Contains(faces) {
		return fmt.Errorf("faces %v not live: %w", faces, ErrInvalidBankSelection)
	}

	echo := 0
	for _, i := range picks {
		in := offers[i]
		banked, err := ps.Dice.Bank(in.Faces)
		if err != nil {
			return err
		}
		ps.Banked = append(ps.Banked, in)
		echo += in.Echo
		r.dc.log(log.NewBankEvent(r.dc.Debate, ps.Rolls, r.p, in.Pattern.String(), in.Faces, in.Echo))
		r.dc.fire(r.p, TriggerEvent{Kind: OnBank, Dice: banked, Insult: &in})
	}

	perfect := len(picks) > 0 && ps.Dice.LiveCount() == 0
	if echo > 0 {
		added, dropped := ps.Dice.AddEcho(echo, r.dc.echo)
		ps.EchoSummoned += added
		r.dc.log(log.NewEchoSummonEvent(r.dc.Debate, ps.Rolls, r.p, added, dropped))
	}
	if perfect {
		ps.PerfectBank = true
		r.dc.log(log.NewPerfectBankEvent(r.dc.Debate, ps.Rolls, r.p))
		r.commit(false, "")
		return nil
	}
	if ps.forceCommit {
		r.commit(true, "trigger")
	}
	return nil
}

// Reroll returns the turn to Rolling. With no live dice left it fails with
// ErrIllegalReroll and the state is unchanged.
func (r *RoundResolver) Reroll() error {
	ps := r.player
	if ps.State != StateBanking {
		return fmt.Errorf("reroll requested in state %s", ps.State)
	}
	live := ps.Dice.LiveCount()
	if live == 0 {
		return ErrIllegalReroll
	}
	r.dc.log(log.NewRerollEvent(r.dc.Debate, ps.Rolls, r.p, live))
	ps.State = StateRolling
	return nil
}

// Commit ends the turn keeping whatever is banked.
func (r *RoundResolver) Commit() {
	if r.player.Done() {
		return
	}
	r.commit(false, "")
}

func (r *RoundResolver) commit(forced bool, reason string) {
	ps := r.player
	ps.State = StateCommitted
	ps.Committed = true
	ps.Dice.Thaw()
	if forced {
		r.dc.log(log.NewForcedCommitEvent(r.dc.Debate, ps.Rolls, r.p, reason))
	} else {
		r.dc.log(log.NewCommitEvent(r.dc.Debate, ps.Rolls, r.p, len(ps.Banked)))
	}
	r.dc.fire(r.p, TriggerEvent{Kind: OnCommit})
}

func (r *RoundResolver) fumble(reason string) {
	ps := r.player
	lost := len(ps.Banked)
	ps.Banked = nil
	ps.BonusDamage = 0
	ps.Fumbled = true
	ps.State = StateFumbled
	ps.Dice.Thaw()
	r.dc.log(log.NewFumbleEvent(r.dc.Debate, ps.Rolls, r.p, lost, reason))
	r.dc.fire(r.p, TriggerEvent{Kind: OnFumble})
}

// Step runs one roll → bank → decide cycle and reports whether the turn is over.
// Errors from the strategy, and invalid bank selections, abort the turn.
func (r *RoundResolver) Step(ctx context.Context) (bool, error) {
	ps := r.player
	if ps.Done() {
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if ps.Rolls >= r.dc.Rules.MaxRollsPerRound {
		r.commit(true, fmt.Sprintf("roll limit %d", r.dc.Rules.MaxRollsPerRound))
		return true, nil
	}

	det, err := r.Roll()
	if err != nil {
		return false, err
	}
	if ps.Done() {
		return true, nil
	}

	picks, err := r.strategy.ChooseBank(ctx, r.View(), det.Offers())
	if err != nil {
		return false, fmt.Errorf("choose bank: %w", err)
	}
	if err := r.Bank(picks); err != nil {
		return false, err
	}
	if ps.Done() {
		return true, nil
	}

	again, err := r.strategy.ChooseReroll(ctx, r.View())
	if err != nil {
		return false, fmt.Errorf("choose reroll: %w", err)
	}
	if !again {
		r.Commit()
		return true, nil
	}
	if err := r.Reroll(); err != nil {
		if errors.Is(err, ErrIllegalReroll) {
			r.commit(true, "no live dice")
			return true, nil
		}
		return false, err
	}
	return false, nil
}

// Run steps the turn until it is committed or fumbled.
func (r *RoundResolver) Run(ctx context.Context) error {
	for {
		done, err := r.Step(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

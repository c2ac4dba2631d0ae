package game

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/psychodicenamic/dicesim/internal/log"
)

// DebateConfig holds configuration for creating a new debate.
type DebateConfig struct {
	Rules  Rules
	A, B   *Archetype
	Logger log.EventLogger
	Seed   int64     // RNG seed (0 for random); ignored when Rand is set
	Rand   [2]Source // per-player random sources (tests, simulation workers)
	Debate int       // debate number within a match (0 = 1)
	Health [2]int    // carried-over health (0 = starting health)
}

// DebateContext is the explicit shared state of one debate. Triggers and the
// round resolvers reach both players through it; nothing is global, so
// debates can run concurrently.
type DebateContext struct {
	Rules      Rules
	Debate     int
	Players    [2]*PlayerDebateState
	Strategies [2]Strategy
	Logger     log.EventLogger

	rngs [2]Source
	echo Die
	ctx  context.Context
}

// NewDebate builds a debate between two archetypes. Configuration problems
// (bad rules, malformed dice, unknown triggers) are reported here, before any
// die is rolled.
func NewDebate(cfg DebateConfig, s0, s1 Strategy) (*DebateContext, error) {
	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}
	echo, err := cfg.Rules.EchoDie()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewMemoryLogger()
	}
	debate := cfg.Debate
	if debate == 0 {
		debate = 1
	}

	dc := &DebateContext{
		Rules:      cfg.Rules,
		Debate:     debate,
		Strategies: [2]Strategy{s0, s1},
		Logger:     logger,
		rngs:       cfg.Rand,
		echo:       echo,
		ctx:        context.Background(),
	}
	for p, a := range []*Archetype{cfg.A, cfg.B} {
		if a == nil {
			return nil, fmt.Errorf("player %d has no archetype", p+1)
		}
		if err := a.Validate(); err != nil {
			return nil, err
		}
		ps, err := NewPlayerDebateState(a, cfg.Rules, cfg.Health[p])
		if err != nil {
			return nil, err
		}
		dc.Players[p] = ps
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	for p := range dc.rngs {
		if dc.rngs[p] == nil {
			dc.rngs[p] = rand.New(rand.NewSource(seed + int64(p)*0x9e3779b9))
		}
	}
	return dc, nil
}

// Rand returns player p's private random source.
func (dc *DebateContext) Rand(p int) Source {
	return dc.rngs[p]
}

// Opponent returns the state of p's opponent.
func (dc *DebateContext) Opponent(p int) *PlayerDebateState {
	return dc.Players[1-p]
}

// Run plays both turns, interleaved one roll at a time, then resolves the clash.
func (dc *DebateContext) Run(ctx context.Context) (DebateOutcome, error) {
	dc.ctx = ctx
	a, b := dc.Players[0], dc.Players[1]
	before := [2]int{a.Health, b.Health}

	dc.log(log.NewDebateStartEvent(dc.Debate, a.Name, b.Name))
	for p := 0; p < 2; p++ {
		dc.fire(p, TriggerEvent{Kind: OnDebateStart})
	}

	resolvers := [2]*RoundResolver{NewRoundResolver(dc, 0), NewRoundResolver(dc, 1)}
	var done [2]bool
	for !done[0] || !done[1] {
		for p := 0; p < 2; p++ {
			if done[p] {
				continue
			}
			var err error
			done[p], err = resolvers[p].Step(ctx)
			if err != nil {
				return DebateOutcome{}, fmt.Errorf("P%d turn: %w", p+1, err)
			}
		}
	}

	return dc.clash(before), nil
}

// fire runs p's triggers registered for ev.Kind and applies their deltas.
func (dc *DebateContext) fire(p int, ev TriggerEvent) {
	for _, t := range dc.Players[p].Triggers {
		if !t.Handles(ev.Kind) {
			continue
		}
		delta := t.Fire(dc, ev, p)
		if delta.IsZero() {
			continue
		}
		dc.log(log.NewTriggerEvent(dc.Debate, dc.Players[p].Rolls, p, t.Name(), ev.Kind.String()))
		dc.apply(p, delta)
	}
}

// apply applies a trigger delta on behalf of player p.
func (dc *DebateContext) apply(p int, d StateDelta) {
	self, opp := dc.Players[p], dc.Opponent(p)
	if d.Heal > 0 {
		old := self.Health
		self.Healed += self.Heal(d.Heal)
		dc.logHP(p, old, "heal")
	}
	if d.SelfDamage > 0 {
		old := self.Health
		self.SelfDamage += self.TakeDamage(d.SelfDamage)
		dc.logHP(p, old, "self damage")
	}
	if d.OpponentDamage > 0 {
		old := opp.Health
		opp.SelfDamage += opp.TakeDamage(d.OpponentDamage)
		dc.logHP(1-p, old, "trigger damage")
	}
	self.BonusDamage += d.BonusDamage
	if d.ForceCommit {
		self.forceCommit = true
	}
	if d.ForceFumble {
		self.forceFumble = true
	}
	if !opp.Done() {
		for i := 0; i < d.FreezeOpponent; i++ {
			idx := opp.Dice.HighestUnfrozen()
			if idx < 0 || !opp.Dice.Freeze(idx) {
				break
			}
			ds := opp.Dice.Dice()[idx]
			dc.log(log.NewFreezeEvent(dc.Debate, opp.Rolls, 1-p, ds.Die.Name, ds.Value))
		}
	}
}

func (dc *DebateContext) logHP(p int, old int, reason string) {
	if nw := dc.Players[p].Health; nw != old {
		dc.log(log.NewHPChangeEvent(dc.Debate, p, old, nw, reason))
	}
}

func (dc *DebateContext) log(event log.GameEvent) {
	dc.Logger.Log(event)
	// Notify strategies (ignore errors for notifications)
	for i := 0; i < 2; i++ {
		if dc.Strategies[i] != nil {
			_ = dc.Strategies[i].Notify(dc.ctx, event)
		}
	}
}

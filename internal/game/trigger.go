package game

import (
	"fmt"
	"sort"
)

// TriggerKind is the event a trigger can be registered against.
type TriggerKind int

const (
	OnDebateStart TriggerKind = iota
	OnRoll
	OnBank
	OnFumble
	OnCommit
	OnDamage
)

func (k TriggerKind) String() string {
	switch k {
	case OnDebateStart:
		return "debate-start"
	case OnRoll:
		return "roll"
	case OnBank:
		return "bank"
	case OnFumble:
		return "fumble"
	case OnCommit:
		return "commit"
	case OnDamage:
		return "damage"
	default:
		return "unknown"
	}
}

// TriggerEvent carries what happened to the player a trigger belongs to.
type TriggerEvent struct {
	Kind   TriggerKind
	Roll   Roll       // OnRoll: the live roll
	Dice   []DieState // OnRoll: dice that were rolled; OnBank: dice that were banked
	Insult *Insult    // OnBank: the banked insult
	Damage int        // OnDamage: net damage taken
}

// StateDelta is what a trigger asks the core to change. The core applies it;
// triggers never mutate player state directly.
type StateDelta struct {
	Heal           int
	SelfDamage     int
	OpponentDamage int
	BonusDamage    int  // added to this player's raw attack for the debate
	ForceCommit    bool // end the turn keeping what is banked
	ForceFumble    bool // fumble on this roll
	FreezeOpponent int  // number of the opponent's highest live dice to make waxy
}

// IsZero reports whether the delta changes nothing.
func (d StateDelta) IsZero() bool {
	return d == StateDelta{}
}

// Trigger is an extension hook fired at debate events.
type Trigger interface {
	Name() string
	Handles(kind TriggerKind) bool
	Fire(dc *DebateContext, ev TriggerEvent, player int) StateDelta
}

// TriggerFunc adapts a function to the Trigger interface.
type TriggerFunc struct {
	TriggerName string
	On          []TriggerKind

	// Fn computes the delta. It may keep per-debate state in its closure.
	Fn func(dc *DebateContext, ev TriggerEvent, player int) StateDelta
}

func (t *TriggerFunc) Name() string { return t.TriggerName }

func (t *TriggerFunc) Handles(kind TriggerKind) bool {
	for _, k := range t.On {
		if k == kind {
			return true
		}
	}
	return false
}

func (t *TriggerFunc) Fire(dc *DebateContext, ev TriggerEvent, player int) StateDelta {
	if t.Fn == nil {
		return StateDelta{}
	}
	return t.Fn(dc, ev, player)
}

// TriggerRegistry maps trigger names to constructors. Each debate gets fresh
// instances, so triggers may keep per-debate state.
var TriggerRegistry = map[string]func() Trigger{
	"bliss":         Bliss,
	"comedown":      Comedown,
	"ridicule":      Ridicule,
	"catastrophize": Catastrophize,
	"high-minded":   HighMinded,
	"catalepsy":     Catalepsy,
	"temperance":    TemperanceHumors,
	"victimhood":    Victimhood,
}

// LookupTrigger builds a new trigger instance by name.
func LookupTrigger(name string) (Trigger, error) {
	ctor, ok := TriggerRegistry[name]
	if !ok {
		return nil, fmt.Errorf("trigger %q: %w", name, ErrUnknownTrigger)
	}
	return ctor(), nil
}

// TriggerNames returns the registered trigger names, sorted.
func TriggerNames() []string {
	names := make([]string, 0, len(TriggerRegistry))
	for name := range TriggerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

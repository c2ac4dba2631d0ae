package game

import (
	"fmt"
	"sort"
	"strings"
)

// Archetype is a named player loadout: a pool of dice plus optional triggers.
// Treat it as immutable once built; every debate copies what it needs.
type Archetype struct {
	Name           string
	Description    string
	Dice           []Die
	StartingHealth int // 0 = rules default
	MaxLiveDice    int // 0 = rules default
	Triggers       []string
}

// Validate re-checks every die and trigger name.
func (a *Archetype) Validate() error {
	if len(a.Dice) == 0 {
		return fmt.Errorf("archetype %q has no dice: %w", a.Name, ErrMalformedDie)
	}
	for i, d := range a.Dice {
		if _, err := NewDie(d.Name, d.Tag, d.Faces[:]); err != nil {
			return fmt.Errorf("archetype %q die %d: %w", a.Name, i+1, err)
		}
	}
	for _, name := range a.Triggers {
		if _, ok := TriggerRegistry[name]; !ok {
			return fmt.Errorf("archetype %q trigger %q: %w", a.Name, name, ErrUnknownTrigger)
		}
	}
	if a.StartingHealth < 0 || a.MaxLiveDice < 0 {
		return fmt.Errorf("archetype %q: negative health or live dice: %w", a.Name, ErrInvalidRules)
	}
	return nil
}

// Health returns the archetype's starting health under the rules.
func (a *Archetype) Health(r Rules) int {
	if a.StartingHealth > 0 {
		return a.StartingHealth
	}
	return r.StartingHealth
}

// LiveCap returns the archetype's live dice cap under the rules.
func (a *Archetype) LiveCap(r Rules) int {
	if a.MaxLiveDice > 0 {
		return a.MaxLiveDice
	}
	return r.MaxLiveDice
}

// WithDice returns a copy with a different dice pool.
func (a *Archetype) WithDice(name string, dice []Die) *Archetype {
	c := *a
	c.Name = name
	c.Dice = append([]Die(nil), dice...)
	c.Triggers = append([]string(nil), a.Triggers...)
	return &c
}

// Catalog is an ordered, name-indexed set of archetypes.
type Catalog struct {
	order  []*Archetype
	byName map[string]*Archetype
}

// NewCatalog builds a catalog. Later archetypes replace earlier ones of the same name.
func NewCatalog(archs ...*Archetype) *Catalog {
	c := &Catalog{byName: make(map[string]*Archetype)}
	for _, a := range archs {
		c.Add(a)
	}
	return c
}

// DefaultCatalog returns every archetype in ArchetypeRegistry, sorted by name.
func DefaultCatalog() *Catalog {
	names := make([]string, 0, len(ArchetypeRegistry))
	for name := range ArchetypeRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	c := NewCatalog()
	for _, name := range names {
		c.Add(ArchetypeRegistry[name]())
	}
	return c
}

// Add inserts or replaces an archetype.
func (c *Catalog) Add(a *Archetype) {
	key := strings.ToLower(a.Name)
	if old, ok := c.byName[key]; ok {
		for i, o := range c.order {
			if o == old {
				c.order[i] = a
			}
		}
	} else {
		c.order = append(c.order, a)
	}
	c.byName[key] = a
}

// Lookup finds an archetype by name, ignoring case.
func (c *Catalog) Lookup(name string) (*Archetype, error) {
	a, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownArchetype)
	}
	return a, nil
}

// All returns the archetypes in insertion order.
func (c *Catalog) All() []*Archetype {
	return append([]*Archetype(nil), c.order...)
}

// Names returns the archetype names in insertion order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.order))
	for i, a := range c.order {
		names[i] = a.Name
	}
	return names
}

// Len returns the number of archetypes.
func (c *Catalog) Len() int {
	return len(c.order)
}

package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ArchetypeFile represents the top-level YAML structure.
type ArchetypeFile struct {
	Archetypes []ArchetypeEntry `yaml:"archetypes"`
}

// ArchetypeEntry represents a single archetype in the YAML file.
type ArchetypeEntry struct {
	Name           string     `yaml:"name"`
	Description    string     `yaml:"description"`
	Dice           []DieEntry `yaml:"dice"`
	StartingHealth int        `yaml:"starting_health"`
	MaxLiveDice    int        `yaml:"max_live_dice"`
	Triggers       []string   `yaml:"triggers"`
}

// DieEntry is one die (or Count identical dice) in an archetype.
// It accepts either a bare face list, [2, 3, 4, 5, 6, 6], or a mapping with
// name, tag, faces and count.
type DieEntry struct {
	Name  string `yaml:"name"`
	Tag   string `yaml:"tag"`
	Faces []int  `yaml:"faces"`
	Count int    `yaml:"count"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *DieEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&e.Faces)
	}
	type plain DieEntry
	return node.Decode((*plain)(e))
}

func (e DieEntry) build(archetype string, index int) ([]Die, error) {
	name := e.Name
	if name == "" {
		name = fmt.Sprintf("%s #%d", archetype, index+1)
	}
	d, err := NewDie(name, e.Tag, e.Faces)
	if err != nil {
		return nil, fmt.Errorf("archetype %q die %d: %w", archetype, index+1, err)
	}
	n := e.Count
	if n <= 0 {
		n = 1
	}
	dice := make([]Die, n)
	for i := range dice {
		dice[i] = d
	}
	return dice, nil
}

// Build turns the entry into a validated archetype.
func (e ArchetypeEntry) Build() (*Archetype, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("archetype without a name: %w", ErrUnknownArchetype)
	}
	a := &Archetype{
		Name:           e.Name,
		Description:    e.Description,
		StartingHealth: e.StartingHealth,
		MaxLiveDice:    e.MaxLiveDice,
		Triggers:       e.Triggers,
	}
	for i, de := range e.Dice {
		dice, err := de.build(e.Name, i)
		if err != nil {
			return nil, err
		}
		a.Dice = append(a.Dice, dice...)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// ParseArchetypes parses archetype YAML.
func ParseArchetypes(data []byte) ([]*Archetype, error) {
	var af ArchetypeFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return nil, fmt.Errorf("parse archetype YAML: %w", err)
	}
	archs := make([]*Archetype, 0, len(af.Archetypes))
	for _, entry := range af.Archetypes {
		a, err := entry.Build()
		if err != nil {
			return nil, err
		}
		archs = append(archs, a)
	}
	return archs, nil
}

// ParseArchetypeFile parses a YAML archetype file.
func ParseArchetypeFile(path string) ([]*Archetype, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseArchetypes(data)
}

// ArchetypeByNumber returns the Nth archetype (1-indexed) from the file.
func ArchetypeByNumber(path string, n int) (*Archetype, error) {
	archs, err := ParseArchetypeFile(path)
	if err != nil {
		return nil, err
	}
	if n < 1 || n > len(archs) {
		return nil, fmt.Errorf("archetype %d not found (have %d archetypes)", n, len(archs))
	}
	return archs[n-1], nil
}

// LoadCatalog returns the built-in catalog with the file's archetypes added.
// File entries replace built-ins of the same name. An empty path returns the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	c := DefaultCatalog()
	if path == "" {
		return c, nil
	}
	archs, err := ParseArchetypeFile(path)
	if err != nil {
		return nil, fmt.Errorf("load archetypes %s: %w", path, err)
	}
	for _, a := range archs {
		c.Add(a)
	}
	return c, nil
}

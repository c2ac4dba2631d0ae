package game

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRegistryArchetypesAreValid(t *testing.T) {
	for name, ctor := range ArchetypeRegistry {
		a := ctor()
		if a.Name != name {
			t.Errorf("Registry key %q builds %q", name, a.Name)
		}
		if err := a.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if len(a.Dice) != 6 {
			t.Errorf("%s: expected 6 dice, got %d", name, len(a.Dice))
		}
	}
	if _, err := LookupArchetype("Nobody"); !errors.Is(err, ErrUnknownArchetype) {
		t.Errorf("Expected ErrUnknownArchetype, got %v", err)
	}
}

func TestDefinitionFacesAreValid(t *testing.T) {
	for name, faces := range SpecialDiceDefinitions {
		if _, err := NewDie(name, "", faces); err != nil {
			t.Errorf("special die %s: %v", name, err)
		}
	}
	for name, faces := range DefenseDiceDefinitions {
		if _, err := NewDie(name, "", faces); err != nil {
			t.Errorf("defense die %s: %v", name, err)
		}
	}
}

func TestCatalogLookupIgnoresCase(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() != len(ArchetypeRegistry) {
		t.Errorf("Expected %d archetypes, got %d", len(ArchetypeRegistry), c.Len())
	}
	a, err := c.Lookup("tabula rasa")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if a.Name != "Tabula Rasa" {
		t.Errorf("Expected Tabula Rasa, got %s", a.Name)
	}
	if _, err := c.Lookup("nobody"); !errors.Is(err, ErrUnknownArchetype) {
		t.Errorf("Expected ErrUnknownArchetype, got %v", err)
	}
}

const testArchetypes = `
archetypes:
  - name: Lucky
    description: two loaded dice
    starting_health: 15
    dice:
      - [2, 3, 4, 5, 6, 6]
      - {name: Loaded, tag: gold, faces: [4, 4, 5, 5, 6, 6], count: 2}
      - {faces: [1, 2, 3, 4, 5, 6], count: 3}
  - name: Tabula Rasa
    dice:
      - {faces: [1, 2, 3, 4, 5, 6], count: 5}
    triggers: [bliss]
`

func TestParseArchetypes(t *testing.T) {
	archs, err := ParseArchetypes([]byte(testArchetypes))
	if err != nil {
		t.Fatalf("ParseArchetypes: %v", err)
	}
	if len(archs) != 2 {
		t.Fatalf("Expected 2 archetypes, got %d", len(archs))
	}
	lucky := archs[0]
	if len(lucky.Dice) != 6 || lucky.StartingHealth != 15 {
		t.Errorf("Expected 6 dice and 15 health, got %d and %d", len(lucky.Dice), lucky.StartingHealth)
	}
	if lucky.Dice[1].Name != "Loaded" || lucky.Dice[2].Tag != "gold" {
		t.Errorf("Expected the loaded dice in order, got %v", lucky.Dice)
	}
	if lucky.Dice[0].Name != "Lucky #1" {
		t.Errorf("Expected an unnamed die to take the archetype's name, got %q", lucky.Dice[0].Name)
	}
	if lucky.Health(DefaultRules()) != 15 || archs[1].Health(DefaultRules()) != DefaultStartingHealth {
		t.Error("Health override not applied")
	}
}

func TestParseArchetypesErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"five faces", "archetypes:\n  - name: X\n    dice: [[1, 2, 3, 4, 5]]\n", ErrMalformedDie},
		{"face out of range", "archetypes:\n  - name: X\n    dice: [[0, 2, 3, 4, 5, 6]]\n", ErrMalformedDie},
		{"no dice", "archetypes:\n  - name: X\n", ErrMalformedDie},
		{"unknown trigger", "archetypes:\n  - name: X\n    dice: [[1, 2, 3, 4, 5, 6]]\n    triggers: [nope]\n", ErrUnknownTrigger},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseArchetypes([]byte(tt.yaml)); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadCatalogOverridesBuiltins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archetypes.yaml")
	if err := os.WriteFile(path, []byte(testArchetypes), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if c.Len() != len(ArchetypeRegistry)+1 {
		t.Errorf("Expected the built-ins plus Lucky, got %d", c.Len())
	}
	tr, _ := c.Lookup("Tabula Rasa")
	if len(tr.Dice) != 5 {
		t.Errorf("Expected the file to replace Tabula Rasa, got %d dice", len(tr.Dice))
	}

	second, err := ArchetypeByNumber(path, 2)
	if err != nil || second.Name != "Tabula Rasa" {
		t.Errorf("Expected archetype 2 to be Tabula Rasa, got %v (%v)", second, err)
	}
	if _, err := ArchetypeByNumber(path, 3); err == nil {
		t.Error("Expected an error for a missing archetype number")
	}
}

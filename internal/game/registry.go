package game

import "fmt"

// ArchetypeRegistry maps archetype names to their constructor functions.
var ArchetypeRegistry = map[string]func() *Archetype{
	"Tabula Rasa":       TabulaRasa,
	"Dominant":          Dominant,
	"Euphoria":          Euphoria,
	"Temperance":        Temperance,
	"The Rationalist":   Rationalist,
	"The Machiavellian": Machiavellian,
	"Anxiety":           Anxiety,
	"The Catatonic":     Catatonic,
}

// LookupArchetype looks up an archetype by name and returns a new instance.
func LookupArchetype(name string) (*Archetype, error) {
	ctor, ok := ArchetypeRegistry[name]
	if !ok {
		return nil, fmt.Errorf("archetype %q not in registry: %w", name, ErrUnknownArchetype)
	}
	return ctor(), nil
}

// --- Special dice ---

func BlissDie() Die         { return mustDie("Bliss", "pink", 2, 3, 4, 5, 6, 6) }
func ComedownDie() Die      { return mustDie("Comedown", "pink", 2, 2, 2, 4, 4, 6) }
func HighMindedDie() Die    { return mustDie("High-Minded", "blue", 1, 1, 2, 3, 4, 6) }
func PilferDie() Die        { return mustDie("Pilfer", "green", 1, 1, 2, 3, 6, 6) }
func CatastrophizeDie() Die { return mustDie("Catastrophize", "black", 1, 3, 4, 6, 6, 6) }
func RidiculeDie() Die      { return mustDie("Ridicule", "black", 1, 2, 3, 4, 5, 6) }

// humorDie is one of the four temperament dice; they share faces and differ by tag.
func humorDie(name, tag string) Die {
	return mustDie(name, tag, 2, 2, 3, 4, 5, 6)
}

func normals(n int) []Die {
	dice := make([]Die, n)
	for i := range dice {
		dice[i] = NormalDie()
	}
	return dice
}

// --- Archetypes ---

// TabulaRasa is the baseline: six normal dice.
func TabulaRasa() *Archetype {
	return &Archetype{
		Name:        "Tabula Rasa",
		Description: "6x normal d6",
		Dice:        normals(6),
	}
}

// Dominant has every face shifted up by one and clipped to 6.
func Dominant() *Archetype {
	d := mustDie("Dominant", "gold", 2, 3, 4, 5, 6, 6)
	return &Archetype{
		Name:        "Dominant",
		Description: "6x [2,3,4,5,6,6]",
		Dice:        []Die{d, d, d, d, d, d},
	}
}

func Euphoria() *Archetype {
	return &Archetype{
		Name:        "Euphoria",
		Description: "Bliss + Comedown + 4x normal; Bliss heals on 6, Comedown hurts on 6",
		Dice:        append([]Die{BlissDie(), ComedownDie()}, normals(4)...),
		Triggers:    []string{"bliss", "comedown"},
	}
}

func Temperance() *Archetype {
	return &Archetype{
		Name:        "Temperance",
		Description: "one die per humor + 2x normal; a sanguine-led bank heals 1 on commit",
		Dice: append([]Die{
			humorDie("Choleric", "yellow"),
			humorDie("Melancholic", "gray"),
			humorDie("Phlegmatic", "green"),
			humorDie("Sanguine", "red"),
		}, normals(2)...),
		Triggers: []string{"temperance"},
	}
}

func Rationalist() *Archetype {
	return &Archetype{
		Name:        "The Rationalist",
		Description: "2x High-Minded + 4x normal; banking a High-Minded 6 raises the insult",
		Dice:        append([]Die{HighMindedDie(), HighMindedDie()}, normals(4)...),
		Triggers:    []string{"high-minded"},
	}
}

func Machiavellian() *Archetype {
	return &Archetype{
		Name:        "The Machiavellian",
		Description: "2x Pilfer + 4x normal",
		Dice:        append([]Die{PilferDie(), PilferDie()}, normals(4)...),
	}
}

func Anxiety() *Archetype {
	return &Archetype{
		Name:        "Anxiety",
		Description: "Catastrophize + Ridicule + 4x normal; a Catastrophize 1 busts the roll",
		Dice:        append([]Die{CatastrophizeDie(), RidiculeDie()}, normals(4)...),
		Triggers:    []string{"catastrophize", "ridicule"},
	}
}

func Catatonic() *Archetype {
	return &Archetype{
		Name:        "The Catatonic",
		Description: "6x normal; the first 6 rolled freezes the opponent's highest die",
		Dice:        normals(6),
		Triggers:    []string{"catalepsy", "victimhood"},
	}
}

// SpecialDiceDefinitions are the face sets evaluated by the hand tester.
var SpecialDiceDefinitions = map[string][]int{
	"normal_d6":   {1, 2, 3, 4, 5, 6},
	"extra high":  {1, 2, 3, 4, 6, 6},
	"extra low":   {1, 1, 3, 4, 5, 6},
	"extreme":     {1, 1, 1, 6, 6, 6},
	"evens":       {2, 2, 4, 4, 6, 6},
	"odds":        {1, 1, 3, 3, 5, 5},
	"more 3s":     {1, 3, 3, 3, 3, 6},
	"more middle": {1, 2, 4, 4, 5, 6},
}

// DefenseDiceDefinitions are the defense dice faces.
var DefenseDiceDefinitions = map[string][]int{
	"Halo-Effect":    {1, 2, 3, 3, 4, 4},
	"Scapegoat":      {2, 3, 4, 5, 6, 6},
	"Normalcy":       {1, 2, 3, 4, 5, 6},
	"Dunning-Kruger": {2, 3, 4, 5, 6, 6},
	"Egocentric":     {1, 1, 2, 2, 6, 6},
}

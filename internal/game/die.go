package game

import (
	"fmt"
	"strings"
)

const (
	FaceCount = 6
	MinFace   = 1
	MaxFace   = 6
)

// Source is the random source dice roll against. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Die is an immutable six-sided die definition.
type Die struct {
	Name  string
	Tag   string // color/category read by extension triggers
	Faces [FaceCount]int
}

// NewDie validates faces and returns a die. Any face count other than six,
// or any face outside 1..6, yields ErrMalformedDie.
func NewDie(name, tag string, faces []int) (Die, error) {
	if len(faces) != FaceCount {
		return Die{}, fmt.Errorf("die %q has %d faces, want %d: %w", name, len(faces), FaceCount, ErrMalformedDie)
	}
	d := Die{Name: name, Tag: tag}
	for i, f := range faces {
		if f < MinFace || f > MaxFace {
			return Die{}, fmt.Errorf("die %q face %d is %d: %w", name, i+1, f, ErrMalformedDie)
		}
		d.Faces[i] = f
	}
	return d, nil
}

// mustDie is used by the built-in catalog, whose faces are known good.
func mustDie(name, tag string, faces ...int) Die {
	d, err := NewDie(name, tag, faces)
	if err != nil {
		panic(err)
	}
	return d
}

// NormalDie returns a standard 1..6 die.
func NormalDie() Die {
	return mustDie("Normal", "white", 1, 2, 3, 4, 5, 6)
}

// Roll picks one face uniformly.
func (d Die) Roll(src Source) int {
	return d.Faces[src.Intn(FaceCount)]
}

// Mean returns the expected face value.
func (d Die) Mean() float64 {
	sum := 0
	for _, f := range d.Faces {
		sum += f
	}
	return float64(sum) / FaceCount
}

func (d Die) String() string {
	parts := make([]string, FaceCount)
	for i, f := range d.Faces {
		parts[i] = fmt.Sprintf("%d", f)
	}
	return fmt.Sprintf("%s[%s]", d.Name, strings.Join(parts, ","))
}

package game

import (
	"fmt"
	"strings"
)

// Roll maps face value to count. Index 0 is unused.
type Roll [MaxFace + 1]int

// RollOf builds a Roll from individual face values. Values outside 1..6 are ignored.
func RollOf(faces ...int) Roll {
	var r Roll
	for _, f := range faces {
		if f >= MinFace && f <= MaxFace {
			r[f]++
		}
	}
	return r
}

// Total returns the number of dice in the roll.
func (r Roll) Total() int {
	n := 0
	for v := MinFace; v <= MaxFace; v++ {
		n += r[v]
	}
	return n
}

// Sum returns the sum of all face values.
func (r Roll) Sum() int {
	s := 0
	for v := MinFace; v <= MaxFace; v++ {
		s += v * r[v]
	}
	return s
}

// Faces expands the roll into ascending face values.
func (r Roll) Faces() []int {
	faces := make([]int, 0, r.Total())
	for v := MinFace; v <= MaxFace; v++ {
		for i := 0; i < r[v]; i++ {
			faces = append(faces, v)
		}
	}
	return faces
}

// Minus removes faces from the roll. The caller guarantees the faces are present.
func (r Roll) Minus(faces []int) Roll {
	for _, f := range faces {
		r[f]--
	}
	return r
}

// Contains reports whether every face is available in the roll.
func (r Roll) Contains(faces []int) bool {
	for _, f := range faces {
		if f < MinFace || f > MaxFace {
			return false
		}
		r[f]--
		if r[f] < 0 {
			return false
		}
	}
	return true
}

// String renders the roll as "{2:2, 6:4}".
func (r Roll) String() string {
	var parts []string
	for v := MinFace; v <= MaxFace; v++ {
		if r[v] > 0 {
			parts = append(parts, fmt.Sprintf("%d:%d", v, r[v]))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

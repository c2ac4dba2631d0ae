package game

import "fmt"

// DieRole is the per-debate runtime role of a die.
type DieRole int

const (
	RoleLive   DieRole = iota
	RoleWaxy           // live, but the value is frozen until the turn ends
	RoleBanked         // consumed into an insult
)

func (r DieRole) String() string {
	switch r {
	case RoleLive:
		return "live"
	case RoleWaxy:
		return "waxy"
	case RoleBanked:
		return "banked"
	default:
		return "unknown"
	}
}

// DieOrigin records where a runtime die came from.
type DieOrigin int

const (
	OriginPhysical DieOrigin = iota // drawn from the archetype
	OriginEcho                      // summoned by an insult
)

func (o DieOrigin) String() string {
	if o == OriginEcho {
		return "echo"
	}
	return "physical"
}

// DieState is one die as it exists during a debate.
type DieState struct {
	Die    Die
	Role   DieRole
	Origin DieOrigin
	Value  int // last rolled face, 0 before the first roll
}

// IsLive reports whether the die takes part in the next roll (waxy dice do, frozen).
func (s DieState) IsLive() bool {
	return s.Role == RoleLive || s.Role == RoleWaxy
}

// DiceSet is one player's dice for one debate.
type DiceSet struct {
	dice    []DieState
	maxLive int
}

// NewDiceSet builds a fresh set from definitions. maxLive caps the live pool
// when echo dice are summoned (0 means no cap beyond the starting size).
func NewDiceSet(dice []Die, maxLive int) *DiceSet {
	s := &DiceSet{maxLive: maxLive}
	if s.maxLive <= 0 || s.maxLive < len(dice) {
		s.maxLive = len(dice)
	}
	for _, d := range dice {
		s.dice = append(s.dice, DieState{Die: d, Role: RoleLive, Origin: OriginPhysical})
	}
	return s
}

// Dice returns a copy of the runtime dice.
func (s *DiceSet) Dice() []DieState {
	out := make([]DieState, len(s.dice))
	copy(out, s.dice)
	return out
}

// Len returns the number of dice ever in the set, banked included.
func (s *DiceSet) Len() int {
	return len(s.dice)
}

// MaxLive returns the live pool cap.
func (s *DiceSet) MaxLive() int {
	return s.maxLive
}

// LiveCount returns the number of live dice, waxy included.
func (s *DiceSet) LiveCount() int {
	n := 0
	for _, d := range s.dice {
		if d.IsLive() {
			n++
		}
	}
	return n
}

// Roll re-rolls every live die that is not waxy and returns the Roll of the
// whole live pool, along with the indexes of the dice that were rolled.
func (s *DiceSet) Roll(src Source) (Roll, []int) {
	var r Roll
	var rolled []int
	for i := range s.dice {
		d := &s.dice[i]
		if !d.IsLive() {
			continue
		}
		if d.Role == RoleLive {
			d.Value = d.Die.Roll(src)
			rolled = append(rolled, i)
		}
		r[d.Value]++
	}
	return r, rolled
}

// LiveRoll returns the current live values without rolling.
func (s *DiceSet) LiveRoll() Roll {
	var r Roll
	for _, d := range s.dice {
		if d.IsLive() && d.Value > 0 {
			r[d.Value]++
		}
	}
	return r
}

// LiveFaces returns the current live values in set order. Echo dice that
// have not been rolled yet are left out; see PendingEcho.
func (s *DiceSet) LiveFaces() []int {
	var faces []int
	for _, d := range s.dice {
		if d.IsLive() && d.Value > 0 {
			faces = append(faces, d.Value)
		}
	}
	return faces
}

// PendingEcho returns the number of live echo dice still waiting for their
// first roll.
func (s *DiceSet) PendingEcho() int {
	n := 0
	for _, d := range s.dice {
		if d.IsLive() && d.Value == 0 {
			n++
		}
	}
	return n
}

// Bank moves live dice showing the given faces into the banked role and
// returns the dice it moved. Dice are taken in set order. If the faces are
// not all available the set is left unchanged.
func (s *DiceSet) Bank(faces []int) ([]DieState, error) {
	if !s.LiveRoll().Contains(faces) {
		return nil, fmt.Errorf("faces %v not live: %w", faces, ErrInvalidBankSelection)
	}
	var banked []DieState
	for _, f := range faces {
		for i := range s.dice {
			d := &s.dice[i]
			if d.IsLive() && d.Value == f {
				d.Role = RoleBanked
				banked = append(banked, *d)
				break
			}
		}
	}
	return banked, nil
}

// AddEcho appends n echo dice to the live pool, stopping at the live cap.
// It returns how many were added and how many were dropped over the cap.
func (s *DiceSet) AddEcho(n int, echo Die) (added, dropped int) {
	for i := 0; i < n; i++ {
		if s.LiveCount() >= s.maxLive {
			return added, n - added
		}
		s.dice = append(s.dice, DieState{Die: echo, Role: RoleLive, Origin: OriginEcho})
		added++
	}
	return added, 0
}

// Freeze marks the live die at index i as waxy. It returns false if the die
// is not live or is already waxy.
func (s *DiceSet) Freeze(i int) bool {
	if i < 0 || i >= len(s.dice) || s.dice[i].Role != RoleLive || s.dice[i].Value == 0 {
		return false
	}
	s.dice[i].Role = RoleWaxy
	return true
}

// HighestUnfrozen returns the index of the highest-valued live, unfrozen die, or -1.
func (s *DiceSet) HighestUnfrozen() int {
	best := -1
	for i, d := range s.dice {
		if d.Role != RoleLive || d.Value == 0 {
			continue
		}
		if best < 0 || d.Value > s.dice[best].Value {
			best = i
		}
	}
	return best
}

// Thaw returns every waxy die to the normal live role.
func (s *DiceSet) Thaw() {
	for i := range s.dice {
		if s.dice[i].Role == RoleWaxy {
			s.dice[i].Role = RoleLive
		}
	}
}

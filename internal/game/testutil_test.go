package game

import (
	"context"
	"testing"

	"github.com/psychodicenamic/dicesim/internal/log"
)

// ScriptedStrategy is a Strategy that follows a predefined script of decisions.
// Used in tests to deterministically drive a turn.
type ScriptedStrategy struct {
	t    *testing.T
	name string

	// For ChooseBank prompts; nil entries bank every offer
	banks   [][]int
	bankPos int

	// For ChooseReroll prompts
	rerolls   []bool
	rerollPos int

	// Offers seen at each ChooseBank call
	seen [][]Insult
}

func NewScriptedStrategy(t *testing.T, name string) *ScriptedStrategy {
	return &ScriptedStrategy{t: t, name: name}
}

// AddBank scripts the next bank selection.
func (ss *ScriptedStrategy) AddBank(picks ...int) *ScriptedStrategy {
	if picks == nil {
		picks = []int{}
	}
	ss.banks = append(ss.banks, picks)
	return ss
}

// AddBankAll scripts banking every offer.
func (ss *ScriptedStrategy) AddBankAll() *ScriptedStrategy {
	ss.banks = append(ss.banks, nil)
	return ss
}

// AddReroll scripts the next re-roll answer.
func (ss *ScriptedStrategy) AddReroll(again bool) *ScriptedStrategy {
	ss.rerolls = append(ss.rerolls, again)
	return ss
}

func (ss *ScriptedStrategy) ChooseBank(ctx context.Context, view TurnView, offers []Insult) ([]int, error) {
	ss.seen = append(ss.seen, offers)
	var picks []int
	if ss.bankPos < len(ss.banks) {
		picks = ss.banks[ss.bankPos]
		ss.bankPos++
	}
	if picks == nil {
		// Default: bank everything
		for i := range offers {
			picks = append(picks, i)
		}
	}
	return picks, nil
}

func (ss *ScriptedStrategy) ChooseReroll(ctx context.Context, view TurnView) (bool, error) {
	if ss.rerollPos >= len(ss.rerolls) {
		return false, nil
	}
	again := ss.rerolls[ss.rerollPos]
	ss.rerollPos++
	return again, nil
}

func (ss *ScriptedStrategy) Notify(ctx context.Context, event log.GameEvent) error {
	return nil
}

// faceSource makes normal dice roll the given faces in order, then repeats the last one.
type faceSource struct {
	faces []int
	pos   int
}

func rolls(faces ...int) *faceSource {
	return &faceSource{faces: faces}
}

func (s *faceSource) Intn(n int) int {
	if len(s.faces) == 0 {
		return 0
	}
	f := s.faces[len(s.faces)-1]
	if s.pos < len(s.faces) {
		f = s.faces[s.pos]
		s.pos++
	}
	return f - 1
}

func normalArchetype(name string, n int) *Archetype {
	return &Archetype{Name: name, Dice: normals(n)}
}

// newTestDebate builds a debate whose players roll from scripted sources.
func newTestDebate(t *testing.T, rules Rules, a, b *Archetype, src0, src1 Source, s0, s1 Strategy) (*DebateContext, *log.MemoryLogger) {
	t.Helper()
	logger := log.NewMemoryLogger()
	dc, err := NewDebate(DebateConfig{
		Rules:  rules,
		A:      a,
		B:      b,
		Logger: logger,
		Rand:   [2]Source{src0, src1},
	}, s0, s1)
	if err != nil {
		t.Fatalf("NewDebate: %v", err)
	}
	return dc, logger
}

// runDebateToCompletion runs a debate and fails the test on error.
func runDebateToCompletion(t *testing.T, dc *DebateContext) DebateOutcome {
	t.Helper()
	out, err := dc.Run(context.Background())
	if err != nil {
		t.Fatalf("debate error: %v", err)
	}
	return out
}

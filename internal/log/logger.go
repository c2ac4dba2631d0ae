package log

import (
	"fmt"
	"io"
	"strings"
)

// EventLogger is the interface for logging debate events.
type EventLogger interface {
	Log(event GameEvent)
	Events() []GameEvent
}

// --- MemoryLogger: stores events in memory for test assertions ---

type MemoryLogger struct {
	events []GameEvent
	seq    int
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(event GameEvent) {
	l.seq++
	event.Seq = l.seq
	l.events = append(l.events, event)
}

func (l *MemoryLogger) Events() []GameEvent {
	return l.events
}

// EventsOfType returns all events matching the given type.
func (l *MemoryLogger) EventsOfType(t EventType) []GameEvent {
	var result []GameEvent
	for _, e := range l.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or a zero event if none.
func (l *MemoryLogger) LastEvent() GameEvent {
	if len(l.events) == 0 {
		return GameEvent{}
	}
	return l.events[len(l.events)-1]
}

// --- TextLogger: writes human-readable lines to an io.Writer ---

type TextLogger struct {
	MemoryLogger
	w io.Writer
}

func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

func (l *TextLogger) Log(event GameEvent) {
	l.MemoryLogger.Log(event)
	fmt.Fprintln(l.w, FormatEvent(event))
}

// --- NopLogger: drops everything. Used by bulk simulation runs. ---

type NopLogger struct{}

func (NopLogger) Log(GameEvent) {}
func (NopLogger) Events() []GameEvent { return nil }

// --- Formatting ---

// playerName returns "P1" or "P2" for display.
func playerName(p int) string {
	return fmt.Sprintf("P%d", p+1)
}

// FormatEvent formats a single event as a human-readable line.
func FormatEvent(e GameEvent) string {
	stage := e.Stage
	// Pad stage to 12 chars for alignment
	for len(stage) < 12 {
		stage += " "
	}

	return fmt.Sprintf("D%-2d R%-2d %s| %s", e.Debate, e.Roll, stage, e.Details)
}

// FormatAll formats all events as a multi-line string.
func FormatAll(events []GameEvent) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(FormatEvent(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// formatFaces renders face values as "[1 2 6]".
func formatFaces(faces []int) string {
	parts := make([]string, len(faces))
	for i, f := range faces {
		parts[i] = fmt.Sprintf("%d", f)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// --- Helper constructors for common events ---

func NewDebateStartEvent(debate int, nameA, nameB string) GameEvent {
	return GameEvent{
		Debate:  debate,
		Type:    EventDebateStart,
		Details: fmt.Sprintf("=== Debate %d: %s vs %s ===", debate, nameA, nameB),
	}
}

func NewNewDebateEvent(debate int, hpA, hpB int) GameEvent {
	return GameEvent{
		Debate:  debate,
		Type:    EventNewDebate,
		Details: fmt.Sprintf("--- Debate %d (P1 HP %d, P2 HP %d) ---", debate, hpA, hpB),
	}
}

func NewRollEvent(debate, roll int, player int, faces []int) GameEvent {
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Stage:   "Rolling",
		Player:  player,
		Type:    EventRoll,
		Details: fmt.Sprintf("%s rolls %s", playerName(player), formatFaces(faces)),
	}
}

func NewOfferEvent(debate, roll int, player int, offers []string, residual int) GameEvent {
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Stage:   "Evaluating",
		Player:  player,
		Type:    EventOffer,
		Details: fmt.Sprintf("%s may bank %s (%d residual)", playerName(player), strings.Join(offers, ", "), residual),
	}
}

func NewBankEvent(debate, roll int, player int, pattern string, faces []int, echo int) GameEvent {
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Stage:   "Banking",
		Player:  player,
		Type:    EventBank,
		Combo:   pattern,
		Details: fmt.Sprintf("%s banks %s %s (+%d echo)", playerName(player), pattern, formatFaces(faces), echo),
	}
}

func NewEchoSummonEvent(debate, roll int, player int, summoned, dropped int) GameEvent {
	details := fmt.Sprintf("%s summons %d echo dice", playerName(player), summoned)
	if dropped > 0 {
		details += fmt.Sprintf(" (%d over live cap)", dropped)
	}
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Stage:   "Banking",
		Player:  player,
		Type:    EventEchoSummon,
		Details: details,
	}
}

func NewPerfectBankEvent(debate, roll int, player int) GameEvent {
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Stage:   "Committed",
		Player:  player,
		Type:    EventPerfectBank,
		Details: fmt.Sprintf("%s perfect-banks the whole roll", playerName(player)),
	}
}

func NewFumbleEvent(debate, roll int, player int, lost int, reason string) GameEvent {
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Stage:   "Fumbled",
		Player:  player,
		Type:    EventFumble,
		Details: fmt.Sprintf("%s fumbles, losing %d banked insults (%s)", playerName(player), lost, reason),
	}
}

func NewRerollEvent(debate, roll int, player int, live int) GameEvent {
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Stage:   "Banking",
		Player:  player,
		Type:    EventReroll,
		Details: fmt.Sprintf("%s re-rolls %d live dice", playerName(player), live),
	}
}

func NewCommitEvent(debate, roll int, player int, banked int) GameEvent {
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Stage:   "Committed",
		Player:  player,
		Type:    EventCommit,
		Details: fmt.Sprintf("%s commits with %d insults", playerName(player), banked),
	}
}

func NewForcedCommitEvent(debate, roll int, player int, reason string) GameEvent {
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Stage:   "Committed",
		Player:  player,
		Type:    EventForcedCommit,
		Details: fmt.Sprintf("%s is forced to commit (%s)", playerName(player), reason),
	}
}

func NewFreezeEvent(debate, roll int, player int, dieName string, value int) GameEvent {
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Stage:   "Rolling",
		Player:  player,
		Type:    EventFreeze,
		Details: fmt.Sprintf("%s's %s turns waxy at %d", playerName(player), dieName, value),
	}
}

func NewTriggerEvent(debate, roll int, player int, trigger string, event string) GameEvent {
	return GameEvent{
		Debate:  debate,
		Roll:    roll,
		Player:  player,
		Type:    EventTrigger,
		Details: fmt.Sprintf("%s triggers %s on %s", playerName(player), trigger, event),
	}
}

func NewDamageEvent(debate int, player int, raw, blocked, net int) GameEvent {
	return GameEvent{
		Debate:  debate,
		Stage:   "Clash",
		Player:  player,
		Type:    EventDamage,
		Details: fmt.Sprintf("%s attacks for %d, %d blocked, %d dealt", playerName(player), raw, blocked, net),
	}
}

func NewHPChangeEvent(debate int, player int, oldHP, newHP int, reason string) GameEvent {
	return GameEvent{
		Debate:  debate,
		Stage:   "Clash",
		Player:  player,
		Type:    EventHPChange,
		Details: fmt.Sprintf("%s HP: %d → %d (%s)", playerName(player), oldHP, newHP, reason),
	}
}

func NewKnockoutEvent(debate int, player int) GameEvent {
	return GameEvent{
		Debate:  debate,
		Stage:   "Clash",
		Player:  player,
		Type:    EventKnockout,
		Details: fmt.Sprintf("%s is out of arguments", playerName(player)),
	}
}

func NewWinEvent(debate int, winner int, reason string) GameEvent {
	return GameEvent{
		Debate:  debate,
		Player:  winner,
		Type:    EventWin,
		Details: fmt.Sprintf("%s wins! (%s)", playerName(winner), reason),
	}
}

func NewTieEvent(debate int, reason string) GameEvent {
	return GameEvent{
		Debate:  debate,
		Player:  -1,
		Type:    EventTie,
		Details: fmt.Sprintf("Debate ends in a tie (%s)", reason),
	}
}

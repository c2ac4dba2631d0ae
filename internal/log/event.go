package log

// EventType enumerates all observable debate events.
type EventType int

const (
	EventDebateStart EventType = iota
	EventRoll
	EventOffer
	EventBank
	EventEchoSummon
	EventPerfectBank
	EventFumble
	EventReroll
	EventCommit
	EventForcedCommit
	EventFreeze
	EventTrigger
	EventDamage
	EventHPChange
	EventWin
	EventTie
	EventNewDebate // next debate of a match
	EventKnockout  // health reached zero
)

func (e EventType) String() string {
	switch e {
	case EventDebateStart:
		return "DebateStart"
	case EventRoll:
		return "Roll"
	case EventOffer:
		return "Offer"
	case EventBank:
		return "Bank"
	case EventEchoSummon:
		return "EchoSummon"
	case EventPerfectBank:
		return "PerfectBank"
	case EventFumble:
		return "Fumble"
	case EventReroll:
		return "Reroll"
	case EventCommit:
		return "Commit"
	case EventForcedCommit:
		return "ForcedCommit"
	case EventFreeze:
		return "Freeze"
	case EventTrigger:
		return "Trigger"
	case EventDamage:
		return "Damage"
	case EventHPChange:
		return "HPChange"
	case EventWin:
		return "Win"
	case EventTie:
		return "Tie"
	case EventNewDebate:
		return "NewDebate"
	case EventKnockout:
		return "Knockout"
	default:
		return "Unknown"
	}
}

// GameEvent represents a single observable event in a debate.
type GameEvent struct {
	Seq     int       // monotonic sequence number
	Debate  int       // which debate of the match (1-based)
	Roll    int       // roll number within the player's turn (0 outside the roll loop)
	Stage   string    // resolver stage name (e.g. "Banking")
	Player  int       // acting player (0 or 1)
	Type    EventType // event type
	Combo   string    // combo pattern name (if applicable)
	Details string    // human-readable detail string
}

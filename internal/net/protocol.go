package net

// Message types for the JSON protocol over TCP. Each message is one JSON
// document; the stream is a sequence of them.

const (
	MsgNotify       = "notify"
	MsgChooseBank   = "choose_bank"
	MsgChooseReroll = "choose_reroll"
	MsgGameOver     = "game_over"

	MsgJoin   = "join"
	MsgBank   = "bank"
	MsgReroll = "reroll"
)

// --- Server → Client messages ---

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type string `json:"type"`

	// For "notify"
	Event *EventView `json:"event,omitempty"`

	// For "choose_bank" and "choose_reroll"
	Offers []OfferView `json:"offers,omitempty"`
	State  *TurnState  `json:"state,omitempty"`

	// For "game_over"
	Winner int    `json:"winner"`
	Result string `json:"result,omitempty"`
	Health [2]int `json:"health"`
}

// EventView is a debate event as the client sees it.
type EventView struct {
	Seq     int    `json:"seq"`
	Debate  int    `json:"debate"`
	Roll    int    `json:"roll"`
	Stage   string `json:"stage"`
	Player  int    `json:"player"`
	Type    string `json:"type"`
	Combo   string `json:"combo,omitempty"`
	Details string `json:"details"`
}

// OfferView is one bankable insult.
type OfferView struct {
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Pattern string `json:"pattern"`
	Faces   []int  `json:"faces"`
	Echo    int    `json:"echo,omitempty"`
}

// TurnState is the deciding player's view of their turn.
type TurnState struct {
	Debate         int         `json:"debate"`
	Roll           int         `json:"roll"`
	Rolled         []int       `json:"rolled"`
	Live           []int       `json:"live"`
	PendingEcho    int         `json:"pending_echo,omitempty"` // echo dice not rolled yet
	Banked         []OfferView `json:"banked,omitempty"`
	Health         int         `json:"health"`
	OpponentHealth int         `json:"opponent_health"`
}

// --- Client → Server messages ---

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string `json:"type"`

	// For "bank"
	Indices []int `json:"indices,omitempty"`

	// For "reroll"
	Answer bool `json:"answer,omitempty"`

	// For "join" (initial handshake): a catalog name, or a 1-based number
	// when the name is empty.
	Archetype       string `json:"archetype,omitempty"`
	ArchetypeNumber int    `json:"archetype_number,omitempty"`
}

package net

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/log"
)

// NetworkStrategy implements game.Strategy over a connection: every decision
// is sent to the remote player and their answer is read back.
type NetworkStrategy struct {
	conn   net.Conn
	enc    *json.Encoder
	dec    *json.Decoder
	player int // which player this strategy decides for (0 or 1)
	mu     sync.Mutex
}

// NewNetworkStrategy creates a strategy for the given connection.
func NewNetworkStrategy(conn net.Conn, player int) *NetworkStrategy {
	return &NetworkStrategy{
		conn:   conn,
		enc:    json.NewEncoder(conn),
		dec:    json.NewDecoder(conn),
		player: player,
	}
}

// OfferViews numbers insults for display.
func OfferViews(offers []game.Insult) []OfferView {
	views := make([]OfferView, len(offers))
	for i, o := range offers {
		views[i] = OfferView{
			Index:   i,
			Kind:    o.Kind.String(),
			Pattern: o.Pattern.String(),
			Faces:   append([]int(nil), o.Faces...),
			Echo:    o.Echo,
		}
	}
	return views
}

// BuildTurnState converts the engine's view into the wire form.
func BuildTurnState(view game.TurnView) *TurnState {
	return &TurnState{
		Debate:         view.Debate,
		Roll:           view.Roll,
		Rolled:         view.Rolled.Faces(),
		Live:           append([]int(nil), view.LiveFaces...),
		PendingEcho:    view.PendingEcho,
		Banked:         OfferViews(view.Banked),
		Health:         view.Health,
		OpponentHealth: view.OpponentHealth,
	}
}

// EventViewOf converts a log event into the wire form.
func EventViewOf(event log.GameEvent) *EventView {
	return &EventView{
		Seq:     event.Seq,
		Debate:  event.Debate,
		Roll:    event.Roll,
		Stage:   event.Stage,
		Player:  event.Player,
		Type:    event.Type.String(),
		Combo:   event.Combo,
		Details: event.Details,
	}
}

// noDeadline clears a connection deadline.
var noDeadline time.Time

// send sends a server message to the client. Must be called with mu held.
func (ns *NetworkStrategy) send(msg ServerMessage) error {
	return ns.enc.Encode(msg)
}

// recv reads a client message. Must be called with mu held.
func (ns *NetworkStrategy) recv(ctx context.Context) (ClientMessage, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = ns.conn.SetReadDeadline(deadline)
		defer ns.conn.SetReadDeadline(noDeadline)
	}
	var msg ClientMessage
	err := ns.dec.Decode(&msg)
	return msg, err
}

// ChooseBank implements game.Strategy. Out-of-range and repeated indexes
// from the client are dropped.
func (ns *NetworkStrategy) ChooseBank(ctx context.Context, view game.TurnView, offers []game.Insult) ([]int, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	msg := ServerMessage{
		Type:   MsgChooseBank,
		Offers: OfferViews(offers),
		State:  BuildTurnState(view),
	}
	if err := ns.send(msg); err != nil {
		return nil, fmt.Errorf("send choose_bank: %w", err)
	}
	resp, err := ns.recv(ctx)
	if err != nil {
		return nil, fmt.Errorf("recv bank: %w", err)
	}

	seen := make(map[int]bool, len(resp.Indices))
	var picks []int
	for _, idx := range resp.Indices {
		if idx >= 0 && idx < len(offers) && !seen[idx] {
			seen[idx] = true
			picks = append(picks, idx)
		}
	}
	return picks, nil
}

// ChooseReroll implements game.Strategy.
func (ns *NetworkStrategy) ChooseReroll(ctx context.Context, view game.TurnView) (bool, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	msg := ServerMessage{
		Type:  MsgChooseReroll,
		State: BuildTurnState(view),
	}
	if err := ns.send(msg); err != nil {
		return false, fmt.Errorf("send choose_reroll: %w", err)
	}
	resp, err := ns.recv(ctx)
	if err != nil {
		return false, fmt.Errorf("recv reroll: %w", err)
	}
	return resp.Answer, nil
}

// SendGameOver sends a game_over message to the client.
func (ns *NetworkStrategy) SendGameOver(out game.MatchOutcome, result string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.send(ServerMessage{Type: MsgGameOver, Winner: out.Winner, Result: result, Health: out.Health})
}

// Notify implements game.Strategy.
func (ns *NetworkStrategy) Notify(ctx context.Context, event log.GameEvent) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.send(ServerMessage{Type: MsgNotify, Event: EventViewOf(event)})
}

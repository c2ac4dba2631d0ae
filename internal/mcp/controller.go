package mcp

import (
	"context"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/log"
	dicenet "github.com/psychodicenamic/dicesim/internal/net"
)

// MCPStrategy implements game.Strategy by sending decisions to the MCP
// session's pending channel and blocking on a response channel.
type MCPStrategy struct {
	player     int
	session    *GameSession
	responseCh chan any
}

// NewMCPStrategy creates a strategy for the given player.
func NewMCPStrategy(player int, session *GameSession) *MCPStrategy {
	return &MCPStrategy{
		player:     player,
		session:    session,
		responseCh: make(chan any),
	}
}

func (c *MCPStrategy) ask(ctx context.Context, d *PendingDecision) (any, error) {
	select {
	case c.session.pendingCh <- d:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-c.responseCh:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ChooseBank implements game.Strategy.
func (c *MCPStrategy) ChooseBank(ctx context.Context, view game.TurnView, offers []game.Insult) ([]int, error) {
	resp, err := c.ask(ctx, &PendingDecision{
		Type:   DecisionChooseBank,
		Player: c.player,
		State:  dicenet.BuildTurnState(view),
		Offers: dicenet.OfferViews(offers),
	})
	if err != nil {
		return nil, err
	}
	br := resp.(BankResponse)

	var picks []int
	for _, idx := range br.Indices {
		if idx >= 0 && idx < len(offers) {
			picks = append(picks, idx)
		}
	}
	return picks, nil
}

// ChooseReroll implements game.Strategy.
func (c *MCPStrategy) ChooseReroll(ctx context.Context, view game.TurnView) (bool, error) {
	resp, err := c.ask(ctx, &PendingDecision{
		Type:   DecisionChooseReroll,
		Player: c.player,
		State:  dicenet.BuildTurnState(view),
	})
	if err != nil {
		return false, err
	}
	return resp.(RerollResponse).Answer, nil
}

// Notify implements game.Strategy. Only the agent's strategy records events,
// so nothing is logged twice.
func (c *MCPStrategy) Notify(ctx context.Context, event log.GameEvent) error {
	c.session.appendEvent(*dicenet.EventViewOf(event))
	return nil
}

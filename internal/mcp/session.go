package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/log"
	dicenet "github.com/psychodicenamic/dicesim/internal/net"
)

// DecisionType identifies what kind of decision the match is waiting for.
type DecisionType string

const (
	DecisionChooseBank   DecisionType = "choose_bank"
	DecisionChooseReroll DecisionType = "choose_reroll"
	DecisionGameOver     DecisionType = "game_over"
)

// OpponentHuman makes the session wait for a terminal player on the port.
const OpponentHuman = "human"

// PendingDecision represents a decision the match is waiting for.
type PendingDecision struct {
	Type   DecisionType        `json:"type"`
	Player int                 `json:"player"`
	State  *dicenet.TurnState  `json:"state"`
	Offers []dicenet.OfferView `json:"offers,omitempty"`
}

// Response types sent back from MCP tools to the strategy.

type BankResponse struct {
	Indices []int
}

type RerollResponse struct {
	Answer bool
}

// ToolResponse is the JSON envelope returned by the debate tools.
type ToolResponse struct {
	Events   []dicenet.EventView `json:"events"`
	State    *dicenet.TurnState  `json:"state,omitempty"`
	Pending  *PendingView        `json:"pending,omitempty"`
	GameOver bool                `json:"game_over"`
	Winner   int                 `json:"winner"`
	Result   string              `json:"result,omitempty"`
	Health   [2]int              `json:"health"`
	Port     string              `json:"port,omitempty"`
}

// PendingView is the pending decision as presented in the tool response JSON.
type PendingView struct {
	Type      DecisionType        `json:"type"`
	ForPlayer string              `json:"for_player"`
	Offers    []dicenet.OfferView `json:"offers,omitempty"`
}

// SessionConfig describes the match an agent wants to play.
type SessionConfig struct {
	Catalog           *game.Catalog
	Rules             game.Rules
	AgentArchetype    string
	OpponentArchetype string // empty lets a human joiner choose
	Opponent          string // strategy name, or OpponentHuman
	AgentPlayer       int
	Port              string       // for OpponentHuman
	Listener          net.Listener // overrides Port when set
}

// GameSession holds the state of a single MCP match.
type GameSession struct {
	agent       *MCPStrategy
	human       *dicenet.NetworkStrategy
	agentPlayer int
	cancel      context.CancelFunc

	listener  net.Listener
	humanConn net.Conn

	pendingCh      chan *PendingDecision
	currentPending *PendingDecision

	mu       sync.Mutex
	events   []dicenet.EventView
	gameOver bool
	winner   int
	result   string
	health   [2]int
}

// NewGameSession sets up the opponent (waiting for a human to join when
// asked to) and starts the match in the background.
func NewGameSession(cfg SessionConfig) (*GameSession, error) {
	if cfg.Catalog == nil {
		cfg.Catalog = game.DefaultCatalog()
	}
	if cfg.AgentPlayer != 0 && cfg.AgentPlayer != 1 {
		return nil, fmt.Errorf("agent player must be 0 or 1, got %d", cfg.AgentPlayer)
	}
	agentArch, err := cfg.Catalog.Lookup(cfg.AgentArchetype)
	if err != nil {
		return nil, fmt.Errorf("agent archetype: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &GameSession{
		agentPlayer: cfg.AgentPlayer,
		cancel:      cancel,
		pendingCh:   make(chan *PendingDecision, 1),
		winner:      -1,
	}
	sess.agent = NewMCPStrategy(cfg.AgentPlayer, sess)

	var opponent game.Strategy
	var oppArch *game.Archetype
	if cfg.Opponent == OpponentHuman {
		oppArch, err = sess.acceptHuman(cfg)
		if err != nil {
			cancel()
			return nil, err
		}
		opponent = sess.human
	} else {
		if opponent, err = game.LookupStrategy(cfg.Opponent); err != nil {
			cancel()
			return nil, err
		}
		if oppArch, err = cfg.Catalog.Lookup(cfg.OpponentArchetype); err != nil {
			cancel()
			return nil, fmt.Errorf("opponent archetype: %w", err)
		}
	}

	archs := [2]*game.Archetype{agentArch, oppArch}
	strategies := [2]game.Strategy{sess.agent, opponent}
	if cfg.AgentPlayer == 1 {
		archs[0], archs[1] = archs[1], archs[0]
		strategies[0], strategies[1] = strategies[1], strategies[0]
	}

	go sess.play(ctx, game.MatchConfig{
		Rules:  cfg.Rules,
		A:      archs[0],
		B:      archs[1],
		Logger: log.NewMemoryLogger(),
	}, strategies, archs)

	return sess, nil
}

// acceptHuman blocks until a terminal player joins.
func (s *GameSession) acceptHuman(cfg SessionConfig) (*game.Archetype, error) {
	ln := cfg.Listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", ":"+cfg.Port); err != nil {
			return nil, fmt.Errorf("listen on port %s: %w", cfg.Port, err)
		}
	}
	conn, err := ln.Accept()
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("accept: %w", err)
	}

	var joinMsg dicenet.ClientMessage
	if err := json.NewDecoder(conn).Decode(&joinMsg); err != nil {
		conn.Close()
		ln.Close()
		return nil, fmt.Errorf("read join message: %w", err)
	}
	name := cfg.OpponentArchetype
	if name == "" {
		name = joinMsg.Archetype
	}
	arch, err := dicenet.ResolveArchetype(cfg.Catalog, name, joinMsg.ArchetypeNumber)
	if err != nil {
		conn.Close()
		ln.Close()
		return nil, fmt.Errorf("human archetype: %w", err)
	}
	s.listener = ln
	s.humanConn = conn
	s.human = dicenet.NewNetworkStrategy(conn, 1-cfg.AgentPlayer)
	return arch, nil
}

func (s *GameSession) play(ctx context.Context, cfg game.MatchConfig, strategies [2]game.Strategy, archs [2]*game.Archetype) {
	out, err := game.PlayMatch(ctx, cfg, strategies[0], strategies[1])
	result := dicenet.MatchResult(out, archs[0].Name, archs[1].Name)
	if err != nil {
		result = fmt.Sprintf("error: %v", err)
	}

	if s.human != nil {
		_ = s.human.SendGameOver(out, result)
		s.humanConn.Close()
		s.listener.Close()
	}

	s.mu.Lock()
	s.gameOver = true
	s.winner = out.Winner
	s.result = result
	s.health = out.Health
	s.mu.Unlock()

	select {
	case s.pendingCh <- &PendingDecision{Type: DecisionGameOver, Player: out.Winner}:
	case <-ctx.Done():
	}
}

// Close abandons the match.
func (s *GameSession) Close() {
	s.cancel()
}

// appendEvent adds an event to the session's event log. Thread-safe.
func (s *GameSession) appendEvent(ev dicenet.EventView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// drainEvents returns all accumulated events and clears the buffer.
func (s *GameSession) drainEvents() []dicenet.EventView {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events
	s.events = nil
	if events == nil {
		events = []dicenet.EventView{}
	}
	return events
}

// waitForPending blocks until the next decision arrives from the match,
// then builds a ToolResponse with accumulated events + the pending decision.
func (s *GameSession) waitForPending(ctx context.Context) (*ToolResponse, error) {
	var pending *PendingDecision
	select {
	case pending = <-s.pendingCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.currentPending = pending

	resp := &ToolResponse{Events: s.drainEvents(), Winner: -1}
	if pending.Type == DecisionGameOver {
		s.mu.Lock()
		resp.GameOver = true
		resp.Winner = s.winner
		resp.Result = s.result
		resp.Health = s.health
		s.mu.Unlock()
		return resp, nil
	}

	resp.State = pending.State
	resp.Pending = &PendingView{
		Type:      pending.Type,
		ForPlayer: s.playerLabel(pending.Player),
		Offers:    pending.Offers,
	}
	return resp, nil
}

// playerLabel returns "agent" or "opponent" for the given player index.
func (s *GameSession) playerLabel(player int) string {
	if player == s.agentPlayer {
		return "agent"
	}
	return "opponent"
}

// respondJSON marshals a response to a JSON string.
func respondJSON(resp any) string {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal error: %v"}`, err)
	}
	return string(data)
}

package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/sim"
	"github.com/psychodicenamic/dicesim/internal/store"
)

// MaxTrials caps the trial count a single tool call may ask for.
const MaxTrials = 200000

// Handler serves the dice tools. One debate session runs at a time per
// process.
type Handler struct {
	Catalog *game.Catalog
	Rules   game.Rules
	Port    string       // TCP port a human opponent joins on
	Store   *store.Store // optional; simulate saves runs here when set
	Logger  *zap.Logger

	mu      sync.Mutex
	session *GameSession
}

// NewHandler returns a handler over the catalog and rules.
func NewHandler(catalog *game.Catalog, rules game.Rules, port string) *Handler {
	return &Handler{Catalog: catalog, Rules: rules, Port: port, Logger: zap.NewNop()}
}

// RegisterTools adds all dice tools to the MCP server.
func RegisterTools(s *server.MCPServer, h *Handler) {
	s.AddTool(listArchetypesTool(), h.handleListArchetypes)
	s.AddTool(detectCombosTool(), h.handleDetectCombos)
	s.AddTool(simulateTool(), h.handleSimulate)
	s.AddTool(tournamentTool(), h.handleTournament)
	s.AddTool(testSpecialDiceTool(), h.handleTestSpecialDice)
	s.AddTool(startDebateTool(), h.handleStartDebate)
	s.AddTool(bankTool(), h.handleBank)
	s.AddTool(rerollTool(), h.handleReroll)
	s.AddTool(getDebateStateTool(), h.handleGetDebateState)
}

// --- Tool definitions ---

func listArchetypesTool() mcp.Tool {
	return mcp.NewTool("list_archetypes",
		mcp.WithDescription("List the player archetypes: their dice faces, health and triggers. Read-only."),
	)
}

func detectCombosTool() mcp.Tool {
	return mcp.NewTool("detect_combos",
		mcp.WithDescription("Find the insults (scoring combos) in a roll, the way a debate would offer them."),
		mcp.WithString("faces", mcp.Required(), mcp.Description("Face values 1-6 separated by spaces or commas (e.g. '2 2 3 4 5 6')")),
		mcp.WithBoolean("allow_singles", mcp.Description("Offer leftover dice as Solid singles")),
	)
}

func simulateTool() mcp.Tool {
	return mcp.NewTool("simulate",
		mcp.WithDescription("Run a Monte-Carlo simulation of one archetype against another and return win rates and combo statistics."),
		mcp.WithString("a", mcp.Required(), mcp.Description("First archetype name")),
		mcp.WithString("b", mcp.Required(), mcp.Description("Second archetype name")),
		mcp.WithNumber("trials", mcp.Description("Number of trials (default 1000)")),
		mcp.WithNumber("seed", mcp.Description("Run seed; 0 or omitted draws a fresh one")),
		mcp.WithString("mode", mcp.Description("'debate' (one debate per trial, default) or 'match'")),
		mcp.WithString("strategy_a", mcp.Description("Strategy for the first archetype: greedy, cautious or aggressive")),
		mcp.WithString("strategy_b", mcp.Description("Strategy for the second archetype")),
	)
}

func tournamentTool() mcp.Tool {
	return mcp.NewTool("tournament",
		mcp.WithDescription("Play every archetype against every other and return ranked standings."),
		mcp.WithString("archetypes", mcp.Description("Comma-separated archetype names; omitted uses every archetype")),
		mcp.WithNumber("trials", mcp.Description("Trials per pairing (default 1000)")),
		mcp.WithNumber("seed", mcp.Description("Run seed; 0 or omitted draws a fresh one")),
	)
}

func testSpecialDiceTool() mcp.Tool {
	return mcp.NewTool("test_special_dice",
		mcp.WithDescription("Rank each special die by how a hand holding it fares against a plain hand."),
		mcp.WithString("set", mcp.Description("'special' (default) or 'defense'")),
		mcp.WithBoolean("pure", mcp.Description("Compare single rolls instead of whole debates")),
		mcp.WithNumber("trials", mcp.Description("Trials per die (default 1000)")),
		mcp.WithNumber("seed", mcp.Description("Run seed; 0 or omitted draws a fresh one")),
	)
}

func startDebateTool() mcp.Tool {
	return mcp.NewTool("start_debate",
		mcp.WithDescription("Start a match and play one side of it. Returns the first pending decision. "+
			"With opponent 'human' the other side connects via `dicesim join --addr localhost:<port>` "+
			"and this call blocks until they do."),
		mcp.WithString("archetype", mcp.Required(), mcp.Description("Archetype you play")),
		mcp.WithString("opponent_archetype", mcp.Description("Opponent archetype; a human joiner picks their own when omitted")),
		mcp.WithString("opponent", mcp.Description("Opponent strategy (greedy, cautious, aggressive) or 'human' (default greedy)")),
		mcp.WithNumber("agent_player", mcp.Description("0 = you roll first, 1 = you roll second")),
	)
}

func bankTool() mcp.Tool {
	return mcp.NewTool("bank",
		mcp.WithDescription("Bank insults from the offers list. Use this when the pending decision type is 'choose_bank'."),
		mcp.WithString("indices", mcp.Required(), mcp.Description("Space-separated 0-based offer indices (e.g. '0 2'), 'all', or empty string to bank nothing")),
	)
}

func rerollTool() mcp.Tool {
	return mcp.NewTool("reroll",
		mcp.WithDescription("Decide whether to roll the live dice again. Use this when the pending decision type is 'choose_reroll'."),
		mcp.WithBoolean("answer", mcp.Required(), mcp.Description("true rolls again, false commits the banked insults")),
	)
}

func getDebateStateTool() mcp.Tool {
	return mcp.NewTool("get_debate_state",
		mcp.WithDescription("Get the current state, accumulated events, and pending decision without submitting a response. Read-only."),
	)
}

// --- Analysis handlers ---

type archetypeView struct {
	Number      int      `json:"number"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Health      int      `json:"health"`
	MaxLive     int      `json:"max_live"`
	Dice        []string `json:"dice"`
	Triggers    []string `json:"triggers,omitempty"`
}

func (h *Handler) handleListArchetypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var views []archetypeView
	for i, a := range h.Catalog.All() {
		v := archetypeView{
			Number:      i + 1,
			Name:        a.Name,
			Description: a.Description,
			Health:      a.Health(h.Rules),
			MaxLive:     a.LiveCap(h.Rules),
			Triggers:    a.Triggers,
		}
		for _, d := range a.Dice {
			v.Dice = append(v.Dice, fmt.Sprintf("%s %v", d.Name, d.Faces))
		}
		views = append(views, v)
	}
	return mcp.NewToolResultText(respondJSON(views)), nil
}

type detectResponse struct {
	Faces    []int    `json:"faces"`
	Insults  []string `json:"insults"`
	Singles  []string `json:"singles,omitempty"`
	Residual []int    `json:"residual"`
	Echo     int      `json:"echo"`
	Fumble   bool     `json:"fumble"`
}

func (h *Handler) handleDetectCombos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	faces, err := parseFaces(request.GetString("faces", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	roll := game.RollOf(faces...)
	det := game.Detect(roll, request.GetBool("allow_singles", h.Rules.AllowSingleDieBanking))

	resp := detectResponse{
		Faces:    roll.Faces(),
		Insults:  []string{},
		Residual: det.Residual.Faces(),
		Echo:     det.Echo(),
		Fumble:   det.Fumble,
	}
	for _, in := range det.Insults {
		resp.Insults = append(resp.Insults, in.String())
	}
	for _, in := range det.Singles {
		resp.Singles = append(resp.Singles, in.String())
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func parseFaces(s string) ([]int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' })
	if len(parts) == 0 {
		return nil, fmt.Errorf("faces is empty")
	}
	faces := make([]int, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.Atoi(p)
		if err != nil || f < game.MinFace || f > game.MaxFace {
			return nil, fmt.Errorf("invalid face %q: must be 1-6", p)
		}
		faces = append(faces, f)
	}
	return faces, nil
}

// runConfig builds a simulation config from the common tool arguments.
func (h *Handler) runConfig(request mcp.CallToolRequest) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	cfg.Rules = h.Rules
	cfg.Logger = h.Logger
	cfg.Trials = request.GetInt("trials", cfg.Trials)
	cfg.Seed = int64(request.GetInt("seed", 0))
	if cfg.Trials < 1 || cfg.Trials > MaxTrials {
		return cfg, fmt.Errorf("trials must be 1-%d, got %d", MaxTrials, cfg.Trials)
	}
	return cfg, nil
}

type simulateResponse struct {
	RunID     string     `json:"run_id,omitempty"`
	WinRateA  float64    `json:"win_rate_a"`
	WinRateB  float64    `json:"win_rate_b"`
	TieRate   float64    `json:"tie_rate"`
	IntervalA [2]float64 `json:"win_rate_a_95"`
	Stats     *sim.Stats `json:"stats"`
}

func (h *Handler) handleSimulate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := h.Catalog.Lookup(request.GetString("a", ""))
	if err != nil {
		return mcp.NewToolResultErrorf("Unknown archetype: %v", err), nil
	}
	b, err := h.Catalog.Lookup(request.GetString("b", ""))
	if err != nil {
		return mcp.NewToolResultErrorf("Unknown archetype: %v", err), nil
	}
	cfg, err := h.runConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if cfg.Mode, err = sim.ParseTrialMode(request.GetString("mode", "debate")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg.Strategies = [2]string{request.GetString("strategy_a", ""), request.GetString("strategy_b", "")}

	stats, err := sim.Run(ctx, a, b, cfg)
	if err != nil {
		return mcp.NewToolResultErrorf("Simulation failed: %v", err), nil
	}

	resp := simulateResponse{
		WinRateA: stats.WinRate(0),
		WinRateB: stats.WinRate(1),
		TieRate:  stats.TieRate(),
		Stats:    stats,
	}
	resp.IntervalA[0], resp.IntervalA[1] = stats.WinRateInterval(0, 1.96)
	if h.Store != nil {
		run, err := h.Store.SaveStats(ctx, stats)
		if err != nil {
			h.Logger.Warn("save run", zap.Error(err))
		} else {
			resp.RunID = run.ID
		}
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func (h *Handler) handleTournament(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	archs := h.Catalog.All()
	if names := strings.TrimSpace(request.GetString("archetypes", "")); names != "" {
		archs = nil
		for _, name := range strings.Split(names, ",") {
			a, err := h.Catalog.Lookup(strings.TrimSpace(name))
			if err != nil {
				return mcp.NewToolResultErrorf("Unknown archetype: %v", err), nil
			}
			archs = append(archs, a)
		}
	}
	cfg, err := h.runConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := sim.Tournament(ctx, archs, cfg)
	if err != nil {
		return mcp.NewToolResultErrorf("Tournament failed: %v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(res)), nil
}

func (h *Handler) handleTestSpecialDice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var defs map[string][]int
	switch set := request.GetString("set", "special"); set {
	case "special":
		defs = game.SpecialDiceDefinitions
	case "defense":
		defs = game.DefenseDiceDefinitions
	default:
		return mcp.NewToolResultErrorf("Unknown dice set %q: use 'special' or 'defense'.", set), nil
	}
	cfg, err := h.runConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	reports, err := sim.EvaluateDice(ctx, defs, cfg, request.GetBool("pure", false))
	if err != nil {
		return mcp.NewToolResultErrorf("Dice test failed: %v", err), nil
	}
	return mcp.NewToolResultText(respondJSON(reports)), nil
}

// --- Debate handlers ---

func (h *Handler) handleStartDebate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	if h.session != nil {
		h.mu.Unlock()
		return mcp.NewToolResultError("A debate is already running. Only one debate at a time is supported."), nil
	}
	h.mu.Unlock()

	opponent := request.GetString("opponent", "greedy")
	oppArch := request.GetString("opponent_archetype", "")
	if oppArch == "" && opponent != OpponentHuman {
		oppArch = h.Catalog.Names()[0]
	}
	sess, err := NewGameSession(SessionConfig{
		Catalog:           h.Catalog,
		Rules:             h.Rules,
		AgentArchetype:    request.GetString("archetype", ""),
		OpponentArchetype: oppArch,
		Opponent:          opponent,
		AgentPlayer:       request.GetInt("agent_player", 0),
		Port:              h.Port,
	})
	if err != nil {
		return mcp.NewToolResultErrorf("Failed to start debate: %v", err), nil
	}
	h.Logger.Info("debate started",
		zap.String("archetype", request.GetString("archetype", "")),
		zap.String("opponent", opponent))

	h.mu.Lock()
	h.session = sess
	h.mu.Unlock()

	resp, err := sess.waitForPending(ctx)
	if err != nil {
		return mcp.NewToolResultErrorf("Error waiting for first decision: %v", err), nil
	}
	if opponent == OpponentHuman {
		resp.Port = h.Port
	}
	return h.finish(resp), nil
}

// activePending returns the running session if it is waiting on the given
// decision type.
func (h *Handler) activePending(want DecisionType) (*GameSession, *PendingDecision, *mcp.CallToolResult) {
	h.mu.Lock()
	sess := h.session
	h.mu.Unlock()
	if sess == nil {
		return nil, nil, mcp.NewToolResultError("No debate is running. Use start_debate first.")
	}
	pending := sess.currentPending
	if pending == nil {
		return nil, nil, mcp.NewToolResultError("No pending decision.")
	}
	if pending.Type != want {
		return nil, nil, mcp.NewToolResultErrorf("Wrong tool: pending decision is '%s', not '%s'. Use the correct tool.", pending.Type, want)
	}
	return sess, pending, nil
}

func (h *Handler) handleBank(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, pending, errResult := h.activePending(DecisionChooseBank)
	if errResult != nil {
		return errResult, nil
	}

	indicesStr := strings.TrimSpace(request.GetString("indices", ""))
	indices := []int{}
	if strings.EqualFold(indicesStr, "all") {
		for i := range pending.Offers {
			indices = append(indices, i)
		}
	} else {
		seen := make(map[int]bool)
		for _, p := range strings.Fields(indicesStr) {
			idx, err := strconv.Atoi(p)
			if err != nil {
				return mcp.NewToolResultErrorf("Invalid index '%s': must be an integer.", p), nil
			}
			if idx < 0 || idx >= len(pending.Offers) {
				return mcp.NewToolResultErrorf("Index %d out of range. Must be 0-%d.", idx, len(pending.Offers)-1), nil
			}
			if seen[idx] {
				return mcp.NewToolResultErrorf("Index %d given twice.", idx), nil
			}
			seen[idx] = true
			indices = append(indices, idx)
		}
	}

	return h.respond(ctx, sess, BankResponse{Indices: indices})
}

func (h *Handler) handleReroll(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, _, errResult := h.activePending(DecisionChooseReroll)
	if errResult != nil {
		return errResult, nil
	}
	return h.respond(ctx, sess, RerollResponse{Answer: request.GetBool("answer", false)})
}

// respond hands the agent's answer to the match and waits for the next
// decision.
func (h *Handler) respond(ctx context.Context, sess *GameSession, answer any) (*mcp.CallToolResult, error) {
	select {
	case sess.agent.responseCh <- answer:
	case <-ctx.Done():
		return mcp.NewToolResultErrorf("Cancelled: %v", ctx.Err()), nil
	}
	resp, err := sess.waitForPending(ctx)
	if err != nil {
		return mcp.NewToolResultErrorf("Error waiting for next decision: %v", err), nil
	}
	return h.finish(resp), nil
}

// finish clears the session once the match is over.
func (h *Handler) finish(resp *ToolResponse) *mcp.CallToolResult {
	if resp.GameOver {
		h.mu.Lock()
		h.session = nil
		h.mu.Unlock()
		h.Logger.Info("debate over", zap.String("result", resp.Result))
	}
	return mcp.NewToolResultText(respondJSON(resp))
}

func (h *Handler) handleGetDebateState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.mu.Lock()
	sess := h.session
	h.mu.Unlock()
	if sess == nil {
		return mcp.NewToolResultError("No debate is running. Use start_debate first."), nil
	}

	events := sess.drainEvents()

	sess.mu.Lock()
	resp := &ToolResponse{
		Events:   events,
		GameOver: sess.gameOver,
		Winner:   sess.winner,
		Result:   sess.result,
		Health:   sess.health,
	}
	sess.mu.Unlock()

	if pending := sess.currentPending; pending != nil && pending.Type != DecisionGameOver {
		resp.State = pending.State
		resp.Pending = &PendingView{
			Type:      pending.Type,
			ForPlayer: sess.playerLabel(pending.Player),
			Offers:    pending.Offers,
		}
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

// Close abandons any running debate.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session != nil {
		h.session.Close()
		h.session = nil
	}
}

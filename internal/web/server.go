package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/psychodicenamic/dicesim/internal/game"
	dicenet "github.com/psychodicenamic/dicesim/internal/net"
	"github.com/psychodicenamic/dicesim/internal/sim"
	"github.com/psychodicenamic/dicesim/internal/store"
)

//go:embed static
var staticFiles embed.FS

// MaxTrials caps the trial count of a single web request.
const MaxTrials = 200000

// ArchetypeInfo is the JSON representation of an archetype for /api/archetypes.
type ArchetypeInfo struct {
	Number      int       `json:"number"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Health      int       `json:"health"`
	MaxLive     int       `json:"maxLive"`
	Dice        []DieInfo `json:"dice"`
	Triggers    []string  `json:"triggers,omitempty"`
}

// DieInfo is the JSON representation of a die.
type DieInfo struct {
	Name  string `json:"name"`
	Tag   string `json:"tag,omitempty"`
	Faces []int  `json:"faces"`
}

// SimulateRequest is the body of POST /api/simulate and the first message on
// /ws/simulate.
type SimulateRequest struct {
	A         string `json:"a"`
	B         string `json:"b"`
	Trials    int    `json:"trials"`
	Seed      int64  `json:"seed"`
	Mode      string `json:"mode"`
	StrategyA string `json:"strategy_a"`
	StrategyB string `json:"strategy_b"`
}

// SimulateResponse carries a finished run.
type SimulateResponse struct {
	Type  string     `json:"type,omitempty"`
	RunID string     `json:"run_id,omitempty"`
	Stats *sim.Stats `json:"stats"`
}

// progressMessage is streamed over /ws/simulate while a run is in flight.
type progressMessage struct {
	Type  string `json:"type"`
	Done  int64  `json:"done"`
	Total int64  `json:"total"`
}

type errorMessage struct {
	Type  string `json:"type,omitempty"`
	Error string `json:"error"`
}

// Options configures a Server.
type Options struct {
	Catalog        *game.Catalog
	Rules          game.Rules
	Store          *store.Store // optional; runs are saved when set
	AllowedOrigins []string     // websocket origin patterns; empty allows same-host only
	Logger         *zap.Logger
}

// Server is the dicesim web API server.
type Server struct {
	rules          game.Rules
	store          *store.Store
	allowedOrigins []string
	logger         *zap.Logger
	router         chi.Router

	mu      sync.RWMutex
	catalog *game.Catalog
}

// NewServer creates a new web server.
func NewServer(opts Options) *Server {
	if opts.Catalog == nil {
		opts.Catalog = game.DefaultCatalog()
	}
	if opts.Rules.StartingHealth == 0 {
		opts.Rules = game.DefaultRules()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	var origins []string
	for _, o := range opts.AllowedOrigins {
		origins = append(origins, originHost(o))
	}
	s := &Server{
		rules:          opts.Rules,
		store:          opts.Store,
		allowedOrigins: origins,
		logger:         opts.Logger,
		catalog:        opts.Catalog,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	staticFS, _ := fs.Sub(staticFiles, "static")

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		f, err := staticFS.Open("index.html")
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer f.Close()
		io.Copy(w, f.(io.Reader))
	})
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	r.Route("/api", func(r chi.Router) {
		r.Get("/archetypes", s.handleArchetypes)
		r.Get("/dice", s.handleDice)
		r.Post("/detect", s.handleDetect)
		r.Post("/simulate", s.handleSimulate)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})

	r.Get("/ws/simulate", s.handleSimulateSocket)
	r.Get("/ws/play", s.handlePlay)

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Catalog returns the archetypes currently served.
func (s *Server) Catalog() *game.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// SetCatalog swaps in a new catalog, e.g. after the archetype file changed.
func (s *Server) SetCatalog(c *game.Catalog) {
	s.mu.Lock()
	s.catalog = c
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorMessage{Error: err.Error()})
}

func (s *Server) handleArchetypes(w http.ResponseWriter, r *http.Request) {
	var archs []ArchetypeInfo
	for i, a := range s.Catalog().All() {
		ai := ArchetypeInfo{
			Number:      i + 1,
			Name:        a.Name,
			Description: a.Description,
			Health:      a.Health(s.rules),
			MaxLive:     a.LiveCap(s.rules),
			Triggers:    a.Triggers,
		}
		for _, d := range a.Dice {
			ai.Dice = append(ai.Dice, DieInfo{Name: d.Name, Tag: d.Tag, Faces: append([]int(nil), d.Faces[:]...)})
		}
		archs = append(archs, ai)
	}
	writeJSON(w, http.StatusOK, archs)
}

func (s *Server) handleDice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]map[string][]int{
		"special": game.SpecialDiceDefinitions,
		"defense": game.DefenseDiceDefinitions,
	})
}

// DetectRequest is the body of POST /api/detect.
type DetectRequest struct {
	Faces        []int `json:"faces"`
	AllowSingles *bool `json:"allow_singles"`
}

// DetectResponse lists the insults found in a roll.
type DetectResponse struct {
	Insults  []string `json:"insults"`
	Singles  []string `json:"singles,omitempty"`
	Residual []int    `json:"residual"`
	Echo     int      `json:"echo"`
	Fumble   bool     `json:"fumble"`
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.Faces) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("faces is empty"))
		return
	}
	for _, f := range req.Faces {
		if f < game.MinFace || f > game.MaxFace {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid face %d", f))
			return
		}
	}
	singles := s.rules.AllowSingleDieBanking
	if req.AllowSingles != nil {
		singles = *req.AllowSingles
	}

	det := game.Detect(game.RollOf(req.Faces...), singles)
	resp := DetectResponse{
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
	writeJSON(w, http.StatusOK, resp)
}

// prepare resolves a simulate request into archetypes and a run config.
func (s *Server) prepare(req SimulateRequest) (a, b *game.Archetype, cfg sim.Config, err error) {
	catalog := s.Catalog()
	if a, err = catalog.Lookup(req.A); err != nil {
		return nil, nil, cfg, err
	}
	if b, err = catalog.Lookup(req.B); err != nil {
		return nil, nil, cfg, err
	}
	cfg = sim.DefaultConfig()
	cfg.Rules = s.rules
	cfg.Logger = s.logger
	if req.Trials != 0 {
		cfg.Trials = req.Trials
	}
	if cfg.Trials < 1 || cfg.Trials > MaxTrials {
		return nil, nil, cfg, fmt.Errorf("trials must be 1-%d, got %d", MaxTrials, cfg.Trials)
	}
	cfg.Seed = req.Seed
	if req.Mode != "" {
		if cfg.Mode, err = sim.ParseTrialMode(req.Mode); err != nil {
			return nil, nil, cfg, err
		}
	}
	cfg.Strategies = [2]string{req.StrategyA, req.StrategyB}
	return a, b, cfg, nil
}

// save stores a finished run and returns its ID, or "" without a store.
func (s *Server) save(ctx context.Context, stats *sim.Stats) string {
	if s.store == nil {
		return ""
	}
	run, err := s.store.SaveStats(ctx, stats)
	if err != nil {
		s.logger.Warn("save run", zap.Error(err))
		return ""
	}
	return run.ID
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	a, b, cfg, err := s.prepare(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stats, err := sim.Run(r.Context(), a, b, cfg)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, SimulateResponse{RunID: s.save(r.Context(), stats), Stats: stats})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("no run store configured"))
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("no run store configured"))
		return
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*store.Run
		Result json.RawMessage `json:"result"`
	}{run, run.Result})
}

func (s *Server) acceptOptions() *websocket.AcceptOptions {
	return &websocket.AcceptOptions{OriginPatterns: s.allowedOrigins}
}

// handleSimulateSocket runs one simulation per connection: the client sends a
// SimulateRequest, the server streams progress messages and then the result.
// Closing the socket cancels the run.
func (s *Server) handleSimulateSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer wsConn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_, data, err := wsConn.Read(ctx)
	if err != nil {
		return
	}
	var req SimulateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		wsConn.Close(websocket.StatusPolicyViolation, "expected simulate request")
		return
	}

	// A client close or any further message cancels the run.
	go func() {
		wsConn.Read(ctx)
		cancel()
	}()

	var writeMu sync.Mutex
	send := func(v any) error {
		msg, err := json.Marshal(v)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		return wsConn.Write(ctx, websocket.MessageText, msg)
	}

	a, b, cfg, err := s.prepare(req)
	if err != nil {
		send(errorMessage{Type: "error", Error: err.Error()})
		wsConn.Close(websocket.StatusNormalClosure, "bad request")
		return
	}
	cfg.Progress = func(done, total int64) {
		send(progressMessage{Type: "progress", Done: done, Total: total})
	}

	stats, err := sim.Run(ctx, a, b, cfg)
	if err != nil {
		if ctx.Err() == nil {
			send(errorMessage{Type: "error", Error: err.Error()})
		}
		wsConn.Close(websocket.StatusNormalClosure, "simulation stopped")
		return
	}
	if err := send(SimulateResponse{Type: "result", RunID: s.save(ctx, stats), Stats: stats}); err != nil {
		s.logger.Warn("websocket write", zap.Error(err))
		return
	}
	wsConn.Close(websocket.StatusNormalClosure, "simulation finished")
}

// handlePlay proxies a browser player to a `dicesim host` TCP server.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		s.logger.Warn("websocket accept", zap.Error(err))
		return
	}
	defer wsConn.CloseNow()

	ctx := r.Context()

	// Read initial connect message from browser
	_, connectData, err := wsConn.Read(ctx)
	if err != nil {
		return
	}

	var connectMsg struct {
		Type            string `json:"type"`
		Addr            string `json:"addr"`
		Archetype       string `json:"archetype"`
		ArchetypeNumber int    `json:"archetype_number"`
	}
	if err := json.Unmarshal(connectData, &connectMsg); err != nil || connectMsg.Type != "connect" {
		wsConn.Close(websocket.StatusPolicyViolation, "expected connect message")
		return
	}

	var d net.Dialer
	tcpConn, err := d.DialContext(ctx, "tcp", connectMsg.Addr)
	if err != nil {
		errMsg, _ := json.Marshal(map[string]string{
			"type":   "error",
			"result": fmt.Sprintf("Could not connect to debate server at %s: %v", connectMsg.Addr, err),
		})
		wsConn.Write(ctx, websocket.MessageText, errMsg)
		wsConn.Close(websocket.StatusNormalClosure, "connection failed")
		return
	}
	defer tcpConn.Close()

	if err := json.NewEncoder(tcpConn).Encode(dicenet.ClientMessage{
		Type:            dicenet.MsgJoin,
		Archetype:       connectMsg.Archetype,
		ArchetypeNumber: connectMsg.ArchetypeNumber,
	}); err != nil {
		s.logger.Warn("tcp write join", zap.Error(err))
		return
	}

	done := make(chan struct{})

	// TCP → WebSocket (server messages to browser)
	go func() {
		defer close(done)
		dec := json.NewDecoder(tcpConn)
		for {
			var msg json.RawMessage
			if err := dec.Decode(&msg); err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
					s.logger.Warn("tcp read", zap.Error(err))
				}
				return
			}
			if err := wsConn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// WebSocket → TCP (browser responses to server)
	go func() {
		for {
			_, data, err := wsConn.Read(ctx)
			if err != nil {
				tcpConn.Close()
				return
			}
			data = append(data, '\n')
			if _, err := tcpConn.Write(data); err != nil {
				return
			}
		}
	}()

	<-done
	wsConn.Close(websocket.StatusNormalClosure, "debate ended")
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	stop := context.AfterFunc(ctx, func() { srv.Close() })
	defer stop()
	s.logger.Info("web server listening", zap.String("addr", addr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil {
		return nil
	}
	return err
}

// originHost strips the scheme from an origin for use as an origin pattern.
func originHost(origin string) string {
	if i := strings.Index(origin, "://"); i >= 0 {
		return origin[i+3:]
	}
	return origin
}

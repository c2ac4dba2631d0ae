package net

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"

	"go.uber.org/zap"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/log"
)

// Server hosts a match between the local player and one TCP client.
type Server struct {
	Catalog       *game.Catalog
	Rules         game.Rules
	Port          string
	HostArchetype string        // catalog name or 1-based number
	HostStrategy  game.Strategy // nil plays the host through the terminal
	In            io.Reader     // host terminal input (default os.Stdin)
	Out           io.Writer     // debate log and host terminal output (default os.Stdout)
	Logger        *zap.Logger
}

func (s *Server) defaults() {
	if s.Catalog == nil {
		s.Catalog = game.DefaultCatalog()
	}
	if s.Rules.StartingHealth == 0 {
		s.Rules = game.DefaultRules()
	}
	if s.In == nil {
		s.In = os.Stdin
	}
	if s.Out == nil {
		s.Out = os.Stdout
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
}

// Run listens on Port, waits for an opponent, then plays the match.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()
	s.defaults()
	fmt.Fprintf(s.Out, "Waiting for opponent on port %s...\n", s.Port)
	return s.Serve(ctx, ln)
}

// Serve accepts exactly one joiner from ln and plays the match.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.defaults()
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()
	s.Logger.Info("opponent connected", zap.String("remote", conn.RemoteAddr().String()))

	// The joiner's first message picks their archetype. The decoder is
	// handed to the strategy so nothing it buffered is lost.
	joiner := NewNetworkStrategy(conn, 1)
	joinMsg, err := joiner.recv(ctx)
	if err != nil {
		return fmt.Errorf("read join message: %w", err)
	}
	if joinMsg.Type != MsgJoin {
		return fmt.Errorf("expected join, got %q", joinMsg.Type)
	}

	host, err := ResolveArchetype(s.Catalog, s.HostArchetype, 0)
	if err != nil {
		return fmt.Errorf("host archetype: %w", err)
	}
	guest, err := ResolveArchetype(s.Catalog, joinMsg.Archetype, joinMsg.ArchetypeNumber)
	if err != nil {
		return fmt.Errorf("joiner archetype: %w", err)
	}
	fmt.Fprintf(s.Out, "Host: %s\nJoiner: %s\n", host.Name, guest.Name)
	s.Logger.Info("match starting", zap.String("host", host.Name), zap.String("joiner", guest.Name))

	errCh := make(chan error, 2)
	hostStrategy := s.HostStrategy
	var hostNet *NetworkStrategy
	if hostStrategy == nil {
		// Player 0 = host over an in-process pipe, Player 1 = joiner.
		hostConn, hostServerConn := net.Pipe()
		defer hostConn.Close()
		defer hostServerConn.Close()
		hostNet = NewNetworkStrategy(hostServerConn, 0)
		hostStrategy = hostNet
		go func() {
			client := &Client{conn: hostConn, playerName: "P1", In: s.In, Out: s.Out}
			errCh <- client.RunREPL(ctx)
		}()
	}

	go func() {
		out, err := game.PlayMatch(ctx, game.MatchConfig{
			Rules:  s.Rules,
			A:      host,
			B:      guest,
			Logger: log.NewTextLogger(s.Out),
		}, hostStrategy, joiner)
		if err != nil {
			errCh <- fmt.Errorf("match error: %w", err)
			return
		}
		result := MatchResult(out, host.Name, guest.Name)
		s.Logger.Info("match finished", zap.Int("winner", out.Winner), zap.Int("debates", len(out.Debates)))
		_ = joiner.SendGameOver(out, result)
		if hostNet != nil {
			_ = hostNet.SendGameOver(out, result)
		}
		errCh <- nil
	}()

	// Wait for either the match or the host REPL to finish
	return <-errCh
}

// ResolveArchetype looks up name in the catalog; an empty name falls back
// to the 1-based number n, and a zero number to the first archetype.
func ResolveArchetype(c *game.Catalog, name string, n int) (*game.Archetype, error) {
	if name != "" {
		if a, err := c.Lookup(name); err == nil {
			return a, nil
		}
		if _, err := fmt.Sscanf(name, "%d", &n); err != nil {
			return c.Lookup(name)
		}
	}
	if n == 0 {
		n = 1
	}
	all := c.All()
	if n < 1 || n > len(all) {
		return nil, fmt.Errorf("archetype %d not found (have %d): %w", n, len(all), game.ErrUnknownArchetype)
	}
	return all[n-1], nil
}

// MatchResult describes the outcome for the game_over banner.
func MatchResult(out game.MatchOutcome, nameA, nameB string) string {
	names := [2]string{nameA, nameB}
	score := fmt.Sprintf("health %d to %d after %d debates", out.Health[0], out.Health[1], len(out.Debates))
	switch {
	case out.Winner < 0:
		return "Tie: " + score
	case out.Knockout:
		return fmt.Sprintf("P%d (%s) wins by knockout, %s", out.Winner+1, names[out.Winner], score)
	default:
		return fmt.Sprintf("P%d (%s) wins, %s", out.Winner+1, names[out.Winner], score)
	}
}

// writeJoin sends the join handshake.
func writeJoin(w io.Writer, archetype string) error {
	return json.NewEncoder(w).Encode(ClientMessage{Type: MsgJoin, Archetype: archetype})
}

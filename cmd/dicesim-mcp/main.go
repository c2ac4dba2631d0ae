package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/psychodicenamic/dicesim/internal/config"
	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/logging"
	dicemcp "github.com/psychodicenamic/dicesim/internal/mcp"
	"github.com/psychodicenamic/dicesim/internal/store"
)

func main() {
	configFile := flag.String("config", "dicesim.yaml", "path to the YAML config file")
	archetypes := flag.String("archetypes", "", "YAML file of extra archetypes")
	port := flag.String("port", "9999", "TCP port for human player connection")
	flag.Parse()

	if err := run(*configFile, *archetypes, *port); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, archetypes, port string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if archetypes != "" {
		cfg.ArchetypesFile = archetypes
	}
	// stdout carries the protocol; logs go to stderr and the optional file.
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	rules, err := cfg.Rules.GameRules()
	if err != nil {
		return err
	}
	catalog, err := game.LoadCatalog(cfg.ArchetypesFile)
	if err != nil {
		return err
	}

	h := dicemcp.NewHandler(catalog, rules, port)
	h.Logger = logger
	defer h.Close()

	if cfg.Store.Driver != "" {
		st, err := store.Open(context.Background(), cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer st.Close()
		h.Store = st
	}

	s := server.NewMCPServer("dicesim", "1.0.0")
	dicemcp.RegisterTools(s, h)

	logger.Info("mcp server ready", zap.Int("archetypes", catalog.Len()), zap.String("port", port))
	return server.ServeStdio(s)
}

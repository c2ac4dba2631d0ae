package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/psychodicenamic/dicesim/internal/config"
	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/logging"
	"github.com/psychodicenamic/dicesim/internal/store"
	"github.com/psychodicenamic/dicesim/internal/web"
)

func main() {
	configFile := flag.String("config", "dicesim.yaml", "path to the YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	archetypes := flag.String("archetypes", "", "YAML file of extra archetypes")
	watch := flag.Bool("watch", false, "reload the archetypes file when it changes")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile, *addr, *archetypes, *watch); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile, addr, archetypes string, watch bool) error {
	_ = godotenv.Load()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if archetypes != "" {
		cfg.ArchetypesFile = archetypes
	}
	if watch {
		cfg.Server.Watch = true
	}

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

	var st *store.Store
	if cfg.Store.Driver != "" {
		if st, err = store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN); err != nil {
			return err
		}
		defer st.Close()
	}

	srv := web.NewServer(web.Options{
		Catalog:        catalog,
		Rules:          rules,
		Store:          st,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	if cfg.Server.Watch && cfg.ArchetypesFile != "" {
		w, err := web.NewArchetypeWatcher(cfg.ArchetypesFile, srv)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
	} else if cfg.Server.Watch {
		logger.Warn("watch requested without an archetypes file", zap.String("config", configFile))
	}

	return srv.ListenAndServe(ctx, cfg.Server.Addr)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/psychodicenamic/dicesim/internal/config"
	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/logging"
	"github.com/psychodicenamic/dicesim/internal/store"
)

var (
	// Global flags
	configFile     string
	archetypesFile string
	jsonOutput     bool
	verbose        bool

	// Loaded in PersistentPreRunE
	cfg     *config.Config
	catalog *game.Catalog
	rules   game.Rules
	logger  *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dicesim",
	Short: "Monte-Carlo simulator for psychodice debates",
	Long: `dicesim plays psychodice debates between archetypes, thousands of times,
and reports win rates and combo statistics.

Settings come from built-in defaults, then the --config YAML file, then
DICESIM_* environment variables (a .env file in the working directory is read
first).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		if archetypesFile != "" {
			cfg.ArchetypesFile = archetypesFile
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		if logger, err = logging.New(cfg.Log); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if rules, err = cfg.Rules.GameRules(); err != nil {
			return err
		}
		if catalog, err = game.LoadCatalog(cfg.ArchetypesFile); err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "dicesim.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVarP(&archetypesFile, "archetypes", "a", "", "YAML file of extra archetypes")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Write results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(
		simulateCmd,
		tournamentCmd,
		dicetestCmd,
		detectCmd,
		archetypesCmd,
		runsCmd,
		hostCmd,
		joinCmd,
	)
}

// openStore opens the configured run store, or returns nil when none is set.
func openStore(ctx context.Context) (*store.Store, error) {
	if cfg.Store.Driver == "" {
		return nil, nil
	}
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

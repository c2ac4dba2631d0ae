package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/sim"
	"github.com/psychodicenamic/dicesim/internal/store"
)

var (
	trialsFlag    int
	seedFlag      int64
	workersFlag   int
	modeFlag      string
	strategyAFlag string
	strategyBFlag string
	saveFlag      bool
	pureFlag      bool
	diceSetFlag   string
)

// simulateCmd runs one archetype against another
var simulateCmd = &cobra.Command{
	Use:   "simulate [archetype-a] [archetype-b]",
	Short: "Simulate one archetype against another",
	Long: `Plays --trials independent trials between two archetypes and prints win
rates, damage and combo frequencies. The same --seed always gives the same
numbers, whatever the worker count.

Example:
  dicesim simulate Euphoria Anxiety --trials 100000 --seed 42`,
	Args: cobra.ExactArgs(2),
	RunE: runSimulate,
}

// tournamentCmd plays a round robin
var tournamentCmd = &cobra.Command{
	Use:   "tournament [archetype...]",
	Short: "Play every archetype against every other",
	Long: `Runs a round robin over the named archetypes (all of them when none are
named) and ranks them by win rate.`,
	RunE: runTournament,
}

// dicetestCmd evaluates the special dice
var dicetestCmd = &cobra.Command{
	Use:   "dicetest",
	Short: "Rank special dice against a plain hand",
	Long: `Puts two copies of each special die in a hand of six and plays it against
Tabula Rasa. With --pure a trial is a single roll of both hands instead of a
full debate.`,
	RunE: runDiceTest,
}

func init() {
	for _, cmd := range []*cobra.Command{simulateCmd, tournamentCmd, dicetestCmd} {
		cmd.Flags().IntVarP(&trialsFlag, "trials", "n", 0, "Trials to run (default from config)")
		cmd.Flags().Int64Var(&seedFlag, "seed", 0, "Run seed (0 draws a fresh one)")
		cmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "Worker goroutines (0 uses GOMAXPROCS)")
	}
	simulateCmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "debate or match")
	simulateCmd.Flags().StringVar(&strategyAFlag, "strategy-a", "", "Strategy for the first archetype")
	simulateCmd.Flags().StringVar(&strategyBFlag, "strategy-b", "", "Strategy for the second archetype")
	simulateCmd.Flags().BoolVar(&saveFlag, "save", false, "Save the run to the configured store")
	tournamentCmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "debate or match")
	dicetestCmd.Flags().BoolVar(&pureFlag, "pure", false, "Compare single rolls instead of debates")
	dicetestCmd.Flags().StringVar(&diceSetFlag, "set", "special", "special or defense")
}

// runConfig merges the command-line flags over the configured defaults.
func runConfig(cmd *cobra.Command) (sim.Config, error) {
	if cmd.Flags().Changed("trials") {
		cfg.Sim.Trials = trialsFlag
	}
	if cmd.Flags().Changed("seed") {
		cfg.Sim.Seed = seedFlag
	}
	if cmd.Flags().Changed("workers") {
		cfg.Sim.Workers = workersFlag
	}
	if modeFlag != "" {
		cfg.Sim.Mode = modeFlag
	}
	if strategyAFlag != "" {
		cfg.Sim.StrategyA = strategyAFlag
	}
	if strategyBFlag != "" {
		cfg.Sim.StrategyB = strategyBFlag
	}
	rc, err := cfg.Sim.SimConfig(rules)
	if err != nil {
		return rc, err
	}
	rc.Logger = logger
	return rc, nil
}

func lookupAll(names []string) ([]*game.Archetype, error) {
	if len(names) == 0 {
		return catalog.All(), nil
	}
	archs := make([]*game.Archetype, 0, len(names))
	for _, name := range names {
		a, err := catalog.Lookup(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		archs = append(archs, a)
	}
	return archs, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	archs, err := lookupAll(args)
	if err != nil {
		return err
	}
	rc, err := runConfig(cmd)
	if err != nil {
		return err
	}
	if !jsonOutput {
		rc.Progress = progressBar(os.Stderr)
	}

	stats, err := sim.Run(cmd.Context(), archs[0], archs[1], rc)
	if err != nil && stats == nil {
		return err
	}
	// A cancelled run still reports what it finished.
	runErr := err

	var saved *store.Run
	if saveFlag {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("--save needs store.driver in the config")
		}
		defer st.Close()
		if saved, err = st.SaveStats(cmd.Context(), stats); err != nil {
			return err
		}
		logger.Info("run saved", zap.String("id", saved.ID))
	}

	if jsonOutput {
		if err := writeJSON(stats); err != nil {
			return err
		}
	} else {
		fmt.Println(renderStats(stats))
		if saved != nil {
			fmt.Println(dimStyle.Render("saved as run " + saved.ID))
		}
	}
	return runErr
}

func runTournament(cmd *cobra.Command, args []string) error {
	archs, err := lookupAll(args)
	if err != nil {
		return err
	}
	rc, err := runConfig(cmd)
	if err != nil {
		return err
	}
	res, err := sim.Tournament(cmd.Context(), archs, rc)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(res)
	}
	fmt.Println(renderStandings(res))
	return nil
}

func runDiceTest(cmd *cobra.Command, args []string) error {
	var defs map[string][]int
	switch diceSetFlag {
	case "special":
		defs = game.SpecialDiceDefinitions
	case "defense":
		defs = game.DefenseDiceDefinitions
	default:
		return fmt.Errorf("unknown dice set %q (want special or defense)", diceSetFlag)
	}
	rc, err := runConfig(cmd)
	if err != nil {
		return err
	}
	reports, err := sim.EvaluateDice(cmd.Context(), defs, rc, pureFlag)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(reports)
	}
	fmt.Println(renderDieReports(reports))
	return nil
}

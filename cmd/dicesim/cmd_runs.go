package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var runsLimit int

// runsCmd lists saved runs
var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "List saved runs, or print one",
	Long: `Without an argument lists the newest saved runs. With a run id prints the
stored result document.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "l", 20, "Runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	if st == nil {
		return fmt.Errorf("no store configured (set store.driver and store.dsn)")
	}
	defer st.Close()

	if len(args) == 1 {
		run, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(append(run.Result, '\n'))
		return err
	}

	runs, err := st.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(runs)
	}
	fmt.Println(renderRuns(runs))
	return nil
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rahul/seif/internal/console"
	"github.com/rahul/seif/internal/store"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List past runs, or show the steps of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Store.Path == "" {
			return fmt.Errorf("run history is disabled (store.path is empty)")
		}
		runs, err := store.NewRunStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer runs.Close()
		out := cmd.OutOrStdout()

		if len(args) == 0 {
			list, err := runs.ListRuns(historyLimit)
			if err != nil {
				return err
			}
			if historyJSON {
				return json.NewEncoder(out).Encode(list)
			}
			console.PrintRuns(out, list)
			return nil
		}

		run, err := runs.GetRun(args[0])
		if err != nil {
			return err
		}
		steps, err := runs.Steps(run.ID)
		if err != nil {
			return err
		}
		if historyJSON {
			return json.NewEncoder(out).Encode(map[string]any{"run": run, "steps": steps})
		}
		console.PrintRun(out, run, steps)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Output raw JSON")
	rootCmd.AddCommand(historyCmd)
}

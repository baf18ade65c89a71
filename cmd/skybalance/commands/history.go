package commands

import (
	"fmt"

	"github.com/DrSkyle/skybalance/pkg/config"
	"github.com/DrSkyle/skybalance/pkg/engine/cloud"
	"github.com/DrSkyle/skybalance/pkg/engine/history"
	"github.com/DrSkyle/skybalance/pkg/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	historyTarget string
	historyWindow int
	historyRun    string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the congestion trend from the cycle ledger",
	Long: `Reads the cycle ledger and reports how the overloaded count and load
spread evolved over a run. Defaults to the most recent run.

Example:
  skybalance history
  skybalance history --history s3://bucket/ledger.jsonl --run <id>`,
	RunE: func(cmd *cobra.Command, args []string) error {
		target := historyTarget
		if !cmd.Flags().Changed("history") {
			if v := viper.GetString("history"); v != "" {
				target = v
			}
		}

		load := storage.ConfigLoader(cloud.Loader(cloud.Options{
			Region:   settings.Region,
			Profile:  settings.Profile,
			Endpoint: settings.Endpoint,
		}))
		backend, err := history.NewBackend(cmd.Context(), target, load)
		if err != nil {
			return fmt.Errorf("failed to open history %s: %w", target, err)
		}
		entries, err := history.NewClient(backend).LoadWindow(cmd.Context(), historyWindow)
		if err != nil {
			return fmt.Errorf("failed to load ledger: %w", err)
		}

		if historyRun != "" {
			entries = selectRun(entries, historyRun)
		} else {
			entries = history.LatestRun(entries)
		}
		printTrend(cmd.OutOrStdout(), history.Analyze(entries))
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyTarget, "history", config.DefaultHistoryDir, "Cycle ledger: directory, s3://bucket/key or dynamodb://table")
	historyCmd.Flags().IntVar(&historyWindow, "window", 0, "Only read the most recent N entries (0 reads all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Run id (defaults to the latest run)")

	rootCmd.AddCommand(historyCmd)
}

func selectRun(entries []history.Entry, id string) []history.Entry {
	var out []history.Entry
	for _, e := range entries {
		if e.RunID == id {
			out = append(out, e)
		}
	}
	return out
}

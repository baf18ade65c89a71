package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/DrSkyle/skybalance/pkg/engine"
	"github.com/DrSkyle/skybalance/pkg/engine/policy"
	"github.com/DrSkyle/skybalance/pkg/engine/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	analyzeAirports     string
	analyzeObservations string
	analyzeFilters      string
	analyzeThreshold    float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify a recorded dump and propose moves",
	Long: `Runs a single estimate/classify/adjust pass over an observation dump
without querying the traffic API. The threshold is derived from the same
dump unless --threshold is given; --threshold 0 marks every loaded
facility as overloaded.

Example:
  skybalance analyze --airports airports.csv --observations data/aircraft_data.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig()
		if err != nil {
			return err
		}
		// A registry named in the config file or environment beats the flag default.
		if !cmd.Flags().Changed("airports") && viper.IsSet("airports") {
			analyzeAirports = cfg.AirportsFile
		}

		facilities, err := readFile(analyzeAirports, report.ReadRegistry)
		if err != nil {
			return err
		}
		obs, err := readFile(analyzeObservations, report.ReadObservations)
		if err != nil {
			return err
		}

		var filter *policy.Filter
		if analyzeFilters != "" {
			rules, err := policy.LoadRules(analyzeFilters)
			if err != nil {
				return err
			}
			if filter, err = policy.NewFilter(rules, slog.Default()); err != nil {
				return fmt.Errorf("failed to compile filters: %w", err)
			}
		}

		var threshold *float64
		if cmd.Flags().Changed("threshold") {
			threshold = &analyzeThreshold
		}

		a, err := engine.Analyze(facilities, obs, cfg, filter, threshold)
		if err != nil {
			return err
		}
		printAnalysis(cmd.OutOrStdout(), a)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeAirports, "airports", "airports.csv", "Facility registry CSV")
	analyzeCmd.Flags().StringVar(&analyzeObservations, "observations", "", "Observation dump CSV")
	analyzeCmd.Flags().StringVar(&analyzeFilters, "filters", "", "CEL observation filter rules (YAML)")
	analyzeCmd.Flags().Float64Var(&analyzeThreshold, "threshold", 0, "Overload threshold (derived from the dump when unset)")
	_ = analyzeCmd.MarkFlagRequired("observations")

	rootCmd.AddCommand(analyzeCmd)
}

func readFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	v, err := decode(f)
	if err != nil {
		return zero, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return v, nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/DrSkyle/skybalance/pkg/config"
	"github.com/DrSkyle/skybalance/pkg/engine"
	"github.com/DrSkyle/skybalance/pkg/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	headless    bool
	strictMode  bool
	metricsAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the measure/rebalance loop",
	Long: `Measures traffic around every facility in the registry, classifies
congestion against the baseline threshold and nudges facility positions
toward relieving overloaded ones, once per iteration.

Use --headless for batch mode.

Example:
  skybalance run --mock
  skybalance run --headless --airports airports.csv --iterations 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		run, err := loadRunConfig()
		if err != nil {
			return err
		}
		settings.Run = run
		settings.Headless = headless
		settings.StrictMode = strictMode
		settings.TextLogs = logFormat == "text"

		out, closeLog, err := logOutput(headless)
		if err != nil {
			return err
		}
		defer closeLog()
		settings.LogOutput = out

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if headless {
			return runHeadless(ctx, cmd.OutOrStdout())
		}
		return runInteractive(ctx, cancel, cmd.OutOrStdout())
	},
}

// runFlags maps run flags onto RunConfig keys.
var runFlags = map[string]string{
	"iterations":           "iterations",
	"step":                 "step",
	"threshold-multiplier": "threshold_multiplier",
	"neighbors":            "neighbors",
	"min-load":             "min_load",
	"airports":             "airports",
	"output":               "output",
	"history":              "history",
	"sql":                  "sql",
	"filters":              "filters",
	"radius":               "source.radius",
	"rapidapi-key":         "source.api_key",
	"mock":                 "source.mock",
	"replay":               "source.replay",
	"max-workers":          "source.max_workers",
	"on-initial":           "triggers.on_initial",
	"on-final":             "triggers.on_final",
	"webhook":              "triggers.webhook",
}

func init() {
	d := config.DefaultRunConfig()
	f := runCmd.Flags()

	f.Int("iterations", d.Iterations, "Number of rebalancing cycles")
	f.Float64("step", d.StepSize, "Maximum displacement per adjustment, in degrees")
	f.Float64("threshold-multiplier", d.ThresholdMultiplier, "Overload threshold as a multiple of the mean baseline load")
	f.Int("neighbors", d.Neighbors, "Nearest facilities considered per overloaded facility")
	f.Int("min-load", d.MinLoad, "Loads at or below this value are excluded from the baseline mean")
	f.String("airports", d.AirportsFile, "Facility registry CSV")
	f.String("output", d.OutputDir, "Snapshot directory or s3://bucket/prefix")
	f.String("history", d.HistoryURL, "Cycle ledger: directory, s3://bucket/key or dynamodb://table")
	f.String("sql", "", "Mirror loads and positions to sqlite://path or postgres://...")
	f.String("filters", "", "CEL observation filter rules (YAML)")
	f.Int("radius", d.Source.Radius, "Search radius around each facility, in nautical miles")
	f.String("rapidapi-key", "", "RapidAPI key for the traffic API")
	f.Bool("mock", false, "Use deterministic synthetic traffic")
	f.String("replay", "", "Replay a recorded observation dump instead of querying the API")
	f.Int("max-workers", d.Source.MaxWorkers, "Maximum concurrent traffic requests")
	f.String("on-initial", d.Triggers.OnInitial, "Command started after the first cycle")
	f.String("on-final", d.Triggers.OnFinal, "Command started after the last cycle")
	f.String("webhook", "", "Post run summaries to this URL")

	for name, key := range runFlags {
		_ = viper.BindPFlag(key, f.Lookup(name))
	}
	_ = viper.BindEnv("source.api_key", "SKYBALANCE_RAPIDAPI_KEY", "RAPIDAPI_KEY")

	f.BoolVar(&headless, "headless", false, "Run without the TUI")
	f.BoolVar(&strictMode, "strict", false, "Exit non-zero when any cycle is partial")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	f.Int64Var(&settings.MockSeed, "seed", 1, "Seed for mock traffic")
	f.IntVar(&settings.MockDensity, "mock-density", 0, "Mock aircraft per facility")
	_ = f.MarkHidden("seed")
	_ = f.MarkHidden("mock-density")

	rootCmd.AddCommand(runCmd)
}

// loadRunConfig overlays the config file, environment and flags on the defaults.
func loadRunConfig() (config.RunConfig, error) {
	cfg := config.DefaultRunConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return cfg, nil
}

// logOutput keeps logs off the terminal while the TUI owns it.
func logOutput(headless bool) (io.Writer, func(), error) {
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
	if headless {
		return nil, func() {}, nil
	}
	return io.Discard, func() {}, nil
}

func newEngine(ctx context.Context, opts ...engine.Option) (*engine.Engine, error) {
	opts = append([]engine.Option{engine.WithConfig(settings)}, opts...)
	eng, err := engine.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if metricsAddr != "" {
		go func() {
			if err := eng.Metrics.Serve(ctx, metricsAddr); err != nil {
				eng.Logger.Error("Metrics server failed", "addr", metricsAddr, "error", err)
			}
		}()
		eng.Logger.Info("Serving metrics", "addr", metricsAddr)
	}
	return eng, nil
}

func closeEngine(eng *engine.Engine) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := eng.Close(ctx); err != nil {
		eng.Logger.Warn("Shutdown incomplete", "error", err)
	}
}

func runHeadless(ctx context.Context, w io.Writer) error {
	eng, err := newEngine(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer closeEngine(eng)

	res, err := eng.Run(ctx)
	if res != nil {
		printResult(w, res)
	}
	return err
}

type outcome struct {
	res *engine.Result
	err error
}

func runInteractive(ctx context.Context, cancel context.CancelFunc, w io.Writer) error {
	var p *tea.Program
	eng, err := newEngine(ctx, engine.WithObserver(func(r engine.CycleReport) {
		p.Send(tui.CycleMsg(r))
	}))
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer closeEngine(eng)

	p = tea.NewProgram(tui.NewModel(eng.Swarm, settings.Run.Source.Mock))

	done := make(chan outcome, 1)
	go func() {
		res, err := eng.Run(ctx)
		p.Send(tui.DoneMsg{Result: res, Err: err})
		done <- outcome{res: res, err: err}
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("tui failed: %w", err)
	}

	// Quitting the TUI early stops the loop after the current cycle.
	cancel()
	out := <-done
	if errors.Is(out.err, context.Canceled) {
		fmt.Fprintln(w, "[INFO] Run interrupted.")
		return nil
	}
	if out.res != nil {
		printResult(w, out.res)
	}
	return out.err
}

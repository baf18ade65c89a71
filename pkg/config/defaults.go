// Package config defines run parameters and their defaults.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Defaults.
const (
	DefaultIterations          = 10
	DefaultStepSize            = 0.1
	DefaultThresholdMultiplier = 1.3
	DefaultNeighbors           = 3
	DefaultMinLoad             = 2
	DefaultRadius              = 25
	DefaultOutputDir           = "data"
	DefaultAirportsFile        = "airports.csv"
	DefaultHistoryDir          = ".skybalance/history"
	DefaultMaxWorkers          = 8
)

// RunConfig holds the parameters of one rebalancing run.
type RunConfig struct {
	// Iterations is the number of collect/estimate/adjust cycles.
	Iterations int `mapstructure:"iterations"`

	// StepSize caps a single pairwise displacement.
	StepSize float64 `mapstructure:"step"`

	// ThresholdMultiplier scales the mean baseline load into the overload threshold.
	ThresholdMultiplier float64 `mapstructure:"threshold_multiplier"`

	// Neighbors is the number of nearest facilities considered per overloaded facility.
	Neighbors int `mapstructure:"neighbors"`

	// MinLoad is the exclusive floor for loads contributing to the baseline.
	MinLoad int `mapstructure:"min_load"`

	AirportsFile string `mapstructure:"airports"`
	OutputDir    string `mapstructure:"output"` // local directory or s3://bucket/prefix
	HistoryURL   string `mapstructure:"history"`
	SQLURL       string `mapstructure:"sql"` // sqlite://path or postgres://...
	FiltersFile  string `mapstructure:"filters"`

	Source   SourceConfig  `mapstructure:"source"`
	Triggers TriggerConfig `mapstructure:"triggers"`
}

// SourceConfig tunes observation retrieval.
type SourceConfig struct {
	// Radius is the search radius around each facility, in nautical miles.
	Radius int `mapstructure:"radius"`

	// APIKey authenticates against the traffic API.
	APIKey string `mapstructure:"api_key"`

	BaseURL string `mapstructure:"base_url"`
	Host    string `mapstructure:"host"`

	// Mock replaces the HTTP source with deterministic synthetic traffic.
	Mock bool `mapstructure:"mock"`

	// Replay replaces the HTTP source with a recorded observation dump.
	Replay string `mapstructure:"replay"`

	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RatePerSec float64       `mapstructure:"rate_per_sec"`
	MaxWorkers int           `mapstructure:"max_workers"`
}

// TriggerConfig names the downstream actions fired during a run.
type TriggerConfig struct {
	// OnInitial runs after the first cycle.
	OnInitial string `mapstructure:"on_initial"`

	// OnFinal runs after the last cycle.
	OnFinal string `mapstructure:"on_final"`

	Webhook string `mapstructure:"webhook"`
}

// DefaultRunConfig returns the stock run parameters.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Iterations:          DefaultIterations,
		StepSize:            DefaultStepSize,
		ThresholdMultiplier: DefaultThresholdMultiplier,
		Neighbors:           DefaultNeighbors,
		MinLoad:             DefaultMinLoad,
		AirportsFile:        DefaultAirportsFile,
		OutputDir:           DefaultOutputDir,
		HistoryURL:          DefaultHistoryDir,
		Source: SourceConfig{
			Radius:     DefaultRadius,
			BaseURL:    "https://adsbx-flight-sim-traffic.p.rapidapi.com",
			Host:       "adsbx-flight-sim-traffic.p.rapidapi.com",
			Timeout:    15 * time.Second,
			MaxRetries: 3,
			RatePerSec: 5,
			MaxWorkers: DefaultMaxWorkers,
		},
		Triggers: TriggerConfig{
			OnInitial: "make run",
			OnFinal:   "make runopt",
		},
	}
}

// Validate rejects parameter combinations the engine cannot run with.
func (c RunConfig) Validate() error {
	var errs []error
	if c.Iterations < 1 {
		errs = append(errs, fmt.Errorf("iterations must be >= 1, got %d", c.Iterations))
	}
	if c.StepSize <= 0 {
		errs = append(errs, fmt.Errorf("step must be > 0, got %g", c.StepSize))
	}
	if c.ThresholdMultiplier <= 0 {
		errs = append(errs, fmt.Errorf("threshold multiplier must be > 0, got %g", c.ThresholdMultiplier))
	}
	if c.Neighbors < 1 {
		errs = append(errs, fmt.Errorf("neighbors must be >= 1, got %d", c.Neighbors))
	}
	if c.MinLoad < 0 {
		errs = append(errs, fmt.Errorf("min load must be >= 0, got %d", c.MinLoad))
	}
	if c.AirportsFile == "" {
		errs = append(errs, errors.New("airports file is required"))
	}
	if !c.Source.Mock && c.Source.Replay == "" && c.Source.APIKey == "" {
		errs = append(errs, errors.New("api key is required unless mock or replay mode is enabled"))
	}
	return errors.Join(errs...)
}

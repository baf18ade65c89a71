package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/config"
	"github.com/DrSkyle/skybalance/pkg/engine/cloud"
	"github.com/DrSkyle/skybalance/pkg/engine/history"
	"github.com/DrSkyle/skybalance/pkg/engine/notifier"
	"github.com/DrSkyle/skybalance/pkg/engine/policy"
	"github.com/DrSkyle/skybalance/pkg/engine/report"
	"github.com/DrSkyle/skybalance/pkg/engine/sink"
	"github.com/DrSkyle/skybalance/pkg/engine/snapshot"
	"github.com/DrSkyle/skybalance/pkg/engine/solver"
	"github.com/DrSkyle/skybalance/pkg/engine/swarm"
	"github.com/DrSkyle/skybalance/pkg/engine/traffic"
	"github.com/DrSkyle/skybalance/pkg/metrics"
	"github.com/DrSkyle/skybalance/pkg/storage"
	"github.com/DrSkyle/skybalance/pkg/telemetry"
	"github.com/DrSkyle/skybalance/pkg/version"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrPartialCycle indicates the run completed but at least one cycle worked
// from incomplete observations or failed to persist an artifact.
var ErrPartialCycle = errors.New("run completed with partial cycles")

// Config holds engine settings.
type Config struct {
	Run config.RunConfig

	// MockSeed seeds the synthetic fleet used in mock mode.
	MockSeed    int64
	MockDensity int

	// AWS session for s3:// and dynamodb:// targets.
	Region   string
	Profile  string
	Endpoint string

	Headless bool
	TextLogs bool
	// LogOutput overrides the log destination (stdout for JSON, stderr for text).
	LogOutput io.Writer
	Verbose  bool

	// StrictMode forces a non-zero exit code on partial cycles.
	StrictMode bool

	// Telemetry config.
	OtelEndpoint  string    // "http://localhost:4318" or via env
	SkipTelemetry bool      // Set true if embedding in an app that already has OTEL
	TraceOutput   io.Writer // Receives spans when no OTLP endpoint is set; nil discards

	Logger *slog.Logger
}

// Engine is the runtime core.
type Engine struct {
	Swarm   *swarm.Engine
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *metrics.Recorder

	// Immutable config.
	config Config

	// External dependencies.
	History   *history.Client
	Snapshots *snapshot.Writer
	Sink      *sink.SQLSink

	source     traffic.Source
	store      storage.BlobStore
	backend    history.Backend
	facilities []airspace.Facility
	filter     *policy.Filter
	optimizer  *solver.Optimizer
	triggers   map[string]notifier.Multi
	observer   Observer
	shutdown   func(context.Context) error
}

// Option defines a functional configuration override.
type Option func(*Engine)

// New initializes the Engine. Storage, ledger and filter targets are opened
// here so that a bad configuration fails before any traffic is queried.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		Swarm:   swarm.NewEngine(config.DefaultMaxWorkers),
		Logger:  newLogger(nil, false, false),
		Tracer:  otel.Tracer("skybalance/engine"),
		Metrics: metrics.NewRecorder(""),
		config:  Config{Run: config.DefaultRunConfig()},
	}

	for _, opt := range opts {
		opt(e)
	}

	slog.SetDefault(e.Logger)

	run := e.config.Run
	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}

	if !e.config.SkipTelemetry {
		shutdown, err := telemetry.Init(ctx, telemetry.Options{
			ServiceName:    version.AppName,
			ServiceVersion: version.Current,
			Endpoint:       e.config.OtelEndpoint,
			Writer:         e.config.TraceOutput,
		})
		if err != nil {
			e.Logger.Warn("Telemetry failed", "error", err)
		} else {
			e.shutdown = shutdown
			e.Tracer = telemetry.Tracer("skybalance/engine")
		}
	}

	load := storage.ConfigLoader(cloud.Loader(cloud.Options{
		Region:   e.config.Region,
		Profile:  e.config.Profile,
		Endpoint: e.config.Endpoint,
		Logger:   e.Logger,
		Verify:   true,
	}))

	if e.store == nil {
		store, err := storage.Open(ctx, run.OutputDir, load)
		if err != nil {
			return nil, fmt.Errorf("failed to open output %s: %w", run.OutputDir, err)
		}
		e.store = store
	}
	e.Snapshots = snapshot.NewWriter(e.store)

	if e.backend == nil {
		backend, err := history.NewBackend(ctx, run.HistoryURL, load)
		if err != nil {
			return nil, fmt.Errorf("failed to open history %s: %w", run.HistoryURL, err)
		}
		e.backend = backend
	}
	e.History = history.NewClient(e.backend)

	if run.SQLURL != "" {
		s, err := sink.Open(ctx, run.SQLURL)
		if err != nil {
			return nil, err
		}
		e.Sink = s
	}

	if run.FiltersFile != "" {
		rules, err := policy.LoadRules(run.FiltersFile)
		if err != nil {
			return nil, err
		}
		f, err := policy.NewFilter(rules, e.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to compile filters: %w", err)
		}
		e.filter = f
		e.Logger.Info("Filters loaded", "rules", len(rules))
	}

	if e.triggers == nil {
		e.triggers = defaultTriggers(run.Triggers, e.Logger)
	}

	e.optimizer = solver.NewOptimizer(solver.Config{
		StepSize:  run.StepSize,
		Neighbors: run.Neighbors,
	})

	return e, nil
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Logger = l
		}
	}
}

// WithConcurrency sets the swarm limit.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.Swarm = swarm.NewEngine(n)
		}
	}
}

// WithConfig sets raw config.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.config = cfg
		e.Logger = newLogger(cfg.LogOutput, cfg.TextLogs, cfg.Verbose)
		if cfg.Logger != nil {
			e.Logger = cfg.Logger
		}
		if cfg.Run.Source.MaxWorkers > 0 {
			e.Swarm = swarm.NewEngine(cfg.Run.Source.MaxWorkers)
		}
	}
}

// WithSource overrides the observation source.
func WithSource(s traffic.Source) Option {
	return func(e *Engine) {
		e.source = s
	}
}

// WithFacilities supplies the registry instead of reading the airports file.
func WithFacilities(fs []airspace.Facility) Option {
	return func(e *Engine) {
		e.facilities = fs
	}
}

// WithStore overrides the snapshot store.
func WithStore(s storage.BlobStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithHistory overrides the ledger backend.
func WithHistory(b history.Backend) Option {
	return func(e *Engine) {
		e.backend = b
	}
}

// WithMetrics sets the metrics recorder. Nil disables metrics.
func WithMetrics(r *metrics.Recorder) Option {
	return func(e *Engine) {
		e.Metrics = r
	}
}

// WithTrigger adds a trigger for the given stage, replacing the configured
// commands and webhook.
func WithTrigger(stage string, t notifier.Trigger) Option {
	return func(e *Engine) {
		if e.triggers == nil {
			e.triggers = make(map[string]notifier.Multi)
		}
		e.triggers[stage] = append(e.triggers[stage], t)
	}
}

// WithObserver receives a report after every cycle.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Run executes the baseline pass and every rebalancing cycle.
func (e *Engine) Run(ctx context.Context) (res *Result, err error) {
	ctx, span := e.Tracer.Start(ctx, "Engine.Run")
	defer span.End()

	// Crash safety.
	defer e.recoverPanic(ctx, &err)

	if !e.config.Headless && e.config.TextLogs {
		fmt.Fprintf(os.Stderr, "%s %s\n", version.AppName, version.Current)
	}

	facilities, err := e.registry()
	if err != nil {
		return nil, err
	}
	state, err := airspace.NewState(facilities)
	if err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}
	if state.Len() == 0 {
		return nil, fmt.Errorf("%w: registry has no facilities", report.ErrMalformed)
	}
	state.RunID = uuid.NewString()
	span.SetAttributes(
		attribute.String("run.id", state.RunID),
		attribute.Int("run.facilities", state.Len()),
	)

	src, err := e.resolveSource(facilities)
	if err != nil {
		return nil, err
	}
	collector := traffic.NewCollector(src, e.Swarm, e.config.Run.Source.Radius, e.Logger)

	e.Logger.Info("Starting SkyBalance Engine",
		"run_id", state.RunID,
		"facilities", state.Len(),
		"iterations", e.config.Run.Iterations,
		"source", src.Name(),
		"concurrency", e.Swarm.AIMD().GetConcurrency())

	res = &Result{RunID: state.RunID}

	baseline := e.baseline(ctx, state, collector)
	res.absorb(baseline.health)
	state.Threshold = baseline.Threshold
	state.ThresholdSet = true
	res.Threshold = state.Threshold

	for cycle := 0; cycle < e.config.Run.Iterations; cycle++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		state.Cycle = cycle
		out, err := e.runCycle(ctx, state, collector)
		if err != nil {
			return res, fmt.Errorf("cycle %d: %w", cycle, err)
		}
		res.absorb(out.health)
		res.Cycles++
		state = out.State
	}

	if err := e.finish(ctx, state, res); err != nil {
		return res, err
	}
	res.State = state

	if res.Partial() {
		span.SetAttributes(
			attribute.Bool("run.partial", true),
			attribute.Int("run.failed_fetches", res.FailedFetches),
			attribute.Int("run.storage_errors", res.StorageErrors),
		)
		if e.config.StrictMode {
			e.Logger.Error("Strict Mode: Failing due to partial cycles")
			return res, ErrPartialCycle
		}
		e.Logger.Warn("Run finished with partial cycles (StrictMode=false)")
	}

	return res, nil
}

// Close flushes the tracer and releases the SQL sink.
func (e *Engine) Close(ctx context.Context) error {
	var errs []error
	if e.Sink != nil {
		errs = append(errs, e.Sink.Close())
	}
	if e.shutdown != nil {
		errs = append(errs, e.shutdown(ctx))
	}
	return errors.Join(errs...)
}

func (e *Engine) registry() ([]airspace.Facility, error) {
	if e.facilities != nil {
		return e.facilities, nil
	}
	path := e.config.Run.AirportsFile
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}
	defer f.Close()

	fs, err := report.ReadRegistry(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}
	return fs, nil
}

func (e *Engine) resolveSource(facilities []airspace.Facility) (traffic.Source, error) {
	switch {
	case e.source != nil:
		return e.source, nil
	case e.config.Run.Source.Replay != "":
		return traffic.NewFileSource(e.config.Run.Source.Replay)
	case e.config.Run.Source.Mock:
		density := e.config.MockDensity
		if density <= 0 {
			density = 4
		}
		return traffic.NewMockSource(facilities, density, e.config.Run.Source.Radius, e.config.MockSeed), nil
	}
	s := e.config.Run.Source
	return traffic.NewHTTPSource(traffic.HTTPOptions{
		BaseURL:    s.BaseURL,
		Host:       s.Host,
		APIKey:     s.APIKey,
		Timeout:    s.Timeout,
		RatePerSec: s.RatePerSec,
		MaxRetries: s.MaxRetries,
	}), nil
}

func defaultTriggers(cfg config.TriggerConfig, logger *slog.Logger) map[string]notifier.Multi {
	out := map[string]notifier.Multi{}
	add := func(stage string, t notifier.Trigger) {
		out[stage] = append(out[stage], t)
	}
	if c := notifier.NewCommandTrigger(cfg.OnInitial, logger); c != nil {
		add(notifier.StageInitial, c)
	}
	if c := notifier.NewCommandTrigger(cfg.OnFinal, logger); c != nil {
		add(notifier.StageFinal, c)
	}
	if w := notifier.NewWebhookTrigger(cfg.Webhook, ""); w != nil {
		add(notifier.StageInitial, w)
		add(notifier.StageFinal, w)
	}
	return out
}

// recoverPanic handles failures.
func (e *Engine) recoverPanic(ctx context.Context, errp *error) {
	if r := recover(); r != nil {
		tr := otel.Tracer("skybalance/engine")
		_, span := tr.Start(ctx, "CriticalPanic")

		stack := debug.Stack()

		span.RecordError(fmt.Errorf("%v", r), trace.WithStackTrace(true))
		span.SetStatus(codes.Error, "CRITICAL FAILURE")
		span.SetAttributes(
			attribute.String("crash.stack", string(stack)),
			attribute.String("crash.reason", fmt.Sprintf("%v", r)),
		)
		span.End()

		e.Logger.Error("CRITICAL FAILURE", "error", r, "stack", string(stack))

		// The caller decides the exit code.
		*errp = fmt.Errorf("engine panic: %v", r)
	}
}

func newLogger(w io.Writer, text, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{ReplaceAttr: redactSensitiveData}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if text {
		if w == nil {
			w = os.Stderr
		}
		return slog.New(slog.NewTextHandler(w, opts))
	}
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// redactSensitiveData scrubs sensitive keys from logs.
func redactSensitiveData(groups []string, a slog.Attr) slog.Attr {
	sensitiveKeys := map[string]bool{
		"account": true, "password": true, "access_key": true, "token": true,
		"secret": true, "api_key": true, "private_key": true, "auth_token": true,
		"rapidapi_key": true, "credential": true, "connection_string": true,
		"webhook": true,
	}

	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.Attr{
			Key:   a.Key,
			Value: slog.StringValue("[REDACTED]"),
		}
	}
	return a
}

// Oasis serves heat-illness triage: a decision tree classifies vitals into an
// urgency tier and an optional LLM adds first-aid advice.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/health"
	"github.com/linnemanlabs/go-core/httpmw"
	"github.com/linnemanlabs/go-core/httpserver"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/metrics"
	"github.com/linnemanlabs/go-core/opshttp"
	"github.com/linnemanlabs/go-core/otelx"
	"github.com/linnemanlabs/go-core/prof"
	v "github.com/linnemanlabs/go-core/version"
	"go.opentelemetry.io/otel"

	"github.com/linnemanlabs/oasis/internal/advisory"
	"github.com/linnemanlabs/oasis/internal/authmw"
	vc "github.com/linnemanlabs/oasis/internal/cfg"
	"github.com/linnemanlabs/oasis/internal/notify/slack"
	"github.com/linnemanlabs/oasis/internal/postgres"
	"github.com/linnemanlabs/oasis/internal/triage"
	"github.com/linnemanlabs/oasis/internal/triage/memstore"
	"github.com/linnemanlabs/oasis/internal/triage/pgstore"
	"github.com/linnemanlabs/oasis/internal/triageapi"
)

const (
	appName   = "oasis"
	component = "server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal error:", err)
		os.Exit(1)
	}
}

// serverConfig groups the flag-backed configs of every package main wires.
type serverConfig struct {
	app    vc.Config
	http   httpserver.Config
	httpmw httpmw.Config
	log    log.Config
	ops    opshttp.Config
	prof   prof.Config
	trace  otelx.Config
}

func (c *serverConfig) register(fs *flag.FlagSet) {
	c.app.RegisterFlags(fs)
	c.http.RegisterFlags(fs)
	c.httpmw.RegisterFlags(fs)
	c.log.RegisterFlags(fs)
	c.ops.RegisterFlags(fs)
	c.prof.RegisterFlags(fs)
	c.trace.RegisterFlags(fs)
}

func (c *serverConfig) validate() error {
	if err := errors.Join(
		c.app.Validate(),
		c.http.Validate(),
		c.httpmw.Validate(),
		c.log.Validate(),
		c.ops.Validate(),
		c.prof.Validate(),
		c.trace.Validate(),
	); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if c.app.APIPort == c.ops.Port {
		return fmt.Errorf("http and admin ports must differ (both %d)", c.app.APIPort)
	}
	return nil
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	v.AppName = appName
	v.Component = component
	vi := v.Get()

	var sc serverConfig
	sc.register(flag.CommandLine)
	var showVersion bool
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()
	if showVersion {
		fmt.Printf(
			"%s (%s) %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Component, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		return nil
	}

	// OASIS_* env vars fill flags not set on the command line
	cfg.FillFromEnv(flag.CommandLine, "OASIS_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := sc.validate(); err != nil {
		return err
	}
	appCfg := &sc.app

	lg, err := log.New(sc.log.ToOptions(v.AppName))
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = lg.Sync() }()
	L := lg.With("component", vi.Component)
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"go_version", vi.GoVersion,
		"http_port", appCfg.APIPort,
		"admin_port", sc.ops.Port,
		"enable_pyroscope", sc.prof.EnablePyroscope,
		"enable_tracing", sc.trace.EnableTracing,
		"otlp_endpoint", sc.trace.OTLPEndpoint,
		"advisory_provider", appCfg.AdvisoryProvider,
		"advisory_retries", appCfg.AdvisoryRetries,
		"model_path", appCfg.ModelPath,
		"training_data", appCfg.TrainingDataPath,
		"postgres", appCfg.DatabaseURL != "",
	)

	// profiling first so the whole process lifetime is captured
	profOpts := sc.prof.ToOptions()
	profOpts.AppName = v.AppName
	profOpts.Tags = map[string]string{
		"app":       v.AppName,
		"component": v.Component,
		"version":   vi.Version,
		"commit":    vi.Commit,
		"build_id":  vi.BuildId,
	}
	stopProf, profErr := prof.Start(ctx, profOpts)
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", sc.prof.PyroServer)
	}
	if stopProf != nil {
		defer stopProf()
	}
	profiling := profErr == nil && sc.prof.EnablePyroscope

	traceOpts := sc.trace.ToOptions()
	traceOpts.Service = v.AppName
	traceOpts.Component = v.Component
	traceOpts.Version = v.Version
	shutdownOtelx, err := otelx.Init(ctx, traceOpts)
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	if shutdownOtelx == nil {
		shutdownOtelx = func(context.Context) error { return nil }
	}
	if profiling {
		// tag spans with pyroscope profile ids
		otel.SetTracerProvider(otelpyroscope.NewTracerProvider(otel.GetTracerProvider()))
	}

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, component, &vi)
	m.SetProfilingActive(profiling)

	triageMetrics := triage.NewMetrics(m.Registry())
	postgres.SetQueryObserver(postgres.NewQueryMetrics(m.Registry()))

	bundle, err := loadBundle(ctx, appCfg, L)
	if err != nil {
		return err
	}

	store, closeStore, err := newStore(ctx, appCfg, L)
	if err != nil {
		return err
	}
	defer closeStore()

	backend, err := newBackend(ctx, appCfg, L)
	if err != nil {
		return err
	}
	var advisor triage.Advisor
	if backend != nil {
		advisor = advisory.New(backend, L, triageMetrics.AdvisoryHooks())
		L.Info(ctx, "initialized advisory provider", "provider", appCfg.AdvisoryProvider, "model", appCfg.Advisory().ModelName)
	} else {
		L.Info(ctx, "advisory provider disabled")
	}

	engine := triage.NewEngine(bundle.Model, bundle.Codec, advisor, appCfg.Advisory(), L, triageMetrics.Hooks())

	var notifier triage.Notifier
	if appCfg.SlackWebhookURL != "" {
		notifier = slack.New(appCfg.SlackWebhookURL, L)
		L.Info(ctx, "notifier enabled", "type", "slack")
	}

	svc := triage.NewService(store, engine, notifier, L)

	// readiness fails once draining starts so the load balancer stops routing here
	var shutdownGate health.ShutdownGate
	readiness := health.All(shutdownGate.Probe())
	liveness := health.Fixed(true, "")

	opsOpts := sc.ops.ToOptions()
	opsOpts.Metrics = m.Handler()
	opsOpts.Health = liveness
	opsOpts.Readiness = readiness
	opsOpts.UseRecoverMW = true
	opsOpts.OnPanic = m.IncHttpPanic
	opsHTTPStop, err := opshttp.Start(ctx, L, opsOpts)
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		return err
	}

	h := newAPIHandler(apiDeps{
		logger:  L,
		svc:     svc,
		model:   triageapi.ModelInfoFromBundle(bundle),
		tokens:  authmw.SplitTokens(appCfg.APIToken),
		healthz: health.HealthzHandler(liveness),
		readyz:  health.ReadyzHandler(readiness),
		metrics: m.Middleware,
		clientIP: httpmw.ClientIPWithOptions(httpmw.ClientIPOptions{
			TrustedHops: sc.httpmw.TrustedProxyHops,
		}),
	})

	apiOpts, err := sc.http.ToOptions()
	if err != nil {
		L.Error(ctx, err, "invalid http config")
		_ = opsHTTPStop(context.Background())
		return err
	}
	apiHTTPStop, err := httpserver.Start(ctx, fmt.Sprintf(":%d", appCfg.APIPort), h, L, apiOpts)
	if err != nil {
		L.Error(ctx, err, "failed to start api http listener")
		_ = opsHTTPStop(context.Background())
		return err
	}

	announce(ctx, L, readyState(bundle)...)

	<-ctx.Done()
	L.Info(context.Background(), "shutdown signal received")

	shutdownGate.Set("draining")
	announce(context.Background(), L, "STOPPING=1", "STATUS=draining")
	drain(L, time.Duration(appCfg.DrainSeconds)*time.Second)

	shutdownAll(L, time.Duration(appCfg.ShutdownBudgetSeconds)*time.Second, []stopFn{
		{"api http server", apiHTTPStop},
		{"ops http server", opsHTTPStop},
		{"otel", shutdownOtelx},
	})

	L.Info(context.Background(), "shutdown complete")
	return nil
}

// newStore opens postgres when a database URL is configured and falls back
// to the in-memory store otherwise. The returned close func is never nil.
func newStore(ctx context.Context, c *vc.Config, L log.Logger) (triage.Store, func(), error) {
	if c.DatabaseURL == "" {
		L.Info(ctx, "using in-memory store (no database-url configured)")
		return memstore.New(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:            c.DatabaseURL,
		MaxConns:       int32(c.DBMaxConns), //nolint:gosec // G115: bounded to 1..1000 by Validate
		SlowQuery:      c.DBSlowQuery,
		ConnectTimeout: 10 * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("postgres pool: %w", err)
	}
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pgstore init: %w", err)
	}
	L.Info(ctx, "using postgres store", "max_conns", c.DBMaxConns)
	return s, pool.Close, nil
}

// drain waits d for in-flight requests and the load balancer, or until a
// second signal arrives.
func drain(L log.Logger, d time.Duration) {
	L.Info(context.Background(), "draining", "drain_seconds", d.Seconds())
	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(forceCh)

	select {
	case <-time.After(d):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
}

type stopFn struct {
	name string
	fn   func(context.Context) error
}

// shutdownAll stops each component in order, giving each an equal slice of budget.
func shutdownAll(L log.Logger, budget time.Duration, stops []stopFn) {
	if len(stops) == 0 {
		return
	}
	perComponent := budget / time.Duration(len(stops))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	for _, s := range stops {
		cctx, ccancel := context.WithTimeout(shutdownCtx, perComponent)
		if err := s.fn(cctx); err != nil {
			L.Error(context.Background(), err, s.name+" shutdown")
		}
		ccancel()
	}
}

// Package postgres builds the shared pgx pool with OpenTelemetry tracing,
// query logging and Prometheus query timings.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// PoolConfig configures NewPool.
type PoolConfig struct {
	URL            string
	MaxConns       int32
	SlowQuery      time.Duration
	ConnectTimeout time.Duration
}

// NewPool parses cfg.URL, installs the tracer chain, connects and pings.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.ConnConfig.Tracer = wrapQueryTracer(
		otelpgx.NewTracer(otelpgx.WithTrimSQLInSpanName()),
		cfg.SlowQuery,
	)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := otelpgx.RecordStats(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("record pool stats: %w", err)
	}
	return pool, nil
}

// QueryMetrics observes query durations into a Prometheus histogram.
type QueryMetrics struct {
	Duration *prometheus.HistogramVec
}

// NewQueryMetrics registers the query histogram on reg.
func NewQueryMetrics(reg prometheus.Registerer) *QueryMetrics {
	m := &QueryMetrics{
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oasis_db_query_duration_seconds",
			Help:    "Duration of database queries by HTTP route and outcome.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms .. ~4s
		}, []string{"route", "outcome"}),
	}
	reg.MustRegister(m.Duration)
	return m
}

// ObserveQuery implements QueryObserver.
func (m *QueryMetrics) ObserveQuery(_ context.Context, route, outcome string, dur time.Duration) {
	m.Duration.WithLabelValues(route, outcome).Observe(dur.Seconds())
}

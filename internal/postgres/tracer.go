package postgres

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

const modulePrefix = "github.com/linnemanlabs/oasis/internal/"

var queryObserver atomic.Pointer[observerHolder]

type observerHolder struct{ QueryObserver }

// QueryObserver receives per-query timings (wired by main for Prometheus).
type QueryObserver interface {
	ObserveQuery(ctx context.Context, route, outcome string, dur time.Duration)
}

// QueryObserverFunc adapts a plain function to QueryObserver.
type QueryObserverFunc func(ctx context.Context, route, outcome string, dur time.Duration)

// ObserveQuery implements QueryObserver.
func (f QueryObserverFunc) ObserveQuery(ctx context.Context, route, outcome string, dur time.Duration) {
	f(ctx, route, outcome, dur)
}

// SetQueryObserver sets the process-wide query observer. nil disables it.
func SetQueryObserver(o QueryObserver) {
	if o == nil {
		queryObserver.Store(nil)
		return
	}
	queryObserver.Store(&observerHolder{QueryObserver: o})
}

func getQueryObserver() QueryObserver {
	h := queryObserver.Load()
	if h == nil {
		return nil
	}
	return h.QueryObserver
}

type queryStateKey struct{}

// queryState travels from TraceQueryStart to TraceQueryEnd.
type queryState struct {
	sql    string
	args   []any
	start  time.Time
	caller string
}

// loggingTracer wraps another pgx.QueryTracer (otelpgx) and adds a
// structured log line for slow or failed queries.
type loggingTracer struct {
	inner pgx.QueryTracer
	slow  time.Duration
}

// wrapQueryTracer wraps inner with logging. Queries at or above slow are
// logged; slow == 0 logs every query. Failures are always logged.
func wrapQueryTracer(inner pgx.QueryTracer, slow time.Duration) pgx.QueryTracer {
	return loggingTracer{inner: inner, slow: slow}
}

func (t loggingTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	st := &queryState{
		sql:    data.SQL,
		args:   data.Args,
		start:  time.Now(),
		caller: findDBCaller(),
	}

	// otelpgx creates its span first so the caller lands on the DB span.
	if t.inner != nil {
		ctx = t.inner.TraceQueryStart(ctx, conn, data)
	}
	if st.caller != "" {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.SetAttributes(attribute.String("db.caller", st.caller))
		}
	}
	return context.WithValue(ctx, queryStateKey{}, st)
}

func (t loggingTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if t.inner != nil {
		t.inner.TraceQueryEnd(ctx, conn, data)
	}

	st, _ := ctx.Value(queryStateKey{}).(*queryState)
	if st == nil {
		return
	}
	dur := time.Since(st.start)

	if obs := getQueryObserver(); obs != nil {
		obs.ObserveQuery(ctx, routeFromContext(ctx), outcome(data.Err), dur)
	}

	if data.Err == nil && dur < t.slow {
		return
	}

	fields := []any{
		"db.statement", st.sql,
		"db.arg_count", len(st.args),
		"db.duration", dur.Seconds(),
	}
	if tag := strings.TrimSpace(data.CommandTag.String()); tag != "" {
		if op, _, _ := strings.Cut(tag, " "); op != "" {
			fields = append(fields, "db.operation.name", strings.ToUpper(op))
		}
		fields = append(fields, "db.rows", data.CommandTag.RowsAffected())
	}
	if st.caller != "" {
		fields = append(fields, "db.caller", st.caller)
	}

	L := log.FromContext(ctx)
	if data.Err != nil {
		var pgErr *pgconn.PgError
		if errors.As(data.Err, &pgErr) {
			fields = append(fields, "db.error_code", pgErr.Code)
		}
		L.Error(ctx, data.Err, "db query failed", fields...)
		return
	}
	L.Info(ctx, "slow db query", fields...)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func routeFromContext(ctx context.Context) string {
	if rc := chi.RouteContext(ctx); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}

// findDBCaller returns the first frame in this module outside the postgres
// package, typically a store method.
func findDBCaller() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		fr, more := frames.Next()
		fn := fr.Function
		if strings.HasPrefix(fn, modulePrefix) && !strings.HasPrefix(fn, modulePrefix+"postgres.") {
			return shortenFuncName(fn)
		}
		if !more {
			return ""
		}
	}
}

// shortenFuncName drops the import path and package name, keeping receiver and method.
func shortenFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	if _, rest, ok := strings.Cut(fn, "."); ok && rest != "" {
		return rest
	}
	return fn
}

// Package pgstore provides a PostgreSQL implementation of triage.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/oasis/internal/triage"
)

var tracer = otel.Tracer("github.com/linnemanlabs/oasis/internal/triage/pgstore")

//go:embed schema.sql
var schema string

// Store persists triage results in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on pool and returns a ready Store. The caller owns
// the pool.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const resultColumns = `id, temperature, hydration_level, skin_condition, dizziness, outcome, created_at, duration_s`

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Get retrieves a triage result by ID.
func (s *Store) Get(ctx context.Context, id string) (*triage.Result, bool, error) {
	ctx, span := startSpan(ctx, "pgstore.Get", "SELECT")
	defer span.End()

	query := `SELECT ` + resultColumns + ` FROM triage_results WHERE id = $1`
	r, err := scanResult(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fail(span, err)
	}
	return r, true, nil
}

// Put inserts or replaces a triage result.
func (s *Store) Put(ctx context.Context, r *triage.Result) error {
	ctx, span := startSpan(ctx, "pgstore.Put", "UPSERT")
	defer span.End()

	outcomeJSON, err := json.Marshal(r.Outcome)
	if err != nil {
		return fail(span, fmt.Errorf("marshal outcome: %w", err))
	}

	query := `INSERT INTO triage_results (
		id, urgency, advice_available, advice_error,
		temperature, hydration_level, skin_condition, dizziness,
		outcome, created_at, duration_s
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	ON CONFLICT (id) DO UPDATE SET
		urgency          = EXCLUDED.urgency,
		advice_available = EXCLUDED.advice_available,
		advice_error     = EXCLUDED.advice_error,
		temperature      = EXCLUDED.temperature,
		hydration_level  = EXCLUDED.hydration_level,
		skin_condition   = EXCLUDED.skin_condition,
		dizziness        = EXCLUDED.dizziness,
		outcome          = EXCLUDED.outcome,
		duration_s       = EXCLUDED.duration_s`

	_, err = s.pool.Exec(ctx, query,
		r.ID, string(r.Outcome.Urgency), r.Outcome.AdviceAvailable, r.Outcome.AdviceError,
		r.Vitals.Temperature, r.Vitals.HydrationLevel, r.Vitals.SkinCondition, r.Vitals.Dizziness,
		outcomeJSON, r.CreatedAt, r.Duration,
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert triage result: %w", err))
	}
	return nil
}

// List returns up to limit results, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*triage.Result, error) {
	ctx, span := startSpan(ctx, "pgstore.List", "SELECT")
	defer span.End()

	if limit <= 0 {
		limit = triage.DefaultListLimit
	}
	query := `SELECT ` + resultColumns + ` FROM triage_results ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query results: %w", err))
	}
	defer rows.Close()

	var out []*triage.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fail(span, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate results: %w", err))
	}
	span.SetAttributes(attribute.Int("db.response.returned_rows", len(out)))
	return out, nil
}

// scanResult scans one row. pgx.ErrNoRows is returned unwrapped.
func scanResult(row pgx.Row) (*triage.Result, error) {
	var (
		r           triage.Result
		outcomeJSON []byte
	)
	err := row.Scan(
		&r.ID, &r.Vitals.Temperature, &r.Vitals.HydrationLevel, &r.Vitals.SkinCondition, &r.Vitals.Dizziness,
		&outcomeJSON, &r.CreatedAt, &r.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan: %w", err)
	}
	if err := json.Unmarshal(outcomeJSON, &r.Outcome); err != nil {
		return nil, fmt.Errorf("unmarshal outcome %s: %w", r.ID, err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}

package triage

import (
	"context"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/vitals"
)

// Service is the business boundary for triage operations: it runs the
// engine, assigns ids, persists results and notifies on high urgency.
type Service struct {
	store    Store
	engine   *Engine
	notifier Notifier
	logger   log.Logger
}

// NewService creates a triage service. notifier may be nil.
func NewService(store Store, engine *Engine, notifier Notifier, logger log.Logger) *Service {
	if store == nil {
		panic(xerrors.New("triage store is required"))
	}
	if engine == nil {
		panic(xerrors.New("triage engine is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		engine:   engine,
		notifier: notifier,
		logger:   logger,
	}
}

// Triage runs the engine for r and records the result. Engine errors are
// returned unchanged. A store or notifier failure is logged and the computed
// result is still returned.
func (s *Service) Triage(ctx context.Context, r vitals.Record) (*Result, error) {
	start := time.Now()

	out, err := s.engine.Triage(ctx, r)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ID:        ulid.Make().String(),
		Vitals:    r,
		Outcome:   *out,
		CreatedAt: start.UTC(),
		Duration:  time.Since(start).Seconds(),
	}

	L := s.logger.With("triage_id", result.ID, "urgency", out.Urgency)

	if err := s.store.Put(ctx, result); err != nil {
		L.Error(ctx, err, "failed to persist triage result")
	}

	if out.Urgency == label.High && s.notifier != nil {
		if err := s.notifier.Notify(ctx, result); err != nil {
			L.Error(ctx, err, "failed to send high urgency notification")
		}
	}

	L.Info(ctx, "triage complete",
		"advice_available", out.AdviceAvailable,
		"advice_error", out.AdviceError,
		"duration", result.Duration,
	)
	return result, nil
}

// Get retrieves a triage result by ID.
func (s *Service) Get(ctx context.Context, id string) (*Result, bool, error) {
	return s.store.Get(ctx, id)
}

// List returns recent results, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]*Result, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.store.List(ctx, limit)
}

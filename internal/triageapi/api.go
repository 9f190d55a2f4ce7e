// Package triageapi exposes triage over HTTP.
package triageapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/oasis/internal/assessment"
	"github.com/linnemanlabs/oasis/internal/classifier"
	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/locale"
	"github.com/linnemanlabs/oasis/internal/training"
	"github.com/linnemanlabs/oasis/internal/triage"
	"github.com/linnemanlabs/oasis/internal/vitals"
)

const (
	maxBodyBytes = 16 << 10
	maxListLimit = 500
)

// TriageService defines the business operations triageapi needs.
type TriageService interface {
	Triage(ctx context.Context, r vitals.Record) (*triage.Result, error)
	Get(ctx context.Context, id string) (*triage.Result, bool, error)
	List(ctx context.Context, limit int) ([]*triage.Result, error)
}

// ModelInfo describes the loaded classifier for GET /api/v1/model.
type ModelInfo struct {
	Classes   []label.Urgency    `json:"classes"`
	Features  []string           `json:"features"`
	Depth     int                `json:"depth"`
	Leaves    int                `json:"leaves"`
	TrainSize int                `json:"train_size"`
	Examples  int                `json:"examples"`
	Options   classifier.Options `json:"options"`
	Report    *classifier.Report `json:"report,omitempty"`
	TrainedAt time.Time          `json:"trained_at"`
}

// ModelInfoFromBundle summarizes b.
func ModelInfoFromBundle(b *training.Bundle) ModelInfo {
	return ModelInfo{
		Classes:   b.Codec.Classes(),
		Features:  vitals.FeatureNames[:],
		Depth:     b.Model.Depth(),
		Leaves:    b.Model.Leaves(),
		TrainSize: b.Model.TrainSize(),
		Examples:  b.Examples,
		Options:   b.Model.Options(),
		Report:    b.Report,
		TrainedAt: b.TrainedAt,
	}
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
	model  ModelInfo
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService, model ModelInfo) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		model:  model,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/triage", a.handleTriage)
		r.Get("/triage", a.handleListTriage)
		r.Get("/triage/{id}", a.handleGetTriage)
		r.Get("/model", a.handleModel)
		r.Get("/assessments", a.handleListAssessments)
		r.Get("/assessments/{id}", a.handleGetAssessment)
		r.Post("/assessments/{id}", a.handleScoreAssessment)
	})
}

func (a *API) handleTriage(w http.ResponseWriter, r *http.Request) {
	var rec vitals.Record
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	result, err := a.svc.Triage(r.Context(), rec)
	if err != nil {
		if errors.Is(err, vitals.ErrInvalidVitals) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error(r.Context(), err, "triage failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("oasis.triage.id", result.ID),
		attribute.String("oasis.triage.urgency", string(result.Outcome.Urgency)),
	)

	writeJSON(w, http.StatusOK, result.In(locale.FromRequest(r)))
}

func (a *API) handleGetTriage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("oasis.triage.id", id))

	result, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get triage result", "id", id)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	span.SetAttributes(attribute.String("oasis.triage.urgency", string(result.Outcome.Urgency)))
	writeJSON(w, http.StatusOK, result.In(locale.FromRequest(r)))
}

func (a *API) handleListTriage(w http.ResponseWriter, r *http.Request) {
	limit := triage.DefaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxListLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxListLimit))
			return
		}
		limit = n
	}

	results, err := a.svc.List(r.Context(), limit)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list triage results")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	lang := locale.FromRequest(r)
	out := make([]*triage.Result, len(results))
	for i, res := range results {
		out[i] = res.In(lang)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func (a *API) handleModel(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.model)
}

func (a *API) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	lang := locale.FromRequest(r)
	all := assessment.All()
	views := make([]assessment.View, len(all))
	for i, q := range all {
		views[i] = q.In(lang)
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": views})
}

func (a *API) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	q, ok := assessment.Lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, q.In(locale.FromRequest(r)))
}

type assessmentRequest struct {
	Answers map[string]int `json:"answers"`
}

func (a *API) handleScoreAssessment(w http.ResponseWriter, r *http.Request) {
	q, ok := assessment.Lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req assessmentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := q.Score(req.Answers, locale.FromRequest(r))
	if err != nil {
		if errors.Is(err, assessment.ErrInvalidAnswers) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error(r.Context(), err, "assessment scoring failed", "questionnaire", q.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("oasis.assessment.id", q.ID),
		attribute.Int("oasis.assessment.score", res.Score),
		attribute.String("oasis.assessment.urgency", string(res.Urgency)),
	)
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

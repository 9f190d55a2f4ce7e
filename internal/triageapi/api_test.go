package triageapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/oasis/internal/assessment"
	"github.com/linnemanlabs/oasis/internal/classifier"
	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/locale"
	"github.com/linnemanlabs/oasis/internal/training"
	"github.com/linnemanlabs/oasis/internal/triage"
	"github.com/linnemanlabs/oasis/internal/vitals"
)

// mockService implements TriageService for testing.
type mockService struct {
	mu        sync.Mutex
	results   map[string]*triage.Result
	triageErr error
	getErr    error
	listErr   error
	lastLimit int
	calls     int
}

func newMockService() *mockService {
	return &mockService{results: make(map[string]*triage.Result)}
}

func (m *mockService) Triage(_ context.Context, r vitals.Record) (*triage.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.triageErr != nil {
		return nil, m.triageErr
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	res := &triage.Result{
		ID:     fmt.Sprintf("id-%d", m.calls),
		Vitals: r,
		Outcome: triage.Outcome{
			Urgency:         label.High,
			Advice:          triage.AdviceUnavailable,
			AdviceError:     "service_unavailable",
			Recommendations: triage.Recommendations(label.High),
		},
	}
	m.results[res.ID] = res
	return res, nil
}

func (m *mockService) Get(_ context.Context, id string) (*triage.Result, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	r, ok := m.results[id]
	return r, ok, nil
}

func (m *mockService) List(_ context.Context, limit int) ([]*triage.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*triage.Result
	for _, r := range m.results {
		out = append(out, r)
	}
	return out, nil
}

func newTestRouter(t *testing.T, svc *mockService) chi.Router {
	t.Helper()
	api := New(nil, svc, ModelInfo{Classes: []label.Urgency{label.High, label.Low, label.Medium}, Depth: 2})
	r := chi.NewRouter()
	api.RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

//  New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	api := New(nil, newMockService(), ModelInfo{})
	if api.logger == nil {
		t.Fatal("New(nil, svc) left logger nil; expected Nop logger")
	}
}

func TestNew_NilService_Panics(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("New with nil service did not panic")
		}
	}()
	New(log.Nop(), nil, ModelInfo{})
}

// Routing

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, newMockService())
	valid := `{"temperature":46,"hydration_level":2,"skin_condition":2,"dizziness":true}`

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"POST triage", http.MethodPost, "/api/v1/triage", valid, http.StatusOK},
		{"GET list", http.MethodGet, "/api/v1/triage", "", http.StatusOK},
		{"GET model", http.MethodGet, "/api/v1/model", "", http.StatusOK},
		{"GET missing id", http.MethodGet, "/api/v1/triage/01H5K3ABCDEFGHJKMNPQRS", "", http.StatusNotFound},
		{"PUT not allowed", http.MethodPut, "/api/v1/triage", "", http.StatusMethodNotAllowed},
		{"DELETE not allowed", http.MethodDelete, "/api/v1/triage/abc", "", http.StatusMethodNotAllowed},
		{"POST model not allowed", http.MethodPost, "/api/v1/model", "", http.StatusMethodNotAllowed},
		{"GET assessments", http.MethodGet, "/api/v1/assessments", "", http.StatusOK},
		{"GET assessment", http.MethodGet, "/api/v1/assessments/dehydration", "", http.StatusOK},
		{"GET unknown assessment", http.MethodGet, "/api/v1/assessments/sunburn", "", http.StatusNotFound},
		{"DELETE assessment not allowed", http.MethodDelete, "/api/v1/assessments/dehydration", "", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
		{"root", http.MethodGet, "/", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(r, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.wantStatus)
			}
		})
	}
}

// Triage

func TestHandleTriage_ReturnsResult(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	r := newTestRouter(t, svc)

	rec := do(r, http.MethodPost, "/api/v1/triage", `{"temperature":46,"hydration_level":2,"skin_condition":2,"dizziness":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got triage.Result
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Outcome.Urgency != label.High {
		t.Errorf("urgency = %q", got.Outcome.Urgency)
	}
	if got.Outcome.Advice != triage.AdviceUnavailable {
		t.Errorf("advice = %q", got.Outcome.Advice)
	}
	if got.Vitals.Temperature != 46 || !got.Vitals.Dizziness {
		t.Errorf("vitals = %+v", got.Vitals)
	}
	if len(got.Outcome.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
}

func TestHandleTriage_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{bad`, "invalid payload"},
		{"unknown field", `{"temperature":40,"pulse":90}`, "invalid payload"},
		{"hydration out of range", `{"temperature":40,"hydration_level":6,"skin_condition":1}`, "hydration"},
		{"skin out of range", `{"temperature":40,"hydration_level":3,"skin_condition":0}`, "skin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestRouter(t, newMockService())
			rec := do(r, http.MethodPost, "/api/v1/triage", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var body map[string]string
			_ = json.NewDecoder(rec.Body).Decode(&body)
			if !strings.Contains(body["error"], tt.want) {
				t.Errorf("error = %q, want substring %q", body["error"], tt.want)
			}
		})
	}
}

func TestHandleTriage_SetupErrorIs500(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	svc.triageErr = fmt.Errorf("classify: %w", classifier.ErrModelNotTrained)
	r := newTestRouter(t, svc)

	rec := do(r, http.MethodPost, "/api/v1/triage", `{"temperature":40,"hydration_level":3,"skin_condition":1}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "not trained") {
		t.Error("internal error detail leaked to client")
	}
}

// Get

func TestHandleGetTriage(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	svc.results["01ABC"] = &triage.Result{ID: "01ABC", Outcome: triage.Outcome{Urgency: label.Low}}
	r := newTestRouter(t, svc)

	rec := do(r, http.MethodGet, "/api/v1/triage/01ABC", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got triage.Result
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "01ABC" || got.Outcome.Urgency != label.Low {
		t.Errorf("result = %+v", got)
	}
}

func TestHandleGetTriage_StoreError(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	svc.getErr = errors.New("connection refused")
	r := newTestRouter(t, svc)

	rec := do(r, http.MethodGet, "/api/v1/triage/x", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// List

func TestHandleListTriage_Limit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"", http.StatusOK, triage.DefaultListLimit},
		{"?limit=10", http.StatusOK, 10},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
		{"?limit=100000", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()

			svc := newMockService()
			r := newTestRouter(t, svc)
			rec := do(r, http.MethodGet, "/api/v1/triage"+tt.query, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if svc.lastLimit != tt.wantLimit {
					t.Errorf("limit = %d, want %d", svc.lastLimit, tt.wantLimit)
				}
				var body struct {
					Results []json.RawMessage `json:"results"`
				}
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Results == nil {
					t.Error("expected an empty array, not null")
				}
			}
		})
	}
}

func TestHandleListTriage_Error(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	svc.listErr = errors.New("boom")
	rec := do(newTestRouter(t, svc), http.MethodGet, "/api/v1/triage", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// Model

func TestHandleModel(t *testing.T) {
	t.Parallel()

	examples := []training.Example{
		{Record: vitals.Record{Temperature: 45, HydrationLevel: 1, SkinCondition: 2, Dizziness: true}, Urgency: label.High},
		{Record: vitals.Record{Temperature: 38, HydrationLevel: 4, SkinCondition: 1}, Urgency: label.Low},
		{Record: vitals.Record{Temperature: 50, HydrationLevel: 1, SkinCondition: 3, Dizziness: true}, Urgency: label.High},
		{Record: vitals.Record{Temperature: 42, HydrationLevel: 2, SkinCondition: 2, Dizziness: true}, Urgency: label.Medium},
		{Record: vitals.Record{Temperature: 39, HydrationLevel: 3, SkinCondition: 1}, Urgency: label.Low},
		{Record: vitals.Record{Temperature: 47, HydrationLevel: 1, SkinCondition: 3, Dizziness: true}, Urgency: label.High},
	}
	b, err := training.Train(examples, classifier.DefaultOptions())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	api := New(nil, newMockService(), ModelInfoFromBundle(b))
	r := chi.NewRouter()
	api.RegisterRoutes(r)

	rec := do(r, http.MethodGet, "/api/v1/model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got ModelInfo
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Classes) != 3 || got.Classes[0] != label.High {
		t.Errorf("classes = %v", got.Classes)
	}
	if len(got.Features) != vitals.NumFeatures {
		t.Errorf("features = %v", got.Features)
	}
	if got.Examples != 6 || got.Options.MaxDepth != 3 {
		t.Errorf("info = %+v", got)
	}
	if got.Report == nil {
		t.Error("expected evaluation report")
	}
}

// Language

func TestHandleGetTriage_Spanish(t *testing.T) {
	t.Parallel()

	svc := newMockService()
	stored := &triage.Result{ID: "01ABC", Outcome: triage.Outcome{
		Urgency:         label.High,
		Recommendations: triage.Recommendations(label.High),
		Language:        locale.English,
	}}
	svc.results["01ABC"] = stored
	r := newTestRouter(t, svc)
	t.Cleanup(func() {
		if stored.Outcome.Language != locale.English || stored.Outcome.Recommendations[0] != "Call emergency services immediately" {
			t.Errorf("stored result mutated: %+v", stored.Outcome)
		}
	})

	tests := []struct {
		name   string
		path   string
		accept string
		want   locale.Lang
	}{
		{"default", "/api/v1/triage/01ABC", "", locale.English},
		{"query", "/api/v1/triage/01ABC?lang=es", "", locale.Spanish},
		{"header", "/api/v1/triage/01ABC", "es-MX,es;q=0.9", locale.Spanish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var got triage.Result
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			want := triage.RecommendationsIn(label.High, tt.want)
			if got.Outcome.Language != tt.want || len(got.Outcome.Recommendations) != len(want) || got.Outcome.Recommendations[0] != want[0] {
				t.Errorf("outcome = %+v, want %s steps", got.Outcome, tt.want)
			}
		})
	}
}

// Assessments

func TestHandleGetAssessment_Spanish(t *testing.T) {
	t.Parallel()

	rec := do(newTestRouter(t, newMockService()), http.MethodGet, "/api/v1/assessments/heat-exhaustion?lang=es", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got assessment.View
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != assessment.HeatExhaustion || got.Language != locale.Spanish || len(got.Questions) != 5 {
		t.Fatalf("view = %+v", got)
	}
	if got.Questions[1].Prompt != "¿Cuánto está sudando?" {
		t.Errorf("prompt = %q", got.Questions[1].Prompt)
	}
}

func TestHandleListAssessments(t *testing.T) {
	t.Parallel()

	rec := do(newTestRouter(t, newMockService()), http.MethodGet, "/api/v1/assessments", "")
	var body struct {
		Assessments []assessment.View `json:"assessments"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Assessments) != 2 || body.Assessments[0].ID != assessment.Dehydration {
		t.Errorf("assessments = %+v", body.Assessments)
	}
}

func TestHandleScoreAssessment(t *testing.T) {
	t.Parallel()

	severe := `{"answers":{"thirst":3,"urination":3,"mouth":2,"skin":2,"energy":2}}`

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantTier   string
	}{
		{"severe", "/api/v1/assessments/dehydration", severe, http.StatusOK, "severe"},
		{"mild", "/api/v1/assessments/dehydration", `{"answers":{"thirst":1,"urination":0,"mouth":1,"skin":0,"energy":0}}`, http.StatusOK, "mild"},
		{"missing answer", "/api/v1/assessments/dehydration", `{"answers":{"thirst":3}}`, http.StatusBadRequest, ""},
		{"bad value", "/api/v1/assessments/dehydration", `{"answers":{"thirst":9,"urination":3,"mouth":2,"skin":2,"energy":2}}`, http.StatusBadRequest, ""},
		{"unknown field", "/api/v1/assessments/dehydration", `{"answers":{},"score":15}`, http.StatusBadRequest, ""},
		{"malformed", "/api/v1/assessments/dehydration", `{"answers":`, http.StatusBadRequest, ""},
		{"unknown questionnaire", "/api/v1/assessments/sunburn", severe, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := do(newTestRouter(t, newMockService()), http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantTier == "" {
				return
			}
			var got assessment.Result
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Tier != tt.wantTier || len(got.Recommendations) == 0 {
				t.Errorf("result = %+v", got)
			}
		})
	}
}

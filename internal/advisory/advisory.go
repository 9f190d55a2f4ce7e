// Package advisory turns a symptom summary into narrative first-aid guidance
// by calling an external generative-text backend.
//
// The backend is treated as unreliable. Every failure is reported as one of
// ErrEmptyCompletion, ErrMalformedResponse or ErrServiceUnavailable so callers
// can choose a policy per kind.
package advisory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

var (
	// ErrEmptyCompletion means the backend answered with no usable completion.
	ErrEmptyCompletion = errors.New("advisory: empty completion")

	// ErrMalformedResponse means the first completion carried no text field.
	ErrMalformedResponse = errors.New("advisory: malformed response")

	// ErrServiceUnavailable covers transport failures, timeouts, auth failures and rate limits.
	ErrServiceUnavailable = errors.New("advisory: service unavailable")

	// ErrInvalidConfig is returned when a request is made with an invalid Config.
	ErrInvalidConfig = errors.New("advisory: invalid config")
)

// Config selects the backend model and sampling for one request. There are
// no implicit defaults; every field must be set.
type Config struct {
	ModelName   string        `json:"model_name"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// Validate checks every field.
func (c Config) Validate() error {
	var errs []error
	if c.ModelName == "" {
		errs = append(errs, errors.New("model name is required"))
	}
	if c.Temperature < 0 || c.Temperature > 1 || math.IsNaN(c.Temperature) {
		errs = append(errs, fmt.Errorf("temperature %v out of range [0,1]", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max tokens %d must be positive", c.MaxTokens))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout %v must be positive", c.Timeout))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Request is the backend-neutral prompt.
type Request struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	ModelName   string  `json:"model_name"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Completion is one candidate answer. HasText is false when the backend
// returned a candidate without a text payload (tool call, refusal block, null content).
type Completion struct {
	Text         string
	HasText      bool
	FinishReason string
}

// Usage is token accounting reported by the backend, zero when unknown.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Completions is a backend answer.
type Completions struct {
	Items []Completion
	Model string
	Usage Usage
}

// Backend is any generative-text service.
type Backend interface {
	Generate(ctx context.Context, req *Request) (*Completions, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, req *Request) (*Completions, error)

// Generate implements Backend.
func (f BackendFunc) Generate(ctx context.Context, req *Request) (*Completions, error) {
	return f(ctx, req)
}

// ServiceError is a backend transport or HTTP-level failure. It matches
// ErrServiceUnavailable.
type ServiceError struct {
	Backend    string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches ErrServiceUnavailable.
func (e *ServiceError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

// Temporary reports whether retrying might succeed: transport errors,
// request timeouts, rate limits and 5xx.
func (e *ServiceError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// Unavailable wraps err as a ServiceError for the named backend.
func Unavailable(backend string, status int, err error) error {
	return &ServiceError{Backend: backend, StatusCode: status, Err: err}
}

// Error kinds reported by Kind.
const (
	KindEmptyCompletion    = "empty_completion"
	KindMalformedResponse  = "malformed_response"
	KindServiceUnavailable = "service_unavailable"
	KindInvalidConfig      = "invalid_config"
	KindOther              = "error"
)

// Kind classifies err into a stable label. It returns "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCompletion):
		return KindEmptyCompletion
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrServiceUnavailable):
		return KindServiceUnavailable
	case errors.Is(err, ErrInvalidConfig):
		return KindInvalidConfig
	default:
		return KindOther
	}
}

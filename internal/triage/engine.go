package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/oasis/internal/advisory"
	"github.com/linnemanlabs/oasis/internal/classifier"
	"github.com/linnemanlabs/oasis/internal/label"
	"github.com/linnemanlabs/oasis/internal/locale"
	"github.com/linnemanlabs/oasis/internal/vitals"
)

var tracer = otel.Tracer("github.com/linnemanlabs/oasis/internal/triage")

// Predictor maps a feature vector to a label code. *classifier.Model implements it.
type Predictor interface {
	Predict(fv vitals.FeatureVector) (int, error)
}

// Decoder maps a label code back to an urgency. *label.Codec implements it.
type Decoder interface {
	Decode(code int) (label.Urgency, error)
}

// Advisor produces narrative advice. *advisory.Requester implements it.
type Advisor interface {
	RequestAdvice(ctx context.Context, summary string, cfg advisory.Config) (*advisory.Response, error)
}

// Failure stages reported to EngineHooks.OnFailure.
const (
	StageVitals   = "vitals"
	StageClassify = "classify"
	StageDecode   = "decode"
)

// CompleteEvent describes a finished triage for metrics.
type CompleteEvent struct {
	Urgency     label.Urgency
	AdviceError string
	Duration    float64
}

// EngineHooks lets callers observe engine events without coupling to a metrics library.
type EngineHooks struct {
	OnComplete func(e *CompleteEvent)
	OnFailure  func(stage string)
}

// Engine runs classification then advice for one record. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	model   Predictor
	codec   Decoder
	advisor Advisor
	cfg     advisory.Config
	logger  log.Logger
	hooks   EngineHooks
}

// NewEngine creates an Engine. A nil advisor disables advice; outcomes then
// carry AdviceUnavailable with AdviceDisabled as the error kind.
func NewEngine(model Predictor, codec Decoder, advisor Advisor, cfg advisory.Config, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		model:   model,
		codec:   codec,
		advisor: advisor,
		cfg:     cfg,
		logger:  logger,
		hooks:   hooks,
	}
}

// Triage classifies r and requests advice for it. Invalid vitals and setup
// errors (untrained model, missing or mismatched codec) are returned before
// any advisory call. Advisory failures never fail the triage.
func (e *Engine) Triage(ctx context.Context, r vitals.Record) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "triage.Triage", trace.WithAttributes(
		attribute.Float64("oasis.vitals.temperature", r.Temperature),
		attribute.Int("oasis.vitals.hydration_level", r.HydrationLevel),
		attribute.Int("oasis.vitals.skin_condition", r.SkinCondition),
		attribute.Bool("oasis.vitals.dizziness", r.Dizziness),
	))
	defer span.End()

	start := time.Now()

	fv, err := vitals.Build(r)
	if err != nil {
		return nil, e.fail(ctx, span, StageVitals, fmt.Errorf("build features: %w", err))
	}

	if e.model == nil {
		return nil, e.fail(ctx, span, StageClassify, classifier.ErrModelNotTrained)
	}
	code, err := e.model.Predict(fv)
	if err != nil {
		return nil, e.fail(ctx, span, StageClassify, fmt.Errorf("classify: %w", err))
	}

	if e.codec == nil {
		return nil, e.fail(ctx, span, StageDecode, label.ErrCodecNotInitialized)
	}
	urgency, err := e.codec.Decode(code)
	if err != nil {
		return nil, e.fail(ctx, span, StageDecode, fmt.Errorf("decode label: %w", err))
	}
	span.SetAttributes(attribute.String("oasis.triage.urgency", string(urgency)))

	out := &Outcome{
		Urgency:         urgency,
		Summary:         summarize(r, urgency),
		Recommendations: Recommendations(urgency),
		Language:        locale.English,
	}
	e.advise(ctx, out)

	span.SetAttributes(attribute.Bool("oasis.advice.available", out.AdviceAvailable))
	if out.AdviceError != "" {
		span.SetAttributes(attribute.String("oasis.advice.error", out.AdviceError))
	}

	if e.hooks.OnComplete != nil {
		e.hooks.OnComplete(&CompleteEvent{
			Urgency:     urgency,
			AdviceError: out.AdviceError,
			Duration:    time.Since(start).Seconds(),
		})
	}
	return out, nil
}

// summarize is the advisory input: the predicted tier followed by the vitals.
func summarize(r vitals.Record, u label.Urgency) string {
	return "predicted urgency: " + string(u) + "; " + vitals.Describe(r)
}

func (e *Engine) advise(ctx context.Context, out *Outcome) {
	if e.advisor == nil {
		out.Advice = AdviceUnavailable
		out.AdviceError = AdviceDisabled
		return
	}

	resp, err := e.advisor.RequestAdvice(ctx, out.Summary, e.cfg)
	if err != nil {
		out.Advice = AdviceUnavailable
		out.AdviceError = advisory.Kind(err)
		out.Prompt = advisory.BuildRequest(out.Summary, e.cfg)
		e.logger.Warn(ctx, "advice unavailable, returning classification only",
			"urgency", out.Urgency,
			"kind", out.AdviceError,
			"error", err,
		)
		return
	}

	out.Advice = resp.Text
	out.AdviceAvailable = true
	out.Prompt = resp.Prompt
	out.Model = resp.Model
	out.Usage = resp.Usage
	out.AdviceDuration = resp.Duration
}

func (e *Engine) fail(ctx context.Context, span trace.Span, stage string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("oasis.triage.failed_stage", stage))

	if stage == StageVitals {
		e.logger.Warn(ctx, "rejected vitals", "error", err)
	} else {
		e.logger.Error(ctx, err, "triage setup failure", "stage", stage)
	}
	if e.hooks.OnFailure != nil {
		e.hooks.OnFailure(stage)
	}
	return err
}

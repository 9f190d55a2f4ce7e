package advisory

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/linnemanlabs/go-core/log"
)

// RetryPolicy configures WithRetry. MaxTries counts the first attempt.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Logger          log.Logger
}

// DefaultRetryPolicy is three attempts starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxTries:        3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

type retrying struct {
	next   Backend
	policy RetryPolicy
}

// WithRetry wraps next so temporary service failures are retried with
// exponential backoff. Empty and malformed completions are returned at once:
// the same prompt is likely to produce the same answer again. The retries
// share the caller's context, so Config.Timeout bounds the whole sequence.
func WithRetry(next Backend, p RetryPolicy) Backend {
	if p.MaxTries <= 1 {
		return next
	}
	if p.Logger == nil {
		p.Logger = log.Nop()
	}
	return &retrying{next: next, policy: p}
}

func (r *retrying) Generate(ctx context.Context, req *Request) (*Completions, error) {
	attempt := 0
	op := func() (*Completions, error) {
		attempt++
		out, err := r.next.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		if retryable(err) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	eb := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		eb.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		eb.MaxInterval = r.policy.MaxInterval
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(r.policy.MaxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.policy.Logger.Warn(ctx, "advisory backend failed, retrying",
				"attempt", attempt,
				"wait", wait.String(),
				"error", err,
			)
		}),
	)
}

func retryable(err error) bool {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return errors.Is(err, ErrServiceUnavailable)
}

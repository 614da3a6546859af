package collection

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/viant/agentvec/vector"
)

// RetryPolicy bounds every service call.
type RetryPolicy struct {
	// Timeout applies to each attempt; zero disables it.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	// Backoff is the base of the Fibonacci backoff between attempts.
	Backoff time.Duration
}

// DefaultRetryPolicy allows three retries with 30s attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Timeout: 30 * time.Second, MaxRetries: 3, Backoff: 500 * time.Millisecond}
}

// Resilient wraps a vector.Service with a per-call timeout and bounded retry
// of transient failures (see vector.Retryable). Logical errors and write
// failures are returned on the first occurrence.
type Resilient struct {
	svc    vector.Service
	policy RetryPolicy
	logger *slog.Logger
}

// NewResilient wraps svc.
func NewResilient(svc vector.Service, policy RetryPolicy, opts ...Option) *Resilient {
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultRetryPolicy().Backoff
	}
	return &Resilient{svc: svc, policy: policy, logger: newOptions(opts).logger}
}

func (r *Resilient) Exists(ctx context.Context, name string) (ok bool, err error) {
	err = r.do(ctx, "exists", name, func(ctx context.Context) error {
		ok, err = r.svc.Exists(ctx, name)
		return err
	})
	return ok, err
}

func (r *Resilient) Create(ctx context.Context, schema *vector.Schema) error {
	return r.do(ctx, "create", schema.Name, func(ctx context.Context) error {
		return r.svc.Create(ctx, schema)
	})
}

func (r *Resilient) Insert(ctx context.Context, name string, records []vector.Record) (ids []string, err error) {
	err = r.do(ctx, "insert", name, func(ctx context.Context) error {
		ids, err = r.svc.Insert(ctx, name, records)
		return err
	})
	return ids, err
}

func (r *Resilient) BuildIndex(ctx context.Context, name string, params vector.IndexParams) error {
	return r.do(ctx, "build index", name, func(ctx context.Context) error {
		return r.svc.BuildIndex(ctx, name, params)
	})
}

func (r *Resilient) Load(ctx context.Context, name string) error {
	return r.do(ctx, "load", name, func(ctx context.Context) error {
		return r.svc.Load(ctx, name)
	})
}

func (r *Resilient) Search(ctx context.Context, name string, query []float32, k int, params vector.SearchParams) (matches []vector.Match, err error) {
	err = r.do(ctx, "search", name, func(ctx context.Context) error {
		matches, err = r.svc.Search(ctx, name, query, k, params)
		return err
	})
	return matches, err
}

func (r *Resilient) do(ctx context.Context, op, name string, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(r.policy.MaxRetries, retry.NewFibonacci(r.policy.Backoff))
	attempt := 0
	var last error
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if r.policy.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, r.policy.Timeout)
		}
		defer cancel()
		err := fn(callCtx)
		if err == nil || !vector.Retryable(err) || ctx.Err() != nil {
			return err
		}
		last = err
		r.logger.Warn("retrying", "op", op, "collection", name, "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	// cancelled while backing off: report the failure that caused the wait
	if err != nil && last != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return last
	}
	return err
}

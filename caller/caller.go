package caller

import (
	"context"
	stderrors "errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/steamlens/cache"
	"github.com/kbukum/steamlens/dispatch"
	"github.com/kbukum/steamlens/errors"
	"github.com/kbukum/steamlens/httpclient"
	"github.com/kbukum/steamlens/logger"
	"github.com/kbukum/steamlens/observability"
	"github.com/kbukum/steamlens/resilience"
)

// Payload is a decoded JSON object returned by the upstream.
type Payload = map[string]any

// Transport performs one upstream GET. For a non-2xx status it returns the
// response together with an *httpclient.Error.
type Transport interface {
	Get(ctx context.Context, endpoint string, query map[string]string) (*httpclient.Response, error)
}

// Caller is the resilient access path to one upstream. It is long-lived and
// safe for concurrent use.
type Caller struct {
	cfg       Config
	transport Transport
	log       *logger.Logger
	tracer    trace.Tracer

	api   *cache.Cache[Payload]
	tool  *cache.Cache[any]
	guide *cache.Cache[any]

	bucket     *resilience.TokenBucket
	breaker    *resilience.CircuitBreaker
	dispatcher *dispatch.Dispatcher

	group singleflight.Group
	calls counters
}

// New creates a Caller that sends requests through transport.
func New(transport Transport, cfg Config) *Caller {
	cfg.ApplyDefaults()
	c := &Caller{
		transport: transport,
		log:       cfg.Logger.WithComponent("caller").WithFields(logger.Fields(logger.FieldUpstream, cfg.Upstream)),
		tracer:    cfg.Tracer,
	}
	if c.tracer == nil {
		c.tracer = observability.Tracer("github.com/kbukum/steamlens/caller")
	}

	userHook := cfg.Breaker.OnStateChange
	cfg.Breaker.OnStateChange = func(name string, from, to resilience.State) {
		c.log.Warn("circuit breaker state changed", logger.Fields("from", from.String(), logger.FieldState, to.String()))
		cfg.Metrics.BreakerTransition(from, to)
		if userHook != nil {
			userHook(name, from, to)
		}
	}
	cfg.Retry.OnRetry = chainOnRetry(cfg.Retry.OnRetry, func(attempt int, err error, delay time.Duration) {
		c.log.Warn("upstream call failed, retrying", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"delay_ms", delay.Milliseconds(),
		))
	})
	c.cfg = cfg

	c.api = cache.New[Payload](cfg.Caches.API)
	c.tool = cache.New[any](cfg.Caches.Tool)
	c.guide = cache.New[any](cfg.Caches.Guide)
	c.bucket = resilience.NewTokenBucket(cfg.Bucket)
	c.breaker = resilience.NewCircuitBreaker(cfg.Breaker)
	c.dispatcher = dispatch.New(cfg.Dispatch)
	return c
}

// Invoke calls endpoint with params through the cache, the token bucket, the
// circuit breaker and the retry policy, in that order.
//
// It returns the decoded payload on success, (nil, nil) when the upstream
// answered with a definitive client error, or an *errors.AppError with code
// RATE_LIMITED, CIRCUIT_OPEN, UPSTREAM_FAILURE or TIMEOUT.
func (c *Caller) Invoke(ctx context.Context, endpoint string, params Params) (Payload, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, observability.SpanInvoke, trace.WithAttributes(
		attribute.String(observability.AttrUpstream, c.cfg.Upstream),
		attribute.String(observability.AttrEndpoint, endpoint),
	))
	defer span.End()

	key := Key(endpoint, params)
	if v, ok := c.api.Get(key); ok {
		span.SetAttributes(attribute.Bool(observability.AttrCacheHit, true))
		c.finish(span, OutcomeCacheHit, start)
		return v, nil
	}
	span.SetAttributes(attribute.Bool(observability.AttrCacheHit, false))

	var (
		payload Payload
		err     error
	)
	if c.cfg.Coalesce {
		payload, err = c.coalesced(ctx, key, endpoint, params)
	} else {
		payload, err = c.fetch(ctx, key, endpoint, params)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.finish(span, outcomeOf(err), start)
		return nil, err
	}
	if payload == nil {
		c.finish(span, OutcomeEmpty, start)
		return nil, nil
	}
	c.finish(span, OutcomeSuccess, start)
	return payload, nil
}

// coalesced shares one fetch between concurrent misses for key. The shared
// fetch does not inherit the first caller's cancellation; each caller stops
// waiting on its own context.
func (c *Caller) coalesced(ctx context.Context, key, endpoint string, params Params) (Payload, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx), key, endpoint, params)
	})
	select {
	case res := <-ch:
		payload, _ := res.Val.(Payload)
		return payload, res.Err
	case <-ctx.Done():
		return nil, errors.Timeout("invoke", ctx.Err())
	}
}

// fetch performs the uncached part of Invoke and stores a successful payload.
func (c *Caller) fetch(ctx context.Context, key, endpoint string, params Params) (Payload, error) {
	c.log.Debug("cache miss", logger.Fields(logger.FieldEndpoint, endpoint, logger.FieldCacheKey, key))
	if err := c.acquire(ctx); err != nil {
		return nil, err
	}

	query := params.query()
	var payload Payload
	err := c.breaker.Execute(func() error {
		p, err := resilience.Retry(ctx, c.cfg.Retry, func(ctx context.Context) (Payload, error) {
			return c.attempt(ctx, endpoint, query)
		})
		payload = p
		return err
	})
	if err != nil {
		return nil, c.boundaryError(err)
	}
	if payload != nil {
		c.api.Set(key, payload)
	}
	return payload, nil
}

// acquire takes one token, sleeping between tries for at most
// min(WaitTime, TokenWait.MaxWait).
func (c *Caller) acquire(ctx context.Context) error {
	attempts := c.cfg.TokenWait.Attempts
	for i := 0; i < attempts; i++ {
		if c.bucket.Allow() {
			return nil
		}
		if i == attempts-1 {
			break
		}
		wait := min(c.bucket.WaitTime(), c.cfg.TokenWait.MaxWait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Timeout("rate limit wait", ctx.Err())
		case <-timer.C:
		}
	}
	c.log.Warn("rate limit exceeded", logger.Fields("attempts", attempts))
	return errors.RateLimited(c.cfg.Upstream)
}

// attempt performs one upstream request and classifies the result.
func (c *Caller) attempt(ctx context.Context, endpoint string, query map[string]string) (Payload, error) {
	resp, err := c.transport.Get(ctx, endpoint, query)
	if err != nil {
		c.cfg.Metrics.ObserveAttempt(httpclient.StatusCode(err), httpclient.IsRetryable(err))
		if httpclient.IsDefinitive(err) {
			c.log.Debug("upstream answered without a result", logger.Fields(logger.FieldEndpoint, endpoint, logger.FieldStatus, httpclient.StatusCode(err)))
			return nil, nil
		}
		return nil, err
	}
	c.cfg.Metrics.ObserveAttempt(resp.StatusCode, false)
	if resp.IsEmpty() {
		return nil, nil
	}

	var payload Payload
	if err := resp.DecodeJSON(&payload); err != nil {
		// A truncated or garbled body is treated like a transient server fault.
		return nil, &httpclient.Error{
			StatusCode: resp.StatusCode,
			Code:       httpclient.ErrCodeServer,
			Message:    "malformed JSON body",
			Retryable:  true,
			Err:        err,
		}
	}
	return payload, nil
}

// boundaryError converts an internal failure into the AppError returned by Invoke.
func (c *Caller) boundaryError(err error) error {
	var openErr *resilience.OpenError
	switch {
	case stderrors.As(err, &openErr):
		return errors.CircuitOpen(c.cfg.Upstream, openErr.RetryIn).WithCause(err)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout("invoke", err)
	default:
		c.log.Warn("upstream call failed", logger.Fields(logger.FieldError, err.Error()))
		return errors.UpstreamFailure(c.cfg.Upstream, err)
	}
}

func (c *Caller) finish(span trace.Span, outcome string, start time.Time) {
	span.SetAttributes(attribute.String(observability.AttrOutcome, outcome))
	c.calls.record(outcome)
	c.cfg.Metrics.ObserveInvoke(outcome, time.Since(start))
}

func outcomeOf(err error) string {
	switch {
	case errors.HasCode(err, errors.ErrCodeRateLimited):
		return OutcomeRateLimited
	case errors.HasCode(err, errors.ErrCodeCircuitOpen):
		return OutcomeCircuitOpen
	case errors.HasCode(err, errors.ErrCodeTimeout):
		return OutcomeCancelled
	default:
		return OutcomeFailure
	}
}

func chainOnRetry(user, own func(int, error, time.Duration)) func(int, error, time.Duration) {
	if user == nil {
		return own
	}
	return func(attempt int, err error, delay time.Duration) {
		own(attempt, err, delay)
		user(attempt, err, delay)
	}
}

// Tasks builds dispatcher tasks that Invoke each named call.
func (c *Caller) Tasks(calls map[string]Call) []dispatch.Task {
	tasks := make([]dispatch.Task, 0, len(calls))
	for name, call := range calls {
		tasks = append(tasks, dispatch.Task{
			Name: name,
			Run: func(ctx context.Context) (any, error) {
				p, err := c.Invoke(ctx, call.Endpoint, call.Params)
				if err != nil || p == nil {
					// Keep Value a nil interface for empty results.
					return nil, err
				}
				return p, nil
			},
		})
	}
	return tasks
}

// Call is one named upstream call for InvokeAll.
type Call struct {
	Endpoint string
	Params   Params
}

// InvokeAll runs independent calls concurrently through the dispatcher.
func (c *Caller) InvokeAll(ctx context.Context, calls map[string]Call) map[string]dispatch.Outcome {
	return c.dispatcher.ExecuteParallel(ctx, c.Tasks(calls))
}

// APICache returns the upstream response cache.
func (c *Caller) APICache() *cache.Cache[Payload] { return c.api }

// ToolCache returns the cache for derived tool results.
func (c *Caller) ToolCache() *cache.Cache[any] { return c.tool }

// GuideCache returns the cache for long-lived guide content.
func (c *Caller) GuideCache() *cache.Cache[any] { return c.guide }

// Breaker returns the circuit breaker guarding the upstream.
func (c *Caller) Breaker() *resilience.CircuitBreaker { return c.breaker }

// Bucket returns the token bucket.
func (c *Caller) Bucket() *resilience.TokenBucket { return c.bucket }

// Dispatcher returns the dispatcher used by InvokeAll.
func (c *Caller) Dispatcher() *dispatch.Dispatcher { return c.dispatcher }

// ClearCaches empties all three cache tiers.
func (c *Caller) ClearCaches() {
	c.api.Clear()
	c.tool.Clear()
	c.guide.Clear()
	c.log.Info("caches cleared")
}

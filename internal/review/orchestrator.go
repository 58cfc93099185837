package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finch-review/finch/internal/core"
	"github.com/finch-review/finch/internal/llm"
)

// Retry budget and backoff schedules. Parse failures, validation failures and
// transient server errors share one counter; rate limits get their own,
// longer schedule on an independent counter.
const (
	maxAttempts         = 8
	maxRateLimitRetries = 5
	baseBackoff         = 3 * time.Second
	rateLimitBase       = 8 * time.Second
	maxBackoffShift     = 3
)

// GenericBackoff returns the delay after the generic-retry attempt with the
// given index: 3s, 6s, 12s, then capped at 24s.
func GenericBackoff(attempt int) time.Duration {
	return baseBackoff * (1 << min(attempt, maxBackoffShift))
}

// RateLimitBackoff returns the delay after the rate-limit retry with the
// given index: 8s, 16s, 32s, 64s, 128s.
func RateLimitBackoff(attempt int) time.Duration {
	return rateLimitBase * (1 << attempt)
}

// SleepFunc waits for d or until the context is cancelled. Injectable so
// backoff tests never actually sleep.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryState tracks one generation call's progress across the retry loop.
// It lives only for the duration of the call and is never persisted.
type retryState struct {
	attempt          int // generic retry counter: parse, validation, server errors
	rateLimitRetries int
	retries          int // total waits performed, for the envelope
	lastRaw          string
	validationErrors []string
}

// Orchestrator issues model requests and applies the layered retry policy,
// producing one self-consistent envelope per pull request event. It holds no
// mutable state across calls and is safe for concurrent use.
type Orchestrator struct {
	client  llm.Client
	prompts *llm.PromptManager
	logger  *slog.Logger
	sleep   SleepFunc
	now     func() time.Time
}

// NewOrchestrator creates an orchestrator with the real clock and sleeper.
func NewOrchestrator(client llm.Client, prompts *llm.PromptManager, logger *slog.Logger) *Orchestrator {
	if client == nil {
		panic("model client cannot be nil")
	}
	if prompts == nil {
		panic("prompt manager cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Orchestrator{
		client:  client,
		prompts: prompts,
		logger:  logger,
		sleep:   sleepContext,
		now:     time.Now,
	}
}

// GenerateReview runs the full request/parse/validate retry loop for one pull
// request and returns the resulting envelope.
//
// A successful parse short-circuits all remaining retries. Exhausting the
// budget is a degraded success: fallback comments are synthesized and the
// envelope is returned with Metadata.Success=false but no error, so a
// complete, postable review is still produced. Only fatal pre-flight
// conditions (open breaker, bad credentials, malformed request) surface as a
// returned error, and those carry no fallback comments because they are
// configuration problems, not content problems.
func (o *Orchestrator) GenerateReview(ctx context.Context, pr *core.PRContext, cfg *core.RepoReviewConfig, breaker *CircuitBreaker) (*core.Envelope, error) {
	env := &core.Envelope{
		ID:        uuid.NewString(),
		StartedAt: o.now(),
	}

	if breaker != nil && !breaker.Allow(env.StartedAt) {
		err := llm.NewClassifiedError(llm.KindFatal, errors.New("model circuit breaker is open"))
		return o.finishFatal(env, err), err
	}

	messages, err := llm.BuildReviewMessages(o.prompts, pr, cfg.MaxCommentsPerReview)
	if err != nil {
		cerr := llm.NewClassifiedError(llm.KindFatal, fmt.Errorf("rendering prompts: %w", err))
		return o.finishFatal(env, cerr), cerr
	}

	req := llm.Request{
		Model:        cfg.Model,
		Messages:     messages,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		JSONResponse: true,
	}

	st := &retryState{}
	for {
		outcome, err := o.attempt(ctx, req, st, env)
		switch outcome {
		case attemptSucceeded:
			if breaker != nil {
				breaker.RecordSuccess()
			}
			return o.finish(env, st, true, ""), nil

		case attemptFatal:
			if breaker != nil {
				breaker.RecordFailure(o.now())
			}
			return o.finishFatal(env, err), err

		case attemptRateLimited:
			if st.rateLimitRetries >= maxRateLimitRetries {
				return o.exhaust(env, st, pr, breaker), nil
			}
			delay := RateLimitBackoff(st.rateLimitRetries)
			st.rateLimitRetries++
			st.retries++
			o.logger.Warn("model API rate limited, backing off",
				"pr", pr.Number,
				"delay", delay,
				"rate_limit_retry", st.rateLimitRetries,
			)
			if err := o.sleep(ctx, delay); err != nil {
				cerr := llm.NewClassifiedError(llm.KindFatal, err)
				return o.finishFatal(env, cerr), cerr
			}

		case attemptRetryable:
			st.attempt++
			if st.attempt >= maxAttempts {
				return o.exhaust(env, st, pr, breaker), nil
			}
			delay := GenericBackoff(st.attempt - 1)
			st.retries++
			o.logger.Warn("model attempt failed, retrying",
				"pr", pr.Number,
				"attempt", st.attempt,
				"delay", delay,
			)
			if err := o.sleep(ctx, delay); err != nil {
				cerr := llm.NewClassifiedError(llm.KindFatal, err)
				return o.finishFatal(env, cerr), cerr
			}
		}
	}
}

type attemptOutcome int

const (
	attemptSucceeded attemptOutcome = iota
	attemptRetryable
	attemptRateLimited
	attemptFatal
)

// attempt performs one call against the model and classifies the result.
func (o *Orchestrator) attempt(ctx context.Context, req llm.Request, st *retryState, env *core.Envelope) (attemptOutcome, error) {
	resp, err := o.client.Complete(ctx, req)
	if err != nil {
		switch llm.KindOf(err) {
		case llm.KindRateLimited:
			return attemptRateLimited, err
		case llm.KindFatal:
			return attemptFatal, err
		default:
			st.validationErrors = append(st.validationErrors, err.Error())
			return attemptRetryable, err
		}
	}

	st.lastRaw = resp.Content
	env.Raw = resp.Content

	jsonStr, ok := ExtractValidJSON(resp.Content)
	if !ok {
		st.validationErrors = append(st.validationErrors, "response was not parseable as JSON after recovery")
		return attemptRetryable, nil
	}

	parsed, problems := DecodeReview(jsonStr)
	if parsed == nil {
		st.validationErrors = append(st.validationErrors, problems...)
		return attemptRetryable, nil
	}

	env.Parsed = parsed
	return attemptSucceeded, nil
}

// exhaust marks the envelope as a degraded success: the retry budget ran out,
// so fallback comments stand in for the model's output.
func (o *Orchestrator) exhaust(env *core.Envelope, st *retryState, pr *core.PRContext, breaker *CircuitBreaker) *core.Envelope {
	if breaker != nil {
		breaker.RecordFailure(o.now())
	}
	env.FallbackComments = GenerateFallbackComments(st.lastRaw, pr.ChangedFiles)
	env.Metadata.UsedFallback = true
	o.logger.Error("retry budget exhausted, falling back to synthesized comments",
		"pr", pr.Number,
		"attempts", st.attempt,
		"rate_limit_retries", st.rateLimitRetries,
	)
	return o.finish(env, st, false, "retry budget exhausted without a valid response")
}

func (o *Orchestrator) finish(env *core.Envelope, st *retryState, success bool, errMsg string) *core.Envelope {
	env.ValidationErrors = st.validationErrors
	env.Metadata.Success = success
	env.Metadata.Error = errMsg
	env.Metadata.RetryCount = st.retries
	env.FinishedAt = o.now()
	env.Metadata.AnalysisTime = env.FinishedAt.Sub(env.StartedAt)
	return env
}

func (o *Orchestrator) finishFatal(env *core.Envelope, err error) *core.Envelope {
	env.Metadata.Success = false
	env.Metadata.Error = err.Error()
	env.FinishedAt = o.now()
	env.Metadata.AnalysisTime = env.FinishedAt.Sub(env.StartedAt)
	return env
}

// WithSleeper replaces the backoff sleeper. Intended for tests.
func (o *Orchestrator) WithSleeper(sleep SleepFunc) *Orchestrator {
	o.sleep = sleep
	return o
}

// WithClock replaces the clock. Intended for tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Package submit bridges the registry's logical operations to the execution
// medium: it builds calls, allocates nonces, estimates cost, submits, and
// retries transient failures. Logical rejections (validation, state conflict,
// authorization) propagate unchanged and are never retried.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"
)

const (
	defaultMaxAttempts  = 3
	defaultBackoff      = 2 * time.Second
	defaultTimeout      = 30 * time.Second
	defaultFallbackCost = 300000
	defaultMaxCost      = 5000000
)

// costMargin is the safety factor applied over the medium's estimate.
const costMargin = 1.2

type Submitter struct {
	medium   domain.Medium
	identity string
	nonces   *nonceCache
	logger   *slog.Logger

	maxAttempts  int
	backoff      time.Duration
	timeout      time.Duration
	fallbackCost uint64
	maxCost      uint64

	sleep func(context.Context, time.Duration) error
}

type Options struct {
	// Identity signs submissions; its nonce space orders them.
	Identity string

	MaxAttempts  int
	Backoff      time.Duration
	Timeout      time.Duration
	FallbackCost uint64
	MaxCost      uint64
	NonceTTL     time.Duration

	Logger *slog.Logger
	Clock  func() time.Time
}

func New(medium domain.Medium, opts Options) (*Submitter, error) {
	if medium == nil {
		return nil, errors.New("medium is required")
	}
	if opts.Identity == "" {
		return nil, errors.New("submitter identity is required")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.FallbackCost == 0 {
		opts.FallbackCost = defaultFallbackCost
	}
	if opts.MaxCost == 0 {
		opts.MaxCost = defaultMaxCost
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{
		medium:       medium,
		identity:     opts.Identity,
		nonces:       newNonceCache(medium, opts.NonceTTL, opts.Clock),
		logger:       logger,
		maxAttempts:  opts.MaxAttempts,
		backoff:      opts.Backoff,
		timeout:      opts.Timeout,
		fallbackCost: opts.FallbackCost,
		maxCost:      opts.MaxCost,
		sleep:        sleepCtx,
	}, nil
}

// Pending is an awaitable in-flight submission. Cancelling the Await context
// abandons the wait only; a call that has already landed stays committed and
// the caller must re-verify.
type Pending struct {
	CallID string

	done    chan struct{}
	receipt domain.Receipt
	err     error
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

func (p *Pending) Await(ctx context.Context) (domain.Receipt, error) {
	select {
	case <-p.done:
		return p.receipt, p.err
	case <-ctx.Done():
		return domain.Receipt{}, ctx.Err()
	}
}

// Submit assigns the call an idempotency ID and submits it asynchronously.
// The returned Pending resolves when the call commits, is rejected, or the
// retry budget is exhausted.
func (s *Submitter) Submit(ctx context.Context, call domain.Call) *Pending {
	call.ID = uuid.NewString()
	call.Submitter = s.identity

	pending := &Pending{CallID: call.ID, done: make(chan struct{})}
	go func() {
		receipt, err := s.run(context.WithoutCancel(ctx), call)
		pending.receipt = receipt
		pending.err = err
		close(pending.done)
	}()
	return pending
}

// SubmitAndWait is Submit followed by Await on the same context.
func (s *Submitter) SubmitAndWait(ctx context.Context, call domain.Call) (domain.Receipt, error) {
	return s.Submit(ctx, call).Await(ctx)
}

func (s *Submitter) run(ctx context.Context, call domain.Call) (domain.Receipt, error) {
	call.CostLimit = s.estimate(ctx, call)

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.backoffFor(attempt)); err != nil {
				return domain.Receipt{}, err
			}
		}
		receipt, err := s.attempt(ctx, call)
		if err == nil {
			if receipt.Duplicate {
				s.logger.Info("duplicate submission resolved to committed call",
					"call_id", call.ID, "height", receipt.Height)
			}
			return receipt, nil
		}
		if !domain.IsTransient(err) {
			return domain.Receipt{}, err
		}
		lastErr = err
		s.logger.Warn("submission attempt failed",
			"call_id", call.ID, "kind", call.Kind, "attempt", attempt+1, "error", err)
	}
	return domain.Receipt{}, fmt.Errorf("%w after %d attempts: %v", domain.ErrSubmitExhausted, s.maxAttempts, lastErr)
}

func (s *Submitter) attempt(ctx context.Context, call domain.Call) (domain.Receipt, error) {
	nonce, release, err := s.nonces.acquire(ctx, s.identity)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("%w: %v", domain.ErrMediumUnavailable, err)
	}
	call.Nonce = nonce

	subCtx, cancel := context.WithTimeout(ctx, s.timeout)
	receipt, err := s.medium.Submit(subCtx, call)
	cancel()
	if err == nil {
		release(true)
		return receipt, nil
	}
	release(false)

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(subCtx.Err(), context.DeadlineExceeded) {
		// Ambiguous: the call may have landed. Treat a committed ID as success.
		if receipt, ok, lookupErr := s.medium.CommittedReceipt(ctx, call.ID); lookupErr == nil && ok {
			receipt.Duplicate = true
			return receipt, nil
		}
		return domain.Receipt{}, domain.ErrSubmitTimeout
	}
	return domain.Receipt{}, err
}

// estimate queries the medium for the call's cost and applies the safety
// margin, falling back to a fixed conservative figure when estimation itself
// fails.
func (s *Submitter) estimate(ctx context.Context, call domain.Call) uint64 {
	estimated, err := s.medium.EstimateCost(ctx, call)
	if err != nil {
		s.logger.Warn("cost estimation failed, using fallback",
			"call_id", call.ID, "fallback", s.fallbackCost, "error", err)
		return s.fallbackCost
	}
	cost := uint64(float64(estimated) * costMargin)
	if cost > s.maxCost {
		cost = s.maxCost
	}
	return cost
}

func (s *Submitter) backoffFor(attempt int) time.Duration {
	d := s.backoff
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

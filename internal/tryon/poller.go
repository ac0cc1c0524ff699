package tryon

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Default poll loop tuning. The interval grows by growthFactor after every
// non-terminal iteration and is capped at the max; the whole loop is bounded
// by a fixed wall-clock budget.
const (
	defaultInitialInterval = 10 * time.Second
	defaultMaxInterval     = 30 * time.Second
	defaultBudget          = 420 * time.Second
	growthFactor           = 1.2
)

// Outcome is the terminal result of polling one job.
type Outcome struct {
	// Status is one of the terminal statuses: COMPLETED, FAILED, CANCELLED, TIMED_OUT.
	Status Status
	// ImageURL is set when Status is StatusCompleted.
	ImageURL string
	// Reason carries the failure detail for FAILED/CANCELLED and malformed completions.
	Reason string
	// Elapsed is the wall-clock time spent polling.
	Elapsed time.Duration
	// Attempts is the number of status reads performed.
	Attempts int
}

// Poller drives a submitted job to a terminal outcome by repeatedly reading
// its status. Iterations are strictly sequential; a transient status-read
// failure never ends the job early, it only costs one iteration.
type Poller struct {
	client          Client
	logger          *slog.Logger
	initialInterval time.Duration
	maxInterval     time.Duration
	budget          time.Duration

	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// PollerOption is a function that configures a Poller.
type PollerOption func(*Poller)

// WithBudget sets the wall-clock budget for the whole loop.
func WithBudget(d time.Duration) PollerOption {
	return func(p *Poller) {
		p.budget = d
	}
}

// WithIntervals sets the initial and maximum poll intervals.
func WithIntervals(initial, max time.Duration) PollerOption {
	return func(p *Poller) {
		p.initialInterval = initial
		p.maxInterval = max
	}
}

// WithClock overrides the time source and sleep function.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) PollerOption {
	return func(p *Poller) {
		p.now = now
		p.sleep = sleep
	}
}

// NewPoller creates a Poller over the given backend client.
func NewPoller(client Client, logger *slog.Logger, opts ...PollerOption) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Poller{
		client:          client,
		logger:          logger,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		budget:          defaultBudget,
		now:             time.Now,
		sleep:           sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait polls jobID until a terminal outcome or the budget is exhausted.
// The returned error is non-nil only when ctx is cancelled; every other path,
// including timeout, is reported as an Outcome.
func (p *Poller) Wait(ctx context.Context, jobID string) (Outcome, error) {
	if jobID == "" {
		return Outcome{}, ErrJobIDRequired
	}

	start := p.now()
	interval := p.initialInterval
	attempts := 0

	for {
		elapsed := p.now().Sub(start)
		if elapsed >= p.budget {
			p.logger.Warn("poll budget exhausted",
				slog.String("job_id", jobID),
				slog.Duration("elapsed", elapsed),
				slog.Int("attempts", attempts),
			)
			return Outcome{Status: StatusTimedOut, Elapsed: elapsed, Attempts: attempts}, nil
		}

		// Never sleep past the budget boundary.
		wait := interval
		if remaining := p.budget - elapsed; wait > remaining {
			wait = remaining
		}
		if err := p.sleep(ctx, wait); err != nil {
			return Outcome{}, fmt.Errorf("tryon: polling interrupted: %w", err)
		}

		attempts++
		res, err := p.client.Status(ctx, jobID)
		if err != nil {
			// Inconclusive iteration: transient failures must not end the job.
			p.logger.Warn("status read failed, continuing to poll",
				slog.String("job_id", jobID),
				slog.Int("attempt", attempts),
				slog.String("error", err.Error()),
			)
			interval = p.grow(interval)
			continue
		}

		elapsed = p.now().Sub(start)
		switch res.Status {
		case StatusCompleted:
			if res.ImageURL == "" {
				return Outcome{
					Status:   StatusFailed,
					Reason:   ErrMalformedCompletion.Error(),
					Elapsed:  elapsed,
					Attempts: attempts,
				}, nil
			}
			p.logger.Info("job completed",
				slog.String("job_id", jobID),
				slog.Duration("elapsed", elapsed),
				slog.Int("attempts", attempts),
			)
			return Outcome{Status: StatusCompleted, ImageURL: res.ImageURL, Elapsed: elapsed, Attempts: attempts}, nil

		case StatusFailed:
			return Outcome{Status: StatusFailed, Reason: res.Err, Elapsed: elapsed, Attempts: attempts}, nil

		case StatusCancelled:
			return Outcome{Status: StatusCancelled, Elapsed: elapsed, Attempts: attempts}, nil

		default:
			// IN_QUEUE, IN_PROGRESS, RUNNING, or anything unrecognized: keep polling.
			p.logger.Debug("job still in progress",
				slog.String("job_id", jobID),
				slog.String("status", string(res.Status)),
				slog.Int("attempt", attempts),
			)
			interval = p.grow(interval)
		}
	}
}

// grow increases the interval multiplicatively up to the configured ceiling.
// The result is monotonically non-decreasing.
func (p *Poller) grow(interval time.Duration) time.Duration {
	next := time.Duration(float64(interval) * growthFactor)
	if next > p.maxInterval {
		return p.maxInterval
	}
	return next
}

// sleepCtx waits for d, honoring context cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

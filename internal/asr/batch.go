package asr

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchOptions tunes a TranscribeBatch run.
type BatchOptions struct {
	// MaxConcurrent bounds how many pipelines run at once.
	MaxConcurrent int
	// MaxRetries is the number of attempts per file for faults that escape
	// the pipeline itself. Error and timeout outcomes are terminal and are
	// not retried.
	MaxRetries int
	RetryDelay time.Duration
	// RateLimitPerMin throttles pipeline starts; zero disables the limiter.
	RateLimitPerMin int
}

const (
	defaultMaxConcurrent = 5
	defaultMaxRetries    = 3
	defaultRetryDelay    = 5 * time.Second
)

func (o *BatchOptions) applyDefaults() {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = defaultMaxConcurrent
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = defaultRetryDelay
	}
}

// TranscribeBatch runs the pipeline over many files with bounded concurrency.
// The returned slice lines up with files by position regardless of completion
// order, one Outcome per input. Items never affect each other: a failed or
// panicking pipeline only ever marks its own slot.
func (s *Service) TranscribeBatch(ctx context.Context, files []string, opts BatchOptions) []Outcome {
	opts.applyDefaults()

	var limiter *rate.Limiter
	if opts.RateLimitPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RateLimitPerMin)/60.0), 1)
	}

	s.log.WithField("files", len(files)).
		WithField("max_concurrent", opts.MaxConcurrent).
		Info("starting batch")

	outcomes := make([]Outcome, len(files))
	g := new(errgroup.Group)
	g.SetLimit(opts.MaxConcurrent)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					outcomes[i] = s.errorOutcome(path, err.Error())
					return nil
				}
			}
			outcomes[i] = s.transcribeWithRetry(ctx, path, opts)
			return nil
		})
	}
	g.Wait()
	return outcomes
}

func (s *Service) transcribeWithRetry(ctx context.Context, path string, opts BatchOptions) Outcome {
	var lastErr error
	for attempt := 0; attempt < opts.MaxRetries; attempt++ {
		out, err := s.transcribeGuarded(ctx, path)
		if err == nil {
			return out
		}
		lastErr = err
		s.log.WithField("file", filepath.Base(path)).
			WithField("attempt", attempt+1).
			WithError(err).Warn("pipeline fault, retrying")
		if attempt < opts.MaxRetries-1 {
			if err := s.Clock.Sleep(ctx, opts.RetryDelay); err != nil {
				break
			}
		}
	}
	return s.errorOutcome(path, fmt.Sprintf("failed after %d retries: %v", opts.MaxRetries, lastErr))
}

// transcribeGuarded converts a panic escaping the pipeline into an error so a
// programming fault in one item is retried and contained instead of tearing
// down the batch.
func (s *Service) transcribeGuarded(ctx context.Context, path string) (out Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return s.Transcribe(ctx, path), nil
}

func (s *Service) errorOutcome(path, msg string) Outcome {
	return Outcome{
		Status:    StatusError,
		FileName:  filepath.Base(path),
		CreatedAt: s.Clock.Now(),
		Err:       msg,
	}
}

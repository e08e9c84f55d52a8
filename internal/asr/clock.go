package asr

import (
	"context"
	"time"
)

// Clock abstracts time for the poll and retry loops so tests can run them
// without real multi-second waits.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SystemClock is the real wall clock used outside of tests.
var SystemClock Clock = systemClock{}

package asr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func instantRecognizer() *fakeRecognizer {
	return &fakeRecognizer{
		submit: func(ctx context.Context, audioURL string) (string, error) {
			return audioURL, nil
		},
		status: func(ctx context.Context, taskID string) (*JobUpdate, error) {
			return &JobUpdate{
				State:  JobSucceeded,
				Result: fmt.Sprintf(`[{"FinalSentence": %q}]`, taskID),
			}, nil
		},
	}
}

func TestTranscribeBatch_OrderMatchesInput(t *testing.T) {
	files := []string{"a.wav", "b.wav", "c.wav", "d.wav", "e.wav"}

	// Earlier items finish later so completion order is the reverse of
	// submission order.
	st := storageFunc(func(ctx context.Context, path string) (string, error) {
		for i, f := range files {
			if f == path {
				time.Sleep(time.Duration(len(files)-i) * 5 * time.Millisecond)
			}
		}
		return "https://bucket/" + filepath.Base(path), nil
	})
	s, _ := newTestService(st, instantRecognizer())

	outcomes := s.TranscribeBatch(context.Background(), files, BatchOptions{
		MaxConcurrent: len(files),
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
	})

	if len(outcomes) != len(files) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(files))
	}
	for i, out := range outcomes {
		if out.FileName != files[i] {
			t.Errorf("outcomes[%d].FileName = %q, want %q", i, out.FileName, files[i])
		}
		if out.Status != StatusSuccess {
			t.Errorf("outcomes[%d].Status = %q (err %q), want success", i, out.Status, out.Err)
			continue
		}
		if want := "https://bucket/" + files[i]; out.Utterances[0].Text != want {
			t.Errorf("outcomes[%d] carries result for %q, want %q", i, out.Utterances[0].Text, want)
		}
	}
}

func TestTranscribeBatch_ConcurrencyBound(t *testing.T) {
	var inFlight, peak int64
	var mu sync.Mutex

	st := storageFunc(func(ctx context.Context, path string) (string, error) {
		n := atomic.AddInt64(&inFlight, 1)
		mu.Lock()
		if n > peak {
			peak = n
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return "https://bucket/" + filepath.Base(path), nil
	})
	s, _ := newTestService(st, instantRecognizer())

	files := []string{"a.wav", "b.wav", "c.wav", "d.wav", "e.wav"}
	s.TranscribeBatch(context.Background(), files, BatchOptions{
		MaxConcurrent: 2,
		MaxRetries:    1,
		RetryDelay:    time.Millisecond,
	})

	mu.Lock()
	defer mu.Unlock()
	if peak > 2 {
		t.Errorf("peak concurrent pipelines = %d, want at most 2", peak)
	}
	if peak < 2 {
		t.Logf("peak concurrency was %d; bound not exercised but not violated", peak)
	}
}

func TestTranscribeBatch_RetryExhaustionIsolated(t *testing.T) {
	st := storageFunc(func(ctx context.Context, path string) (string, error) {
		if filepath.Base(path) == "bad.wav" {
			panic("corrupted state")
		}
		return "https://bucket/" + filepath.Base(path), nil
	})
	s, _ := newTestService(st, instantRecognizer())

	files := []string{"good1.wav", "bad.wav", "good2.wav"}
	outcomes := s.TranscribeBatch(context.Background(), files, BatchOptions{
		MaxConcurrent: 2,
		MaxRetries:    2,
		RetryDelay:    time.Millisecond,
	})

	bad := outcomes[1]
	if bad.Status != StatusError {
		t.Fatalf("bad outcome status = %q, want error", bad.Status)
	}
	if !strings.Contains(bad.Err, "failed after 2 retries") {
		t.Errorf("Err = %q, want retry-exhaustion message", bad.Err)
	}
	if !strings.Contains(bad.Err, "corrupted state") {
		t.Errorf("Err = %q, want underlying panic value", bad.Err)
	}
	for _, i := range []int{0, 2} {
		if outcomes[i].Status != StatusSuccess {
			t.Errorf("sibling %s = %q (err %q), want success", files[i], outcomes[i].Status, outcomes[i].Err)
		}
	}
}

func TestTranscribeBatch_ErrorOutcomesNotRetried(t *testing.T) {
	var uploads int64
	st := storageFunc(func(ctx context.Context, path string) (string, error) {
		atomic.AddInt64(&uploads, 1)
		return "", errors.New("permanent denial")
	})
	s, _ := newTestService(st, instantRecognizer())

	outcomes := s.TranscribeBatch(context.Background(), []string{"a.wav"}, BatchOptions{
		MaxConcurrent: 1,
		MaxRetries:    3,
		RetryDelay:    time.Millisecond,
	})

	if got := atomic.LoadInt64(&uploads); got != 1 {
		t.Errorf("upload called %d times, want 1: error outcomes are terminal", got)
	}
	if outcomes[0].Status != StatusError {
		t.Errorf("Status = %q, want error", outcomes[0].Status)
	}
	if !strings.Contains(outcomes[0].Err, "permanent denial") {
		t.Errorf("Err = %q, want the collaborator's message", outcomes[0].Err)
	}
}

func TestTranscribeBatch_EmptyInput(t *testing.T) {
	s, _ := newTestService(storageFunc(okStorage), instantRecognizer())
	outcomes := s.TranscribeBatch(context.Background(), nil, BatchOptions{})
	if len(outcomes) != 0 {
		t.Errorf("got %d outcomes for empty input, want 0", len(outcomes))
	}
}

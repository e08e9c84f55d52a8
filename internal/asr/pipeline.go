package asr

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"voice-transcribe-go/internal/logger"
)

// Storage places a local file somewhere the recognition backend can fetch it.
type Storage interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Recognizer is the remote speech-recognition API: create a job from an
// uploaded resource and poll it by task ID.
type Recognizer interface {
	Submit(ctx context.Context, audioURL string) (string, error)
	Status(ctx context.Context, taskID string) (*JobUpdate, error)
}

const (
	defaultPollInterval    = 2 * time.Second
	defaultMaxPollAttempts = 60
)

var errPollExhausted = errors.New("job did not reach a terminal state within the poll budget")

// Service drives audio files through upload, job submission, polling, and
// result normalization.
type Service struct {
	Storage    Storage
	Recognizer Recognizer

	Clock           Clock
	PollInterval    time.Duration
	MaxPollAttempts int

	// SaveResults writes a human-readable rendering of the utterances next to
	// the input file on success.
	SaveResults bool

	log *logrus.Entry
}

func NewService(storage Storage, recognizer Recognizer) *Service {
	return &Service{
		Storage:         storage,
		Recognizer:      recognizer,
		Clock:           SystemClock,
		PollInterval:    defaultPollInterval,
		MaxPollAttempts: defaultMaxPollAttempts,
		SaveResults:     true,
		log:             logger.New().WithComponent("asr"),
	}
}

// Transcribe runs the whole pipeline for one file. It never returns an error:
// every failure mode is folded into the returned Outcome's status and message.
func (s *Service) Transcribe(ctx context.Context, filePath string) Outcome {
	out := Outcome{
		FileName:  filepath.Base(filePath),
		CreatedAt: s.Clock.Now(),
	}
	log := s.log.WithField("file", out.FileName)

	audioURL, err := s.Storage.Upload(ctx, filePath)
	if err != nil {
		return s.fail(out, log, &UploadError{Path: filePath, Err: err})
	}
	log.WithField("audio_url", audioURL).Info("file uploaded")

	taskID, err := s.Recognizer.Submit(ctx, audioURL)
	if err != nil {
		return s.fail(out, log, &SubmissionError{URL: audioURL, Err: err})
	}
	handle := JobHandle{TaskID: taskID, SourceURI: audioURL}
	out.TaskID = handle.TaskID
	log = log.WithField("task_id", handle.TaskID)
	log.Info("recognition task created")

	update, err := s.waitForCompletion(ctx, handle)
	if errors.Is(err, errPollExhausted) {
		// The task may still finish remotely; the caller keeps the task ID
		// and can query it again later.
		log.Warn("polling budget exhausted")
		out.Status = StatusTimeout
		return out
	}
	if err != nil {
		return s.fail(out, log, err)
	}

	utts, err := ParseRawResult(update.Result)
	if err != nil {
		return s.fail(out, log, err)
	}

	completed := s.Clock.Now()
	out.CompletedAt = &completed
	out.Status = StatusSuccess
	out.Utterances = utts
	log.WithField("utterances", len(utts)).Info("transcription complete")

	if s.SaveResults {
		path := ResultPath(filePath)
		if err := WriteResultFile(path, utts); err != nil {
			// Best effort only; the transcription itself stands.
			log.WithError(err).Warn("failed to save result file")
		} else {
			out.OutputFile = path
		}
	}
	return out
}

// waitForCompletion polls the task until it reaches a terminal state. This
// loop is the only place polling state advances.
func (s *Service) waitForCompletion(ctx context.Context, handle JobHandle) (*JobUpdate, error) {
	for attempt := 0; attempt < s.MaxPollAttempts; attempt++ {
		update, err := s.Recognizer.Status(ctx, handle.TaskID)
		if err != nil {
			return nil, &StatusQueryError{TaskID: handle.TaskID, Err: err}
		}
		switch update.State {
		case JobSucceeded:
			return update, nil
		case JobFailed:
			return nil, &RemoteJobError{TaskID: handle.TaskID, Message: update.Message}
		}
		if err := s.Clock.Sleep(ctx, s.PollInterval); err != nil {
			return nil, err
		}
	}
	return nil, errPollExhausted
}

func (s *Service) fail(out Outcome, log *logrus.Entry, err error) Outcome {
	log.WithError(err).Warn("transcription failed")
	out.Status = StatusError
	out.Err = err.Error()
	return out
}

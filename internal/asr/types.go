package asr

import "time"

// Status is the terminal disposition of one transcription.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusTimeout Status = "timeout"
)

// Utterance is one time-bounded span of recognized speech. Produced only by
// ParseRawResult; never mutated afterwards.
type Utterance struct {
	Text         string   `json:"text"`
	StartTime    float64  `json:"start_time"`
	EndTime      float64  `json:"end_time"`
	SpeakerID    *int     `json:"speaker_id,omitempty"`
	Emotion      string   `json:"emotion,omitempty"`
	EmotionScore *float64 `json:"emotion_score,omitempty"`
}

// Outcome is the result of driving one file through the pipeline. Exactly one
// Outcome is produced per input file, whether the run succeeded, failed, or
// timed out waiting for the remote job.
type Outcome struct {
	Status      Status      `json:"status"`
	TaskID      string      `json:"task_id"`
	FileName    string      `json:"file_name"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Utterances  []Utterance `json:"results,omitempty"`
	Err         string      `json:"error,omitempty"`
	OutputFile  string      `json:"output_file,omitempty"`
}

// JobHandle identifies an accepted remote job. Opaque to the pipeline beyond
// polling and logging.
type JobHandle struct {
	TaskID    string
	SourceURI string
}

// JobState is the coarse remote-job state as reported by a status query.
type JobState int

const (
	JobPending JobState = iota
	JobSucceeded
	JobFailed
)

// JobUpdate is one status-query result. Result carries the raw recognition
// payload when the job succeeded; Message carries the backend's error text
// when it failed.
type JobUpdate struct {
	State   JobState
	Result  any
	Message string
}

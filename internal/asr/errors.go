package asr

import "fmt"

// UploadError reports a failure to place the local file in object storage.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload %s: %v", e.Path, e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// SubmissionError reports a failure to create the remote recognition job.
type SubmissionError struct {
	URL string
	Err error
}

func (e *SubmissionError) Error() string { return fmt.Sprintf("submit job for %s: %v", e.URL, e.Err) }
func (e *SubmissionError) Unwrap() error { return e.Err }

// StatusQueryError reports a failed status poll for an accepted job.
type StatusQueryError struct {
	TaskID string
	Err    error
}

func (e *StatusQueryError) Error() string {
	return fmt.Sprintf("query status of task %s: %v", e.TaskID, e.Err)
}
func (e *StatusQueryError) Unwrap() error { return e.Err }

// RemoteJobError is a terminal failure reported by the backend itself.
type RemoteJobError struct {
	TaskID  string
	Message string
}

func (e *RemoteJobError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Message)
}

// NormalizationError reports a raw result that is neither a decodable
// structured payload nor plain text.
type NormalizationError struct {
	Value any
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("unparseable result of type %T", e.Value)
}

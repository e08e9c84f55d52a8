package tencent

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"voice-transcribe-go/internal/asr"
)

const (
	asrBaseURL = "https://asr.tencentcloudapi.com"
	asrService = "asr"
	asrVersion = "2019-06-14"

	taskStatusSuccess = 2
	taskStatusFailed  = 3
)

// createRecTaskParams is the fixed job configuration: single-channel 16 kHz
// Mandarin with speaker diarization and emotion recognition on, number
// conversion on, and profanity/punctuation/filler filtering off.
type createRecTaskParams struct {
	EngineModelType    string `json:"EngineModelType"`
	ChannelNum         int    `json:"ChannelNum"`
	ResTextFormat      int    `json:"ResTextFormat"`
	SourceType         int    `json:"SourceType"`
	URL                string `json:"Url"`
	SpeakerDiarization int    `json:"SpeakerDiarization"`
	SpeakerNumber      int    `json:"SpeakerNumber"`
	EmotionRecognition int    `json:"EmotionRecognition"`
	EmotionalEnergy    int    `json:"EmotionalEnergy"`
	ConvertNumMode     int    `json:"ConvertNumMode"`
	FilterDirty        int    `json:"FilterDirty"`
	FilterPunc         int    `json:"FilterPunc"`
	FilterModal        int    `json:"FilterModal"`
	SentenceMaxLength  int    `json:"SentenceMaxLength"`
}

type createRecTaskResponse struct {
	Data struct {
		TaskID uint64 `json:"TaskId"`
	} `json:"Data"`
}

type describeTaskStatusResponse struct {
	Data struct {
		TaskID    uint64 `json:"TaskId"`
		Status    int    `json:"Status"`
		StatusStr string `json:"StatusStr"`
		Result    string `json:"Result"`
		ErrorMsg  string `json:"ErrorMsg"`
	} `json:"Data"`
}

// RecognitionClient submits recognition tasks to the Tencent Cloud ASR API
// and polls their status. Implements asr.Recognizer.
type RecognitionClient struct {
	backend Backend
}

func NewRecognitionClient(creds Credentials, region string) *RecognitionClient {
	return &RecognitionClient{
		backend: &BackendConfiguration{
			HTTPClient:  &http.Client{Timeout: 30 * time.Second},
			Credentials: creds,
			Region:      region,
			BaseURL:     asrBaseURL,
			Service:     asrService,
			Version:     asrVersion,
		},
	}
}

// NewRecognitionClientWithBackend is used by tests to inject a fake backend.
func NewRecognitionClientWithBackend(backend Backend) *RecognitionClient {
	return &RecognitionClient{backend: backend}
}

func (c *RecognitionClient) Submit(ctx context.Context, audioURL string) (string, error) {
	params := createRecTaskParams{
		EngineModelType:    "16k_zh",
		ChannelNum:         1,
		ResTextFormat:      5,
		SourceType:         0,
		URL:                audioURL,
		SpeakerDiarization: 1,
		SpeakerNumber:      0,
		EmotionRecognition: 1,
		EmotionalEnergy:    1,
		ConvertNumMode:     1,
	}
	var resp createRecTaskResponse
	if err := c.backend.Call(ctx, "CreateRecTask", params, &resp); err != nil {
		return "", err
	}
	return strconv.FormatUint(resp.Data.TaskID, 10), nil
}

func (c *RecognitionClient) Status(ctx context.Context, taskID string) (*asr.JobUpdate, error) {
	id, err := strconv.ParseUint(taskID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid task id %q: %w", taskID, err)
	}
	var resp describeTaskStatusResponse
	if err := c.backend.Call(ctx, "DescribeTaskStatus", map[string]uint64{"TaskId": id}, &resp); err != nil {
		return nil, err
	}
	switch resp.Data.Status {
	case taskStatusSuccess:
		return &asr.JobUpdate{State: asr.JobSucceeded, Result: resp.Data.Result}, nil
	case taskStatusFailed:
		return &asr.JobUpdate{State: asr.JobFailed, Message: resp.Data.ErrorMsg}, nil
	default:
		return &asr.JobUpdate{State: asr.JobPending}, nil
	}
}

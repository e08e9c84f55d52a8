package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"voice-transcribe-go/internal/asr"
	"voice-transcribe-go/internal/config"
	"voice-transcribe-go/internal/logger"
	"voice-transcribe-go/internal/tasks"
	"voice-transcribe-go/internal/tencent"
)

func main() {
	_ = godotenv.Load() // loads .env

	log := logger.New()
	log.WithField("service", "voice-transcribe-go").Info("starting service")

	cfg := config.Load()
	if err := os.MkdirAll(cfg.TempFileDir, 0o755); err != nil {
		log.WithError(err).Fatal("failed to create temp file dir")
	}

	registry := tasks.NewRegistry(cfg.MaxConcurrentTasks)

	mux := http.NewServeMux()

	// health
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("health check")
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       "healthy",
			"timestamp":    time.Now().Format(time.RFC3339),
			"active_tasks": registry.Count(),
			"max_tasks":    registry.Capacity(),
		})
	})

	// active task snapshot
	mux.HandleFunc("/tasks", func(w http.ResponseWriter, r *http.Request) {
		logger.New().WithRequest(r).Info("task snapshot")
		writeJSON(w, http.StatusOK, map[string]any{
			"active_tasks": registry.Count(),
			"max_tasks":    registry.Capacity(),
			"tasks":        registry.Snapshot(),
		})
	})

	mux.HandleFunc("/transcribe", handleTranscribe(cfg, registry))

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Minute,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	log.WithField("addr", addr).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server terminated")
	}
}

// transcribeResponse is the front-door envelope. Failures always arrive here
// as structured fields, never as a raw trace.
type transcribeResponse struct {
	TaskID  string          `json:"task_id"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Results []asr.Utterance `json:"results,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func handleTranscribe(cfg config.Settings, registry *tasks.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLog := logger.New().WithRequest(r).WithField("handler", "transcribe")

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxFileSizeMB*1024*1024)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			reqLog.WithError(err).Warn("rejecting upload")
			writeJSON(w, http.StatusBadRequest, transcribeResponse{
				Status:  "error",
				Message: fmt.Sprintf("upload rejected: file exceeds %dMB or form is malformed", cfg.MaxFileSizeMB),
			})
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, transcribeResponse{
				Status:  "error",
				Message: "missing file field",
			})
			return
		}
		defer file.Close()

		// Per-request credential overrides fall back to process config.
		creds := tencent.Credentials{
			SecretID:  formOr(r, "secret_id", cfg.SecretID),
			SecretKey: formOr(r, "secret_key", cfg.SecretKey),
		}
		bucket := formOr(r, "cos_bucket", cfg.Bucket)
		region := formOr(r, "cos_region", cfg.Region)
		if creds.SecretID == "" || creds.SecretKey == "" || bucket == "" || region == "" {
			writeJSON(w, http.StatusBadRequest, transcribeResponse{
				Status:  "error",
				Message: "missing required credentials",
			})
			return
		}

		taskID := fmt.Sprintf("task_%s_%s", time.Now().Format("20060102150405"), uuid.NewString()[:8])
		reqLog = reqLog.WithField("task_id", taskID).WithField("file", header.Filename)

		tmpPath := filepath.Join(cfg.TempFileDir, taskID+"_"+filepath.Base(header.Filename))
		if err := saveUpload(tmpPath, file); err != nil {
			reqLog.WithError(err).Error("failed to spool upload")
			writeJSON(w, http.StatusInternalServerError, transcribeResponse{
				TaskID:  taskID,
				Status:  "error",
				Message: "failed to store uploaded file",
			})
			return
		}
		defer os.Remove(tmpPath)

		if err := registry.Acquire(r.Context(), taskID, header.Filename); err != nil {
			reqLog.WithError(err).Warn("admission aborted")
			writeJSON(w, http.StatusServiceUnavailable, transcribeResponse{
				TaskID:  taskID,
				Status:  "error",
				Message: "request cancelled while waiting for a slot",
			})
			return
		}
		defer registry.Release(taskID)

		storage := tencent.NewObjectStorageClient(creds, bucket, region)
		recognizer := tencent.NewRecognitionClient(creds, region)
		svc := asr.NewService(storage, recognizer)
		svc.SaveResults = false // nothing to put next to a temp upload

		reqLog.Info("transcription started")
		outcome := svc.Transcribe(r.Context(), tmpPath)

		resp := transcribeResponse{TaskID: taskID}
		code := http.StatusOK
		switch outcome.Status {
		case asr.StatusSuccess:
			resp.Status = "completed"
			resp.Message = "transcription complete"
			resp.Results = outcome.Utterances
		case asr.StatusTimeout:
			resp.Status = "timeout"
			resp.Message = "recognition task did not finish in time; retry later with the same audio"
			code = http.StatusGatewayTimeout
		default:
			resp.Status = "error"
			resp.Message = "transcription failed"
			resp.Error = outcome.Err
			code = http.StatusInternalServerError
		}
		reqLog.WithField("status", resp.Status).Info("transcription finished")
		writeJSON(w, code, resp)
	}
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func formOr(r *http.Request, key, def string) string {
	if v := strings.TrimSpace(r.FormValue(key)); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.New().WithError(err).Error("failed to write response")
	}
}

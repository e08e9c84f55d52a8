package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"voice-transcribe-go/internal/asr"
	"voice-transcribe-go/internal/config"
	"voice-transcribe-go/internal/logger"
	"voice-transcribe-go/internal/manifest"
	"voice-transcribe-go/internal/tencent"
)

var (
	manifestPath  string
	maxConcurrent int
	maxRetries    int
	retryDelay    time.Duration
	rateLimit     int
	noSave        bool
	jsonOut       bool
)

var rootCmd = &cobra.Command{
	Use:   "batch [files...]",
	Short: "Transcribe audio files in bulk through Tencent Cloud ASR",
	Long: `Batch uploads audio files to COS, submits recognition tasks, polls them to
completion, and prints one outcome per input file in input order. Inputs come
from arguments, an Excel manifest, or both.`,
	RunE: runBatch,
}

func init() {
	rootCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "Excel manifest listing audio files")
	rootCmd.Flags().IntVarP(&maxConcurrent, "max-concurrent", "j", 5, "max concurrent transcriptions")
	rootCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "attempts per file for pipeline faults")
	rootCmd.Flags().DurationVar(&retryDelay, "retry-delay", 5*time.Second, "wait between retry attempts")
	rootCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "pipeline starts per minute, 0 = unlimited")
	rootCmd.Flags().BoolVar(&noSave, "no-save", false, "skip writing <input>_result.txt artifacts")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "print outcomes as JSON")
}

func runBatch(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()
	log := logger.New().WithComponent("batch")

	cfg := config.Load()
	if !cfg.HasCredentials() {
		return fmt.Errorf("TENCENT_SECRET_ID, TENCENT_SECRET_KEY, COS_BUCKET, and COS_REGION must be set")
	}

	files := args
	if manifestPath != "" {
		fromManifest, err := manifest.Load(manifestPath)
		if err != nil {
			return err
		}
		log.WithField("manifest", manifestPath).WithField("entries", len(fromManifest)).Info("manifest loaded")
		files = append(files, fromManifest...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no input files: pass paths as arguments or --manifest")
	}

	creds := tencent.Credentials{SecretID: cfg.SecretID, SecretKey: cfg.SecretKey}
	svc := asr.NewService(
		tencent.NewObjectStorageClient(creds, cfg.Bucket, cfg.Region),
		tencent.NewRecognitionClient(creds, cfg.Region),
	)
	svc.SaveResults = !noSave

	outcomes := svc.TranscribeBatch(cmd.Context(), files, asr.BatchOptions{
		MaxConcurrent:   maxConcurrent,
		MaxRetries:      maxRetries,
		RetryDelay:      retryDelay,
		RateLimitPerMin: rateLimit,
	})

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(outcomes); err != nil {
			return err
		}
	}

	counts := map[asr.Status]int{}
	for _, out := range outcomes {
		counts[out.Status]++
		entry := log.WithField("file", out.FileName).WithField("status", out.Status)
		if out.Err != "" {
			entry = entry.WithField("error", out.Err)
		}
		entry.Info("outcome")
	}
	log.WithField("success", counts[asr.StatusSuccess]).
		WithField("error", counts[asr.StatusError]).
		WithField("timeout", counts[asr.StatusTimeout]).
		Info("batch finished")

	if counts[asr.StatusSuccess] != len(outcomes) {
		return fmt.Errorf("%d of %d files did not transcribe successfully",
			len(outcomes)-counts[asr.StatusSuccess], len(outcomes))
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

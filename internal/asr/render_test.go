package asr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResultPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"call.wav", "call_result.txt"},
		{filepath.Join("dir", "call.mp3"), filepath.Join("dir", "call_result.txt")},
		{"noext", "noext_result.txt"},
	}
	for _, tt := range tests {
		if got := ResultPath(tt.in); got != tt.want {
			t.Errorf("ResultPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteResultFile(t *testing.T) {
	speaker := 0
	score := 0.95
	utts := []Utterance{
		{Text: "hello", StartTime: 1.5, EndTime: 4.2, SpeakerID: &speaker, Emotion: "happy", EmotionScore: &score},
		{Text: "plain", StartTime: 5, EndTime: 6},
	}

	path := filepath.Join(t.TempDir(), "call_result.txt")
	if err := WriteResultFile(path, utts); err != nil {
		t.Fatalf("WriteResultFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	got := string(data)

	for _, want := range []string{
		"Time: 1.50s - 4.20s",
		"Speaker: 0",
		"Emotion: happy (confidence: 0.95)",
		"Content: hello",
		"Time: 5.00s - 6.00s",
		"Content: plain",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if parts := strings.Split(got, "Time: 5.00s"); len(parts) == 2 && strings.Contains(parts[1], "Speaker:") {
		t.Error("speaker line written for an utterance without one")
	}
	if rules := strings.Count(got, strings.Repeat("-", 50)); rules != len(utts)+1 {
		t.Errorf("found %d rules, want %d", rules, len(utts)+1)
	}
}

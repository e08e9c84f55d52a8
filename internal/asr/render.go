package asr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResultPath returns the sibling artifact path for an input file,
// e.g. call.wav -> call_result.txt.
func ResultPath(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "_result.txt"
}

// WriteResultFile renders the utterance sequence as a plain-text summary, one
// block per utterance separated by a fixed-width rule.
func WriteResultFile(path string, utts []Utterance) error {
	rule := strings.Repeat("-", 50)

	var b strings.Builder
	b.WriteString("Transcript summary:\n")
	b.WriteString(rule + "\n")
	for _, u := range utts {
		fmt.Fprintf(&b, "Time: %.2fs - %.2fs\n", u.StartTime, u.EndTime)
		if u.SpeakerID != nil {
			fmt.Fprintf(&b, "Speaker: %d\n", *u.SpeakerID)
		}
		if u.Emotion != "" {
			if u.EmotionScore != nil {
				fmt.Fprintf(&b, "Emotion: %s (confidence: %.2f)\n", u.Emotion, *u.EmotionScore)
			} else {
				fmt.Fprintf(&b, "Emotion: %s\n", u.Emotion)
			}
		}
		fmt.Fprintf(&b, "Content: %s\n", u.Text)
		b.WriteString(rule + "\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0644)
}

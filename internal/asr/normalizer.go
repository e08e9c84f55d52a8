package asr

import "encoding/json"

// ParseRawResult normalizes the raw recognition payload into utterances. The
// backend is loose about the result shape: it may hand back a decoded list of
// sentence segments, a single segment, a JSON-encoded string, or occasionally
// plain unstructured text. All of these are accepted; only a value that is
// none of them is an error.
func ParseRawResult(raw any) ([]Utterance, error) {
	var segments []any

	switch v := raw.(type) {
	case []any:
		segments = v
	case map[string]any:
		segments = []any{v}
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			// Not JSON. Degrade to a single untimed utterance rather than
			// failing the whole job.
			return []Utterance{{Text: v}}, nil
		}
		switch d := decoded.(type) {
		case []any:
			segments = d
		case map[string]any:
			segments = []any{d}
		default:
			// Decoded to a scalar (e.g. a bare JSON string or number); the
			// original text is still the best rendering we have.
			return []Utterance{{Text: v}}, nil
		}
	case json.RawMessage:
		return ParseRawResult(string(v))
	default:
		return nil, &NormalizationError{Value: raw}
	}

	utts := make([]Utterance, 0, len(segments))
	for _, s := range segments {
		seg, ok := s.(map[string]any)
		if !ok {
			continue
		}
		utts = append(utts, parseSegment(seg))
	}
	return utts, nil
}

func parseSegment(seg map[string]any) Utterance {
	u := Utterance{}

	u.Text = stringField(seg, "FinalSentence")
	if u.Text == "" {
		u.Text = stringField(seg, "Text")
	}

	// Millisecond fields take precedence over second-denominated ones, but a
	// value of exactly zero means "not set" upstream and falls through to the
	// StartTime/EndTime fields. Inherited from the data source as-is; a real
	// zero-length leading segment is indistinguishable from an absent field.
	if ms := numberField(seg, "StartMs"); ms != 0 {
		u.StartTime = ms / 1000
	} else {
		u.StartTime = numberField(seg, "StartTime")
	}
	if ms := numberField(seg, "EndMs"); ms != 0 {
		u.EndTime = ms / 1000
	} else {
		u.EndTime = numberField(seg, "EndTime")
	}

	if sp, ok := seg["SpeechSegment"].(map[string]any); ok {
		if id, ok := sp["SpeakerId"].(float64); ok {
			n := int(id)
			u.SpeakerID = &n
		}
	}

	if emo, ok := seg["EmotionInfo"].(map[string]any); ok {
		u.Emotion = stringField(emo, "EmotionType")
		if score, ok := emo["EmotionScore"].(float64); ok {
			u.EmotionScore = &score
		}
	}

	return u
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func numberField(m map[string]any, key string) float64 {
	n, _ := m[key].(float64)
	return n
}

package manifest

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Load reads an Excel manifest of audio files and returns the file column in
// row order. The audio column is found by header heuristics; with no usable
// header the first column is assumed.
func Load(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("manifest has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("manifest has no data rows")
	}

	audioIdx := -1
	for i, h := range rows[0] {
		l := strings.ToLower(strings.TrimSpace(h))
		if strings.Contains(l, "audio") || strings.Contains(l, "file") ||
			strings.Contains(l, "path") || strings.Contains(l, "url") {
			audioIdx = i
			break
		}
	}
	if audioIdx == -1 {
		audioIdx = 0
	}

	var out []string
	for _, r := range rows[1:] {
		if audioIdx >= len(r) {
			continue
		}
		v := strings.TrimSpace(r[audioIdx])
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("manifest column %d has no entries", audioIdx)
	}
	return out, nil
}

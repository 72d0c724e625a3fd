package scanning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zombor/travel-receipt/internal/extraction"
)

type transcription struct {
	Lines []transcribedLine `json:"lines"`
}

type transcribedLine struct {
	Text string   `json:"text"`
	Y    *float64 `json:"y"`
}

// parseFragmentsJSON decodes a model transcription into fragments. Lines without
// a position keep their listed order; blank lines are dropped.
func parseFragmentsJSON(text string) ([]extraction.Fragment, error) {
	text = stripFences(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	var t transcription
	if err := json.Unmarshal([]byte(text[startIdx:endIdx+1]), &t); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	n := len(t.Lines)
	fragments := make([]extraction.Fragment, 0, n)
	for i, l := range t.Lines {
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		y := 1 - float64(i)/float64(n)
		if l.Y != nil {
			y = *l.Y
		}
		fragments = append(fragments, extraction.Fragment{Text: l.Text, Y: y})
	}
	return fragments, nil
}

// stripFences removes markdown code fences around a model reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

package extraction

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// OrderLines sorts fragments top to bottom (descending Y) and joins their text
// with newlines. No fragment is dropped, merged or rewritten.
func OrderLines(fragments []Fragment) ([]string, string) {
	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	lines := make([]string, len(sorted))
	for i, f := range sorted {
		lines[i] = f.Text
	}
	return lines, strings.Join(lines, "\n")
}

// SplitLines breaks an already joined text block back into lines.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// fold maps fullwidth punctuation and digits (common in CJK OCR output) to their
// ASCII forms so the pattern tables only need to spell one variant.
func fold(text string) string {
	return norm.NFKC.String(text)
}

package extraction

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minMerchantLen = 2
	maxMerchantLen = 30
)

// ExtractMerchant returns the first line that could be a store name: between 2
// and 30 characters once trimmed, free of structural keywords and not made up of
// digits and punctuation only.
func ExtractMerchant(lines []string) *string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !merchantCandidate(trimmed) {
			continue
		}
		return &trimmed
	}
	return nil
}

func merchantCandidate(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < minMerchantLen || n > maxMerchantLen {
		return false
	}
	if structural(s) {
		return false
	}
	return !numericOnly(s)
}

func structural(s string) bool {
	for _, kw := range structuralKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return structuralLatin.MatchString(s)
}

func numericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

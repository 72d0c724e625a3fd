package extraction

import "strings"

var currencySymbols = map[string]string{
	"TWD": "NT$",
	"CNY": "¥",
	"JPY": "¥",
	"USD": "$",
	"EUR": "€",
}

// CurrencySymbol maps a currency code to its display symbol. Unknown or empty
// codes fall back to "$".
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return s
	}
	return "$"
}

// DetectCurrency returns the code of the first explicit currency marker in the
// table, or fallback when the text names none. A bare "$" is not a marker.
func DetectCurrency(text, fallback string) string {
	text = fold(text)
	for _, m := range currencyMarkers {
		if m.re.MatchString(text) {
			return m.code
		}
	}
	return fallback
}

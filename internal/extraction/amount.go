package extraction

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind selects the fallback policy for receipts whose total carries no label.
type Kind int

const (
	// KindGeneral assumes the total is the largest figure on the receipt.
	KindGeneral Kind = iota
	// KindItemized assumes the total is printed before larger figures such as
	// card numbers or line items (transport receipts).
	KindItemized
)

// ParseKind maps a kind name to a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "general":
		return KindGeneral, nil
	case "itemized":
		return KindItemized, nil
	default:
		return KindGeneral, fmt.Errorf("unknown receipt kind %q", name)
	}
}

func (k Kind) String() string {
	if k == KindItemized {
		return "itemized"
	}
	return "general"
}

// pick chooses one survivor of the unanchored scan.
type pick func(first decimal.Decimal, rest ...decimal.Decimal) decimal.Decimal

// tier is one priority level of the amount cascade.
type tier struct {
	name        string
	rules       []*regexp.Regexp
	bounds      Bounds
	integerOnly bool
	// choose is set on the unanchored tier only.
	choose pick
}

// tiers returns the cascade for a receipt kind, in evaluation order.
func tiers(kind Kind) []tier {
	choose := pick(decimal.Max)
	if kind == KindItemized {
		choose = decimal.Min
	}
	return []tier{
		{name: "fare", rules: fareRules, bounds: fareBounds, integerOnly: true},
		{name: "label", rules: labelRules, bounds: labelBounds},
		{name: "fallback", rules: []*regexp.Regexp{numberToken}, bounds: fallbackBounds, choose: choose},
	}
}

// ExtractAmount returns the total of a general receipt.
func ExtractAmount(text string) decimal.NullDecimal {
	return ExtractAmountFor(text, KindGeneral)
}

// ExtractAmountFor runs the amount cascade. The first tier to yield a plausible
// figure wins and later tiers are not evaluated.
func ExtractAmountFor(text string, kind Kind) decimal.NullDecimal {
	text = fold(text)
	for _, t := range tiers(kind) {
		if v, ok := t.evaluate(text); ok {
			slog.Debug("amount found", "tier", t.name, "amount", v.String())
			return decimal.NullDecimal{Decimal: v, Valid: true}
		}
	}
	return decimal.NullDecimal{}
}

func (t tier) evaluate(text string) (decimal.Decimal, bool) {
	if t.choose != nil {
		var found []decimal.Decimal
		for _, tok := range t.rules[0].FindAllString(text, -1) {
			if v, ok := t.accept(tok); ok {
				found = append(found, v)
			}
		}
		if len(found) == 0 {
			return decimal.Decimal{}, false
		}
		return t.choose(found[0], found[1:]...), true
	}

	for _, re := range t.rules {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v, ok := t.accept(m[1]); ok {
				return v, true
			}
		}
	}
	return decimal.Decimal{}, false
}

func (t tier) accept(token string) (decimal.Decimal, bool) {
	if !amountToken.MatchString(token) {
		slog.Debug("amount candidate malformed", "tier", t.name, "token", token)
		return decimal.Decimal{}, false
	}
	v, err := ParseNumber(token)
	if err != nil {
		slog.Debug("amount candidate unparsable", "tier", t.name, "token", token, "error", err)
		return decimal.Decimal{}, false
	}
	if t.integerOnly && !v.IsInteger() {
		return decimal.Decimal{}, false
	}
	return v, t.bounds.Contains(v)
}

// Contains reports whether v lies strictly inside the bounds.
func (b Bounds) Contains(v decimal.Decimal) bool {
	return v.GreaterThan(decimal.NewFromFloat(b.Min)) && v.LessThan(decimal.NewFromFloat(b.Max))
}

// ParseNumber strips grouping separators and parses the rest as a decimal.
func ParseNumber(token string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(token), ",", "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing number %q: %w", token, err)
	}
	return d, nil
}

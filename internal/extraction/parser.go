// Package extraction turns recognized receipt text into typed fields using
// ordered rule tables: a date cascade with Minguo calendar support, a tiered
// amount cascade with plausibility bounds, and exclusion-based merchant
// selection. Every function is pure and safe for concurrent use.
package extraction

import (
	"log/slog"
	"strings"
)

type options struct {
	currency string
	kind     Kind
}

// Option adjusts a single Parse call.
type Option func(*options)

// WithCurrency sets the currency used when the text names none.
func WithCurrency(code string) Option {
	return func(o *options) {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			o.currency = code
		}
	}
}

// WithKind selects the fallback policy of the amount cascade.
func WithKind(k Kind) Option {
	return func(o *options) { o.kind = k }
}

// Parse orders the fragments top to bottom and extracts every field from the
// joined text. It always returns a complete result.
func Parse(fragments []Fragment, opts ...Option) Result {
	lines, raw := OrderLines(fragments)
	return parse(lines, raw, opts)
}

// ParseText extracts every field from an already joined text block.
func ParseText(text string, opts ...Option) Result {
	return parse(SplitLines(text), text, opts)
}

func parse(lines []string, raw string, opts []Option) Result {
	o := options{currency: DefaultCurrency, kind: KindGeneral}
	for _, opt := range opts {
		opt(&o)
	}

	res := emptyResult(raw, o.currency)
	if strings.TrimSpace(raw) == "" {
		return res
	}

	res.MerchantName = ExtractMerchant(lines)
	res.Date = ExtractDate(raw)
	res.TotalAmount = ExtractAmountFor(raw, o.kind)
	res.CurrencyCode = DetectCurrency(raw, o.currency)
	res.InvoiceNumber = ExtractInvoiceNumber(raw)
	res.SellerTaxID = ExtractSellerTaxID(raw)
	res.Items = ExtractItems(lines)

	slog.Debug("receipt parsed",
		"patterns", PatternTableVersion,
		"kind", o.kind.String(),
		"lines", len(lines),
		"has_date", res.Date != nil,
		"has_amount", res.TotalAmount.Valid,
		"has_merchant", res.MerchantName != nil,
		"items", len(res.Items),
	)
	return res
}

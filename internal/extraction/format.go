package extraction

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ItemsToText renders items as "1x Pink Drink @ $40.00" joined by "; ".
func ItemsToText(items []ParsedItem, currencyCode string) string {
	if len(items) == 0 {
		return ""
	}
	symbol := CurrencySymbol(currencyCode)
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%dx %s @ %s%s", it.Quantity, it.Name, symbol, it.UnitPrice.StringFixed(2)))
	}
	return strings.Join(parts, itemSeparator)
}

// InvoiceMeta is the invoice information rendered into expense notes.
type InvoiceMeta struct {
	InvoiceNumber *string
	SellerTaxID   *string
	Date          *civil.Date
	TotalAmount   decimal.NullDecimal
	Extra         []string
}

// InvoiceToText renders the present fields as "label:value" pairs, appends the
// non-empty extras and joins everything with " | ".
func InvoiceToText(m InvoiceMeta) string {
	var parts []string
	if m.InvoiceNumber != nil {
		parts = append(parts, "發票號:"+*m.InvoiceNumber)
	}
	if m.SellerTaxID != nil {
		parts = append(parts, "統編:"+*m.SellerTaxID)
	}
	if m.Date != nil {
		parts = append(parts, "日期:"+m.Date.String())
	}
	if m.TotalAmount.Valid {
		parts = append(parts, "總額:"+m.TotalAmount.Decimal.StringFixed(2))
	}
	for _, e := range m.Extra {
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, " | ")
}

// MetaOf collects the invoice fields of a result.
func MetaOf(r Result, extra ...string) InvoiceMeta {
	return InvoiceMeta{
		InvoiceNumber: r.InvoiceNumber,
		SellerTaxID:   r.SellerTaxID,
		Date:          r.Date,
		TotalAmount:   r.TotalAmount,
		Extra:         extra,
	}
}

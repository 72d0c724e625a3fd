package extraction

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when neither the caller nor the text names a currency.
const DefaultCurrency = "TWD"

// Fragment is one recognized line and its vertical position. The origin is at the
// bottom of the image, so larger values are higher on the page.
type Fragment struct {
	Text string  `json:"text"`
	Y    float64 `json:"y"`
}

// ParsedItem is a single purchased line item.
type ParsedItem struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// NewItem returns an item with the default quantity of one and a zero unit price.
func NewItem(name string) ParsedItem {
	return ParsedItem{Name: name, Quantity: 1, UnitPrice: decimal.Zero}
}

// Result holds the fields extracted from one recognition event. Absent fields mean
// the engine could not determine a value.
type Result struct {
	Date          *civil.Date         `json:"date"`
	TotalAmount   decimal.NullDecimal `json:"total_amount"`
	MerchantName  *string             `json:"merchant_name"`
	InvoiceNumber *string             `json:"invoice_number,omitempty"`
	SellerTaxID   *string             `json:"seller_tax_id,omitempty"`
	CurrencyCode  string              `json:"currency_code"`
	RawText       string              `json:"raw_text"`
	Items         []ParsedItem        `json:"items"`
}

// Empty reports whether no field could be extracted.
func (r Result) Empty() bool {
	return r.Date == nil && !r.TotalAmount.Valid && r.MerchantName == nil &&
		r.InvoiceNumber == nil && r.SellerTaxID == nil && len(r.Items) == 0
}

func emptyResult(rawText, currency string) Result {
	return Result{
		CurrencyCode: currency,
		RawText:      rawText,
		Items:        []ParsedItem{},
	}
}

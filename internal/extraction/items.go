package extraction

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// itemSeparator joins items on one line, as written by ItemsToText.
const itemSeparator = "; "

// ExtractItems parses quantity-bearing item lines. Lines with structural keywords
// are skipped. Two forms are understood:
//
//	2x Pink Drink @ NT$40.00   (unit price)
//	Pink Drink x2 80           (line total)
func ExtractItems(lines []string) []ParsedItem {
	items := []ParsedItem{}
	for _, line := range lines {
		line = strings.TrimSpace(fold(line))
		if line == "" || structural(line) {
			continue
		}
		for _, seg := range strings.Split(line, itemSeparator) {
			if it, ok := parseItem(strings.TrimSpace(seg)); ok {
				items = append(items, it)
			}
		}
	}
	return items
}

func parseItem(s string) (ParsedItem, bool) {
	if m := itemUnitPrice.FindStringSubmatch(s); m != nil {
		return buildItem(m[2], m[1], m[3], false)
	}
	if m := itemLineTotal.FindStringSubmatch(s); m != nil {
		return buildItem(m[1], m[2], m[3], true)
	}
	return ParsedItem{}, false
}

func buildItem(name, qty, price string, lineTotal bool) (ParsedItem, bool) {
	it := NewItem(strings.TrimSpace(name))
	if it.Name == "" {
		return ParsedItem{}, false
	}
	n, err := strconv.Atoi(qty)
	if err != nil || n <= 0 {
		slog.Debug("item quantity rejected", "name", name, "quantity", qty)
		return ParsedItem{}, false
	}
	it.Quantity = n

	p, err := ParseNumber(price)
	if err != nil {
		slog.Debug("item price rejected", "name", name, "error", err)
		return ParsedItem{}, false
	}
	if lineTotal {
		p = p.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	it.UnitPrice = p
	return it, true
}

// ExtractInvoiceNumber finds a Taiwan e-invoice number (two letters, eight digits)
// and returns it in AB-12345678 form.
func ExtractInvoiceNumber(text string) *string {
	text = fold(text)
	for _, re := range invoiceNumberRules {
		if m := re.FindStringSubmatch(text); m != nil {
			v := m[1] + "-" + m[2]
			return &v
		}
	}
	return nil
}

// ExtractSellerTaxID finds the eight digit seller tax ID (統一編號).
func ExtractSellerTaxID(text string) *string {
	if m := sellerTaxIDRule.FindStringSubmatch(fold(text)); m != nil {
		v := m[1]
		return &v
	}
	return nil
}

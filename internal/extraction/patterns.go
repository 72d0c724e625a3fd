package extraction

import "regexp"

// PatternTableVersion identifies the rule tables below. Bump it whenever a pattern,
// bound or keyword changes so stored results can be traced to the rules that made them.
const PatternTableVersion = "2025.12-3"

// number captures a whole run of digits, dots and commas. Runs that are not a
// well formed amount are rejected by amountToken rather than cut short, so
// "12.345" never reads as 12.34.
const number = `(\d(?:[\d.,]*\d)?)`

// amountToken is the shape every candidate must have: optional grouping
// separators and at most two decimal places.
var amountToken = regexp.MustCompile(`^\d[\d,]*(?:\.\d{1,2})?$`)

// Bounds is an open numeric range (Min, Max) used to reject OCR noise.
type Bounds struct {
	Min float64
	Max float64
}

var (
	// fareBounds applies to domain anchors (taxi fares).
	fareBounds = Bounds{Min: 50, Max: 10000}
	// labelBounds applies to keyword and currency anchored totals.
	labelBounds = Bounds{Min: 10, Max: 100000}
	// fallbackBounds applies to the unanchored scan.
	fallbackBounds = Bounds{Min: 10, Max: 100000}
)

// fareRules are the domain-specific anchors. They only accept whole numbers.
var fareRules = []*regexp.Regexp{
	// 車資(Total,$):285
	regexp.MustCompile(`(?i)車資\s*\(\s*(?:total|fare)\s*,\s*(?:NT)?\$\s*\)\s*:?\s*` + number),
	// Total(車資):$285
	regexp.MustCompile(`(?i)(?:total|fare)\s*\(\s*車資\s*\)\s*:?\s*(?:NT)?\$?\s*` + number),
	// 車資 Fare NT$285
	regexp.MustCompile(`(?i)車資\s*(?:total|fare)\s*:?\s*(?:NT)?\$\s*` + number),
}

// labelTail follows a total label: optional colon, optional currency marker, figure.
const labelTail = `\s*:?\s*(?:NT\$?|TWD|US\$|\$)?\s*` + number

// labelRules are the keyword anchored totals, in priority order: localized total
// labels first, then currency markers.
var labelRules = []*regexp.Regexp{
	regexp.MustCompile(`(?i)總[計額]` + labelTail),
	regexp.MustCompile(`(?i)合\s*計` + labelTail),
	regexp.MustCompile(`(?i)金\s*額` + labelTail),
	regexp.MustCompile(`(?i)實付` + labelTail),
	regexp.MustCompile(`(?i)應付` + labelTail),
	regexp.MustCompile(`(?i)\b(?:grand\s+)?total` + labelTail),
	regexp.MustCompile(`(?i)\bamount(?:\s+due)?` + labelTail),
	regexp.MustCompile(`(?i)小\s*計` + labelTail),
	regexp.MustCompile(`(?i)\bsub\s*-?\s*total` + labelTail),
	regexp.MustCompile(`\bNT\$?\s*` + number),
	regexp.MustCompile(`\bTWD\s*` + number),
	regexp.MustCompile(`\$\s*` + number),
	regexp.MustCompile(number + `\s*元`),
}

// numberToken matches every digit run in the unanchored scan.
var numberToken = regexp.MustCompile(number)

type dateOrder int

const (
	yearMonthDay dateOrder = iota
	monthDayYear
)

type dateRule struct {
	name   string
	re     *regexp.Regexp
	order  dateOrder
	minguo bool
	swap   bool
}

// dateRules are tried in order. The US rule fixes month-first order, so it never swaps.
var dateRules = []dateRule{
	{
		name:  "ymd",
		re:    regexp.MustCompile(`(?:^|\D)(\d{4})[/.\-](\d{1,2})[/.\-](\d{1,2})(?:\D|$)`),
		order: yearMonthDay,
		swap:  true,
	},
	{
		name:  "mdy",
		re:    regexp.MustCompile(`(?:^|\D)(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})(?:\D|$)`),
		order: monthDayYear,
	},
	{
		name:   "minguo",
		re:     regexp.MustCompile(`(?:^|\D)(\d{3})[/.\-](\d{1,2})[/.\-](\d{1,2})(?:\D|$)`),
		order:  yearMonthDay,
		minguo: true,
		swap:   true,
	},
	{
		name:   "cjk",
		re:     regexp.MustCompile(`(\d{2,4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`),
		order:  yearMonthDay,
		minguo: true,
		swap:   true,
	},
}

// structuralKeywords disqualify a line from being a merchant name or an item:
// tax ID, invoice, date, time, amount, totals, change due, cash, credit card.
var structuralKeywords = []string{
	"統一編號", "統編", "發票", "日期", "時間", "金額",
	"總計", "總額", "合計", "小計", "找零", "現金", "信用卡",
}

// structuralLatin covers the same labels on English receipts.
var structuralLatin = regexp.MustCompile(`(?i)\b(?:tax\s*id|invoice|date|time|amount|(?:sub\s*-?\s*)?total|change|cash|credit\s*card)\b`)

type currencyMarker struct {
	code string
	re   *regexp.Regexp
}

var currencyMarkers = []currencyMarker{
	{code: "TWD", re: regexp.MustCompile(`\b(?:TWD|NTD)(?:[^A-Za-z]|$)|NT\$`)},
	{code: "USD", re: regexp.MustCompile(`\bUSD(?:[^A-Za-z]|$)|US\$`)},
	{code: "EUR", re: regexp.MustCompile(`\bEUR(?:[^A-Za-z]|$)|€`)},
	{code: "JPY", re: regexp.MustCompile(`\bJPY(?:[^A-Za-z]|$)|円`)},
	{code: "CNY", re: regexp.MustCompile(`\b(?:CNY|RMB)(?:[^A-Za-z]|$)|人民幣`)},
}

var (
	invoiceNumberRules = []*regexp.Regexp{
		regexp.MustCompile(`\b([A-Z]{2})-(\d{8})\b`),
		regexp.MustCompile(`發票[^\n]*?\b([A-Z]{2})(\d{8})\b`),
	}
	sellerTaxIDRule = regexp.MustCompile(`(?:統一編號|統編|賣方)\s*:?\s*(\d{8})(?:\D|$)`)
)

const priceSymbol = `(?:NT\$|US\$|[$¥€])?`

var (
	// 2x Pink Drink @ $40.00
	itemUnitPrice = regexp.MustCompile(`^(\d+)\s*[xX*]\s*(.+?)\s*@\s*` + priceSymbol + `\s*(\d[\d,]*(?:\.\d{1,2})?)$`)
	// Pink Drink x2 80
	itemLineTotal = regexp.MustCompile(`^(.+?)\s+[xX*]\s*(\d+)\s+` + priceSymbol + `\s*(\d[\d,]*(?:\.\d{1,2})?)$`)
)

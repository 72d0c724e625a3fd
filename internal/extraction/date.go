package extraction

import (
	"log/slog"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
)

// minguoOffset converts a Republic of China (Minguo) year to a Gregorian year.
const minguoOffset = 1911

// MinguoYear returns the Gregorian year for a year component. Values below 200
// are taken as Minguo years; anything else is returned unchanged.
func MinguoYear(year int) int {
	if year < 200 {
		return year + minguoOffset
	}
	return year
}

// SwapMonthDay swaps month and day when the month slot cannot be a month, which
// handles day-first input in a month-first position.
func SwapMonthDay(month, day int) (int, int) {
	if month > 12 {
		return day, month
	}
	return month, day
}

// ValidDate builds a calendar date and reports whether it exists.
func ValidDate(year, month, day int) (civil.Date, bool) {
	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if year <= 0 || !d.IsValid() {
		return civil.Date{}, false
	}
	return d, true
}

// ExtractDate returns the first valid calendar date found by the date rules, in
// rule priority order.
func ExtractDate(text string) *civil.Date {
	text = fold(text)
	for _, rule := range dateRules {
		for _, m := range rule.re.FindAllStringSubmatch(text, -1) {
			if d, ok := rule.resolve(m[1], m[2], m[3]); ok {
				return &d
			}
			slog.Debug("date candidate rejected", "rule", rule.name, "match", m[0])
		}
	}
	return nil
}

func (r dateRule) resolve(a, b, c string) (civil.Date, bool) {
	parts := make([]int, 3)
	for i, s := range []string{a, b, c} {
		n, err := strconv.Atoi(s)
		if err != nil {
			return civil.Date{}, false
		}
		parts[i] = n
	}

	var year, month, day int
	switch r.order {
	case monthDayYear:
		month, day, year = parts[0], parts[1], parts[2]
	default:
		year, month, day = parts[0], parts[1], parts[2]
	}
	if r.minguo {
		year = MinguoYear(year)
	}
	if r.swap {
		month, day = SwapMonthDay(month, day)
	}
	return ValidDate(year, month, day)
}

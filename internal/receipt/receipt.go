package receipt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when an expense or trip does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAssigned is returned when an expense already belongs to a trip
	ErrAlreadyAssigned = errors.New("expense already assigned to a trip")
	// ErrInvalidInput is returned when a request fails validation
	ErrInvalidInput = errors.New("invalid input")
)

// Category groups expenses for trip statistics
type Category string

const (
	CategoryTransport     Category = "transport"
	CategoryLodging       Category = "lodging"
	CategoryFood          Category = "food"
	CategoryTelecom       Category = "telecom"
	CategoryMiscellaneous Category = "miscellaneous"
)

// Categories lists every category in display order
var Categories = []Category{
	CategoryTransport,
	CategoryLodging,
	CategoryFood,
	CategoryTelecom,
	CategoryMiscellaneous,
}

// ParseCategory validates a category name. Empty means miscellaneous.
func ParseCategory(name string) (Category, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return CategoryMiscellaneous, nil
	}
	for _, c := range Categories {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q: %w", name, ErrInvalidInput)
}

// Expense is a single travel expense, usually drafted from a scanned receipt
type Expense struct {
	ID               string          `json:"id"`
	TripID           string          `json:"trip_id,omitempty"`
	StoreName        string          `json:"store_name,omitempty"`
	Date             civil.Date      `json:"date"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Notes            string          `json:"notes,omitempty"`
	Category         Category        `json:"category"`
	Filename         string          `json:"filename,omitempty"`
	ContentType      string          `json:"content_type,omitempty"`
	AIProcessed      bool            `json:"ai_processed"`
	AIDetectedAt     *time.Time      `json:"ai_detected_at,omitempty"`
	ManuallyVerified bool            `json:"manually_verified"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ReadyToSave reports whether a scanned draft has been reviewed and carries an amount
func (e *Expense) ReadyToSave() bool {
	return e.AIProcessed && e.ManuallyVerified && e.Amount.IsPositive()
}

// ExpenseUpdate holds user corrections applied during review. Nil fields are kept.
type ExpenseUpdate struct {
	StoreName *string             `json:"store_name,omitempty"`
	Date      *civil.Date         `json:"date,omitempty"`
	Amount    decimal.NullDecimal `json:"amount"`
	Currency  *string             `json:"currency,omitempty"`
	Notes     *string             `json:"notes,omitempty"`
	Category  *Category           `json:"category,omitempty"`
}

// Trip collects the expenses of one journey
type Trip struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Destination   string              `json:"destination,omitempty"`
	StartDate     civil.Date          `json:"start_date"`
	EndDate       civil.Date          `json:"end_date"`
	Budget        decimal.NullDecimal `json:"budget"`
	Notes         string              `json:"notes,omitempty"`
	ExpenseIDs    []string            `json:"expense_ids"`
	TotalExpenses decimal.Decimal     `json:"total_expenses"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// DurationDays counts both the start and end day
func (t *Trip) DurationDays() int {
	return t.EndDate.DaysSince(t.StartDate) + 1
}

// TripSummary is a trip with its expenses, remaining budget and per-category totals.
// Unreviewed counts expenses that are not ReadyToSave.
type TripSummary struct {
	Trip       *Trip                        `json:"trip"`
	Days       int                          `json:"duration_days"`
	Expenses   []*Expense                   `json:"expenses"`
	Unreviewed int                          `json:"unreviewed"`
	Remaining  decimal.NullDecimal          `json:"remaining_budget"`
	ByCategory map[Category]decimal.Decimal `json:"by_category"`
}

// TripInput describes a trip to create
type TripInput struct {
	Name        string              `json:"name"`
	Destination string              `json:"destination"`
	StartDate   civil.Date          `json:"start_date"`
	EndDate     civil.Date          `json:"end_date"`
	Budget      decimal.NullDecimal `json:"budget"`
	Notes       string              `json:"notes"`
	ExpenseIDs  []string            `json:"expense_ids"`
}

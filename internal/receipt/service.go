package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/travel-receipt/internal/extraction"
	"github.com/zombor/travel-receipt/internal/scanning"
)

// IDGenerator generates unique IDs for expenses and trips
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// ReceiptScanner recognizes a receipt image and extracts its fields
type ReceiptScanner interface {
	Scan(ctx context.Context, session string, imageData []byte, contentType string) (*scanning.Scan, error)
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles expense and trip operations
type Service struct {
	db          DB
	scanner     ReceiptScanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
	parseOpts   []extraction.Option

	// mu serializes changes that touch an expense and its trip together
	mu sync.Mutex
}

// NewService creates a new Service with default ID generator and time source.
// The options apply to ParseText; scanned receipts use the scanner's own options.
func NewService(db DB, scanner ReceiptScanner, storage Storage, opts ...extraction.Option) *Service {
	return NewServiceWithDeps(db, scanner, storage, &defaultIDGenerator{}, &defaultTimeSource{}, opts...)
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner ReceiptScanner, storage Storage, idGen IDGenerator, timeSrc TimeSource, opts ...extraction.Option) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
		parseOpts:   opts,
	}
}

var (
	filenameUnsafe = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	filenameSpaces = regexp.MustCompile(`\s+`)
	filenameExt    = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)
)

// sanitizeFilename strips phone-generated noise from an upload name. Letters of any
// script are kept so Chinese file names survive.
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = filenameUnsafe.ReplaceAllString(base, "")
	base = filenameSpaces.ReplaceAllString(base, "_")
	base = strings.Trim(base, "_")

	if r := []rune(base); len(r) > 50 {
		base = string(r[:50])
	}
	if base == "" {
		base = "receipt"
	}
	if filenameExt.MatchString(ext) {
		return base + ext
	}
	return base
}

// ParseText runs the extraction engine over already recognized text. The options
// override the service defaults.
func (s *Service) ParseText(text string, opts ...extraction.Option) extraction.Result {
	return extraction.ParseText(text, append(append([]extraction.Option{}, s.parseOpts...), opts...)...)
}

// ParseFragments runs the extraction engine over positioned lines
func (s *Service) ParseFragments(fragments []extraction.Fragment, opts ...extraction.Option) extraction.Result {
	return extraction.Parse(fragments, append(append([]extraction.Option{}, s.parseOpts...), opts...)...)
}

// Scan recognizes a receipt for a live preview without storing anything.
// A newer Scan for the same session makes this one fail with scanning.ErrStaleResult.
func (s *Service) Scan(ctx context.Context, session string, data []byte, contentType string) (*scanning.Scan, error) {
	scan, err := s.scanner.Scan(ctx, session, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}
	return scan, nil
}

// expenseNotes combines the item list and invoice metadata, one per line
func expenseNotes(r extraction.Result) string {
	var parts []string
	if items := extraction.ItemsToText(r.Items, r.CurrencyCode); items != "" {
		parts = append(parts, items)
	}
	if invoice := extraction.InvoiceToText(extraction.MetaOf(r)); invoice != "" {
		parts = append(parts, invoice)
	}
	return strings.Join(parts, "\n")
}

// draftExpense turns a scan into an unverified expense. Missing fields get the
// same defaults a user would start from: today, zero amount, miscellaneous.
func draftExpense(id string, r extraction.Result, now time.Time) *Expense {
	expense := &Expense{
		ID:        id,
		Date:      civil.DateOf(now),
		Amount:    decimal.Zero,
		Currency:  r.CurrencyCode,
		Notes:     expenseNotes(r),
		Category:  CategoryMiscellaneous,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if r.MerchantName != nil {
		expense.StoreName = *r.MerchantName
	}
	if r.Date != nil {
		expense.Date = *r.Date
	}
	if r.TotalAmount.Valid {
		expense.Amount = r.TotalAmount.Decimal
	}
	if !r.Empty() {
		expense.AIProcessed = true
		expense.AIDetectedAt = &now
	}
	return expense
}

// ProcessReceipt stores a receipt image, scans it and saves an unverified expense
// draft. When tripID is set the expense is added to that trip.
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string, tripID string) (*Expense, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	var trip *Trip
	if tripID != "" {
		t, err := s.db.GetTrip(tripID)
		if err != nil {
			return nil, fmt.Errorf("getting trip: %w", err)
		}
		trip = t
	}

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	// Each upload is its own session so it can never be superseded
	scan, err := s.scanner.Scan(ctx, id, data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	expense := draftExpense(id, scan.Result, now)
	expense.Filename = savedPath
	expense.ContentType = contentType

	if trip != nil {
		expense.TripID = trip.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.SaveExpense(expense); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving expense to database: %w", err)
	}
	if trip != nil {
		_, err := s.db.UpdateTrip(trip.ID, func(t *Trip) error {
			t.ExpenseIDs = append(t.ExpenseIDs, expense.ID)
			t.TotalExpenses = t.TotalExpenses.Add(expense.Amount)
			t.UpdatedAt = now
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("updating trip %s: %w", trip.ID, err)
		}
	}

	slog.Info("Drafted expense from receipt",
		"id", expense.ID,
		"ai_processed", expense.AIProcessed,
		"seq", scan.Seq,
	)
	return expense, nil
}

// GetExpense retrieves an expense by ID
func (s *Service) GetExpense(id string) (*Expense, error) {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	return expense, nil
}

// ListExpenses returns all expenses, newest first
func (s *Service) ListExpenses() ([]*Expense, error) {
	expenses, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	sortExpenses(expenses)
	return expenses, nil
}

func sortExpenses(expenses []*Expense) {
	sort.SliceStable(expenses, func(i, j int) bool {
		if expenses[i].Date != expenses[j].Date {
			return expenses[i].Date.After(expenses[j].Date)
		}
		return expenses[i].CreatedAt.After(expenses[j].CreatedAt)
	})
}

// DeleteExpense removes an expense, its file and its trip membership
func (s *Service) DeleteExpense(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expense, err := s.db.GetExpense(id)
	if err != nil {
		return fmt.Errorf("getting expense for deletion: %w", err)
	}

	if expense.TripID != "" {
		if err := s.detach(expense); err != nil {
			return err
		}
	}

	if expense.Filename != "" {
		if err := s.storage.Delete(expense.Filename); err != nil {
			slog.Warn("Failed to delete file", "filename", expense.Filename, "error", err)
		}
	}

	if err := s.db.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense from database: %w", err)
	}
	return nil
}

func (s *Service) detach(expense *Expense) error {
	now := s.timeSource.Now()
	_, err := s.db.UpdateTrip(expense.TripID, func(t *Trip) error {
		ids := make([]string, 0, len(t.ExpenseIDs))
		for _, eid := range t.ExpenseIDs {
			if eid != expense.ID {
				ids = append(ids, eid)
			}
		}
		t.ExpenseIDs = ids
		t.TotalExpenses = t.TotalExpenses.Sub(expense.Amount)
		t.UpdatedAt = now
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("updating trip %s: %w", expense.TripID, err)
	}
	return nil
}

// GetExpenseFile retrieves the receipt image of an expense
func (s *Service) GetExpenseFile(id string) ([]byte, string, error) {
	expense, err := s.db.GetExpense(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense: %w", err)
	}
	if expense.Filename == "" {
		return nil, "", fmt.Errorf("expense %s has no file: %w", id, ErrNotFound)
	}

	data, err := s.storage.Get(expense.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense file: %w", err)
	}

	return data, expense.ContentType, nil
}

// VerifyExpense applies the user's review of a draft and marks it verified
func (s *Service) VerifyExpense(id string, update ExpenseUpdate) (*Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expense, err := s.db.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}

	if update.Amount.Valid && update.Amount.Decimal.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative: %w", ErrInvalidInput)
	}
	if update.Date != nil && !update.Date.IsValid() {
		return nil, fmt.Errorf("invalid date %s: %w", update.Date, ErrInvalidInput)
	}

	previous := expense.Amount
	if update.StoreName != nil {
		expense.StoreName = strings.TrimSpace(*update.StoreName)
	}
	if update.Date != nil {
		expense.Date = *update.Date
	}
	if update.Amount.Valid {
		expense.Amount = update.Amount.Decimal
	}
	if update.Currency != nil {
		expense.Currency = strings.ToUpper(strings.TrimSpace(*update.Currency))
	}
	if update.Notes != nil {
		expense.Notes = *update.Notes
	}
	if update.Category != nil {
		c, err := ParseCategory(string(*update.Category))
		if err != nil {
			return nil, err
		}
		expense.Category = c
	}
	expense.ManuallyVerified = true
	expense.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveExpense(expense); err != nil {
		return nil, fmt.Errorf("saving expense: %w", err)
	}

	if expense.TripID != "" && !previous.Equal(expense.Amount) {
		_, err := s.db.UpdateTrip(expense.TripID, func(t *Trip) error {
			t.TotalExpenses = t.TotalExpenses.Sub(previous).Add(expense.Amount)
			t.UpdatedAt = expense.UpdatedAt
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("updating trip %s: %w", expense.TripID, err)
		}
	}

	return expense, nil
}

// CreateTrip creates a trip and assigns the given expenses to it
func (s *Service) CreateTrip(input TripInput) (*Trip, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("trip name is required: %w", ErrInvalidInput)
	}
	if !input.StartDate.IsValid() || !input.EndDate.IsValid() {
		return nil, fmt.Errorf("trip start and end dates are required: %w", ErrInvalidInput)
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, fmt.Errorf("trip ends before it starts: %w", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.timeSource.Now()
	id := s.idGenerator.Generate()

	expenseIDs := uniqueIDs(input.ExpenseIDs)

	// Validate all expenses exist and calculate total
	total := decimal.Zero
	expenses := make([]*Expense, 0, len(expenseIDs))
	for _, expenseID := range expenseIDs {
		expense, err := s.db.GetExpense(expenseID)
		if err != nil {
			return nil, fmt.Errorf("getting expense %s: %w", expenseID, err)
		}
		if expense.TripID != "" {
			return nil, fmt.Errorf("expense %s: %w", expenseID, ErrAlreadyAssigned)
		}
		total = total.Add(expense.Amount)
		expenses = append(expenses, expense)
	}

	trip := &Trip{
		ID:            id,
		Name:          name,
		Destination:   strings.TrimSpace(input.Destination),
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		Budget:        input.Budget,
		Notes:         input.Notes,
		ExpenseIDs:    expenseIDs,
		TotalExpenses: total,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.db.SaveTrip(trip); err != nil {
		return nil, fmt.Errorf("saving trip: %w", err)
	}

	for _, expense := range expenses {
		expense.TripID = id
		expense.UpdatedAt = now
		if err := s.db.SaveExpense(expense); err != nil {
			return nil, fmt.Errorf("updating expense %s: %w", expense.ID, err)
		}
	}

	return trip, nil
}

// uniqueIDs drops blank and repeated ids, keeping the first occurrence order
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// GetTrip retrieves a trip by ID
func (s *Service) GetTrip(id string) (*Trip, error) {
	trip, err := s.db.GetTrip(id)
	if err != nil {
		return nil, fmt.Errorf("getting trip: %w", err)
	}
	return trip, nil
}

// GetTripWithExpenses retrieves a trip with its expenses and spending summary
func (s *Service) GetTripWithExpenses(id string) (*TripSummary, error) {
	trip, err := s.db.GetTrip(id)
	if err != nil {
		return nil, fmt.Errorf("getting trip: %w", err)
	}

	summary := &TripSummary{
		Trip:       trip,
		Days:       trip.DurationDays(),
		Expenses:   make([]*Expense, 0, len(trip.ExpenseIDs)),
		ByCategory: make(map[Category]decimal.Decimal),
	}
	for _, expenseID := range trip.ExpenseIDs {
		expense, err := s.db.GetExpense(expenseID)
		if err != nil {
			return nil, fmt.Errorf("getting expense %s: %w", expenseID, err)
		}
		summary.Expenses = append(summary.Expenses, expense)
		if !expense.ReadyToSave() {
			summary.Unreviewed++
		}
		summary.ByCategory[expense.Category] = summary.ByCategory[expense.Category].Add(expense.Amount)
	}
	sortExpenses(summary.Expenses)

	if trip.Budget.Valid && trip.Budget.Decimal.IsPositive() {
		summary.Remaining = decimal.NewNullDecimal(trip.Budget.Decimal.Sub(trip.TotalExpenses))
	}

	return summary, nil
}

// ListTrips returns all trips, latest start first
func (s *Service) ListTrips() ([]*Trip, error) {
	trips, err := s.db.ListTrips()
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	sort.SliceStable(trips, func(i, j int) bool {
		return trips[i].StartDate.After(trips[j].StartDate)
	})
	return trips, nil
}

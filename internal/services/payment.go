package services

import (
	"context"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/emsdesk/apiserver/internal/reports"
	"github.com/emsdesk/apiserver/types"
)

const (
	DefaultPaymentPage  = 1
	DefaultPaymentLimit = 10
	MaxPaymentLimit     = 100
)

// PaymentRepository defines persistence operations for payment histories.
type PaymentRepository interface {
	GetByEmail(ctx context.Context, email string) (types.PaymentRecord, error)
}

// PaymentGateway creates payment intents with a payment provider.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (types.PaymentIntent, error)
}

// PaymentService encapsulates payment history and payment intent use-cases.
type PaymentService struct {
	repo     PaymentRepository
	gateway  PaymentGateway
	currency string
	now      func() time.Time
}

// NewPaymentService constructs a PaymentService. gateway may be nil, in
// which case intents are unavailable.
func NewPaymentService(repo PaymentRepository, gateway PaymentGateway, currency string) *PaymentService {
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{repo: repo, gateway: gateway, currency: currency, now: time.Now}
}

// History returns one page of the employee's payments, newest first.
func (s *PaymentService) History(ctx context.Context, email string, page, limit int) (types.PaymentPage, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return types.PaymentPage{}, invalidInput("email is required")
	}
	if page < 1 {
		return types.PaymentPage{}, invalidInput("invalid page")
	}
	if limit < 1 {
		return types.PaymentPage{}, invalidInput("invalid limit")
	}
	if limit > MaxPaymentLimit {
		limit = MaxPaymentLimit
	}

	record, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return types.PaymentPage{}, err
	}

	sorted := sortPayments(record.Payments)
	items, totalPages := paginate(sorted, page, limit)
	return types.PaymentPage{
		Email:       record.Email,
		Designation: record.Designation,
		Payments:    items,
		Page:        page,
		Limit:       limit,
		TotalCount:  len(sorted),
		TotalPages:  totalPages,
	}, nil
}

// Statement writes the employee's full payment history as a PDF.
func (s *PaymentService) Statement(ctx context.Context, email string, w io.Writer) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return invalidInput("email is required")
	}
	record, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return reports.RenderStatement(w, reports.Statement{
		Email:       record.Email,
		Designation: record.Designation,
		Payments:    sortPayments(record.Payments),
		GeneratedAt: s.now().UTC(),
	})
}

// CreateIntent starts a payment of amount (in major currency units) for
// the employee.
func (s *PaymentService) CreateIntent(ctx context.Context, amount any, employeeID string) (types.PaymentIntent, error) {
	if s.gateway == nil {
		return types.PaymentIntent{}, unavailable("payments are not configured")
	}
	value, err := ParseSalary(amount)
	if err != nil || value == 0 {
		return types.PaymentIntent{}, invalidInput("amount must be a positive number")
	}
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return types.PaymentIntent{}, invalidInput("employeeId is required")
	}

	cents := int64(math.Round(value * 100))
	return s.gateway.CreateIntent(ctx, cents, s.currency, map[string]string{"employeeId": employeeID})
}

// sortPayments returns a copy of entries ordered by year, then calendar
// month, both descending. Unknown month names sort last within a year.
func sortPayments(entries []types.PaymentEntry) []types.PaymentEntry {
	sorted := make([]types.PaymentEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year > sorted[j].Year
		}
		return types.MonthIndex(sorted[i].Month) > types.MonthIndex(sorted[j].Month)
	})
	return sorted
}

func paginate(entries []types.PaymentEntry, page, limit int) ([]types.PaymentEntry, int) {
	totalPages := int(math.Ceil(float64(len(entries)) / float64(limit)))
	start := (page - 1) * limit
	if start >= len(entries) {
		return []types.PaymentEntry{}, totalPages
	}
	end := start + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end], totalPages
}

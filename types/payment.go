package types

import (
	"strings"
	"time"
)

// PaymentRecord is the payment history of one employee.
type PaymentRecord struct {
	ID          any            `json:"_id,omitempty" bson:"_id,omitempty"`
	Email       string         `json:"email" bson:"email"`
	Designation string         `json:"designation" bson:"designation"`
	Payments    []PaymentEntry `json:"payments" bson:"payments"`
}

// PaymentEntry is a single monthly payment.
type PaymentEntry struct {
	Month     string         `json:"month" bson:"month"`
	Year      int            `json:"year" bson:"year"`
	Amount    float64        `json:"amount" bson:"amount"`
	PaymentID string         `json:"paymentId,omitempty" bson:"paymentId,omitempty"`
	PayrollID string         `json:"payrollId,omitempty" bson:"payrollId,omitempty"`
	PaidAt    *time.Time     `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// PaymentPage is one page of an employee's sorted payment history.
type PaymentPage struct {
	Email       string         `json:"email"`
	Designation string         `json:"designation"`
	Payments    []PaymentEntry `json:"payments"`
	Page        int            `json:"page"`
	Limit       int            `json:"limit"`
	TotalCount  int            `json:"totalCount"`
	TotalPages  int            `json:"totalPages"`
}

var months = [...]string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// MonthIndex returns the zero-based calendar position of a month name,
// case-insensitively, or -1 when the name is not recognised.
func MonthIndex(name string) int {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, m := range months {
		if m == name {
			return i
		}
	}
	return -1
}

// MonthName returns the canonical capitalised name for a month index.
func MonthName(index int) string {
	if index < 0 || index >= len(months) {
		return ""
	}
	m := months[index]
	return strings.ToUpper(m[:1]) + m[1:]
}

// PaymentIntent is a payment provider intent the client confirms.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

package types

import "time"

// Payroll request statuses.
const (
	PayrollPending  = "pending"
	PayrollApproved = "approved"
	PayrollRejected = "rejected"
	PayrollPaid     = "paid"
)

// PayrollRequest is a request to pay an employee. The employee fields are a
// snapshot taken at request time; later edits to the user never reach it.
type PayrollRequest struct {
	// ID is the request identifier. New requests carry an ObjectID.
	ID any `json:"_id,omitempty" bson:"_id,omitempty"`

	// EmployeeID is the identifier of the user the snapshot was taken from.
	EmployeeID string `json:"employeeId" bson:"employeeId"`

	Email       string  `json:"email" bson:"email"`
	Name        string  `json:"name" bson:"name"`
	PhotoURL    string  `json:"photoURL" bson:"photoURL"`
	Role        string  `json:"role" bson:"role"`
	Designation string  `json:"designation" bson:"designation"`
	Salary      float64 `json:"salary" bson:"salary"`

	PerformanceReview string `json:"performanceReview,omitempty" bson:"performanceReview,omitempty"`

	// EmployeeStatus is the employee's active or fired status at request
	// time. Status below is the request's own status.
	EmployeeStatus string `json:"employeeStatus,omitempty" bson:"employeeStatus,omitempty"`

	IsVerified    bool   `json:"isVerified" bson:"isVerified"`
	BankAccountNo string `json:"bank_account_no,omitempty" bson:"bank_account_no,omitempty"`

	// Month is the calendar month name the payment covers.
	Month string `json:"month,omitempty" bson:"month,omitempty"`

	// Year is the calendar year the payment covers.
	Year int `json:"year,omitempty" bson:"year,omitempty"`

	// Amount to pay. Defaults to the snapshot salary.
	Amount float64 `json:"amount" bson:"amount"`

	// Status is one of pending, approved, rejected or paid.
	Status string `json:"status" bson:"status"`

	// ApprovedBy is the identity of the caller that last changed the status.
	ApprovedBy string `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`

	// ApprovedAt is when the status was last changed.
	ApprovedAt *time.Time `json:"approvedAt,omitempty" bson:"approvedAt,omitempty"`

	// PaymentID is the payment provider reference once paid.
	PaymentID string `json:"paymentId,omitempty" bson:"paymentId,omitempty"`

	// PaidAt is when the payment was recorded.
	PaidAt *time.Time `json:"paidAt,omitempty" bson:"paidAt,omitempty"`

	// CreatedAt is when the request was filed.
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

package types

import "strings"

// Roles and statuses recognised for users. Stored values are lower case.
const (
	RoleEmployee = "employee"
	RoleHR       = "hr"
	RoleAdmin    = "admin"

	StatusActive = "active"
	StatusFired  = "fired"
)

// User represents an employee account.
// Accounts are created by an upsert keyed on email and are never deleted;
// firing only flips the status.
type User struct {
	// ID is the document identifier. Documents created by this service
	// carry an ObjectID, legacy documents may carry a plain string.
	ID any `json:"_id,omitempty" bson:"_id,omitempty"`

	// Email is the unique, required identity of the account.
	Email string `json:"email" bson:"email"`

	// Name is the user's display name.
	Name string `json:"name" bson:"name"`

	// PhotoURL links to the profile photo. Empty when not provided.
	PhotoURL string `json:"photoURL" bson:"photoURL"`

	// Role is one of "employee", "hr" or "admin".
	Role string `json:"role" bson:"role"`

	// Salary is the monthly salary. Always stored as a number.
	Salary float64 `json:"salary" bson:"salary"`

	// Designation is the job title.
	Designation string `json:"designation" bson:"designation"`

	// PerformanceReview holds free-form review notes.
	PerformanceReview string `json:"performanceReview" bson:"performanceReview"`

	// Status is "active" or "fired".
	Status string `json:"status" bson:"status"`

	// IsVerified is set by HR once the account has been checked.
	// Absent in storage means not verified.
	IsVerified bool `json:"isVerified" bson:"isVerified"`

	// BankAccountNo is an optional payout reference supplied at signup.
	BankAccountNo string `json:"bank_account_no,omitempty" bson:"bank_account_no,omitempty"`
}

// NormalizeRole lower-cases and trims a role value.
func NormalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}

// UpsertResult reports the effect of an upsert keyed by email.
type UpsertResult struct {
	InsertedID    any   `json:"insertedId,omitempty"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

// Created reports whether the upsert inserted a new document.
func (r UpsertResult) Created() bool {
	return r.InsertedID != nil
}

// Caller is the authenticated identity attached to a request.
type Caller struct {
	UID           string `json:"uid"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// Identity returns the value recorded in audit fields such as approvedBy.
func (c Caller) Identity() string {
	if c.Email != "" {
		return c.Email
	}
	return c.UID
}

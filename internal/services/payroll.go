package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/emsdesk/apiserver/internal/store"
	"github.com/emsdesk/apiserver/types"
)

// PayrollRepository defines persistence operations for payroll requests.
type PayrollRepository interface {
	List(ctx context.Context) ([]types.PayrollRequest, error)
	Insert(ctx context.Context, req types.PayrollRequest) (any, error)
	GetByID(ctx context.Context, rawID string) (types.PayrollRequest, error)
	ApplyTransition(ctx context.Context, rawID string, t store.Transition) (store.Outcome, error)
}

// EmployeeLookup resolves an employee by either identifier form.
type EmployeeLookup interface {
	GetByID(ctx context.Context, rawID string) (types.User, error)
}

// PaymentLedger records completed payments.
type PaymentLedger interface {
	AppendEntry(ctx context.Context, email, designation string, entry types.PaymentEntry) (bool, error)
}

// PayrollInput is the body of a payroll request.
type PayrollInput struct {
	EmployeeID string
	Month      string
	Year       int
	Amount     any
}

// PayrollService encapsulates payroll use-cases.
type PayrollService struct {
	repo     PayrollRepository
	users    EmployeeLookup
	payments PaymentLedger
	events   *Events
	now      func() time.Time
}

func NewPayrollService(repo PayrollRepository, users EmployeeLookup, payments PaymentLedger, events *Events) *PayrollService {
	return &PayrollService{
		repo:     repo,
		users:    users,
		payments: payments,
		events:   events,
		now:      time.Now,
	}
}

func (s *PayrollService) List(ctx context.Context) ([]types.PayrollRequest, error) {
	return s.repo.List(ctx)
}

// Request files a payroll request for the employee. The employee is copied
// into the request; nothing is inserted when the employee cannot be found.
// Repeated requests for the same employee and month are allowed.
func (s *PayrollService) Request(ctx context.Context, in PayrollInput) (any, error) {
	employeeID := strings.TrimSpace(in.EmployeeID)
	if employeeID == "" {
		return nil, invalidInput("employeeId is required")
	}

	var month string
	if strings.TrimSpace(in.Month) != "" {
		idx := types.MonthIndex(in.Month)
		if idx < 0 {
			return nil, invalidInput("month must be a calendar month name")
		}
		month = types.MonthName(idx)
	}
	if in.Year != 0 && (in.Year < 1970 || in.Year > 9999) {
		return nil, invalidInput("year is out of range")
	}

	var amount float64
	hasAmount := in.Amount != nil
	if hasAmount {
		parsed, err := ParseSalary(in.Amount)
		if err != nil || parsed == 0 {
			return nil, invalidInput("amount must be a positive number")
		}
		amount = parsed
	}

	employee, err := s.users.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !hasAmount {
		amount = employee.Salary
	}

	req := types.PayrollRequest{
		EmployeeID:        store.IDString(employee.ID),
		Email:             employee.Email,
		Name:              employee.Name,
		PhotoURL:          employee.PhotoURL,
		Role:              types.NormalizeRole(employee.Role),
		Designation:       employee.Designation,
		Salary:            employee.Salary,
		PerformanceReview: employee.PerformanceReview,
		EmployeeStatus:    employee.Status,
		IsVerified:        employee.IsVerified,
		BankAccountNo:     employee.BankAccountNo,
		Month:             month,
		Year:              in.Year,
		Amount:            amount,
		Status:            types.PayrollPending,
		CreatedAt:         s.now().UTC(),
	}
	id, err := s.repo.Insert(ctx, req)
	if err != nil {
		return nil, err
	}

	s.events.Emit(ctx, types.EventPayrollRequested, store.IDString(id), employee.Email, map[string]any{
		"employeeId": req.EmployeeID,
		"amount":     req.Amount,
	})
	return id, nil
}

// UpdateStatus records an approval decision. Every call re-stamps
// approvedBy and approvedAt. Paid requests are never changed.
func (s *PayrollService) UpdateStatus(ctx context.Context, id, status string, caller types.Caller) (store.Outcome, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != types.PayrollApproved && status != types.PayrollRejected {
		return store.OutcomeNotFound, invalidInput("status must be approved or rejected")
	}

	outcome, err := s.repo.ApplyTransition(ctx, id, store.ApprovePayroll(status, caller.Identity(), s.now()))
	if err != nil {
		return outcome, err
	}
	if outcome == store.OutcomeNotFound {
		return outcome, s.checkNotPaid(ctx, id)
	}
	if outcome == store.OutcomeUpdated {
		s.events.Emit(ctx, types.EventPayrollStatusChanged, strings.TrimSpace(id), caller.Identity(), map[string]any{"status": status})
	}
	return outcome, nil
}

// checkNotPaid tells a missing request from one the paid guard skipped.
func (s *PayrollService) checkNotPaid(ctx context.Context, id string) error {
	current, err := s.repo.GetByID(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case current.Status == types.PayrollPaid:
		return conflict("payroll request has already been paid")
	}
	return nil
}

// MarkPaid records a completed payment on an approved request and appends
// the payment to the employee's history. Repeating the call with the same
// payment reference is reported as already applied and completes a history
// entry a failed earlier call left out.
func (s *PayrollService) MarkPaid(ctx context.Context, id, paymentID string, caller types.Caller) (store.Outcome, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return store.OutcomeNotFound, invalidInput("paymentId is required")
	}

	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.OutcomeNotFound, nil
		}
		return store.OutcomeNotFound, err
	}
	switch req.Status {
	case types.PayrollPaid:
		if req.PaymentID != paymentID {
			return store.OutcomeNotFound, conflict("payroll request was paid with a different payment")
		}
		paidAt := s.now().UTC()
		if req.PaidAt != nil {
			paidAt = req.PaidAt.UTC()
		}
		if err := s.recordPayment(ctx, req, paymentID, paidAt, caller); err != nil {
			return store.OutcomeAlreadyApplied, err
		}
		return store.OutcomeAlreadyApplied, nil
	case types.PayrollApproved:
	default:
		return store.OutcomeNotFound, conflict("payroll request must be approved before payment")
	}

	paidAt := s.now().UTC()
	outcome, err := s.repo.ApplyTransition(ctx, id, store.MarkPayrollPaid(paymentID, paidAt))
	if err != nil {
		return outcome, err
	}
	if outcome == store.OutcomeNotFound {
		return outcome, conflict("payroll request is no longer approved")
	}
	if err := s.recordPayment(ctx, req, paymentID, paidAt, caller); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// recordPayment appends the history entry for a paid request. The paid event
// is emitted by whichever call writes the entry.
func (s *PayrollService) recordPayment(ctx context.Context, req types.PayrollRequest, paymentID string, paidAt time.Time, caller types.Caller) error {
	month, year := req.Month, req.Year
	if month == "" {
		month = types.MonthName(int(paidAt.Month()) - 1)
	}
	if year == 0 {
		year = paidAt.Year()
	}
	entry := types.PaymentEntry{
		Month:     month,
		Year:      year,
		Amount:    req.Amount,
		PaymentID: paymentID,
		PayrollID: store.IDString(req.ID),
		PaidAt:    &paidAt,
	}
	appended, err := s.payments.AppendEntry(ctx, req.Email, req.Designation, entry)
	if err != nil || !appended {
		return err
	}

	s.events.Emit(ctx, types.EventPayrollPaid, store.IDString(req.ID), caller.Identity(), map[string]any{
		"paymentId": paymentID,
		"amount":    req.Amount,
	})
	return nil
}

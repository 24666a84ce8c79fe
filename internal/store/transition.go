package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/emsdesk/apiserver/types"
)

// Outcome classifies the result of applying a transition.
type Outcome int

const (
	// OutcomeNotFound means no candidate addressed a document.
	OutcomeNotFound Outcome = iota
	// OutcomeAlreadyApplied means the document already held the target state.
	OutcomeAlreadyApplied
	// OutcomeUpdated means the document was changed.
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNotFound:
		return "not_found"
	case OutcomeAlreadyApplied:
		return "already_applied"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Transition is a named set of field assignments applied to one document.
type Transition struct {
	Name string
	Set  bson.M

	// Guard is merged into every candidate filter. A document that fails the
	// guard is reported as OutcomeNotFound; callers re-read to tell the two
	// apart.
	Guard bson.M

	// Always reports OutcomeUpdated whenever a document matched, even if
	// the assignment left it unchanged.
	Always bool
}

// ApplyTransition tries each candidate filter in order and applies t to the
// first document that matches. Store errors abort immediately.
func ApplyTransition(ctx context.Context, coll Updater, candidates []bson.M, t Transition) (Outcome, error) {
	update := bson.M{"$set": t.Set}
	for _, candidate := range candidates {
		filter := bson.M{}
		for key, value := range candidate {
			filter[key] = value
		}
		for key, value := range t.Guard {
			filter[key] = value
		}
		res, err := coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return OutcomeNotFound, failure(t.Name, err)
		}
		if res.MatchedCount == 0 {
			continue
		}
		if res.ModifiedCount == 0 && !t.Always {
			return OutcomeAlreadyApplied, nil
		}
		return OutcomeUpdated, nil
	}
	return OutcomeNotFound, nil
}

// Fire marks a user as fired.
func Fire() Transition {
	return Transition{Name: "fire user", Set: bson.M{"status": types.StatusFired}}
}

// PromoteToHR grants the HR role.
func PromoteToHR() Transition {
	return Transition{Name: "promote user", Set: bson.M{"role": types.RoleHR}}
}

// SetSalary stores a numeric salary.
func SetSalary(salary float64) Transition {
	return Transition{Name: "set salary", Set: bson.M{"salary": salary}}
}

// ApprovePayroll records a payroll status decision. Every call stamps a
// fresh approvedAt, so repeated approvals are never short-circuited.
// Paid requests are left untouched.
func ApprovePayroll(status, approvedBy string, at time.Time) Transition {
	return Transition{
		Name: "approve payroll",
		Set: bson.M{
			"status":     status,
			"approvedBy": approvedBy,
			"approvedAt": at.UTC(),
		},
		Guard:  bson.M{"status": bson.M{"$ne": types.PayrollPaid}},
		Always: true,
	}
}

// MarkPayrollPaid records the payment reference on an approved payroll
// request.
func MarkPayrollPaid(paymentID string, paidAt time.Time) Transition {
	return Transition{
		Name: "mark payroll paid",
		Set: bson.M{
			"status":    types.PayrollPaid,
			"paymentId": paymentID,
			"paidAt":    paidAt.UTC(),
		},
		Guard: bson.M{"status": types.PayrollApproved},
	}
}

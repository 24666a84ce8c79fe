package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/emsdesk/apiserver/internal/testutil/memdb"
	"github.com/emsdesk/apiserver/types"
)

func TestApplyTransitionIdempotent(t *testing.T) {
	ctx := context.Background()
	coll := memdb.New()
	ids := coll.Seed(bson.M{"email": "ana@ems.test", "status": types.StatusActive, "role": types.RoleEmployee, "salary": 4000.0})
	id := ids[0].(primitive.ObjectID).Hex()

	tests := []struct {
		name       string
		transition Transition
	}{
		{name: "fire", transition: Fire()},
		{name: "promote", transition: PromoteToHR()},
		{name: "salary", transition: SetSalary(5000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, err := Resolve(id)
			require.NoError(t, err)

			first, err := ApplyTransition(ctx, coll, candidates, tt.transition)
			require.NoError(t, err)
			assert.Equal(t, OutcomeUpdated, first)

			second, err := ApplyTransition(ctx, coll, candidates, tt.transition)
			require.NoError(t, err)
			assert.Equal(t, OutcomeAlreadyApplied, second)
		})
	}

	doc := coll.Docs()[0]
	assert.Equal(t, types.StatusFired, doc["status"])
	assert.Equal(t, types.RoleHR, doc["role"])
	assert.Equal(t, 5000.0, doc["salary"])
}

func TestApplyTransitionStringIDDocument(t *testing.T) {
	ctx := context.Background()
	coll := memdb.New()
	coll.Seed(bson.M{"_id": "emp-7", "status": types.StatusActive})

	candidates, err := Resolve("emp-7")
	require.NoError(t, err)

	outcome, err := ApplyTransition(ctx, coll, candidates, Fire())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, types.StatusFired, coll.Docs()[0]["status"])
}

func TestApplyTransitionNotFound(t *testing.T) {
	coll := memdb.New()
	coll.Seed(bson.M{"status": types.StatusActive})

	candidates, err := Resolve(primitive.NewObjectID().Hex())
	require.NoError(t, err)

	outcome, err := ApplyTransition(context.Background(), coll, candidates, Fire())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)
	assert.Equal(t, types.StatusActive, coll.Docs()[0]["status"])
}

func TestApplyTransitionStoreFailure(t *testing.T) {
	coll := memdb.New()
	coll.Err = errors.New("server selection timeout")

	_, err := ApplyTransition(context.Background(), coll, []bson.M{{"_id": "x"}}, Fire())
	assert.ErrorIs(t, err, ErrStoreFailure)

	var failureErr *FailureError
	require.ErrorAs(t, err, &failureErr)
	assert.Equal(t, "fire user", failureErr.Op)
}

func TestApprovePayrollRestampsEveryCall(t *testing.T) {
	ctx := context.Background()
	coll := memdb.New()
	ids := coll.Seed(bson.M{"status": types.PayrollPending})
	candidates, err := Resolve(ids[0].(primitive.ObjectID).Hex())
	require.NoError(t, err)

	firstAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	outcome, err := ApplyTransition(ctx, coll, candidates, ApprovePayroll(types.PayrollApproved, "hr@ems.test", firstAt))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	// Same status and approver; only the stamp moves.
	secondAt := firstAt.Add(time.Hour)
	outcome, err = ApplyTransition(ctx, coll, candidates, ApprovePayroll(types.PayrollApproved, "hr@ems.test", secondAt))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)

	doc := coll.Docs()[0]
	assert.Equal(t, primitive.NewDateTimeFromTime(secondAt), doc["approvedAt"])

	// Identical stamp still reports Updated.
	outcome, err = ApplyTransition(ctx, coll, candidates, ApprovePayroll(types.PayrollApproved, "hr@ems.test", secondAt))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
}

func TestPayrollGuardsLeavePaidRequests(t *testing.T) {
	ctx := context.Background()
	coll := memdb.New()
	ids := coll.Seed(
		bson.M{"status": types.PayrollPaid, "paymentId": "pi_1"},
		bson.M{"status": types.PayrollPending},
	)
	paid, err := Resolve(ids[0].(primitive.ObjectID).Hex())
	require.NoError(t, err)
	pending, err := Resolve(ids[1].(primitive.ObjectID).Hex())
	require.NoError(t, err)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	outcome, err := ApplyTransition(ctx, coll, paid, ApprovePayroll(types.PayrollRejected, "hr@ems.test", at))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)
	assert.Equal(t, types.PayrollPaid, coll.Docs()[0]["status"])
	assert.NotContains(t, coll.Docs()[0], "approvedBy")

	outcome, err = ApplyTransition(ctx, coll, pending, MarkPayrollPaid("pi_2", at))
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)
	assert.Equal(t, types.PayrollPending, coll.Docs()[1]["status"])

	outcome, err = ApplyTransition(ctx, coll, pending, ApprovePayroll(types.PayrollApproved, "hr@ems.test", at))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	outcome, err = ApplyTransition(ctx, coll, pending, MarkPayrollPaid("pi_2", at))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, outcome)
	assert.Equal(t, types.PayrollPaid, coll.Docs()[1]["status"])
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "not_found", OutcomeNotFound.String())
	assert.Equal(t, "already_applied", OutcomeAlreadyApplied.String())
	assert.Equal(t, "updated", OutcomeUpdated.String())
}

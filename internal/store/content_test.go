package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/emsdesk/apiserver/internal/testutil/memdb"
	"github.com/emsdesk/apiserver/types"
)

func TestContentRepositorySingleton(t *testing.T) {
	coll := memdb.New()
	repo := NewContentRepository(coll)
	ctx := context.Background()

	_, err := repo.Get(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Patch(ctx, bson.M{"hero": "x"}), ErrNotFound)

	require.NoError(t, repo.Create(ctx, bson.M{"hero": bson.M{"title": "Welcome"}, "_id": "ignored"}))
	assert.ErrorIs(t, repo.Create(ctx, bson.M{"hero": bson.M{"title": "Again"}}), ErrAlreadyExists)
	assert.Equal(t, 1, coll.Len())

	require.NoError(t, repo.Patch(ctx, bson.M{"services": bson.A{"payroll"}, "_id": "other"}))

	content, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.ContentKey, content["_id"])
	assert.Equal(t, bson.M{"title": "Welcome"}, content["hero"])
	assert.Equal(t, bson.A{"payroll"}, content["services"])
}

func TestPaymentRepositoryAppendEntry(t *testing.T) {
	coll := memdb.New("email")
	repo := NewPaymentRepository(coll)
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "a@ems.test")
	assert.ErrorIs(t, err, ErrNotFound)

	appended, err := repo.AppendEntry(ctx, "a@ems.test", "Engineer", types.PaymentEntry{Month: "January", Year: 2026, Amount: 100})
	require.NoError(t, err)
	assert.True(t, appended)
	appended, err = repo.AppendEntry(ctx, "a@ems.test", "Senior Engineer", types.PaymentEntry{Month: "February", Year: 2026, Amount: 120})
	require.NoError(t, err)
	assert.True(t, appended)

	record, err := repo.GetByEmail(ctx, "a@ems.test")
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer", record.Designation)
	require.Len(t, record.Payments, 2)
	assert.Equal(t, "February", record.Payments[1].Month)
	assert.Equal(t, 1, coll.Len())
}

func TestPaymentRepositoryAppendEntryOncePerPayment(t *testing.T) {
	coll := memdb.New("email")
	repo := NewPaymentRepository(coll)
	ctx := context.Background()
	entry := types.PaymentEntry{Month: "March", Year: 2026, Amount: 90, PaymentID: "pi_1", PayrollID: "p1"}

	appended, err := repo.AppendEntry(ctx, "a@ems.test", "Engineer", entry)
	require.NoError(t, err)
	assert.True(t, appended)

	appended, err = repo.AppendEntry(ctx, "a@ems.test", "Engineer", entry)
	require.NoError(t, err)
	assert.False(t, appended)

	entry.PaymentID = "pi_2"
	appended, err = repo.AppendEntry(ctx, "a@ems.test", "Engineer", entry)
	require.NoError(t, err)
	assert.True(t, appended)

	record, err := repo.GetByEmail(ctx, "a@ems.test")
	require.NoError(t, err)
	require.Len(t, record.Payments, 2)
	assert.Equal(t, "pi_1", record.Payments[0].PaymentID)
	assert.Equal(t, "pi_2", record.Payments[1].PaymentID)
	assert.Equal(t, 1, coll.Len())
}

func TestPayrollRepositoryInsertAndGet(t *testing.T) {
	coll := memdb.New()
	repo := NewPayrollRepository(coll)
	ctx := context.Background()

	id, err := repo.Insert(ctx, types.PayrollRequest{EmployeeID: "emp-1", Email: "a@ems.test", Status: types.PayrollPending})
	require.NoError(t, err)

	req, err := repo.GetByID(ctx, IDString(id))
	require.NoError(t, err)
	assert.Equal(t, "emp-1", req.EmployeeID)
	assert.Nil(t, req.ApprovedAt)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

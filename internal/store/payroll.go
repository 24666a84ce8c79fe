package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emsdesk/apiserver/types"
)

// PayrollRepository handles persistence for payroll requests.
type PayrollRepository struct {
	coll Collection
}

func NewPayrollRepository(coll Collection) *PayrollRepository {
	return &PayrollRepository{coll: coll}
}

func (r *PayrollRepository) List(ctx context.Context) ([]types.PayrollRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, failure("list payroll", err)
	}
	requests := []types.PayrollRequest{}
	if err := cur.All(ctx, &requests); err != nil {
		return nil, failure("decode payroll", err)
	}
	return requests, nil
}

func (r *PayrollRepository) Insert(ctx context.Context, req types.PayrollRequest) (any, error) {
	res, err := r.coll.InsertOne(ctx, req)
	if err != nil {
		return nil, failure("insert payroll", err)
	}
	return res.InsertedID, nil
}

// GetByID resolves rawID through both identifier forms.
func (r *PayrollRepository) GetByID(ctx context.Context, rawID string) (types.PayrollRequest, error) {
	candidates, err := Resolve(rawID)
	if err != nil {
		return types.PayrollRequest{}, err
	}
	var req types.PayrollRequest
	if err := FindByCandidates(ctx, r.coll, candidates, &req); err != nil {
		return types.PayrollRequest{}, err
	}
	return req, nil
}

// ApplyTransition applies t to the payroll request addressed by rawID.
func (r *PayrollRepository) ApplyTransition(ctx context.Context, rawID string, t Transition) (Outcome, error) {
	candidates, err := Resolve(rawID)
	if err != nil {
		return OutcomeNotFound, err
	}
	return ApplyTransition(ctx, r.coll, candidates, t)
}

package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emsdesk/apiserver/types"
)

// PaymentRepository handles persistence for payment histories.
type PaymentRepository struct {
	coll Collection
}

func NewPaymentRepository(coll Collection) *PaymentRepository {
	return &PaymentRepository{coll: coll}
}

func (r *PaymentRepository) GetByEmail(ctx context.Context, email string) (types.PaymentRecord, error) {
	var record types.PaymentRecord
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.PaymentRecord{}, ErrNotFound
		}
		return types.PaymentRecord{}, failure("get payments", err)
	}
	return record, nil
}

// AppendEntry adds a monthly entry to the employee's history, creating the
// history on first payment. An entry whose paymentId is already recorded is
// not added again; appended reports whether this call wrote the entry.
func (r *PaymentRepository) AppendEntry(ctx context.Context, email, designation string, entry types.PaymentEntry) (appended bool, err error) {
	filter := bson.M{
		"email":              email,
		"payments.paymentId": bson.M{"$ne": entry.PaymentID},
	}
	update := bson.M{
		"$set":  bson.M{"designation": designation},
		"$push": bson.M{"payments": entry},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err == nil {
		return res.MatchedCount > 0 || res.UpsertedCount > 0, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, failure("append payment", err)
	}

	// The history exists, either holding this entry already or created
	// concurrently since the upsert began.
	res, err = r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, failure("append payment", err)
	}
	return res.MatchedCount > 0, nil
}

package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emsdesk/apiserver/types"
)

// WorkRepository handles persistence for work items.
type WorkRepository struct {
	coll Collection
}

func NewWorkRepository(coll Collection) *WorkRepository {
	return &WorkRepository{coll: coll}
}

// List returns work items newest assignment first, optionally for one owner.
func (r *WorkRepository) List(ctx context.Context, email string) ([]types.WorkItem, error) {
	filter := bson.M{}
	if email != "" {
		filter[types.WorkFieldEmail] = email
	}
	opts := options.Find().SetSort(bson.D{{Key: types.WorkFieldAssignedDate, Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, failure("list works", err)
	}
	items := []types.WorkItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, failure("decode works", err)
	}
	return items, nil
}

func (r *WorkRepository) Insert(ctx context.Context, item types.WorkItem) (any, error) {
	res, err := r.coll.InsertOne(ctx, item)
	if err != nil {
		return nil, failure("insert work", err)
	}
	return res.InsertedID, nil
}

// Update merges fields into the work item.
func (r *WorkRepository) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (int64, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return 0, failure("update work", err)
	}
	if res.MatchedCount == 0 {
		return 0, ErrNotFound
	}
	return res.ModifiedCount, nil
}

func (r *WorkRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return failure("delete work", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

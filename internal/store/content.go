package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/emsdesk/apiserver/types"
)

// ContentRepository stores the homepage content singleton under
// types.ContentKey.
type ContentRepository struct {
	coll Collection
}

func NewContentRepository(coll Collection) *ContentRepository {
	return &ContentRepository{coll: coll}
}

func (r *ContentRepository) Get(ctx context.Context) (types.HomepageContent, error) {
	var content types.HomepageContent
	err := r.coll.FindOne(ctx, bson.M{"_id": types.ContentKey}).Decode(&content)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, failure("get content", err)
	}
	return content, nil
}

// Create inserts the singleton. A second create fails with ErrAlreadyExists.
func (r *ContentRepository) Create(ctx context.Context, content types.HomepageContent) error {
	doc := bson.M{}
	for key, value := range content {
		doc[key] = value
	}
	doc["_id"] = types.ContentKey

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return failure("create content", err)
	}
	return nil
}

// Patch merges updates into the singleton.
func (r *ContentRepository) Patch(ctx context.Context, updates types.HomepageContent) error {
	set := bson.M{}
	for key, value := range updates {
		if key == "_id" {
			continue
		}
		set[key] = value
	}
	if len(set) == 0 {
		return nil
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": types.ContentKey}, bson.M{"$set": set})
	if err != nil {
		return failure("patch content", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Resolve turns an externally supplied identifier into the ordered list of
// filters that may address the document: the native ObjectID form first
// when rawID is 24 hex characters, then the raw string form. Legacy
// documents were written with string ids, so the string form is always
// tried.
func Resolve(rawID string) ([]bson.M, error) {
	rawID = strings.TrimSpace(rawID)
	if rawID == "" {
		return nil, ErrInvalidID
	}

	candidates := make([]bson.M, 0, 2)
	if oid, err := primitive.ObjectIDFromHex(rawID); err == nil {
		candidates = append(candidates, bson.M{"_id": oid})
	}
	return append(candidates, bson.M{"_id": rawID}), nil
}

// ParseObjectID parses an identifier that must be a native ObjectID.
func ParseObjectID(rawID string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(rawID))
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}

// FindByCandidates decodes the first document matched by the candidates
// into out, returning ErrNotFound when none match.
func FindByCandidates(ctx context.Context, coll Finder, candidates []bson.M, out any) error {
	for _, filter := range candidates {
		err := coll.FindOne(ctx, filter).Decode(out)
		if err == nil {
			return nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return failure("find by id", err)
		}
	}
	return ErrNotFound
}

package store

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/emsdesk/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	coll Collection
}

func NewUserRepository(coll Collection) *UserRepository {
	return &UserRepository{coll: coll}
}

// List returns all users, optionally restricted to a role. The role match
// ignores case because older documents stored "HR" and "hr" alike.
func (r *UserRepository) List(ctx context.Context, role string) ([]types.User, error) {
	filter := bson.M{}
	if role = strings.TrimSpace(role); role != "" {
		filter["role"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(role) + "$", Options: "i"}
	}
	return r.find(ctx, filter)
}

func (r *UserRepository) ListVerified(ctx context.Context) ([]types.User, error) {
	return r.find(ctx, bson.M{"isVerified": true})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	var user types.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, failure("get user", err)
	}
	return user, nil
}

// GetByID resolves rawID through both identifier forms.
func (r *UserRepository) GetByID(ctx context.Context, rawID string) (types.User, error) {
	candidates, err := Resolve(rawID)
	if err != nil {
		return types.User{}, err
	}
	var user types.User
	if err := FindByCandidates(ctx, r.coll, candidates, &user); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// UpsertByEmail writes fields onto the user with the given email, creating
// the user when absent. defaults are only written on creation, and never
// for a key that fields already sets.
func (r *UserRepository) UpsertByEmail(ctx context.Context, email string, fields, defaults bson.M) (types.UpsertResult, error) {
	update := bson.M{}
	if len(fields) > 0 {
		update["$set"] = fields
	}
	onInsert := bson.M{}
	for key, value := range defaults {
		if _, ok := fields[key]; !ok {
			onInsert[key] = value
		}
	}
	if len(onInsert) > 0 {
		update["$setOnInsert"] = onInsert
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"email": email}, update, options.Update().SetUpsert(true))
	if err != nil {
		return types.UpsertResult{}, failure("upsert user", err)
	}
	return types.UpsertResult{
		InsertedID:    res.UpsertedID,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}, nil
}

// ApplyTransition applies t to the user addressed by rawID.
func (r *UserRepository) ApplyTransition(ctx context.Context, rawID string, t Transition) (Outcome, error) {
	candidates, err := Resolve(rawID)
	if err != nil {
		return OutcomeNotFound, err
	}
	return ApplyTransition(ctx, r.coll, candidates, t)
}

func (r *UserRepository) find(ctx context.Context, filter bson.M) ([]types.User, error) {
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, failure("list users", err)
	}
	users := []types.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, failure("decode users", err)
	}
	return users, nil
}

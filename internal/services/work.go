package services

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/emsdesk/apiserver/internal/store"
	"github.com/emsdesk/apiserver/types"
)

// WorkRepository defines persistence operations for work items.
type WorkRepository interface {
	List(ctx context.Context, email string) ([]types.WorkItem, error)
	Insert(ctx context.Context, item types.WorkItem) (any, error)
	Update(ctx context.Context, id primitive.ObjectID, fields bson.M) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// WorkService encapsulates work item use-cases.
type WorkService struct {
	repo WorkRepository
	now  func() time.Time
}

func NewWorkService(repo WorkRepository) *WorkService {
	return &WorkService{repo: repo, now: time.Now}
}

func (s *WorkService) List(ctx context.Context, email string) ([]types.WorkItem, error) {
	return s.repo.List(ctx, strings.TrimSpace(email))
}

// Create stores a work item. The owner email is required and assignedDate
// defaults to now.
func (s *WorkService) Create(ctx context.Context, item types.WorkItem) (any, error) {
	email, _ := item[types.WorkFieldEmail].(string)
	if strings.TrimSpace(email) == "" {
		return nil, invalidInput("email is required")
	}

	doc := bson.M{}
	for key, value := range item {
		if key == "_id" {
			continue
		}
		doc[key] = value
	}
	doc[types.WorkFieldEmail] = strings.TrimSpace(email)

	if _, ok := doc[types.WorkFieldAssignedDate]; !ok {
		doc[types.WorkFieldAssignedDate] = s.now().UTC()
	} else if err := normalizeAssignedDate(doc); err != nil {
		return nil, err
	}
	return s.repo.Insert(ctx, doc)
}

// Update merges fields into the work item addressed by rawID, which must
// be a native id.
func (s *WorkService) Update(ctx context.Context, rawID string, fields types.WorkItem) (int64, error) {
	id, err := store.ParseObjectID(rawID)
	if err != nil {
		return 0, err
	}

	set := bson.M{}
	for key, value := range fields {
		if key == "_id" {
			continue
		}
		set[key] = value
	}
	if len(set) == 0 {
		return 0, invalidInput("no fields to update")
	}
	if err := normalizeAssignedDate(set); err != nil {
		return 0, err
	}
	return s.repo.Update(ctx, id, set)
}

func (s *WorkService) Delete(ctx context.Context, rawID string) error {
	id, err := store.ParseObjectID(rawID)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

var assignedDateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

// normalizeAssignedDate stores assignedDate as a date so it sorts
// chronologically. Strings and epoch milliseconds are accepted.
func normalizeAssignedDate(doc bson.M) error {
	raw, ok := doc[types.WorkFieldAssignedDate]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case time.Time:
		doc[types.WorkFieldAssignedDate] = v.UTC()
		return nil
	case float64:
		doc[types.WorkFieldAssignedDate] = time.UnixMilli(int64(v)).UTC()
		return nil
	case string:
		for _, layout := range assignedDateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				doc[types.WorkFieldAssignedDate] = t.UTC()
				return nil
			}
		}
	}
	return invalidInput("assignedDate must be an RFC 3339 timestamp or a YYYY-MM-DD date")
}

package types

import "go.mongodb.org/mongo-driver/bson"

// WorkItem is a free-form work entry owned by a user through its "email"
// field. "assignedDate" is stored as a BSON date and drives the default
// ordering; every other field is carried through untouched.
type WorkItem = bson.M

// Work item fields the service inspects.
const (
	WorkFieldEmail        = "email"
	WorkFieldAssignedDate = "assignedDate"
)

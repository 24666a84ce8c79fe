// Package memdb is an in-memory stand-in for a Mongo collection. It covers
// the filters and update operators the repositories issue: equality, $eq,
// $ne and regular expression filters on dotted paths, $set, $setOnInsert and
// $push updates, upserts, single-field sorts and unique keys.
package memdb

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds documents in insertion order.
type Collection struct {
	mu     sync.Mutex
	docs   []bson.M
	unique []string
	calls  int

	// Err, when set, is returned by every operation.
	Err error
}

// New returns an empty collection. uniqueFields are enforced on insert and
// upsert in addition to _id.
func New(uniqueFields ...string) *Collection {
	return &Collection{unique: uniqueFields}
}

// Seed inserts documents directly, assigning ObjectIDs where _id is absent.
// It returns the ids in order.
func (c *Collection) Seed(docs ...any) []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]any, 0, len(docs))
	for _, doc := range docs {
		m, err := normalize(doc)
		if err != nil {
			panic(fmt.Sprintf("memdb: seed: %v", err))
		}
		if _, ok := m["_id"]; !ok {
			m["_id"] = primitive.NewObjectID()
		}
		c.docs = append(c.docs, m)
		ids = append(ids, m["_id"])
	}
	return ids
}

// Docs returns a copy of the stored documents.
func (c *Collection) Docs() []bson.M {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]bson.M, 0, len(c.docs))
	for _, doc := range c.docs {
		out = append(out, clone(doc))
	}
	return out
}

// Len returns the number of stored documents.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Calls returns how many operations have been issued against the collection.
func (c *Collection) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *Collection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.Err != nil {
		return nil, c.Err
	}

	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	var matched []bson.M
	for _, doc := range c.docs {
		if matches(doc, f) {
			matched = append(matched, clone(doc))
		}
	}
	for _, opt := range opts {
		if opt != nil && opt.Sort != nil {
			sortDocs(matched, opt.Sort)
		}
	}

	documents := make([]interface{}, 0, len(matched))
	for _, doc := range matched {
		documents = append(documents, doc)
	}
	return mongo.NewCursorFromDocuments(documents, nil, nil)
}

func (c *Collection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.Err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, c.Err, nil)
	}

	f, err := normalize(filter)
	if err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	for _, doc := range c.docs {
		if matches(doc, f) {
			return mongo.NewSingleResultFromDocument(clone(doc), nil, nil)
		}
	}
	return mongo.NewSingleResultFromDocument(bson.D{}, mongo.ErrNoDocuments, nil)
}

func (c *Collection) InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.Err != nil {
		return nil, c.Err
	}

	doc, err := normalize(document)
	if err != nil {
		return nil, err
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	if err := c.checkUnique(doc, -1); err != nil {
		return nil, err
	}
	c.docs = append(c.docs, doc)
	return &mongo.InsertOneResult{InsertedID: doc["_id"]}, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.Err != nil {
		return nil, c.Err
	}

	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	u, err := normalize(update)
	if err != nil {
		return nil, err
	}
	set, _ := u["$set"].(bson.M)
	onInsert, _ := u["$setOnInsert"].(bson.M)
	push, _ := u["$push"].(bson.M)

	for i, doc := range c.docs {
		if !matches(doc, f) {
			continue
		}
		updated := clone(doc)
		modified := false
		for key, value := range set {
			if current, ok := updated[key]; !ok || !reflect.DeepEqual(current, value) {
				updated[key] = value
				modified = true
			}
		}
		for key, value := range push {
			arr, _ := updated[key].(primitive.A)
			updated[key] = append(append(primitive.A{}, arr...), value)
			modified = true
		}
		if err := c.checkUnique(updated, i); err != nil {
			return nil, err
		}
		c.docs[i] = updated
		result := &mongo.UpdateResult{MatchedCount: 1}
		if modified {
			result.ModifiedCount = 1
		}
		return result, nil
	}

	if !upsert(opts) {
		return &mongo.UpdateResult{}, nil
	}

	doc := bson.M{}
	for key, value := range f {
		if _, isRegex := value.(primitive.Regex); isRegex || strings.HasPrefix(key, "$") || strings.Contains(key, ".") {
			continue
		}
		if _, isOps := operators(value); isOps {
			continue
		}
		doc[key] = value
	}
	for key, value := range onInsert {
		doc[key] = value
	}
	for key, value := range set {
		doc[key] = value
	}
	for key, value := range push {
		doc[key] = primitive.A{value}
	}
	if _, ok := doc["_id"]; !ok {
		doc["_id"] = primitive.NewObjectID()
	}
	if err := c.checkUnique(doc, -1); err != nil {
		return nil, err
	}
	c.docs = append(c.docs, doc)
	return &mongo.UpdateResult{UpsertedCount: 1, UpsertedID: doc["_id"]}, nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.Err != nil {
		return nil, c.Err
	}

	f, err := normalize(filter)
	if err != nil {
		return nil, err
	}
	for i, doc := range c.docs {
		if matches(doc, f) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return &mongo.DeleteResult{DeletedCount: 1}, nil
		}
	}
	return &mongo.DeleteResult{}, nil
}

func (c *Collection) checkUnique(doc bson.M, skip int) error {
	keys := append([]string{"_id"}, c.unique...)
	for i, existing := range c.docs {
		if i == skip {
			continue
		}
		for _, key := range keys {
			value, ok := doc[key]
			if ok && reflect.DeepEqual(existing[key], value) {
				return duplicateKey(key)
			}
		}
	}
	return nil
}

func duplicateKey(key string) error {
	return mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{
			Code:    11000,
			Message: fmt.Sprintf("E11000 duplicate key error dup key: { %s }", key),
		}},
	}
}

func upsert(opts []*options.UpdateOptions) bool {
	for _, opt := range opts {
		if opt != nil && opt.Upsert != nil && *opt.Upsert {
			return true
		}
	}
	return false
}

func matches(doc, filter bson.M) bool {
	for key, want := range filter {
		values := lookup(doc, key)
		if ops, isOps := operators(want); isOps {
			for op, arg := range ops {
				switch op {
				case "$eq":
					if !containsEqual(values, arg) {
						return false
					}
				case "$ne":
					if containsEqual(values, arg) {
						return false
					}
				default:
					panic(fmt.Sprintf("memdb: unsupported operator %s", op))
				}
			}
			continue
		}
		if re, isRegex := want.(primitive.Regex); isRegex {
			matched := false
			for _, v := range values {
				if s, isString := v.(string); isString && matchRegex(re, s) {
					matched = true
				}
			}
			if !matched {
				return false
			}
			continue
		}
		if !containsEqual(values, want) {
			return false
		}
	}
	return true
}

// lookup resolves a dotted path, descending into every element of arrays
// met along the way.
func lookup(doc bson.M, path string) []interface{} {
	current := []interface{}{doc}
	for _, part := range strings.Split(path, ".") {
		var next []interface{}
		for _, v := range current {
			for _, elem := range expand(v) {
				if m, ok := asM(elem); ok {
					if field, ok := m[part]; ok {
						next = append(next, field)
					}
				}
			}
		}
		current = next
	}
	return current
}

func expand(v interface{}) []interface{} {
	if arr, ok := v.(primitive.A); ok {
		return arr
	}
	return []interface{}{v}
}

func asM(v interface{}) (bson.M, bool) {
	switch d := v.(type) {
	case bson.M:
		return d, true
	case bson.D:
		m := bson.M{}
		for _, e := range d {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

// operators reports whether v is an operator document such as {$ne: x}.
func operators(v interface{}) (bson.M, bool) {
	m, ok := asM(v)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for key := range m {
		if !strings.HasPrefix(key, "$") {
			return nil, false
		}
	}
	return m, true
}

func containsEqual(values []interface{}, want interface{}) bool {
	for _, v := range values {
		if reflect.DeepEqual(v, want) {
			return true
		}
	}
	return false
}

func matchRegex(re primitive.Regex, value string) bool {
	pattern := re.Pattern
	if strings.Contains(re.Options, "i") {
		pattern = "(?i)" + pattern
	}
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return compiled.MatchString(value)
}

func sortDocs(docs []bson.M, spec interface{}) {
	d, ok := spec.(bson.D)
	if !ok || len(d) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, e := range d {
			cmp := compare(docs[i][e.Key], docs[j][e.Key])
			if cmp == 0 {
				continue
			}
			if direction(e.Value) < 0 {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func direction(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 1
	}
}

// compare orders missing values first, then numbers, strings and dates.
func compare(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}
	switch av := a.(type) {
	case primitive.DateTime:
		return cmpInt64(int64(av), int64(b.(primitive.DateTime)))
	case string:
		return strings.Compare(av, b.(string))
	case nil:
		return 0
	}
	fa, fb := toFloat(a), toFloat(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func rank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case int32, int64, float64:
		return 1
	case string:
		return 2
	case primitive.DateTime:
		return 4
	default:
		return 3
	}
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// normalize round-trips a value through BSON so stored documents, filters
// and updates share the representation a real server would return.
func normalize(v interface{}) (bson.M, error) {
	if v == nil {
		return bson.M{}, nil
	}
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := bson.M{}
	if err := bson.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func clone(doc bson.M) bson.M {
	out, err := normalize(doc)
	if err != nil {
		panic(fmt.Sprintf("memdb: clone: %v", err))
	}
	return out
}

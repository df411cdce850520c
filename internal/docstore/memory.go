package docstore

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
)

// Memory is an in-process Collection implementation that evaluates the
// pipeline subset the core compiles: $match (equality, $in, $gt, $gte,
// $lt, $lte, $ne, $regex), $sort, $skip, $limit and $count. Shape stages
// ($lookup, $unwind, $group, $project) are accepted and skipped, so
// documents come back unprojected. Used by tests and the smoke tool.
type Memory[E any] struct {
	name string

	mu    sync.RWMutex
	order []string
	docs  map[string]bson.M
}

// NewMemory returns an empty in-memory collection.
func NewMemory[E any](name string) *Memory[E] {
	return &Memory[E]{
		name: name,
		docs: make(map[string]bson.M),
	}
}

func (m *Memory[E]) Name() string { return m.name }

func (m *Memory[E]) FindByID(ctx context.Context, id string) (*E, error) {
	m.mu.RLock()
	doc, ok := m.docs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return fromDoc[E](doc)
}

func (m *Memory[E]) InsertOne(ctx context.Context, doc *E) error {
	raw, err := toDoc(doc)
	if err != nil {
		return err
	}
	id, _ := raw["_id"].(string)
	if id == "" {
		return apperr.Database("insert failed: document has no identifier", nil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[id]; !exists {
		m.order = append(m.order, id)
	}
	m.docs[id] = raw
	return nil
}

func (m *Memory[E]) ReplaceOne(ctx context.Context, id string, doc *E) error {
	raw, err := toDoc(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return apperr.NotFound("")
	}
	m.docs[id] = raw
	return nil
}

func (m *Memory[E]) DeleteOne(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return false, nil
	}
	delete(m.docs, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (m *Memory[E]) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	docs := m.snapshot()

	for _, stage := range pipeline {
		if len(stage) == 0 {
			continue
		}
		op := stage[0].Key
		value := stage[0].Value

		switch op {
		case "$match":
			cond, ok := toCondition(value)
			if !ok {
				return apperr.Database("unsupported match condition", nil)
			}
			var kept []bson.M
			for _, doc := range docs {
				if matchDoc(doc, cond) {
					kept = append(kept, doc)
				}
			}
			docs = kept
		case "$sort":
			sortKeys, ok := value.(bson.D)
			if !ok {
				return apperr.Database("unsupported sort specification", nil)
			}
			sortDocs(docs, sortKeys)
		case "$skip":
			n := toInt(value)
			if n >= int64(len(docs)) {
				docs = nil
			} else {
				docs = docs[n:]
			}
		case "$limit":
			n := toInt(value)
			if n < int64(len(docs)) {
				docs = docs[:n]
			}
		case "$count":
			field, _ := value.(string)
			count := int64(len(docs))
			docs = []bson.M{{field: count}}
		default:
			// Shape stages are not evaluated in memory.
		}
	}

	return decodeAll(docs, out)
}

func (m *Memory[E]) Distinct(ctx context.Context, field string, filter bson.M) ([]any, error) {
	docs := m.snapshot()
	seen := make(map[string]struct{})
	var values []any
	for _, doc := range docs {
		if filter != nil && !matchDoc(doc, filter) {
			continue
		}
		value, ok := lookupPath(doc, field)
		if !ok || value == nil {
			continue
		}
		key := fmt.Sprintf("%T:%v", value, value)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, value)
	}
	return values, nil
}

func (m *Memory[E]) snapshot() []bson.M {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]bson.M, 0, len(m.order))
	for _, id := range m.order {
		docs = append(docs, m.docs[id])
	}
	return docs
}

func toDoc(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, apperr.Database("encode document failed", err)
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, apperr.Database("decode document failed", err)
	}
	return out, nil
}

func fromDoc[E any](doc bson.M) (*E, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, apperr.Database("encode document failed", err)
	}
	var out E
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, apperr.Database("decode document failed", err)
	}
	return &out, nil
}

func decodeAll(docs []bson.M, out any) error {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Slice {
		return apperr.Database("aggregation output must be a slice pointer", nil)
	}
	slice := v.Elem()
	slice.Set(reflect.MakeSlice(slice.Type(), 0, len(docs)))
	elemType := slice.Type().Elem()
	for _, doc := range docs {
		raw, err := bson.Marshal(doc)
		if err != nil {
			return apperr.Database("encode document failed", err)
		}
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return apperr.Database("decode document failed", err)
		}
		slice.Set(reflect.Append(slice, elem.Elem()))
	}
	return nil
}

func toCondition(value any) (bson.M, bool) {
	switch cond := value.(type) {
	case bson.M:
		return cond, true
	case map[string]any:
		return bson.M(cond), true
	default:
		return nil, false
	}
}

func matchDoc(doc bson.M, cond bson.M) bool {
	for path, expected := range cond {
		actual, _ := lookupPath(doc, path)
		if !matchValue(actual, expected) {
			return false
		}
	}
	return true
}

func matchValue(actual, expected any) bool {
	ops, isOps := toCondition(expected)
	if !isOps || !hasOperator(ops) {
		return equalValues(actual, expected)
	}
	for op, arg := range ops {
		switch op {
		case "$in":
			if !containsValue(arg, actual) {
				return false
			}
		case "$ne":
			if equalValues(actual, arg) {
				return false
			}
		case "$gt":
			if c, ok := compareValues(actual, arg); !ok || c <= 0 {
				return false
			}
		case "$gte":
			if c, ok := compareValues(actual, arg); !ok || c < 0 {
				return false
			}
		case "$lt":
			if c, ok := compareValues(actual, arg); !ok || c >= 0 {
				return false
			}
		case "$lte":
			if c, ok := compareValues(actual, arg); !ok || c > 0 {
				return false
			}
		case "$regex":
			if !matchRegex(actual, arg, ops["$options"]) {
				return false
			}
		case "$options":
			// Consumed by $regex.
		default:
			return false
		}
	}
	return true
}

func hasOperator(m bson.M) bool {
	for key := range m {
		if strings.HasPrefix(key, "$") {
			return true
		}
	}
	return false
}

func matchRegex(actual, pattern, opts any) bool {
	text, ok := actual.(string)
	if !ok {
		return false
	}
	expr, ok := pattern.(string)
	if !ok {
		return false
	}
	if options, _ := opts.(string); strings.Contains(options, "i") {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

func containsValue(arg, actual any) bool {
	v := reflect.ValueOf(arg)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if equalValues(actual, v.Index(i).Interface()) {
			return true
		}
	}
	return false
}

func equalValues(a, b any) bool {
	if at, ok := toTime(a); ok {
		bt, ok := toTime(b)
		return ok && at.Equal(bt)
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func compareValues(a, b any) (int, bool) {
	if at, ok := toTime(a); ok {
		bt, ok := toTime(b)
		if !ok {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	default:
		return time.Time{}, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toInt(v any) int64 {
	if f, ok := toFloat(v); ok {
		return int64(f)
	}
	return 0
}

func lookupPath(doc bson.M, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		m, ok := toCondition(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func sortDocs(docs []bson.M, keys bson.D) {
	less := func(a, b bson.M) bool {
		for _, key := range keys {
			direction := toInt(key.Value)
			av, _ := lookupPath(a, key.Key)
			bv, _ := lookupPath(b, key.Key)
			c, ok := compareValues(av, bv)
			if !ok || c == 0 {
				continue
			}
			if direction < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	}
	sort.SliceStable(docs, func(i, j int) bool { return less(docs[i], docs[j]) })
}

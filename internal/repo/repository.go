// Package repo implements the generic, entity-agnostic persistence layer:
// CRUD and aggregation queries with a soft-delete lifecycle and an audit
// trail around every mutation.
package repo

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/audit"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/docstore"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/ids"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/obs"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/query"
)

// Entity is the contract every persisted type satisfies: a store-assigned
// identifier plus the soft-delete and audit stamps.
type Entity interface {
	GetID() string
	SetID(id string)
	MarkCreated(userID string, at time.Time)
	MarkUpdated(userID string, at time.Time)
	MarkDeleted(userID string, at time.Time)
	Deleted() bool
}

// entityPtr constrains PE to a pointer to E implementing Entity.
type entityPtr[E any] interface {
	Entity
	*E
}

// ValidateFunc guards a delete. Returning false fails the delete with a
// database error; returning an error propagates it unchanged.
type ValidateFunc[E any] func(ctx context.Context, entity *E) (bool, error)

// Config is the repository construction contract.
type Config[E any] struct {
	Collection  docstore.Collection[E]
	UserID      string
	Base        query.Aggregation
	AuditLogger audit.Logger
	// Clock overrides the time source; zero means time.Now.
	Clock func() time.Time
}

// Repository exposes CRUD and search operations for one entity type. The
// instance holds only immutable configuration and is safe to share across
// concurrent calls. The base fragment is applied to every aggregation and
// cannot be dropped by a caller-supplied override.
//
// Mutations append exactly one audit entry. The audit append is not
// transactional with the primary write: if it fails after the write
// succeeded, the error is returned and the write is not rolled back.
type Repository[E any, PE entityPtr[E]] struct {
	coll   docstore.Collection[E]
	userID string
	base   query.Aggregation
	logger audit.Logger
	now    func() time.Time
}

// New builds a repository. The base fragment always excludes the internal
// version field from projections.
func New[E any, PE entityPtr[E]](cfg Config[E]) *Repository[E, PE] {
	base := query.Merge(cfg.Base, query.Aggregation{})
	if len(base.Project) == 0 {
		base.Project = []bson.M{{"__v": "$$REMOVE"}}
	} else if _, ok := base.Project[0]["__v"]; !ok {
		base.Project[0]["__v"] = "$$REMOVE"
	}

	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Repository[E, PE]{
		coll:   cfg.Collection,
		userID: cfg.UserID,
		base:   base,
		logger: cfg.AuditLogger,
		now:    now,
	}
}

// Base returns a copy of the compiled base fragment.
func (r *Repository[E, PE]) Base() query.Aggregation {
	return query.Merge(r.base, query.Aggregation{})
}

// GetByID returns the entity or a not-found error. The lookup bypasses
// the base fragment, matching mutation loads.
func (r *Repository[E, PE]) GetByID(ctx context.Context, id string) (*E, error) {
	doc, err := r.coll.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound("")
	}
	return doc, nil
}

// FindByID returns the entity, or nil when absent.
func (r *Repository[E, PE]) FindByID(ctx context.Context, id string) (*E, error) {
	return r.coll.FindByID(ctx, id)
}

// GetOne runs the base fragment merged with the match override, without
// pagination, and returns the first result or a not-found error.
func (r *Repository[E, PE]) GetOne(ctx context.Context, match bson.M) (*E, error) {
	doc, err := r.FindOne(ctx, match)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperr.NotFound("")
	}
	return doc, nil
}

// FindOne is GetOne with a nil result instead of an error when nothing
// matches.
func (r *Repository[E, PE]) FindOne(ctx context.Context, match bson.M) (*E, error) {
	merged := query.Merge(r.base, query.Aggregation{Match: match})
	pipeline := query.Compile(merged, false)

	var results []E
	if err := r.coll.Aggregate(ctx, pipeline, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// Create instantiates a blank entity, applies init, stamps the creation
// audit fields with the acting user and persists it. Returns the saved
// entity.
func (r *Repository[E, PE]) Create(ctx context.Context, init func(entity PE)) (saved *E, err error) {
	defer func() { obs.ObserveRepoOp(r.coll.Name(), "create", err) }()

	var entity E
	pe := PE(&entity)
	if init != nil {
		init(pe)
	}
	if pe.GetID() == "" {
		pe.SetID(ids.New())
	}
	pe.MarkCreated(r.userID, r.now().UTC())

	if err = r.coll.InsertOne(ctx, &entity); err != nil {
		return nil, err
	}
	if err = r.logger.Log(ctx, r.coll.Name(), pe.GetID(), r.userID, model.AuditOpCreate, nil, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

// Update loads the entity, applies update, stamps the mutation audit
// fields and persists the result.
func (r *Repository[E, PE]) Update(ctx context.Context, id string, update func(entity PE)) (saved *E, err error) {
	defer func() { obs.ObserveRepoOp(r.coll.Name(), "update", err) }()

	doc, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	before, err := snapshot(doc)
	if err != nil {
		return nil, err
	}

	pe := PE(doc)
	if update != nil {
		update(pe)
	}
	pe.MarkUpdated(r.userID, r.now().UTC())

	if err = r.coll.ReplaceOne(ctx, id, doc); err != nil {
		return nil, err
	}
	if err = r.logger.Log(ctx, r.coll.Name(), id, r.userID, model.AuditOpUpdate, before, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete soft-deletes the entity: the document stays in the store but is
// excluded from reads going through the base fragment. This is the only
// sanctioned way to remove an entity from normal query results.
func (r *Repository[E, PE]) Delete(ctx context.Context, id string, validate ValidateFunc[E]) (err error) {
	defer func() { obs.ObserveRepoOp(r.coll.Name(), "delete", err) }()

	doc, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err = runValidate(ctx, validate, doc, "unable to soft delete record: validation failed"); err != nil {
		return err
	}

	before, err := snapshot(doc)
	if err != nil {
		return err
	}

	pe := PE(doc)
	now := r.now().UTC()
	pe.MarkDeleted(r.userID, now)
	pe.MarkUpdated(r.userID, now)

	if err = r.coll.ReplaceOne(ctx, id, doc); err != nil {
		return err
	}
	return r.logger.Log(ctx, r.coll.Name(), id, r.userID, model.AuditOpDelete, before, doc)
}

// DeleteHard physically removes the document.
func (r *Repository[E, PE]) DeleteHard(ctx context.Context, id string, validate ValidateFunc[E]) (err error) {
	defer func() { obs.ObserveRepoOp(r.coll.Name(), "delete_hard", err) }()

	doc, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err = runValidate(ctx, validate, doc, "unable to hard delete record: validation failed"); err != nil {
		return err
	}

	before, err := snapshot(doc)
	if err != nil {
		return err
	}
	if _, err = r.coll.DeleteOne(ctx, id); err != nil {
		return err
	}
	return r.logger.Log(ctx, r.coll.Name(), id, r.userID, model.AuditOpHardDelete, before, nil)
}

// DeleteHardByQuery resolves exactly one entity through the merged
// fragment and hard-deletes it. Fails with a not-found error when nothing
// matches.
func (r *Repository[E, PE]) DeleteHardByQuery(ctx context.Context, match bson.M, validate ValidateFunc[E]) (err error) {
	defer func() { obs.ObserveRepoOp(r.coll.Name(), "delete_hard_by_query", err) }()

	doc, err := r.FindOne(ctx, match)
	if err != nil {
		return err
	}
	if doc == nil {
		return apperr.NotFound("")
	}
	if err = runValidate(ctx, validate, doc, "unable to hard delete record: validation failed"); err != nil {
		return err
	}

	before, err := snapshot(doc)
	if err != nil {
		return err
	}
	id := PE(doc).GetID()
	if _, err = r.coll.DeleteOne(ctx, id); err != nil {
		return err
	}
	return r.logger.Log(ctx, r.coll.Name(), id, r.userID, model.AuditOpHardDelete, before, nil)
}

// Query merges the override into the base fragment, compiles it with
// pagination included and returns the matching entities in compiled sort
// order.
func (r *Repository[E, PE]) Query(ctx context.Context, override query.Aggregation) (results []E, err error) {
	defer func() { obs.ObserveRepoOp(r.coll.Name(), "query", err) }()

	merged := query.Merge(r.base, override)
	pipeline := query.Compile(merged, true)
	if err = r.coll.Aggregate(ctx, pipeline, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Count compiles the merged fragment without pagination, appends a count
// stage and returns the total. Zero when nothing matches.
func (r *Repository[E, PE]) Count(ctx context.Context, match bson.M) (int64, error) {
	merged := query.Merge(r.base, query.Aggregation{Match: match})
	pipeline := query.Compile(merged, false)
	pipeline = append(pipeline, bson.D{{Key: "$count", Value: "totalRecords"}})

	var totals []struct {
		TotalRecords int64 `bson:"totalRecords"`
	}
	if err := r.coll.Aggregate(ctx, pipeline, &totals); err != nil {
		return 0, err
	}
	if len(totals) == 0 {
		return 0, nil
	}
	return totals[0].TotalRecords, nil
}

// Distinct returns the distinct values of a field, constrained by the
// repository's base match.
func (r *Repository[E, PE]) Distinct(ctx context.Context, field string) ([]any, error) {
	return r.coll.Distinct(ctx, field, r.base.Match)
}

// Search matches the query text case-insensitively against the given
// field ("name" when empty). The text is escaped, so caller-controlled
// regex metacharacters are inert.
func (r *Repository[E, PE]) Search(ctx context.Context, text, field string) ([]E, error) {
	if field == "" {
		field = "name"
	}
	match := bson.M{
		field: bson.M{
			"$regex":   regexp.QuoteMeta(text),
			"$options": "i",
		},
	}
	return r.Query(ctx, query.Aggregation{Match: match})
}

func runValidate[E any](ctx context.Context, validate ValidateFunc[E], doc *E, message string) error {
	if validate == nil {
		return nil
	}
	ok, err := validate(ctx, doc)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Database(message, nil)
	}
	return nil
}

// snapshot captures the entity state before a mutation runs, so the audit
// entry records the pre-image even though the logger serializes later.
func snapshot[E any](doc *E) (json.RawMessage, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, apperr.Internal("serialize entity snapshot failed", err)
	}
	return json.RawMessage(raw), nil
}

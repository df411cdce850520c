// Package docstore abstracts the document store behind typed collection
// handles. The Mongo implementation is the production backend; the memory
// implementation backs tests and the smoke tool.
package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
)

// Collection is a typed handle over one document collection. Absent
// documents are reported as (nil, nil), never as an error; store-level
// failures carry the database kind with the driver error as cause.
type Collection[E any] interface {
	Name() string
	FindByID(ctx context.Context, id string) (*E, error)
	Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error
	InsertOne(ctx context.Context, doc *E) error
	ReplaceOne(ctx context.Context, id string, doc *E) error
	DeleteOne(ctx context.Context, id string) (bool, error)
	Distinct(ctx context.Context, field string, filter bson.M) ([]any, error)
}

// MongoCollection adapts a driver collection to the Collection interface.
type MongoCollection[E any] struct {
	coll *mongo.Collection
}

// NewMongo wraps one collection of the given database.
func NewMongo[E any](db *mongo.Database, name string) *MongoCollection[E] {
	return &MongoCollection[E]{coll: db.Collection(name)}
}

func (c *MongoCollection[E]) Name() string { return c.coll.Name() }

func (c *MongoCollection[E]) FindByID(ctx context.Context, id string) (*E, error) {
	var doc E
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Database("find by id failed", err)
	}
	return &doc, nil
}

func (c *MongoCollection[E]) Aggregate(ctx context.Context, pipeline mongo.Pipeline, out any) error {
	cursor, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return apperr.Database("aggregation failed", err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return apperr.Database("aggregation decode failed", err)
	}
	return nil
}

func (c *MongoCollection[E]) InsertOne(ctx context.Context, doc *E) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return apperr.Database("insert failed", err)
	}
	return nil
}

func (c *MongoCollection[E]) ReplaceOne(ctx context.Context, id string, doc *E) error {
	res, err := c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return apperr.Database("replace failed", err)
	}
	if res.MatchedCount == 0 {
		return apperr.NotFound("")
	}
	return nil
}

func (c *MongoCollection[E]) DeleteOne(ctx context.Context, id string) (bool, error) {
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, apperr.Database("delete failed", err)
	}
	return res.DeletedCount > 0, nil
}

func (c *MongoCollection[E]) Distinct(ctx context.Context, field string, filter bson.M) ([]any, error) {
	if filter == nil {
		filter = bson.M{}
	}
	values, err := c.coll.Distinct(ctx, field, filter)
	if err != nil {
		return nil, apperr.Database("distinct failed", err)
	}
	return values, nil
}

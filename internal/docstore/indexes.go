package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
)

// EnsureIndexes creates the indexes the core relies on: the token TTL
// sweep (the store deletes expired tokens without an explicit call), the
// unique token string, and email uniqueness among non-deleted users.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	tokenIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expireAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection(model.CollectionTokens).Indexes().CreateMany(ctx, tokenIndexes); err != nil {
		return apperr.Database("create token indexes failed", err)
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isDeleted": false}),
		},
	}
	if _, err := db.Collection(model.CollectionUsers).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return apperr.Database("create user indexes failed", err)
	}

	return nil
}

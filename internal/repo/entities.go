package repo

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/audit"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/docstore"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/query"
)

// Users is the repository type for user documents.
type Users = Repository[model.User, *model.User]

// Roles is the repository type for role documents.
type Roles = Repository[model.Role, *model.Role]

// Tokens is the repository type for token documents.
type Tokens = Repository[model.Token, *model.Token]

// roleLookup resolves the role reference into the roleDoc field.
func roleLookup() []query.Lookup {
	return []query.Lookup{{
		From:         model.CollectionRoles,
		LocalField:   "role",
		ForeignField: "_id",
		As:           "roleDoc",
	}}
}

// NewUsers builds the user repository exposed to read paths: roles
// resolved and unwound, soft-deleted and system users excluded, and the
// credential hash projected away.
func NewUsers(coll docstore.Collection[model.User], logger audit.Logger, actingUserID string) *Users {
	return New[model.User, *model.User](Config[model.User]{
		Collection:  coll,
		UserID:      actingUserID,
		AuditLogger: logger,
		Base: query.Aggregation{
			Lookup: roleLookup(),
			Match: bson.M{
				"isDeleted": false,
				"isSystem":  false,
			},
			Unwind: []string{"$roleDoc"},
			Project: []bson.M{{
				"isAdmin":   1,
				"email":     1,
				"firstName": 1,
				"lastName":  1,
				"status":    1,
				"roleDoc": bson.M{
					"type":        1,
					"description": 1,
					"permissions": 1,
				},
			}},
		},
	})
}

// NewIdentities builds the user repository the authentication engine
// reads through: full documents (the stored hash included), roles
// resolved, only the soft-delete exclusion applied. Strategy-specific
// scoping (status, isSystem) is supplied per lookup.
func NewIdentities(coll docstore.Collection[model.User], logger audit.Logger, actingUserID string) *Users {
	return New[model.User, *model.User](Config[model.User]{
		Collection:  coll,
		UserID:      actingUserID,
		AuditLogger: logger,
		Base: query.Aggregation{
			Lookup: roleLookup(),
			Match:  bson.M{"isDeleted": false},
			Unwind: []string{"$roleDoc"},
		},
	})
}

// NewRoles builds the role repository.
func NewRoles(coll docstore.Collection[model.Role], logger audit.Logger, actingUserID string) *Roles {
	return New[model.Role, *model.Role](Config[model.Role]{
		Collection:  coll,
		UserID:      actingUserID,
		AuditLogger: logger,
		Base: query.Aggregation{
			Match: bson.M{"isDeleted": false},
			Project: []bson.M{{
				"type":        1,
				"description": 1,
				"permissions": 1,
			}},
		},
	})
}

// NewTokens builds the token repository. Tokens are issued on behalf of
// the system user.
func NewTokens(coll docstore.Collection[model.Token], logger audit.Logger, systemUserID string) *Tokens {
	return New[model.Token, *model.Token](Config[model.Token]{
		Collection:  coll,
		UserID:      systemUserID,
		AuditLogger: logger,
		Base: query.Aggregation{
			Project: []bson.M{{
				"user":     1,
				"data":     1,
				"type":     1,
				"token":    1,
				"expireAt": 1,
			}},
		},
	})
}

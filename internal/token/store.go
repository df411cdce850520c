// Package token issues, resolves and revokes the opaque tokens backing
// the bearer authentication strategies.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/repo"
)

// Store manages the token lifecycle on top of the token repository. The
// store's TTL index removes expired documents on its own; resolution
// additionally enforces the expiry bound, so a token is unusable the
// moment ExpireAt passes regardless of sweep lag.
type Store struct {
	tokens *repo.Tokens
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewStore builds a Store over the token repository.
func NewStore(tokens *repo.Tokens, opts ...Option) *Store {
	s := &Store{tokens: tokens, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue persists a new token bound to the given user with a freshly
// generated opaque value. An empty type defaults to an admin token; a
// non-positive ttl defaults to 20 minutes.
func (s *Store) Issue(ctx context.Context, userID, tokenType string, ttl time.Duration, data any) (*model.Token, error) {
	if tokenType == "" {
		tokenType = model.TokenTypeAdmin
	}
	if ttl <= 0 {
		ttl = model.TokenDefaultTTL
	}
	expireAt := s.now().UTC().Add(ttl)

	return s.tokens.Create(ctx, func(t *model.Token) {
		t.UserID = userID
		t.Type = tokenType
		t.Data = data
		t.Token = NewOpaque()
		t.ExpireAt = expireAt
	})
}

// FindActive resolves a non-expired token of any of the given types, or
// nil when no such token exists.
func (s *Store) FindActive(ctx context.Context, opaque string, types ...string) (*model.Token, error) {
	if opaque == "" {
		return nil, nil
	}
	match := bson.M{
		"token":    opaque,
		"expireAt": bson.M{"$gt": s.now().UTC()},
	}
	switch len(types) {
	case 0:
	case 1:
		match["type"] = types[0]
	default:
		match["type"] = bson.M{"$in": types}
	}
	return s.tokens.FindOne(ctx, match)
}

// Revoke hard-deletes the token with the given opaque value. Fails with a
// not-found error when the token does not exist.
func (s *Store) Revoke(ctx context.Context, opaque string) error {
	return s.tokens.DeleteHardByQuery(ctx, bson.M{"token": opaque}, nil)
}

// NewOpaque returns a fresh 64-character opaque token value.
func NewOpaque() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

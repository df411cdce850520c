// Package cache provides the bounded in-process caches in front of the
// persistence layer. Caches are constructed explicitly and passed by
// reference; invalidation is a full reset, so callers must invalidate
// after any write that could change cached identities.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/token"
)

// UserLoader loads a user when the cache misses.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Users caches user lookups by identifier.
type Users struct {
	loader UserLoader
	lru    *lru.Cache[string, *model.User]
}

// NewUsers builds a user cache of the given capacity over the loader.
func NewUsers(loader UserLoader, capacity int) (*Users, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	store, err := lru.New[string, *model.User](capacity)
	if err != nil {
		return nil, apperr.Internal("build user cache failed", err)
	}
	return &Users{loader: loader, lru: store}, nil
}

// Get returns the cached user, loading and caching on a miss. A missing
// user resolves to nil without an error.
func (c *Users) Get(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, nil
	}
	if user, ok := c.lru.Get(id); ok {
		return user, nil
	}
	user, err := c.loader.GetByID(ctx, id)
	if apperr.IsKind(err, apperr.KindNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.lru.Add(id, user)
	return user, nil
}

// Invalidate drops every cached entry.
func (c *Users) Invalidate() {
	c.lru.Purge()
}

// Tokens holds short-lived one-time tokens handed out to onboarding
// flows. Entries live only in process memory.
type Tokens struct {
	lru *lru.Cache[string, string]
}

// NewTokens builds a one-time token cache of the given capacity.
func NewTokens(capacity int) (*Tokens, error) {
	if capacity <= 0 {
		capacity = 1000
	}
	store, err := lru.New[string, string](capacity)
	if err != nil {
		return nil, apperr.Internal("build token cache failed", err)
	}
	return &Tokens{lru: store}, nil
}

// Save generates a fresh opaque value, caches it and returns it.
func (c *Tokens) Save() string {
	opaque := token.NewOpaque()
	c.lru.Add(opaque, opaque)
	return opaque
}

// Get returns the cached value or a validation error when the token was
// never issued or has been evicted.
func (c *Tokens) Get(opaque string) (string, error) {
	cached, ok := c.lru.Get(opaque)
	if !ok {
		return "", apperr.Validation("token not found")
	}
	return cached, nil
}

// Invalidate drops every cached entry.
func (c *Tokens) Invalidate() {
	c.lru.Purge()
}

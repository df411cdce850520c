package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
)

type countingLoader struct {
	users map[string]*model.User
	calls int
	err   error
}

func (l *countingLoader) GetByID(ctx context.Context, id string) (*model.User, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	user, ok := l.users[id]
	if !ok {
		return nil, apperr.NotFound("")
	}
	return user, nil
}

func TestUsersGetCachesLoads(t *testing.T) {
	loader := &countingLoader{users: map[string]*model.User{
		"u-1": {Ident: model.Ident{ID: "u-1"}, Email: "a@b.c"},
	}}
	users, err := NewUsers(loader, 8)
	if err != nil {
		t.Fatalf("NewUsers: %v", err)
	}

	for i := 0; i < 3; i++ {
		user, err := users.Get(context.Background(), "u-1")
		if err != nil || user == nil || user.Email != "a@b.c" {
			t.Fatalf("Get: %+v, %v", user, err)
		}
	}
	if loader.calls != 1 {
		t.Fatalf("expected one loader call, got %d", loader.calls)
	}
}

func TestUsersGetMissAndEmptyID(t *testing.T) {
	loader := &countingLoader{users: map[string]*model.User{}}
	users, err := NewUsers(loader, 8)
	if err != nil {
		t.Fatalf("NewUsers: %v", err)
	}

	user, err := users.Get(context.Background(), "")
	if err != nil || user != nil {
		t.Fatalf("empty id should resolve to nil, nil: %+v, %v", user, err)
	}
	if loader.calls != 0 {
		t.Fatalf("empty id must not hit the loader")
	}

	user, err = users.Get(context.Background(), "missing")
	if err != nil || user != nil {
		t.Fatalf("missing user should resolve to nil, nil: %+v, %v", user, err)
	}
}

func TestUsersGetLoaderFailure(t *testing.T) {
	loader := &countingLoader{err: apperr.Database("down", errors.New("refused"))}
	users, err := NewUsers(loader, 8)
	if err != nil {
		t.Fatalf("NewUsers: %v", err)
	}

	if _, err := users.Get(context.Background(), "u-1"); !apperr.IsKind(err, apperr.KindDatabase) {
		t.Fatalf("loader failure must propagate, got %v", err)
	}
}

func TestUsersInvalidate(t *testing.T) {
	loader := &countingLoader{users: map[string]*model.User{
		"u-1": {Ident: model.Ident{ID: "u-1"}},
	}}
	users, err := NewUsers(loader, 8)
	if err != nil {
		t.Fatalf("NewUsers: %v", err)
	}

	if _, err := users.Get(context.Background(), "u-1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	users.Invalidate()
	if _, err := users.Get(context.Background(), "u-1"); err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("invalidate should force a reload, got %d calls", loader.calls)
	}
}

func TestUsersCapacityDefault(t *testing.T) {
	loader := &countingLoader{users: map[string]*model.User{}}
	if _, err := NewUsers(loader, 0); err != nil {
		t.Fatalf("zero capacity should fall back to the default: %v", err)
	}
}

func TestTokensSaveAndGet(t *testing.T) {
	tokens, err := NewTokens(8)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}

	opaque := tokens.Save()
	if len(opaque) != 64 {
		t.Fatalf("unexpected opaque length: %d", len(opaque))
	}

	cached, err := tokens.Get(opaque)
	if err != nil || cached != opaque {
		t.Fatalf("Get: %q, %v", cached, err)
	}

	if _, err := tokens.Get("never-issued"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("unknown token should fail validation, got %v", err)
	}

	tokens.Invalidate()
	if _, err := tokens.Get(opaque); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("invalidated token should fail validation, got %v", err)
	}
}

func TestTokensEviction(t *testing.T) {
	tokens, err := NewTokens(2)
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}

	first := tokens.Save()
	tokens.Save()
	tokens.Save()

	if _, err := tokens.Get(first); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("evicted token should fail validation, got %v", err)
	}
}

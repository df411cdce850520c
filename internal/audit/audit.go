// Package audit appends immutable before/after records for every mutation
// the repository layer performs. The log is write-only from the
// repository's perspective and is never read back here.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/docstore"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/ids"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/obs"
)

// Logger records one mutation. The append is not transactional with the
// primary write: a failed append after a successful write surfaces as the
// operation's error and the write is not rolled back.
type Logger interface {
	Log(ctx context.Context, collectionName, entityID, userID, operation string, dataBefore, dataAfter any) error
}

// Store is the collection-backed Logger.
type Store struct {
	coll docstore.Collection[model.AuditLog]
	now  func() time.Time
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

// NewStore builds a Store over the audit log collection.
func NewStore(coll docstore.Collection[model.AuditLog], opts ...Option) *Store {
	s := &Store{coll: coll, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Log serializes both snapshots and appends one immutable entry.
func (s *Store) Log(ctx context.Context, collectionName, entityID, userID, operation string, dataBefore, dataAfter any) error {
	if collectionName == "" || operation == "" {
		return apperr.Internal("audit entry requires a collection and an operation", nil)
	}

	before, err := serialize(dataBefore)
	if err != nil {
		return err
	}
	after, err := serialize(dataAfter)
	if err != nil {
		return err
	}

	entry := model.AuditLog{
		Ident:          model.Ident{ID: ids.New()},
		CollectionName: collectionName,
		EntityID:       entityID,
		UserID:         userID,
		Operation:      operation,
		DataBefore:     before,
		DataAfter:      after,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.coll.InsertOne(ctx, &entry); err != nil {
		return err
	}
	obs.ObserveAuditEntry(operation)
	return nil
}

func serialize(data any) (string, error) {
	if data == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", apperr.Internal("serialize audit snapshot failed", err)
	}
	return string(raw), nil
}

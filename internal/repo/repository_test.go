package repo

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/audit"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/docstore"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/query"
)

type fixture struct {
	users     *Users
	userColl  *docstore.Memory[model.User]
	auditColl *docstore.Memory[model.AuditLog]
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		userColl:  docstore.NewMemory[model.User](model.CollectionUsers),
		auditColl: docstore.NewMemory[model.AuditLog](model.CollectionAuditLogs),
		now:       time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	logger := audit.NewStore(f.auditColl, audit.WithClock(clock))
	f.users = New[model.User, *model.User](Config[model.User]{
		Collection:  f.userColl,
		UserID:      "actor-1",
		AuditLogger: logger,
		Base:        query.Aggregation{Match: bson.M{"isDeleted": false}},
		Clock:       clock,
	})
	return f
}

func (f *fixture) createUser(t *testing.T, email string) *model.User {
	t.Helper()
	user, err := f.users.Create(context.Background(), func(u *model.User) {
		u.Email = email
		u.FirstName = "Test"
		u.Status = model.UserStatusActive
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func (f *fixture) auditEntries(t *testing.T) []model.AuditLog {
	t.Helper()
	var entries []model.AuditLog
	if err := f.auditColl.Aggregate(context.Background(), nil, &entries); err != nil {
		t.Fatalf("read audit entries: %v", err)
	}
	return entries
}

func TestCreateAssignsIDAndStamps(t *testing.T) {
	f := newFixture(t)

	user := f.createUser(t, "a@b.c")
	if user.ID == "" {
		t.Fatalf("expected generated id")
	}
	if user.CreatedAt == nil || !user.CreatedAt.Equal(f.now) {
		t.Fatalf("unexpected createdAt: %v", user.CreatedAt)
	}
	if user.CreatedBy != "actor-1" {
		t.Fatalf("unexpected createdBy: %s", user.CreatedBy)
	}
	if user.UpdatedAt != nil || user.UpdatedBy != "" {
		t.Fatalf("create must not set mutation stamps: %v %s", user.UpdatedAt, user.UpdatedBy)
	}

	entries := f.auditEntries(t)
	if len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Operation != model.AuditOpCreate || entry.EntityID != user.ID || entry.UserID != "actor-1" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.DataBefore != "{}" {
		t.Fatalf("create before snapshot should be empty, got %q", entry.DataBefore)
	}
	if !strings.Contains(entry.DataAfter, "a@b.c") {
		t.Fatalf("create after snapshot missing entity state: %q", entry.DataAfter)
	}
}

func TestCreateKeepsPresetID(t *testing.T) {
	f := newFixture(t)

	user, err := f.users.Create(context.Background(), func(u *model.User) {
		u.ID = "fixed-id"
		u.Email = "a@b.c"
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID != "fixed-id" {
		t.Fatalf("preset id replaced: %s", user.ID)
	}
}

func TestGetByIDAndFindByID(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "a@b.c")

	got, err := f.users.GetByID(context.Background(), user.ID)
	if err != nil || got.Email != "a@b.c" {
		t.Fatalf("GetByID: %+v, %v", got, err)
	}

	if _, err := f.users.GetByID(context.Background(), "missing"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	found, err := f.users.FindByID(context.Background(), "missing")
	if err != nil || found != nil {
		t.Fatalf("FindByID missing: %+v, %v", found, err)
	}
}

func TestGetOneAndFindOne(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "a@b.c")

	got, err := f.users.GetOne(context.Background(), bson.M{"email": "a@b.c"})
	if err != nil || got == nil {
		t.Fatalf("GetOne: %+v, %v", got, err)
	}

	if _, err := f.users.GetOne(context.Background(), bson.M{"email": "zz@b.c"}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}

	found, err := f.users.FindOne(context.Background(), bson.M{"email": "zz@b.c"})
	if err != nil || found != nil {
		t.Fatalf("FindOne miss: %+v, %v", found, err)
	}
}

func TestUpdateStampsAndAudits(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "a@b.c")

	f.now = f.now.Add(time.Hour)
	updated, err := f.users.Update(context.Background(), user.ID, func(u *model.User) {
		u.Email = "new@b.c"
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Email != "new@b.c" {
		t.Fatalf("update not applied: %s", updated.Email)
	}
	if updated.UpdatedAt == nil || !updated.UpdatedAt.Equal(f.now) {
		t.Fatalf("unexpected updatedAt: %v", updated.UpdatedAt)
	}
	if updated.CreatedAt == nil || updated.CreatedAt.Equal(f.now) {
		t.Fatalf("update must not touch createdAt: %v", updated.CreatedAt)
	}

	entries := f.auditEntries(t)
	if len(entries) != 2 {
		t.Fatalf("expected two audit entries, got %d", len(entries))
	}
	entry := entries[1]
	if entry.Operation != model.AuditOpUpdate || entry.EntityID != user.ID {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if !strings.Contains(entry.DataBefore, "a@b.c") {
		t.Fatalf("before snapshot must carry the pre-image: %q", entry.DataBefore)
	}
	if !strings.Contains(entry.DataAfter, "new@b.c") {
		t.Fatalf("after snapshot must carry the post-image: %q", entry.DataAfter)
	}
}

func TestUpdateMissingEntity(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Update(context.Background(), "missing", nil)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if len(f.auditEntries(t)) != 0 {
		t.Fatalf("failed update must not append an audit entry")
	}
}

func TestDeleteSoftDeletes(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "a@b.c")

	f.now = f.now.Add(time.Hour)
	if err := f.users.Delete(context.Background(), user.ID, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}

	stored, err := f.users.FindByID(context.Background(), user.ID)
	if err != nil || stored == nil {
		t.Fatalf("soft-deleted document must survive in the store: %v", err)
	}
	if !stored.IsDeleted || stored.DeletedAt == nil || stored.DeletedBy != "actor-1" {
		t.Fatalf("soft-delete stamps missing: %+v", stored.SoftDelete)
	}
	if stored.UpdatedAt == nil || !stored.UpdatedAt.Equal(f.now) {
		t.Fatalf("soft delete must stamp the mutation fields: %v", stored.UpdatedAt)
	}

	found, err := f.users.FindOne(context.Background(), bson.M{"email": "a@b.c"})
	if err != nil || found != nil {
		t.Fatalf("soft-deleted document leaked through base scope: %+v, %v", found, err)
	}

	results, err := f.users.Query(context.Background(), query.Aggregation{})
	if err != nil || len(results) != 0 {
		t.Fatalf("soft-deleted document leaked through query: %d, %v", len(results), err)
	}

	entries := f.auditEntries(t)
	if len(entries) != 2 || entries[1].Operation != model.AuditOpDelete {
		t.Fatalf("expected one DELETE entry, got %+v", entries)
	}
}

func TestDeleteValidateGuard(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "a@b.c")

	err := f.users.Delete(context.Background(), user.ID, func(ctx context.Context, u *model.User) (bool, error) {
		return false, nil
	})
	if !apperr.IsKind(err, apperr.KindDatabase) {
		t.Fatalf("expected database error from rejected guard, got %v", err)
	}

	stored, _ := f.users.FindByID(context.Background(), user.ID)
	if stored.IsDeleted {
		t.Fatalf("rejected guard must not delete")
	}
	if len(f.auditEntries(t)) != 1 {
		t.Fatalf("rejected guard must not append an audit entry")
	}

	guardErr := apperr.Validation("still referenced")
	err = f.users.Delete(context.Background(), user.ID, func(ctx context.Context, u *model.User) (bool, error) {
		return false, guardErr
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("guard error must propagate unchanged, got %v", err)
	}
}

func TestDeleteHardRemovesDocument(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "a@b.c")

	if err := f.users.DeleteHard(context.Background(), user.ID, nil); err != nil {
		t.Fatalf("hard delete: %v", err)
	}

	stored, err := f.users.FindByID(context.Background(), user.ID)
	if err != nil || stored != nil {
		t.Fatalf("hard-deleted document still present: %+v, %v", stored, err)
	}

	entries := f.auditEntries(t)
	if len(entries) != 2 {
		t.Fatalf("expected two audit entries, got %d", len(entries))
	}
	entry := entries[1]
	if entry.Operation != model.AuditOpHardDelete {
		t.Fatalf("unexpected operation: %s", entry.Operation)
	}
	if !strings.Contains(entry.DataBefore, "a@b.c") {
		t.Fatalf("hard delete before snapshot missing: %q", entry.DataBefore)
	}
	if entry.DataAfter != "{}" {
		t.Fatalf("hard delete after snapshot should be empty, got %q", entry.DataAfter)
	}
}

func TestDeleteHardByQuery(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "a@b.c")

	if err := f.users.DeleteHardByQuery(context.Background(), bson.M{"email": "a@b.c"}, nil); err != nil {
		t.Fatalf("hard delete by query: %v", err)
	}
	stored, _ := f.users.FindByID(context.Background(), user.ID)
	if stored != nil {
		t.Fatalf("document still present after hard delete by query")
	}

	err := f.users.DeleteHardByQuery(context.Background(), bson.M{"email": "a@b.c"}, nil)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not-found for empty match, got %v", err)
	}
}

func TestQueryAppliesOverride(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "c@b.c")
	f.createUser(t, "a@b.c")
	f.createUser(t, "b@b.c")

	results, err := f.users.Query(context.Background(), query.Aggregation{
		Sort:  bson.D{{Key: "email", Value: 1}},
		Limit: 2,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(results) != 2 || results[0].Email != "a@b.c" || results[1].Email != "b@b.c" {
		t.Fatalf("unexpected query window: %+v", results)
	}
}

func TestQueryCannotDropBaseMatch(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "a@b.c")
	if err := f.users.Delete(context.Background(), user.ID, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}

	results, err := f.users.Query(context.Background(), query.Aggregation{Match: bson.M{"email": "a@b.c"}})
	if err != nil || len(results) != 0 {
		t.Fatalf("override match must not drop soft-delete exclusion: %d, %v", len(results), err)
	}
}

func TestCount(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "a@b.c")
	f.createUser(t, "b@b.c")

	total, err := f.users.Count(context.Background(), nil)
	if err != nil || total != 2 {
		t.Fatalf("count: %d, %v", total, err)
	}

	total, err = f.users.Count(context.Background(), bson.M{"email": "a@b.c"})
	if err != nil || total != 1 {
		t.Fatalf("filtered count: %d, %v", total, err)
	}

	total, err = f.users.Count(context.Background(), bson.M{"email": "zz@b.c"})
	if err != nil || total != 0 {
		t.Fatalf("empty count: %d, %v", total, err)
	}
}

func TestSearchEscapesPattern(t *testing.T) {
	f := newFixture(t)
	f.createUser(t, "a+b@x.dev")
	f.createUser(t, "aab@x.dev")

	results, err := f.users.Search(context.Background(), "A+B", "email")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Email != "a+b@x.dev" {
		t.Fatalf("metacharacters not escaped or case folding broken: %+v", results)
	}
}

type failingLogger struct{}

func (failingLogger) Log(ctx context.Context, collectionName, entityID, userID, operation string, dataBefore, dataAfter any) error {
	return apperr.Database("audit append failed", nil)
}

func TestAuditFailurePropagatesWithoutRollback(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "a@b.c")

	broken := New[model.User, *model.User](Config[model.User]{
		Collection:  f.userColl,
		UserID:      "actor-1",
		AuditLogger: failingLogger{},
		Base:        query.Aggregation{Match: bson.M{"isDeleted": false}},
	})

	created, err := broken.Create(context.Background(), func(u *model.User) {
		u.ID = "audit-orphan"
		u.Email = "b@b.c"
	})
	if !apperr.IsKind(err, apperr.KindDatabase) {
		t.Fatalf("expected audit error to surface, got %v", err)
	}
	if created != nil {
		t.Fatalf("failed create must not return the entity")
	}
	stored, err := f.userColl.FindByID(context.Background(), "audit-orphan")
	if err != nil || stored == nil {
		t.Fatalf("primary write must not be rolled back: %+v, %v", stored, err)
	}

	_, err = broken.Update(context.Background(), user.ID, func(u *model.User) {
		u.Email = "renamed@b.c"
	})
	if !apperr.IsKind(err, apperr.KindDatabase) {
		t.Fatalf("expected audit error to surface, got %v", err)
	}
	stored, err = f.userColl.FindByID(context.Background(), user.ID)
	if err != nil || stored == nil || stored.Email != "renamed@b.c" {
		t.Fatalf("updated document must stay persisted: %+v, %v", stored, err)
	}
}

func TestBaseInjectsVersionRemoval(t *testing.T) {
	f := newFixture(t)

	base := f.users.Base()
	if len(base.Project) == 0 || base.Project[0]["__v"] != "$$REMOVE" {
		t.Fatalf("version removal missing from base projection: %+v", base.Project)
	}

	withProject := New[model.User, *model.User](Config[model.User]{
		Collection:  f.userColl,
		UserID:      "actor-1",
		AuditLogger: audit.NewStore(f.auditColl),
		Base:        query.Aggregation{Project: []bson.M{{"email": 1}}},
	})
	base = withProject.Base()
	if base.Project[0]["__v"] != "$$REMOVE" || base.Project[0]["email"] != 1 {
		t.Fatalf("version removal not merged into first projection: %+v", base.Project)
	}
}

// Command smoke wires the full persistence and authentication stack and
// drives one end-to-end pass: seed a role and a user, log in, issue an
// admin session token, authenticate with it, then revoke it. Runs against
// MONGO_URI when set, or an in-memory store otherwise.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/audit"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/auth"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/cache"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/docstore"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/obs"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/repo"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/token"
)

const systemUserID = "system"

func main() {
	obs.InitMetrics()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users, roles, tokens, auditLogs, cleanup := buildCollections(ctx)
	defer cleanup()

	auditStore := audit.NewStore(auditLogs)
	identities := repo.NewIdentities(users, auditStore, systemUserID)
	roleRepo := repo.NewRoles(roles, auditStore, systemUserID)
	tokenStore := token.NewStore(repo.NewTokens(tokens, auditStore, systemUserID))

	hasher := auth.BcryptHasher{}
	engine := auth.NewEngine(identities, tokenStore, hasher)

	userCache, err := cache.NewUsers(identities, 1024)
	if err != nil {
		log.Fatalf("build user cache: %v", err)
	}

	role, err := roleRepo.Create(ctx, func(r *model.Role) {
		r.Type = "OPERATOR"
		r.Description = "Smoke operator"
		r.Permissions = model.StaticPermissions
	})
	if err != nil {
		log.Fatalf("create role: %v", err)
	}

	email := fmt.Sprintf("smoke-%s@example.com", uuid.NewString())
	password := "Sm0ke-pass"
	if err := auth.ValidatePassword(password, auth.DefaultPasswordRequirements); err != nil {
		log.Fatalf("password policy: %v", err)
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user, err := identities.Create(ctx, func(u *model.User) {
		u.Email = email
		u.FirstName = "Smoke"
		u.LastName = "Runner"
		u.PasswordHash = hash
		u.RoleID = role.ID
		u.IsAdmin = true
		u.Status = model.UserStatusActive
	})
	if err != nil {
		log.Fatalf("create user: %v", err)
	}
	userCache.Invalidate()

	login, err := engine.Local(ctx, auth.LocalInput{Email: email, Password: password})
	if err != nil {
		log.Fatalf("local login: %v", err)
	}
	if login.User.ID != user.ID {
		log.Fatalf("local login resolved %s, want %s", login.User.ID, user.ID)
	}
	if !auth.HasPermission(login.User, model.PermUserRead) {
		log.Fatalf("expected %s permission", model.PermUserRead)
	}

	session, err := tokenStore.Issue(ctx, login.User.ID, model.TokenTypeAdmin, model.TokenAdminSessionTTL, nil)
	if err != nil {
		log.Fatalf("issue session token: %v", err)
	}

	bearer, err := engine.BearerInternal(ctx, session.Token)
	if err != nil {
		log.Fatalf("bearer auth: %v", err)
	}
	if bearer.User.ID != user.ID {
		log.Fatalf("bearer resolved %s, want %s", bearer.User.ID, user.ID)
	}

	cached, err := userCache.Get(ctx, user.ID)
	if err != nil || cached == nil {
		log.Fatalf("cached lookup: user=%v err=%v", cached, err)
	}

	if err := tokenStore.Revoke(ctx, session.Token); err != nil {
		log.Fatalf("revoke token: %v", err)
	}
	if _, err := engine.BearerInternal(ctx, session.Token); !apperr.IsKind(err, apperr.KindForbidden) {
		log.Fatalf("expected forbidden after revoke, got %v", err)
	}

	view, err := json.Marshal(bearer.User.View())
	if err != nil {
		log.Fatalf("marshal user view: %v", err)
	}
	fmt.Printf("smoke: local login, bearer session and revocation verified for %s\n", view)
}

func buildCollections(ctx context.Context) (
	docstore.Collection[model.User],
	docstore.Collection[model.Role],
	docstore.Collection[model.Token],
	docstore.Collection[model.AuditLog],
	func(),
) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		return docstore.NewMemory[model.User](model.CollectionUsers),
			docstore.NewMemory[model.Role](model.CollectionRoles),
			docstore.NewMemory[model.Token](model.CollectionTokens),
			docstore.NewMemory[model.AuditLog](model.CollectionAuditLogs),
			func() {}
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		log.Fatalf("connect to %s: %v", uri, err)
	}
	db := client.Database("smoke")
	if err := docstore.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("ensure indexes: %v", err)
	}
	cleanup := func() {
		_ = client.Disconnect(context.Background())
	}
	return docstore.NewMongo[model.User](db, model.CollectionUsers),
		docstore.NewMongo[model.Role](db, model.CollectionRoles),
		docstore.NewMongo[model.Token](db, model.CollectionTokens),
		docstore.NewMongo[model.AuditLog](db, model.CollectionAuditLogs),
		cleanup
}

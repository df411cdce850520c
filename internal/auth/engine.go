// Package auth implements the credential-verification strategies: local
// password login, bearer token resolution and the invitation/onboarding
// token flows. Every strategy is stateless between calls; concurrent
// attempts are independent.
package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/time/rate"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/model"
	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/obs"
)

// UserSource resolves users through the identity repository scope.
type UserSource interface {
	FindOne(ctx context.Context, match bson.M) (*model.User, error)
}

// TokenSource resolves non-expired tokens by opaque value and type.
type TokenSource interface {
	FindActive(ctx context.Context, opaque string, types ...string) (*model.Token, error)
}

// Result is the outcome of a successful authentication: the principal
// and, for bearer strategies, the resolved token.
type Result struct {
	User  *model.User
	Token *model.Token
}

// Engine runs the authentication strategies. Store-level failures never
// reach the caller: they are logged and converted into a rejection, so
// the security boundary does not leak storage detail.
type Engine struct {
	users    UserSource
	tokens   TokenSource
	hasher   Hasher
	verifier IDTokenVerifier
	limiter  *rate.Limiter
}

// Option configures an Engine.
type Option func(*Engine)

// WithVerifier enables federated login through the given verifier.
func WithVerifier(v IDTokenVerifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithLoginLimiter throttles local login attempts process-wide.
func WithLoginLimiter(limit rate.Limit, burst int) Option {
	return func(e *Engine) { e.limiter = rate.NewLimiter(limit, burst) }
}

// NewEngine builds an Engine over the identity and token sources.
func NewEngine(users UserSource, tokens TokenSource, hasher Hasher, opts ...Option) *Engine {
	e := &Engine{users: users, tokens: tokens, hasher: hasher}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LocalInput carries local strategy credentials. When Federated is set,
// Password carries an externally issued ID token instead of a secret.
type LocalInput struct {
	Email     string
	Password  string
	Federated bool
}

// Local authenticates a public user by email and password. System users
// and non-active accounts are out of scope for this strategy.
func (e *Engine) Local(ctx context.Context, in LocalInput) (result *Result, err error) {
	defer func() { obs.ObserveAuthAttempt("local", err == nil) }()

	if in.Email == "" || in.Password == "" {
		return nil, apperr.Authentication("missing email or password fields")
	}
	if e.limiter != nil && !e.limiter.Allow() {
		return nil, apperr.Authentication("too many login attempts")
	}

	user, err := e.lookupUser(ctx, "auth.local", bson.M{
		"email":    in.Email,
		"status":   model.UserStatusActive,
		"isSystem": false,
	})
	if err != nil {
		return nil, err
	}

	if in.Federated {
		if err := e.verifyFederated(ctx, in); err != nil {
			return nil, err
		}
	} else if !e.hasher.Compare(user.PasswordHash, in.Password) {
		return nil, apperr.Authentication("")
	}

	return &Result{User: user}, nil
}

// LocalInternal authenticates an internal/admin user by email and
// password under the looser scope: only the soft-delete exclusion
// applies.
func (e *Engine) LocalInternal(ctx context.Context, email, password string) (result *Result, err error) {
	defer func() { obs.ObserveAuthAttempt("local_internal", err == nil) }()

	if email == "" || password == "" {
		return nil, apperr.Authentication("missing email or password fields")
	}

	user, err := e.lookupUser(ctx, "auth.local_internal", bson.M{"email": email})
	if err != nil {
		return nil, err
	}
	if !e.hasher.Compare(user.PasswordHash, password) {
		return nil, apperr.Authentication("")
	}
	return &Result{User: user}, nil
}

// Bearer resolves an access or admin session token and its active user.
func (e *Engine) Bearer(ctx context.Context, opaque string) (result *Result, err error) {
	defer func() { obs.ObserveAuthAttempt("bearer", err == nil) }()

	tok, err := e.lookupToken(ctx, "auth.bearer", opaque, model.TokenTypeAccess, model.TokenTypeAdmin)
	if err != nil {
		return nil, err
	}
	user, err := e.lookupBoundUser(ctx, "auth.bearer", tok, bson.M{"status": model.UserStatusActive})
	if err != nil {
		return nil, err
	}
	return &Result{User: user, Token: tok}, nil
}

// BearerInternal resolves an admin session token under the looser
// internal user scope.
func (e *Engine) BearerInternal(ctx context.Context, opaque string) (result *Result, err error) {
	defer func() { obs.ObserveAuthAttempt("bearer_internal", err == nil) }()

	tok, err := e.lookupToken(ctx, "auth.bearer_internal", opaque, model.TokenTypeAdmin)
	if err != nil {
		return nil, err
	}
	user, err := e.lookupBoundUser(ctx, "auth.bearer_internal", tok, nil)
	if err != nil {
		return nil, err
	}
	return &Result{User: user, Token: tok}, nil
}

// BearerInvite resolves a registration token and its invited user.
func (e *Engine) BearerInvite(ctx context.Context, opaque string) (result *Result, err error) {
	defer func() { obs.ObserveAuthAttempt("bearer_invite", err == nil) }()

	tok, err := e.lookupToken(ctx, "auth.bearer_invite", opaque, model.TokenTypeRegister)
	if err != nil {
		return nil, err
	}
	user, err := e.lookupBoundUser(ctx, "auth.bearer_invite", tok, bson.M{"status": model.UserStatusInvited})
	if err != nil {
		return nil, err
	}
	return &Result{User: user, Token: tok}, nil
}

// BearerOnboard resolves an onboarding token. Onboarding tokens are not
// bound to a user yet; the result carries the token alone.
func (e *Engine) BearerOnboard(ctx context.Context, opaque string) (result *Result, err error) {
	defer func() { obs.ObserveAuthAttempt("bearer_onboard", err == nil) }()

	tok, err := e.lookupToken(ctx, "auth.bearer_onboard", opaque, model.TokenTypeOnboard)
	if err != nil {
		return nil, err
	}
	return &Result{Token: tok}, nil
}

func (e *Engine) verifyFederated(ctx context.Context, in LocalInput) error {
	if e.verifier == nil {
		return apperr.Authentication("federated login is not configured")
	}
	claims, err := e.verifier.Verify(ctx, in.Password)
	if err != nil {
		return apperr.Authentication("")
	}
	if claims.Email != "" && claims.Email != in.Email {
		return apperr.Authentication("login email mismatch")
	}
	return nil
}

// lookupUser resolves a user for the local strategies, masking store
// failures as rejected credentials.
func (e *Engine) lookupUser(ctx context.Context, scope string, match bson.M) (*model.User, error) {
	user, err := e.users.FindOne(ctx, match)
	if err != nil {
		obs.LogError(scope, err)
		return nil, apperr.Authentication("")
	}
	if user == nil {
		return nil, apperr.Authentication("")
	}
	return user, nil
}

// lookupToken resolves a bearer token, masking store failures as
// forbidden.
func (e *Engine) lookupToken(ctx context.Context, scope, opaque string, types ...string) (*model.Token, error) {
	if opaque == "" {
		return nil, apperr.Forbidden("")
	}
	tok, err := e.tokens.FindActive(ctx, opaque, types...)
	if err != nil {
		obs.LogError(scope, err)
		return nil, apperr.Forbidden("")
	}
	if tok == nil {
		return nil, apperr.Forbidden("")
	}
	return tok, nil
}

// lookupBoundUser resolves the user a token is bound to under the
// strategy-specific scope.
func (e *Engine) lookupBoundUser(ctx context.Context, scope string, tok *model.Token, extra bson.M) (*model.User, error) {
	if tok.UserID == "" {
		return nil, apperr.Forbidden("")
	}
	match := bson.M{"_id": tok.UserID}
	for key, value := range extra {
		match[key] = value
	}
	user, err := e.users.FindOne(ctx, match)
	if err != nil {
		obs.LogError(scope, err)
		return nil, apperr.Forbidden("")
	}
	if user == nil {
		return nil, apperr.Forbidden("")
	}
	return user, nil
}

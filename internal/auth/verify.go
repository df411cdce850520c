package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
)

// IDTokenClaims is the asserted identity extracted from an externally
// issued ID token.
type IDTokenClaims struct {
	Subject string
	Email   string
}

// IDTokenVerifier validates an externally issued ID token during a
// federated login, where the password field carries the token instead of
// a secret.
type IDTokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (IDTokenClaims, error)
}

// JWTVerifier verifies federated ID tokens as signed JWTs. The key
// material comes from the identity provider via the caller-supplied
// keyfunc; Audience must match the token's aud claim.
type JWTVerifier struct {
	Keyfunc  jwt.Keyfunc
	Audience string
}

type federatedClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Verify parses and validates the token and returns the asserted
// identity. Expiry and audience are enforced by the parser.
func (v JWTVerifier) Verify(ctx context.Context, rawToken string) (IDTokenClaims, error) {
	if rawToken == "" {
		return IDTokenClaims{}, apperr.Authentication("missing identity token")
	}

	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}

	parsed, err := jwt.ParseWithClaims(rawToken, &federatedClaims{}, v.Keyfunc, opts...)
	if err != nil || !parsed.Valid {
		return IDTokenClaims{}, apperr.Authentication("access credentials are incorrect")
	}
	claims, ok := parsed.Claims.(*federatedClaims)
	if !ok {
		return IDTokenClaims{}, apperr.Authentication("access credentials are incorrect")
	}
	return IDTokenClaims{
		Subject: claims.Subject,
		Email:   claims.Email,
	}, nil
}

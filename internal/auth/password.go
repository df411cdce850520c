package auth

import (
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"

	"github.com/tibor-mirnic/nemt-server-boilerplate/internal/apperr"
)

// Hasher is the password-hashing capability the engine depends on.
// Compare must run in constant time with respect to the plaintext.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hashed, password string) bool
}

// BcryptHasher hashes passwords using bcrypt.
type BcryptHasher struct {
	Cost int
}

// Hash hashes a plaintext password.
func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", apperr.Internal("hash password failed", err)
	}
	return string(hash), nil
}

// Compare compares a plaintext password with a stored hash.
func (h BcryptHasher) Compare(hashed, password string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}

// PasswordRequirements is the password acceptance policy.
type PasswordRequirements struct {
	MinLength         int
	MixedCaseRequired bool
	NumberRequired    bool
}

// DefaultPasswordRequirements is the policy applied unless configured
// otherwise.
var DefaultPasswordRequirements = PasswordRequirements{
	MinLength:         8,
	MixedCaseRequired: true,
	NumberRequired:    true,
}

var (
	hasDigit = regexp.MustCompile(`\d`)
	hasUpper = regexp.MustCompile(`[A-Z]`)
	hasLower = regexp.MustCompile(`[a-z]`)
)

// ValidatePassword checks a candidate password against the policy. The
// returned validation messages are user-visible verbatim.
func ValidatePassword(password string, req PasswordRequirements) error {
	if password == "" {
		return apperr.Validation("password provided not valid")
	}
	if len(password) < req.MinLength {
		return apperr.Validation(fmt.Sprintf("password must be at least %d characters long", req.MinLength))
	}
	if req.NumberRequired && !hasDigit.MatchString(password) {
		return apperr.Validation("password must include at least one number character to be valid")
	}
	if req.MixedCaseRequired && (!hasUpper.MatchString(password) || !hasLower.MatchString(password)) {
		return apperr.Validation("password must include at least one upper and lower case character to be valid")
	}
	return nil
}

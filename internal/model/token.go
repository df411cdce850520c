package model

import "time"

// Token types issued by the authentication flows.
const (
	TokenTypeAccess   = "access"
	TokenTypeAdmin    = "admin"
	TokenTypeRegister = "register"
	TokenTypeOnboard  = "onboard"
)

// Token TTLs. Every token expires 20 minutes after issuance unless the
// issuing flow sets a longer window; admin sessions last 5 days.
const (
	TokenDefaultTTL      = 20 * time.Minute
	TokenAdminSessionTTL = 5 * 24 * time.Hour
)

// Token is an opaque credential bound to a user and a type. The store's
// TTL sweep removes documents once ExpireAt has passed; logout removes
// them explicitly.
type Token struct {
	Ident      `bson:",inline"`
	SoftDelete `bson:",inline"`
	AuditInfo  `bson:",inline"`

	// UserID is empty for tokens not bound to a user (e.g. onboarding).
	UserID   string    `bson:"user,omitempty" json:"user,omitempty"`
	Data     any       `bson:"data,omitempty" json:"data,omitempty"`
	Token    string    `bson:"token" json:"token"`
	Type     string    `bson:"type" json:"type"`
	ExpireAt time.Time `bson:"expireAt" json:"expireAt"`
}

// CollectionTokens is the tokens collection name.
const CollectionTokens = "tokens"

package model

// User statuses used by the authentication scopes.
const (
	UserStatusActive  = "active"
	UserStatusInvited = "invited"
)

// User represents a human or system account. Email is unique among
// non-deleted users. Role is a weak reference resolved by lookup; deleting
// a role never cascades to its users.
type User struct {
	Ident      `bson:",inline"`
	SoftDelete `bson:",inline"`
	AuditInfo  `bson:",inline"`

	Email        string `bson:"email" json:"email"`
	FirstName    string `bson:"firstName" json:"firstName"`
	LastName     string `bson:"lastName" json:"lastName"`
	PasswordHash string `bson:"passwordHash,omitempty" json:"-"`

	// Role holds the role id when raw, or the resolved role after the
	// repository's lookup+unwind pipeline ran.
	RoleID string `bson:"role,omitempty" json:"-"`
	Role   *Role  `bson:"roleDoc,omitempty" json:"role,omitempty"`

	IsSystem bool   `bson:"isSystem" json:"isSystem"`
	IsAdmin  bool   `bson:"isAdmin" json:"isAdmin"`
	Status   string `bson:"status" json:"status"`
}

// CollectionUsers is the users collection name.
const CollectionUsers = "users"

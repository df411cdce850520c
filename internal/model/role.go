package model

// Permission is a named capability a role grants.
type Permission struct {
	Type        string `bson:"type" json:"type"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
}

// Role groups permissions under a unique type.
type Role struct {
	Ident      `bson:",inline"`
	SoftDelete `bson:",inline"`
	AuditInfo  `bson:",inline"`

	Type        string       `bson:"type" json:"type"`
	Description string       `bson:"description,omitempty" json:"description,omitempty"`
	Permissions []Permission `bson:"permissions" json:"permissions"`
}

// CollectionRoles is the roles collection name.
const CollectionRoles = "roles"

// Permission types known to the system.
const (
	PermUserRead  = "USER_READ"
	PermUserWrite = "USER_WRITE"
)

// StaticPermissions is the seeded permission catalog.
var StaticPermissions = []Permission{
	{Type: PermUserRead, Description: "View users"},
	{Type: PermUserWrite, Description: "Create or update users"},
}

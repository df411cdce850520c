package model

import "time"

// Operation names recorded in the audit log.
const (
	AuditOpCreate     = "CREATE"
	AuditOpUpdate     = "UPDATE"
	AuditOpDelete     = "DELETE"
	AuditOpHardDelete = "HARD_DELETE"
	AuditOpExternal   = "EXTERNAL"
)

// AuditLog is one immutable before/after record of a mutation. Entries
// are appended once per mutating repository call and never updated or
// deleted by this layer.
type AuditLog struct {
	Ident `bson:",inline"`

	CollectionName string    `bson:"collectionName" json:"collectionName"`
	EntityID       string    `bson:"entityId" json:"entityId"`
	UserID         string    `bson:"userId" json:"userId"`
	Operation      string    `bson:"operation" json:"operation"`
	DataBefore     string    `bson:"dataBefore" json:"dataBefore"`
	DataAfter      string    `bson:"dataAfter" json:"dataAfter"`
	CreatedAt      time.Time `bson:"createdAt" json:"createdAt"`
}

// CollectionAuditLogs is the audit log collection name.
const CollectionAuditLogs = "auditLogs"

// Package model defines the persisted entities and the shared field
// contracts every document satisfies: a store-assigned identifier, the
// soft-delete lifecycle and the audit stamps.
package model

import "time"

// Ident carries the store-assigned identifier.
type Ident struct {
	ID string `bson:"_id,omitempty" json:"id"`
}

// GetID returns the document identifier.
func (d *Ident) GetID() string { return d.ID }

// SetID assigns the document identifier. Called once, at insert.
func (d *Ident) SetID(id string) { d.ID = id }

// SoftDelete marks a document as removed from normal reads without
// physical deletion. Once IsDeleted is true, DeletedAt and DeletedBy are
// set and never cleared.
type SoftDelete struct {
	IsDeleted bool       `bson:"isDeleted" json:"isDeleted"`
	DeletedAt *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	DeletedBy string     `bson:"deletedBy,omitempty" json:"deletedBy,omitempty"`
}

// MarkDeleted records the soft-delete transition.
func (d *SoftDelete) MarkDeleted(userID string, at time.Time) {
	d.IsDeleted = true
	d.DeletedAt = &at
	d.DeletedBy = userID
}

// Deleted reports whether the document is soft-deleted.
func (d *SoftDelete) Deleted() bool { return d.IsDeleted }

// AuditInfo carries the creation and mutation stamps. CreatedAt/CreatedBy
// are set exactly once; UpdatedAt/UpdatedBy on every mutating write.
type AuditInfo struct {
	CreatedAt *time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	CreatedBy string     `bson:"createdBy,omitempty" json:"createdBy,omitempty"`
	UpdatedAt *time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
	UpdatedBy string     `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
}

// MarkCreated records the creation stamp.
func (a *AuditInfo) MarkCreated(userID string, at time.Time) {
	a.CreatedAt = &at
	a.CreatedBy = userID
}

// MarkUpdated records the mutation stamp.
func (a *AuditInfo) MarkUpdated(userID string, at time.Time) {
	a.UpdatedAt = &at
	a.UpdatedBy = userID
}

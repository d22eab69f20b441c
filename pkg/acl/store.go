package acl

import (
	"context"

	"github.com/doodlesbykumbi/ormbundle/pkg/model"
)

// IdentityRecord is a persisted object identity joined with its class type.
type IdentityRecord struct {
	model.ObjectIdentity
	ClassType string `gorm:"column:class_type"`
}

// Identity returns the domain identity of the record.
func (r IdentityRecord) Identity() ObjectIdentity {
	return ObjectIdentity{Type: r.ClassType, Identifier: r.ObjectIdentifier}
}

// NaturalKey identifies an entry independently of its primary key. A nil
// ObjectIdentityID selects class scope, a nil FieldName non-field entries.
type NaturalKey struct {
	ClassID            int64
	SecurityIdentityID int64
	ObjectIdentityID   *int64
	FieldName          *string
}

// Store abstracts the persistence operations of the ACL provider.
// Lookups that find nothing return a nil record and a nil error.
type Store interface {
	// WithContext returns a Store whose queries are bound to ctx.
	WithContext(ctx context.Context) Store

	// Transaction runs fn with a transactional Store.
	// If fn returns an error, the transaction is rolled back.
	Transaction(fn func(Store) error) error

	FindOrCreateClass(classType string) (*model.AclClass, error)
	FindOrCreateSecurityIdentity(sid SecurityIdentity) (*model.SecurityIdentity, error)
	FindSecurityIdentities(ids []int64) ([]model.SecurityIdentity, error)

	FindObjectIdentity(oid ObjectIdentity) (*IdentityRecord, error)
	FindObjectIdentityByID(id int64) (*IdentityRecord, error)
	CreateObjectIdentity(classID int64, identifier string) (*model.ObjectIdentity, error)
	// UpdateObjectIdentity sets the parent (nil detaches) and the
	// entries-inheriting flag.
	UpdateObjectIdentity(id int64, parentID *int64, entriesInheriting bool) error
	CountObjectIdentities(classID int64) (int64, error)
	// DeleteObjectIdentity removes the identity, its descendants and their
	// object-scoped entries.
	DeleteObjectIdentity(id int64) error
	// Ancestors returns the parent chain of the identity, nearest first.
	Ancestors(id int64) ([]int64, error)
	// Children returns the direct children of the identity.
	Children(id int64) ([]IdentityRecord, error)

	// FindEntries returns the class-scoped entries of the class and, when
	// objectIdentityID is set, the entries of that identity.
	FindEntries(classID int64, objectIdentityID *int64) ([]model.Entry, error)
	FindEntry(id int64) (*model.Entry, error)
	// FindEntriesByNaturalKey returns the matching entries ordered by id.
	FindEntriesByNaturalKey(key NaturalKey) ([]model.Entry, error)
	SaveEntry(e *model.Entry) error
	DeleteEntry(id int64) error
}

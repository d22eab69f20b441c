// Package acl provides a mutable ACL provider persisted with GORM.
//
// An ACL protects one object identity (a type and an identifier) and holds
// four ordered sequences of access control entries: class entries, object
// entries, and per field the class-field and object-field entries. The
// position of an entry in its sequence is its evaluation priority.
//
// # Basic Usage
//
//	provider := acl.NewProvider(acl.NewGormStore(db), logger)
//
//	oid := acl.ObjectIdentity{Type: "Blog\\Post", Identifier: "42"}
//	a, err := provider.CreateACL(ctx, oid)
//	if err != nil {
//	    return err
//	}
//	_ = a.InsertObjectACE(0, acl.UserIdentity("App\\User", "alice"), acl.MaskOwner, true)
//	if err := provider.UpdateACL(ctx, a); err != nil {
//	    return err
//	}
//
// # Updating
//
// UpdateACL reconciles the in-memory ACL against the persisted rows inside
// one transaction: every entry is matched to a persisted row (by id, then by
// its natural key), updated or created with its current position, and rows
// that are no longer present in memory are deleted. Failures roll back and
// are returned as *Error carrying the cause.
//
// # Store Interface
//
// The provider talks to the database through the Store interface. GormStore
// is the default implementation; tests can substitute their own.
package acl

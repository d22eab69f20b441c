// Package model defines the GORM models of the ACL tables.
//
//   - AclClass: acl_classes, one row per protected object type
//   - ObjectIdentity: acl_object_identities, (class, identifier) with an
//     optional parent
//   - SecurityIdentity: acl_security_identities, users and roles
//   - Entry: acl_entries, ordered access control entries
//
// The SQL migrations in db/migrations create the same tables; ACLModels is
// used with AutoMigrate where they do not run.
package model

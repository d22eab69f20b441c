package model

// ACLModels lists the ACL tables in dependency order, for AutoMigrate in
// environments that do not run the SQL migrations (sqlite).
func ACLModels() []interface{} {
	return []interface{}{
		&AclClass{},
		&SecurityIdentity{},
		&ObjectIdentity{},
		&Entry{},
	}
}

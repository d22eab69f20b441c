package model

// SecurityIdentity is a principal referenced by access control entries.
// Username distinguishes users ("<class>-<username>") from roles.
type SecurityIdentity struct {
	ID         int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Identifier string `gorm:"column:identifier;not null;uniqueIndex:idx_acl_sid_identifier_username"`
	Username   bool   `gorm:"column:username;not null;uniqueIndex:idx_acl_sid_identifier_username"`
}

func (SecurityIdentity) TableName() string {
	return "acl_security_identities"
}

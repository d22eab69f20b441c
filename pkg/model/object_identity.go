package model

// ObjectIdentity is the persisted (type, identifier) key of a protected object
type ObjectIdentity struct {
	ID                     int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ClassID                int64  `gorm:"column:class_id;not null;uniqueIndex:idx_acl_oid_class_identifier"`
	ObjectIdentifier       string `gorm:"column:object_identifier;not null;uniqueIndex:idx_acl_oid_class_identifier"`
	ParentObjectIdentityID *int64 `gorm:"column:parent_object_identity_id;index"`
	EntriesInheriting      bool   `gorm:"column:entries_inheriting;not null"`

	Class  *AclClass       `gorm:"foreignKey:ClassID"`
	Parent *ObjectIdentity `gorm:"foreignKey:ParentObjectIdentityID"`
}

func (ObjectIdentity) TableName() string {
	return "acl_object_identities"
}

package model

// Entry is a persisted access control entry.
// ObjectIdentityID is nil for class-scoped entries, FieldName is nil unless
// the entry is field-scoped.
type Entry struct {
	ID                 int64   `gorm:"column:id;primaryKey;autoIncrement"`
	ClassID            int64   `gorm:"column:class_id;not null;index"`
	ObjectIdentityID   *int64  `gorm:"column:object_identity_id;index"`
	SecurityIdentityID int64   `gorm:"column:security_identity_id;not null;index"`
	FieldName          *string `gorm:"column:field_name"`
	AceOrder           int     `gorm:"column:ace_order;not null"`
	Mask               int32   `gorm:"column:mask;not null"`
	Granting           bool    `gorm:"column:granting;not null"`
	GrantingStrategy   string  `gorm:"column:granting_strategy;not null"`
	AuditSuccess       bool    `gorm:"column:audit_success;not null"`
	AuditFailure       bool    `gorm:"column:audit_failure;not null"`

	Class            *AclClass         `gorm:"foreignKey:ClassID"`
	ObjectIdentity   *ObjectIdentity   `gorm:"foreignKey:ObjectIdentityID"`
	SecurityIdentity *SecurityIdentity `gorm:"foreignKey:SecurityIdentityID"`
}

func (Entry) TableName() string {
	return "acl_entries"
}

// IsClassScoped reports whether the entry applies to every object of its class.
func (e Entry) IsClassScoped() bool {
	return e.ObjectIdentityID == nil
}

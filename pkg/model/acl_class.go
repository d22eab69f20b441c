package model

// AclClass is the type of a protected domain object (one row per type)
type AclClass struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ClassType string `gorm:"column:class_type;not null;uniqueIndex"`
}

func (AclClass) TableName() string {
	return "acl_classes"
}

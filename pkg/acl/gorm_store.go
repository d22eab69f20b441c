package acl

import (
	"context"
	"errors"
	"fmt"

	"github.com/doodlesbykumbi/ormbundle/pkg/model"

	"gorm.io/gorm"
)

// Ensure GormStore implements Store
var _ Store = (*GormStore)(nil)

// GormStore implements Store using GORM.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) WithContext(ctx context.Context) Store {
	return &GormStore{db: s.db.WithContext(ctx)}
}

// Transaction wraps operations in a database transaction.
func (s *GormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) FindOrCreateClass(classType string) (*model.AclClass, error) {
	var class model.AclClass
	err := s.db.Where("class_type = ?", classType).Take(&class).Error
	if err == nil {
		return &class, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find class %q: %w", classType, err)
	}
	class = model.AclClass{ClassType: classType}
	if err := s.db.Create(&class).Error; err != nil {
		return nil, fmt.Errorf("failed to create class %q: %w", classType, err)
	}
	return &class, nil
}

func (s *GormStore) FindOrCreateSecurityIdentity(sid SecurityIdentity) (*model.SecurityIdentity, error) {
	var row model.SecurityIdentity
	err := s.db.Where("identifier = ? AND username = ?", sid.Identifier, sid.Username).Take(&row).Error
	if err == nil {
		return &row, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find security identity %s: %w", sid, err)
	}
	row = model.SecurityIdentity{Identifier: sid.Identifier, Username: sid.Username}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create security identity %s: %w", sid, err)
	}
	return &row, nil
}

func (s *GormStore) FindSecurityIdentities(ids []int64) ([]model.SecurityIdentity, error) {
	var rows []model.SecurityIdentity
	if len(ids) == 0 {
		return rows, nil
	}
	if err := s.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load security identities: %w", err)
	}
	return rows, nil
}

func (s *GormStore) identities() *gorm.DB {
	return s.db.Table("acl_object_identities").
		Select("acl_object_identities.*, acl_classes.class_type").
		Joins("JOIN acl_classes ON acl_classes.id = acl_object_identities.class_id")
}

func (s *GormStore) findIdentity(query *gorm.DB) (*IdentityRecord, error) {
	var records []IdentityRecord
	if err := query.Limit(1).Scan(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (s *GormStore) FindObjectIdentity(oid ObjectIdentity) (*IdentityRecord, error) {
	rec, err := s.findIdentity(s.identities().Where(
		"acl_classes.class_type = ? AND acl_object_identities.object_identifier = ?",
		oid.Type, oid.Identifier,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", oid, err)
	}
	return rec, nil
}

func (s *GormStore) FindObjectIdentityByID(id int64) (*IdentityRecord, error) {
	rec, err := s.findIdentity(s.identities().Where("acl_object_identities.id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("failed to find object identity %d: %w", id, err)
	}
	return rec, nil
}

func (s *GormStore) CreateObjectIdentity(classID int64, identifier string) (*model.ObjectIdentity, error) {
	row := model.ObjectIdentity{
		ClassID:           classID,
		ObjectIdentifier:  identifier,
		EntriesInheriting: true,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create object identity %q: %w", identifier, err)
	}
	return &row, nil
}

func (s *GormStore) UpdateObjectIdentity(id int64, parentID *int64, entriesInheriting bool) error {
	var parent interface{}
	if parentID != nil {
		parent = *parentID
	}
	err := s.db.Model(&model.ObjectIdentity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"parent_object_identity_id": parent,
			"entries_inheriting":        entriesInheriting,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update object identity %d: %w", id, err)
	}
	return nil
}

func (s *GormStore) CountObjectIdentities(classID int64) (int64, error) {
	var n int64
	if err := s.db.Model(&model.ObjectIdentity{}).Where("class_id = ?", classID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count object identities: %w", err)
	}
	return n, nil
}

func (s *GormStore) DeleteObjectIdentity(id int64) error {
	ids, err := s.descendants(id)
	if err != nil {
		return err
	}
	ids = append(ids, id)
	if err := s.db.Where("object_identity_id IN ?", ids).Delete(&model.Entry{}).Error; err != nil {
		return fmt.Errorf("failed to delete object entries: %w", err)
	}
	if err := s.db.Where("id IN ?", ids).Delete(&model.ObjectIdentity{}).Error; err != nil {
		return fmt.Errorf("failed to delete object identities: %w", err)
	}
	return nil
}

// descendants walks the children breadth first, ignoring identities already seen.
func (s *GormStore) descendants(id int64) ([]int64, error) {
	seen := map[int64]bool{id: true}
	var all []int64
	frontier := []int64{id}
	for len(frontier) > 0 {
		var children []int64
		err := s.db.Model(&model.ObjectIdentity{}).
			Where("parent_object_identity_id IN ?", frontier).
			Pluck("id", &children).Error
		if err != nil {
			return nil, fmt.Errorf("failed to load child identities: %w", err)
		}
		frontier = frontier[:0]
		for _, c := range children {
			if !seen[c] {
				seen[c] = true
				all = append(all, c)
				frontier = append(frontier, c)
			}
		}
	}
	return all, nil
}

func (s *GormStore) Ancestors(id int64) ([]int64, error) {
	var chain []int64
	seen := map[int64]bool{id: true}
	current := id
	for {
		var row model.ObjectIdentity
		err := s.db.Select("id", "parent_object_identity_id").Where("id = ?", current).Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return chain, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load ancestors of %d: %w", id, err)
		}
		if row.ParentObjectIdentityID == nil || seen[*row.ParentObjectIdentityID] {
			return chain, nil
		}
		current = *row.ParentObjectIdentityID
		seen[current] = true
		chain = append(chain, current)
	}
}

func (s *GormStore) Children(id int64) ([]IdentityRecord, error) {
	var records []IdentityRecord
	err := s.identities().
		Where("acl_object_identities.parent_object_identity_id = ?", id).
		Order("acl_object_identities.id").
		Scan(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load children of %d: %w", id, err)
	}
	return records, nil
}

func (s *GormStore) FindEntries(classID int64, objectIdentityID *int64) ([]model.Entry, error) {
	query := s.db.Where("class_id = ?", classID)
	if objectIdentityID == nil {
		query = query.Where("object_identity_id IS NULL")
	} else {
		query = query.Where("(object_identity_id IS NULL OR object_identity_id = ?)", *objectIdentityID)
	}
	var entries []model.Entry
	if err := query.Order("ace_order").Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}
	return entries, nil
}

func (s *GormStore) FindEntry(id int64) (*model.Entry, error) {
	var entry model.Entry
	err := s.db.Where("id = ?", id).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entry %d: %w", id, err)
	}
	return &entry, nil
}

func (s *GormStore) FindEntriesByNaturalKey(key NaturalKey) ([]model.Entry, error) {
	query := s.db.Where("class_id = ? AND security_identity_id = ?", key.ClassID, key.SecurityIdentityID)
	if key.ObjectIdentityID == nil {
		query = query.Where("object_identity_id IS NULL")
	} else {
		query = query.Where("object_identity_id = ?", *key.ObjectIdentityID)
	}
	if key.FieldName == nil {
		query = query.Where("field_name IS NULL")
	} else {
		query = query.Where("field_name = ?", *key.FieldName)
	}
	var entries []model.Entry
	if err := query.Order("id").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to find entries by natural key: %w", err)
	}
	return entries, nil
}

func (s *GormStore) SaveEntry(e *model.Entry) error {
	var err error
	if e.ID == 0 {
		err = s.db.Create(e).Error
	} else {
		err = s.db.Save(e).Error
	}
	if err != nil {
		return fmt.Errorf("failed to save entry: %w", err)
	}
	return nil
}

func (s *GormStore) DeleteEntry(id int64) error {
	if err := s.db.Where("id = ?", id).Delete(&model.Entry{}).Error; err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}
	return nil
}

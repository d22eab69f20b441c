package acl

import (
	"context"
	"errors"
	"fmt"

	"github.com/doodlesbykumbi/ormbundle/pkg/model"

	"go.uber.org/zap"
)

// UpdateACL persists the in-memory state of a in one transaction.
//
// Every entry is matched to a persisted row, first by its id and then by its
// natural key, and saved with its current position. A row is reused at most
// once per update; a second entry resolving to the same row gets a new one.
// Persisted rows no longer present in a are deleted, and the parent pointer
// and entries-inheriting flag are written last. On success the ids of the
// persisted rows are written back to the entries.
func (p *Provider) UpdateACL(ctx context.Context, a *ACL) error {
	if a == nil {
		return &Error{Op: "updating the ACL", Err: errors.New("nil ACL")}
	}
	var r *reconciler
	err := p.store.WithContext(ctx).Transaction(func(tx Store) error {
		rec, err := tx.FindObjectIdentity(a.identity)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: %s", ErrAclNotFound, a.identity)
		}
		previous, err := tx.FindEntries(rec.ClassID, &rec.ID)
		if err != nil {
			return err
		}

		r = newReconciler(tx, rec)
		if err := a.sequences(r.persist); err != nil {
			return err
		}
		for _, row := range previous {
			if r.consumed[row.ID] {
				continue
			}
			if err := tx.DeleteEntry(row.ID); err != nil {
				return err
			}
			r.deleted++
		}

		parentID, err := r.parentID(a)
		if err != nil {
			return err
		}
		if err := tx.UpdateObjectIdentity(rec.ID, parentID, a.entriesInheriting); err != nil {
			return err
		}
		r.aclID = rec.ID
		return nil
	})
	if err != nil {
		return &Error{Op: "updating the ACL", Err: err}
	}

	a.id = r.aclID
	for e, id := range r.assigned {
		e.ID = id
	}
	p.log.Debug("ACL updated",
		zap.Stringer("oid", a.identity),
		zap.Int("entries", len(r.assigned)),
		zap.Int("deleted", r.deleted),
	)
	return nil
}

type reconciler struct {
	tx       Store
	identity *IdentityRecord
	sids     map[SecurityIdentity]int64
	consumed map[int64]bool
	// ids to write back once the transaction commits
	assigned map[*Entry]int64
	deleted  int
	aclID    int64
}

func newReconciler(tx Store, rec *IdentityRecord) *reconciler {
	return &reconciler{
		tx:       tx,
		identity: rec,
		sids:     map[SecurityIdentity]int64{},
		consumed: map[int64]bool{},
		assigned: map[*Entry]int64{},
	}
}

func (r *reconciler) persist(scope Scope, field string, entries []*Entry) error {
	var objectID *int64
	if scope == ObjectScope {
		id := r.identity.ID
		objectID = &id
	}
	var fieldName *string
	if field != "" {
		f := field
		fieldName = &f
	}

	for i, e := range entries {
		sidID, err := r.securityIdentityID(e.SecurityIdentity)
		if err != nil {
			return err
		}
		row, err := r.lookup(e, NaturalKey{
			ClassID:            r.identity.ClassID,
			SecurityIdentityID: sidID,
			ObjectIdentityID:   objectID,
			FieldName:          fieldName,
		})
		if err != nil {
			return err
		}
		if row == nil {
			row = &model.Entry{}
		}
		row.ClassID = r.identity.ClassID
		row.ObjectIdentityID = objectID
		row.SecurityIdentityID = sidID
		row.FieldName = fieldName
		row.AceOrder = i
		row.Mask = e.Mask
		row.Granting = e.Granting
		row.GrantingStrategy = e.Strategy.String()
		if e.AuditSuccess != nil {
			row.AuditSuccess = *e.AuditSuccess
		}
		if e.AuditFailure != nil {
			row.AuditFailure = *e.AuditFailure
		}
		if err := r.tx.SaveEntry(row); err != nil {
			return err
		}
		r.consumed[row.ID] = true
		r.assigned[e] = row.ID
	}
	return nil
}

// lookup returns the persisted row e should be written to, or nil when a
// new row is needed.
func (r *reconciler) lookup(e *Entry, key NaturalKey) (*model.Entry, error) {
	if e.ID != 0 && !r.consumed[e.ID] {
		row, err := r.tx.FindEntry(e.ID)
		if err != nil {
			return nil, err
		}
		if row != nil && row.ClassID == key.ClassID {
			return row, nil
		}
	}
	candidates, err := r.tx.FindEntriesByNaturalKey(key)
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if !r.consumed[candidates[i].ID] {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func (r *reconciler) securityIdentityID(sid SecurityIdentity) (int64, error) {
	if id, ok := r.sids[sid]; ok {
		return id, nil
	}
	row, err := r.tx.FindOrCreateSecurityIdentity(sid)
	if err != nil {
		return 0, err
	}
	r.sids[sid] = row.ID
	return row.ID, nil
}

// parentID resolves the persisted id of a's parent and rejects parents whose
// persisted ancestry contains a.
func (r *reconciler) parentID(a *ACL) (*int64, error) {
	if a.parent == nil {
		return nil, nil
	}
	parent, err := r.tx.FindObjectIdentity(a.parent.identity)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("parent: %w: %s", ErrAclNotFound, a.parent.identity)
	}
	if parent.ID == r.identity.ID {
		return nil, fmt.Errorf("%w: %s", ErrParentCycle, a.identity)
	}
	ancestors, err := r.tx.Ancestors(parent.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range ancestors {
		if id == r.identity.ID {
			return nil, fmt.Errorf("%w: %s", ErrParentCycle, a.identity)
		}
	}
	return &parent.ID, nil
}

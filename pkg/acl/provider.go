package acl

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/doodlesbykumbi/ormbundle/pkg/model"

	"go.uber.org/zap"
)

// Provider creates, loads, updates and deletes ACLs through a Store.
type Provider struct {
	store       Store
	log         *zap.Logger
	auditLogger AuditLogger
}

func NewProvider(store Store, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{store: store, log: log}
}

// SetAuditLogger sets the audit logger handed to every ACL the provider
// returns.
func (p *Provider) SetAuditLogger(l AuditLogger) {
	p.auditLogger = l
}

// CreateACL registers oid and returns an ACL without object entries.
// Class entries already persisted for the type are loaded into the ACL.
func (p *Provider) CreateACL(ctx context.Context, oid ObjectIdentity) (*ACL, error) {
	var created *ACL
	err := p.store.WithContext(ctx).Transaction(func(tx Store) error {
		existing, err := tx.FindObjectIdentity(oid)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", ErrAclAlreadyExists, oid)
		}
		class, err := tx.FindOrCreateClass(oid.Type)
		if err != nil {
			return err
		}
		row, err := tx.CreateObjectIdentity(class.ID, oid.Identifier)
		if err != nil {
			return err
		}
		entries, err := tx.FindEntries(class.ID, nil)
		if err != nil {
			return err
		}
		created = newACL(row.ID, oid, row.EntriesInheriting)
		return hydrate(tx, created, entries)
	})
	if errors.Is(err, ErrAclAlreadyExists) {
		return nil, err
	}
	if err != nil {
		return nil, &Error{Op: "creating the ACL", Err: err}
	}
	created.SetAuditLogger(p.auditLogger)
	p.log.Debug("ACL created", zap.Stringer("oid", oid), zap.Int64("id", created.id))
	return created, nil
}

// DeleteACL removes the ACL of oid together with its child ACLs. When oid is
// the last identity of its class, the class entries are removed as well.
// Deleting an unknown identity is not an error.
func (p *Provider) DeleteACL(ctx context.Context, oid ObjectIdentity) error {
	deleted := false
	err := p.store.WithContext(ctx).Transaction(func(tx Store) error {
		rec, err := tx.FindObjectIdentity(oid)
		if err != nil || rec == nil {
			return err
		}
		entries, err := tx.FindEntries(rec.ClassID, &rec.ID)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			count, err := tx.CountObjectIdentities(rec.ClassID)
			if err != nil {
				return err
			}
			if count == 1 {
				for _, e := range entries {
					if err := tx.DeleteEntry(e.ID); err != nil {
						return err
					}
				}
			}
		}
		deleted = true
		return tx.DeleteObjectIdentity(rec.ID)
	})
	if err != nil {
		return &Error{Op: "deleting the ACL", Err: err}
	}
	if deleted {
		p.log.Debug("ACL deleted", zap.Stringer("oid", oid))
	}
	return nil
}

// FindACL loads the ACL of oid with its parent chain.
func (p *Provider) FindACL(ctx context.Context, oid ObjectIdentity) (*ACL, error) {
	var found *ACL
	err := p.store.WithContext(ctx).Transaction(func(tx Store) error {
		rec, err := tx.FindObjectIdentity(oid)
		if err != nil {
			return err
		}
		if rec == nil {
			return fmt.Errorf("%w: %s", ErrAclNotFound, oid)
		}
		found, err = load(tx, rec, map[int64]*ACL{})
		return err
	})
	if err != nil {
		return nil, err
	}
	found.SetAuditLogger(p.auditLogger)
	return found, nil
}

// FindChildren returns the identities whose parent is oid. Unless directOnly
// is set, all descendants are returned, breadth first.
func (p *Provider) FindChildren(ctx context.Context, oid ObjectIdentity, directOnly bool) ([]ObjectIdentity, error) {
	store := p.store.WithContext(ctx)
	rec, err := store.FindObjectIdentity(oid)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	var children []ObjectIdentity
	seen := map[int64]bool{rec.ID: true}
	frontier := []int64{rec.ID}
	for len(frontier) > 0 {
		var next []int64
		for _, id := range frontier {
			records, err := store.Children(id)
			if err != nil {
				return nil, err
			}
			for _, r := range records {
				if seen[r.ID] {
					continue
				}
				seen[r.ID] = true
				children = append(children, r.Identity())
				next = append(next, r.ID)
			}
		}
		if directOnly {
			break
		}
		frontier = next
	}
	return children, nil
}

// load builds the ACL of rec and, recursively, of its parents.
func load(tx Store, rec *IdentityRecord, loaded map[int64]*ACL) (*ACL, error) {
	if a, ok := loaded[rec.ID]; ok {
		return a, nil
	}
	a := newACL(rec.ID, rec.Identity(), rec.EntriesInheriting)
	loaded[rec.ID] = a

	entries, err := tx.FindEntries(rec.ClassID, &rec.ID)
	if err != nil {
		return nil, err
	}
	if err := hydrate(tx, a, entries); err != nil {
		return nil, err
	}
	if rec.ParentObjectIdentityID == nil {
		return a, nil
	}
	if _, cyclic := loaded[*rec.ParentObjectIdentityID]; cyclic {
		return nil, fmt.Errorf("%w: %s", ErrParentCycle, a.identity)
	}
	parentRec, err := tx.FindObjectIdentityByID(*rec.ParentObjectIdentityID)
	if err != nil {
		return nil, err
	}
	if parentRec == nil {
		return a, nil
	}
	parent, err := load(tx, parentRec, loaded)
	if err != nil {
		return nil, err
	}
	a.parent = parent
	return a, nil
}

// hydrate appends persisted entries to their sequences in ace_order.
func hydrate(tx Store, a *ACL, rows []model.Entry) error {
	if len(rows) == 0 {
		return nil
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AceOrder != rows[j].AceOrder {
			return rows[i].AceOrder < rows[j].AceOrder
		}
		return rows[i].ID < rows[j].ID
	})

	var ids []int64
	seen := map[int64]bool{}
	for _, r := range rows {
		if !seen[r.SecurityIdentityID] {
			seen[r.SecurityIdentityID] = true
			ids = append(ids, r.SecurityIdentityID)
		}
	}
	sids, err := tx.FindSecurityIdentities(ids)
	if err != nil {
		return err
	}
	byID := make(map[int64]SecurityIdentity, len(sids))
	for _, s := range sids {
		byID[s.ID] = SecurityIdentity{Identifier: s.Identifier, Username: s.Username}
	}

	for _, r := range rows {
		sid, ok := byID[r.SecurityIdentityID]
		if !ok {
			return fmt.Errorf("entry %d references unknown security identity %d", r.ID, r.SecurityIdentityID)
		}
		strategy, err := parseStrategy(r.GrantingStrategy)
		if err != nil {
			return fmt.Errorf("entry %d: %w", r.ID, err)
		}
		success, failure := r.AuditSuccess, r.AuditFailure
		e := &Entry{
			ID:               r.ID,
			SecurityIdentity: sid,
			Mask:             r.Mask,
			Granting:         r.Granting,
			Strategy:         strategy,
			AuditSuccess:     &success,
			AuditFailure:     &failure,
		}
		scope := ObjectScope
		if r.IsClassScoped() {
			scope = ClassScope
		}
		field := ""
		if r.FieldName != nil {
			field = *r.FieldName
		}
		e.Field = field
		a.set(scope, field, append(a.get(scope, field), e))
	}
	return nil
}

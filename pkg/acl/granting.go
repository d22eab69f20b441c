package acl

import "errors"

// IsGranted decides whether any of sids holds one of masks on the object.
//
// Object entries are consulted before class entries. Within a sequence the
// first entry matching a security identity and applicable to the required
// mask decides: a granting entry grants at once, a denying entry is
// remembered and the next mask is tried. When no entry applies and the ACL
// inherits entries, the parent decides. ErrNoAceFound is returned when
// nothing applies anywhere in the chain.
func (a *ACL) IsGranted(masks []int32, sids []SecurityIdentity) (bool, error) {
	return a.isGranted("", masks, sids)
}

// IsFieldGranted is IsGranted for the entries of one field.
func (a *ACL) IsFieldGranted(field string, masks []int32, sids []SecurityIdentity) (bool, error) {
	return a.isGranted(field, masks, sids)
}

func (a *ACL) isGranted(field string, masks []int32, sids []SecurityIdentity) (bool, error) {
	granted, err := a.decide(a.get(ObjectScope, field), masks, sids)
	if errors.Is(err, ErrNoAceFound) {
		granted, err = a.decide(a.get(ClassScope, field), masks, sids)
	}
	if errors.Is(err, ErrNoAceFound) && a.entriesInheriting && a.parent != nil {
		return a.parent.isGranted(field, masks, sids)
	}
	return granted, err
}

// decide evaluates one sequence. The deciding entry is reported to the audit
// logger, if any.
func (a *ACL) decide(entries []*Entry, masks []int32, sids []SecurityIdentity) (bool, error) {
	if len(entries) == 0 {
		return false, ErrNoAceFound
	}
	var rejected *Entry
	for _, required := range masks {
	next:
		for _, sid := range sids {
			for _, e := range entries {
				if e.SecurityIdentity != sid || !e.applies(required) {
					continue
				}
				if e.Granting {
					a.audit(true, e)
					return true, nil
				}
				if rejected == nil {
					rejected = e
				}
				break next
			}
		}
	}
	if rejected != nil {
		a.audit(false, rejected)
		return false, nil
	}
	return false, ErrNoAceFound
}

// AuditLogger receives the decisions taken by entries. Implementations decide
// from the entry's audit flags whether the decision is recorded.
type AuditLogger interface {
	LogDecision(granted bool, oid ObjectIdentity, e *Entry)
}

// SetAuditLogger sets the audit logger of a and of its parents.
func (a *ACL) SetAuditLogger(l AuditLogger) {
	for p := a; p != nil; p = p.parent {
		p.auditLogger = l
	}
}

func (a *ACL) audit(granted bool, e *Entry) {
	if a.auditLogger != nil {
		a.auditLogger.LogDecision(granted, a.identity, e)
	}
}

// IsAuditable reports whether a decision taken by e must be recorded.
func (e *Entry) IsAuditable(granted bool) bool {
	if granted {
		return e.AuditSuccess != nil && *e.AuditSuccess
	}
	return e.AuditFailure != nil && *e.AuditFailure
}

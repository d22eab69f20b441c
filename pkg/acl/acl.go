package acl

import "fmt"

//go:generate go run github.com/dmarkham/enumer -type Scope -linecomment -output scope.gen.go

// Scope selects whether an entry applies to the whole class or one object.
type Scope int

const (
	ClassScope  Scope = iota // class
	ObjectScope              // object
)

// ACL is the mutable access control list of one object identity.
//
// An ACL is not safe for concurrent use.
type ACL struct {
	id                int64
	identity          ObjectIdentity
	parent            *ACL
	entriesInheriting bool

	classACEs       []*Entry
	objectACEs      []*Entry
	classFieldACEs  map[string][]*Entry
	objectFieldACEs map[string][]*Entry
	// fields in first-use order
	fields []string

	auditLogger AuditLogger
}

// New returns an unpersisted ACL for oid that inherits its parent's entries.
func New(oid ObjectIdentity) *ACL {
	return newACL(0, oid, true)
}

func newACL(id int64, oid ObjectIdentity, inheriting bool) *ACL {
	return &ACL{
		id:                id,
		identity:          oid,
		entriesInheriting: inheriting,
		classFieldACEs:    map[string][]*Entry{},
		objectFieldACEs:   map[string][]*Entry{},
	}
}

func (a *ACL) ID() int64                      { return a.id }
func (a *ACL) ObjectIdentity() ObjectIdentity { return a.identity }
func (a *ACL) Parent() *ACL                   { return a.parent }
func (a *ACL) IsEntriesInheriting() bool      { return a.entriesInheriting }

func (a *ACL) SetEntriesInheriting(inheriting bool) {
	a.entriesInheriting = inheriting
}

// SetParent sets the parent ACL. A nil parent detaches the ACL. A parent
// whose ancestry contains this ACL's identity is rejected with ErrParentCycle.
func (a *ACL) SetParent(parent *ACL) error {
	for p := parent; p != nil; p = p.parent {
		if p == a || p.identity == a.identity {
			return fmt.Errorf("%w: %s", ErrParentCycle, a.identity)
		}
	}
	a.parent = parent
	return nil
}

// Fields returns the field names that carry entries, in first-use order.
func (a *ACL) Fields() []string {
	return append([]string(nil), a.fields...)
}

func (a *ACL) ClassACEs() []*Entry  { return a.Entries(ClassScope, "") }
func (a *ACL) ObjectACEs() []*Entry { return a.Entries(ObjectScope, "") }

func (a *ACL) ClassFieldACEs(field string) []*Entry  { return a.Entries(ClassScope, field) }
func (a *ACL) ObjectFieldACEs(field string) []*Entry { return a.Entries(ObjectScope, field) }

// Entries returns a copy of the sequence selected by scope and field. An
// empty field selects the non-field sequence.
func (a *ACL) Entries(scope Scope, field string) []*Entry {
	return append([]*Entry(nil), a.get(scope, field)...)
}

func (a *ACL) get(scope Scope, field string) []*Entry {
	switch {
	case field == "" && scope == ClassScope:
		return a.classACEs
	case field == "":
		return a.objectACEs
	case scope == ClassScope:
		return a.classFieldACEs[field]
	default:
		return a.objectFieldACEs[field]
	}
}

func (a *ACL) set(scope Scope, field string, entries []*Entry) {
	switch {
	case field == "" && scope == ClassScope:
		a.classACEs = entries
	case field == "":
		a.objectACEs = entries
	default:
		a.trackField(field)
		if scope == ClassScope {
			a.classFieldACEs[field] = entries
		} else {
			a.objectFieldACEs[field] = entries
		}
	}
}

func (a *ACL) trackField(field string) {
	for _, f := range a.fields {
		if f == field {
			return
		}
	}
	a.fields = append(a.fields, field)
}

// Insert places e at index in the selected sequence, shifting later entries.
func (a *ACL) Insert(scope Scope, field string, index int, e *Entry) error {
	seq := a.get(scope, field)
	if index < 0 || index > len(seq) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrIndexOutOfRange, index, len(seq))
	}
	e.Field = field
	seq = append(seq, nil)
	copy(seq[index+1:], seq[index:])
	seq[index] = e
	a.set(scope, field, seq)
	return nil
}

// InsertClassACE is a shorthand for Insert(ClassScope, "", ...).
func (a *ACL) InsertClassACE(index int, sid SecurityIdentity, mask int32, granting bool) error {
	return a.Insert(ClassScope, "", index, NewEntry(sid, mask, granting))
}

// InsertObjectACE is a shorthand for Insert(ObjectScope, "", ...).
func (a *ACL) InsertObjectACE(index int, sid SecurityIdentity, mask int32, granting bool) error {
	return a.Insert(ObjectScope, "", index, NewEntry(sid, mask, granting))
}

func (a *ACL) InsertClassFieldACE(field string, index int, sid SecurityIdentity, mask int32, granting bool) error {
	return a.Insert(ClassScope, field, index, NewEntry(sid, mask, granting))
}

func (a *ACL) InsertObjectFieldACE(field string, index int, sid SecurityIdentity, mask int32, granting bool) error {
	return a.Insert(ObjectScope, field, index, NewEntry(sid, mask, granting))
}

func (a *ACL) at(scope Scope, field string, index int) (*Entry, error) {
	seq := a.get(scope, field)
	if index < 0 || index >= len(seq) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, len(seq))
	}
	return seq[index], nil
}

// Update changes the mask and strategy of the entry at index.
func (a *ACL) Update(scope Scope, field string, index int, mask int32, strategy Strategy) error {
	e, err := a.at(scope, field, index)
	if err != nil {
		return err
	}
	if !strategy.IsAStrategy() {
		return fmt.Errorf("%w: %s", ErrUnknownStrategy, strategy)
	}
	e.Mask = mask
	e.Strategy = strategy
	return nil
}

// UpdateAuditing sets both audit flags of the entry at index.
func (a *ACL) UpdateAuditing(scope Scope, field string, index int, success, failure bool) error {
	e, err := a.at(scope, field, index)
	if err != nil {
		return err
	}
	e.AuditSuccess = &success
	e.AuditFailure = &failure
	return nil
}

// Delete removes the entry at index, shifting later entries down.
func (a *ACL) Delete(scope Scope, field string, index int) error {
	if _, err := a.at(scope, field, index); err != nil {
		return err
	}
	seq := a.get(scope, field)
	seq = append(seq[:index:index], seq[index+1:]...)
	a.set(scope, field, seq)
	return nil
}

// sequences calls fn for every sequence in persistence order: class entries,
// object entries, then per field its class-field and object-field entries.
func (a *ACL) sequences(fn func(scope Scope, field string, entries []*Entry) error) error {
	if err := fn(ClassScope, "", a.classACEs); err != nil {
		return err
	}
	if err := fn(ObjectScope, "", a.objectACEs); err != nil {
		return err
	}
	for _, field := range a.fields {
		if err := fn(ClassScope, field, a.classFieldACEs[field]); err != nil {
			return err
		}
		if err := fn(ObjectScope, field, a.objectFieldACEs[field]); err != nil {
			return err
		}
	}
	return nil
}

package acl

import "errors"

var (
	// ErrAclAlreadyExists is returned by CreateACL when the object identity is already known.
	ErrAclAlreadyExists = errors.New("an ACL for the given object identity already exists, find and update that one")
	// ErrAclNotFound is returned when no object identity row exists.
	ErrAclNotFound = errors.New("no ACL found for the given object identity")
	// ErrNoAceFound is returned by IsGranted when no entry applies.
	ErrNoAceFound = errors.New("no applicable ACE was found")
	// ErrIndexOutOfRange is returned when an ACE index is not valid for its sequence.
	ErrIndexOutOfRange = errors.New("ACE index out of range")
	// ErrParentCycle is returned when a parent ACL would make the identity its own ancestor.
	ErrParentCycle = errors.New("parent ACL would create a cycle")
	// ErrUnknownStrategy is returned when a persisted entry names no known granting strategy.
	ErrUnknownStrategy = errors.New("unknown granting strategy")
)

// Error wraps failures of the provider's write operations.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "acl: an error occurred while " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

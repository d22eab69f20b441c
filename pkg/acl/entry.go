package acl

import "fmt"

//go:generate go run github.com/dmarkham/enumer -type Strategy -trimprefix Strategy -transform lower -json -yaml -output strategy.gen.go

// Strategy decides how an entry's mask is compared to a required mask.
type Strategy int

const (
	// StrategyAll requires every bit of the required mask.
	StrategyAll Strategy = iota
	// StrategyAny requires at least one bit of the required mask.
	StrategyAny
	// StrategyEqual requires the masks to be identical.
	StrategyEqual
)

// Entry is an access control entry held by an ACL.
//
// ID is zero until the entry has been persisted. AuditSuccess and
// AuditFailure are tri-state: nil leaves the persisted flag untouched.
type Entry struct {
	ID               int64            `json:"id,omitempty"`
	SecurityIdentity SecurityIdentity `json:"security_identity"`
	Mask             int32            `json:"mask"`
	Granting         bool             `json:"granting"`
	Strategy         Strategy         `json:"strategy"`
	Field            string           `json:"field,omitempty"`
	AuditSuccess     *bool            `json:"audit_success,omitempty"`
	AuditFailure     *bool            `json:"audit_failure,omitempty"`
}

// NewEntry returns an unpersisted entry using the "all" strategy.
func NewEntry(sid SecurityIdentity, mask int32, granting bool) *Entry {
	return &Entry{
		SecurityIdentity: sid,
		Mask:             mask,
		Granting:         granting,
		Strategy:         StrategyAll,
	}
}

// parseStrategy reads a persisted strategy name. An empty name is "all".
func parseStrategy(name string) (Strategy, error) {
	if name == "" {
		return StrategyAll, nil
	}
	s, err := StrategyString(name)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
	return s, nil
}

// applies reports whether the entry's mask satisfies the required mask.
func (e *Entry) applies(required int32) bool {
	switch e.Strategy {
	case StrategyAny:
		return required&e.Mask != 0
	case StrategyEqual:
		return required == e.Mask
	default:
		return required&e.Mask == required
	}
}

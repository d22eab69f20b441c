package fixtures

import "errors"

var (
	ErrUnknownClass        = errors.New("unknown fixture class")
	ErrUnresolvedReference = errors.New("unresolved fixture reference")
	ErrUnknownAttribute    = errors.New("unknown fixture attribute")
	ErrMalformedFixture    = errors.New("malformed fixture")
)

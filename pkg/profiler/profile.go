package profiler

import (
	"context"
	"errors"
	"time"

	"github.com/doodlesbykumbi/ormbundle/pkg/db"
)

// ErrProfileNotFound is returned by a ProfileStore for an unknown token.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is the query log of one request.
type Profile struct {
	Token      string     `json:"token"`
	Method     string     `json:"method"`
	URL        string     `json:"url"`
	Status     int        `json:"status"`
	Time       time.Time  `json:"time"`
	Connection string     `json:"connection"`
	Queries    []db.Query `json:"queries"`
	QueryCount int        `json:"query_count"`
}

// Duration is the total time spent executing the statements.
func (p *Profile) Duration() time.Duration {
	var d time.Duration
	for _, q := range p.Queries {
		d += q.Duration
	}
	return d
}

// ProfileStore keeps profiles by token.
type ProfileStore interface {
	Save(ctx context.Context, p *Profile) error
	Load(ctx context.Context, token string) (*Profile, error)
}

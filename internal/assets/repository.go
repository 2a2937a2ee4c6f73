package assets

import (
	"context"
	"time"
)

// Repository is the status store contract shared by the SQLite and Firestore
// backends.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	IsEligibleForProcessing(ctx context.Context, id string) (bool, error)
	ClaimForProcessing(ctx context.Context, id string) (Eligibility, error)
	TransitionTo(ctx context.Context, id string, to Status, fields Fields) (*Record, error)
	List(ctx context.Context, statuses ...Status) ([]*Record, error)
	ListStale(ctx context.Context, status Status, olderThan time.Time) ([]*Record, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

var _ Repository = (*Store)(nil)

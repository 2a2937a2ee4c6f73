// Package firestore implements the asset Repository on Cloud Firestore.
//
// Documents live in one collection keyed by asset id. Field names match the
// documents written by the upload API (uid, fileName, processedUrl, error) so
// records created there are readable here. Claims and transitions run inside
// Firestore transactions, which retry on contention and give the same
// compare-and-set guarantee as the SQLite store.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"foreverstream/internal/assets"
)

// Store persists asset records in a Firestore collection.
type Store struct {
	client     *firestore.Client
	collection string
	ownsClient bool
	now        func() time.Time
}

var _ assets.Repository = (*Store)(nil)

// Open creates a Firestore client for projectID and wraps it in a Store.
func Open(ctx context.Context, projectID, collection string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	store := New(client, collection)
	store.ownsClient = true
	return store, nil
}

// New wraps an existing client. Close does not close a client supplied here.
func New(client *firestore.Client, collection string) *Store {
	return &Store{client: client, collection: collection, now: time.Now}
}

// Close releases the client when the store created it.
func (s *Store) Close() error {
	if s == nil || s.client == nil || !s.ownsClient {
		return nil
	}
	return s.client.Close()
}

func (s *Store) doc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(id)
}

// Create writes a new uploaded record; an existing document yields ErrAlreadyExists.
func (s *Store) Create(ctx context.Context, rec *assets.Record) error {
	if err := assets.PrepareCreate(rec, s.now()); err != nil {
		return err
	}
	if _, err := s.doc(rec.ID).Create(ctx, toDocument(rec)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("%w: %s", assets.ErrAlreadyExists, rec.ID)
		}
		return fmt.Errorf("create asset document: %w", err)
	}
	return nil
}

// Get reads one record.
func (s *Store) Get(ctx context.Context, id string) (*assets.Record, error) {
	snap, err := s.doc(id).Get(ctx)
	if err != nil {
		return nil, classify(err, id, "get asset document")
	}
	return fromSnapshot(snap)
}

// IsEligibleForProcessing reports whether the stored status is exactly uploaded.
func (s *Store) IsEligibleForProcessing(ctx context.Context, id string) (bool, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return rec.Status == assets.StatusUploaded, nil
}

// ClaimForProcessing moves uploaded -> processing inside a transaction.
func (s *Store) ClaimForProcessing(ctx context.Context, id string) (assets.Eligibility, error) {
	result := assets.NotFound
	ref := s.doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				result = assets.NotFound
				return nil
			}
			return err
		}
		current, ok := statusOf(snap)
		if !ok || current != assets.StatusUploaded {
			result = assets.AlreadyProcessing
			return nil
		}
		result = assets.Eligible
		return tx.Update(ref, []firestore.Update{
			{Path: fieldStatus, Value: string(assets.StatusProcessing)},
			{Path: fieldUpdatedAt, Value: s.now().UTC()},
		})
	})
	if err != nil {
		return assets.NotFound, fmt.Errorf("claim asset document: %w", err)
	}
	return result, nil
}

// TransitionTo applies a state machine transition inside a transaction.
func (s *Store) TransitionTo(ctx context.Context, id string, to assets.Status, fields assets.Fields) (*assets.Record, error) {
	if err := assets.ValidateFields(to, fields); err != nil {
		return nil, err
	}
	var next *assets.Record
	ref := s.doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return classify(err, id, "read asset document")
		}
		current, err := fromSnapshot(snap)
		if err != nil {
			return err
		}
		next, err = assets.PrepareTransition(current, to, fields, s.now())
		if err != nil {
			return err
		}
		return tx.Set(ref, toDocument(next))
	})
	if err != nil {
		if isNotFound(err) || isDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("transition asset document: %w", err)
	}
	return next, nil
}

// List returns records ordered by upload time, newest first.
func (s *Store) List(ctx context.Context, statuses ...assets.Status) ([]*assets.Record, error) {
	query := s.client.Collection(s.collection).Query
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, st := range statuses {
			values = append(values, string(st))
		}
		query = query.Where(fieldStatus, "in", values)
	}
	query = query.OrderBy(fieldUploadedAt, firestore.Desc)
	return collect(ctx, query.Documents(ctx))
}

// ListStale returns records in status not updated since olderThan.
func (s *Store) ListStale(ctx context.Context, status assets.Status, olderThan time.Time) ([]*assets.Record, error) {
	query := s.client.Collection(s.collection).
		Where(fieldStatus, "==", string(status)).
		Where(fieldUpdatedAt, "<", olderThan.UTC()).
		OrderBy(fieldUpdatedAt, firestore.Asc)
	return collect(ctx, query.Documents(ctx))
}

// Stats counts records per status by scanning the status field only.
func (s *Store) Stats(ctx context.Context) (assets.Stats, error) {
	stats := make(assets.Stats)
	for _, st := range assets.AllStatuses() {
		stats[st] = 0
	}
	iter := s.client.Collection(s.collection).Select(fieldStatus).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("asset stats: %w", err)
		}
		if value, ok := statusOf(snap); ok {
			stats[value]++
		}
	}
	return stats, nil
}

func collect(ctx context.Context, iter *firestore.DocumentIterator) ([]*assets.Record, error) {
	defer iter.Stop()
	var records []*assets.Record
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("query asset documents: %w", err)
		}
		rec, err := fromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Create inserts a new record in the uploaded state.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	if err := PrepareCreate(rec, s.now()); err != nil {
		return err
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO video_assets (
            id, owner_id, raw_object_name, status, title, description,
            input_width, input_height, uploaded_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.OwnerID,
		rec.RawObjectName,
		rec.Status,
		nullableString(rec.Title),
		nullableString(rec.Description),
		nullableInt(rec.InputWidth),
		nullableInt(rec.InputHeight),
		formatTime(rec.UploadedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, rec.ID)
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// Get fetches a record by id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+recordColumns+` FROM video_assets WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return rec, nil
}

// IsEligibleForProcessing reports whether the stored status is exactly uploaded.
// It is a read-only check; use ClaimForProcessing to take ownership.
func (s *Store) IsEligibleForProcessing(ctx context.Context, id string) (bool, error) {
	status, err := s.currentStatus(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status == StatusUploaded, nil
}

// ClaimForProcessing atomically moves uploaded -> processing. Exactly one
// concurrent caller observes Eligible.
func (s *Store) ClaimForProcessing(ctx context.Context, id string) (Eligibility, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE video_assets SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusProcessing,
		formatTime(s.now()),
		id,
		StatusUploaded,
	)
	if err != nil {
		return NotFound, fmt.Errorf("claim asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return NotFound, fmt.Errorf("claim asset rows: %w", err)
	}
	if affected == 1 {
		return Eligible, nil
	}

	if _, err := s.currentStatus(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NotFound, nil
		}
		return NotFound, err
	}
	return AlreadyProcessing, nil
}

// TransitionTo moves a record to the target status, writing fields allowed for
// that status. The write is conditional on the status read beforehand; if a
// concurrent writer changed it first the call fails with a *TransitionError.
func (s *Store) TransitionTo(ctx context.Context, id string, to Status, fields Fields) (*Record, error) {
	if err := ValidateFields(to, fields); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := PrepareTransition(current, to, fields, s.now())
	if err != nil {
		return nil, err
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE video_assets
         SET status = ?, input_resolution = ?, transcoding_job_id = ?,
             processed_manifest_url = ?, processed_object_name = ?, error_message = ?,
             processed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		next.Status,
		nullableString(next.InputResolution),
		nullableString(next.TranscodingJobID),
		nullableString(next.ProcessedManifestURL),
		nullableString(next.ProcessedObjectName),
		nullableString(next.ErrorMessage),
		nullableTime(next.ProcessedAt),
		formatTime(next.UpdatedAt),
		id,
		current.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("transition asset: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("transition asset rows: %w", err)
	}
	if affected == 0 {
		observed, err := s.currentStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &TransitionError{ID: id, From: observed, To: to}
	}
	return next, nil
}

func (s *Store) currentStatus(ctx context.Context, id string) (Status, error) {
	var status string
	err := s.db.QueryRowContext(ensureContext(ctx), `SELECT status FROM video_assets WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("read asset status: %w", err)
	}
	return Status(status), nil
}

// List returns records ordered by upload time, newest first. With no statuses
// every record is returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM video_assets`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY uploaded_at DESC, id`
	return s.queryRecords(ctx, "list assets", query, args...)
}

// ListStale returns records in status whose last update is older than the cutoff.
func (s *Store) ListStale(ctx context.Context, status Status, olderThan time.Time) ([]*Record, error) {
	return s.queryRecords(
		ctx,
		"list stale assets",
		`SELECT `+recordColumns+` FROM video_assets WHERE status = ? AND updated_at < ? ORDER BY updated_at`,
		status,
		formatTime(olderThan),
	)
}

// Stats counts records per status. Every status is present in the result.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM video_assets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("asset stats: %w", err)
	}
	defer rows.Close()

	stats := make(Stats, len(allStatuses))
	for _, status := range allStatuses {
		stats[status] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

func (s *Store) queryRecords(ctx context.Context, op, query string, args ...any) ([]*Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s iterate: %w", op, err)
	}
	return records, nil
}

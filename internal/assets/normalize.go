package assets

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText trims surrounding whitespace and converts to Unicode NFC so
// visually identical titles compare equal.
func NormalizeText(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

// PrepareCreate validates a new record and fills derived values. Records must
// start in uploaded with an id, owner, and raw object name.
func PrepareCreate(rec *Record, now time.Time) error {
	if rec == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}
	rec.ID = strings.TrimSpace(rec.ID)
	rec.OwnerID = strings.TrimSpace(rec.OwnerID)
	rec.RawObjectName = strings.TrimSpace(rec.RawObjectName)
	if rec.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRecord)
	}
	if rec.RawObjectName == "" {
		return fmt.Errorf("%w: raw object name is required", ErrInvalidRecord)
	}
	if rec.Status == "" {
		rec.Status = StatusUploaded
	}
	if rec.Status != StatusUploaded {
		return fmt.Errorf("%w: new records must be %s, got %q", ErrInvalidRecord, StatusUploaded, rec.Status)
	}
	if rec.InputWidth < 0 || rec.InputHeight < 0 {
		return fmt.Errorf("%w: dimensions must be positive", ErrInvalidRecord)
	}
	if rec.TranscodingJobID != "" || rec.ProcessedManifestURL != "" || rec.ProcessedObjectName != "" ||
		rec.ErrorMessage != "" || rec.ProcessedAt != nil || rec.InputResolution != "" {
		return fmt.Errorf("%w: lifecycle fields must be empty on create", ErrInvalidRecord)
	}
	rec.Title = NormalizeText(rec.Title)
	rec.Description = NormalizeText(rec.Description)
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = now
	}
	rec.UploadedAt = rec.UploadedAt.UTC()
	rec.UpdatedAt = rec.UploadedAt
	return nil
}

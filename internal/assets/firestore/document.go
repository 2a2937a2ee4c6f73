package firestore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"foreverstream/internal/assets"
)

const (
	fieldStatus     = "status"
	fieldUploadedAt = "uploadedAt"
	fieldUpdatedAt  = "updatedAt"
)

// document is the stored shape of a record.
type document struct {
	ID                   string     `firestore:"id"`
	OwnerID              string     `firestore:"uid"`
	RawObjectName        string     `firestore:"fileName"`
	Status               string     `firestore:"status"`
	Title                string     `firestore:"title,omitempty"`
	Description          string     `firestore:"description,omitempty"`
	InputWidth           int        `firestore:"inputWidth,omitempty"`
	InputHeight          int        `firestore:"inputHeight,omitempty"`
	InputResolution      string     `firestore:"inputResolution,omitempty"`
	TranscodingJobID     string     `firestore:"transcodingJobId,omitempty"`
	ProcessedManifestURL string     `firestore:"processedUrl,omitempty"`
	ProcessedObjectName  string     `firestore:"processedObjectName,omitempty"`
	ErrorMessage         string     `firestore:"error,omitempty"`
	UploadedAt           time.Time  `firestore:"uploadedAt"`
	ProcessedAt          *time.Time `firestore:"processedAt,omitempty"`
	UpdatedAt            time.Time  `firestore:"updatedAt"`
}

func toDocument(rec *assets.Record) document {
	doc := document{
		ID:                   rec.ID,
		OwnerID:              rec.OwnerID,
		RawObjectName:        rec.RawObjectName,
		Status:               string(rec.Status),
		Title:                rec.Title,
		Description:          rec.Description,
		InputWidth:           rec.InputWidth,
		InputHeight:          rec.InputHeight,
		InputResolution:      rec.InputResolution,
		TranscodingJobID:     rec.TranscodingJobID,
		ProcessedManifestURL: rec.ProcessedManifestURL,
		ProcessedObjectName:  rec.ProcessedObjectName,
		ErrorMessage:         rec.ErrorMessage,
		UploadedAt:           rec.UploadedAt.UTC(),
		UpdatedAt:            rec.UpdatedAt.UTC(),
	}
	if rec.ProcessedAt != nil {
		processed := rec.ProcessedAt.UTC()
		doc.ProcessedAt = &processed
	}
	return doc
}

// decodeDocument reads a stored field map. Upload API documents use
// capitalised names and ISO-8601 strings for timestamps, so names fall back to
// a case-insensitive match and times accept either a timestamp or RFC3339 text.
func decodeDocument(data map[string]any, fallbackID string) (*assets.Record, error) {
	var errs []error
	text := func(name string) string {
		v, _ := lookup(data, name).(string)
		return v
	}
	number := func(name string) int {
		switch v := lookup(data, name).(type) {
		case int64:
			return int(v)
		case int:
			return v
		case float64:
			return int(v)
		}
		return 0
	}
	timestamp := func(name string) *time.Time {
		t, err := parseTime(lookup(data, name))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return t
	}

	rec := &assets.Record{
		ID:                   text("id"),
		OwnerID:              text("uid"),
		RawObjectName:        text("fileName"),
		Status:               assets.Status(text(fieldStatus)),
		Title:                text("title"),
		Description:          text("description"),
		InputWidth:           number("inputWidth"),
		InputHeight:          number("inputHeight"),
		InputResolution:      text("inputResolution"),
		TranscodingJobID:     text("transcodingJobId"),
		ProcessedManifestURL: text("processedUrl"),
		ProcessedObjectName:  text("processedObjectName"),
		ErrorMessage:         text("error"),
		ProcessedAt:          timestamp("processedAt"),
	}
	if t := timestamp(fieldUploadedAt); t != nil {
		rec.UploadedAt = *t
	}
	if t := timestamp(fieldUpdatedAt); t != nil {
		rec.UpdatedAt = *t
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if rec.ID == "" {
		rec.ID = fallbackID
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.UploadedAt
	}
	return rec, nil
}

// lookup prefers an exact field name and falls back to a case-insensitive one.
func lookup(data map[string]any, name string) any {
	if v, ok := data[name]; ok {
		return v
	}
	for key, v := range data {
		if strings.EqualFold(key, name) {
			return v
		}
	}
	return nil
}

func parseTime(value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t := v.UTC()
		return &t, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		t = t.UTC()
		return &t, nil
	default:
		return nil, fmt.Errorf("unsupported time value %T", value)
	}
}

func fromSnapshot(snap *firestore.DocumentSnapshot) (*assets.Record, error) {
	rec, err := decodeDocument(snap.Data(), snap.Ref.ID)
	if err != nil {
		return nil, fmt.Errorf("decode asset document %s: %w", snap.Ref.ID, err)
	}
	return rec, nil
}

// statusOf reads the status field without decoding the whole document.
func statusOf(snap *firestore.DocumentSnapshot) (assets.Status, bool) {
	v, ok := lookup(snap.Data(), fieldStatus).(string)
	return assets.Status(v), ok
}

func classify(err error, id, op string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", assets.ErrNotFound, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, assets.ErrNotFound)
}

func isDomainError(err error) bool {
	return errors.Is(err, assets.ErrInvalidTransition) || errors.Is(err, assets.ErrInvalidFields)
}

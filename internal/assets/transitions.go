package assets

import (
	"fmt"
	"strings"
	"time"
)

var allowedTransitions = map[Status]map[Status]struct{}{
	StatusUploaded: {
		StatusProcessing: {},
		StatusError:      {},
	},
	StatusProcessing: {
		StatusProcessing: {},
		StatusProcessed:  {},
		StatusError:      {},
	},
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to Status) bool {
	targets, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// ValidateFields checks that each populated field belongs to the target status.
func ValidateFields(to Status, f Fields) error {
	if _, ok := ParseStatus(string(to)); !ok {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidFields, to)
	}
	if to != StatusProcessing && (f.TranscodingJobID != "" || f.InputResolution != "") {
		return fmt.Errorf("%w: job id and input resolution only accompany %s", ErrInvalidFields, StatusProcessing)
	}
	if to != StatusProcessed && (f.ProcessedManifestURL != "" || f.ProcessedObjectName != "" || f.ProcessedAt != nil) {
		return fmt.Errorf("%w: processed outputs only accompany %s", ErrInvalidFields, StatusProcessed)
	}
	if to == StatusError {
		if strings.TrimSpace(f.ErrorMessage) == "" {
			return fmt.Errorf("%w: %s requires an error message", ErrInvalidFields, StatusError)
		}
	} else if f.ErrorMessage != "" {
		return fmt.Errorf("%w: error message only accompanies %s", ErrInvalidFields, StatusError)
	}
	return nil
}

// ApplyTransition mutates rec to reflect a validated transition. Callers must
// have checked CanTransition and ValidateFields.
func ApplyTransition(rec *Record, to Status, f Fields, now time.Time) {
	now = now.UTC()
	rec.Status = to
	rec.UpdatedAt = now
	switch to {
	case StatusProcessing:
		if f.TranscodingJobID != "" {
			rec.TranscodingJobID = f.TranscodingJobID
		}
		if f.InputResolution != "" {
			rec.InputResolution = f.InputResolution
		}
	case StatusProcessed:
		if f.ProcessedManifestURL != "" {
			rec.ProcessedManifestURL = f.ProcessedManifestURL
		}
		if f.ProcessedObjectName != "" {
			rec.ProcessedObjectName = f.ProcessedObjectName
		}
		processedAt := now
		if f.ProcessedAt != nil {
			processedAt = f.ProcessedAt.UTC()
		}
		rec.ProcessedAt = &processedAt
	case StatusError:
		rec.ErrorMessage = strings.TrimSpace(f.ErrorMessage)
	}
}

// PrepareTransition validates and applies a transition against the record as
// observed. It returns the mutated copy; the caller persists it conditionally
// on current.Status.
func PrepareTransition(current *Record, to Status, f Fields, now time.Time) (*Record, error) {
	if err := ValidateFields(to, f); err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, to) {
		return nil, &TransitionError{ID: current.ID, From: current.Status, To: to}
	}
	next := *current
	ApplyTransition(&next, to, f, now)
	return &next, nil
}

package assets

import (
	"errors"
	"fmt"

	"foreverstream/internal/services"
)

var (
	ErrNotFound          = fmt.Errorf("%w: asset not found", services.ErrNotFound)
	ErrAlreadyExists     = fmt.Errorf("%w: asset already exists", services.ErrConflict)
	ErrInvalidRecord     = fmt.Errorf("%w: invalid asset record", services.ErrValidation)
	ErrInvalidFields     = fmt.Errorf("%w: invalid transition fields", services.ErrValidation)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", services.ErrConflict)
)

// TransitionError reports a transition the state machine rejects, including
// one lost to a concurrent writer.
type TransitionError struct {
	ID   string
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.From.IsTerminal() {
		return fmt.Sprintf("asset %s: cannot transition %s -> %s: %s is final", e.ID, e.From, e.To, e.From)
	}
	return fmt.Sprintf("asset %s: cannot transition %s -> %s", e.ID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// IsTransitionError reports whether err is a rejected transition and returns it.
func IsTransitionError(err error) (*TransitionError, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

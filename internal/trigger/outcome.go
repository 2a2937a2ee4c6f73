package trigger

import "context"

// Outcome summarises what a handler did with one event.
type Outcome string

const (
	// OutcomeDispatched means ingestion won the claim and the backend accepted the work.
	OutcomeDispatched Outcome = "dispatched"
	// OutcomeAlreadyProcessing means another delivery already claimed the asset.
	OutcomeAlreadyProcessing Outcome = "already_processing"
	// OutcomeNotFound means no status record exists for the asset id.
	OutcomeNotFound Outcome = "not_found"
	// OutcomeIgnored means the event does not concern this handler.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeCompleted means the completion handler marked the asset processed.
	OutcomeCompleted Outcome = "completed"
	// OutcomeDuplicate means a completion arrived for an already processed asset.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeInvalid means the event failed validation.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeFailed means processing returned an error.
	OutcomeFailed Outcome = "failed"
)

// Handler processes one decoded event.
type Handler interface {
	Handle(ctx context.Context, event ObjectEvent) (Outcome, error)
}

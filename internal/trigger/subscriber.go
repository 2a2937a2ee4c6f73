package trigger

import (
	"context"
	"errors"
	"log/slog"

	"cloud.google.com/go/pubsub"

	"foreverstream/internal/logging"
	"foreverstream/internal/services"
)

// Subscriber feeds a pull subscription into a Handler.
type Subscriber struct {
	subscription *pubsub.Subscription
	name         string
	handler      Handler
	logger       *slog.Logger
}

// NewSubscriber binds subscriptionID on client to handler. maxOutstanding
// bounds concurrent callbacks.
func NewSubscriber(client *pubsub.Client, subscriptionID string, maxOutstanding int, handler Handler, logger *slog.Logger) *Subscriber {
	sub := client.Subscription(subscriptionID)
	if maxOutstanding > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
		sub.ReceiveSettings.NumGoroutines = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Subscriber{
		subscription: sub,
		name:         subscriptionID,
		handler:      handler,
		logger:       logging.NewComponentLogger(logger, "subscriber").With(logging.String("subscription", subscriptionID)),
	}
}

// Run receives until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	s.logger.Info("pull subscription started")
	err := s.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if s.deliver(ctx, msg.Data, msg.Attributes, msg.ID) {
			msg.Ack()
		} else {
			msg.Nack()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// deliver decodes and handles one message. It returns true when the message
// should be acknowledged.
func (s *Subscriber) deliver(ctx context.Context, data []byte, attributes map[string]string, id string) bool {
	event, err := DecodeMessage(data, attributes, id)
	if err != nil {
		logging.WarnWithContext(s.logger, "dropping undecodable message", "pubsub_invalid_message",
			logging.String("message_id", id),
			logging.Error(err),
		)
		return true
	}
	outcome, err := s.handler.Handle(ctx, event)
	if err == nil {
		s.logger.Debug("message handled",
			logging.String("message_id", id),
			logging.String("outcome", string(outcome)),
		)
		return true
	}
	return !Retryable(err)
}

// Retryable reports whether redelivering the event could succeed. Validation,
// missing-record and state-conflict failures will fail the same way again.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrConfiguration):
		return false
	default:
		return true
	}
}

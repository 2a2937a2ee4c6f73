package trigger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"foreverstream/internal/assets"
	"foreverstream/internal/logging"
	"foreverstream/internal/services"
)

type stubHandler struct {
	err    error
	events []ObjectEvent
}

func (h *stubHandler) Handle(_ context.Context, event ObjectEvent) (Outcome, error) {
	h.events = append(h.events, event)
	if h.err != nil {
		return OutcomeFailed, h.err
	}
	return OutcomeDispatched, nil
}

func TestSubscriberDeliverAckDecisions(t *testing.T) {
	attrs := map[string]string{"bucketId": "raw-videos", "objectId": "a.mp4"}
	cases := []struct {
		name string
		err  error
		ack  bool
	}{
		{"success", nil, true},
		{"validation", fmt.Errorf("%w: bad", services.ErrValidation), true},
		{"not found", assets.ErrNotFound, true},
		{"conflict", &assets.TransitionError{ID: "a", From: assets.StatusProcessed, To: assets.StatusError}, true},
		{"transient", services.Wrap(services.ErrTransient, "ingest", "claim", "", errors.New("database is locked")), false},
		{"external", services.Wrap(services.ErrExternalTool, "submit", "", "", nil), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := &stubHandler{err: tc.err}
			sub := &Subscriber{handler: handler, logger: logging.NewNop()}
			if got := sub.deliver(context.Background(), nil, attrs, "m-1"); got != tc.ack {
				t.Fatalf("ack = %v, want %v", got, tc.ack)
			}
			if len(handler.events) != 1 || handler.events[0].MessageID != "m-1" {
				t.Fatalf("unexpected handled events %+v", handler.events)
			}
		})
	}
}

func TestSubscriberAcksUndecodableMessages(t *testing.T) {
	handler := &stubHandler{}
	sub := &Subscriber{handler: handler, logger: logging.NewNop()}
	if !sub.deliver(context.Background(), []byte("{}"), nil, "m-2") {
		t.Fatal("undecodable messages should be acked")
	}
	if len(handler.events) != 0 {
		t.Fatal("handler must not see undecodable messages")
	}
}

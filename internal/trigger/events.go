package trigger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"foreverstream/internal/services"
)

// EventTypeFinalize is the storage notification type for a completed upload.
const EventTypeFinalize = "OBJECT_FINALIZE"

// ErrInvalidEvent reports a payload without a bucket or object name.
var ErrInvalidEvent = fmt.Errorf("%w: invalid trigger event", services.ErrValidation)

// ObjectEvent is the validated subset of object metadata the handlers use.
type ObjectEvent struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        string `json:"size,omitempty"`
	Generation  string `json:"generation,omitempty"`
	EventType   string `json:"eventType,omitempty"`
	MessageID   string `json:"messageId,omitempty"`
}

// Validate checks the required fields.
func (e ObjectEvent) Validate() error {
	if strings.TrimSpace(e.Bucket) == "" {
		return fmt.Errorf("%w: bucket is required", ErrInvalidEvent)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: object name is required", ErrInvalidEvent)
	}
	return nil
}

// IsFinalize reports whether the event announces a completed object. Events
// without a type are direct deliveries and count as finalize.
func (e ObjectEvent) IsFinalize() bool {
	return e.EventType == "" || e.EventType == EventTypeFinalize
}

type pushEnvelope struct {
	Message      *pushMessage `json:"message"`
	Subscription string       `json:"subscription"`
}

type pushMessage struct {
	Data         []byte            `json:"data"`
	Attributes   map[string]string `json:"attributes"`
	MessageID    string            `json:"messageId"`
	MessageIDAlt string            `json:"message_id"`
}

// DecodeRequest parses an HTTP trigger body: a Pub/Sub push envelope or a
// bare object-metadata document.
func DecodeRequest(body []byte) (ObjectEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ObjectEvent{}, fmt.Errorf("%w: empty body", ErrInvalidEvent)
	}
	var envelope pushEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return ObjectEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if envelope.Message != nil {
		id := envelope.Message.MessageID
		if id == "" {
			id = envelope.Message.MessageIDAlt
		}
		return DecodeMessage(envelope.Message.Data, envelope.Message.Attributes, id)
	}
	return decodeObject(trimmed)
}

// DecodeMessage parses a Pub/Sub message carrying a storage notification. The
// object metadata comes from data when present, else from the bucketId and
// objectId attributes.
func DecodeMessage(data []byte, attributes map[string]string, messageID string) (ObjectEvent, error) {
	var event ObjectEvent
	if len(bytes.TrimSpace(data)) > 0 {
		decoded, err := decodeObject(data)
		if err != nil && (attributes["bucketId"] == "" || attributes["objectId"] == "") {
			return ObjectEvent{}, err
		}
		event = decoded
	}
	if event.Bucket == "" {
		event.Bucket = strings.TrimSpace(attributes["bucketId"])
	}
	if event.Name == "" {
		event.Name = strings.TrimSpace(attributes["objectId"])
	}
	if event.Generation == "" {
		event.Generation = attributes["objectGeneration"]
	}
	event.EventType = strings.TrimSpace(attributes["eventType"])
	event.MessageID = messageID
	if err := event.Validate(); err != nil {
		return ObjectEvent{}, err
	}
	return event, nil
}

func decodeObject(data []byte) (ObjectEvent, error) {
	var event ObjectEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return ObjectEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	event.Bucket = strings.TrimSpace(event.Bucket)
	event.Name = strings.TrimSpace(event.Name)
	if err := event.Validate(); err != nil {
		return ObjectEvent{}, err
	}
	return event, nil
}

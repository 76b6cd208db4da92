// Package notify delivers resource change notifications
package notify

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/relabs-tech/sqlbase/core"
	"github.com/relabs-tech/sqlbase/core/logger"
)

// Event is the envelope of a notification
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Resource  string          `json:"resource"`
	Operation core.Operation  `json:"operation"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// NewEvent returns the event for a notification. An empty payload becomes null.
func NewEvent(ctx context.Context, resource string, operation core.Operation, payload []byte) Event {
	if len(payload) == 0 {
		payload = []byte("null")
	}
	return Event{
		ID:        uuid.New(),
		Resource:  resource,
		Operation: operation,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestIDFromContext(ctx),
		Payload:   payload,
	}
}

// LogNotifier writes notifications to the request logger
type LogNotifier struct{}

// Notify implements core.Notifier
func (LogNotifier) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) error {
	logger.FromContext(ctx).WithField("resource", resource).
		WithField("operation", operation).
		Infoln("notification:", string(payload))
	return nil
}

// Multi forwards notifications to all notifiers. It returns the first error, but
// always notifies everybody.
type Multi []core.Notifier

// Notify implements core.Notifier
func (m Multi) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, resource, operation, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}

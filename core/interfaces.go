package core

import "context"

// Notifier receives notifications about modifications of resources. Payload is the
// JSON representation of the resource after the operation, or its identifier for
// deletions.
type Notifier interface {
	Notify(ctx context.Context, resource string, operation Operation, payload []byte) error
}

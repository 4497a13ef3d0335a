// sender.go defines the transport contract used by the client and worker.

package errwatch

import (
	"context"
	"fmt"
)

// Result is a successful delivery.
type Result struct {
	// ID is the identifier the remote service assigned, if it returned one.
	ID string

	// StatusCode is the transport status, when the transport has one.
	StatusCode int
}

// Sender delivers one serialized notice payload. A non-nil error means the
// delivery failed. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, payload []byte) (*Result, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, payload []byte) (*Result, error)

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, payload []byte) (*Result, error) {
	return f(ctx, payload)
}

// safeSend calls sender, converting a panic into an error.
func safeSend(ctx context.Context, sender Sender, payload []byte) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("errwatch: sender panicked: %v", r)
		}
	}()
	return sender.Send(ctx, payload)
}

// noopSenderInternal discards payloads; used when no Sender is configured.
type noopSenderInternal struct{}

func (noopSenderInternal) Send(ctx context.Context, payload []byte) (*Result, error) {
	return &Result{}, nil
}

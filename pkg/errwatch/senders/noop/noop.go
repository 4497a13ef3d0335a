// Package noop provides a no-operation Sender that discards all payloads.
// Useful for testing and for disabling delivery.
package noop

import (
	"context"

	"github.com/strongdm/errwatch/pkg/errwatch"
)

// Sender discards all payloads.
type Sender struct{}

// New creates a Sender that discards all payloads.
func New() *Sender {
	return &Sender{}
}

// Send discards the payload and reports success.
func (s *Sender) Send(ctx context.Context, payload []byte) (*errwatch.Result, error) {
	return &errwatch.Result{}, nil
}

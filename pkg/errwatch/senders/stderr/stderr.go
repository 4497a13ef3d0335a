// Package stderr provides a Sender that prints notices in human-readable form.
// Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/strongdm/errwatch/pkg/errwatch"
)

// Option configures the stderr Sender.
type Option func(*Sender)

// WithVerbose enables backtraces and context in the output.
func WithVerbose() Option {
	return func(s *Sender) {
		s.verbose = true
	}
}

// WithWriter replaces os.Stderr as the destination.
func WithWriter(w io.Writer) Option {
	return func(s *Sender) {
		s.out = w
	}
}

// Sender writes notices to stderr.
type Sender struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// New creates a Sender that writes to stderr.
func New(opts ...Option) *Sender {
	s := &Sender{out: os.Stderr}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send formats and prints the notice.
func (s *Sender) Send(ctx context.Context, payload []byte) (*errwatch.Result, error) {
	p, err := errwatch.DecodePayload(payload)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	// Format: [ERRWATCH] <occurred_at> <class> (env: <environment>) [tags]
	fmt.Fprintf(&b, "[ERRWATCH] %s %s", p.OccurredAt, p.Error.Class)
	if env, ok := p.Context["environment"].(string); ok && env != "" {
		fmt.Fprintf(&b, " (env: %s)", env)
	}
	if len(p.Error.Tags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(p.Error.Tags, ", "))
	}
	b.WriteString("\n")

	if p.Error.Message != "" {
		fmt.Fprintf(&b, "        Message: %s\n", p.Error.Message)
	}
	if p.Error.Fingerprint != "" {
		fmt.Fprintf(&b, "        Fingerprint: %s\n", p.Error.Fingerprint)
	}
	fmt.Fprintf(&b, "        ID: %s\n", p.ID)

	if s.verbose {
		if len(p.Error.Backtrace) > 0 {
			b.WriteString("        Backtrace:\n")
			for _, frame := range p.Error.Backtrace {
				fmt.Fprintf(&b, "          %s\n", frame)
			}
		}
		for _, crumb := range p.Breadcrumbs {
			fmt.Fprintf(&b, "        Breadcrumb: %v %v %v\n", crumb["timestamp"], crumb["category"], crumb["message"])
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.out, b.String()); err != nil {
		return nil, fmt.Errorf("write notice: %w", err)
	}
	return &errwatch.Result{ID: p.ID}, nil
}

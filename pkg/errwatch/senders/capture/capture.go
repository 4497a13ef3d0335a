// Package capture provides a Sender that records payloads in memory.
// Use it in tests to assert on what a Client would have delivered.
package capture

import (
	"context"
	"sync"

	"github.com/strongdm/errwatch/pkg/errwatch"
)

// Sender records every payload it receives. Safe for concurrent use.
type Sender struct {
	mu       sync.Mutex
	payloads [][]byte
	err      error
}

// New creates an empty capture Sender.
func New() *Sender {
	return &Sender{}
}

// Send records payload and returns the notice ID, or the configured error.
func (s *Sender) Send(ctx context.Context, payload []byte) (*errwatch.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.payloads = append(s.payloads, append([]byte(nil), payload...))

	p, err := errwatch.DecodePayload(payload)
	if err != nil {
		return &errwatch.Result{}, nil
	}
	return &errwatch.Result{ID: p.ID}, nil
}

// FailWith makes subsequent sends fail with err; nil restores success.
func (s *Sender) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Payloads returns a copy of the raw payloads received.
func (s *Sender) Payloads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.payloads))
	copy(out, s.payloads)
	return out
}

// Notices returns the received payloads decoded. Undecodable payloads are skipped.
func (s *Sender) Notices() []errwatch.Payload {
	var out []errwatch.Payload
	for _, raw := range s.Payloads() {
		if p, err := errwatch.DecodePayload(raw); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of payloads received.
func (s *Sender) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads)
}

// Reset drops all recorded payloads.
func (s *Sender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = nil
}

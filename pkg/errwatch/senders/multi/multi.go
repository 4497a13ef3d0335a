// Package multi provides a Sender that fans out to multiple senders.
// All senders receive every payload concurrently; errors are aggregated.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/strongdm/errwatch/pkg/errwatch"
	"golang.org/x/sync/errgroup"
)

// Sender fans out to multiple senders.
type Sender struct {
	senders []errwatch.Sender
}

// New creates a Sender that writes to every sender in senders.
func New(senders ...errwatch.Sender) *Sender {
	return &Sender{senders: senders}
}

// Send delivers payload to all senders, waiting for every one. The result is
// the first non-nil result in sender order. Errors are joined with
// errors.Join; any error fails the whole send. A sender that panics counts
// as failed.
func (s *Sender) Send(ctx context.Context, payload []byte) (*errwatch.Result, error) {
	results := make([]*errwatch.Result, len(s.senders))
	errs := make([]error, len(s.senders))

	var g errgroup.Group
	for i, sender := range s.senders {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("multi: sender %d panicked: %v", i, r)
				}
				errs[i] = err
			}()
			results[i], err = sender.Send(ctx, payload)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Join(errs...)
	}
	for _, res := range results {
		if res != nil {
			return res, nil
		}
	}
	return &errwatch.Result{}, nil
}

// instrument.go provides the Instrument function for convenient runner setup.
// This is the recommended entry point for reporting ai-agents-sdk failures.

package agentssdk

import (
	"log/slog"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	"github.com/strongdm/errwatch/pkg/errwatch"
)

// WrapOption configures a WrappedRunner.
type WrapOption func(*WrappedRunner)

// WithLogger sets the logger for the wrapper.
func WithLogger(logger *slog.Logger) WrapOption {
	return func(w *WrappedRunner) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithTags adds tags to every notice the wrapper reports.
func WithTags(tags ...string) WrapOption {
	return func(w *WrappedRunner) {
		w.tags = append(w.tags, tags...)
	}
}

// Instrument wraps a Runner so failed and panicking runs are reported
// through client.
//
// Example:
//
//	client, _ := errwatch.New(cfg, errwatch.WithSender(cxdb.New(cxdbClient)))
//	runner := agents.NewRunner(llmClient)
//	wrapped := agentssdk.Instrument(runner, client)
//	result, err := wrapped.Run(ctx, agent, input, session, nil)
func Instrument(baseRunner *agents.Runner, client *errwatch.Client, opts ...WrapOption) *WrappedRunner {
	return newWrappedRunner(baseRunner, client, opts...)
}

func newWrappedRunner(inner runner, client *errwatch.Client, opts ...WrapOption) *WrappedRunner {
	w := &WrappedRunner{
		inner:  inner,
		client: client,
		logger: slog.Default(),
		tags:   []string{"agent"},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "errwatch.agentssdk")
	return w
}

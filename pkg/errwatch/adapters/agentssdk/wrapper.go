// wrapper.go implements WrappedRunner that wraps agents.Runner to report errors and panics.
// This is the PRIMARY capture mechanism - hooks provide enrichment only.

package agentssdk

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	"github.com/strongdm/errwatch/pkg/errwatch"
	"github.com/strongdm/errwatch/pkg/errwatch/senders/cxdb"
)

// runner is the subset of *agents.Runner the wrapper drives.
type runner interface {
	Run(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (agents.RunResult, error)
	RunOnce(ctx context.Context, agent *agents.Agent, input string, cfg *agents.RunConfig) (agents.RunResult, error)
	RunStream(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (*agents.StreamingRun, error)
}

// ContextIDProvider is an optional interface that session implementations can
// satisfy to link notices to their cxdb conversation.
//
// The ai-agents-sdk CXDBSession already implements this interface via its
// ContextID() method.
type ContextIDProvider interface {
	ContextID(ctx context.Context) (uint64, error)
}

// WrappedRunner wraps an agents.Runner to report errors and panics.
// Each run gets an errwatch Scope; hooks record the agent, tool, and model in
// it and add a breadcrumb per LLM and tool call.
type WrappedRunner struct {
	inner  runner
	client *errwatch.Client
	logger *slog.Logger
	tags   []string
}

// Run executes the agent with the given input and session, reporting any error or panic.
func (w *WrappedRunner) Run(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (agents.RunResult, error) {
	ctx = w.startRun(ctx, "run", agent, session)
	defer w.capturePanic(ctx)

	result, err := w.inner.Run(ctx, agent, input, session, w.wrapRunConfig(cfg))
	if err != nil {
		w.captureError(ctx, err)
	}
	return result, err
}

// RunOnce executes a single turn of the agent, reporting any error or panic.
func (w *WrappedRunner) RunOnce(ctx context.Context, agent *agents.Agent, input string, cfg *agents.RunConfig) (agents.RunResult, error) {
	ctx = w.startRun(ctx, "run_once", agent, nil)
	defer w.capturePanic(ctx)

	result, err := w.inner.RunOnce(ctx, agent, input, w.wrapRunConfig(cfg))
	if err != nil {
		w.captureError(ctx, err)
	}
	return result, err
}

// RunStream starts a streaming run, reporting any error at the start.
// Note: Errors during streaming are not reported by this wrapper.
func (w *WrappedRunner) RunStream(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (*agents.StreamingRun, error) {
	ctx = w.startRun(ctx, "run_stream", agent, session)
	defer w.capturePanic(ctx)

	stream, err := w.inner.RunStream(ctx, agent, input, session, w.wrapRunConfig(cfg))
	if err != nil {
		w.captureError(ctx, err)
	}
	return stream, err
}

// startRun opens a fresh Scope for the run, inheriting context and user from
// any scope already on ctx.
func (w *WrappedRunner) startRun(ctx context.Context, mode string, agent *agents.Agent, session agents.Session) context.Context {
	scope := errwatch.NewScope()
	if parent, ok := errwatch.ScopeFromContext(ctx); ok {
		scope.SetContext(parent.Context())
		if user := parent.User(); user != nil {
			scope.SetUser(user)
		}
	}

	values := map[string]any{
		"run_id":   uuid.NewString(),
		"run_mode": mode,
	}
	if agent != nil {
		values["agent_name"] = agent.Name()
	}
	if id, ok := w.contextID(ctx, session); ok {
		values[cxdb.ContextIDKey] = id
	}
	scope.SetContext(values)
	return errwatch.WithScope(ctx, scope)
}

// contextID extracts the cxdb context ID from a session if it implements ContextIDProvider.
func (w *WrappedRunner) contextID(ctx context.Context, session any) (uint64, bool) {
	provider, ok := session.(ContextIDProvider)
	if !ok {
		return 0, false
	}
	id, err := provider.ContextID(ctx)
	if err != nil {
		w.logger.Debug("session has no context id", "error", err)
		return 0, false
	}
	return id, true
}

// wrapRunConfig clones cfg and wraps hooks with HookAdapter for enrichment capture.
func (w *WrappedRunner) wrapRunConfig(cfg *agents.RunConfig) *agents.RunConfig {
	var cloned agents.RunConfig
	if cfg != nil {
		cloned = *cfg
	}
	cloned.Hooks = NewHookAdapter(cloned.Hooks)
	return &cloned
}

// captureError reports err with the run's enrichment.
func (w *WrappedRunner) captureError(ctx context.Context, err error) {
	if w.client == nil {
		return
	}
	w.client.Notify(ctx, classifyError(err), errwatch.Tags(w.tags...))
}

// capturePanic recovers from a panic, reports it synchronously, and re-panics.
func (w *WrappedRunner) capturePanic(ctx context.Context) {
	if r := recover(); r != nil {
		if w.client != nil && w.client.NotifySync(ctx, errwatch.NewPanicError(r), errwatch.Tags(w.tags...), errwatch.Tags("panic")) == nil {
			w.logger.Debug("panic notice not delivered", "panic", r)
		}
		panic(r)
	}
}

// Inner returns the underlying Runner for advanced usage.
func (w *WrappedRunner) Inner() *agents.Runner {
	r, _ := w.inner.(*agents.Runner)
	return r
}

package agentssdk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"
	"github.com/strongdm/errwatch/pkg/errwatch"
	"github.com/strongdm/errwatch/pkg/errwatch/senders/capture"
	"github.com/strongdm/errwatch/pkg/errwatch/senders/cxdb"
)

// fakeRunner stands in for *agents.Runner. It fires one tool hook before
// returning err, or panics with panicValue.
type fakeRunner struct {
	err        error
	panicValue any
	calls      []string
	ctx        context.Context
}

func (f *fakeRunner) do(ctx context.Context, mode string, agent *agents.Agent, cfg *agents.RunConfig) error {
	f.calls = append(f.calls, mode)
	f.ctx = ctx
	if cfg != nil && cfg.Hooks != nil {
		_ = cfg.Hooks.OnToolStart(ctx, nil, agent, agents.Tool{Name: "Lookup"}, llmsdk.ToolCall{ID: "call-1"})
	}
	if f.panicValue != nil {
		panic(f.panicValue)
	}
	return f.err
}

func (f *fakeRunner) Run(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (agents.RunResult, error) {
	var res agents.RunResult
	return res, f.do(ctx, "run", agent, cfg)
}

func (f *fakeRunner) RunOnce(ctx context.Context, agent *agents.Agent, input string, cfg *agents.RunConfig) (agents.RunResult, error) {
	var res agents.RunResult
	return res, f.do(ctx, "run_once", agent, cfg)
}

func (f *fakeRunner) RunStream(ctx context.Context, agent *agents.Agent, input string, session agents.Session, cfg *agents.RunConfig) (*agents.StreamingRun, error) {
	return nil, f.do(ctx, "run_stream", agent, cfg)
}

// idSession is a session that knows its cxdb context.
type idSession struct {
	agents.Session
	id  uint64
	err error
}

func (s *idSession) ContextID(context.Context) (uint64, error) {
	return s.id, s.err
}

func newTestClient(t *testing.T) (*errwatch.Client, *capture.Sender) {
	t.Helper()
	sender := capture.New()
	c, err := errwatch.New(errwatch.Config{
		APIKey:   "k",
		Endpoint: "https://errors.example.com",
		SyncMode: true,
	}, errwatch.WithSender(sender), errwatch.WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Shutdown)
	return c, sender
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAgent() *agents.Agent {
	return agents.NewAgent(agents.AgentConfig{Name: "support-agent"})
}

func TestWrappedRunner_Run_ReportsError(t *testing.T) {
	client, sender := newTestClient(t)
	inner := &fakeRunner{err: errors.New("model unavailable")}
	w := newWrappedRunner(inner, client, WithLogger(quietLogger()), WithTags("billing"))

	_, err := w.Run(context.Background(), testAgent(), "hi", nil, nil)
	if err == nil || err.Error() != "model unavailable" {
		t.Fatalf("Run error = %v, want the runner's error unchanged", err)
	}

	notices := sender.Notices()
	if len(notices) != 1 {
		t.Fatalf("Expected 1 notice, got %d", len(notices))
	}
	n := notices[0]
	if n.Error.Class != AgentErrorClass {
		t.Errorf("Class = %q, want %q", n.Error.Class, AgentErrorClass)
	}
	if len(n.Error.Tags) != 2 || n.Error.Tags[0] != "agent" || n.Error.Tags[1] != "billing" {
		t.Errorf("Tags = %v, want [agent billing]", n.Error.Tags)
	}
	if n.Context["agent_name"] != "support-agent" {
		t.Errorf("agent_name = %v", n.Context["agent_name"])
	}
	if n.Context["run_mode"] != "run" {
		t.Errorf("run_mode = %v", n.Context["run_mode"])
	}
	if id, _ := n.Context["run_id"].(string); len(id) != 36 {
		t.Errorf("run_id = %v, want a UUID", n.Context["run_id"])
	}
	if n.Context["tool_name"] != "Lookup" || n.Context["operation_id"] != "call-1" {
		t.Errorf("hook enrichment missing: %v", n.Context)
	}
	if len(n.Breadcrumbs) != 1 || n.Breadcrumbs[0]["category"] != CategoryTool {
		t.Errorf("Breadcrumbs = %v", n.Breadcrumbs)
	}
}

func TestWrappedRunner_Success_NoNotice(t *testing.T) {
	client, sender := newTestClient(t)
	inner := &fakeRunner{}
	w := newWrappedRunner(inner, client)

	if _, err := w.Run(context.Background(), testAgent(), "hi", nil, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if _, err := w.RunOnce(context.Background(), testAgent(), "hi", nil); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if sender.Len() != 0 {
		t.Errorf("Expected no notices, got %d", sender.Len())
	}
}

func TestWrappedRunner_Modes(t *testing.T) {
	client, sender := newTestClient(t)
	inner := &fakeRunner{err: context.DeadlineExceeded}
	w := newWrappedRunner(inner, client)
	ctx := context.Background()

	_, _ = w.RunOnce(ctx, testAgent(), "hi", nil)
	_, _ = w.RunStream(ctx, testAgent(), "hi", nil, nil)

	notices := sender.Notices()
	if len(notices) != 2 {
		t.Fatalf("Expected 2 notices, got %d", len(notices))
	}
	for i, mode := range []string{"run_once", "run_stream"} {
		if notices[i].Context["run_mode"] != mode {
			t.Errorf("notice %d run_mode = %v, want %s", i, notices[i].Context["run_mode"], mode)
		}
		if notices[i].Error.Class != AgentTimeoutClass {
			t.Errorf("notice %d class = %q, want %q", i, notices[i].Error.Class, AgentTimeoutClass)
		}
	}
}

func TestWrappedRunner_PreservesInnerHooks(t *testing.T) {
	client, _ := newTestClient(t)
	inner := &fakeRunner{}
	w := newWrappedRunner(inner, client)
	hooks := &mockRunHooks{}
	cfg := &agents.RunConfig{Hooks: hooks}

	_, _ = w.Run(context.Background(), testAgent(), "hi", nil, cfg)

	if !hooks.toolStartCalled {
		t.Error("caller hooks should still run")
	}
	if cfg.Hooks != hooks {
		t.Error("caller RunConfig must not be modified")
	}
}

func TestWrappedRunner_ContextIDFromSession(t *testing.T) {
	client, sender := newTestClient(t)
	w := newWrappedRunner(&fakeRunner{err: errors.New("failed")}, client)

	_, _ = w.Run(context.Background(), testAgent(), "hi", &idSession{id: 12345}, nil)

	notices := sender.Notices()
	if len(notices) != 1 {
		t.Fatalf("Expected 1 notice, got %d", len(notices))
	}
	if got := notices[0].Context[cxdb.ContextIDKey]; got != float64(12345) {
		t.Errorf("%s = %v, want 12345", cxdb.ContextIDKey, got)
	}
}

func TestWrappedRunner_SessionWithoutContextID(t *testing.T) {
	client, sender := newTestClient(t)
	w := newWrappedRunner(&fakeRunner{err: errors.New("failed")}, client, WithLogger(quietLogger()))

	_, _ = w.Run(context.Background(), testAgent(), "hi", &idSession{err: errors.New("not yet created")}, nil)

	if _, ok := sender.Notices()[0].Context[cxdb.ContextIDKey]; ok {
		t.Error("context id should be absent when the session has none")
	}
}

func TestWrappedRunner_InheritsParentScope(t *testing.T) {
	client, sender := newTestClient(t)
	inner := &fakeRunner{err: errors.New("failed")}
	w := newWrappedRunner(inner, client)

	parent := errwatch.NewScope()
	parent.SetContext(map[string]any{"tenant": "acme", cxdb.ContextIDKey: uint64(424242)})
	parent.SetUser(map[string]any{"id": "u-1"})
	ctx := errwatch.WithScope(context.Background(), parent)

	_, _ = w.Run(ctx, testAgent(), "hi", nil, nil)

	n := sender.Notices()[0]
	if n.Context["tenant"] != "acme" || n.Context[cxdb.ContextIDKey] != float64(424242) {
		t.Errorf("parent context not inherited: %v", n.Context)
	}
	if n.User["id"] != "u-1" {
		t.Errorf("User = %v", n.User)
	}
	if _, ok := parent.Context()["run_id"]; ok {
		t.Error("run values must not leak into the parent scope")
	}
	if len(parent.Breadcrumbs()) != 0 {
		t.Error("run breadcrumbs must not leak into the parent scope")
	}
}

func TestWrappedRunner_PanicReportedAndReraised(t *testing.T) {
	client, sender := newTestClient(t)
	w := newWrappedRunner(&fakeRunner{panicValue: "tool panicked"}, client)

	func() {
		defer func() {
			r := recover()
			if r != "tool panicked" {
				t.Fatalf("recovered %v, want the original panic value", r)
			}
		}()
		_, _ = w.Run(context.Background(), testAgent(), "hi", nil, nil)
		t.Fatal("Run should re-panic")
	}()

	notices := sender.Notices()
	if len(notices) != 1 {
		t.Fatalf("Expected 1 notice, got %d", len(notices))
	}
	n := notices[0]
	if n.Error.Class != errwatch.PanicClass {
		t.Errorf("Class = %q, want %q", n.Error.Class, errwatch.PanicClass)
	}
	if n.Error.Message != "tool panicked" {
		t.Errorf("Message = %q", n.Error.Message)
	}
	if n.Context["agent_name"] != "support-agent" {
		t.Errorf("agent_name = %v", n.Context["agent_name"])
	}
}

func TestWrappedRunner_NilClient(t *testing.T) {
	w := newWrappedRunner(&fakeRunner{err: errors.New("failed")}, nil)

	if _, err := w.Run(context.Background(), testAgent(), "hi", nil, nil); err == nil {
		t.Error("error should pass through without a client")
	}
}

func TestWrappedRunner_Inner(t *testing.T) {
	if newWrappedRunner(&fakeRunner{}, nil).Inner() != nil {
		t.Error("Inner should be nil for a non-SDK runner")
	}
}

// hooks.go implements RunHooks for capturing operation context for enrichment.
// This adapter provides ENRICHMENT only - error detection is done by WrappedRunner.

package agentssdk

import (
	"context"
	"fmt"

	"github.com/strongdm/ai-agents-sdk/pkg/agents"
	llmsdk "github.com/strongdm/ai-llm-sdk/pkg/llm"
	"github.com/strongdm/errwatch/pkg/errwatch"
)

// Breadcrumb categories recorded by HookAdapter.
const (
	CategoryLLM     = "llm"
	CategoryTool    = "tool"
	CategoryHandoff = "handoff"
)

// HookAdapter implements agents.RunHooks to record operation context in the
// run's errwatch Scope. It delegates to an inner RunHooks.
type HookAdapter struct {
	inner agents.RunHooks
}

// NewHookAdapter wraps an existing RunHooks. The inner hooks (if non-nil) are
// called for all hook methods; only their errors are returned.
func NewHookAdapter(inner agents.RunHooks) agents.RunHooks {
	return &HookAdapter{inner: inner}
}

// OnAgentStart records the agent name.
func (h *HookAdapter) OnAgentStart(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent) error {
	if agent != nil {
		errwatch.SetContext(ctx, map[string]any{"agent_name": agent.Name()})
	}

	if h.inner != nil {
		return h.inner.OnAgentStart(ctx, runCtx, agent)
	}
	return nil
}

// OnAgentEnd delegates to inner hooks.
func (h *HookAdapter) OnAgentEnd(ctx context.Context, runCtx *agents.AgentHookContext, agent *agents.Agent, result agents.RunResult) error {
	if h.inner != nil {
		return h.inner.OnAgentEnd(ctx, runCtx, agent, result)
	}
	return nil
}

// OnHandoff records a breadcrumb for the handoff.
func (h *HookAdapter) OnHandoff(ctx context.Context, runCtx *agents.RunContext, from *agents.Agent, to *agents.Agent) error {
	errwatch.AddBreadcrumb(ctx, CategoryHandoff, "handoff", map[string]any{
		"from": agentName(from),
		"to":   agentName(to),
	})
	if to != nil {
		errwatch.SetContext(ctx, map[string]any{"agent_name": to.Name()})
	}

	if h.inner != nil {
		return h.inner.OnHandoff(ctx, runCtx, from, to)
	}
	return nil
}

// OnToolStart records the tool call as the current operation.
func (h *HookAdapter) OnToolStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, call llmsdk.ToolCall) error {
	values := map[string]any{
		"operation":    CategoryTool,
		"operation_id": call.ID,
		"tool_name":    tool.Name,
	}
	if agent != nil {
		values["agent_name"] = agent.Name()
	}
	errwatch.SetContext(ctx, values)
	errwatch.AddBreadcrumb(ctx, CategoryTool, "tool start: "+tool.Name, map[string]any{
		"call_id":    call.ID,
		"input_size": len(call.Arguments),
	})

	if h.inner != nil {
		return h.inner.OnToolStart(ctx, runCtx, agent, tool, call)
	}
	return nil
}

// OnToolEnd records a breadcrumb with the output size. Output text is not kept.
func (h *HookAdapter) OnToolEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, tool agents.Tool, output string) error {
	errwatch.AddBreadcrumb(ctx, CategoryTool, "tool end: "+tool.Name, map[string]any{
		"output_size": len(output),
	})

	if h.inner != nil {
		return h.inner.OnToolEnd(ctx, runCtx, agent, tool, output)
	}
	return nil
}

// OnLLMStart records the model call as the current operation. Message text
// is never recorded, only counts.
func (h *HookAdapter) OnLLMStart(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, req llmsdk.Request) error {
	values := map[string]any{
		"operation": CategoryLLM,
		"model":     req.Model,
	}
	if agent != nil {
		values["agent_name"] = agent.Name()
	}
	errwatch.SetContext(ctx, values)
	errwatch.AddBreadcrumb(ctx, CategoryLLM, "llm request: "+req.Model, map[string]any{
		"message_count": len(req.Messages),
		"tool_count":    len(req.Tools),
	})

	if h.inner != nil {
		return h.inner.OnLLMStart(ctx, runCtx, agent, req)
	}
	return nil
}

// OnLLMEnd records a breadcrumb with the finish reason and tool call count.
func (h *HookAdapter) OnLLMEnd(ctx context.Context, runCtx *agents.RunContext, agent *agents.Agent, resp llmsdk.Response) error {
	errwatch.AddBreadcrumb(ctx, CategoryLLM, "llm response: "+resp.Model, map[string]any{
		"finish_reason":   fmt.Sprint(resp.FinishReason),
		"tool_call_count": len(resp.ToolCalls),
	})

	if h.inner != nil {
		return h.inner.OnLLMEnd(ctx, runCtx, agent, resp)
	}
	return nil
}

func agentName(agent *agents.Agent) string {
	if agent == nil {
		return ""
	}
	return agent.Name()
}

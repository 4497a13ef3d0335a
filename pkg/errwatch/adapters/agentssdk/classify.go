// classify.go maps run failures onto errwatch error classes.

package agentssdk

import (
	"context"
	"errors"
	"strings"

	"github.com/strongdm/errwatch/pkg/errwatch"
)

// Error classes of run failures. All share AgentErrorClass as ancestor, so
// errwatch.IgnoreName(AgentErrorClass) silences every one of them.
const (
	AgentErrorClass     = "AgentError"
	AgentTimeoutClass   = "AgentTimeout"
	AgentCanceledClass  = "AgentCanceled"
	AgentGuardrailClass = "AgentGuardrail"
)

var guardrailPatterns = []string{
	"guardrail",
	"content policy",
	"safety filter",
	"blocked by policy",
}

// classifyError wraps err in a ClassError describing the kind of failure.
// Errors that already classify themselves are returned unchanged.
func classifyError(err error) error {
	var c errwatch.Classified
	if errors.As(err, &c) {
		return err
	}

	class := AgentErrorClass
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		class = AgentTimeoutClass
	case errors.Is(err, context.Canceled):
		class = AgentCanceledClass
	case containsGuardrailPattern(err.Error()):
		class = AgentGuardrailClass
	}

	ancestors := []string{AgentErrorClass}
	if class == AgentErrorClass {
		ancestors = nil
	}
	return &errwatch.ClassError{
		Class:     class,
		Message:   err.Error(),
		Ancestors: ancestors,
		Cause:     err,
	}
}

// containsGuardrailPattern checks if an error message indicates a guardrail violation.
func containsGuardrailPattern(msg string) bool {
	msg = strings.ToLower(msg)
	for _, p := range guardrailPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

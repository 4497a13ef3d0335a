// scrub.go redacts secrets and PII from notice messages and backtraces.

package errwatch

import (
	"fmt"
	"regexp"
)

// RedactedMarker replaces scrubbed message fragments.
const RedactedMarker = "[REDACTED]"

// Compiled regex patterns for message scrubbing (compiled once at package init)
var messageScrubPatterns = []*regexp.Regexp{
	// API keys and tokens
	regexp.MustCompile(`(?i)(api[_-]?key|token)[=:\s]+['"]?[\w\-\.]+['"]?`),
	regexp.MustCompile(`(?i)(authorization|bearer)[=:\s]+['"]?[\w\-\.]+['"]?[\s]+['"]?[\w\-\.]+['"]?`), // Authorization: Bearer <token>
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9_-]{20,}`),                                 // OpenAI-style keys
	regexp.MustCompile(`(?i)gh[po]_[a-zA-Z0-9]{36}`),                                // GitHub tokens
	regexp.MustCompile(`(?i)github_pat_[a-zA-Z0-9_]{22,}`),                          // GitHub PAT
	regexp.MustCompile(`(?i)xox[baprs]-[a-zA-Z0-9\-]{10,}`),                         // Slack tokens
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`), // JWT

	// Credentials
	regexp.MustCompile(`(?i)(password|passwd|secret|credential)[=:\s]+['"]?[^\s'",]+['"]?`),

	// PII
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), // Email
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                              // SSN
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),        // Credit card
}

// Path patterns to normalize in backtraces
var pathNormalizationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/home/[^/]+/`),
	regexp.MustCompile(`/Users/[^/]+/`),
	regexp.MustCompile(`C:\\Users\\[^\\]+\\`),
	regexp.MustCompile(`/tmp/[^/]+/`),
}

// Scrubber redacts secret-looking fragments from messages and user-specific
// directories from backtrace frames.
type Scrubber struct {
	patterns []*regexp.Regexp
}

// NewScrubber creates a Scrubber using the built-in patterns plus extra.
// An invalid extra pattern is an error.
func NewScrubber(extra ...string) (*Scrubber, error) {
	patterns := append([]*regexp.Regexp(nil), messageScrubPatterns...)
	for _, p := range extra {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid scrub pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}
	return &Scrubber{patterns: patterns}, nil
}

// ScrubMessage replaces every sensitive fragment of msg with RedactedMarker.
func (s *Scrubber) ScrubMessage(msg string) string {
	for _, pattern := range s.patterns {
		msg = pattern.ReplaceAllString(msg, RedactedMarker)
	}
	return msg
}

// ScrubBacktrace returns frames with home and temp directories normalized.
func (s *Scrubber) ScrubBacktrace(frames []string) []string {
	if len(frames) == 0 {
		return frames
	}
	out := make([]string, len(frames))
	for i, frame := range frames {
		for _, pattern := range pathNormalizationPatterns {
			frame = pattern.ReplaceAllString(frame, "/[PATH]/")
		}
		out[i] = frame
	}
	return out
}

// BeforeSend returns a callback applying s to each notice.
func (s *Scrubber) BeforeSend() BeforeSend {
	return func(n *Notice) bool {
		n.Message = s.ScrubMessage(n.Message)
		n.Backtrace = s.ScrubBacktrace(n.Backtrace)
		return true
	}
}

var defaultScrubber = &Scrubber{patterns: messageScrubPatterns}

// ScrubMessages returns a callback scrubbing notices with the built-in patterns.
func ScrubMessages() BeforeSend {
	return defaultScrubber.BeforeSend()
}

// notice.go defines the canonical error report and its wire payload.

package errwatch

import (
	"encoding/json"
	"fmt"
	"maps"
	"runtime"
	"time"
)

const (
	// NotifierName identifies this library in the payload notifier block.
	NotifierName = "errwatch-go"

	// Version is the library version reported in the notifier block.
	Version = "0.4.0"

	// DefaultErrorClass is the class of notices built from plain messages.
	DefaultErrorClass = "Notice"

	// occurredAtLayout is UTC ISO-8601 with second precision.
	occurredAtLayout = "2006-01-02T15:04:05Z"
)

// Breadcrumb is one application event leading up to a notice.
type Breadcrumb struct {
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Notice is a single error report. Before-send callbacks receive the live
// Notice and may change any field; after that the delivery path owns it.
type Notice struct {
	// ID is a unique identifier for this notice (UUID).
	ID string

	// ErrorClass names the error type. Required at send time.
	ErrorClass string

	// Message is the human-readable error message.
	Message string

	// Backtrace holds frame descriptors, innermost first.
	Backtrace []string

	// Fingerprint is an optional custom grouping key.
	Fingerprint string

	// Tags are ordered and unique.
	Tags []string

	// Context holds arbitrary JSON-compatible values.
	Context map[string]any

	// Request describes the request being served, if any.
	Request map[string]any

	// User describes the affected user, if any.
	User map[string]any

	// Breadcrumbs lists events leading up to the notice, oldest first.
	Breadcrumbs []Breadcrumb

	// Environment is injected into the serialized context.
	Environment string

	// OccurredAt is set when the notice is constructed.
	OccurredAt time.Time
}

// Payload is the JSON document sent to the ingestion endpoint.
type Payload struct {
	ID          string           `json:"id"`
	OccurredAt  string           `json:"occurred_at"`
	Error       PayloadError     `json:"error"`
	Context     map[string]any   `json:"context"`
	Request     map[string]any   `json:"request"`
	User        map[string]any   `json:"user"`
	Breadcrumbs []map[string]any `json:"breadcrumbs"`
	Notifier    PayloadNotifier  `json:"notifier"`
}

// PayloadError is the "error" block of a Payload.
type PayloadError struct {
	Class       string   `json:"class"`
	Message     string   `json:"message"`
	Backtrace   []string `json:"backtrace"`
	Fingerprint string   `json:"fingerprint,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// PayloadNotifier describes the library that produced a Payload.
type PayloadNotifier struct {
	Name            string `json:"name"`
	Version         string `json:"version"`
	Language        string `json:"language"`
	LanguageVersion string `json:"language_version"`
}

// Payload builds the wire representation of n. Context, request, user, and
// breadcrumb metadata are passed through s; a nil Sanitizer filters nothing
// but still deep-copies and truncates.
func (n *Notice) Payload(s *Sanitizer) Payload {
	if s == nil {
		s = NewSanitizer(nil)
	}

	ctx := make(map[string]any, len(n.Context)+1)
	maps.Copy(ctx, n.Context)
	if n.Environment != "" {
		ctx["environment"] = n.Environment
	}

	class := n.ErrorClass
	if class == "" {
		class = DefaultErrorClass
	}

	backtrace := n.Backtrace
	if backtrace == nil {
		backtrace = []string{}
	}

	crumbs := make([]map[string]any, 0, len(n.Breadcrumbs))
	for _, b := range n.Breadcrumbs {
		crumbs = append(crumbs, map[string]any{
			"category":  b.Category,
			"message":   b.Message,
			"metadata":  s.SanitizeMap(b.Metadata),
			"timestamp": b.Timestamp.UTC().Format(occurredAtLayout),
		})
	}

	return Payload{
		ID:         n.ID,
		OccurredAt: n.OccurredAt.UTC().Format(occurredAtLayout),
		Error: PayloadError{
			Class:       class,
			Message:     n.Message,
			Backtrace:   backtrace,
			Fingerprint: n.Fingerprint,
			Tags:        n.Tags,
		},
		Context:     s.SanitizeMap(ctx),
		Request:     s.SanitizeMap(n.Request),
		User:        s.SanitizeMap(n.User),
		Breadcrumbs: crumbs,
		Notifier: PayloadNotifier{
			Name:            NotifierName,
			Version:         Version,
			Language:        "go",
			LanguageVersion: runtime.Version(),
		},
	}
}

// Encode serializes n to JSON through s.
func (n *Notice) Encode(s *Sanitizer) ([]byte, error) {
	return json.Marshal(n.Payload(s))
}

// DecodePayload parses a serialized notice. Senders that store notices in a
// structured form use it to read the fields back.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

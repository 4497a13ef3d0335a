// builder.go converts errors, messages, and records into notices.

package errwatch

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength is the longest message (in characters) kept on a notice.
const MaxMessageLength = 10000

// NoticeOptions carry call-site data for a single notice.
type NoticeOptions struct {
	// ErrorClass overrides the class of message notices.
	ErrorClass string
	// Fingerprint sets a custom grouping key.
	Fingerprint string
	// Tags are added to the notice.
	Tags []string
	// Context is merged over the ambient scope context.
	Context map[string]any
	// User replaces the ambient scope user.
	User map[string]any
	// Request describes the request being served.
	Request map[string]any
}

// NoticeOption sets a field of NoticeOptions.
type NoticeOption func(*NoticeOptions)

// Class overrides the error class of a message notice.
func Class(class string) NoticeOption {
	return func(o *NoticeOptions) { o.ErrorClass = class }
}

// Fingerprint sets the grouping key.
func Fingerprint(fingerprint string) NoticeOption {
	return func(o *NoticeOptions) { o.Fingerprint = fingerprint }
}

// Tags adds tags.
func Tags(tags ...string) NoticeOption {
	return func(o *NoticeOptions) { o.Tags = append(o.Tags, tags...) }
}

// Context merges values into the notice context.
func Context(values map[string]any) NoticeOption {
	return func(o *NoticeOptions) {
		if o.Context == nil {
			o.Context = make(map[string]any, len(values))
		}
		maps.Copy(o.Context, values)
	}
}

// User sets the notice user.
func User(user map[string]any) NoticeOption {
	return func(o *NoticeOptions) { o.User = user }
}

// Request sets the notice request.
func Request(request map[string]any) NoticeOption {
	return func(o *NoticeOptions) { o.Request = request }
}

func applyNoticeOptions(opts []NoticeOption) NoticeOptions {
	var o NoticeOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Record is a structured notice description.
type Record struct {
	ErrorClass  string
	Message     string
	Backtrace   []string
	Fingerprint string
	Tags        []string
}

// Builder constructs notices from raw input and ambient scope data.
type Builder struct {
	root          string
	environment   string
	captureSystem bool
	startTime     time.Time
	now           func() time.Time
}

// NewBuilder creates a Builder using the root path, environment, and system
// state settings of cfg.
func NewBuilder(cfg Config) *Builder {
	return &Builder{
		root:          cfg.Root,
		environment:   cfg.Environment,
		captureSystem: cfg.CaptureSystemState,
		startTime:     time.Now(),
		now:           time.Now,
	}
}

// Build dispatches on the shape of input: error, string, Record, *Record, or
// map[string]any. It reports false for any other input.
func (b *Builder) Build(ctx context.Context, input any, opts NoticeOptions) (*Notice, bool) {
	switch v := input.(type) {
	case nil:
		return nil, false
	case error:
		return b.FromError(ctx, v, opts), true
	case string:
		return b.FromMessage(ctx, v, opts), true
	case Record:
		return b.FromRecord(ctx, v, opts), true
	case *Record:
		if v == nil {
			return nil, false
		}
		return b.FromRecord(ctx, *v, opts), true
	case map[string]any:
		return b.FromRecord(ctx, recordFromMap(v), opts), true
	}
	return nil, false
}

// FromError builds a notice from err's class, message, and backtrace.
func (b *Builder) FromError(ctx context.Context, err error, opts NoticeOptions) *Notice {
	class, _ := Classify(err)
	return b.finish(ctx, Record{
		ErrorClass:  class,
		Message:     err.Error(),
		Backtrace:   backtraceOf(err),
		Fingerprint: opts.Fingerprint,
		Tags:        opts.Tags,
	}, opts)
}

// FromMessage builds a notice from a plain message. The class is
// DefaultErrorClass unless opts.ErrorClass is set; the backtrace is empty.
func (b *Builder) FromMessage(ctx context.Context, message string, opts NoticeOptions) *Notice {
	class := opts.ErrorClass
	if class == "" {
		class = DefaultErrorClass
	}
	return b.finish(ctx, Record{
		ErrorClass:  class,
		Message:     message,
		Fingerprint: opts.Fingerprint,
		Tags:        opts.Tags,
	}, opts)
}

// FromRecord builds a notice from explicit fields. Non-empty opts.Fingerprint
// and opts.Tags override the record's.
func (b *Builder) FromRecord(ctx context.Context, rec Record, opts NoticeOptions) *Notice {
	if opts.Fingerprint != "" {
		rec.Fingerprint = opts.Fingerprint
	}
	if len(opts.Tags) > 0 {
		rec.Tags = opts.Tags
	}
	if rec.ErrorClass == "" {
		rec.ErrorClass = opts.ErrorClass
	}
	return b.finish(ctx, rec, opts)
}

// finish applies the shared post-processing to every entry point.
func (b *Builder) finish(ctx context.Context, rec Record, opts NoticeOptions) *Notice {
	scope, hasScope := ScopeFromContext(ctx)

	noticeCtx := map[string]any{}
	var user, request map[string]any
	var crumbs []Breadcrumb
	if hasScope {
		noticeCtx = scope.Context()
		if noticeCtx == nil {
			noticeCtx = map[string]any{}
		}
		user = scope.User()
		request = scope.Request()
		crumbs = scope.Breadcrumbs()
	}
	maps.Copy(noticeCtx, opts.Context)
	if opts.User != nil {
		user = maps.Clone(opts.User)
	}
	if opts.Request != nil {
		request = maps.Clone(opts.Request)
	}
	if request == nil {
		request = map[string]any{}
	}
	if b.captureSystem {
		noticeCtx["system"] = CaptureSystemState(b.startTime).asMap()
	}

	return &Notice{
		ID:          uuid.NewString(),
		ErrorClass:  rec.ErrorClass,
		Message:     truncateWithMarker(rec.Message, MaxMessageLength, "..."),
		Backtrace:   cleanBacktrace(rec.Backtrace, b.root),
		Fingerprint: rec.Fingerprint,
		Tags:        normalizeTags(rec.Tags),
		Context:     noticeCtx,
		Request:     request,
		User:        user,
		Breadcrumbs: crumbs,
		Environment: b.environment,
		OccurredAt:  b.now().UTC(),
	}
}

// recordFromMap reads string-keyed record fields.
func recordFromMap(m map[string]any) Record {
	var rec Record
	rec.ErrorClass = firstString(m, "error_class", "errorClass", "class")
	rec.Message = firstString(m, "message")
	rec.Fingerprint = firstString(m, "fingerprint")
	rec.Backtrace = stringSlice(m["backtrace"])
	rec.Tags = stringSlice(m["tags"])
	return rec
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
	return ""
}

func stringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	}
	return nil
}

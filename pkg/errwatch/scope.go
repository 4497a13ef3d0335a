// scope.go carries ambient notice data for one unit of work through
// context.Context.

package errwatch

import (
	"context"
	"maps"
	"sync"
	"time"
)

// Scope holds the context, user, request, and breadcrumbs attached to every notice
// built while the scope is in effect. Open one per request or job with
// WithScope; it goes away with the context. Safe for concurrent use.
type Scope struct {
	mu          sync.RWMutex
	context     map[string]any
	user        map[string]any
	request     map[string]any
	breadcrumbs breadcrumbBuffer
}

// NewScope creates an empty scope keeping up to DefaultMaxBreadcrumbs breadcrumbs.
func NewScope() *Scope {
	return NewScopeWithCapacity(DefaultMaxBreadcrumbs)
}

// NewScopeWithCapacity creates an empty scope keeping up to maxBreadcrumbs
// breadcrumbs. Zero disables breadcrumbs.
func NewScopeWithCapacity(maxBreadcrumbs int) *Scope {
	return &Scope{
		context:     map[string]any{},
		breadcrumbs: breadcrumbBuffer{maxSize: maxBreadcrumbs},
	}
}

type scopeKey struct{}

// WithScope returns a context carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFromContext returns the scope attached to ctx, if any.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}

// EnsureScope returns ctx and its scope, attaching a new scope when ctx has none.
func EnsureScope(ctx context.Context) (context.Context, *Scope) {
	if s, ok := ScopeFromContext(ctx); ok {
		return ctx, s
	}
	s := NewScope()
	return WithScope(ctx, s), s
}

// SetContext merges values into the scope context; later calls win.
func (s *Scope) SetContext(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.context, values)
}

// SetUser replaces the scope user.
func (s *Scope) SetUser(user map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = maps.Clone(user)
}

// SetRequest replaces the request description used when a notice has none.
func (s *Scope) SetRequest(request map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.request = maps.Clone(request)
}

// AddBreadcrumb records an event. A zero timestamp is set to now.
func (s *Scope) AddBreadcrumb(crumb Breadcrumb) {
	if crumb.Timestamp.IsZero() {
		crumb.Timestamp = time.Now()
	}
	crumb.Metadata = maps.Clone(crumb.Metadata)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.breadcrumbs.Add(crumb)
}

// Clear drops all context, user, and breadcrumbs.
func (s *Scope) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = map[string]any{}
	s.user = nil
	s.request = nil
	s.breadcrumbs.Reset()
}

// Context returns a shallow copy of the scope context.
func (s *Scope) Context() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.context)
}

// User returns a shallow copy of the scope user, or nil if none is set.
func (s *Scope) User() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.user)
}

// Request returns a shallow copy of the scope request, or nil if none is set.
func (s *Scope) Request() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.request)
}

// Breadcrumbs returns the recorded breadcrumbs, oldest first.
func (s *Scope) Breadcrumbs() []Breadcrumb {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.breadcrumbs.GetAll()
}

// SetContext merges values into the scope attached to ctx. It reports false
// when ctx carries no scope.
func SetContext(ctx context.Context, values map[string]any) bool {
	s, ok := ScopeFromContext(ctx)
	if ok {
		s.SetContext(values)
	}
	return ok
}

// SetUser sets the user on the scope attached to ctx. It reports false when
// ctx carries no scope.
func SetUser(ctx context.Context, user map[string]any) bool {
	s, ok := ScopeFromContext(ctx)
	if ok {
		s.SetUser(user)
	}
	return ok
}

// AddBreadcrumb records a breadcrumb on the scope attached to ctx. It reports
// false when ctx carries no scope.
func AddBreadcrumb(ctx context.Context, category, message string, metadata map[string]any) bool {
	s, ok := ScopeFromContext(ctx)
	if ok {
		s.AddBreadcrumb(Breadcrumb{Category: category, Message: message, Metadata: metadata})
	}
	return ok
}

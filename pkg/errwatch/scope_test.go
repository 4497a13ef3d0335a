package errwatch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreadcrumbBuffer_EvictsOldest(t *testing.T) {
	buf := &breadcrumbBuffer{maxSize: 3}
	for i := 1; i <= 5; i++ {
		buf.Add(Breadcrumb{Message: fmt.Sprint(i)})
	}

	all := buf.GetAll()
	require.Len(t, all, 3)
	assert.Equal(t, "3", all[0].Message)
	assert.Equal(t, "4", all[1].Message)
	assert.Equal(t, "5", all[2].Message)
}

func TestBreadcrumbBuffer_PartialAndReset(t *testing.T) {
	buf := &breadcrumbBuffer{maxSize: 3}
	assert.Empty(t, buf.GetAll())

	buf.Add(Breadcrumb{Message: "a"})
	buf.Add(Breadcrumb{Message: "b"})
	all := buf.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Message)

	buf.Reset()
	assert.Empty(t, buf.GetAll())
}

func TestBreadcrumbBuffer_ZeroCapacity(t *testing.T) {
	buf := &breadcrumbBuffer{}
	buf.Add(Breadcrumb{Message: "a"})
	assert.Empty(t, buf.GetAll())
}

func TestScope_ContextMergesAndCopies(t *testing.T) {
	s := NewScope()
	s.SetContext(map[string]any{"a": 1, "b": 2})
	s.SetContext(map[string]any{"b": 3})

	got := s.Context()
	assert.Equal(t, map[string]any{"a": 1, "b": 3}, got)

	got["a"] = 100
	assert.Equal(t, 1, s.Context()["a"])
}

func TestScope_UserAndRequestCopied(t *testing.T) {
	s := NewScope()
	assert.Nil(t, s.User())
	assert.Nil(t, s.Request())

	user := map[string]any{"id": "u1"}
	s.SetUser(user)
	user["id"] = "changed"
	assert.Equal(t, "u1", s.User()["id"])

	s.SetRequest(map[string]any{"url": "/"})
	assert.Equal(t, map[string]any{"url": "/"}, s.Request())
}

func TestScope_AddBreadcrumbSetsTimestamp(t *testing.T) {
	s := NewScope()
	meta := map[string]any{"k": "v"}
	s.AddBreadcrumb(Breadcrumb{Category: "c", Message: "m", Metadata: meta})
	meta["k"] = "changed"

	crumbs := s.Breadcrumbs()
	require.Len(t, crumbs, 1)
	assert.False(t, crumbs[0].Timestamp.IsZero())
	assert.Equal(t, "v", crumbs[0].Metadata["k"])
}

func TestScope_Clear(t *testing.T) {
	s := NewScope()
	s.SetContext(map[string]any{"a": 1})
	s.SetUser(map[string]any{"id": 1})
	s.SetRequest(map[string]any{"url": "/"})
	s.AddBreadcrumb(Breadcrumb{Message: "m"})

	s.Clear()

	assert.Empty(t, s.Context())
	assert.Nil(t, s.User())
	assert.Nil(t, s.Request())
	assert.Empty(t, s.Breadcrumbs())
}

func TestScope_Capacity(t *testing.T) {
	s := NewScopeWithCapacity(2)
	for i := range 5 {
		s.AddBreadcrumb(Breadcrumb{Message: fmt.Sprint(i)})
	}
	crumbs := s.Breadcrumbs()
	require.Len(t, crumbs, 2)
	assert.Equal(t, "3", crumbs[0].Message)
	assert.Equal(t, "4", crumbs[1].Message)

	s = NewScopeWithCapacity(0)
	s.AddBreadcrumb(Breadcrumb{Message: "x"})
	assert.Empty(t, s.Breadcrumbs())
}

func TestScope_ContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.False(t, SetContext(ctx, map[string]any{"a": 1}))
	assert.False(t, SetUser(ctx, map[string]any{"id": 1}))
	assert.False(t, AddBreadcrumb(ctx, "c", "m", nil))
	_, ok := ScopeFromContext(ctx)
	assert.False(t, ok)

	ctx, scope := EnsureScope(ctx)
	assert.True(t, SetContext(ctx, map[string]any{"a": 1}))
	assert.True(t, SetUser(ctx, map[string]any{"id": 1}))
	assert.True(t, AddBreadcrumb(ctx, "c", "m", nil))

	assert.Equal(t, map[string]any{"a": 1}, scope.Context())
	assert.Equal(t, map[string]any{"id": 1}, scope.User())
	assert.Len(t, scope.Breadcrumbs(), 1)

	again, same := EnsureScope(ctx)
	assert.Equal(t, ctx, again)
	assert.Same(t, scope, same)
}

func TestScope_IsolatedPerContext(t *testing.T) {
	base := context.Background()
	ctxA := WithScope(base, NewScope())
	ctxB := WithScope(base, NewScope())

	SetContext(ctxA, map[string]any{"who": "a"})
	SetContext(ctxB, map[string]any{"who": "b"})

	a, _ := ScopeFromContext(ctxA)
	b, _ := ScopeFromContext(ctxB)
	assert.Equal(t, "a", a.Context()["who"])
	assert.Equal(t, "b", b.Context()["who"])
}

func TestScope_NilContext(t *testing.T) {
	//nolint:staticcheck // nil context is handled explicitly
	_, ok := ScopeFromContext(nil)
	assert.False(t, ok)
}

func TestScope_ConcurrentUse(t *testing.T) {
	s := NewScope()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 50 {
				s.SetContext(map[string]any{fmt.Sprint(i): j})
				s.AddBreadcrumb(Breadcrumb{Message: "m"})
				_ = s.Context()
				_ = s.Breadcrumbs()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, s.Context(), 20)
	assert.Len(t, s.Breadcrumbs(), DefaultMaxBreadcrumbs)
}

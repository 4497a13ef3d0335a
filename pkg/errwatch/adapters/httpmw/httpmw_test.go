package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strongdm/errwatch/pkg/errwatch"
	"github.com/strongdm/errwatch/pkg/errwatch/senders/capture"
)

func newClient(t *testing.T) (*errwatch.Client, *capture.Sender) {
	t.Helper()
	sender := capture.New()
	c, err := errwatch.New(errwatch.Config{
		APIKey:   "k",
		Endpoint: "https://errors.example.com",
		SyncMode: true,
	}, errwatch.WithSender(sender))
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)
	return c, sender
}

func TestMiddleware_RequestID(t *testing.T) {
	c, _ := newClient(t)
	h := Middleware(c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-1", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36, "generated IDs are UUIDs")
}

func TestMiddleware_ScopeCarriesRequest(t *testing.T) {
	c, sender := newClient(t)
	h := Middleware(c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errwatch.AddBreadcrumb(r.Context(), "db", "query", nil)
		c.Notify(r.Context(), errwatch.NewError("DBError", "down"))
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	req := httptest.NewRequest(http.MethodPost, "/orders?id=7", nil)
	req.Header.Set(RequestIDHeader, "req-2")
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("User-Agent", "probe/1.0")
	h.ServeHTTP(httptest.NewRecorder(), req)

	got := sender.Notices()
	require.Len(t, got, 1)
	p := got[0]
	assert.Equal(t, "req-2", p.Context["request_id"])
	assert.Equal(t, http.MethodPost, p.Request["method"])
	assert.Equal(t, "/orders", p.Request["path"])
	assert.Equal(t, "/orders?id=7", p.Request["url"])
	assert.Equal(t, "probe/1.0", p.Request["user_agent"])
	headers := p.Request["headers"].(map[string]any)
	assert.Equal(t, errwatch.FilteredMarker, headers["Authorization"])
	require.Len(t, p.Breadcrumbs, 1)
	assert.Equal(t, "query", p.Breadcrumbs[0]["message"])
}

func TestMiddleware_Panic(t *testing.T) {
	c, sender := newClient(t)
	h := Middleware(c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("handler bug")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	got := sender.Notices()
	require.Len(t, got, 1)
	assert.Equal(t, errwatch.PanicClass, got[0].Error.Class)
	assert.Equal(t, "handler bug", got[0].Error.Message)
	assert.Contains(t, got[0].Error.Tags, "panic")
	assert.Equal(t, "/boom", got[0].Request["path"])
}

func TestMiddleware_AbortHandlerRepanics(t *testing.T) {
	c, sender := newClient(t)
	h := Middleware(c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, 0, sender.Len())
}

func TestMiddleware_NoScopeLeak(t *testing.T) {
	c, _ := newClient(t)
	var seen []*errwatch.Scope
	h := Middleware(c)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := errwatch.ScopeFromContext(r.Context())
		require.True(t, ok)
		seen = append(seen, s)
	}))

	for range 2 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1])

	_, ok := errwatch.ScopeFromContext(context.Background())
	assert.False(t, ok)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "10.0.0.1", "X-Real-IP": "10.0.0.2"}, "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.2"}, "10.0.0.2"},
		{"remote addr", nil, "192.0.2.1:1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}

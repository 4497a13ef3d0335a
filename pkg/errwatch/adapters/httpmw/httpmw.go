// Package httpmw provides net/http middleware that opens an errwatch Scope
// per request and reports handler panics.
package httpmw

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/strongdm/errwatch/pkg/errwatch"
)

// RequestIDHeader is read from requests and echoed on responses.
const RequestIDHeader = "X-Request-ID"

// Middleware attaches a Scope describing the request to the request context.
// Notices built from that context carry the request and its ID. A panic in
// next is reported synchronously and answered with 500; it is not re-raised.
func Middleware(client *errwatch.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			scope := errwatch.NewScope()
			scope.SetRequest(RequestInfo(r))
			scope.SetContext(map[string]any{"request_id": reqID})
			r = r.WithContext(errwatch.WithScope(r.Context(), scope))

			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					errwatch.ReportPanic(r.Context(), client, rec)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestInfo describes r for a notice. Headers are included and left to the
// client's filter keys to redact.
func RequestInfo(r *http.Request) map[string]any {
	headers := make(map[string]any, len(r.Header))
	for k, v := range r.Header {
		if len(v) == 1 {
			headers[k] = v[0]
			continue
		}
		headers[k] = append([]string(nil), v...)
	}
	return map[string]any{
		"method":     r.Method,
		"url":        r.URL.String(),
		"path":       r.URL.Path,
		"remote_ip":  clientIP(r),
		"user_agent": r.UserAgent(),
		"headers":    headers,
	}
}

// clientIP extracts client IP from request
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

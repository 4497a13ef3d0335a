// Package ginmw provides gin middleware that opens an errwatch Scope per
// request, reports panics, and reports errors attached with c.Error.
package ginmw

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/strongdm/errwatch/pkg/errwatch"
	"github.com/strongdm/errwatch/pkg/errwatch/adapters/httpmw"
)

// Middleware returns the errwatch handler. Register it before handlers whose
// errors should be reported. Panics abort with 500 and are not re-raised.
func Middleware(client *errwatch.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(httpmw.RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(httpmw.RequestIDHeader, reqID)

		scope := errwatch.NewScope()
		request := httpmw.RequestInfo(c.Request)
		request["remote_ip"] = c.ClientIP()
		if route := c.FullPath(); route != "" {
			request["route"] = route
		}
		scope.SetRequest(request)
		scope.SetContext(map[string]any{"request_id": reqID})
		c.Request = c.Request.WithContext(errwatch.WithScope(c.Request.Context(), scope))

		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				errwatch.ReportPanic(c.Request.Context(), client, rec)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()

		c.Next()

		if client == nil {
			return
		}
		for _, ginErr := range c.Errors {
			client.Notify(c.Request.Context(), ginErr.Err,
				errwatch.Tags("gin"),
				errwatch.Context(map[string]any{"status": c.Writer.Status()}),
			)
		}
	}
}

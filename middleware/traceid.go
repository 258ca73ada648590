package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TraceIDHeader carries a caller-supplied correlation id. Agents that poll
// a run after receiving its webhook send the same id on both requests.
const TraceIDHeader = "X-Trace-ID"

const traceIDKey = "trace_id"

// TraceID assigns every request a correlation id: the caller's header value
// when present, a fresh UUID otherwise. The id is echoed back in the
// response header and made available to handlers through GetTraceID.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(TraceIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(traceIDKey, id)
		c.Header(TraceIDHeader, id)
		c.Next()
	}
}

// GetTraceID returns the request's correlation id, or "" outside the
// TraceID middleware.
func GetTraceID(c *gin.Context) string {
	id, _ := c.Get(traceIDKey)
	s, _ := id.(string)
	return s
}

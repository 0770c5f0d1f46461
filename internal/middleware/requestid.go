package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header used to propagate the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID string is
	// stored so handlers and other middleware can retrieve it without reading
	// the response header.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware returns a Gin handler that tags every request with a
// UUID propagated as the X-Request-ID header.
//
// An inbound X-Request-ID is reused only when it parses as a UUID — the
// warehouse gateway sets one, but handheld scanners talk to the API directly
// and some firmware fills the header with device serials or other junk, which
// must not leak into structured logs or audit metadata. Anything that is not
// a UUID is replaced with a fresh v4.
//
// The identifier is stored in gin.Context under RequestIDKey:
//
//	id, _ := c.Get(middleware.RequestIDKey)
//
// and echoed back in the response header so scanner clients and the
// operations dashboard can correlate a request with server-side log entries.
// Register this middleware before the logging and audit middleware so every
// downstream record carries the ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/taskdeck/taskdeck-backend/internal/logging"
)

const RequestIDHeader = "X-Request-Id"

// RequestID ensures every request has a request id.
// An incoming X-Request-Id is reused, otherwise a new one is generated. The id is
// stored on the gin and request contexts, echoed in the response and logged with
// the access line.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}

		c.Set("request_id", rid)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), rid))
		c.Writer.Header().Set(RequestIDHeader, rid)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logging.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  status,
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		})
		switch {
		case status >= 500:
			entry.Error("request")
		case status >= 400:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}

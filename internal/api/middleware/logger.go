package middleware

import (
	"time"

	"training-enrollment/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const HeaderRequestID = "X-Request-ID"

// Logger assigns a request id and logs one line per request with the
// authenticated caller, if any.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		c.Next()

		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path += "?" + raw
		}
		status := c.Writer.Status()

		fields := logrus.Fields{
			"request_id":  requestID,
			"status_code": status,
			"latency":     time.Since(start),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		}
		if route := c.FullPath(); route != "" {
			fields["route"] = route
		}
		if requester, ok := RequesterFrom(c); ok {
			fields["user_id"] = requester.UserID
			fields["role"] = requester.Role
		}

		entry := logger.WithFields(fields)
		switch {
		case len(c.Errors) > 0 && status >= 500:
			entry.WithField("error", c.Errors.String()).Error("Request failed")
		case len(c.Errors) > 0:
			entry.WithField("error", c.Errors.String()).Warn("Request rejected")
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed")
		}
	}
}

// Package middleware contains gin middleware shared across the broker's HTTP surface.
package middleware

import (
	"github.com/google/uuid"
	"github.com/soundstage/broker/internal/v1/logging"

	"github.com/gin-gonic/gin"
)

// HeaderXCorrelationID is the header key carrying the correlation id.
const HeaderXCorrelationID = "X-Correlation-ID"

// CorrelationID assigns (or propagates) a correlation id for every request, so that the
// ServeWs handler and every log line emitted while serving a connection can be tied
// together.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderXCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Header(HeaderXCorrelationID, correlationID)
		c.Set(string(logging.CorrelationIDKey), correlationID)

		c.Next()
	}
}

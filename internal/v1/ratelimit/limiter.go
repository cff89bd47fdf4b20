// Package ratelimit implements the broker's WebSocket connection admission limiter.
//
// This is distinct from the per-frame bucket each broker.Session keeps once connected
// (see internal/v1/broker/ratelimit.go) — that one implements the exact fixed-window
// counter the wire protocol's rate-limiting invariants require. This package throttles
// the cheaper, higher-level question of "how many new connections is this IP allowed to
// open" by wrapping ulule/limiter around gin.
package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/soundstage/broker/internal/v1/logging"
	"github.com/soundstage/broker/internal/v1/metrics"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// ConnectionLimiter throttles WebSocket upgrade attempts per client IP.
type ConnectionLimiter struct {
	limiter *limiter.Limiter
}

// NewConnectionLimiter builds a ConnectionLimiter from a ulule/limiter formatted rate
// string (e.g. "20-M" for 20 per minute). The store is always in-process memory: the
// broker is a single process (multi-node coordination is out of scope), so there is no
// shared state to back with Redis.
func NewConnectionLimiter(formattedRate string) (*ConnectionLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(formattedRate)
	if err != nil {
		return nil, fmt.Errorf("invalid ws connect rate %q: %w", formattedRate, err)
	}

	store := memory.NewStore()
	return &ConnectionLimiter{limiter: limiter.New(store, rate)}, nil
}

// Allow reports whether a new connection from ip should be admitted. On failure to reach
// the limiter store it fails open — availability over strictness.
func (c *ConnectionLimiter) Allow(ctx *gin.Context, ip string) bool {
	result, err := c.limiter.Get(ctx.Request.Context(), ip)
	if err != nil {
		logging.Error(ctx.Request.Context(), "connection limiter store failed", zap.Error(err))
		return true
	}

	if result.Reached {
		metrics.ConnectionsRejectedTotal.WithLabelValues("ip").Inc()
		return false
	}
	return true
}

// RejectResponse writes the standard 429 response for a rejected connection attempt.
func RejectResponse(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many connection attempts"})
}

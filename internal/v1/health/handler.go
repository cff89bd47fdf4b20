// Package health implements the broker's liveness/readiness HTTP surface.
package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegistrySnapshotter reports broker-internal state for the readiness check. The Hub
// satisfies this trivially; it never blocks and never touches the network, so readiness
// here really means "the room registry mutex is not wedged."
type RegistrySnapshotter interface {
	RoomCount() int
}

// Handler serves /health and /health/ready.
type Handler struct {
	registry RegistrySnapshotter
}

// NewHandler constructs a Handler. registry may be nil, in which case readiness always
// reports healthy (used before the hub has finished starting up).
func NewHandler(registry RegistrySnapshotter) *Handler {
	return &Handler{registry: registry}
}

// LivenessResponse is the wire shape served at /health.
type LivenessResponse struct {
	Status string `json:"status"`
}

// ReadinessResponse reports the broker's internal checks.
type ReadinessResponse struct {
	Status    string         `json:"status"`
	Rooms     int            `json:"rooms"`
	Timestamp string         `json:"timestamp"`
	Checks    map[string]any `json:"checks,omitempty"`
}

// Liveness is a side-channel probe: it never touches room state and always responds
// positively while the process is serving.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{Status: "ok"})
}

// Readiness reports room-registry health. There are no external dependencies (no
// database, no message broker) to probe in this broker, so it always answers 200 with
// status "ready" and the current room count; a wedged registry mutex shows up as a
// request that does not return, not as a not-ready status.
func (h *Handler) Readiness(c *gin.Context) {
	rooms := 0
	if h.registry != nil {
		rooms = h.registry.RoomCount()
	}

	c.JSON(http.StatusOK, ReadinessResponse{
		Status:    "ready",
		Rooms:     rooms,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

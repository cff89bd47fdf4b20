// Package metrics declares the broker's prometheus collectors.
//
// Naming convention: namespace_subsystem_name.
//   - namespace: broker (application-level grouping)
//   - subsystem: websocket, room, router, invite, rate_limit (feature-level grouping)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks the current number of open WebSocket connections.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "broker",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of non-empty rooms.
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "broker",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomMembers tracks the member count of each room.
	RoomMembers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "broker",
		Subsystem: "room",
		Name:      "members_count",
		Help:      "Number of members in each room",
	}, []string{"room_id"})

	// MessagesTotal tracks every inbound message the router dispatched, by type and outcome.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "broker",
		Subsystem: "router",
		Name:      "messages_total",
		Help:      "Total inbound messages processed, by type and outcome",
	}, []string{"type", "outcome"})

	// MessageProcessingDuration tracks router handler latency.
	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "broker",
		Subsystem: "router",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing an inbound message",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5},
	}, []string{"type"})

	// InvitesActive tracks invites currently pending in the ledger.
	InvitesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "broker",
		Subsystem: "invite",
		Name:      "active",
		Help:      "Current number of pending invites",
	})

	// InvitesResolvedTotal tracks how invites were resolved.
	InvitesResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "broker",
		Subsystem: "invite",
		Name:      "resolved_total",
		Help:      "Total invites resolved, by resolution",
	}, []string{"resolution"}) // accepted, declined, cancelled, expired, sender_disconnected, target_disconnected

	// RateLimitExceededTotal tracks frames dropped by the per-connection rate limiter.
	RateLimitExceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "broker",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total inbound frames dropped for exceeding the per-connection rate limit",
	})

	// ConnectionsRejectedTotal tracks WebSocket upgrades rejected by the connection admission limiter.
	ConnectionsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "broker",
		Subsystem: "rate_limit",
		Name:      "connections_rejected_total",
		Help:      "Total WebSocket connection attempts rejected by the admission limiter",
	}, []string{"reason"})
)

// IncConnection increments the active connection gauge.
func IncConnection() { ActiveConnections.Inc() }

// DecConnection decrements the active connection gauge.
func DecConnection() { ActiveConnections.Dec() }

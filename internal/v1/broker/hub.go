package broker

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/soundstage/broker/internal/v1/logging"
	"github.com/soundstage/broker/internal/v1/metrics"
	"github.com/soundstage/broker/internal/v1/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config carries the broker's runtime-tunable constants, resolved once at startup from
// the process environment.
type Config struct {
	AllowedOrigins  []string
	InviteTimeout   time.Duration
	RateLimitWindow time.Duration
	RateLimitMax    int
	SweepInterval   time.Duration
}

// Hub is the Connection Supervisor: it accepts inbound connections, upgrades them,
// admits or rejects them by IP, and binds each to a Session driven by its own read/write
// pumps. It also owns the Router (and through it, the Registry and Ledger) and the
// periodic sweep ticker that backstops per-invite timers and inline room cleanup.
type Hub struct {
	cfg         Config
	router      *Router
	connLimiter *ratelimit.ConnectionLimiter

	upgrader websocket.Upgrader

	sessionsMu sync.Mutex
	sessions   map[*Session]struct{}

	sweepTicker *time.Ticker
	stopSweep   chan struct{}
	sweepOnce   sync.Once
}

// NewHub wires a Hub ready to serve connections. connLimiter may be nil to disable
// connection-rate admission control (e.g. in tests).
func NewHub(cfg Config, connLimiter *ratelimit.ConnectionLimiter) *Hub {
	router := NewRouter(NewRegistry(), cfg.InviteTimeout)

	h := &Hub{
		cfg:         cfg,
		router:      router,
		connLimiter: connLimiter,
		sessions:    make(map[*Session]struct{}),
		stopSweep:   make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: h.checkOrigin,
	}
	return h
}

// RoomCount satisfies health.RegistrySnapshotter.
func (h *Hub) RoomCount() int { return h.router.Registry().RoomCount() }

// checkOrigin implements the WebSocket upgrader's origin policy. A missing Origin header
// is allowed (non-browser clients, and local testing); otherwise the scheme+host must
// match one of the configured allowed origins.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range h.cfg.AllowedOrigins {
		allowedURL, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if originURL.Scheme == allowedURL.Scheme && originURL.Host == allowedURL.Host {
			return true
		}
	}
	return false
}

// ServeWs is the gin handler for the WebSocket upgrade endpoint. It admits the connection
// (IP rate limit, origin check), upgrades it, and starts its read/write pumps; from that
// point the Session is unbound until its first successful register.
func (h *Hub) ServeWs(c *gin.Context) {
	if h.connLimiter != nil && !h.connLimiter.Allow(c, c.ClientIP()) {
		ratelimit.RejectResponse(c)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error(c.Request.Context(), "failed to upgrade websocket", zap.Error(err))
		return
	}

	baseCtx := c.Request.Context()
	if correlationID, ok := c.Get(string(logging.CorrelationIDKey)); ok {
		baseCtx = context.WithValue(baseCtx, logging.CorrelationIDKey, correlationID)
	}

	session := newSessionWithContext(baseCtx, conn, h.router, h.cfg.RateLimitWindow, h.cfg.RateLimitMax)
	h.addSession(session)
	defer h.removeSession(session)
	metrics.IncConnection()

	go func() {
		defer metrics.DecConnection()
		session.writePump()
	}()
	session.readPump()
}

func (h *Hub) addSession(s *Session) {
	h.sessionsMu.Lock()
	defer h.sessionsMu.Unlock()
	h.sessions[s] = struct{}{}
}

func (h *Hub) removeSession(s *Session) {
	h.sessionsMu.Lock()
	defer h.sessionsMu.Unlock()
	delete(h.sessions, s)
}

// StartSweep launches the periodic ledger/registry sweep goroutine.
// It is a safety net, not the primary expiry mechanism — see Ledger and Router.sweep.
func (h *Hub) StartSweep() {
	h.sweepTicker = time.NewTicker(h.cfg.SweepInterval)
	go func() {
		for {
			select {
			case <-h.sweepTicker.C:
				h.router.sweep()
			case <-h.stopSweep:
				return
			}
		}
	}()
}

// Shutdown stops the sweep goroutine and closes every live session. A hijacked WebSocket
// connection is no longer tracked by net/http once Upgrade succeeds, so the HTTP server's
// own graceful shutdown cannot reach it — Hub has to close each Session itself.
func (h *Hub) Shutdown(_ context.Context) error {
	h.sweepOnce.Do(func() {
		if h.sweepTicker != nil {
			h.sweepTicker.Stop()
		}
		close(h.stopSweep)
	})

	h.sessionsMu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessionsMu.Unlock()

	for _, s := range sessions {
		s.shutdown()
	}
	return nil
}

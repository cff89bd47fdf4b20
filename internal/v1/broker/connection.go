package broker

import (
	"context"
	"sync"
	"time"

	"github.com/soundstage/broker/internal/v1/logging"
	"github.com/soundstage/broker/internal/v1/metrics"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// wsConnection is the subset of *websocket.Conn the broker depends on, so tests can
// substitute a fake without opening a real socket.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
}

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// Session is a single connection's Connection Supervisor state: the socket, its outbound
// queue, and (once register succeeds) the clientId/roomId it is bound to. A Session
// begins unbound — no room, no clientId — and may only exchange register/ping/error
// frames until the router binds it.
//
// A Member holds no reference back to its Session (see Room); the Session is the only
// side that points the other way, and only transiently, by asking its Room for the live
// connection by clientId when broadcasting.
type Session struct {
	conn   wsConnection
	send   chan []byte
	router *Router

	// baseCtx carries the correlation id assigned at the WebSocket upgrade; every log
	// call for this connection's lifetime derives from it so its lines can be tied back
	// to that one upgrade request.
	baseCtx context.Context

	roomID   RoomID
	clientID ClientID
	bound    bool

	bucket *frameBucket

	closeOnce sync.Once
}

// newSession constructs an unbound Session ready to be handed to readPump/writePump.
// baseCtx should carry the connection's correlation id (see logging.CorrelationIDKey);
// pass context.Background() where none applies, such as in tests.
func newSession(conn wsConnection, router *Router, rateWindow time.Duration, rateMax int) *Session {
	return newSessionWithContext(context.Background(), conn, router, rateWindow, rateMax)
}

func newSessionWithContext(baseCtx context.Context, conn wsConnection, router *Router, rateWindow time.Duration, rateMax int) *Session {
	return &Session{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		router:  router,
		baseCtx: baseCtx,
		bucket:  newFrameBucket(rateWindow, rateMax),
	}
}

// logFields returns the room/client identity this session is currently bound to, for
// attaching to a log line directly rather than smuggling it through the context.
func (s *Session) logFields() []zap.Field {
	if !s.bound {
		return nil
	}
	return []zap.Field{zap.String("room_id", string(s.roomID)), zap.String("client_id", string(s.clientID))}
}

// Send marshals v and enqueues it for delivery, non-blocking. A full queue means a slow
// or dead peer; the frame is dropped rather than stalling the caller (see the write
// fan-out design note: slow peers must never block unrelated sessions).
func (s *Session) Send(ctx context.Context, v any) {
	data, err := encodeMessage(v)
	if err != nil {
		logging.Error(ctx, "failed to encode outbound message", append(s.logFields(), zap.Error(err))...)
		return
	}

	select {
	case s.send <- data:
	default:
		logging.Warn(ctx, "session send queue full, dropping frame", s.logFields()...)
	}
}

// readPump owns the only read on conn. Frames are processed one at a time, in arrival
// order, including their synchronous effects, before the next read begins.
func (s *Session) readPump() {
	defer func() {
		s.router.handleDisconnect(s.baseCtx, s)
		s.shutdown()
	}()

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		ctx := s.baseCtx
		if !s.bucket.allow(time.Now()) {
			metrics.RateLimitExceededTotal.Inc()
			s.Send(ctx, newError("Rate limit exceeded, please slow down"))
			continue
		}

		frame, err := decodeFrame(data)
		if err != nil {
			s.Send(ctx, newError("Invalid JSON"))
			continue
		}

		s.router.dispatch(ctx, s, frame)
	}
}

// writePump owns the only write on conn, draining the per-session outbound queue until
// it is closed by shutdown.
func (s *Session) writePump() {
	for message := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			s.shutdown()
			return
		}
	}
}

// shutdown closes the send queue and the socket exactly once, unblocking both pumps
// regardless of which one observed the failure first. This is what keeps a disconnected
// Session from leaking either goroutine.
func (s *Session) shutdown() {
	s.closeOnce.Do(func() {
		close(s.send)
		s.conn.Close()
	})
}

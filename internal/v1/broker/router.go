package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/soundstage/broker/internal/v1/metrics"
)

// Router is the message router/validator and disconnect-protocol owner: the Connection
// Supervisor hands it every decoded frame and every closed Session, and it is the only
// thing that mutates the Registry or Ledger in response.
type Router struct {
	registry  *Registry
	ledger    *Ledger
	inviteTTL time.Duration
}

// NewRouter wires a Router against a Registry and a fresh Ledger whose expiry callback
// routes back into this Router's own invite-expiry handling.
func NewRouter(registry *Registry, inviteTTL time.Duration) *Router {
	rt := &Router{registry: registry, inviteTTL: inviteTTL}
	rt.ledger = NewLedger(rt.handleInviteExpiry)
	return rt
}

// Registry exposes the Router's Room Registry, for the periodic sweep and health checks.
func (rt *Router) Registry() *Registry { return rt.registry }

// dispatch is the router's single entry point. Unknown types are ignored without error,
// for forward compatibility with future client messages. A connection that
// has not yet registered may only reach register or ping; anything else from it is
// likewise ignored, since no state exists yet to act on.
func (rt *Router) dispatch(ctx context.Context, s *Session, frame *inboundFrame) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.MessagesTotal.WithLabelValues(frame.Type, outcome).Inc()
		metrics.MessageProcessingDuration.WithLabelValues(frame.Type).Observe(time.Since(start).Seconds())
	}()

	if !s.bound && frame.Type != typeRegister && frame.Type != typePing {
		outcome = "unbound"
		return
	}

	switch frame.Type {
	case typeRegister:
		rt.handleRegister(ctx, s, frame)
	case typeInvite:
		rt.handleInvite(ctx, s, frame)
	case typeInviteResponse:
		rt.handleInviteResponse(ctx, s, frame)
	case typeInviteCancel:
		rt.handleInviteCancel(ctx, s, frame)
	case typeSignal:
		rt.handleSignal(ctx, s, frame)
	case typePlayCommand:
		rt.handlePlayCommand(ctx, s, frame)
	case typeLeave:
		rt.handleLeave(ctx, s, frame)
	case typePing:
		s.Send(ctx, newPong())
	default:
		outcome = "ignored"
	}
}

func (rt *Router) handleRegister(ctx context.Context, s *Session, frame *inboundFrame) {
	if !requireNonEmpty(frame.RoomID, frame.ClientID) {
		s.Send(ctx, newError("roomId and clientId are required"))
		return
	}
	if !ValidRoomID(frame.RoomID) {
		s.Send(ctx, newError("roomId must be 4-12 uppercase letters/digits"))
		return
	}
	if !validRole(frame.Role) {
		s.Send(ctx, newError("role must be idle or host"))
		return
	}

	role := RoleIdle
	if frame.Role != "" {
		role = Role(frame.Role)
	}

	room := rt.registry.getOrCreate(RoomID(frame.RoomID))
	member, displaced, err := room.register(s, ClientID(frame.ClientID), DisplayName(frame.DisplayName), role)
	if err != nil {
		s.Send(ctx, newError(err.Error()))
		return
	}

	// A re-register that silently replaces an existing connection gets a best-effort
	// error frame, then a hard close, so it can never again be reached
	// as this clientId's live connection.
	if displaced != nil && displaced != s {
		displaced.Send(ctx, newError("Replaced by a new connection for this clientId"))
		displaced.shutdown()
	}

	s.roomID = room.ID
	s.clientID = member.ClientID
	s.bound = true

	roster := room.RosterSnapshot()
	metrics.RoomMembers.WithLabelValues(string(room.ID)).Set(float64(room.MemberCount()))
	metrics.ActiveRooms.Set(float64(rt.registry.RoomCount()))

	s.Send(ctx, registeredMessage{
		Type:        typeRegistered,
		ClientID:    string(member.ClientID),
		DisplayName: string(member.DisplayName),
		Role:        string(member.Role),
		RoomID:      string(room.ID),
		Clients:     roster,
	})

	rt.broadcastExcept(ctx, room, member.ClientID, newClientsUpdated(roster))
}

func (rt *Router) handleInvite(ctx context.Context, s *Session, frame *inboundFrame) {
	if !requireNonEmpty(frame.RoomID, frame.From, frame.To) {
		s.Send(ctx, newError("roomId, from, and to are required"))
		return
	}

	room, ok := rt.registry.get(RoomID(frame.RoomID))
	if !ok {
		s.Send(ctx, newError("Room not found"))
		return
	}

	host := room.GetHost()
	if host == nil || host.ClientID != ClientID(frame.From) {
		s.Send(ctx, newError("Only the host may send an invite"))
		return
	}

	target := room.Member(ClientID(frame.To))
	if target == nil {
		s.Send(ctx, newError("Target client not found"))
		return
	}

	payload := frame.Payload
	if len(payload) == 0 {
		payload = defaultInvitePayload
	}

	// Replaces any invite already live for this pair rather than minting a second one
	// alongside it (at most one invite per from->to pair may be live at once). A superseded
	// invite leaves the pending-invite gauge here, since ReplacePair drops it silently.
	if rt.ledger.ByPair(room.ID, host.ClientID, target.ClientID) != nil {
		metrics.InvitesActive.Dec()
	}
	invite := rt.ledger.ReplacePair(room.ID, host.ClientID, target.ClientID, payload, rt.inviteTTL)

	targetSession := room.session(target.ClientID)
	if targetSession == nil {
		rt.ledger.Remove(invite.ID)
		s.Send(ctx, newError("Target client is not reachable"))
		return
	}
	metrics.InvitesActive.Inc()

	targetSession.Send(ctx, inviteMessage{
		Type:            typeInvite,
		InviteID:        invite.ID,
		From:            string(host.ClientID),
		FromDisplayName: string(host.DisplayName),
		Payload:         payload,
	})
	s.Send(ctx, inviteSentMessage{
		Type:          typeInviteSent,
		InviteID:      invite.ID,
		To:            string(target.ClientID),
		ToDisplayName: string(target.DisplayName),
	})
}

func (rt *Router) handleInviteResponse(ctx context.Context, s *Session, frame *inboundFrame) {
	if !requireNonEmpty(frame.RoomID, frame.From, frame.To) || frame.Accepted == nil {
		s.Send(ctx, newError("roomId, from, to, and accepted are required"))
		return
	}

	room, ok := rt.registry.get(RoomID(frame.RoomID))
	if !ok {
		return
	}

	// The sender ("from") is the invite's original target; the invite's "to" in the
	// request names the host it is replying to. A mismatch, a cancelled invite, or a
	// re-send after the pair already resolved all look the same here: no live invite, so
	// the response is stale and produces no role change.
	invite := rt.ledger.ByPair(room.ID, ClientID(frame.To), ClientID(frame.From))
	if invite == nil {
		return
	}
	rt.ledger.Remove(invite.ID)
	metrics.InvitesActive.Dec()

	accepted := *frame.Accepted
	responder := room.Member(ClientID(frame.From))

	resolution := "declined"
	if accepted {
		resolution = "accepted"
		if responder != nil {
			room.setRole(responder.ClientID, RoleSpeaker)
		}
	}
	metrics.InvitesResolvedTotal.WithLabelValues(resolution).Inc()

	responderName := ""
	if responder != nil {
		responderName = string(responder.DisplayName)
	}

	if hostSession := room.session(invite.From); hostSession != nil {
		hostSession.Send(ctx, inviteResponseMessage{
			Type:            typeInviteResponse,
			InviteID:        invite.ID,
			From:            string(invite.To),
			FromDisplayName: responderName,
			Accepted:        accepted,
		})
	}

	if accepted {
		rt.broadcastRoster(ctx, room)
	}
}

func (rt *Router) handleInviteCancel(ctx context.Context, s *Session, frame *inboundFrame) {
	if !requireNonEmpty(frame.InviteID, frame.From) {
		s.Send(ctx, newError("inviteId and from are required"))
		return
	}

	invite := rt.ledger.ByID(frame.InviteID)
	if invite == nil {
		// Already resolved (or never existed): idempotent no-op, per P5.
		return
	}
	if invite.From != ClientID(frame.From) {
		s.Send(ctx, newError("Only the inviting host may cancel this invite"))
		return
	}

	removed, ok := rt.ledger.Remove(invite.ID)
	if !ok {
		return
	}
	metrics.InvitesActive.Dec()
	metrics.InvitesResolvedTotal.WithLabelValues("cancelled").Inc()

	if room, ok := rt.registry.get(removed.RoomID); ok {
		if targetSession := room.session(removed.To); targetSession != nil {
			targetSession.Send(ctx, inviteCancelledMessage{Type: typeInviteCancelled, InviteID: removed.ID})
		}
	}
}

func (rt *Router) handleSignal(ctx context.Context, s *Session, frame *inboundFrame) {
	if !requireNonEmpty(frame.RoomID, frame.From, frame.To) {
		s.Send(ctx, newError("roomId, from, and to are required"))
		return
	}

	room, ok := rt.registry.get(RoomID(frame.RoomID))
	if !ok {
		s.Send(ctx, newError("Room not found"))
		return
	}

	// Both ends of a signal must be current members of the named room, not merely
	// reachable.
	if room.Member(ClientID(frame.From)) == nil || room.Member(ClientID(frame.To)) == nil {
		s.Send(ctx, newError("Not a member of this room"))
		return
	}

	targetSession := room.session(ClientID(frame.To))
	if targetSession == nil {
		s.Send(ctx, newError("Target client is not reachable"))
		return
	}

	targetSession.Send(ctx, signalMessage{Type: typeSignal, From: frame.From, Payload: frame.Payload})
}

type playCommandPayload struct {
	Command   json.RawMessage `json:"command"`
	Timestamp *int64          `json:"timestamp"`
}

func (rt *Router) handlePlayCommand(ctx context.Context, s *Session, frame *inboundFrame) {
	if !requireNonEmpty(frame.RoomID, frame.From) {
		s.Send(ctx, newError("roomId and from are required"))
		return
	}

	var body playCommandPayload
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &body); err != nil {
			s.Send(ctx, newError("payload.command is required"))
			return
		}
	}
	if len(body.Command) == 0 {
		s.Send(ctx, newError("payload.command is required"))
		return
	}

	room, ok := rt.registry.get(RoomID(frame.RoomID))
	if !ok {
		s.Send(ctx, newError("Room not found"))
		return
	}

	host := room.GetHost()
	if host == nil || host.ClientID != ClientID(frame.From) {
		s.Send(ctx, newError("Only the host may send play-command"))
		return
	}

	timestamp := time.Now().UnixMilli()
	if body.Timestamp != nil {
		timestamp = *body.Timestamp
	}

	rt.broadcastExcept(ctx, room, host.ClientID, playCommandMessage{
		Type:      typePlayCommand,
		Command:   body.Command,
		Timestamp: timestamp,
	})
}

func (rt *Router) handleLeave(ctx context.Context, s *Session, frame *inboundFrame) {
	if !requireNonEmpty(frame.RoomID, frame.From) {
		s.Send(ctx, newError("roomId and from are required"))
		return
	}

	room, ok := rt.registry.get(RoomID(frame.RoomID))
	if !ok {
		return
	}
	if room.session(ClientID(frame.From)) != s {
		return
	}

	rt.disconnectMember(ctx, room, ClientID(frame.From))
	s.bound = false
	s.roomID = ""
	s.clientID = ""
}

// handleDisconnect runs the disconnect cleanup cascade for a Session whose connection
// just closed. It is a no-op for a Session that never registered, and for one
// that was displaced by a re-register before its own close was observed.
func (rt *Router) handleDisconnect(ctx context.Context, s *Session) {
	if !s.bound {
		return
	}
	room, ok := rt.registry.get(s.roomID)
	if !ok {
		return
	}
	if room.session(s.clientID) != s {
		return
	}
	rt.disconnectMember(ctx, room, s.clientID)
}

func (rt *Router) disconnectMember(ctx context.Context, room *Room, clientID ClientID) {
	member, empty := room.remove(clientID)
	if member == nil {
		return
	}
	metrics.RoomMembers.WithLabelValues(string(room.ID)).Set(float64(room.MemberCount()))

	if member.Role == RoleHost {
		room.demoteSpeakers()
		rt.broadcastExcept(ctx, room, "", newHostDisconnected())
	}

	for _, inv := range rt.ledger.RemoveByClient(clientID) {
		metrics.InvitesActive.Dec()
		if inv.From == clientID {
			metrics.InvitesResolvedTotal.WithLabelValues("sender_disconnected").Inc()
			if targetSession := room.session(inv.To); targetSession != nil {
				targetSession.Send(ctx, inviteCancelledMessage{
					Type:     typeInviteCancelled,
					InviteID: inv.ID,
					Reason:   "Host disconnected",
				})
			}
		} else {
			metrics.InvitesResolvedTotal.WithLabelValues("target_disconnected").Inc()
			if hostSession := room.session(inv.From); hostSession != nil {
				hostSession.Send(ctx, inviteExpiredMessage{
					Type:     typeInviteExpired,
					InviteID: inv.ID,
					To:       string(inv.To),
					Reason:   "Target disconnected",
				})
			}
		}
	}

	if empty {
		rt.registry.removeIfEmpty(room.ID)
		metrics.ActiveRooms.Set(float64(rt.registry.RoomCount()))
		return
	}
	rt.broadcastRoster(ctx, room)
}

// handleInviteExpiry is the invite ledger's deadline callback, firing when an invite's
// own timer reaches its deadline unanswered.
func (rt *Router) handleInviteExpiry(inv *Invite) {
	ctx := context.Background()
	metrics.InvitesActive.Dec()
	metrics.InvitesResolvedTotal.WithLabelValues("expired").Inc()

	room, ok := rt.registry.get(inv.RoomID)
	if !ok {
		return
	}
	if hostSession := room.session(inv.From); hostSession != nil {
		hostSession.Send(ctx, inviteExpiredMessage{Type: typeInviteExpired, InviteID: inv.ID, To: string(inv.To)})
	}
	if targetSession := room.session(inv.To); targetSession != nil {
		targetSession.Send(ctx, inviteExpiredMessage{Type: typeInviteExpired, InviteID: inv.ID, From: string(inv.From)})
	}
}

// sweep is the periodic fallback. It is not the primary expiry mechanism — each invite's
// own timer is — but guards against a lost
// timer, and reconciles any room left empty despite the inline removal path.
func (rt *Router) sweep() {
	for _, inv := range rt.ledger.SweepExpired(time.Now()) {
		rt.handleInviteExpiry(inv)
	}
	rt.registry.sweepEmpty()
	metrics.ActiveRooms.Set(float64(rt.registry.RoomCount()))
}

// broadcastExcept sends v to every session in room except excludeID (pass "" to exclude
// none).
func (rt *Router) broadcastExcept(ctx context.Context, room *Room, excludeID ClientID, v any) {
	for id, sess := range room.sessionsSnapshot() {
		if id == excludeID {
			continue
		}
		sess.Send(ctx, v)
	}
}

// broadcastRoster sends a clients-updated snapshot to every current member of room.
func (rt *Router) broadcastRoster(ctx context.Context, room *Room) {
	rt.broadcastExcept(ctx, room, "", newClientsUpdated(room.RosterSnapshot()))
}

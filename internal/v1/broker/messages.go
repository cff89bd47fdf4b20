package broker

import "encoding/json"

// Inbound message type discriminators, per the wire protocol.
const (
	typeRegister       = "register"
	typeInvite         = "invite"
	typeInviteResponse = "invite-response"
	typeInviteCancel   = "invite-cancel"
	typeSignal         = "signal"
	typePlayCommand    = "play-command"
	typeLeave          = "leave"
	typePing           = "ping"
)

// Outbound message type discriminators.
const (
	typeRegistered       = "registered"
	typeClientsUpdated   = "clients-updated"
	typeInviteSent       = "invite-sent"
	typeInviteExpired    = "invite-expired"
	typeInviteCancelled  = "invite-cancelled"
	typeHostDisconnected = "host-disconnected"
	typePong             = "pong"
	typeError            = "error"
)

// inboundFrame is the union of every field any inbound message type may carry. Decoding
// into one flexible struct keeps the codec a single pass over the JSON; the router then
// reads only the fields relevant to frame.Type.
type inboundFrame struct {
	Type        string          `json:"type"`
	RoomID      string          `json:"roomId,omitempty"`
	ClientID    string          `json:"clientId,omitempty"`
	From        string          `json:"from,omitempty"`
	To          string          `json:"to,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
	Role        string          `json:"role,omitempty"`
	Accepted    *bool           `json:"accepted,omitempty"`
	InviteID    string          `json:"inviteId,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newError(message string) errorMessage {
	return errorMessage{Type: typeError, Message: message}
}

type registeredMessage struct {
	Type        string        `json:"type"`
	ClientID    string        `json:"clientId"`
	DisplayName string        `json:"displayName"`
	Role        string        `json:"role"`
	RoomID      string        `json:"roomId"`
	Clients     []RosterEntry `json:"clients"`
}

type clientsUpdatedMessage struct {
	Type    string        `json:"type"`
	Clients []RosterEntry `json:"clients"`
}

func newClientsUpdated(roster []RosterEntry) clientsUpdatedMessage {
	return clientsUpdatedMessage{Type: typeClientsUpdated, Clients: roster}
}

type inviteMessage struct {
	Type            string          `json:"type"`
	InviteID        string          `json:"inviteId"`
	From            string          `json:"from"`
	FromDisplayName string          `json:"fromDisplayName"`
	Payload         json.RawMessage `json:"payload"`
}

type inviteSentMessage struct {
	Type        string `json:"type"`
	InviteID    string `json:"inviteId"`
	To          string `json:"to"`
	ToDisplayName string `json:"toDisplayName"`
}

type inviteResponseMessage struct {
	Type            string `json:"type"`
	InviteID        string `json:"inviteId"`
	From            string `json:"from"`
	FromDisplayName string `json:"fromDisplayName"`
	Accepted        bool   `json:"accepted"`
}

type inviteExpiredMessage struct {
	Type     string `json:"type"`
	InviteID string `json:"inviteId"`
	To       string `json:"to,omitempty"`
	From     string `json:"from,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type inviteCancelledMessage struct {
	Type     string `json:"type"`
	InviteID string `json:"inviteId"`
	Reason   string `json:"reason,omitempty"`
}

type signalMessage struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type playCommandMessage struct {
	Type      string          `json:"type"`
	Command   json.RawMessage `json:"command"`
	Timestamp int64           `json:"timestamp"`
}

type hostDisconnectedMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newHostDisconnected() hostDisconnectedMessage {
	return hostDisconnectedMessage{Type: typeHostDisconnected, Message: "Host has disconnected"}
}

type pongMessage struct {
	Type string `json:"type"`
}

func newPong() pongMessage {
	return pongMessage{Type: typePong}
}

// defaultInvitePayload is used when an invite omits payload entirely.
var defaultInvitePayload = json.RawMessage(`{"role":"speaker","note":"Become my speaker?"}`)

// Package broker implements the signaling broker core: room registry, invite ledger,
// message router/validator, per-connection rate limiting, and the disconnect protocol
// described by the broker's wire specification.
package broker

import (
	"math/rand/v2"
	"regexp"
)

// RoomID is the canonical identifier of a room: uppercase letters and digits, 4-12 chars.
type RoomID string

// ClientID is declared by a connection at registration time and trusted as-is; the
// broker performs no identity authentication (out of scope).
type ClientID string

// DisplayName is the short human label shown in a room's roster.
type DisplayName string

// Role is one of idle, host, or speaker.
type Role string

const (
	RoleIdle    Role = "idle"
	RoleHost    Role = "host"
	RoleSpeaker Role = "speaker"
)

// roomIDPattern is the canonical roomId shape: uppercase letters/digits, 4-12 chars.
var roomIDPattern = regexp.MustCompile(`^[A-Z0-9]{4,12}$`)

// ValidRoomID reports whether id matches the canonical room id form.
func ValidRoomID(id string) bool {
	return roomIDPattern.MatchString(id)
}

// Member is a room participant's identity and role. It deliberately does not hold a
// reference to the connection that carries it: the owning Room looks up the live
// Session by ClientID when it needs to write to one, so a disconnected Session can never
// be reached through a stale Member.
type Member struct {
	ClientID    ClientID
	DisplayName DisplayName
	Role        Role
}

// RosterEntry is the wire shape of a single roster row.
type RosterEntry struct {
	ClientID    string `json:"clientId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// animalNames is the fixed pool used to assign a display name when a client registers
// without one. 29 entries, well above the documented minimum of 16.
var animalNames = []string{
	"otter", "lynx", "heron", "badger", "falcon", "marten", "wolverine", "ibex",
	"gazelle", "tapir", "ocelot", "pangolin", "serval", "civet", "quokka", "dingo",
	"caracal", "bison", "narwhal", "puffin", "vicuna", "capybara", "coyote", "jackal",
	"mongoose", "marmot", "alpaca", "stoat", "wombat",
}

// randomAnimalName picks an entry from the animal-name pool for a registration that
// omitted a displayName.
func randomAnimalName() string {
	return animalNames[rand.IntN(len(animalNames))]
}

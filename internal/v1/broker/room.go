package broker

import (
	"sort"
	"strconv"
	"sync"
)

// Room is the registry's unit of isolation: one roomId's members, live sessions, and the
// mutex serializing all mutation of both. Per spec's concurrency model, cross-room
// operations are independent — only a single room's own mutex need ever be held at once.
type Room struct {
	ID RoomID

	mu       sync.RWMutex
	members  map[ClientID]*Member
	sessions map[ClientID]*Session
}

func newRoom(id RoomID) *Room {
	return &Room{
		ID:       id,
		members:  make(map[ClientID]*Member),
		sessions: make(map[ClientID]*Session),
	}
}

// errHostExists is returned by register when a host role is requested but a different
// clientId already holds it.
type roomError string

func (e roomError) Error() string { return string(e) }

const errHostExists = roomError("Room already has a host")

// register admits a client into the room under the room's own lock. It resolves
// displayName collisions, enforces the at-most-one-host invariant,
// and treats a re-register of the same clientId as an in-place replacement rather than a
// new member — including swapping in the new Session as the clientId's live connection.
func (r *Room) register(session *Session, clientID ClientID, requestedName DisplayName, role Role) (*Member, *Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, isReregister := r.members[clientID]

	if role == RoleHost {
		if host := r.currentHostLocked(); host != nil && host.ClientID != clientID {
			return nil, nil, errHostExists
		}
	}

	name := requestedName
	if name == "" {
		name = DisplayName(randomAnimalName())
	}
	name = r.uniqueDisplayNameLocked(name, clientID)

	member := &Member{ClientID: clientID, DisplayName: name, Role: role}
	r.members[clientID] = member

	var displaced *Session
	if isReregister {
		_ = existing
		displaced = r.sessions[clientID]
	}
	r.sessions[clientID] = session

	return member, displaced, nil
}

// currentHostLocked returns the room's host member, or nil. Callers must hold r.mu.
func (r *Room) currentHostLocked() *Member {
	for _, m := range r.members {
		if m.Role == RoleHost {
			return m
		}
	}
	return nil
}

// GetHost returns the room's current host member, or nil if none.
func (r *Room) GetHost() *Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentHostLocked()
}

// Member returns the member with the given clientId, or nil.
func (r *Room) Member(clientID ClientID) *Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[clientID]
}

// session returns the live Session bound to clientID, or nil. This is the lookup the
// design notes call for in place of a Member -> Session back-reference.
func (r *Room) session(clientID ClientID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[clientID]
}

// sessionsSnapshot copies the current clientId->Session map so callers can fan out
// without holding the room lock while they write to each connection.
func (r *Room) sessionsSnapshot() map[ClientID]*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[ClientID]*Session, len(r.sessions))
	for id, s := range r.sessions {
		out[id] = s
	}
	return out
}

// MemberCount reports the current member count, for metrics.
func (r *Room) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

// uniqueDisplayNameLocked appends "-2", "-3", ... until base is unique among members
// other than excluding. Callers must hold r.mu for writing.
func (r *Room) uniqueDisplayNameLocked(base DisplayName, excluding ClientID) DisplayName {
	taken := func(name DisplayName) bool {
		for id, m := range r.members {
			if id == excluding {
				continue
			}
			if m.DisplayName == name {
				return true
			}
		}
		return false
	}

	if !taken(base) {
		return base
	}
	for suffix := 2; ; suffix++ {
		candidate := DisplayName(string(base) + "-" + strconv.Itoa(suffix))
		if !taken(candidate) {
			return candidate
		}
	}
}

// RosterSnapshot returns the room's current members as a deterministically ordered
// roster, sorted by clientId so repeated snapshots of unchanged state compare equal.
func (r *Room) RosterSnapshot() []RosterEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rosterLocked()
}

func (r *Room) rosterLocked() []RosterEntry {
	out := make([]RosterEntry, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, RosterEntry{
			ClientID:    string(m.ClientID),
			DisplayName: string(m.DisplayName),
			Role:        string(m.Role),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClientID < out[j].ClientID })
	return out
}

// remove deletes clientID's member and session entry. It reports whether the room is now
// empty, so the caller can decide whether to remove it from the registry.
func (r *Room) remove(clientID ClientID) (removed *Member, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed = r.members[clientID]
	delete(r.members, clientID)
	delete(r.sessions, clientID)
	return removed, len(r.members) == 0
}

// demoteSpeakers resets every speaker to idle under the room's own lock. Used when the
// host disconnects.
func (r *Room) demoteSpeakers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if m.Role == RoleSpeaker {
			m.Role = RoleIdle
		}
	}
}

// setRole mutates a member's role in place, if present.
func (r *Room) setRole(clientID ClientID, role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[clientID]; ok {
		m.Role = role
	}
}

// isEmpty reports whether the room currently has no members.
func (r *Room) isEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members) == 0
}

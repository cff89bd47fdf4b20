package broker

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Invite is a pending host-issued offer, as described by the Invite Ledger's contract.
type Invite struct {
	ID        string
	RoomID    RoomID
	From      ClientID
	To        ClientID
	Payload   json.RawMessage
	ExpiresAt time.Time
}

// Ledger is the process-wide Invite Ledger: pending invites keyed by id, each with a
// cancellable deadline timer. Deadline handlers must be cancellable so a terminal
// transition (response, cancel, disconnect) stops a later expiry from re-firing — the
// periodic sweep exists only as the fallback for a lost timer, never as the primary path.
type Ledger struct {
	mu       sync.Mutex
	byID     map[string]*Invite
	timers   map[string]*time.Timer
	onExpiry func(*Invite)
}

// NewLedger constructs an empty Invite Ledger. onExpiry is invoked (off the ledger's
// lock) when an invite's deadline timer fires without having been cancelled first.
func NewLedger(onExpiry func(*Invite)) *Ledger {
	return &Ledger{
		byID:     make(map[string]*Invite),
		timers:   make(map[string]*time.Timer),
		onExpiry: onExpiry,
	}
}

// Create mints an invite, schedules its deadline, and returns it.
func (l *Ledger) Create(roomID RoomID, from, to ClientID, payload json.RawMessage, ttl time.Duration) *Invite {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.createLocked(roomID, from, to, payload, ttl)
}

func (l *Ledger) createLocked(roomID RoomID, from, to ClientID, payload json.RawMessage, ttl time.Duration) *Invite {
	invite := &Invite{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		From:      from,
		To:        to,
		Payload:   payload,
		ExpiresAt: time.Now().Add(ttl),
	}

	l.byID[invite.ID] = invite
	l.timers[invite.ID] = time.AfterFunc(ttl, func() { l.expire(invite.ID) })
	return invite
}

// ReplacePair mints an invite from `from` to `to`, first silently removing and
// cancelling any invite already live for that same pair. At most one invite per
// (roomID, from, to) pair may be live at a time; without this, a second `invite` frame
// before the first resolves would leave two live ledger entries, and ByPair would then
// resolve an arbitrary one on invite-response while the other lingered to fire a spurious
// expiry for a pair that had already resolved.
func (l *Ledger) ReplacePair(roomID RoomID, from, to ClientID, payload json.RawMessage, ttl time.Duration) *Invite {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, inv := range l.byID {
		if inv.RoomID == roomID && inv.From == from && inv.To == to {
			delete(l.byID, id)
			if timer, ok := l.timers[id]; ok {
				timer.Stop()
				delete(l.timers, id)
			}
			break
		}
	}

	return l.createLocked(roomID, from, to, payload, ttl)
}

// expire fires from the invite's own deadline timer. It removes the invite (a no-op if
// it was already resolved by then, which suppresses the duplicate-terminal-event case the
// ordering guarantee names) and, only if it actually removed something, notifies onExpiry.
func (l *Ledger) expire(id string) {
	l.mu.Lock()
	invite, ok := l.byID[id]
	if ok {
		delete(l.byID, id)
		delete(l.timers, id)
	}
	l.mu.Unlock()

	if ok && l.onExpiry != nil {
		l.onExpiry(invite)
	}
}

// ByPair returns the live invite from `from` to `to` in roomID, or nil.
func (l *Ledger) ByPair(roomID RoomID, from, to ClientID) *Invite {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, inv := range l.byID {
		if inv.RoomID == roomID && inv.From == from && inv.To == to {
			return inv
		}
	}
	return nil
}

// ByID returns the invite with the given id, or nil.
func (l *Ledger) ByID(id string) *Invite {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byID[id]
}

// Remove deletes the invite and cancels its deadline timer. Reports whether an invite was
// actually present, so callers can suppress redundant terminal events.
func (l *Ledger) Remove(id string) (*Invite, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	invite, ok := l.byID[id]
	if !ok {
		return nil, false
	}
	delete(l.byID, id)
	if timer, ok := l.timers[id]; ok {
		timer.Stop()
		delete(l.timers, id)
	}
	return invite, true
}

// RemoveByClient removes every invite where clientID is either side, cancelling their
// timers, and returns them — used by the disconnect protocol.
func (l *Ledger) RemoveByClient(clientID ClientID) []*Invite {
	l.mu.Lock()
	defer l.mu.Unlock()

	var removed []*Invite
	for id, inv := range l.byID {
		if inv.From == clientID || inv.To == clientID {
			removed = append(removed, inv)
			delete(l.byID, id)
			if timer, ok := l.timers[id]; ok {
				timer.Stop()
				delete(l.timers, id)
			}
		}
	}
	return removed
}

// SweepExpired is the periodic fallback named in the Invite Ledger's contract: it removes
// any record past its deadline even if that record's own timer was somehow lost. It does
// not itself invoke onExpiry — by the time the sweep finds it, the timer should already
// have fired and done so; this only guards against the timer never having run at all.
func (l *Ledger) SweepExpired(now time.Time) []*Invite {
	l.mu.Lock()
	defer l.mu.Unlock()

	var expired []*Invite
	for id, inv := range l.byID {
		if now.After(inv.ExpiresAt) {
			expired = append(expired, inv)
			delete(l.byID, id)
			if timer, ok := l.timers[id]; ok {
				timer.Stop()
				delete(l.timers, id)
			}
		}
	}
	return expired
}

package broker

import "time"

// frameBucket is the fixed-window rate-limit bucket a Session owns for itself. It is
// touched only from that Session's own read loop, so it needs no synchronization — this
// is the one place the broker core relies on the standard library alone rather than
// ulule/limiter: that package's token-bucket/GCRA algorithms cannot reproduce the literal
// "60th accepted, 61st rejected, reset once past windowStart+windowMs" boundary the wire
// protocol's rate-limit invariant names, which only a hand-rolled fixed window gives.
type frameBucket struct {
	windowMs    int64
	maxMessages int
	count       int
	windowStart time.Time
}

func newFrameBucket(window time.Duration, max int) *frameBucket {
	return &frameBucket{
		windowMs:    window.Milliseconds(),
		maxMessages: max,
	}
}

// allow reports whether another frame may be admitted at now, incrementing the bucket's
// count as a side effect. The window resets once now has moved past windowStart+windowMs.
func (b *frameBucket) allow(now time.Time) bool {
	if b.windowStart.IsZero() || now.Sub(b.windowStart).Milliseconds() > b.windowMs {
		b.windowStart = now
		b.count = 0
	}

	b.count++
	return b.count <= b.maxMessages
}

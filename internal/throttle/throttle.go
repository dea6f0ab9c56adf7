// Package throttle suppresses duplicate or rapid re-detections of the same
// payload. A camera pointed at a QR code yields the same text on every
// sampled frame; without suppression each frame would re-trigger the whole
// decode and feedback pipeline.
package throttle

import (
	"sync"
	"time"
)

// DefaultWindow is the minimum interval between two forwarded detections of
// the same text.
const DefaultWindow = 2 * time.Second

// Options configure a Guard.
type Options struct {
	// Window overrides DefaultWindow when positive.
	Window time.Duration
	// Now supplies the clock. Defaults to time.Now.
	Now func() time.Time
}

// Guard decides whether a raw detection should be forwarded. State is owned
// by the session instance, never shared, so concurrent sessions do not
// interfere. Safe for concurrent use.
type Guard struct {
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	seen     bool
	lastText string
	lastAt   time.Time
}

// New constructs a Guard from the provided options.
func New(opts Options) *Guard {
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Guard{window: window, now: now}
}

// Accept reports whether the detection should be forwarded: the first
// detection always passes, as does any text that differs from the last
// forwarded one, or the same text once the window has elapsed. The record is
// updated on every accepted detection.
func (g *Guard) Accept(text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.seen && text == g.lastText && now.Sub(g.lastAt) < g.window {
		return false
	}

	g.seen = true
	g.lastText = text
	g.lastAt = now

	return true
}

// Reset clears the record so the next detection is accepted unconditionally.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seen = false
	g.lastText = ""
	g.lastAt = time.Time{}
}

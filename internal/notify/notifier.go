package notify

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Sink receives notifications. Publish must not block for long.
type Sink interface {
	Publish(n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Notification)

func (f SinkFunc) Publish(n Notification) { f(n) }

// Sinks fans a notification out to several sinks in order.
type Sinks []Sink

func (s Sinks) Publish(n Notification) {
	for _, sink := range s {
		sink.Publish(n)
	}
}

const (
	DefaultRatePerSecond = 30
	DefaultBurst         = 1
	DefaultCooldown      = 200 * time.Millisecond
)

// Config tunes the token bucket and the overflow signal.
type Config struct {
	RatePerSecond float64
	Burst         int
	// Cooldown is the minimum spacing between two overflow notifications.
	Cooldown time.Duration
}

// Notifier forwards notifications through a token bucket. Rejected ones are
// replaced by at most one RateLimitOverflow per cooldown. Errors bypass the
// bucket.
type Notifier struct {
	sink     Sink
	limiter  *rate.Limiter
	cooldown time.Duration
	now      func() time.Time

	mu           sync.Mutex
	lastOverflow time.Time

	suppressed atomic.Uint64
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(n *Notifier) { n.now = now }
}

func New(sink Sink, cfg Config, opts ...Option) *Notifier {
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	n := &Notifier{
		sink:     sink,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		cooldown: cfg.Cooldown,
		now:      time.Now,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Emit publishes n if the bucket admits it and reports whether it did.
func (n *Notifier) Emit(msg Notification) bool {
	if msg.Kind == ErrorHappened {
		n.sink.Publish(msg)
		return true
	}
	now := n.now()
	if n.limiter.AllowN(now, 1) {
		n.sink.Publish(msg)
		return true
	}

	n.mu.Lock()
	signal := n.lastOverflow.IsZero() || now.Sub(n.lastOverflow) >= n.cooldown
	if signal {
		n.lastOverflow = now
	}
	n.mu.Unlock()

	n.suppressed.Add(1)
	if signal {
		n.sink.Publish(Overflow())
	}
	return false
}

// EmitAll emits each notification in order.
func (n *Notifier) EmitAll(msgs []Notification) {
	for _, m := range msgs {
		n.Emit(m)
	}
}

// Suppressed counts notifications rejected by the bucket.
func (n *Notifier) Suppressed() uint64 { return n.suppressed.Load() }

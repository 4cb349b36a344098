// Package store holds the dashboard's entity stores: in-memory collections of
// agents, calls, and voices backed by the platform API and a persistent
// envelope cache. Each store follows the same pattern: fetch-if-stale,
// force-refresh, and mutations that round-trip through the remote API and
// reconcile the authoritative response back into the collection.
package store

import (
	"log/slog"
	"time"

	"github.com/relaydial/relaydial/internal/cache"
)

// Cache keys and envelope collection names, one pair per entity store.
const (
	agentsCacheKey = "relaydial_agents"
	callsCacheKey  = "relaydial_calls"
	voicesCacheKey = "relaydial_voices"

	agentsCollection = "agents"
	callsCollection  = "calls"
	voicesCollection = "voices"
)

// Option configures a store.
type Option func(*options)

type options struct {
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		ttl:    cache.DefaultTTL,
		logger: slog.Default(),
		now:    time.Now,
	}
}

// WithTTL overrides the staleness window for fetch-if-stale.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the time source used for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// guard is the shared loading/staleness state. The loading flag is a
// best-effort dedupe, not a mutex: it is checked and set under a short-lived
// lock that is NOT held across the network call, so a request racing the flag
// can still go remote. That weak policy is deliberate; upgrading it to an
// in-flight promise cache would need its own test coverage.
type guard struct {
	loading     bool
	errMsg      string
	lastFetched time.Time
}

func (g *guard) fresh(now time.Time, ttl time.Duration) bool {
	return !g.lastFetched.IsZero() && now.Sub(g.lastFetched) < ttl
}

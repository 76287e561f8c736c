// Package ratelimit implements the per-caller quota policy: a fixed daily
// window for the free tier and tracked-but-unlimited usage for the pro
// tier. All state lives behind one Limiter instance so increment-and-check
// stays atomic.
package ratelimit

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"

	u "github.com/ttracx/vibe-qr-api/internal/utils"
)

// Tier is the caller class determining the quota.
type Tier int

const (
	TierFree Tier = iota
	TierPro
)

func (t Tier) String() string {
	if t == TierPro {
		return "pro"
	}
	return "free"
}

// Result captures the outcome of one admit or peek.
type Result struct {
	Allowed   bool
	Remaining int // -1 means unlimited
	Limit     int // -1 means unlimited
	ResetAt   time.Time
	Tier      Tier
}

// RedisConfig selects the backing store for limiter state.
type RedisConfig struct {
	Addr string
	DB   int
}

// NewStore returns a Redis-backed storage when an address is configured,
// falling back to in-process memory if Redis init panics or no address is
// set. The service stays up either way.
func NewStore(cfg RedisConfig) fiber.Storage {
	var store fiber.Storage = memoryStorage.New()
	if cfg.Addr == "" {
		return store
	}
	func() {
		defer func() {
			if r := recover(); r != nil {
				u.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
			}
		}()
		store = redisStorage.New(redisStorage.Config{
			Addrs:    []string{cfg.Addr},
			Database: cfg.DB,
		})
		u.Info("Using Redis for rate limiting", "addr", cfg.Addr, "db", cfg.DB)
	}()
	return store
}

// Limiter owns all quota state. The window is fixed, anchored at the first
// request after the previous window lapsed; expired windows reset lazily on
// the next check and the storage TTL evicts idle identities.
type Limiter struct {
	mu     sync.Mutex
	store  fiber.Storage
	limit  int
	window time.Duration
}

// New creates a limiter with the given free-tier quota per window.
func New(store fiber.Storage, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Limit returns the configured free-tier quota.
func (l *Limiter) Limit() int { return l.limit }

// Admit consumes one unit of quota for identity and reports the decision.
// Pro-tier callers are always admitted but still counted. Mutation is
// serialized on the limiter mutex, so two concurrent requests can never
// both take the last unit.
func (l *Limiter) Admit(identity string, tier Tier) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	key := stateKey(identity)

	count, start := l.load(key)
	if count == 0 || now.Sub(start) >= l.window {
		count, start = 0, now
	}
	count++
	l.save(key, count, start, now)

	return l.result(count, start, tier, true)
}

// Peek reports the current counters without consuming quota.
func (l *Limiter) Peek(identity string, tier Tier) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	count, start := l.load(stateKey(identity))
	if count == 0 || now.Sub(start) >= l.window {
		count, start = 0, now
	}

	return l.result(count, start, tier, false)
}

func (l *Limiter) result(count int64, start time.Time, tier Tier, consumed bool) Result {
	resetAt := start.Add(l.window)
	if tier == TierPro {
		return Result{Allowed: true, Remaining: -1, Limit: -1, ResetAt: resetAt, Tier: tier}
	}

	remaining := l.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	allowed := int(count) <= l.limit
	if !consumed {
		allowed = int(count) < l.limit
	}
	return Result{Allowed: allowed, Remaining: remaining, Limit: l.limit, ResetAt: resetAt, Tier: tier}
}

func stateKey(identity string) string {
	return "ratelimit:" + identity
}

// load reads the persisted window state. Storage failures are logged and
// treated as a fresh window rather than blocking traffic.
func (l *Limiter) load(key string) (count int64, start time.Time) {
	raw, err := l.store.Get(key)
	if err != nil {
		u.Warn("Rate limit store read failed", "key", key, "error", err)
		return 0, time.Time{}
	}
	if len(raw) != 16 {
		return 0, time.Time{}
	}
	count = int64(binary.BigEndian.Uint64(raw[:8]))
	start = time.Unix(0, int64(binary.BigEndian.Uint64(raw[8:])))
	return count, start
}

func (l *Limiter) save(key string, count int64, start, now time.Time) {
	raw := make([]byte, 16)
	binary.BigEndian.PutUint64(raw[:8], uint64(count))
	binary.BigEndian.PutUint64(raw[8:], uint64(start.UnixNano()))

	ttl := l.window - now.Sub(start)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := l.store.Set(key, raw, ttl); err != nil {
		u.Warn("Rate limit store write failed", "key", key, "error", err)
	}
}

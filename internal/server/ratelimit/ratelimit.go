// Package ratelimit provides per-client, per-endpoint request throttling with
// token buckets held in a bounded LRU table.
package ratelimit

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// DefaultMaxClients bounds the number of buckets kept in memory. The least
// recently used bucket is evicted when the table is full.
const DefaultMaxClients = 10000

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	MaxClients      int
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// Limiter manages token buckets for many clients.
type Limiter struct {
	config  *Config
	buckets *lru.Cache[string, *rate.Limiter]
	now     func() time.Time
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:       true,
			DefaultLimit:  1000,
			DefaultWindow: time.Minute,
		}
	}
	size := config.MaxClients
	if size <= 0 {
		size = DefaultMaxClients
	}
	// lru.New only fails for a non-positive size.
	buckets, _ := lru.New[string, *rate.Limiter](size)

	return &Limiter{config: config, buckets: buckets, now: time.Now}
}

// Allow checks if a request from the given client is allowed for the specified endpoint.
// Returns true if allowed, false if rate limited, along with rate limit information.
func (l *Limiter) Allow(clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{Allowed: false}
	}

	endpointConfig := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	key := clientID + ":" + method + ":" + endpoint
	if endpointConfig == nil {
		endpointConfig = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	} else {
		// Share one bucket across every path the pattern matches.
		key = clientID + ":" + method + ":" + endpointConfig.Path
	}

	// Unlimited endpoint (e.g., health check)
	if endpointConfig.Limit <= 0 || endpointConfig.Window <= 0 {
		return true, Info{Allowed: true}
	}

	bucket := l.bucket(key, endpointConfig)
	now := l.now()
	allowed := bucket.AllowN(now, 1)

	tokens := bucket.TokensAt(now)
	remaining := max(int(tokens), 0)
	perSecond := float64(bucket.Limit())

	resetTime := now
	if missing := float64(bucket.Burst()) - tokens; missing > 0 {
		resetTime = now.Add(time.Duration(missing / perSecond * float64(time.Second)))
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = time.Duration((1 - tokens) / perSecond * float64(time.Second))
	}

	return allowed, Info{
		Allowed:    allowed,
		Limit:      endpointConfig.Limit,
		Remaining:  remaining,
		ResetTime:  resetTime,
		RetryAfter: retryAfter,
	}
}

// bucket gets or creates the token bucket for key.
func (l *Limiter) bucket(key string, cfg *EndpointConfig) *rate.Limiter {
	if b, ok := l.buckets.Get(key); ok {
		return b
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Limit
	}
	// Refill rate = limit / window duration in seconds
	b := rate.NewLimiter(rate.Limit(float64(cfg.Limit)/cfg.Window.Seconds()), burst)
	if prev, ok, _ := l.buckets.PeekOrAdd(key, b); ok {
		return prev
	}
	return b
}

// Len reports how many buckets are currently tracked.
func (l *Limiter) Len() int {
	return l.buckets.Len()
}

package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// RateLimiter implements token bucket rate limiting keyed by client IP and,
// for authenticated requests, by user id. Write endpoints (bets, market
// submission, oracle reports) get a stricter bucket.
type RateLimiter struct {
	config *RateLimitConfig

	buckets   map[string]*Bucket
	bucketsMu sync.RWMutex

	writeBuckets   map[string]*Bucket
	writeBucketsMu sync.RWMutex

	cleanupTicker *time.Ticker
	stopCh        chan struct{}
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	// IP-based limits
	IPRequestsPerSecond int
	IPBurst             int
	IPBlockDuration     time.Duration

	// User-based limits (identified users)
	UserRequestsPerSecond int
	UserBurst             int

	// Write-endpoint limits
	WritesPerSecond int
	WriteBurst      int

	// Cleanup
	CleanupInterval time.Duration
	BucketTTL       time.Duration
}

// DefaultRateLimitConfig returns default configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		IPRequestsPerSecond: 50,
		IPBurst:             100,
		IPBlockDuration:     time.Minute,

		UserRequestsPerSecond: 100,
		UserBurst:             200,

		WritesPerSecond: 5,
		WriteBurst:      10,

		CleanupInterval: 5 * time.Minute,
		BucketTTL:       time.Hour,
	}
}

// Bucket represents a token bucket for rate limiting
type Bucket struct {
	tokens       float64
	maxTokens    float64
	refillRate   float64 // tokens per second
	lastUpdate   time.Time
	blocked      bool
	blockedUntil time.Time
	mu           sync.Mutex
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	rl := &RateLimiter{
		config:        config,
		buckets:       make(map[string]*Bucket),
		writeBuckets:  make(map[string]*Bucket),
		cleanupTicker: time.NewTicker(config.CleanupInterval),
		stopCh:        make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the rate limiter
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) cleanupLoop() {
	for {
		select {
		case <-rl.cleanupTicker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup removes buckets idle past the TTL
func (rl *RateLimiter) cleanup() {
	threshold := time.Now().Add(-rl.config.BucketTTL)

	rl.bucketsMu.Lock()
	for key, bucket := range rl.buckets {
		bucket.mu.Lock()
		if bucket.lastUpdate.Before(threshold) {
			delete(rl.buckets, key)
		}
		bucket.mu.Unlock()
	}
	rl.bucketsMu.Unlock()

	rl.writeBucketsMu.Lock()
	for key, bucket := range rl.writeBuckets {
		bucket.mu.Lock()
		if bucket.lastUpdate.Before(threshold) {
			delete(rl.writeBuckets, key)
		}
		bucket.mu.Unlock()
	}
	rl.writeBucketsMu.Unlock()
}

func (rl *RateLimiter) getBucket(key string, maxTokens, refillRate float64) *Bucket {
	rl.bucketsMu.RLock()
	bucket, ok := rl.buckets[key]
	rl.bucketsMu.RUnlock()

	if ok {
		return bucket
	}

	rl.bucketsMu.Lock()
	defer rl.bucketsMu.Unlock()

	// Double-check after acquiring write lock
	if bucket, ok := rl.buckets[key]; ok {
		return bucket
	}

	bucket = &Bucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastUpdate: time.Now(),
	}
	rl.buckets[key] = bucket
	return bucket
}

func (rl *RateLimiter) getWriteBucket(key string) *Bucket {
	rl.writeBucketsMu.RLock()
	bucket, ok := rl.writeBuckets[key]
	rl.writeBucketsMu.RUnlock()

	if ok {
		return bucket
	}

	rl.writeBucketsMu.Lock()
	defer rl.writeBucketsMu.Unlock()

	if bucket, ok := rl.writeBuckets[key]; ok {
		return bucket
	}

	bucket = &Bucket{
		tokens:     float64(rl.config.WriteBurst),
		maxTokens:  float64(rl.config.WriteBurst),
		refillRate: float64(rl.config.WritesPerSecond),
		lastUpdate: time.Now(),
	}
	rl.writeBuckets[key] = bucket
	return bucket
}

// AllowIP checks if a request from an IP is allowed
func (rl *RateLimiter) AllowIP(ip string) (bool, *RateLimitInfo) {
	bucket := rl.getBucket("ip:"+ip, float64(rl.config.IPBurst), float64(rl.config.IPRequestsPerSecond))
	return rl.tryConsume(bucket, 1)
}

// AllowUser checks if a request from an identified user is allowed
func (rl *RateLimiter) AllowUser(userID string) (bool, *RateLimitInfo) {
	bucket := rl.getBucket("user:"+userID, float64(rl.config.UserBurst), float64(rl.config.UserRequestsPerSecond))
	return rl.tryConsume(bucket, 1)
}

// AllowWrite checks if a write-endpoint request is allowed for the key
// (user id when known, client IP otherwise).
func (rl *RateLimiter) AllowWrite(key string) (bool, *RateLimitInfo) {
	bucket := rl.getWriteBucket("write:" + key)
	return rl.tryConsume(bucket, 1)
}

func (rl *RateLimiter) tryConsume(bucket *Bucket, tokens float64) (bool, *RateLimitInfo) {
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()

	if bucket.blocked && now.Before(bucket.blockedUntil) {
		return false, &RateLimitInfo{
			Allowed:    false,
			Remaining:  0,
			Limit:      int(bucket.maxTokens),
			RetryAfter: int(bucket.blockedUntil.Sub(now).Seconds()) + 1,
			LimitType:  "blocked",
		}
	}
	bucket.blocked = false

	// Refill tokens
	elapsed := now.Sub(bucket.lastUpdate).Seconds()
	bucket.tokens += elapsed * bucket.refillRate
	if bucket.tokens > bucket.maxTokens {
		bucket.tokens = bucket.maxTokens
	}
	bucket.lastUpdate = now

	if bucket.tokens >= tokens {
		bucket.tokens -= tokens
		return true, &RateLimitInfo{
			Allowed:   true,
			Remaining: int(bucket.tokens),
			Limit:     int(bucket.maxTokens),
			LimitType: "rate",
		}
	}

	bucket.blocked = true
	bucket.blockedUntil = now.Add(rl.config.IPBlockDuration)

	retryAfter := int((tokens-bucket.tokens)/bucket.refillRate) + 1
	return false, &RateLimitInfo{
		Allowed:    false,
		Remaining:  0,
		Limit:      int(bucket.maxTokens),
		RetryAfter: retryAfter,
		LimitType:  "rate",
	}
}

// RateLimitInfo contains rate limit information
type RateLimitInfo struct {
	Allowed    bool   `json:"allowed"`
	Remaining  int    `json:"remaining"`
	Limit      int    `json:"limit"`
	RetryAfter int    `json:"retry_after,omitempty"`
	LimitType  string `json:"limit_type"`
}

// ============ HTTP Middleware ============

// RateLimitMiddleware creates an HTTP middleware for rate limiting
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			allowed, info := rl.AllowIP(ip)
			if !allowed {
				writeLimitExceeded(w, info, "Too many requests, please slow down")
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))

			// Stricter per-user bucket for identified traffic
			userID := UserFromContext(r.Context())
			if userID != "" {
				allowed, userInfo := rl.AllowUser(userID)
				if !allowed {
					writeLimitExceeded(w, userInfo, "User rate limit exceeded")
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteRateLimitMiddleware wraps write endpoints with the stricter bucket.
func WriteRateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := UserFromContext(r.Context())
			if key == "" {
				key = ClientIP(r)
			}

			allowed, info := rl.AllowWrite(key)
			if !allowed {
				writeLimitExceeded(w, info, "Write rate limit exceeded")
				return
			}
			w.Header().Set("X-RateLimit-Write-Remaining", fmt.Sprintf("%d", info.Remaining))

			next.ServeHTTP(w, r)
		})
	}
}

func writeLimitExceeded(w http.ResponseWriter, info *RateLimitInfo, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
	if info.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", info.RetryAfter))
	}
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":       "rate_limit_exceeded",
		"message":     message,
		"retry_after": info.RetryAfter,
	})
}

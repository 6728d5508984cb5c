package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const (
	limiterPrefix = "dealbook_limiter"
	rateLimitKey  = "rate_limit_key"
	dailyPeriod   = 24 * time.Hour
)

// NewLimiterStore returns a redis-backed limiter store when client is set and
// an in-process store otherwise.
func NewLimiterStore(client *redis.Client) (limiter.Store, error) {
	if client == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          limiterPrefix,
			CleanUpInterval: time.Minute,
		}), nil
	}
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   limiterPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis limiter store: %w", err)
	}
	return store, nil
}

// rateLimitExempt lists path prefixes that never count against a quota.
var rateLimitExempt = []string{
	"/health",
	"/metrics",
	"/api/docs",
	"/api/v1/auth/login",
	"/api/v1/auth/refresh",
}

func isRateLimitExempt(path string) bool {
	for _, p := range rateLimitExempt {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// TierRateLimiter enforces a daily request allowance chosen by the tier in
// the caller's access token. Anonymous callers are keyed by IP at the basic
// allowance.
type TierRateLimiter struct {
	tokens TokenValidator
	byTier map[plans.Tier]gin.HandlerFunc
	logger zerolog.Logger
}

// NewTierRateLimiter creates a limiter with one daily rate per tier, all
// sharing store.
func NewTierRateLimiter(store limiter.Store, tokens TokenValidator, logger zerolog.Logger) *TierRateLimiter {
	t := &TierRateLimiter{
		tokens: tokens,
		byTier: make(map[plans.Tier]gin.HandlerFunc),
		logger: logger.With().Str("component", "rate_limiter").Logger(),
	}
	for _, tier := range plans.Tiers() {
		rate := limiter.Rate{Period: dailyPeriod, Limit: plans.LimitsFor(tier).RequestsPerDay}
		t.byTier[tier] = mgin.NewMiddleware(limiter.New(store, rate),
			mgin.WithKeyGetter(func(c *gin.Context) string { return c.GetString(rateLimitKey) }),
			mgin.WithLimitReachedHandler(limitReached(tier)),
			mgin.WithErrorHandler(t.storeError),
		)
	}
	return t
}

// Middleware returns the Gin handler.
func (t *TierRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isRateLimitExempt(c.Request.URL.Path) {
			c.Next()
			return
		}
		key, tier := t.identify(c)
		c.Set(rateLimitKey, key)
		t.byTier[tier](c)
	}
}

// identify returns the limiter key and tier of the caller. Invalid tokens
// fall back to the IP key; AuthMiddleware rejects them later.
func (t *TierRateLimiter) identify(c *gin.Context) (string, plans.Tier) {
	if raw := BearerToken(c.GetHeader("Authorization")); raw != "" && t.tokens != nil {
		if claims, err := t.tokens.Validate(raw); err == nil && claims.Subject != "" {
			tier, err := plans.ParseTier(claims.Tier)
			if err != nil {
				tier = plans.TierFree
			}
			return "user:" + claims.Subject, tier
		}
	}
	return "ip:" + c.ClientIP(), plans.TierBasic
}

func (t *TierRateLimiter) storeError(c *gin.Context, err error) {
	t.logger.Error().Err(err).Str("key", c.GetString(rateLimitKey)).Msg("rate limiter store failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

func limitReached(tier plans.Tier) mgin.LimitReachedHandler {
	return func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":            "daily request limit reached",
			"tier":             string(tier),
			"requests_per_day": plans.LimitsFor(tier).RequestsPerDay,
		})
	}
}

// AuthGuard blocks an IP after repeated failed sign-in or refresh attempts.
// Failures are 401 responses from the guarded routes.
type AuthGuard struct {
	failures *limiter.Limiter
	blocks   *limiter.Limiter
	block    time.Duration
	logger   zerolog.Logger
}

// NewAuthGuard blocks an IP for block after attempts failures within window.
func NewAuthGuard(store limiter.Store, attempts int64, window, block time.Duration, logger zerolog.Logger) *AuthGuard {
	return &AuthGuard{
		failures: limiter.New(store, limiter.Rate{Period: window, Limit: attempts}),
		blocks:   limiter.New(store, limiter.Rate{Period: block, Limit: 1}),
		block:    block,
		logger:   logger.With().Str("component", "auth_guard").Logger(),
	}
}

// Middleware returns the Gin handler. Apply it to the login and refresh routes.
func (g *AuthGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		blockKey := "auth_block:" + ip

		state, err := g.blocks.Peek(c, blockKey)
		if err != nil {
			g.logger.Error().Err(err).Msg("auth guard lookup failed")
		} else if state.Reached {
			retry := time.Until(time.Unix(state.Reset, 0))
			if retry < time.Second {
				retry = time.Second
			}
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many failed attempts, try again later"})
			return
		}

		c.Next()

		if c.Writer.Status() != http.StatusUnauthorized {
			return
		}
		failKey := "auth_fail:" + ip
		fail, err := g.failures.Get(c, failKey)
		if err != nil {
			g.logger.Error().Err(err).Msg("auth guard record failed")
			return
		}
		if fail.Remaining > 0 {
			return
		}

		// Two hits exceed the block rate's limit of one, so Peek reports
		// Reached until the block period ends.
		for i := 0; i < 2; i++ {
			if _, err := g.blocks.Get(c, blockKey); err != nil {
				g.logger.Error().Err(err).Msg("auth guard block failed")
				return
			}
		}
		if _, err := g.failures.Reset(c, failKey); err != nil {
			g.logger.Warn().Err(err).Msg("auth guard reset failed")
		}
		g.logger.Warn().Str("client_ip", ip).Dur("duration", g.block).Msg("blocking client after failed auth attempts")
	}
}

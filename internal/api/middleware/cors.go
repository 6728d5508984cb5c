package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MacJediWizard/dealbook/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ErrOpenCORS is returned when production starts without an origin allowlist.
var ErrOpenCORS = errors.New("CORS_ORIGINS must be set in production")

// CORS returns a middleware that handles Cross-Origin Resource Sharing.
// Outside production an empty allowlist allows every origin.
func CORS(allowedOrigins []string, env config.Environment, logger zerolog.Logger) (gin.HandlerFunc, error) {
	if len(allowedOrigins) == 0 {
		if env.IsProduction() {
			return nil, ErrOpenCORS
		}
		logger.Warn().Str("component", "cors").Msg("CORS_ORIGINS is empty, all origins are allowed")
	}

	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[strings.ToLower(strings.TrimRight(origin, "/"))] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := allowAll
		if !allowed && origin != "" {
			_, allowed = originSet[strings.ToLower(origin)]
		}

		if allowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset")
			c.Header("Access-Control-Max-Age", "86400")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}, nil
}

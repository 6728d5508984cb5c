package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// cspAPI is a strict Content-Security-Policy for JSON and file responses.
const cspAPI = "default-src 'none'; frame-ancestors 'none'"

// cspDocs is the Content-Security-Policy for the Swagger UI, which relies on
// inline scripts and styles.
const cspDocs = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; font-src 'self'; frame-ancestors 'none'"

// SecurityHeaders returns a middleware that sets security-related HTTP response headers.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		if isDocsRoute(c.Request.URL.Path) {
			c.Header("Content-Security-Policy", cspDocs)
		} else {
			c.Header("Content-Security-Policy", cspAPI)
		}

		c.Next()
	}
}

func isDocsRoute(path string) bool {
	return strings.HasPrefix(path, "/api/docs")
}

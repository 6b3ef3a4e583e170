package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/edgecam/errors"
)

// AuthConfig configures the bearer token middleware.
type AuthConfig struct {
	// TokenValidator validates a token string and returns the claims.
	TokenValidator func(token string) (map[string]interface{}, error)
	// SkipPaths are URL path prefixes that bypass authentication.
	SkipPaths []string
	// QueryParam, when set, is read for the token if no Authorization
	// header is present. Browsers cannot set headers on WebSocket
	// upgrades.
	QueryParam string
}

// Auth returns a Gin middleware that validates Bearer tokens using the
// configured TokenValidator. Validated claims are stored in the Gin context.
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if strings.HasPrefix(path, skip) {
				c.Next()
				return
			}
		}

		token, ok := bearerToken(c, cfg.QueryParam)
		if !ok {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		claims, err := cfg.TokenValidator(token)
		if err != nil {
			abortUnauthorized(c, "Invalid token")
			return
		}

		for key, value := range claims {
			c.Set(key, value)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context, queryParam string) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if queryParam != "" {
			if token := c.Query(queryParam); token != "" {
				return token, true
			}
		}
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func abortUnauthorized(c *gin.Context, reason string) {
	c.Header("WWW-Authenticate", `Bearer realm="edgecam"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, errors.Unauthorized(reason).ToResponse())
}

package middleware

import (
	"strings"

	"clipstream/internal/api/response"
	"clipstream/internal/config"
	"clipstream/internal/service"
	"clipstream/pkg/utils"

	"github.com/gin-gonic/gin"
)

const ContextKeyCaller = "currentCaller"

// AuthRequired rejects requests without a valid bearer token.
func AuthRequired(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "authentication credentials were not provided")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(cfg, token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		setCaller(c, claims)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is present and lets
// anonymous requests through. A malformed or expired token is still refused.
func OptionalAuth(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := utils.ParseToken(cfg, token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		setCaller(c, claims)
		c.Next()
	}
}

func setCaller(c *gin.Context, claims *utils.Claims) {
	c.Set(ContextKeyCaller, service.Caller{
		UserID:    claims.UserID,
		ChannelID: claims.ChannelID,
		IsStaff:   claims.IsStaff,
	})
}

// CurrentCaller returns the identity set by the auth middleware, or the
// anonymous caller.
func CurrentCaller(c *gin.Context) service.Caller {
	val, exists := c.Get(ContextKeyCaller)
	if !exists {
		return service.Caller{}
	}
	caller, _ := val.(service.Caller)
	return caller
}

// extractToken reads a Bearer token from the Authorization header.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxClaimsKey = "auth_claims"

// VersionStore returns the current token version of a user; *Repo satisfies it.
type VersionStore interface {
	GetTokenVersion(ctx context.Context, id string) (int, error)
}

// AuthMiddleware accepts "Authorization: Bearer <jwt>" or, for EventSource
// clients that cannot set headers, a ?token= query parameter.
func AuthMiddleware(tokens TokenService, versions VersionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractToken(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, ok := verify(c, tokens, versions, raw)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Next()
	}
}

// OptionalAuth sets claims when a valid token is present and never aborts.
func OptionalAuth(tokens TokenService, versions VersionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := extractToken(c); raw != "" {
			if claims, ok := verify(c, tokens, versions, raw); ok {
				c.Set(CtxClaimsKey, claims)
			}
		}
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := MustGetClaims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

func MustGetClaims(c *gin.Context) *Claims {
	v, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

func extractToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > len("bearer ") && strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[len("Bearer "):])
	}
	return strings.TrimSpace(c.Query("token"))
}

func verify(c *gin.Context, tokens TokenService, versions VersionStore, raw string) (*Claims, bool) {
	claims, err := tokens.Parse(raw)
	if err != nil {
		return nil, false
	}
	if versions != nil {
		current, err := versions.GetTokenVersion(c.Request.Context(), claims.UserID)
		if err != nil || current != claims.TokenVersion {
			return nil, false
		}
	}
	return claims, true
}

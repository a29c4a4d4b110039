package middleware

import (
	"context"
	"net/http"
	"strings"

	"solis/internal/auth"
	"solis/internal/model"
	"solis/internal/permission"

	"github.com/gin-gonic/gin"
)

const (
	UserIDKey   = "userID"
	UserKey     = "user"
	IdentityKey = "identity"
)

// ProfileResolver turns a verified identity into the effective profile, ok
// false when no profile exists for it. *session.Provider implements it.
type ProfileResolver interface {
	Resolve(ctx context.Context, id auth.Identity) (*model.User, bool)
}

// JWTAuthMiddleware requires a valid bearer token and stores the identity, the
// user id and the resolved profile in the context.
func JWTAuthMiddleware(verifier auth.Verifier, profiles ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		raw, ok := bearer(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		if !authenticate(c, verifier, profiles, raw) {
			return
		}
		c.Next()
	}
}

// OptionalAuth authenticates when a bearer token is present and lets
// anonymous requests through unchanged.
func OptionalAuth(verifier auth.Verifier, profiles ProfileResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}
		if !authenticate(c, verifier, profiles, raw) {
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, verifier auth.Verifier, profiles ProfileResolver, raw string) bool {
	identity, err := verifier.Verify(c.Request.Context(), raw)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return false
	}

	userID, err := identity.UserID()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
		return false
	}

	user, ok := profiles.Resolve(c.Request.Context(), *identity)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
		return false
	}
	if !user.IsActive {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return false
	}

	c.Set(IdentityKey, identity)
	c.Set(UserIDKey, userID)
	c.Set(UserKey, user)
	return true
}

func bearer(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// RequirePermission rejects actors whose stored permissions lack capability.
func RequirePermission(capability permission.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		if !permission.Allows(user.Permissions, capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You don't have permission to perform this action"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}

func CurrentIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}
	id, ok := v.(*auth.Identity)
	return id, ok && id != nil
}

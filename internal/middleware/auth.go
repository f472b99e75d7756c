package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/crewhq/gateway/internal/routing"
)

// Context keys for identity information
const (
	ContextKeyAuthState = "auth_state"
	ContextKeyUserID    = "user_id"
	ContextKeyEmail     = "email"
)

// SessionTokenCookie carries the session token for browser navigation,
// where no Authorization header is available.
const SessionTokenCookie = "crewhq_session"

// AuthConfig holds configuration for the auth-state middleware
type AuthConfig struct {
	// Secret key for validating session tokens. Empty disables
	// verification: every request gets AuthUnknown and the redirect
	// policy does not gate.
	Secret string
}

// AuthState classifies the requester into the policy's auth states without
// aborting: the redirect policy engine, not this middleware, decides what an
// unauthenticated request becomes. A valid token also injects user identity
// into the request context.
func AuthState(config *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.Secret == "" {
			c.Set(ContextKeyAuthState, routing.AuthUnknown)
			c.Next()
			return
		}

		tokenString := extractToken(c)
		if tokenString == "" {
			c.Set(ContextKeyAuthState, routing.AuthUnauthenticated)
			c.Next()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(config.Secret), nil
		})
		if err != nil || !token.Valid {
			// Expired or forged tokens are simply not authenticated.
			c.Set(ContextKeyAuthState, routing.AuthUnauthenticated)
			c.Next()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.Set(ContextKeyAuthState, routing.AuthUnauthenticated)
			c.Next()
			return
		}

		userID, _ := claims["user_id"].(string)
		if userID == "" {
			c.Set(ContextKeyAuthState, routing.AuthUnauthenticated)
			c.Next()
			return
		}

		email, _ := claims["email"].(string)

		c.Set(ContextKeyAuthState, routing.AuthAuthenticated)
		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyEmail, email)

		c.Next()
	}
}

// extractToken pulls the session token from the Authorization header or the
// session cookie, header first.
func extractToken(c *gin.Context) string {
	const bearerPrefix = "Bearer "
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, bearerPrefix) {
		return authHeader[len(bearerPrefix):]
	}
	if cookie, err := c.Request.Cookie(SessionTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// GetAuthState extracts the auth state from gin context, defaulting to
// AuthUnknown when the middleware did not run.
func GetAuthState(c *gin.Context) routing.AuthState {
	v, exists := c.Get(ContextKeyAuthState)
	if !exists {
		return routing.AuthUnknown
	}
	state, ok := v.(routing.AuthState)
	if !ok {
		return routing.AuthUnknown
	}
	return state
}

// GetUserID extracts the authenticated user ID from gin context
func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

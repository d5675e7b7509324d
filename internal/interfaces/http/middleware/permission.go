package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/infrastructure/auth"
)

// AdminKeyHeader carries the shared admin key accepted as a fallback on
// admin routes when the caller holds no admin JWT. The configured value is
// a bcrypt hash; the header carries the plaintext key.
const AdminKeyHeader = "X-Admin-Key"

// adminVerifiedKey marks a request that already passed the admin gate so
// handlers can re-check cheaply.
const adminVerifiedKey = "admin_verified"

// AdminGateConfig holds configuration for the admin gate middleware
type AdminGateConfig struct {
	// Verifier checks the X-Admin-Key header; nil disables the fallback
	Verifier *auth.AdminKeyVerifier
	// Logger for middleware logging
	Logger *zap.Logger
	// OnDenied is called when access is denied (optional)
	OnDenied func(c *gin.Context)
}

// RequireAdmin creates middleware that only lets admin requests through.
// A request is admin when its JWT claims carry the admin role, or when the
// X-Admin-Key header verifies against the configured hash.
func RequireAdmin(verifier *auth.AdminKeyVerifier) gin.HandlerFunc {
	return RequireAdminWithConfig(AdminGateConfig{Verifier: verifier})
}

// RequireAdminWithConfig creates the admin gate with custom config
func RequireAdminWithConfig(cfg AdminGateConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if resolveAdmin(c, cfg.Verifier) {
			if cfg.Logger != nil {
				cfg.Logger.Debug("Admin gate passed",
					zap.String("user_id", GetJWTUserID(c)),
					zap.String("path", c.Request.URL.Path),
				)
			}
			c.Next()
			return
		}
		handleAdminDenied(c, cfg)
	}
}

// ResolveAdmin marks the request admin-verified without aborting. Routes
// where only some operations need admin rights (hard delete behind a query
// flag) run this and let the handler consult AdminVerified.
func ResolveAdmin(verifier *auth.AdminKeyVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		resolveAdmin(c, verifier)
		c.Next()
	}
}

// AdminVerified reports whether an earlier middleware marked the request
// as admin
func AdminVerified(c *gin.Context) bool {
	if v, exists := c.Get(adminVerifiedKey); exists {
		if verified, ok := v.(bool); ok {
			return verified
		}
	}
	return false
}

// resolveAdmin runs both admin checks and caches the outcome on the context
func resolveAdmin(c *gin.Context, verifier *auth.AdminKeyVerifier) bool {
	if AdminVerified(c) {
		return true
	}

	if claims := GetJWTClaims(c); claims != nil && claims.IsAdmin() {
		c.Set(adminVerifiedKey, true)
		return true
	}

	if verifier != nil && verifier.Enabled() {
		if key := c.GetHeader(AdminKeyHeader); key != "" {
			if err := verifier.Verify(key); err == nil {
				c.Set(adminVerifiedKey, true)
				return true
			}
		}
	}

	return false
}

// handleAdminDenied handles admin gate denials
func handleAdminDenied(c *gin.Context, cfg AdminGateConfig) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c)
		return
	}

	if cfg.Logger != nil {
		cfg.Logger.Warn("Admin gate denied",
			zap.String("user_id", GetJWTUserID(c)),
			zap.String("role", GetJWTRole(c)),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_FORBIDDEN",
			"message": "Access denied: administrator privileges required",
		},
	})
}

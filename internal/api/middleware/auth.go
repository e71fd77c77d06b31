package middleware

import (
	"log"
	"strings"
	"time"

	apperrors "github.com/Marga-Ghale/ora-collab-backend/internal/errors"
	"github.com/Marga-Ghale/ora-collab-backend/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	identityKey = "identity"
	tokenKey    = "token"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthMiddleware validates the bearer token and stores the caller's Identity.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			abort(c, apperrors.ErrUnauthenticated)
			return
		}

		ident, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			log.Printf("[Auth] Rejected token - Path: %s, Error: %v", c.Request.URL.Path, err)
			abort(c, err)
			return
		}

		c.Set(identityKey, ident)
		c.Set(tokenKey, token)
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	status, body := apperrors.ToResponse(err)
	c.AbortWithStatusJSON(status, body)
}

// GetIdentity returns the Identity stored by AuthMiddleware.
func GetIdentity(c *gin.Context) (service.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return service.Identity{}, false
	}
	ident, ok := v.(service.Identity)
	return ident, ok && ident.UserID != ""
}

// RequireIdentity writes a 401 and returns false when the request is unauthenticated.
func RequireIdentity(c *gin.Context) (service.Identity, bool) {
	ident, ok := GetIdentity(c)
	if !ok {
		abort(c, apperrors.ErrUnauthenticated)
		return service.Identity{}, false
	}
	return ident, true
}

// GetToken returns the raw bearer token of an authenticated request.
func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}

// RequestLogger logs all incoming requests with details
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Printf("[HTTP] %s %s %d - %v", method, path, c.Writer.Status(), time.Since(start))
		for _, e := range c.Errors {
			log.Printf("[HTTP] error: %v", e.Err)
		}
	}
}

package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
)

const ownerCtxKey = "owner"

// ownerMiddleware resolves the acting identity for cart and order routes.
// An upstream auth layer sets X-User-ID for authenticated users; guests
// carry the token issued by POST /guest-sessions as a bearer token.
func ownerMiddleware(guests GuestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := strings.TrimSpace(c.GetHeader("X-User-ID")); userID != "" {
			c.Set(ownerCtxKey, domain.UserKey(userID))
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrGuestSessionRequired.Error()})
			return
		}
		if err := guests.Validate(c.Request.Context(), token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrGuestSessionRequired.Error()})
			return
		}
		c.Set(ownerCtxKey, domain.GuestKey(token))
		c.Next()
	}
}

func ownerFromContext(c *gin.Context) domain.OwnerKey {
	if v, ok := c.Get(ownerCtxKey); ok {
		if owner, ok := v.(domain.OwnerKey); ok {
			return owner
		}
	}
	return domain.OwnerKey{}
}

// adminMiddleware guards order status transitions. An empty configured token
// disables the admin surface entirely.
func adminMiddleware(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" || c.GetHeader("X-Admin-Token") != adminToken {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": domain.ErrAccessDenied.Error()})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func issueGuestSessionHandler(guests GuestService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := guests.Issue(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create guest session"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"token":     token,
			"expiresIn": guests.TTLSeconds(),
		})
	}
}

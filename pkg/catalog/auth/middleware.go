package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/models"
	"go.uber.org/zap"
)

const (
	// ContextKeyUser is the key for the authenticated *models.User in gin context
	ContextKeyUser = "user"
)

// AuthMiddleware verifies the bearer token, upserts the identity and sets
// it as the request principal
func AuthMiddleware(verifier *Verifier, store IdentityStore, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			apperr.Respond(c, logger, err)
			return
		}

		claims, err := verifier.Verify(tokenString)
		if err != nil {
			apperr.Respond(c, logger, err)
			return
		}

		user, err := store.Upsert(c.Request.Context(), IdentityFromClaims(claims))
		if err != nil {
			apperr.Respond(c, logger, err)
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// RequirePlatformAdmin middleware checks the user is a platform administrator
func RequirePlatformAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := GetUser(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		if user.SystemRole != models.SystemRolePlatformAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Platform admin access required"})
			return
		}

		c.Next()
	}
}

// GetUser returns the authenticated user from the gin context
func GetUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// MustUser returns the authenticated user; routes using it sit behind AuthMiddleware
func MustUser(c *gin.Context) *models.User {
	user, ok := GetUser(c)
	if !ok {
		panic("auth: no user in context; route is missing AuthMiddleware")
	}
	return user
}

package tenant

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/apperr"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/auth"
	"go.uber.org/zap"
)

// ContextKeyTenant is the key for the *tenant.Context in gin context
const ContextKeyTenant = "tenant"

// Middleware resolves the organization from the override header or the
// host and verifies the authenticated user's membership. It must run after
// auth.AuthMiddleware.
func Middleware(resolver *Resolver, baseDomain string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := auth.GetUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		slug, err := SlugFromRequest(c.Request.Host, c.GetHeader(HeaderOrganization), baseDomain)
		if err != nil {
			apperr.Respond(c, logger, err)
			return
		}

		tc, err := resolver.Resolve(c.Request.Context(), slug, user)
		if err != nil {
			if apperr.Is(err, apperr.KindAuthorization) {
				logger.Info("tenant access denied",
					zap.String("slug", slug),
					zap.Uint("user_id", user.ID))
			}
			apperr.Respond(c, logger, err)
			return
		}

		c.Set(ContextKeyTenant, tc)
		c.Next()
	}
}

// FromGin returns the tenant set by Middleware
func FromGin(c *gin.Context) (*Context, bool) {
	v, exists := c.Get(ContextKeyTenant)
	if !exists {
		return nil, false
	}
	tc, ok := v.(*Context)
	return tc, ok
}

// MustFromGin returns the tenant; routes using it sit behind Middleware
func MustFromGin(c *gin.Context) *Context {
	tc, ok := FromGin(c)
	if !ok {
		panic("tenant: no tenant in context; route is missing tenant.Middleware")
	}
	return tc
}

// RequireOrgAdmin middleware checks if the user is an admin of the current organization
func RequireOrgAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, exists := FromGin(c)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Organization context required"})
			return
		}

		if !tc.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Organization admin access required"})
			return
		}

		c.Next()
	}
}

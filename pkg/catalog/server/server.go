// Package server assembles the HTTP surface: middleware chain, public
// endpoints and every tenant-scoped handler.
package server

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/auth"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/classes"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/config"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/customers"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/importexport"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/locations"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/logging"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/metrics"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/organizations"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/payments"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/plans"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tags"
	"github.com/heber-eastman/Catalogv2-sub001/pkg/catalog/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the process-wide collaborators the handlers share
type Deps struct {
	DB       *gorm.DB
	Config   config.Config
	Verifier *auth.Verifier
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// New builds the router and wraps it with the CORS policy
func New(d Deps) http.Handler {
	return CORS(d.Config.CORSOrigins)(Router(d))
}

// Router builds the gin engine with all routes registered
func Router(d Deps) *gin.Engine {
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	r := gin.New()
	r.Use(
		logging.RequestID(),
		logging.AccessLog(d.Logger),
		gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
			logging.FromContext(c, d.Logger).Error("panic recovered", zap.Any("panic", recovered))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}),
		d.Metrics.Middleware(),
	)

	health := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "catalog",
		})
	}
	r.GET("/health", health)
	r.GET("/metrics", d.Metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", health)

	identities := auth.NewGormIdentityStore(d.DB)
	authenticated := api.Group("", auth.AuthMiddleware(d.Verifier, identities, d.Logger))

	// Identity only: no tenant is needed to ask who you are
	auth.NewHandler(d.DB, d.Logger).RegisterRoutes(authenticated.Group("/auth"))

	orgHandler := organizations.NewHandler(d.DB, d.Logger)
	orgHandler.RegisterPlatformRoutes(authenticated.Group("/platform"))

	// Everything below is scoped to the organization named by the request
	resolver := tenant.NewResolver(tenant.NewGormStore(d.DB))
	scoped := authenticated.Group("", tenant.Middleware(resolver, d.Config.PlatformDomain, d.Logger))

	orgHandler.RegisterRoutes(scoped)
	locations.NewHandler(d.DB, d.Logger).RegisterRoutes(scoped)
	customers.NewHandler(d.DB, d.Logger).RegisterRoutes(scoped)
	importexport.NewHandler(d.DB, d.Logger).RegisterRoutes(scoped)
	tags.NewHandler(d.DB, d.Logger).RegisterRoutes(scoped)
	plans.NewHandler(d.DB, d.Logger).RegisterRoutes(scoped)
	payments.NewHandler(d.DB, d.Logger).RegisterRoutes(scoped)

	svc := classes.NewService(d.DB, d.Clock, d.Config.SessionHorizonMonths, d.Metrics, d.Logger)
	classes.NewHandler(d.DB, svc, d.Logger).RegisterRoutes(scoped)

	return r
}

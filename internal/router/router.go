package router

import (
	"authgate/internal/auth"
	"authgate/internal/config"
	"authgate/internal/handler"
	"authgate/internal/metrics"
	"authgate/internal/middleware"
	"authgate/internal/store"
	"authgate/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// SetupRouter wires handlers, the gate middleware and the metrics endpoint.
func SetupRouter(cfg *config.Config, s *store.Store, gate *auth.Gate, m *metrics.Metrics, log *logrus.Logger) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	hasher := util.NewBcryptHasher(cfg.Auth.BcryptCost)
	authHandler := handler.NewAuthHandler(s, gate, hasher, cfg.Auth, log)
	userHandler := handler.NewUserHandler(s, hasher, log)

	api := r.Group("/api")

	// login and logout need no prior authentication
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)

	// registration policy: open when self-registration is allowed,
	// superuser-gated otherwise
	if cfg.Auth.AllowSelfRegistration {
		api.POST("/auth/register", authHandler.Register)
	} else {
		api.POST("/auth/register",
			middleware.Authenticated(gate), middleware.RequireSuperuser(),
			authHandler.Register)
	}

	protected := api.Group("", middleware.Authenticated(gate), middleware.Audit(s))
	protected.GET("/users/me", userHandler.GetMe)

	if cfg.Auth.AllowSelfRegistration {
		protected.PATCH("/users/:username", userHandler.UpdateUser)
	} else {
		protected.PATCH("/users/:username", middleware.RequireSuperuser(), userHandler.UpdateUser)
	}

	admin := protected.Group("", middleware.RequireSuperuser())
	admin.GET("/users", userHandler.ListUsers)
	admin.DELETE("/users/:username", userHandler.DeleteUser)
	admin.POST("/users/:username/privileges", userHandler.GrantPrivilege)
	admin.DELETE("/users/:username/privileges/:scope", userHandler.RevokePrivilege)

	auditHandler := handler.NewAuditHandler(s)
	admin.GET("/audit", auditHandler.ListLogs)

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	return r
}

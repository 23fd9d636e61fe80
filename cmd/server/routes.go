package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/huangang/teamdesk/internal/middleware"
	"github.com/huangang/teamdesk/internal/models"
	"github.com/huangang/teamdesk/pkg/logger"
)

// route declares one endpoint. Protected routes run AuthRequired, AuditLog
// and RequireRoles(roles...) before the handler; a nil roles slice admits
// any authenticated caller.
type route struct {
	method  string
	path    string
	handler gin.HandlerFunc
	roles   []string
}

var (
	managers   = []string{models.RoleAdmin, models.RoleProjectManager}
	adminsOnly = []string{models.RoleAdmin}
)

func publicRoutes(svc *appServices) []route {
	return []route{
		{http.MethodGet, "/users", svc.userHandler.List, nil},
		{http.MethodPost, "/users", svc.userHandler.Create, nil},
		{http.MethodGet, "/users/role/:role", svc.userHandler.ListByRole, nil},
		{http.MethodGet, "/users/team/:teamId", svc.userHandler.ListByTeam, nil},
		{http.MethodGet, "/users/:id", svc.userHandler.Get, nil},
		{http.MethodPatch, "/users/:id", svc.userHandler.Update, nil},
		{http.MethodDelete, "/users/:id", svc.userHandler.Delete, nil},
	}
}

func protectedRoutes(svc *appServices) []route {
	return []route{
		{http.MethodGet, "/auth/me", svc.authHandler.Me, nil},

		{http.MethodPost, "/teams", svc.teamHandler.Create, managers},
		{http.MethodGet, "/teams", svc.teamHandler.List, nil},
		{http.MethodGet, "/teams/manager/:managerId", svc.teamHandler.ListByManager, nil},
		{http.MethodGet, "/teams/member/:memberId", svc.teamHandler.ListByMember, nil},
		{http.MethodGet, "/teams/:id", svc.teamHandler.Get, nil},
		{http.MethodPatch, "/teams/:id", svc.teamHandler.Update, managers},
		{http.MethodDelete, "/teams/:id", svc.teamHandler.Delete, adminsOnly},
		{http.MethodPost, "/teams/:id/members/:userId", svc.teamHandler.AddMember, managers},
		{http.MethodDelete, "/teams/:id/members/:userId", svc.teamHandler.RemoveMember, managers},

		{http.MethodGet, "/system-logs", svc.systemLogHandler.List, adminsOnly},
	}
}

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS())

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", svc.metricsHandler.Metrics)

	api := r.Group("/api")

	auth := api.Group("/auth", svc.authLimiter.Middleware())
	{
		auth.POST("/register", svc.authHandler.Register)
		auth.POST("/login", svc.authHandler.Login)
	}

	for _, rt := range publicRoutes(svc) {
		api.Handle(rt.method, rt.path, rt.handler)
	}

	protected := api.Group("", middleware.AuthRequired(), middleware.AuditLog())
	for _, rt := range protectedRoutes(svc) {
		protected.Handle(rt.method, rt.path, middleware.RequireRoles(rt.roles...), rt.handler)
	}
}

package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"domainmap/internal/hooks"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	g := s.echo.Group("/hooks")

	// Login and per-request registration
	g.POST("/"+hooks.HookAuthenticate, s.handleAuthenticate)
	g.POST("/init", s.handleInit, s.loadSession)

	// Connection hooks
	g.POST("/"+hooks.HookUserCreate, s.connectHook(hooks.HandleUserCreate), s.loadSession)
	g.POST("/"+hooks.HookStorageConnect, s.connectHook(hooks.HandleStorageConnect), s.loadSession)
	g.POST("/"+hooks.HookSMTPConnect, s.connectHook(hooks.HandleSMTPConnect), s.loadSession)
	g.POST("/"+hooks.HookManageSieveConnect, s.connectHook(hooks.HandleManageSieveConnect), s.loadSession)
	g.POST("/"+hooks.HookSieveRulesConnect, s.connectHook(hooks.HandleSieveRulesConnect), s.loadSession)
}

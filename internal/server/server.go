// Package server exposes the hook handlers over HTTP for webmail hosts that
// cannot link the Go packages directly.
//
// The route of a session travels as a sealed token: authenticate returns it,
// and every later hook call sends it back in the "session" field.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"domainmap/internal/conf"
	"domainmap/internal/logging"
	"domainmap/internal/route"
	"domainmap/internal/token"
)

// Server is the HTTP hook API.
type Server struct {
	echo      *echo.Echo
	config    *conf.Config
	domains   route.DomainMap
	sealer    *token.Sealer
	startTime time.Time
}

// NewServer builds the hook API. domains must not be modified afterwards.
func NewServer(cfg *conf.Config, domains route.DomainMap, sealer *token.Sealer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logging.Logger.Debug("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			)
			return nil
		},
	}))

	srv := &Server{
		echo:      e,
		config:    cfg,
		domains:   domains,
		sealer:    sealer,
		startTime: time.Now(),
	}
	srv.registerRoutes()

	return srv
}

// ServeHTTP lets the server be used as a plain http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	logging.Logger.Info("hook API listening", "addr", s.config.Listen, "domains", len(s.domains))
	return s.echo.Start(s.config.Listen)
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

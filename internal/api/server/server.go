// Package server wires the gin engine and HTTP server for the registry API
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/entitlement-registry/internal/api/middleware"
	"github.com/feral-file/entitlement-registry/internal/api/rest"
	"github.com/feral-file/entitlement-registry/internal/config"
	"github.com/feral-file/entitlement-registry/internal/registry"
)

// Server is the HTTP API server
type Server struct {
	httpServer *http.Server
}

// New creates an API server for the given registry
func New(cfg *config.APIConfig, reg *registry.Registry) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.SetupCORS())

	handler := rest.NewHandler(reg)
	rest.SetupRoutes(router, handler, middleware.AuthConfig{APIKeys: cfg.Auth.APIKeys})

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		},
	}
}

// Addr returns the address the server listens on
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start begins serving requests. It blocks until the server stops.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, draining in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Package api exposes the HTTP surface of the pipeline: the SSE endpoint
// bridging authenticated clients to the bus, plus health and metrics.
// Session management proper lives outside; the server only needs a function
// that extracts the authenticated viewer from a request.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabienmoyon/socialInbox/core/bus"
	"github.com/fabienmoyon/socialInbox/core/dispatch"
	"github.com/fabienmoyon/socialInbox/core/event"
	"github.com/fabienmoyon/socialInbox/core/gateway"
)

// AuthFunc extracts the authenticated viewer from a request. ok is false
// when the request carries no usable identity.
type AuthFunc func(c *gin.Context) (viewer event.Actor, ok bool)

// HeaderAuth trusts identity headers set by an upstream session layer.
func HeaderAuth() AuthFunc {
	return func(c *gin.Context) (event.Actor, bool) {
		id := c.GetHeader("X-User-Id")
		if id == "" {
			return event.Actor{}, false
		}
		return event.Actor{
			ID:          id,
			DisplayName: c.GetHeader("X-User-Name"),
			Email:       c.GetHeader("X-User-Email"),
		}, true
	}
}

type ServerConfig struct {
	Addr      string
	Bus       bus.Bus
	Registry  *dispatch.Registry
	Auth      AuthFunc
	Log       *slog.Logger           // Log for diagnostics (optional)
	Heartbeat time.Duration          // SSE heartbeat interval, default 3s
	Metrics   gateway.SessionMetrics // Metrics sink (optional)
	Gatherer  prometheus.Gatherer    // Gatherer for /metrics (optional)
}

type Server struct {
	addr      string
	bus       bus.Bus
	registry  *dispatch.Registry
	auth      AuthFunc
	log       *slog.Logger
	heartbeat time.Duration
	metrics   gateway.SessionMetrics
	router    *gin.Engine
}

func NewServer(cfg ServerConfig) *Server {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	s := &Server{
		addr:      cfg.Addr,
		bus:       cfg.Bus,
		registry:  cfg.Registry,
		auth:      cfg.Auth,
		heartbeat: cfg.Heartbeat,
		metrics:   cfg.Metrics,
		log:       log.With(slog.String("component", "api")),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}
	router.GET("/api/sse/:clientId", s.handleSSE)

	s.router = router
	return s
}

// Router exposes the handler for tests and embedding.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleSSE(c *gin.Context) {
	viewer, ok := s.auth(c)
	if !ok || viewer.ID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication needed"})
		return
	}

	clientID := c.Param("clientId")
	if err := gateway.ValidateClientID(clientID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := gateway.NewSession(gateway.SessionConfig{
		Viewer:    viewer,
		ClientID:  clientID,
		Bus:       s.bus,
		Registry:  s.registry,
		Writer:    gateway.NewSSEWriter(c.Writer),
		Log:       s.log,
		Heartbeat: s.heartbeat,
		Metrics:   s.metrics,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	gateway.PrepareHeaders(c.Writer.Header())
	c.Status(http.StatusOK)
	c.Writer.Flush()

	// blocks until the client disconnects
	if err := session.Run(c.Request.Context()); err != nil {
		s.log.Error("session ended with error", slog.Any("error", err), slog.String("sse", session.ID()))
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("shutdown failed", slog.Any("error", err))
		}
	})

	s.log.Info("listening", slog.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

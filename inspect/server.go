package inspect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kbukum/modkit/logger"
)

const shutdownTimeout = 5 * time.Second

// Server serves a Handler on its own listener.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	log        *logger.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a server on addr with recovery, request id and request
// logging middleware installed.
func NewServer(addr string, h *Handler, log *logger.Logger) *Server {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("inspect")

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(Recovery(log), RequestID(), RequestLogger(log))
	h.Register(engine)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		engine: engine,
		log:    log,
	}
}

// Engine returns the gin engine for additional routes.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start binds the address and serves in the background. It returns once
// the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("inspect server failed to bind %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("inspect server stopped unexpectedly")
		}
	}()

	s.log.Info("inspect server started", map[string]interface{}{"addr": ln.Addr().String()})
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("inspect server shutdown: %w", err)
	}
	s.log.Info("inspect server stopped")
	return nil
}

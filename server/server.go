// Package server assembles the gin engine and runs it with graceful shutdown.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"rollcall-roster/handlers"
	"rollcall-roster/logging"
	"rollcall-roster/service"
)

const DefaultAddress = ":8080"

// Options configures the HTTP server.
type Options struct {
	Addr              string
	Mode              string // gin mode
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	Logger            *zap.Logger
}

// Server serves the roster API.
type Server struct {
	http   *http.Server
	logger *zap.Logger
	opts   Options
}

// NewRouter builds the gin engine serving roster over the API routes.
func NewRouter(roster *service.Roster, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(logging.GinRecovery(logger), logging.GinLogger(logger))
	router.Use(allowRequestedHeaders(), cors.New(CORSConfig()))

	handlers.NewAPIHandler(roster).Register(router)
	return router
}

// CORSConfig lets any origin call the API with credentials. A literal "*"
// origin cannot be combined with credentials, so every origin is echoed back.
// Allowed headers are echoed the same way by allowRequestedHeaders.
func CORSConfig() cors.Config {
	return cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
}

// allowRequestedHeaders answers a preflight with the headers it asked for.
// Browsers treat "*" in Access-Control-Allow-Headers as a literal name on
// credentialed requests, so any-header has to be spelled out per request.
// It must run before the cors middleware, which writes the preflight response.
func allowRequestedHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		req := c.Request
		if req.Method == http.MethodOptions && req.Header.Get("Origin") != "" {
			if requested := req.Header.Get("Access-Control-Request-Headers"); requested != "" {
				c.Writer.Header().Set("Access-Control-Allow-Headers", requested)
			}
		}
		c.Next()
	}
}

// ErrNilRoster is returned by New when no roster is given.
var ErrNilRoster = errors.New("server: roster is nil")

// New constructs a Server bound to roster. It does not listen until Run.
func New(roster *service.Roster, opts Options) (*Server, error) {
	if roster == nil {
		return nil, ErrNilRoster
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddress
	}
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 5 * time.Second
	}
	if opts.ReadHeaderTimeout == 0 {
		opts.ReadHeaderTimeout = 2 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.IdleTimeout == 0 {
		opts.IdleTimeout = 60 * time.Second
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Server{
		logger: opts.Logger,
		opts:   opts,
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           NewRouter(roster, opts.Logger),
			ReadTimeout:       opts.ReadTimeout,
			ReadHeaderTimeout: opts.ReadHeaderTimeout,
			WriteTimeout:      opts.WriteTimeout,
			IdleTimeout:       opts.IdleTimeout,
			ErrorLog:          zap.NewStdLog(opts.Logger),
		},
	}, nil
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting server", zap.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down server")
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

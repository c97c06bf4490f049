package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-errors/errors"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/spektr-org/cropyield/dataset"
	"github.com/spektr-org/cropyield/engine"
)

// ============================================================================
// SERVER — JSON API over the loaded dataset
// ============================================================================

// Source provides the current dataset and reloads it on demand.
type Source interface {
	Current() (*dataset.Snapshot, error)
	Reload(ctx context.Context) (*dataset.Snapshot, error)
}

// Server is the HTTP front of the dashboard.
type Server struct {
	echo            *echo.Echo
	source          Source
	aggregator      *engine.CachedAggregator
	logger          *zap.Logger
	allowOrigins    []string
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for access and error logs.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAggregator sets the aggregator behind /api/records.
func WithAggregator(a *engine.CachedAggregator) Option {
	return func(s *Server) { s.aggregator = a }
}

// WithAllowOrigins sets the CORS origins. Defaults to "*".
func WithAllowOrigins(origins ...string) Option {
	return func(s *Server) { s.allowOrigins = origins }
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// New wires routes and middleware around source.
func New(source Source, opts ...Option) *Server {
	s := &Server{
		source:          source,
		allowOrigins:    []string{"*"},
		shutdownTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.aggregator == nil {
		s.aggregator = engine.NewCachedAggregator(engine.WithLogger(s.logger))
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{v: validator.New()}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.Error("panic recovered",
				zap.String("path", c.Request().URL.Path),
				zap.Error(err),
				zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote", v.RemoteIP),
			}
			if v.Error != nil {
				s.logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.logger.Info("request", fields...)
			return nil
		},
	}))

	e.GET("/healthz", s.health)
	api := e.Group("/api")
	api.GET("/options", s.options)
	api.GET("/records", s.records)
	api.GET("/raw", s.raw)
	api.GET("/charts/trend", s.trendChart)
	api.GET("/charts/choropleth", s.choropleth)
	api.GET("/charts/composition", s.compositionChart)
	api.GET("/charts/ratio", s.ratioChart)
	api.GET("/summary/growth", s.growth)
	api.GET("/dashboard", s.dashboard)
	api.POST("/reload", s.reload)

	s.echo = e
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.WrapPrefix(err, "http server", 0)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return errors.WrapPrefix(err, "http shutdown", 0)
	}
	return nil
}

type requestValidator struct {
	v *validator.Validate
}

func (rv *requestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

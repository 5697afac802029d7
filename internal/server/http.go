package server

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"llmarena/config"
	"llmarena/internal/core"
)

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	MetricsEnabled  bool     // Whether to expose Prometheus metrics endpoint
	MetricsEndpoint string   // HTTP path for metrics endpoint (default: /metrics)
	BodySizeLimit   int64    // Max request body size in bytes (default: 1MB)
	CORSOrigins     []string // Allowed browser origins; empty disables CORS
}

// New creates a new HTTP server
func New(engine Engine, cfg *Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	handler := NewHandler(engine)

	// Global middleware stack (order matters)
	e.Use(requestID())
	e.Use(requestLogger())
	e.Use(middleware.Recover())

	bodySizeLimit := config.DefaultBodySizeLimit
	if cfg != nil && cfg.BodySizeLimit > 0 {
		bodySizeLimit = cfg.BodySizeLimit
	}
	e.Use(middleware.BodyLimit(strconv.FormatInt(bodySizeLimit, 10)))

	if cfg != nil && len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
			AllowCredentials: true,
		}))
	}

	// Public routes
	e.GET("/", handler.Root)
	e.GET("/health", handler.Health)
	e.GET("/llms", handler.ListModels)
	if cfg != nil && cfg.MetricsEnabled {
		metricsPath := "/metrics"
		if cfg.MetricsEndpoint != "" {
			// Normalize path to prevent traversal attacks
			metricsPath = path.Clean(cfg.MetricsEndpoint)
		}
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	// Completion routes
	e.POST("/completion", handler.Completion)
	e.POST("/completion/batch", handler.BatchCompletion)
	e.POST("/stream", handler.Stream)
	e.POST("/stream/batch", handler.BatchStream)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// requestID reuses the client's X-Request-ID or assigns a fresh uuid, echoes
// it on the response and stores it in the request context.
func requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			c.SetRequest(req.WithContext(core.WithRequestID(req.Context(), id)))
			return next(c)
		}
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error.Error())
				slog.Error("request failed", attrs...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	})
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

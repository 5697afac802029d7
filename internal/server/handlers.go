// Package server provides HTTP handlers and server setup for the completion gateway.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"llmarena/internal/core"
	"llmarena/internal/version"
)

const serviceName = "llmarena"

// Engine runs completion requests. *engine.Orchestrator implements it.
type Engine interface {
	Models() core.ModelLookup
	Complete(ctx context.Context, modelID, prompt string, pacing time.Duration) (*core.CompletionResult, error)
	BatchComplete(ctx context.Context, req core.CompletionRequest) (*core.BatchResult, error)
	Stream(ctx context.Context, modelID, prompt string, pacing time.Duration) (<-chan core.Event, error)
	BatchStream(ctx context.Context, req core.CompletionRequest) (<-chan core.Event, error)
}

// Handler holds the HTTP handlers
type Handler struct {
	engine Engine
	now    func() time.Time
}

// NewHandler creates a new handler backed by engine
func NewHandler(engine Engine) *Handler {
	return &Handler{
		engine: engine,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type completionRequest struct {
	Prompt  string   `json:"prompt"`
	ModelID string   `json:"llm_id"`
	Delay   *float64 `json:"delay,omitempty"`
}

type batchCompletionRequest struct {
	Prompt   string   `json:"prompt"`
	ModelIDs []string `json:"llm_ids"`
	Delay    *float64 `json:"delay,omitempty"`
}

func (r batchCompletionRequest) toCore() core.CompletionRequest {
	return core.CompletionRequest{Prompt: r.Prompt, ModelIDs: r.ModelIDs, Pacing: pacing(r.Delay)}
}

// pacing converts the optional delay in seconds. An absent delay selects the
// default; a non-positive one is passed on as negative so validation rejects
// it in its usual order.
func pacing(delay *float64) time.Duration {
	if delay == nil {
		return 0
	}
	if *delay <= 0 {
		return -1
	}
	return max(time.Duration(*delay*float64(time.Second)), 1)
}

func bindError(err error) error {
	return core.NewInvalidRequestError("invalid request body: "+err.Error(), err)
}

// Completion handles POST /completion
func (h *Handler) Completion(c echo.Context) error {
	var req completionRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, bindError(err))
	}

	result, err := h.engine.Complete(c.Request().Context(), req.ModelID, req.Prompt, pacing(req.Delay))
	if err != nil {
		return handleError(c, err)
	}
	if refused(result) {
		return handleError(c, &core.GatewayError{Type: result.ErrorType, Message: result.Error, ModelID: result.ModelID})
	}
	return c.JSON(http.StatusOK, result)
}

// refused reports whether a single completion failed in a way that maps to
// its own HTTP status. Provider and internal failures stay inline.
func refused(result *core.CompletionResult) bool {
	switch result.ErrorType {
	case core.ErrorTypeRateLimited, core.ErrorTypeTimedOut, core.ErrorTypeServiceUnavailable:
		return true
	}
	return false
}

// BatchCompletion handles POST /completion/batch
func (h *Handler) BatchCompletion(c echo.Context) error {
	var req batchCompletionRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, bindError(err))
	}

	batch, err := h.engine.BatchComplete(c.Request().Context(), req.toCore())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, batch)
}

// Stream handles POST /stream
func (h *Handler) Stream(c echo.Context) error {
	var req completionRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, bindError(err))
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events, err := h.engine.Stream(ctx, req.ModelID, req.Prompt, pacing(req.Delay))
	if err != nil {
		return handleError(c, err)
	}
	return writeSSE(c, events, cancel)
}

// BatchStream handles POST /stream/batch
func (h *Handler) BatchStream(c echo.Context) error {
	var req batchCompletionRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, bindError(err))
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	events, err := h.engine.BatchStream(ctx, req.toCore())
	if err != nil {
		return handleError(c, err)
	}
	return writeSSE(c, events, cancel)
}

type modelListResponse struct {
	Models     []core.ModelDescriptor `json:"llms"`
	TotalCount int                    `json:"total_count"`
}

// ListModels handles GET /llms
func (h *Handler) ListModels(c echo.Context) error {
	models := h.engine.Models().List()
	return c.JSON(http.StatusOK, modelListResponse{Models: models, TotalCount: len(models)})
}

type healthResponse struct {
	Status          string    `json:"status"`
	Service         string    `json:"service"`
	Version         string    `json:"version"`
	Timestamp       time.Time `json:"timestamp"`
	AvailableModels []string  `json:"available_models"`
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:          "healthy",
		Service:         serviceName,
		Version:         version.Version,
		Timestamp:       h.now(),
		AvailableModels: h.engine.Models().IDs(),
	})
}

// Root handles GET /
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Welcome to the llmarena API",
		"version": version.Version,
	})
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		if !gatewayErr.IsRequestError() {
			core.Logger(c.Request().Context()).Warn("request failed", "error", gatewayErr.Error())
		}
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.ToJSON())
	}

	core.Logger(c.Request().Context()).Error("unexpected error", "error", err)
	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}

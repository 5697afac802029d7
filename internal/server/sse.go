package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"llmarena/internal/core"
	"llmarena/internal/engine"
)

// writeSSE writes every event as it arrives, flushing after each one. When
// the client stops reading, stop cancels the producers and the remaining
// events are drained so no producer is left blocked.
func writeSSE(c echo.Context, events <-chan core.Event, stop context.CancelFunc) error {
	ctx := c.Request().Context()
	res := c.Response()

	header := res.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	for ev := range events {
		name, data, err := engine.RenderEvent(ev)
		if err != nil {
			core.Logger(ctx).Error("failed to render event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", name, data); err != nil {
			core.Logger(ctx).Info("client went away", "error", err)
			stop()
			for range events {
			}
			return nil
		}
		res.Flush()
	}
	return nil
}

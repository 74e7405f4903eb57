package web

import (
	"bufio"
	"context"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/dukex/flowrun/pkg/events"
)

// StreamFlow runs the flow and writes every run event as a server-sent
// event. The run stops as soon as the client goes away.
func (h *APIHandlers) StreamFlow(c fiber.Ctx) error {
	req, err := h.bindExecuteRequest(c)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	// The request context is recycled once the handler returns, so the run
	// keeps its own copies.
	flowID := strings.Clone(c.Params("id"))
	actorID := strings.Clone(c.Get(ActorHeader))
	input := req.InputData

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Response().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		for event := range h.executionService.Stream(ctx, flowID, input, actorID) {
			frame, err := events.SSE(event)
			if err != nil {
				h.logger.ErrorContext(ctx, "Failed to encode run event", "flow_id", flowID, "error", err)

				return
			}

			if _, err := w.Write(frame); err != nil {
				h.logger.InfoContext(ctx, "Stream client disconnected", "flow_id", flowID)

				return
			}

			if err := w.Flush(); err != nil {
				h.logger.InfoContext(ctx, "Stream client disconnected", "flow_id", flowID)

				return
			}
		}
	})

	return nil
}

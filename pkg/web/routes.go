package web

import "github.com/gofiber/fiber/v3"

// Mount registers the flow, execution and health routes on router.
func Mount(router fiber.Router, h *APIHandlers) {
	f := router.Group("/flows")
	f.Get("/", h.GetFlows)
	f.Post("/", h.CreateFlow)
	f.Get("/:id", h.GetFlow)
	f.Put("/:id", h.UpdateFlow)
	f.Delete("/:id", h.DeleteFlow)
	f.Post("/:id/execute", h.ExecuteFlow)
	f.Post("/:id/execute/stream", h.StreamFlow)
	f.Post("/:id/trigger", h.TriggerFlow)
	f.Get("/:id/executions", h.GetFlowExecutions)

	router.Get("/executions/:id", h.GetExecution)
	router.Get("/node-types", h.GetNodeTypes)
	router.Get("/health", h.HealthCheck)
}

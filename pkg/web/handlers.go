package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/flowrun/pkg/protocol"
	"github.com/dukex/flowrun/pkg/services"
)

// NodeTypeLister exposes the registered node types.
type NodeTypeLister interface {
	Types() []protocol.NodeInfo
	HealthCheck() (string, bool)
}

type APIHandlers struct {
	flowService      *services.Flow
	executionService *services.Execution
	validator        *validator.Validate
	registry         NodeTypeLister
	logger           *slog.Logger
}

func NewAPIHandlers(
	flowService *services.Flow,
	executionService *services.Execution,
	validator *validator.Validate,
	registry NodeTypeLister,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		flowService:      flowService,
		executionService: executionService,
		validator:        validator,
		registry:         registry,
		logger:           logger.With("module", "web"),
	}
}

func (h *APIHandlers) GetFlows(c fiber.Ctx) error {
	flows, err := h.flowService.ListFlows(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flows)
}

func (h *APIHandlers) GetFlow(c fiber.Ctx) error {
	flow, err := h.flowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(flow)
}

func (h *APIHandlers) CreateFlow(c fiber.Ctx) error {
	var req SaveFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.flowService.Create(c.Context(), req.Flow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateFlow(c fiber.Ctx) error {
	var req SaveFlowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.flowService.Update(c.Context(), c.Params("id"), req.Flow())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteFlow(c fiber.Ctx) error {
	err := h.flowService.Delete(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// bindExecuteRequest accepts an empty body as an empty input.
func (h *APIHandlers) bindExecuteRequest(c fiber.Ctx) (ExecuteFlowRequest, error) {
	var req ExecuteFlowRequest

	if len(c.Body()) == 0 {
		return req, nil
	}

	err := c.Bind().JSON(&req)

	return req, err
}

// ExecuteFlow runs the flow and answers with the final execution record.
// Node failures are part of the record, so partial and failed runs are 200.
func (h *APIHandlers) ExecuteFlow(c fiber.Ctx) error {
	req, err := h.bindExecuteRequest(c)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	execution, err := h.executionService.Run(c.Context(), c.Params("id"), req.InputData, c.Get(ActorHeader))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

// TriggerFlow queues the flow for a worker.
func (h *APIHandlers) TriggerFlow(c fiber.Ctx) error {
	req, err := h.bindExecuteRequest(c)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	flowID := c.Params("id")

	eventID, err := h.executionService.Trigger(c.Context(), flowID, req.InputData, c.Get(ActorHeader))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(TriggerFlowResponse{EventID: eventID, FlowID: flowID})
}

func (h *APIHandlers) GetFlowExecutions(c fiber.Ctx) error {
	flowID := c.Params("id")

	if _, err := h.flowService.FetchByID(c.Context(), flowID); err != nil {
		return handleServiceError(c, err)
	}

	executions, err := h.executionService.ListByFlow(c.Context(), flowID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(executions)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	detail, err := h.executionService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(detail)
}

func (h *APIHandlers) GetNodeTypes(c fiber.Ctx) error {
	return c.JSON(h.registry.Types())
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.flowService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowrun API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Flowrun API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/dukex/flowrun/pkg/persistence"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/workflow"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, kind, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps service, persistence and engine errors to problems.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		var serviceErr *services.ServiceError
		if errors.As(err, &serviceErr) && serviceErr.Code != "" {
			problem := problems.NewStatusProblem(400).
				WithInstance(c.Path()).
				WithType(serviceErr.Code).
				WithDetail(serviceErr.Message)

			return c.Status(fiber.StatusBadRequest).JSON(problem)
		}

		return badRequest(c, err.Error())

	case persistence.IsFlowNotFound(err):
		return notFound(c, "flow_not_found", workflow.MessageFlowNotFound)

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "execution_not_found", "Execution not found")

	default:
		return internalError(c, err)
	}
}

package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/bilim-edu/grading-api/internal/dto"
	"github.com/bilim-edu/grading-api/internal/middleware"
	"github.com/bilim-edu/grading-api/internal/service"
	"github.com/bilim-edu/grading-api/internal/utils"
)

// AutogradeHandler wires the batch trigger and status probe endpoints.
type AutogradeHandler struct {
	service  service.AutogradeService
	validate *validator.Validate
	logger   zerolog.Logger
}

// NewAutogradeHandler constructs the handler.
func NewAutogradeHandler(service service.AutogradeService, validate *validator.Validate, logger zerolog.Logger) *AutogradeHandler {
	return &AutogradeHandler{
		service:  service,
		validate: validate,
		logger:   logger.With().Str("component", "autograde_handler").Logger(),
	}
}

// Register attaches the autograde endpoints to the router group.
func (h *AutogradeHandler) Register(router fiber.Router) {
	router.Post("/run", h.run)
	router.Get("/status", h.status)
}

// run triggers one bounded batch. The response is the batch summary itself,
// not the common envelope: the admin UI consumes its shape directly.
func (h *AutogradeHandler) run(c *fiber.Ctx) error {
	var payload dto.AutogradeRunRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
		if err := h.validate.Struct(payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
	}

	ctx := middleware.ContextWithCorrelation(c.Context(), middleware.GetCorrelationID(c))
	response, err := h.service.RunBatch(ctx, payload.BatchSize)
	if err != nil {
		if errors.Is(err, service.ErrGraderUnavailable) {
			return utils.SendError(c, fiber.StatusInternalServerError, "grading model is not configured")
		}
		h.logger.Error().Err(err).Msg("batch run failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to run grading batch")
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *AutogradeHandler) status(c *fiber.Ctx) error {
	response, err := h.service.Status(c.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("status probe failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load grading status")
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

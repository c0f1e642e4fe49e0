package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/bilim-edu/grading-api/internal/dto"
	"github.com/bilim-edu/grading-api/internal/middleware"
	"github.com/bilim-edu/grading-api/internal/service"
	"github.com/bilim-edu/grading-api/internal/utils"
)

// ReviewHandler exposes the manual review queue to administrators.
type ReviewHandler struct {
	service service.ReviewService
	logger  zerolog.Logger
}

// NewReviewHandler constructs the handler.
func NewReviewHandler(service service.ReviewService, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches review queue endpoints to the router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Get("", h.queue)
	router.Patch("", h.decide)
}

func (h *ReviewHandler) queue(c *fiber.Ctx) error {
	response, err := h.service.Queue(c.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list review queue")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list review queue")
	}

	return utils.SendSuccess(c, "review queue", response)
}

func (h *ReviewHandler) decide(c *fiber.Ctx) error {
	var payload dto.ReviewDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	ctx := middleware.ContextWithCorrelation(c.Context(), middleware.GetCorrelationID(c))
	submission, err := h.service.Decide(ctx, payload, actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Uint("submission_id", payload.SubmissionID).Msg("failed to apply review decision")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to apply review decision")
		}
	}

	message := "submission rejected"
	if payload.Approved {
		message = "submission approved"
	}

	return utils.SendSuccess(c, message, submission)
}

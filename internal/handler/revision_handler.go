package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-eval-api/internal/dto"
	"github.com/noah-isme/essay-eval-api/internal/service"
	"github.com/noah-isme/essay-eval-api/internal/utils"
)

// RevisionHandler manages re-evaluation endpoints.
type RevisionHandler struct {
	service service.RevisionService
	logger  zerolog.Logger
}

// NewRevisionHandler builds a revision handler instance.
func NewRevisionHandler(service service.RevisionService, logger zerolog.Logger) *RevisionHandler {
	return &RevisionHandler{
		service: service,
		logger:  logger.With().Str("component", "revision_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *RevisionHandler) Register(router fiber.Router) {
	router.Post("", h.create)
}

func (h *RevisionHandler) create(c *fiber.Ctx) error {
	var payload dto.RevisionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(payload.SubmissionID) == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "submissionId is required")
	}

	submission, err := h.service.Create(c.Context(), payload.SubmissionID)
	if err != nil {
		return sendServiceError(c, h.logger, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission re-evaluated", submission)
}

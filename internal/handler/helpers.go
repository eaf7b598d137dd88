package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/essay-eval-api/internal/middleware"
	"github.com/noah-isme/essay-eval-api/internal/service"
	"github.com/noah-isme/essay-eval-api/internal/utils"
)

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// sendServiceError maps tagged service failures onto HTTP statuses.
func sendServiceError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	}

	switch service.KindOf(err) {
	case service.KindInvalidInput:
		return utils.SendError(c, fiber.StatusBadRequest, service.MessageOf(err))
	case service.KindNotFound:
		return utils.SendError(c, fiber.StatusNotFound, service.MessageOf(err))
	case service.KindConflict:
		return utils.SendError(c, fiber.StatusConflict, service.MessageOf(err))
	case service.KindDependency, service.KindTransactional:
		requestLogger(logger, c).Error().Err(err).Msg("request failed on a downstream dependency")
		return utils.SendError(c, fiber.StatusInternalServerError, service.MessageOf(err))
	default:
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

// Package responses renders the {success, message, data} envelope.
package responses

import (
	"errors"
	"log/slog"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/gofiber/fiber/v2"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func Success(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(Response{Success: true, Message: message, Data: data})
}

func Failure(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(Response{Success: false, Message: message, Data: data})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return fiber.StatusBadRequest
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindConflict:
		return fiber.StatusConflict
	case apperrors.KindAuth:
		return fiber.StatusUnauthorized
	case apperrors.KindUpstream:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error returned by a handler. Internal error
// messages are only exposed in development.
func ErrorHandler(development bool, logger *slog.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return Failure(c, fe.Code, fe.Message, nil)
		}

		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			appErr = apperrors.Internal(err)
		}
		status := StatusOf(appErr.Kind)

		var data interface{}
		switch appErr.Kind {
		case apperrors.KindValidation:
			details := appErr.Details
			if details == nil {
				details = []string{appErr.Message}
			}
			data = fiber.Map{"details": details}
		case apperrors.KindAuth:
			data = fiber.Map{"reason": appErr.Reason}
		}

		message := appErr.Message
		switch appErr.Kind {
		case apperrors.KindInternal:
			logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
			if development {
				message = err.Error()
			}
		case apperrors.KindUpstream:
			logger.Warn("Upstream unavailable", "method", c.Method(), "path", c.Path(), "error", err)
		}

		return Failure(c, status, message, data)
	}
}

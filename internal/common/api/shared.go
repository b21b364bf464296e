package api

import (
	"errors"

	apperrors "go-venue/internal/common/errors"

	"github.com/gofiber/fiber/v2"
)

// Route is an interface for any feature that wants to register endpoints
type Route interface {
	Setup(app *fiber.App)
}

// StatusForError maps the engine error taxonomy onto HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, apperrors.ErrAdapter):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

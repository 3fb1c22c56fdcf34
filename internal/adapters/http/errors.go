package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/oceanclean/oceanclean/internal/adapters/drawing"
	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errForbidden returns a 403 error.
func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, 403, "forbidden", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errUnavailable returns a 503 error. The operation may be retried.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "service_unavailable", msg)
}

// writeError maps domain errors onto API errors.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, usecases.ErrEditorClosed),
		errors.Is(err, drawing.ErrAdapterClosed):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return errUnauthorized(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return errForbidden(c, err.Error())
	case errors.Is(err, domain.ErrStoreUnavailable):
		LoggerFromCtx(c.UserContext()).Warn("store unavailable", "path", c.Path(), "error", err)
		return errUnavailable(c, "document store unavailable, try again")
	default:
		LoggerFromCtx(c.UserContext()).Error("unhandled error", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}

package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/plantops/finding-service/internal/observability"
	"github.com/plantops/finding-service/pkg/util"
)

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the taxonomy code and details.
type ErrorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// NewErrorHandler builds the fiber error handler. DomainError statuses and
// codes pass through; anything unclassified becomes INTERNAL_ERROR without
// leaking its cause to the client.
func NewErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			var code string
			switch fiberErr.Code {
			case http.StatusUnauthorized:
				code = util.CodeUnauthorized
			case http.StatusForbidden:
				code = util.CodeUnauthorizedAction
			case http.StatusNotFound:
				code = util.CodeNotFound
			case http.StatusBadRequest:
				code = util.CodeValidationFailed
			default:
				code = util.CodeInternal
			}
			if metrics != nil {
				metrics.RecordError(c.Path(), c.Method(), code)
			}
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Error: ErrorBody{
				Code:    code,
				Message: fiberErr.Message,
			}})
		}

		domainErr := util.ToDomainError(err)
		if domainErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}
		if metrics != nil {
			metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
		}
		return c.Status(domainErr.HTTPStatus).JSON(ErrorResponse{Error: ErrorBody{
			Code:    domainErr.Code,
			Message: domainErr.Message,
			Details: domainErr.Details,
		}})
	}
}

// RequestTimeout bounds each request's context. A zero duration disables the
// bound.
func RequestTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if timeout <= 0 {
			return c.Next()
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

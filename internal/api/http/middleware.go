package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/observability"
	apperrors "github.com/spec-kit/grievance-service/pkg/util"
)

// RegisterMiddlewares wires the shared request pipeline: panic recovery and
// error shaping first, then the request timeout, then logging and counters.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(errorHandling(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeout(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
}

// errorHandling converts panics and domain errors into the standard error
// envelope.
func errorHandling(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("path", c.Path()),
					zap.Any("panic", r))
				err = writeError(c, metrics, apperrors.NewInternalError(fmt.Errorf("panic: %v", r)))
			}
		}()

		if err := c.Next(); err != nil {
			if fiberErr, ok := err.(*fiber.Error); ok {
				return writeError(c, metrics, apperrors.NewDomainError(
					codeForStatus(fiberErr.Code), fiberErr.Message, fiberErr.Code, nil))
			}
			domainErr := apperrors.ToDomainError(err)
			if domainErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("path", c.Path()),
					zap.String("code", domainErr.Code),
					zap.Error(err))
			}
			return writeError(c, metrics, domainErr)
		}
		return nil
	}
}

func writeError(c *fiber.Ctx, metrics *observability.Metrics, err error) error {
	domainErr := apperrors.ToDomainError(err)
	metrics.RecordError(c.Path(), c.Method(), domainErr.Code)

	body := fiber.Map{
		"error": fiber.Map{
			"code":    domainErr.Code,
			"message": domainErr.Message,
		},
	}
	if len(domainErr.Details) > 0 {
		body["error"].(fiber.Map)["details"] = domainErr.Details
	}
	return c.Status(domainErr.HTTPStatus).JSON(body)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return apperrors.CodeNotFound
	case http.StatusUnauthorized:
		return apperrors.CodeUnauthorized
	case http.StatusForbidden:
		return apperrors.CodeForbidden
	case http.StatusBadRequest:
		return apperrors.CodeValidationFailed
	default:
		return apperrors.CodeInternalError
	}
}

// requestTimeout bounds each request's context.
func requestTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

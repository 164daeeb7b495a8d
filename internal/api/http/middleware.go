package http

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/observability"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

// requestIDKey is the fiber local holding the request's correlation id.
const requestIDKey = "request_id"

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// RegisterMiddlewares installs, outermost first: request id, deadline,
// access log and the error envelope renderer.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	if timeout > 0 {
		app.Use(deadline(timeout))
	}
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(renderErrors(logger, metrics))
}

// deadline bounds the user context handed to services.
func deadline(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func renderErrors(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("request_id", requestID(c)),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err == nil {
				return
			}
			err = writeError(c, logger, metrics, classify(c, err))
		}()
		return c.Next()
	}
}

func writeError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, de *apperrors.DomainError) error {
	if metrics != nil {
		metrics.RecordError(c.Path(), c.Method(), de.Code)
	}

	fields := []zap.Field{
		zap.String("request_id", requestID(c)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("code", de.Code),
	}
	if de.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed", append(fields, zap.Error(de))...)
	} else {
		logger.Debug("request rejected", append(fields, zap.String("message", de.Message))...)
	}

	body := errorEnvelope{Error: errorBody{Code: de.Code, Message: de.Message}}
	if len(de.Details) > 0 {
		body.Error.Details = de.Details
	}
	return c.Status(de.HTTPStatus).JSON(body)
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

// classify converts err for rendering. A server-side failure that happened
// after the request deadline fired is reported as REQUEST_TIMEOUT instead.
func classify(c *fiber.Ctx, err error) *apperrors.DomainError {
	de := apperrors.ToDomainError(err)
	if de.HTTPStatus >= fiber.StatusInternalServerError && errors.Is(c.UserContext().Err(), context.DeadlineExceeded) {
		return &apperrors.DomainError{
			Code:       apperrors.CodeRequestTimeout,
			Message:    "request timed out",
			HTTPStatus: fiber.StatusGatewayTimeout,
			Err:        err,
		}
	}
	return de
}

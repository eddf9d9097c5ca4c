package serverutils

import (
	"errors"

	"ai-chat-be/internal/apperror"
	"ai-chat-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error kind to its HTTP status. Provider failures surface
// as 400 on the chat endpoint.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case apperror.KindInvalidArgument, apperror.KindProvider:
		return fiber.StatusBadRequest
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindUnsupportedMedia:
		return fiber.StatusUnsupportedMediaType
	default:
		return fiber.StatusInternalServerError
	}
}

// WriteError renders err as {status:"error", message}. Only the client-safe
// message of a classified error is exposed.
func WriteError(ctx *fiber.Ctx, log logger.ILogger, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		status := StatusFor(appErr.Kind)
		if status >= fiber.StatusInternalServerError || appErr.Kind == apperror.KindProvider {
			log.Error("HTTP", appErr.Message, map[string]interface{}{
				"path":  ctx.Path(),
				"kind":  string(appErr.Kind),
				"error": err,
			})
		}
		return ctx.Status(status).JSON(ErrorResponse(appErr.Message))
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Message))
	}

	log.Error("HTTP", "unhandled error", map[string]interface{}{"path": ctx.Path(), "error": err})
	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("internal server error"))
}

// ErrorHandlerMiddleware converts errors returned by downstream handlers.
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, log, err)
	}
}

// ErrorHandler is the app-level fallback for errors raised outside the
// middleware chain (routing, body limits).
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		return WriteError(ctx, log, err)
	}
}

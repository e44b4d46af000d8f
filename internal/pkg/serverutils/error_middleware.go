package serverutils

import (
	"errors"
	"log"

	"ai-budtender-be/pkg/recommend/catalog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware renders handler errors as ErrorResponse envelopes.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code, message, details := classify(err)
		if code >= fiber.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message, details))
	}
}

func classify(err error) (int, string, interface{}) {
	var verr *ValidationError
	var ferr *fiber.Error
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, "Invalid request", verr.Fields
	case errors.Is(err, catalog.ErrUnavailable):
		return fiber.StatusServiceUnavailable, "Catalog is temporarily unavailable", nil
	case errors.As(err, &ferr):
		return ferr.Code, ferr.Message, nil
	}
	return fiber.StatusInternalServerError, "Internal server error", nil
}

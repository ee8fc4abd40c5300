package handlers

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"claims-service/internal/models"
	"claims-service/internal/repository"
	"claims-service/internal/services"
	"claims-service/internal/utils"

	"github.com/gofiber/fiber/v3"
)

const APIKeyHeader = "X-API-Key"

// RequireAPIKey rejects requests without the shared ops API key. An empty
// key disables the check.
func RequireAPIKey(apiKey string) fiber.Handler {
	return func(c fiber.Ctx) error {
		if apiKey == "" {
			return c.Next()
		}
		if subtle.ConstantTimeCompare([]byte(c.Get(APIKeyHeader)), []byte(apiKey)) != 1 {
			return c.Status(http.StatusUnauthorized).JSON(
				utils.CreateErrorResponse("UNAUTHORIZED", "Valid API key is required"))
		}
		return c.Next()
	}
}

// respondError maps domain errors to HTTP status codes.
func respondError(c fiber.Ctx, err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.Status(http.StatusNotFound).JSON(
			utils.CreateErrorResponse("NOT_FOUND", what+" not found"))
	case errors.Is(err, models.ErrInvalidRecord):
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_RECORD", err.Error()))
	case errors.Is(err, services.ErrInvalidTransition), errors.Is(err, services.ErrClaimNotApproved):
		return c.Status(http.StatusConflict).JSON(
			utils.CreateErrorResponse("INVALID_STATE", err.Error()))
	default:
		slog.Error("Request failed", "path", c.Path(), "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to process "+what))
	}
}

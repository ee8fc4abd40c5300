package handlers

import (
	"context"
	"net/http"

	"claims-service/internal/models"
	"claims-service/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type PipelineRunner interface {
	ProcessOutage(ctx context.Context, outageID string) (*models.OutageReport, error)
	ConfirmPayout(ctx context.Context, payoutID uuid.UUID, outcome *models.PaymentOutcome) (*models.Payout, error)
}

// PipelineHandler exposes the operations that move claims forward.
type PipelineHandler struct {
	pipeline PipelineRunner
	apiKey   string
}

func NewPipelineHandler(pipeline PipelineRunner, apiKey string) *PipelineHandler {
	return &PipelineHandler{
		pipeline: pipeline,
		apiKey:   apiKey,
	}
}

func (h *PipelineHandler) Register(app *fiber.App) {
	apiGr := app.Group("claims/api/v1", RequireAPIKey(h.apiKey))

	apiGr.Post("/outages/:id/process", h.ProcessOutage) // POST /claims/api/v1/outages/:id/process
	apiGr.Post("/payouts/:id/confirm", h.ConfirmPayout) // POST /claims/api/v1/payouts/:id/confirm
}

// ProcessOutage runs the pipeline for one outage and returns the per-policy report.
func (h *PipelineHandler) ProcessOutage(c fiber.Ctx) error {
	outageID := c.Params("id")
	if outageID == "" {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "outage ID is required"))
	}

	report, err := h.pipeline.ProcessOutage(c.Context(), outageID)
	if err != nil {
		return respondError(c, err, "outage")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(report))
}

// ConfirmPayout is the payment rail callback.
func (h *PipelineHandler) ConfirmPayout(c fiber.Ctx) error {
	payoutID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid payout ID format"))
	}

	var req models.ConfirmPayoutRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
	}
	if err := models.ValidateRequest(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("VALIDATION_FAILED", err.Error()))
	}

	payout, err := h.pipeline.ConfirmPayout(c.Context(), payoutID, req.Outcome())
	if err != nil {
		return respondError(c, err, "payout")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(payout))
}

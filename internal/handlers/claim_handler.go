package handlers

import (
	"net/http"

	"claims-service/internal/models"
	"claims-service/internal/services"
	"claims-service/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type ClaimHandler struct {
	claimService *services.ClaimService
	apiKey       string
}

func NewClaimHandler(claimService *services.ClaimService, apiKey string) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
		apiKey:       apiKey,
	}
}

func (h *ClaimHandler) Register(app *fiber.App) {
	apiGr := app.Group("claims/api/v1", RequireAPIKey(h.apiKey))

	claimGroup := apiGr.Group("/claims")
	claimGroup.Get("/", h.ListClaims)  // GET /claims/api/v1/claims?policy_id=&outage_event_id=&status=
	claimGroup.Get("/:id", h.GetClaim) // GET /claims/api/v1/claims/:id

	payoutGroup := apiGr.Group("/payouts")
	payoutGroup.Get("/by-claim/:claim_id", h.GetPayoutByClaim) // GET /claims/api/v1/payouts/by-claim/:claim_id
	payoutGroup.Get("/:id", h.GetPayout)                       // GET /claims/api/v1/payouts/:id

	apiGr.Get("/audit-log", h.ListAuditLog) // GET /claims/api/v1/audit-log?after=&limit=
}

// ============================================================================
// CLAIMS
// ============================================================================

func (h *ClaimHandler) GetClaim(c fiber.Ctx) error {
	claimID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid claim ID format"))
	}

	detail, err := h.claimService.GetClaimDetail(c.Context(), claimID)
	if err != nil {
		return respondError(c, err, "claim")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(detail))
}

func (h *ClaimHandler) ListClaims(c fiber.Ctx) error {
	var filter models.ClaimFilter
	if err := c.Bind().Query(&filter); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid query parameters"))
	}

	claims, err := h.claimService.ListClaims(c.Context(), filter)
	if err != nil {
		return respondError(c, err, "claims")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateListResponse(claims))
}

// ============================================================================
// PAYOUTS & AUDIT LOG
// ============================================================================

func (h *ClaimHandler) GetPayout(c fiber.Ctx) error {
	payoutID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid payout ID format"))
	}

	payout, err := h.claimService.GetPayout(c.Context(), payoutID)
	if err != nil {
		return respondError(c, err, "payout")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(payout))
}

func (h *ClaimHandler) GetPayoutByClaim(c fiber.Ctx) error {
	claimID, err := uuid.Parse(c.Params("claim_id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_UUID", "Invalid claim ID format"))
	}

	payout, err := h.claimService.GetPayoutByClaim(c.Context(), claimID)
	if err != nil {
		return respondError(c, err, "payout")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(payout))
}

func (h *ClaimHandler) ListAuditLog(c fiber.Ctx) error {
	var query models.AuditLogQuery
	if err := c.Bind().Query(&query); err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_REQUEST", "Invalid query parameters"))
	}

	entries, err := h.claimService.ListAuditLog(c.Context(), query)
	if err != nil {
		return respondError(c, err, "audit log")
	}
	return c.Status(http.StatusOK).JSON(utils.CreateListResponse(entries))
}

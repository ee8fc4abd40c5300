package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"claims-service/internal/models"
	"claims-service/internal/repository"
	"claims-service/internal/services"
	"claims-service/internal/testutil"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "ops-key"

type fakePipeline struct {
	report   *models.OutageReport
	err      error
	outcomes []*models.PaymentOutcome
}

func (f *fakePipeline) ProcessOutage(_ context.Context, outageID string) (*models.OutageReport, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.OutageReport{OutageID: outageID, Matched: f.report.Matched, Results: f.report.Results}, nil
}

func (f *fakePipeline) ConfirmPayout(_ context.Context, payoutID uuid.UUID, outcome *models.PaymentOutcome) (*models.Payout, error) {
	f.outcomes = append(f.outcomes, outcome)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Payout{ID: payoutID, Status: outcome.Status}, nil
}

func newTestApp(pipeline *fakePipeline, store *testutil.Store) *fiber.App {
	app := fiber.New()
	NewPipelineHandler(pipeline, testAPIKey).Register(app)
	claimService := services.NewClaimService(store.ClaimStore(), store.PayoutStore(), store.AuditStore(), nil, "")
	NewClaimHandler(claimService, testAPIKey).Register(app)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(APIKeyHeader, testAPIKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	return resp, decoded
}

func errorCode(body map[string]any) string {
	apiErr, _ := body["error"].(map[string]any)
	code, _ := apiErr["code"].(string)
	return code
}

func TestRequireAPIKey(t *testing.T) {
	app := newTestApp(&fakePipeline{report: &models.OutageReport{}}, testutil.NewStore())

	req := httptest.NewRequest(http.MethodPost, "/claims/api/v1/outages/OUT-1/process", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, "/claims/api/v1/outages/OUT-1/process", nil)
	req.Header.Set(APIKeyHeader, "wrong")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProcessOutage(t *testing.T) {
	claimID := uuid.New()
	pipeline := &fakePipeline{report: &models.OutageReport{
		Matched: 1,
		Results: []models.PairResult{{PolicyID: "BI-001", State: models.StateDenied, ClaimID: &claimID}},
	}}
	app := newTestApp(pipeline, testutil.NewStore())

	resp, body := doRequest(t, app, http.MethodPost, "/claims/api/v1/outages/OUT-1/process", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "OUT-1", data["outage_id"])
	results := data["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "DENIED", results[0].(map[string]any)["state"])
}

func TestProcessOutage_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"missing outage", fmt.Errorf("failed to load outage: %w", repository.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"malformed outage", fmt.Errorf("%w: outage has no location", models.ErrInvalidRecord), http.StatusBadRequest, "INVALID_RECORD"},
		{"database down", errors.New("connection refused"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&fakePipeline{err: tt.err}, testutil.NewStore())
			resp, body := doRequest(t, app, http.MethodPost, "/claims/api/v1/outages/OUT-1/process", "")
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.Equal(t, tt.code, errorCode(body))
		})
	}
}

func TestConfirmPayout(t *testing.T) {
	pipeline := &fakePipeline{}
	app := newTestApp(pipeline, testutil.NewStore())
	payoutID := uuid.New()
	path := "/claims/api/v1/payouts/" + payoutID.String() + "/confirm"

	resp, body := doRequest(t, app, http.MethodPost, path, `{"status":"completed","transaction_id":"ACH-1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "completed", body["data"].(map[string]any)["status"])
	require.Len(t, pipeline.outcomes, 1)
	assert.Equal(t, "ACH-1", pipeline.outcomes[0].TransactionID)

	resp, body = doRequest(t, app, http.MethodPost, path, `{"status":"completed"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	resp, body = doRequest(t, app, http.MethodPost, path, `{"status":"initiated"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	resp, body = doRequest(t, app, http.MethodPost, "/claims/api/v1/payouts/not-a-uuid/confirm", `{"status":"failed","failure_reason":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_UUID", errorCode(body))
}

func TestConfirmPayout_InvalidTransitionIsConflict(t *testing.T) {
	pipeline := &fakePipeline{err: fmt.Errorf("payout cannot move: %w", services.ErrInvalidTransition)}
	app := newTestApp(pipeline, testutil.NewStore())

	resp, body := doRequest(t, app, http.MethodPost, "/claims/api/v1/payouts/"+uuid.New().String()+"/confirm",
		`{"status":"failed","failure_reason":"account closed"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_STATE", errorCode(body))
}

func TestClaimRoutes(t *testing.T) {
	store := testutil.NewStore()
	claimID := uuid.New()
	now := time.Date(2024, 8, 12, 18, 0, 0, 0, time.UTC)
	store.PutClaim(models.Claim{
		ID:            claimID,
		ClaimNumber:   "CLM-1",
		PolicyID:      "BI-001",
		OutageEventID: "OUT-1",
		Status:        models.ClaimDenied,
		FiledAt:       now,
	})
	app := newTestApp(&fakePipeline{}, store)

	resp, body := doRequest(t, app, http.MethodGet, "/claims/api/v1/claims/"+claimID.String(), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CLM-1", body["data"].(map[string]any)["claim_number"])

	resp, body = doRequest(t, app, http.MethodGet, "/claims/api/v1/claims/"+uuid.New().String(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	resp, body = doRequest(t, app, http.MethodGet, "/claims/api/v1/claims?status=denied", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]any), 1)
	assert.Equal(t, float64(1), body["meta"].(map[string]any)["count"])

	resp, _ = doRequest(t, app, http.MethodGet, "/claims/api/v1/payouts/by-claim/"+claimID.String(), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodGet, "/claims/api/v1/audit-log", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["data"])
}

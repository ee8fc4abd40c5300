package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"claims-service/internal/config"
	"claims-service/internal/event"
	"claims-service/internal/models"
	"claims-service/internal/testutil"

	"github.com/stretchr/testify/require"
)

var outageStart = time.Date(2024, 8, 12, 14, 0, 0, 0, time.UTC)

func intPtr(v int) *int             { return &v }
func strPtr(v string) *string       { return &v }
func timePtr(t time.Time) *time.Time { return &t }

// newPolicy returns an active policy in downtown Houston.
func newPolicy(id string, thresholdMinutes int, hourlyRate, maxPayout float64) models.Policy {
	return models.Policy{
		ID:               id,
		PolicyNumber:     "POL-" + id,
		BusinessName:     "Business " + id,
		BusinessType:     "restaurant",
		Location:         models.NewGeoJSONPoint(29.7604, -95.3698),
		PostalCode:       "77002",
		ThresholdMinutes: thresholdMinutes,
		HourlyRate:       hourlyRate,
		MaxPayout:        maxPayout,
		Status:           models.PolicyActive,
	}
}

// newOutage returns a resolved outage at the same location lasting minutes.
func newOutage(id string, minutes int) models.OutageEvent {
	return models.OutageEvent{
		ID:          id,
		UtilityName: "CenterPoint Energy",
		Location:    models.NewGeoJSONPoint(29.7604, -95.3698),
		PostalCode:  "77002",
		StartTime:   outageStart,
		EndTime:     timePtr(outageStart.Add(time.Duration(minutes) * time.Minute)),
		Status:      models.OutageResolved,
		CreatedAt:   outageStart,
		UpdatedAt:   outageStart,
	}
}

func testRules() ScoringRules {
	return NewScoringRules(config.DefaultPipelineConfig())
}

func newTestIDs(t *testing.T) *IDGenerator {
	t.Helper()
	ids, err := NewIDGenerator(1)
	require.NoError(t, err)
	return ids
}

type stubRail struct {
	mu      sync.Mutex
	calls   int
	outcome *models.PaymentOutcome
	err     error
}

func (r *stubRail) Disburse(_ context.Context, _ *models.Payout, _ *models.Policy) (*models.PaymentOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.outcome != nil {
		outcome := *r.outcome
		return &outcome, nil
	}
	return &models.PaymentOutcome{
		Status:        models.PayoutCompleted,
		TransactionID: fmt.Sprintf("TXN-%d", r.calls),
	}, nil
}

func (r *stubRail) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingNotifier struct {
	mu      sync.Mutex
	payouts []string
}

func (n *recordingNotifier) NotifyPayoutCompleted(_ context.Context, _ *models.Policy, payout *models.Payout) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payouts = append(n.payouts, payout.ID.String())
	return nil
}

func (n *recordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.payouts)
}

type failingSink struct{}

func (failingSink) Name() string { return "http" }

func (failingSink) Send(context.Context, *event.Envelope) error {
	return fmt.Errorf("event sink unreachable: connection refused")
}

type pipelineFixture struct {
	store        *testutil.Store
	rail         *stubRail
	notifier     *recordingNotifier
	orchestrator *Orchestrator
}

// newPipeline wires an orchestrator over the in-memory store with the
// rule-based scorer. A nil sink records events locally.
func newPipeline(t *testing.T, sink event.Sink) *pipelineFixture {
	t.Helper()
	store := testutil.NewStore()
	ids := newTestIDs(t)
	cfg := config.DefaultPipelineConfig()
	rules := NewScoringRules(cfg)
	rail := &stubRail{}
	notifier := &recordingNotifier{}

	orchestrator := NewOrchestrator(PipelineComponents{
		Outages:    store.OutageStore(),
		Policies:   store.PolicyStore(),
		Payouts:    store.PayoutStore(),
		Matcher:    NewPolicyMatcher(store.PolicyStore(), cfg.MatchRadiusMeters()),
		Evaluator:  NewThresholdEvaluator(store.ClaimStore(), ids),
		Validator:  NewClaimValidator(store.ClaimStore(), NewRuleBasedScorer(rules), rules, nil),
		Calculator: NewPayoutCalculator(store.ClaimStore(), store.PayoutStore(), rail, notifier, ids, time.Second),
		Weather:    NewWeatherLookup(store.WeatherStore(), nil, 0, time.Second),
		Events:     event.NewPublisher(sink, store.AuditStore()),
	}, 4)

	return &pipelineFixture{
		store:        store,
		rail:         rail,
		notifier:     notifier,
		orchestrator: orchestrator,
	}
}

func auditTypes(entries []models.AuditLogEntry) []models.EventType {
	out := make([]models.EventType, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.EventType)
	}
	return out
}

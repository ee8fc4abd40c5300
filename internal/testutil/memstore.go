// Package testutil holds an in-memory record store with the same uniqueness
// and forward-only update rules as the Postgres schema.
package testutil

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"claims-service/internal/models"
	"claims-service/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/paulmach/orb"
)

type Store struct {
	mu       sync.Mutex
	policies map[string]models.Policy
	outages  map[string]models.OutageEvent
	weather  map[string]models.WeatherObservation
	claims   map[uuid.UUID]models.Claim
	payouts  map[uuid.UUID]models.Payout
	audit    []models.AuditLogEntry
	seq      int64

	// AppendErr, when set, is returned by every audit log append.
	AppendErr error
}

func NewStore() *Store {
	return &Store{
		policies: make(map[string]models.Policy),
		outages:  make(map[string]models.OutageEvent),
		weather:  make(map[string]models.WeatherObservation),
		claims:   make(map[uuid.UUID]models.Claim),
		payouts:  make(map[uuid.UUID]models.Payout),
	}
}

func (s *Store) AddPolicy(p models.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID] = p
}

func (s *Store) AddOutage(o models.OutageEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outages[o.ID] = o
}

func (s *Store) AddWeather(w models.WeatherObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weather[w.OutageEventID] = w
}

// PutClaim stores c as is, bypassing the uniqueness check.
func (s *Store) PutClaim(c models.Claim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[c.ID] = cloneClaim(c)
}

func (s *Store) Claims() []models.Claim {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Claim, 0, len(s.claims))
	for _, c := range s.claims {
		out = append(out, cloneClaim(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PolicyID < out[j].PolicyID })
	return out
}

func (s *Store) Payouts() []models.Payout {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Payout, 0, len(s.payouts))
	for _, p := range s.payouts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PolicyID < out[j].PolicyID })
	return out
}

func (s *Store) AuditLog() []models.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.audit)
}

func (s *Store) PolicyStore() *PolicyStore   { return &PolicyStore{s} }
func (s *Store) OutageStore() *OutageStore   { return &OutageStore{s} }
func (s *Store) WeatherStore() *WeatherStore { return &WeatherStore{s} }
func (s *Store) ClaimStore() *ClaimStore     { return &ClaimStore{s} }
func (s *Store) PayoutStore() *PayoutStore   { return &PayoutStore{s} }
func (s *Store) AuditStore() *AuditStore     { return &AuditStore{s} }

func cloneClaim(c models.Claim) models.Claim {
	c.FraudFlags = append(pq.StringArray{}, c.FraudFlags...)
	c.Reasoning = append(pq.StringArray{}, c.Reasoning...)
	return c
}

// ============================================================================
// POLICIES, OUTAGES, WEATHER
// ============================================================================

type PolicyStore struct{ s *Store }

func (p *PolicyStore) GetByID(_ context.Context, id string) (*models.Policy, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	policy, ok := p.s.policies[id]
	if !ok {
		return nil, fmt.Errorf("policy %s: %w", id, repository.ErrNotFound)
	}
	return &policy, nil
}

func (p *PolicyStore) ListActiveByPostalCode(_ context.Context, postalCode string) ([]models.Policy, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	var out []models.Policy
	if postalCode == "" {
		return out, nil
	}
	for _, policy := range p.s.policies {
		if policy.Status == models.PolicyActive && policy.PostalCode == postalCode {
			out = append(out, policy)
		}
	}
	return out, nil
}

func (p *PolicyStore) ListActiveWithinBound(_ context.Context, bound orb.Bound) ([]models.Policy, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	var out []models.Policy
	for _, policy := range p.s.policies {
		if policy.Status == models.PolicyActive && bound.Contains(policy.Location.Orb()) {
			out = append(out, policy)
		}
	}
	return out, nil
}

type OutageStore struct{ s *Store }

func (o *OutageStore) GetByID(_ context.Context, id string) (*models.OutageEvent, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	outage, ok := o.s.outages[id]
	if !ok {
		return nil, fmt.Errorf("outage %s: %w", id, repository.ErrNotFound)
	}
	return &outage, nil
}

func (o *OutageStore) ListUpdatedSince(_ context.Context, since time.Time, limit int) ([]models.OutageEvent, error) {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	var out []models.OutageEvent
	for _, outage := range o.s.outages {
		if !outage.UpdatedAt.Before(since) {
			out = append(out, outage)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type WeatherStore struct{ s *Store }

func (w *WeatherStore) GetByOutageID(_ context.Context, outageID string) (*models.WeatherObservation, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	obs, ok := w.s.weather[outageID]
	if !ok {
		return nil, fmt.Errorf("weather for outage %s: %w", outageID, repository.ErrNotFound)
	}
	return &obs, nil
}

// ============================================================================
// CLAIMS
// ============================================================================

type ClaimStore struct{ s *Store }

func (c *ClaimStore) CreateIfAbsent(_ context.Context, claim *models.Claim) (*models.Claim, bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, existing := range c.s.claims {
		if existing.PolicyID == claim.PolicyID && existing.OutageEventID == claim.OutageEventID {
			stored := cloneClaim(existing)
			return &stored, false, nil
		}
	}
	c.s.claims[claim.ID] = cloneClaim(*claim)
	stored := cloneClaim(*claim)
	return &stored, true, nil
}

func (c *ClaimStore) GetByID(_ context.Context, id uuid.UUID) (*models.Claim, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	claim, ok := c.s.claims[id]
	if !ok {
		return nil, fmt.Errorf("claim %s: %w", id, repository.ErrNotFound)
	}
	stored := cloneClaim(claim)
	return &stored, nil
}

func (c *ClaimStore) GetByPolicyAndOutage(_ context.Context, policyID, outageID string) (*models.Claim, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for _, claim := range c.s.claims {
		if claim.PolicyID == policyID && claim.OutageEventID == outageID {
			stored := cloneClaim(claim)
			return &stored, nil
		}
	}
	return nil, fmt.Errorf("claim for policy %s outage %s: %w", policyID, outageID, repository.ErrNotFound)
}

func (c *ClaimStore) List(_ context.Context, filter models.ClaimFilter) ([]models.Claim, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.Claim{}
	for _, claim := range c.s.claims {
		if filter.PolicyID != "" && claim.PolicyID != filter.PolicyID {
			continue
		}
		if filter.OutageEventID != "" && claim.OutageEventID != filter.OutageEventID {
			continue
		}
		if filter.Status != "" && claim.Status != filter.Status {
			continue
		}
		out = append(out, cloneClaim(claim))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiledAt.After(out[j].FiledAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (c *ClaimStore) ListOverlappingApproved(_ context.Context, policyID string, excludeID uuid.UUID, start, end time.Time) ([]models.Claim, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	out := []models.Claim{}
	for _, claim := range c.s.claims {
		if claim.PolicyID != policyID || claim.ID == excludeID {
			continue
		}
		if claim.Status != models.ClaimApproved && claim.Status != models.ClaimPaid {
			continue
		}
		if claim.OutageStart.Before(end) && claim.OutageEnd.After(start) {
			out = append(out, cloneClaim(claim))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OutageStart.Before(out[j].OutageStart) })
	return out, nil
}

func (c *ClaimStore) MarkValidating(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	claim, ok := c.s.claims[id]
	if !ok || claim.Status != models.ClaimPending {
		return false, nil
	}
	claim.Status = models.ClaimValidating
	claim.UpdatedAt = at
	c.s.claims[id] = claim
	return true, nil
}

func (c *ClaimStore) RecordDecision(_ context.Context, decided *models.Claim) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	claim, ok := c.s.claims[decided.ID]
	if !ok || claim.Status.IsDecided() {
		return false, nil
	}
	claim.Status = decided.Status
	claim.ConfidenceScore = decided.ConfidenceScore
	claim.SeverityMultiplier = decided.SeverityMultiplier
	claim.FraudFlags = decided.FraudFlags
	claim.Reasoning = decided.Reasoning
	claim.ScoredBy = decided.ScoredBy
	claim.ValidatedAt = decided.ValidatedAt
	claim.ApprovedAt = decided.ApprovedAt
	claim.DeniedAt = decided.DeniedAt
	if decided.ValidatedAt != nil {
		claim.UpdatedAt = *decided.ValidatedAt
	}
	c.s.claims[decided.ID] = cloneClaim(claim)
	return true, nil
}

func (c *ClaimStore) SetPayoutAmount(_ context.Context, id uuid.UUID, amount float64, at time.Time) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	claim, ok := c.s.claims[id]
	if !ok || claim.PayoutAmount != nil {
		return nil
	}
	claim.PayoutAmount = &amount
	claim.UpdatedAt = at
	c.s.claims[id] = claim
	return nil
}

// ============================================================================
// PAYOUTS
// ============================================================================

type PayoutStore struct{ s *Store }

func (p *PayoutStore) CreateIfAbsent(_ context.Context, payout *models.Payout) (*models.Payout, bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, existing := range p.s.payouts {
		if existing.ClaimID == payout.ClaimID {
			return &existing, false, nil
		}
	}
	p.s.payouts[payout.ID] = *payout
	stored := *payout
	return &stored, true, nil
}

func (p *PayoutStore) GetByID(_ context.Context, id uuid.UUID) (*models.Payout, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	payout, ok := p.s.payouts[id]
	if !ok {
		return nil, fmt.Errorf("payout %s: %w", id, repository.ErrNotFound)
	}
	return &payout, nil
}

func (p *PayoutStore) GetByClaimID(_ context.Context, claimID uuid.UUID) (*models.Payout, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, payout := range p.s.payouts {
		if payout.ClaimID == claimID {
			return &payout, nil
		}
	}
	return nil, fmt.Errorf("payout for claim %s: %w", claimID, repository.ErrNotFound)
}

func (p *PayoutStore) MarkDispatched(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	payout, ok := p.s.payouts[id]
	if !ok || payout.Status != models.PayoutInitiated || payout.DispatchedAt != nil {
		return false, nil
	}
	payout.DispatchedAt = &at
	payout.UpdatedAt = at
	p.s.payouts[id] = payout
	return true, nil
}

func (p *PayoutStore) Complete(_ context.Context, target *models.Payout, transactionID string, at time.Time) (bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	payout, ok := p.s.payouts[target.ID]
	if !ok || payout.Status != models.PayoutInitiated {
		return false, nil
	}
	payout.Status = models.PayoutCompleted
	payout.TransactionID = &transactionID
	payout.CompletedAt = &at
	payout.RetryEligible = false
	payout.UpdatedAt = at
	p.s.payouts[target.ID] = payout

	if claim, ok := p.s.claims[payout.ClaimID]; ok && claim.Status == models.ClaimApproved {
		claim.Status = models.ClaimPaid
		claim.PaidAt = &at
		claim.UpdatedAt = at
		p.s.claims[claim.ID] = claim
	}
	return true, nil
}

func (p *PayoutStore) Fail(_ context.Context, id uuid.UUID, reason string, retryEligible bool, at time.Time) (bool, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	payout, ok := p.s.payouts[id]
	if !ok || payout.Status != models.PayoutInitiated {
		return false, nil
	}
	payout.Status = models.PayoutFailed
	payout.FailureReason = &reason
	payout.RetryEligible = retryEligible
	payout.FailedAt = &at
	payout.UpdatedAt = at
	p.s.payouts[id] = payout
	return true, nil
}

// ============================================================================
// AUDIT LOG
// ============================================================================

type AuditStore struct{ s *Store }

func (a *AuditStore) Append(_ context.Context, entry *models.AuditLogEntry) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if a.s.AppendErr != nil {
		return a.s.AppendErr
	}
	a.s.seq++
	entry.Sequence = a.s.seq
	entry.CreatedAt = time.Now().UTC()
	a.s.audit = append(a.s.audit, *entry)
	return nil
}

func (a *AuditStore) HasDelivered(_ context.Context, eventType models.EventType, subject string) (bool, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	for _, e := range a.s.audit {
		if e.EventType == eventType && e.Subject == subject &&
			(e.Status == models.PublishPublished || e.Status == models.PublishLocalOnly) {
			return true, nil
		}
	}
	return false, nil
}

func (a *AuditStore) List(_ context.Context, after int64, limit int) ([]models.AuditLogEntry, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	out := []models.AuditLogEntry{}
	for _, e := range a.s.audit {
		if e.Sequence > after {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"claims-service/internal/models"

	"github.com/paulmach/orb/geo"
)

// PolicyMatcher finds the active policies affected by an outage: same postal
// code, or within radius (great-circle distance) of the outage location.
type PolicyMatcher struct {
	policies     PolicyStore
	radiusMeters float64
}

func NewPolicyMatcher(policies PolicyStore, radiusMeters float64) *PolicyMatcher {
	return &PolicyMatcher{
		policies:     policies,
		radiusMeters: radiusMeters,
	}
}

// Match returns affected policies ordered by ID. An empty result is not an error.
func (m *PolicyMatcher) Match(ctx context.Context, outage *models.OutageEvent) ([]models.Policy, error) {
	byPostal, err := m.policies.ListActiveByPostalCode(ctx, outage.PostalCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies by postal code: %w", err)
	}

	center := outage.Location.Orb()
	bound := geo.NewBoundAroundPoint(center, m.radiusMeters)
	nearby, err := m.policies.ListActiveWithinBound(ctx, bound)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies near outage: %w", err)
	}

	seen := make(map[string]struct{}, len(byPostal)+len(nearby))
	matched := make([]models.Policy, 0, len(byPostal)+len(nearby))

	consider := func(p models.Policy) {
		if _, dup := seen[p.ID]; dup {
			return
		}
		if !p.CoversOutageAt(outage.StartTime) {
			return
		}
		postalMatch := outage.PostalCode != "" && p.PostalCode == outage.PostalCode
		if !postalMatch && geo.DistanceHaversine(p.Location.Orb(), center) > m.radiusMeters {
			return
		}
		seen[p.ID] = struct{}{}
		matched = append(matched, p)
	}

	for _, p := range byPostal {
		consider(p)
	}
	for _, p := range nearby {
		consider(p)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	slog.Info("Policies matched to outage",
		"outage_id", outage.ID,
		"postal_code", outage.PostalCode,
		"radius_m", m.radiusMeters,
		"candidates", len(byPostal)+len(nearby),
		"matched", len(matched))

	return matched, nil
}

package services

import (
	"context"
	"testing"

	"claims-service/internal/config"
	"claims-service/internal/models"
	"claims-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchedIDs(policies []models.Policy) []string {
	ids := make([]string, 0, len(policies))
	for _, p := range policies {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestPolicyMatcher_PostalCodeOrRadius(t *testing.T) {
	store := testutil.NewStore()

	samePostalFarAway := newPolicy("P-POSTAL", 60, 100, 1000)
	samePostalFarAway.Location = models.NewGeoJSONPoint(32.7767, -96.7970)
	store.AddPolicy(samePostalFarAway)

	// about 5 km from the outage
	nearby := newPolicy("P-NEAR", 60, 100, 1000)
	nearby.PostalCode = "77005"
	nearby.Location = models.NewGeoJSONPoint(29.7300, -95.4100)
	store.AddPolicy(nearby)

	// inside the bounding box but about 21 km away
	corner := newPolicy("P-CORNER", 60, 100, 1000)
	corner.PostalCode = "77029"
	corner.Location = models.NewGeoJSONPoint(29.8979, -95.2116)
	store.AddPolicy(corner)

	far := newPolicy("P-FAR", 60, 100, 1000)
	far.PostalCode = "75201"
	far.Location = models.NewGeoJSONPoint(32.7767, -96.7970)
	store.AddPolicy(far)

	expired := newPolicy("P-EXPIRED", 60, 100, 1000)
	expired.Status = models.PolicyExpired
	store.AddPolicy(expired)

	notYetEffective := newPolicy("P-FUTURE", 60, 100, 1000)
	notYetEffective.EffectiveDate = timePtr(outageStart.AddDate(0, 1, 0))
	store.AddPolicy(notYetEffective)

	matcher := NewPolicyMatcher(store.PolicyStore(), config.DefaultPipelineConfig().MatchRadiusMeters())
	outage := newOutage("OUT-1", 120)

	matched, err := matcher.Match(context.Background(), &outage)
	require.NoError(t, err)
	assert.Equal(t, []string{"P-NEAR", "P-POSTAL"}, matchedIDs(matched))
}

func TestPolicyMatcher_NoPostalCodeUsesRadiusOnly(t *testing.T) {
	store := testutil.NewStore()
	store.AddPolicy(newPolicy("P-1", 60, 100, 1000))

	distant := newPolicy("P-2", 60, 100, 1000)
	distant.Location = models.NewGeoJSONPoint(32.7767, -96.7970)
	store.AddPolicy(distant)

	matcher := NewPolicyMatcher(store.PolicyStore(), config.DefaultPipelineConfig().MatchRadiusMeters())
	outage := newOutage("OUT-1", 120)
	outage.PostalCode = ""

	matched, err := matcher.Match(context.Background(), &outage)
	require.NoError(t, err)
	assert.Equal(t, []string{"P-1"}, matchedIDs(matched))
}

func TestPolicyMatcher_EmptyResultIsNotAnError(t *testing.T) {
	matcher := NewPolicyMatcher(testutil.NewStore().PolicyStore(), 1000)
	outage := newOutage("OUT-1", 120)

	matched, err := matcher.Match(context.Background(), &outage)
	require.NoError(t, err)
	assert.Empty(t, matched)
}

package engine

import (
	"testing"

	"github.com/avalia-edu/diagnostic-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Concrete scenario from the rule set: A on D1 (weight 3), C on D2
// (weight 2), B on D3 (weight 1) -> (1*3 + 3*2 + 2*1)/6 = 11/6 ≈ 1.83
// -> B.
func TestFinalTier_WeightedMean(t *testing.T) {
	final := FinalTier(DefaultConfig(), []TierEntry{
		{AssessmentCode: "D1", Tier: models.TierA},
		{AssessmentCode: "D2", Tier: models.TierC},
		{AssessmentCode: "D3", Tier: models.TierB},
	})

	require.NotNil(t, final.WeightedMean)
	assert.Equal(t, 1.83, *final.WeightedMean)
	assert.Equal(t, models.TierB, final.Tier)
	assert.Equal(t, 3, final.Rated)
}

// Absent and unrated entries are skipped entirely, not counted as zero.
func TestFinalTier_ExcludesAbsentAndUnrated(t *testing.T) {
	cfg := DefaultConfig()

	withAbsent := FinalTier(cfg, []TierEntry{
		{AssessmentCode: "D1", Tier: models.TierAbsent},
		{AssessmentCode: "D2", Tier: models.TierB},
	})
	withoutAbsent := FinalTier(cfg, []TierEntry{
		{AssessmentCode: "D2", Tier: models.TierB},
	})

	assert.Equal(t, withoutAbsent.Tier, withAbsent.Tier)
	require.NotNil(t, withAbsent.WeightedMean)
	require.NotNil(t, withoutAbsent.WeightedMean)
	assert.Equal(t, *withoutAbsent.WeightedMean, *withAbsent.WeightedMean)
	assert.Equal(t, 1, withAbsent.Rated)
}

func TestFinalTier_AllExcluded(t *testing.T) {
	final := FinalTier(DefaultConfig(), []TierEntry{
		{AssessmentCode: "D1", Tier: models.TierAbsent},
		{AssessmentCode: "D2", Tier: models.TierUnrated},
	})

	assert.Equal(t, models.TierUnrated, final.Tier)
	assert.Nil(t, final.WeightedMean)
	assert.Zero(t, final.Rated)
}

func TestFinalTier_EmptyInput(t *testing.T) {
	final := FinalTier(DefaultConfig(), nil)

	assert.Equal(t, models.TierUnrated, final.Tier)
	assert.Nil(t, final.WeightedMean)
}

// Unknown code tokens fall back to the default weight, so a D9 behaves
// like any other weight-1 assessment.
func TestFinalTier_DefaultWeightForUnknownCodes(t *testing.T) {
	cfg := DefaultConfig()

	known := FinalTier(cfg, []TierEntry{{AssessmentCode: "D9", Tier: models.TierC}})
	unknown := FinalTier(cfg, []TierEntry{{AssessmentCode: "X-avulso", Tier: models.TierC}})

	assert.Equal(t, known.Tier, unknown.Tier)
	require.NotNil(t, known.WeightedMean)
	require.NotNil(t, unknown.WeightedMean)
	assert.Equal(t, *known.WeightedMean, *unknown.WeightedMean)
}

// Suffixed codes weigh by their leading token: D1-7 weighs like D1.
func TestFinalTier_SuffixedCodes(t *testing.T) {
	cfg := DefaultConfig()

	suffixed := FinalTier(cfg, []TierEntry{
		{AssessmentCode: "D1-7", Tier: models.TierA},
		{AssessmentCode: "D2-7", Tier: models.TierC},
	})
	plain := FinalTier(cfg, []TierEntry{
		{AssessmentCode: "D1", Tier: models.TierA},
		{AssessmentCode: "D2", Tier: models.TierC},
	})

	require.NotNil(t, suffixed.WeightedMean)
	require.NotNil(t, plain.WeightedMean)
	assert.Equal(t, *plain.WeightedMean, *suffixed.WeightedMean)
}

func TestFinalTier_OrderIndependent(t *testing.T) {
	cfg := DefaultConfig()
	entries := []TierEntry{
		{AssessmentCode: "D1", Tier: models.TierA},
		{AssessmentCode: "D2", Tier: models.TierC},
		{AssessmentCode: "D3", Tier: models.TierB},
	}
	reversed := []TierEntry{entries[2], entries[1], entries[0]}

	a := FinalTier(cfg, entries)
	b := FinalTier(cfg, reversed)

	assert.Equal(t, a.Tier, b.Tier)
	require.NotNil(t, a.WeightedMean)
	require.NotNil(t, b.WeightedMean)
	assert.Equal(t, *a.WeightedMean, *b.WeightedMean)
}

func TestFinalTier_Boundaries(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name    string
		entries []TierEntry
		want    models.PerformanceTier
	}{
		{
			// Mean exactly 1.5 stays A.
			"A/B boundary",
			[]TierEntry{
				{AssessmentCode: "D9", Tier: models.TierA},
				{AssessmentCode: "D9", Tier: models.TierB},
			},
			models.TierA,
		},
		{
			// Mean exactly 2.5 stays B.
			"B/C boundary",
			[]TierEntry{
				{AssessmentCode: "D9", Tier: models.TierB},
				{AssessmentCode: "D9", Tier: models.TierC},
			},
			models.TierB,
		},
		{
			"all C",
			[]TierEntry{{AssessmentCode: "D9", Tier: models.TierC}},
			models.TierC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FinalTier(cfg, tt.entries).Tier)
		})
	}
}

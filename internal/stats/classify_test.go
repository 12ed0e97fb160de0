package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-dashboard/internal/models"
)

func annualSeries(totals ...float64) []models.BucketSummary {
	series := make([]models.BucketSummary, len(totals))
	for i, total := range totals {
		series[i] = models.BucketSummary{
			Year:                 2000 + i,
			TotalPrecipitationMm: total,
			SampleCount:          365,
		}
	}
	return series
}

func TestClassifyExtremesSingleOutlier(t *testing.T) {
	// mean = 180, population stddev = 160
	events := ClassifyExtremes(annualSeries(100, 100, 100, 100, 500))
	require.Len(t, events, 5)

	for _, event := range events[:4] {
		assert.Equal(t, -0.5, event.DeviationStdDevs)
		assert.Equal(t, models.CategoryNormal, event.Category)
	}

	outlier := events[4]
	assert.Equal(t, 500.0, outlier.TotalRainfallMm)
	assert.Equal(t, 2.0, outlier.DeviationStdDevs)
	assert.Equal(t, models.CategoryExtremeHigh, outlier.Category)
}

func TestClassifyExtremesDegenerateSeries(t *testing.T) {
	// All years identical: stddev is 0 and deviation would be 0/0. Every
	// year must come back normal, with no NaN anywhere.
	events := ClassifyExtremes(annualSeries(100, 100, 100))
	require.Len(t, events, 3)

	for _, event := range events {
		assert.Equal(t, models.CategoryNormal, event.Category)
		assert.Equal(t, 0.0, event.DeviationStdDevs)
		assert.False(t, event.DeviationStdDevs != event.DeviationStdDevs, "deviation must not be NaN")
	}
}

func TestClassifyExtremesThresholdBands(t *testing.T) {
	tests := []struct {
		name      string
		deviation float64
		want      models.ExtremeCategory
	}{
		{"above extreme threshold", 1.51, models.CategoryExtremeHigh},
		{"exactly 1.5 is high", 1.5, models.CategoryHigh},
		{"above high threshold", 0.76, models.CategoryHigh},
		{"exactly 0.75 is normal", 0.75, models.CategoryNormal},
		{"zero", 0, models.CategoryNormal},
		{"exactly -0.75 is normal", -0.75, models.CategoryNormal},
		{"below low threshold", -0.76, models.CategoryLow},
		{"exactly -1.5 is low", -1.5, models.CategoryLow},
		{"below extreme threshold", -1.51, models.CategoryExtremeLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categorize(tt.deviation))
		})
	}
}

func TestClassifyExtremesNotStableUnderFiltering(t *testing.T) {
	full := ClassifyExtremes(annualSeries(100, 100, 100, 100, 500))
	filtered := ClassifyExtremes(annualSeries(100, 100, 100, 100))

	// Removing the outlier year changes the remaining years' deviations
	assert.Equal(t, -0.5, full[0].DeviationStdDevs)
	assert.Equal(t, 0.0, filtered[0].DeviationStdDevs)
}

func TestClassifyExtremesEmptyInput(t *testing.T) {
	assert.Empty(t, ClassifyExtremes(nil))
}

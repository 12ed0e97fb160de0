package stats

import (
	"math"

	"climate-dashboard/internal/models"
)

// ClassifyExtremes labels each year of the annual series by its rainfall
// deviation from the historical mean, in population standard deviations
// (divide by N, not N-1).
//
// The classification is not stable under filtering: removing a year changes
// the mean and standard deviation, which can change every other year's
// category. Callers filtering by year range must recompute, never reuse
// previously derived categories.
func ClassifyExtremes(annual []models.BucketSummary) []models.ExtremeEvent {
	if len(annual) == 0 {
		return []models.ExtremeEvent{}
	}

	var sum float64
	for _, year := range annual {
		sum += year.TotalPrecipitationMm
	}
	mean := sum / float64(len(annual))

	var varianceSum float64
	for _, year := range annual {
		diff := year.TotalPrecipitationMm - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(annual)))

	events := make([]models.ExtremeEvent, 0, len(annual))
	for _, year := range annual {
		event := models.ExtremeEvent{
			Year:            year.Year,
			TotalRainfallMm: year.TotalPrecipitationMm,
			Category:        models.CategoryNormal,
		}

		// Degenerate series (all years identical): deviation is 0/0.
		// Every year is classified normal rather than propagating NaN.
		if stdDev > 0 {
			event.DeviationStdDevs = models.Round2((year.TotalPrecipitationMm - mean) / stdDev)
			event.Category = categorize(event.DeviationStdDevs)
		}

		events = append(events, event)
	}

	return events
}

// categorize applies the anomaly thresholds in priority order; first match
// wins
func categorize(deviation float64) models.ExtremeCategory {
	switch {
	case deviation > 1.5:
		return models.CategoryExtremeHigh
	case deviation > 0.75:
		return models.CategoryHigh
	case deviation < -1.5:
		return models.CategoryExtremeLow
	case deviation < -0.75:
		return models.CategoryLow
	default:
		return models.CategoryNormal
	}
}

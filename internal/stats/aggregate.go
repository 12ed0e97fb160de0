package stats

import (
	"sort"

	"climate-dashboard/internal/models"
)

// YearRange is an optional inclusive filter applied before bucketing
type YearRange struct {
	Start int
	End   int
}

// Contains reports whether the year falls inside the range
func (r *YearRange) Contains(year int) bool {
	if r == nil {
		return true
	}
	return year >= r.Start && year <= r.End
}

// bucketKey identifies one aggregation bucket. monthOrSeason holds the month
// (1-12) for monthly buckets or the season ordinal for seasonal ones.
type bucketKey struct {
	year          int
	monthOrSeason int
}

type accumulator struct {
	precipSum     float64
	precipCount   int
	tempSum       float64
	tempCount     int
	humiditySum   float64
	humidityCount int
	pressureSum   float64
	pressureCount int
	sampleCount   int
}

var seasonOrder = []models.Season{models.SeasonSpring, models.SeasonSummer, models.SeasonAutumn, models.SeasonWinter}

func seasonOrdinal(s models.Season) int {
	for i, season := range seasonOrder {
		if season == s {
			return i
		}
	}
	return 0
}

// Aggregate groups daily records into buckets of the requested granularity
// and computes descriptive statistics per bucket. Buckets with no records are
// omitted, never zero-filled; every returned bucket has SampleCount >= 1.
//
// Accumulation runs at full precision. Rounding is a presentation concern and
// is applied by callers via BucketSummary.Rounded.
func Aggregate(records []models.DailyRecord, granularity models.Granularity, years *YearRange) []models.BucketSummary {
	buckets := make(map[bucketKey]*accumulator)

	for i := range records {
		record := &records[i]
		if !years.Contains(record.Year()) {
			continue
		}

		key := bucketKey{year: record.Year()}
		switch granularity {
		case models.GranularityMonth:
			key.monthOrSeason = record.Month()
		case models.GranularitySeason:
			key.monthOrSeason = seasonOrdinal(models.SeasonOf(record.Date.Month()))
		}

		acc, ok := buckets[key]
		if !ok {
			acc = &accumulator{}
			buckets[key] = acc
		}
		acc.sampleCount++

		if record.PrecipitationMm != nil {
			acc.precipSum += *record.PrecipitationMm
			acc.precipCount++
		}
		if record.TemperatureC != nil {
			acc.tempSum += *record.TemperatureC
			acc.tempCount++
		}
		if record.HumidityPct != nil {
			acc.humiditySum += *record.HumidityPct
			acc.humidityCount++
		}
		if record.PressureHpa != nil {
			acc.pressureSum += *record.PressureHpa
			acc.pressureCount++
		}
	}

	keys := make([]bucketKey, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].monthOrSeason < keys[j].monthOrSeason
	})

	summaries := make([]models.BucketSummary, 0, len(keys))
	for _, key := range keys {
		acc := buckets[key]
		summary := models.BucketSummary{
			Year:                    key.year,
			TotalPrecipitationMm:    acc.precipSum,
			MeanTemperatureC:        meanOrNil(acc.tempSum, acc.tempCount),
			MeanHumidityPct:         meanOrNil(acc.humiditySum, acc.humidityCount),
			MeanPressureHpa:         meanOrNil(acc.pressureSum, acc.pressureCount),
			SampleCount:             acc.sampleCount,
			ValidPrecipitationCount: acc.precipCount,
			ValidTemperatureCount:   acc.tempCount,
			ValidHumidityCount:      acc.humidityCount,
			ValidPressureCount:      acc.pressureCount,
		}
		switch granularity {
		case models.GranularityMonth:
			summary.Month = key.monthOrSeason
		case models.GranularitySeason:
			summary.Season = seasonOrder[key.monthOrSeason]
		}
		summaries = append(summaries, summary)
	}

	return summaries
}

// meanOrNil returns the arithmetic mean, or nil when the bucket has zero
// non-null values for the field. The mean must never silently become 0.
func meanOrNil(sum float64, count int) *float64 {
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}

// AverageMonthlyRainfall is the mean of per-month precipitation totals across
// all years. This is a different statistic from AverageDailyRainfall and the
// two must not be conflated.
func AverageMonthlyRainfall(records []models.DailyRecord) float64 {
	monthly := Aggregate(records, models.GranularityMonth, nil)
	if len(monthly) == 0 {
		return 0
	}
	var sum float64
	for _, bucket := range monthly {
		sum += bucket.TotalPrecipitationMm
	}
	return sum / float64(len(monthly))
}

// AverageDailyRainfall is the mean of daily precipitation values, skipping
// missing days by count
func AverageDailyRainfall(records []models.DailyRecord) float64 {
	var sum float64
	count := 0
	for i := range records {
		if records[i].PrecipitationMm != nil {
			sum += *records[i].PrecipitationMm
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// MeanAnnualRainfall is the mean of per-year precipitation totals, used as
// the city-wide baseline for the choropleth layer
func MeanAnnualRainfall(records []models.DailyRecord) float64 {
	annual := Aggregate(records, models.GranularityYear, nil)
	if len(annual) == 0 {
		return 0
	}
	var sum float64
	for _, bucket := range annual {
		sum += bucket.TotalPrecipitationMm
	}
	return sum / float64(len(annual))
}

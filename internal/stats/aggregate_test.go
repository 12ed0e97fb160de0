package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-dashboard/internal/models"
)

func day(year int, month time.Month, d int, precip, temp *float64) models.DailyRecord {
	return models.DailyRecord{
		Date:            time.Date(year, month, d, 0, 0, 0, 0, time.UTC),
		PrecipitationMm: precip,
		TemperatureC:    temp,
	}
}

func f(v float64) *float64 { return &v }

func TestAggregateAnnualBucketPerDistinctYear(t *testing.T) {
	records := []models.DailyRecord{
		day(2000, time.January, 1, f(1), f(10)),
		day(2000, time.July, 1, f(2), f(25)),
		day(2003, time.July, 1, f(4), f(26)),
		day(2005, time.July, 1, f(8), f(27)),
	}

	annual := Aggregate(records, models.GranularityYear, nil)

	// One bucket per distinct year; years with no records are omitted
	require.Len(t, annual, 3)
	assert.Equal(t, 2000, annual[0].Year)
	assert.Equal(t, 2003, annual[1].Year)
	assert.Equal(t, 2005, annual[2].Year)

	assert.Equal(t, 3.0, annual[0].TotalPrecipitationMm)
	assert.Equal(t, 2, annual[0].SampleCount)
}

func TestAggregateMonthlySumsMatchAnnualTotal(t *testing.T) {
	var records []models.DailyRecord
	precip := 0.1
	for month := time.January; month <= time.December; month++ {
		for d := 1; d <= 28; d++ {
			records = append(records, day(1998, month, d, f(precip), f(20)))
			precip += 0.3
		}
	}

	monthly := Aggregate(records, models.GranularityMonth, nil)
	annual := Aggregate(records, models.GranularityYear, nil)

	require.Len(t, monthly, 12)
	require.Len(t, annual, 1)

	var monthlySum float64
	for _, bucket := range monthly {
		monthlySum += bucket.TotalPrecipitationMm
	}

	assert.InDelta(t, annual[0].TotalPrecipitationMm, monthlySum, 1e-9)
}

func TestAggregateSeasonBuckets(t *testing.T) {
	records := []models.DailyRecord{
		day(2010, time.January, 15, f(5), f(5)),
		day(2010, time.December, 15, f(7), f(4)),
		day(2010, time.June, 15, f(100), f(30)),
		day(2010, time.October, 15, f(20), f(18)),
	}

	seasonal := Aggregate(records, models.GranularitySeason, nil)
	require.Len(t, seasonal, 3)

	bySeason := make(map[models.Season]models.BucketSummary)
	for _, bucket := range seasonal {
		bySeason[bucket.Season] = bucket
	}

	// December and January share the Winter bucket within the calendar year
	winter, ok := bySeason[models.SeasonWinter]
	require.True(t, ok)
	assert.Equal(t, 12.0, winter.TotalPrecipitationMm)
	assert.Equal(t, 2, winter.SampleCount)

	summer, ok := bySeason[models.SeasonSummer]
	require.True(t, ok)
	assert.Equal(t, 100.0, summer.TotalPrecipitationMm)

	_, hasSpring := bySeason[models.SeasonSpring]
	assert.False(t, hasSpring, "empty buckets are omitted, not zero-filled")
}

func TestAggregateSkipsNilValuesByCount(t *testing.T) {
	records := []models.DailyRecord{
		day(2010, time.March, 1, f(2), f(10)),
		day(2010, time.March, 2, nil, f(20)),
		day(2010, time.March, 3, f(4), nil),
	}

	monthly := Aggregate(records, models.GranularityMonth, nil)
	require.Len(t, monthly, 1)
	bucket := monthly[0]

	assert.Equal(t, 3, bucket.SampleCount)
	assert.Equal(t, 2, bucket.ValidPrecipitationCount)
	assert.Equal(t, 2, bucket.ValidTemperatureCount)
	assert.Equal(t, 6.0, bucket.TotalPrecipitationMm)

	// Mean over non-nil values only: (10+20)/2, not (10+20+0)/3
	require.NotNil(t, bucket.MeanTemperatureC)
	assert.InDelta(t, 15.0, *bucket.MeanTemperatureC, 1e-9)
}

func TestAggregateAllNilFieldReportsUndefined(t *testing.T) {
	records := []models.DailyRecord{
		day(2010, time.March, 1, f(2), nil),
		day(2010, time.March, 2, f(3), nil),
	}

	monthly := Aggregate(records, models.GranularityMonth, nil)
	require.Len(t, monthly, 1)

	// Zero non-null samples: undefined, must not silently become 0
	assert.Nil(t, monthly[0].MeanTemperatureC)
	assert.Equal(t, 0, monthly[0].ValidTemperatureCount)
}

func TestAggregateYearRangeFilter(t *testing.T) {
	records := []models.DailyRecord{
		day(1995, time.May, 1, f(1), f(20)),
		day(1999, time.May, 1, f(2), f(20)),
		day(2000, time.May, 1, f(4), f(20)),
		day(2004, time.May, 1, f(8), f(20)),
	}

	annual := Aggregate(records, models.GranularityYear, &YearRange{Start: 1999, End: 2000})

	require.Len(t, annual, 2)
	assert.Equal(t, 1999, annual[0].Year)
	assert.Equal(t, 2000, annual[1].Year)
}

func TestAggregateEmptyInput(t *testing.T) {
	assert.Empty(t, Aggregate(nil, models.GranularityYear, nil))
}

func TestAverageMonthlyVersusDailyRainfall(t *testing.T) {
	// Two months of daily values: the two statistics differ and must not be
	// conflated.
	var records []models.DailyRecord
	for d := 1; d <= 10; d++ {
		records = append(records, day(2001, time.June, d, f(3), f(25)))
	}
	for d := 1; d <= 10; d++ {
		records = append(records, day(2001, time.July, d, f(1), f(26)))
	}

	// Per-month totals: 30 and 10, mean 20
	assert.InDelta(t, 20.0, AverageMonthlyRainfall(records), 1e-9)

	// Daily values: mean of ten 3s and ten 1s
	assert.InDelta(t, 2.0, AverageDailyRainfall(records), 1e-9)
}

func TestMeanAnnualRainfall(t *testing.T) {
	records := []models.DailyRecord{
		day(2000, time.June, 1, f(100), nil),
		day(2001, time.June, 1, f(300), nil),
	}
	assert.InDelta(t, 200.0, MeanAnnualRainfall(records), 1e-9)
}

package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-dashboard/internal/dataset"
	"climate-dashboard/internal/export"
	"climate-dashboard/internal/models"
	"climate-dashboard/internal/parser"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

type memorySource struct {
	body string
}

func (s *memorySource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func (s *memorySource) Name() string { return "memory" }

func newTestService(t *testing.T, csv string) *ClimateService {
	t.Helper()

	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())

	anchor := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	p := parser.NewParser(anchor, logger, collector)
	store := dataset.NewStore(&memorySource{body: csv}, p, clockwork.NewRealClock(), logger, collector)
	exporter := export.NewWriter(logger, collector)
	return NewClimateService(store, nil, nil, exporter, logger, collector)
}

func TestGetOverview(t *testing.T) {
	csv := strings.Join([]string{
		"date,prcp,tavg,rhum",
		"1995-06-01,2.0,24.0,70",
		"1995-06-02,0.0,25.0,72",
		"1997-06-01,4.0,23.0,68",
	}, "\n")

	service := newTestService(t, csv)
	overview, err := service.GetOverview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, overview.RecordCount)
	assert.Equal(t, "1995-06-01", overview.FirstDate)
	assert.Equal(t, "1997-06-01", overview.LastDate)
	assert.Equal(t, 3, overview.YearCount)
	assert.False(t, overview.DatesSynthesized)
	assert.False(t, overview.HumidityDerived)

	// Annual totals 2.0 and 4.0 give a mean of 3.0.
	assert.InDelta(t, 3.0, overview.MeanAnnualRainfallMm, 1e-9)
	assert.InDelta(t, 2.0, overview.AverageDailyRainfall, 1e-9)
}

func TestGetOverviewFlagsSyntheticData(t *testing.T) {
	// No date and no humidity column: both fallbacks engage.
	csv := strings.Join([]string{
		"prcp,tavg",
		"1.0,20.0",
		"2.0,21.0",
	}, "\n")

	service := newTestService(t, csv)
	overview, err := service.GetOverview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, overview.RecordCount)
	assert.True(t, overview.DatesSynthesized)
	assert.True(t, overview.HumidityDerived)
	assert.Equal(t, "1990-01-01", overview.FirstDate)
}

func TestGetOverviewEmptyDataset(t *testing.T) {
	service := newTestService(t, "date,prcp\n")

	overview, err := service.GetOverview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, overview.RecordCount)
	assert.Empty(t, overview.FirstDate)
	assert.Equal(t, 0, overview.YearCount)
}

func TestRainfallSummarySeasons(t *testing.T) {
	csv := strings.Join([]string{
		"date,prcp,tavg",
		"2002-01-15,3.0,5.0",
		"2002-07-15,9.0,28.0",
		"2002-12-15,6.0,4.0",
	}, "\n")

	service := newTestService(t, csv)
	buckets, err := service.RainfallSummary(context.Background(), models.GranularitySeason, nil)
	require.NoError(t, err)

	require.Len(t, buckets, 2)
	assert.Equal(t, models.SeasonSummer, buckets[0].Season)
	assert.InDelta(t, 9.0, buckets[0].TotalPrecipitationMm, 1e-9)
	assert.Equal(t, models.SeasonWinter, buckets[1].Season)
	assert.InDelta(t, 9.0, buckets[1].TotalPrecipitationMm, 1e-9)
}

func TestExportCSVCount(t *testing.T) {
	csv := strings.Join([]string{
		"date,prcp,tavg,rhum",
		"1995-06-01,2.0,24.0,70",
		"1995-06-02,0.0,25.0,72",
	}, "\n")

	service := newTestService(t, csv)

	var out bytes.Buffer
	count, err := service.ExportCSV(context.Background(), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 3, strings.Count(out.String(), "\n"))
}

func TestCacheStateTransitions(t *testing.T) {
	service := newTestService(t, "date,prcp\n2000-01-01,1.0\n")

	assert.Equal(t, dataset.StateEmpty, service.CacheState())

	_, err := service.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dataset.StateReady, service.CacheState())
}

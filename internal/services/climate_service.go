package services

import (
	"context"
	"io"

	"climate-dashboard/internal/dataset"
	"climate-dashboard/internal/export"
	"climate-dashboard/internal/geo"
	"climate-dashboard/internal/models"
	"climate-dashboard/internal/stats"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// ClimateService derives dashboard statistics from the cached record set.
// All derivations are recomputed on demand from the immutable records; only
// the record set itself is memoized (by the dataset store).
type ClimateService struct {
	store      *dataset.Store
	boundaries *geo.FeatureCollection
	factors    map[string]float64
	exporter   *export.Writer
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewClimateService creates a new climate service. boundaries may be nil
// when no boundary file is configured; the choropleth endpoint then serves
// an empty layer.
func NewClimateService(
	store *dataset.Store,
	boundaries *geo.FeatureCollection,
	factors map[string]float64,
	exporter *export.Writer,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ClimateService {
	return &ClimateService{
		store:      store,
		boundaries: boundaries,
		factors:    factors,
		exporter:   exporter,
		logger:     logger,
		metrics:    metricsCollector,
	}
}

// Records returns the full daily record set, loading it on first use
func (s *ClimateService) Records(ctx context.Context) ([]models.DailyRecord, error) {
	return s.store.Records(ctx)
}

// RainfallSummary aggregates the record set into buckets of the requested
// granularity, optionally filtered to an inclusive year range
func (s *ClimateService) RainfallSummary(ctx context.Context, granularity models.Granularity, years *stats.YearRange) ([]models.BucketSummary, error) {
	records, err := s.store.Records(ctx)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.StatsCalculationDuration.WithLabelValues("aggregate"))
	defer timer.ObserveDuration()

	return stats.Aggregate(records, granularity, years), nil
}

// Extremes classifies every year of the annual series by rainfall anomaly.
// The categories depend on the full series; a year-range filter applied here
// would invalidate categories outside the filter too, so classification
// always runs on the complete record set.
func (s *ClimateService) Extremes(ctx context.Context) ([]models.ExtremeEvent, error) {
	records, err := s.store.Records(ctx)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.StatsCalculationDuration.WithLabelValues("classify"))
	defer timer.ObserveDuration()

	annual := stats.Aggregate(records, models.GranularityYear, nil)
	return stats.ClassifyExtremes(annual), nil
}

// Correlations computes the pairwise correlation matrix over the flat record
// set
func (s *ClimateService) Correlations(ctx context.Context) ([]models.CorrelationResult, error) {
	records, err := s.store.Records(ctx)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.StatsCalculationDuration.WithLabelValues("correlate"))
	defer timer.ObserveDuration()

	return stats.CorrelationMatrix(records), nil
}

// Choropleth joins boundary regions against the factor table, scaled by the
// city-wide mean annual rainfall
func (s *ClimateService) Choropleth(ctx context.Context) ([]geo.RegionValue, error) {
	if s.boundaries == nil {
		s.logger.Warn(ctx, "[CHOROPLETH_NO_BOUNDARIES] No boundary file configured", logging.Fields{})
		return []geo.RegionValue{}, nil
	}

	records, err := s.store.Records(ctx)
	if err != nil {
		return nil, err
	}

	timer := s.metrics.NewTimer(s.metrics.StatsCalculationDuration.WithLabelValues("choropleth"))
	defer timer.ObserveDuration()

	mean := stats.MeanAnnualRainfall(records)
	return geo.Choropleth(ctx, s.boundaries, s.factors, mean, s.logger), nil
}

// Overview summarizes the dataset. Average monthly rainfall is the mean of
// per-month totals across years; average daily rainfall is the mean of daily
// values. The two are distinct statistics and are reported under distinct
// names.
type Overview struct {
	RecordCount            int      `json:"record_count"`
	FirstDate              string   `json:"first_date,omitempty"`
	LastDate               string   `json:"last_date,omitempty"`
	YearCount              int      `json:"year_count"`
	MeanAnnualRainfallMm   float64  `json:"mean_annual_rainfall_mm"`
	AverageMonthlyRainfall float64  `json:"average_monthly_rainfall_mm"`
	AverageDailyRainfall   float64  `json:"average_daily_rainfall_mm"`
	DatesSynthesized       bool     `json:"dates_synthesized,omitempty"`
	HumidityDerived        bool     `json:"humidity_derived,omitempty"`
}

// GetOverview computes dataset-level summary statistics
func (s *ClimateService) GetOverview(ctx context.Context) (*Overview, error) {
	records, err := s.store.Records(ctx)
	if err != nil {
		return nil, err
	}

	overview := &Overview{
		RecordCount:            len(records),
		MeanAnnualRainfallMm:   models.Round1(stats.MeanAnnualRainfall(records)),
		AverageMonthlyRainfall: models.Round1(stats.AverageMonthlyRainfall(records)),
		AverageDailyRainfall:   models.Round1(stats.AverageDailyRainfall(records)),
	}

	if len(records) > 0 {
		overview.FirstDate = records[0].Date.Format("2006-01-02")
		overview.LastDate = records[len(records)-1].Date.Format("2006-01-02")
		overview.YearCount = records[len(records)-1].Year() - records[0].Year() + 1
		overview.DatesSynthesized = records[0].DateSynthesized
		overview.HumidityDerived = records[0].HumidityDerived
	}

	return overview, nil
}

// ExportCSV serializes the record set to the tabular export format
func (s *ClimateService) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	records, err := s.store.Records(ctx)
	if err != nil {
		return 0, err
	}

	if err := s.exporter.Write(ctx, w, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// CacheState exposes the dataset cache state for health reporting
func (s *ClimateService) CacheState() dataset.State {
	return s.store.State()
}

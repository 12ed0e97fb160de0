package models

import (
	"math"
	"time"
)

// DailyRecord represents a single day of climate measurements for the city.
// NULL values represented as pointers; missing fields are never coerced to 0.
type DailyRecord struct {
	Date            time.Time `json:"date"`
	PrecipitationMm *float64  `json:"precipitation_mm,omitempty"`
	TemperatureC    *float64  `json:"temperature_c,omitempty"`
	HumidityPct     *float64  `json:"humidity_pct,omitempty"`
	PressureHpa     *float64  `json:"pressure_hpa,omitempty"`
	SnowMm          *float64  `json:"snow_mm,omitempty"`
	WindSpeedKmh    *float64  `json:"wind_speed_kmh,omitempty"`
	SunshineMinutes *float64  `json:"sunshine_minutes,omitempty"`

	// HumidityDerived marks humidity estimated from the seasonal model rather
	// than measured. Consumers must label such values as derived.
	HumidityDerived bool `json:"humidity_derived,omitempty"`

	// DateSynthesized marks an index-derived date (source had no date column).
	// Such dates assume a gapless daily series and are low-confidence.
	DateSynthesized bool `json:"date_synthesized,omitempty"`
}

// Year returns the calendar year of the record
func (r *DailyRecord) Year() int {
	return r.Date.Year()
}

// Month returns the calendar month of the record (1-12)
func (r *DailyRecord) Month() int {
	return int(r.Date.Month())
}

// Season identifies a meteorological season
type Season string

const (
	SeasonSpring Season = "Spring"
	SeasonSummer Season = "Summer"
	SeasonAutumn Season = "Autumn"
	SeasonWinter Season = "Winter"
)

// SeasonOf maps a calendar month to its meteorological season:
// {3,4,5} Spring, {6,7,8} Summer, {9,10,11} Autumn, {12,1,2} Winter.
func SeasonOf(month time.Month) Season {
	switch month {
	case time.March, time.April, time.May:
		return SeasonSpring
	case time.June, time.July, time.August:
		return SeasonSummer
	case time.September, time.October, time.November:
		return SeasonAutumn
	default:
		return SeasonWinter
	}
}

// Granularity selects the time bucket used for aggregation
type Granularity string

const (
	GranularityMonth  Granularity = "month"
	GranularitySeason Granularity = "season"
	GranularityYear   Granularity = "year"
)

// Valid reports whether the granularity is one of the supported buckets
func (g Granularity) Valid() bool {
	switch g {
	case GranularityMonth, GranularitySeason, GranularityYear:
		return true
	}
	return false
}

// BucketSummary represents aggregate statistics for one time bucket.
// Month is 0 and Season empty unless the matching granularity was requested.
// Mean fields are nil when the bucket has zero non-null samples for that
// field; they are never silently reported as 0.
type BucketSummary struct {
	Year   int    `json:"year"`
	Month  int    `json:"month,omitempty"`
	Season Season `json:"season,omitempty"`

	TotalPrecipitationMm float64  `json:"total_precipitation_mm"`
	MeanTemperatureC     *float64 `json:"mean_temperature_c"`
	MeanHumidityPct      *float64 `json:"mean_humidity_pct"`
	MeanPressureHpa      *float64 `json:"mean_pressure_hpa"`

	SampleCount             int `json:"sample_count"`
	ValidPrecipitationCount int `json:"valid_precipitation_count"`
	ValidTemperatureCount   int `json:"valid_temperature_count"`
	ValidHumidityCount      int `json:"valid_humidity_count"`
	ValidPressureCount      int `json:"valid_pressure_count"`
}

// Rounded returns a presentation copy with values rounded to one decimal
// place. Internal accumulation stays at full precision; rounding happens only
// at this boundary.
func (b BucketSummary) Rounded() BucketSummary {
	out := b
	out.TotalPrecipitationMm = Round1(b.TotalPrecipitationMm)
	out.MeanTemperatureC = roundPtr1(b.MeanTemperatureC)
	out.MeanHumidityPct = roundPtr1(b.MeanHumidityPct)
	out.MeanPressureHpa = roundPtr1(b.MeanPressureHpa)
	return out
}

// ExtremeCategory classifies a year by rainfall anomaly
type ExtremeCategory string

const (
	CategoryExtremeHigh ExtremeCategory = "extreme_high"
	CategoryHigh        ExtremeCategory = "high"
	CategoryNormal      ExtremeCategory = "normal"
	CategoryLow         ExtremeCategory = "low"
	CategoryExtremeLow  ExtremeCategory = "extreme_low"
)

// ExtremeEvent labels one year of the annual rainfall series by its deviation
// from the historical population mean, in population standard deviations.
// Categories depend on the whole input series: adding or removing a year can
// change every other year's category.
type ExtremeEvent struct {
	Year             int             `json:"year"`
	TotalRainfallMm  float64         `json:"total_rainfall_mm"`
	DeviationStdDevs float64         `json:"deviation_std_devs"`
	Category         ExtremeCategory `json:"category"`
}

// Variable identifies a climate variable for correlation analysis
type Variable string

const (
	VariableRainfall    Variable = "rainfall"
	VariableTemperature Variable = "temperature"
	VariableHumidity    Variable = "humidity"
)

// Valid reports whether the variable is one of the supported selectors
func (v Variable) Valid() bool {
	switch v {
	case VariableRainfall, VariableTemperature, VariableHumidity:
		return true
	}
	return false
}

// CorrelationResult holds a Pearson coefficient for an unordered variable
// pair. R is nil when either variable has zero variance in the input set
// (the coefficient is undefined, not 0).
type CorrelationResult struct {
	VariableA Variable `json:"variable_a"`
	VariableB Variable `json:"variable_b"`
	R         *float64 `json:"r"`
	N         int      `json:"n"`
}

// Round1 rounds to one decimal place, half away from zero
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Round2 rounds to two decimal places, half away from zero
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func roundPtr1(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round1(*v)
	return &r
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 {
	return &v
}

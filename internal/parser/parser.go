package parser

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"climate-dashboard/internal/models"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// Sentinel placeholder for invalid temperatures seen in the source feed
// (0 °F converted to Celsius). Excluded from temperature values, not
// substituted.
const invalidTemperatureC = -17.8

// Canonical column keys after header normalization
const (
	colDate     = "date"
	colTempAvg  = "tavg"
	colTempMin  = "tmin"
	colTempMax  = "tmax"
	colPrecip   = "prcp"
	colSnow     = "snow"
	colWindDir  = "wdir"
	colWindSpd  = "wspd"
	colWindGust = "wpgt"
	colPressure = "pres"
	colSunshine = "tsun"
	colHumidity = "rhum"
)

// headerAliases maps normalized header names to canonical column keys.
// Column order in the source is irrelevant; only names matter.
var headerAliases = map[string]string{
	"date":                colDate,
	"observationdate":     colDate,
	"day":                 colDate,
	"tavg":                colTempAvg,
	"temp":                colTempAvg,
	"temperature":         colTempAvg,
	"temperatureavg":      colTempAvg,
	"temperatureaverage":  colTempAvg,
	"avgtemperature":      colTempAvg,
	"meantemperature":     colTempAvg,
	"tmin":                colTempMin,
	"temperaturemin":      colTempMin,
	"mintemperature":      colTempMin,
	"tmax":                colTempMax,
	"temperaturemax":      colTempMax,
	"maxtemperature":      colTempMax,
	"prcp":                colPrecip,
	"precipitation":       colPrecip,
	"precip":              colPrecip,
	"rain":                colPrecip,
	"rainfall":            colPrecip,
	"snow":                colSnow,
	"snowfall":            colSnow,
	"wdir":                colWindDir,
	"winddirection":       colWindDir,
	"wspd":                colWindSpd,
	"windspeed":           colWindSpd,
	"wpgt":                colWindGust,
	"windgust":            colWindGust,
	"peakgust":            colWindGust,
	"pres":                colPressure,
	"pressure":            colPressure,
	"sealevelpressure":    colPressure,
	"mslp":                colPressure,
	"tsun":                colSunshine,
	"sunshine":            colSunshine,
	"sunshineduration":    colSunshine,
	"rhum":                colHumidity,
	"humidity":            colHumidity,
	"relativehumidity":    colHumidity,
	"meanhumidity":        colHumidity,
}

// dateFormats tried in order when parsing explicit date values
var dateFormats = []string{"2006-01-02", "2006/01/02", "20060102"}

// Parser converts raw CSV text into typed daily climate records
type Parser struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	// anchor is the first day of the dataset's known range, used to
	// synthesize dates when the source carries no date column.
	anchor time.Time
}

// NewParser creates a new record parser
func NewParser(anchor time.Time, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Parser {
	return &Parser{
		logger:  logger,
		metrics: metricsCollector,
		anchor:  anchor,
	}
}

// Parse reads CSV text and returns daily records sorted by date ascending.
//
// Rows are dropped only when their date cannot be established; individual
// missing or non-numeric fields become nil and are excluded from that field's
// aggregations downstream. Empty or unparseable input yields an empty
// sequence, never an error for malformed rows.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]models.DailyRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		p.logger.Warn(ctx, "[PARSE_EMPTY] Source contained no rows", logging.Fields{})
		return []models.DailyRecord{}, nil
	}
	if err != nil {
		p.logger.Warn(ctx, "[PARSE_HEADER_ERROR] Failed to read header row", logging.Fields{
			"error": err.Error(),
		})
		return []models.DailyRecord{}, nil
	}

	columns := resolveColumns(header)
	if _, hasPrecip := columns[colPrecip]; !hasPrecip {
		if !hasTemperature(columns) {
			p.logger.Warn(ctx, "[PARSE_NO_COLUMNS] No recognized climate columns in header", logging.Fields{
				"header": strings.Join(header, ","),
			})
			return []models.DailyRecord{}, nil
		}
	}

	_, hasDate := columns[colDate]
	_, hasHumidity := columns[colHumidity]

	records := make([]models.DailyRecord, 0, 1024)
	rowIndex := 0
	dropped := 0

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A structurally broken row; skip it, never abort the batch.
			dropped++
			p.metrics.RecordRowDropped("malformed")
			p.logger.Warn(ctx, "[PARSE_ROW_MALFORMED] Dropping unreadable row", logging.Fields{
				"row":   rowIndex,
				"error": err.Error(),
			})
			rowIndex++
			continue
		}

		record, ok := p.parseRow(ctx, row, columns, hasDate, rowIndex)
		rowIndex++
		if !ok {
			dropped++
			continue
		}
		if !hasHumidity {
			h := EstimateHumidity(record.Date.Month(), record.TemperatureC)
			record.HumidityPct = &h
			record.HumidityDerived = true
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Date.Before(records[j].Date)
	})

	p.metrics.RecordsParsedTotal.Add(float64(len(records)))
	p.logger.Info(ctx, "[PARSE_COMPLETE] Parsed daily records", logging.Fields{
		"records":          len(records),
		"dropped_rows":     dropped,
		"date_synthesized": !hasDate,
		"humidity_derived": !hasHumidity,
	})

	return records, nil
}

// parseRow converts one CSV row into a DailyRecord. Returns ok=false when the
// row must be dropped (date cannot be established).
func (p *Parser) parseRow(ctx context.Context, row []string, columns map[string]int, hasDate bool, rowIndex int) (models.DailyRecord, bool) {
	var record models.DailyRecord

	if hasDate {
		raw := fieldAt(row, columns[colDate])
		date, err := parseDate(raw)
		if err != nil {
			p.metrics.RecordRowDropped("bad_date")
			p.logger.Warn(ctx, "[PARSE_BAD_DATE] Dropping row with unparseable date", logging.Fields{
				"row":  rowIndex,
				"date": raw,
			})
			return record, false
		}
		record.Date = date
	} else {
		// Index-based synthesis: assumes a gapless daily series starting at
		// the anchor. Low-confidence; flagged on the record.
		record.Date = p.anchor.AddDate(0, 0, rowIndex)
		record.DateSynthesized = true
	}

	record.PrecipitationMm = parseNonNegative(fieldAt(row, lookupCol(columns, colPrecip)))
	record.TemperatureC = parseTemperature(row, columns)
	record.HumidityPct = parseNonNegative(fieldAt(row, lookupCol(columns, colHumidity)))
	record.PressureHpa = parseOptionalFloat(fieldAt(row, lookupCol(columns, colPressure)))
	record.SnowMm = parseNonNegative(fieldAt(row, lookupCol(columns, colSnow)))
	record.WindSpeedKmh = parseNonNegative(fieldAt(row, lookupCol(columns, colWindSpd)))
	record.SunshineMinutes = parseNonNegative(fieldAt(row, lookupCol(columns, colSunshine)))

	return record, true
}

// parseTemperature resolves the daily temperature: the average column when
// present, otherwise the midpoint of min and max. The -17.8 °C placeholder is
// excluded, not substituted.
func parseTemperature(row []string, columns map[string]int) *float64 {
	if v := parseOptionalFloat(fieldAt(row, lookupCol(columns, colTempAvg))); v != nil {
		return dropSentinel(v)
	}

	tmin := parseOptionalFloat(fieldAt(row, lookupCol(columns, colTempMin)))
	tmax := parseOptionalFloat(fieldAt(row, lookupCol(columns, colTempMax)))
	if tmin == nil || tmax == nil {
		return nil
	}
	mid := (*tmin + *tmax) / 2
	return dropSentinel(&mid)
}

func dropSentinel(v *float64) *float64 {
	if v != nil && math.Abs(*v-invalidTemperatureC) < 1e-9 {
		return nil
	}
	return v
}

// EstimateHumidity derives relative humidity for sources without a humidity
// column: a smooth annual cycle peaking in the wet season, offset by the
// day's mean temperature, clamped to a plausible physical range. Outputs are
// approximations and must be labeled derived, not measured.
func EstimateHumidity(month time.Month, tempC *float64) float64 {
	phase := 2 * math.Pi * (float64(month) - 4.5) / 12
	h := 62 + 18*math.Sin(phase)
	if tempC != nil {
		h -= 0.4 * (*tempC - 25)
	}
	return clamp(h, 25, 100)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// resolveColumns maps canonical column keys to their index in the header.
// Header names are case/whitespace-normalized; unrecognized columns ignored.
func resolveColumns(header []string) map[string]int {
	columns := make(map[string]int)
	for i, name := range header {
		canonical, ok := headerAliases[normalizeHeader(name)]
		if !ok {
			continue
		}
		if _, exists := columns[canonical]; !exists {
			columns[canonical] = i
		}
	}
	return columns
}

func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return replacer.Replace(name)
}

func hasTemperature(columns map[string]int) bool {
	if _, ok := columns[colTempAvg]; ok {
		return true
	}
	_, hasMin := columns[colTempMin]
	_, hasMax := columns[colTempMax]
	return hasMin && hasMax
}

// lookupCol returns the column index or -1 when the column is absent
func lookupCol(columns map[string]int, key string) int {
	if i, ok := columns[key]; ok {
		return i
	}
	return -1
}

func fieldAt(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty date value")
	}
	for _, format := range dateFormats {
		if t, err := time.Parse(format, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized date format")
}

// parseOptionalFloat parses a numeric field, returning nil for missing or
// non-numeric values. Missing values are never coerced to zero.
func parseOptionalFloat(raw string) *float64 {
	if raw == "" || strings.EqualFold(raw, "na") || strings.EqualFold(raw, "nan") || strings.EqualFold(raw, "null") {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseNonNegative parses a field whose domain is non-negative; out-of-range
// values are treated as missing, not clamped
func parseNonNegative(raw string) *float64 {
	v := parseOptionalFloat(raw)
	if v != nil && *v < 0 {
		return nil
	}
	return v
}

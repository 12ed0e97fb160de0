package export

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"climate-dashboard/internal/models"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// Placeholder rendered for missing values. Distinct from a true measured
// zero.
const missingToken = "NA"

// Fields written per record, in order. Header names match the parser's
// recognized vocabulary so an export re-parses cleanly.
var header = []string{"date", "prcp", "tavg", "rhum", "pres", "snow", "wspd", "tsun"}

// Writer serializes the in-memory record set back to CSV
type Writer struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWriter creates a CSV export writer
func NewWriter(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Writer {
	return &Writer{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Write serializes records as CSV with every field quoted and missing values
// rendered as NA. Values are rounded to one decimal place at this
// presentation boundary.
func (w *Writer) Write(ctx context.Context, out io.Writer, records []models.DailyRecord) error {
	timer := w.metrics.NewTimer(w.metrics.ExportDuration)
	defer timer.ObserveDuration()

	buffered := bufio.NewWriter(out)

	if err := writeRow(buffered, header); err != nil {
		return err
	}

	for i := range records {
		record := &records[i]
		row := []string{
			record.Date.Format("2006-01-02"),
			formatValue(record.PrecipitationMm),
			formatValue(record.TemperatureC),
			formatValue(record.HumidityPct),
			formatValue(record.PressureHpa),
			formatValue(record.SnowMm),
			formatValue(record.WindSpeedKmh),
			formatValue(record.SunshineMinutes),
		}
		if err := writeRow(buffered, row); err != nil {
			return err
		}
	}

	if err := buffered.Flush(); err != nil {
		return err
	}

	w.metrics.ExportRecordsTotal.Add(float64(len(records)))
	w.logger.Info(ctx, "[EXPORT_COMPLETE] Record set exported", logging.Fields{
		"records": len(records),
	})

	return nil
}

// writeRow emits one CSV line with every field quoted. encoding/csv only
// quotes when required, so quoting is done by hand here.
func writeRow(w *bufio.Writer, fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quote(field)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

func formatValue(v *float64) string {
	if v == nil {
		return missingToken
	}
	return strconv.FormatFloat(models.Round1(*v), 'f', 1, 64)
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"climate-dashboard/internal/dataset"
	"climate-dashboard/internal/models"
	"climate-dashboard/internal/services"
	"climate-dashboard/internal/stats"
	"climate-dashboard/pkg/logging"
	"climate-dashboard/pkg/metrics"
)

// ClimateHandler handles dashboard API endpoints
type ClimateHandler struct {
	service *services.ClimateService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	city    string
}

// NewClimateHandler creates a new climate handler
func NewClimateHandler(
	service *services.ClimateService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	city string,
) *ClimateHandler {
	return &ClimateHandler{
		service: service,
		logger:  logger,
		metrics: metricsCollector,
		city:    city,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// RequestIDMiddleware tags every request with a request id for log
// correlation
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), "request_id", requestID) //nolint:staticcheck
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRecords handles GET /api/climate/records
func (h *ClimateHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/climate/records").Observe(duration.Seconds())
	}()

	// Parse query parameters
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	// Default pagination
	page := 1
	limit := 100

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	records, err := h.service.Records(ctx)
	if err != nil {
		h.handleDatasetError(w, r, "/api/climate/records", err)
		return
	}

	total := len(records)
	offset := (page - 1) * limit
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	totalPages := (total + limit - 1) / limit

	response := PaginatedResponse{
		Data:       records[offset:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}

	h.metrics.RecordAPIRequest("/api/climate/records", "GET", "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetRainfall handles GET /api/climate/rainfall
func (h *ClimateHandler) GetRainfall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/climate/rainfall").Observe(duration.Seconds())
	}()

	granularity := models.Granularity(r.URL.Query().Get("granularity"))
	if granularity == "" {
		granularity = models.GranularityMonth
	}
	if !granularity.Valid() {
		h.sendError(w, r, "invalid granularity, expected month, season, or year", http.StatusBadRequest)
		return
	}

	years, err := parseYearRange(r)
	if err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	summaries, err := h.service.RainfallSummary(ctx, granularity, years)
	if err != nil {
		h.handleDatasetError(w, r, "/api/climate/rainfall", err)
		return
	}

	// Rounding happens only here, at the presentation boundary
	rounded := make([]models.BucketSummary, len(summaries))
	for i, summary := range summaries {
		rounded[i] = summary.Rounded()
	}

	h.metrics.RecordAPIRequest("/api/climate/rainfall", "GET", "200")
	h.sendJSON(w, map[string]interface{}{
		"granularity": granularity,
		"buckets":     rounded,
	}, http.StatusOK)
}

// GetExtremes handles GET /api/climate/extremes
func (h *ClimateHandler) GetExtremes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/climate/extremes").Observe(duration.Seconds())
	}()

	events, err := h.service.Extremes(ctx)
	if err != nil {
		h.handleDatasetError(w, r, "/api/climate/extremes", err)
		return
	}

	for i := range events {
		events[i].TotalRainfallMm = models.Round1(events[i].TotalRainfallMm)
	}

	h.metrics.RecordAPIRequest("/api/climate/extremes", "GET", "200")
	h.sendJSON(w, map[string]interface{}{
		"years": events,
	}, http.StatusOK)
}

// GetCorrelations handles GET /api/climate/correlations
func (h *ClimateHandler) GetCorrelations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/climate/correlations").Observe(duration.Seconds())
	}()

	results, err := h.service.Correlations(ctx)
	if err != nil {
		h.handleDatasetError(w, r, "/api/climate/correlations", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/climate/correlations", "GET", "200")
	h.sendJSON(w, map[string]interface{}{
		"pairs": results,
	}, http.StatusOK)
}

// GetChoropleth handles GET /api/climate/choropleth
func (h *ClimateHandler) GetChoropleth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/climate/choropleth").Observe(duration.Seconds())
	}()

	regions, err := h.service.Choropleth(ctx)
	if err != nil {
		h.handleDatasetError(w, r, "/api/climate/choropleth", err)
		return
	}

	for i := range regions {
		regions[i].RainfallMm = models.Round1(regions[i].RainfallMm)
	}

	h.metrics.RecordAPIRequest("/api/climate/choropleth", "GET", "200")
	h.sendJSON(w, map[string]interface{}{
		"city":    h.city,
		"regions": regions,
	}, http.StatusOK)
}

// GetOverview handles GET /api/climate/overview
func (h *ClimateHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/climate/overview").Observe(duration.Seconds())
	}()

	overview, err := h.service.GetOverview(ctx)
	if err != nil {
		h.handleDatasetError(w, r, "/api/climate/overview", err)
		return
	}

	h.metrics.RecordAPIRequest("/api/climate/overview", "GET", "200")
	h.sendJSON(w, map[string]interface{}{
		"city":     h.city,
		"overview": overview,
	}, http.StatusOK)
}

// ExportCSV handles GET /api/climate/export
func (h *ClimateHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/climate/export").Observe(duration.Seconds())
	}()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="climate_records.csv"`)

	count, err := h.service.ExportCSV(ctx, w)
	if err != nil {
		// Headers may already be written; log and stop
		h.logger.Error(ctx, "[API_EXPORT_ERROR] Failed to export record set", logging.Fields{}, err)
		h.metrics.RecordAPIError("export_error", "/api/climate/export")
		return
	}

	h.logger.Info(ctx, "[API_EXPORT] Record set exported", logging.Fields{
		"records": count,
	})
	h.metrics.RecordAPIRequest("/api/climate/export", "GET", "200")
}

// HealthCheck handles GET /health
func (h *ClimateHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":        "healthy",
		"city":          h.city,
		"dataset_state": h.service.CacheState().String(),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

// handleDatasetError maps dataset load failures to API responses
func (h *ClimateHandler) handleDatasetError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	ctx := r.Context()

	var unavailable *dataset.SourceUnavailableError
	if errors.As(err, &unavailable) {
		h.logger.Error(ctx, "[API_DATASET_UNAVAILABLE] Dataset could not be loaded", logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("dataset_unavailable", endpoint)
		h.sendError(w, r, "dataset unavailable, retry later", http.StatusServiceUnavailable)
		return
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		h.metrics.RecordAPIError("request_cancelled", endpoint)
		h.sendError(w, r, "request cancelled", http.StatusRequestTimeout)
		return
	}

	h.logger.Error(ctx, "[API_INTERNAL_ERROR] Request failed", logging.Fields{
		"endpoint": endpoint,
	}, err)
	h.metrics.RecordAPIError("internal_error", endpoint)
	h.sendError(w, r, "internal error", http.StatusInternalServerError)
}

// parseYearRange builds the optional inclusive year filter from query
// parameters
func parseYearRange(r *http.Request) (*stats.YearRange, error) {
	startStr := r.URL.Query().Get("start_year")
	endStr := r.URL.Query().Get("end_year")
	if startStr == "" && endStr == "" {
		return nil, nil
	}

	years := &stats.YearRange{Start: 0, End: 9999}

	if startStr != "" {
		start, err := strconv.Atoi(startStr)
		if err != nil {
			return nil, errors.New("invalid start_year, expected integer")
		}
		years.Start = start
	}

	if endStr != "" {
		end, err := strconv.Atoi(endStr)
		if err != nil {
			return nil, errors.New("invalid end_year, expected integer")
		}
		years.End = end
	}

	if years.Start > years.End {
		return nil, errors.New("start_year must not exceed end_year")
	}

	return years, nil
}

// sendJSON sends a JSON response
func (h *ClimateHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *ClimateHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all dashboard API routes
func (h *ClimateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/climate/records", h.GetRecords).Methods("GET")
	router.HandleFunc("/api/climate/overview", h.GetOverview).Methods("GET")
	router.HandleFunc("/api/climate/rainfall", h.GetRainfall).Methods("GET")
	router.HandleFunc("/api/climate/extremes", h.GetExtremes).Methods("GET")
	router.HandleFunc("/api/climate/correlations", h.GetCorrelations).Methods("GET")
	router.HandleFunc("/api/climate/choropleth", h.GetChoropleth).Methods("GET")
	router.HandleFunc("/api/climate/export", h.ExportCSV).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

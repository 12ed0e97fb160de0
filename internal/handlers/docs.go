package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Climate Dashboard API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Climate Dashboard API",
			"description": "Multi-decade daily climate statistics for a single city: rainfall aggregates, anomaly classification, correlations, and choropleth data",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/climate/records": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get daily records",
					"description": "Retrieve the parsed daily record set with pagination",
					"parameters": []map[string]interface{}{
						{
							"name":        "page",
							"in":          "query",
							"description": "Page number (default 1)",
							"required":    false,
							"schema":      map[string]string{"type": "integer"},
						},
						{
							"name":        "limit",
							"in":          "query",
							"description": "Records per page (default 100, max 1000)",
							"required":    false,
							"schema":      map[string]string{"type": "integer"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Paginated daily records"},
						"503": map[string]interface{}{"description": "Dataset unavailable"},
					},
				},
			},
			"/api/climate/overview": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get dataset overview",
					"description": "Record count, date range, and rainfall summary statistics. Average monthly rainfall (mean of per-month totals) and average daily rainfall (mean of daily values) are distinct statistics.",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Dataset overview"},
						"503": map[string]interface{}{"description": "Dataset unavailable"},
					},
				},
			},
			"/api/climate/rainfall": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get bucketed rainfall statistics",
					"description": "Aggregate daily records by month, season, or year; empty buckets are omitted and undefined means are reported as null, never 0",
					"parameters": []map[string]interface{}{
						{
							"name":        "granularity",
							"in":          "query",
							"description": "Bucket granularity (default month)",
							"required":    false,
							"schema": map[string]interface{}{
								"type": "string",
								"enum": []string{"month", "season", "year"},
							},
						},
						{
							"name":        "start_year",
							"in":          "query",
							"description": "Inclusive lower bound of the year filter",
							"required":    false,
							"schema":      map[string]string{"type": "integer"},
						},
						{
							"name":        "end_year",
							"in":          "query",
							"description": "Inclusive upper bound of the year filter",
							"required":    false,
							"schema":      map[string]string{"type": "integer"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Bucket summaries, values rounded to one decimal"},
						"400": map[string]interface{}{"description": "Invalid granularity or year range"},
						"503": map[string]interface{}{"description": "Dataset unavailable"},
					},
				},
			},
			"/api/climate/extremes": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get rainfall anomaly classification",
					"description": "One entry per year with its deviation from the historical mean in population standard deviations and its category (extreme_high, high, normal, low, extreme_low)",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Classified annual series"},
						"503": map[string]interface{}{"description": "Dataset unavailable"},
					},
				},
			},
			"/api/climate/correlations": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get pairwise climate correlations",
					"description": "Pearson correlation coefficients for the unordered pairs of rainfall, temperature, and humidity; r is null when a variable has zero variance",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Correlation matrix as three pairwise results"},
						"503": map[string]interface{}{"description": "Dataset unavailable"},
					},
				},
			},
			"/api/climate/choropleth": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get choropleth layer values",
					"description": "One value per boundary region: the region factor applied to the city-wide mean annual rainfall. Regions missing from the factor table use the neutral factor 1.0.",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Per-region rainfall values with geometry"},
						"503": map[string]interface{}{"description": "Dataset unavailable"},
					},
				},
			},
			"/api/climate/export": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Export the record set as CSV",
					"description": "Serializes the full in-memory record set with all fields quoted and missing values rendered as NA",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "CSV download"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Service status and dataset cache state"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}

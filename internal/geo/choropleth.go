package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"climate-dashboard/pkg/logging"
)

// FeatureCollection is the subset of GeoJSON this service consumes: named
// administrative regions with their polygon geometry passed through untouched
// for the map layer.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is a single named region
type Feature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// Name extracts the region name property used as the join key. Property key
// casing varies between boundary files.
func (f *Feature) Name() string {
	for _, key := range []string{"name", "NAME", "Name", "region", "district"} {
		if v, ok := f.Properties[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// RegionValue is one choropleth entry: the region's rainfall estimate built
// from the city-wide mean scaled by the region's factor.
type RegionValue struct {
	Region     string          `json:"region"`
	Factor     float64         `json:"factor"`
	RainfallMm float64         `json:"rainfall_mm"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
}

// DefaultRegionFactors is the fixed name-to-factor lookup joining boundary
// regions to the city-wide mean annual rainfall. Regions absent from the
// table default to the neutral factor 1.0.
var DefaultRegionFactors = map[string]float64{
	"central":   1.0,
	"north":     0.92,
	"northeast": 0.97,
	"east":      1.08,
	"southeast": 1.12,
	"south":     1.05,
	"southwest": 1.15,
	"west":      1.1,
	"northwest": 0.95,
}

const neutralFactor = 1.0

// ParseBoundaries decodes a GeoJSON FeatureCollection of named regions
func ParseBoundaries(r io.Reader) (*FeatureCollection, error) {
	var fc FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("failed to decode boundary file: %w", err)
	}
	if !strings.EqualFold(fc.Type, "FeatureCollection") {
		return nil, fmt.Errorf("unexpected GeoJSON type %q, want FeatureCollection", fc.Type)
	}
	return &fc, nil
}

// Choropleth joins each boundary region against the factor table and scales
// the city-wide mean annual rainfall. A join miss is not an error: the
// region gets the neutral factor and is logged once per computation.
func Choropleth(ctx context.Context, fc *FeatureCollection, factors map[string]float64, meanAnnualRainfallMm float64, logger *logging.StructuredLogger) []RegionValue {
	if factors == nil {
		factors = DefaultRegionFactors
	}

	values := make([]RegionValue, 0, len(fc.Features))
	for i := range fc.Features {
		feature := &fc.Features[i]
		name := feature.Name()

		factor, ok := factors[strings.ToLower(name)]
		if !ok {
			factor = neutralFactor
			logger.Debug(ctx, "[CHOROPLETH_JOIN_MISS] Region missing from factor table", logging.Fields{
				"region": name,
			})
		}

		values = append(values, RegionValue{
			Region:     name,
			Factor:     factor,
			RainfallMm: meanAnnualRainfallMm * factor,
			Geometry:   feature.Geometry,
		})
	}

	return values
}

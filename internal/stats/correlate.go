package stats

import (
	"math"

	"climate-dashboard/internal/models"
)

// variablePairs are the unordered pairs of the fixed variable set. The
// correlation matrix is exactly these three pairwise computations; there is
// no separate matrix algorithm.
var variablePairs = [][2]models.Variable{
	{models.VariableRainfall, models.VariableTemperature},
	{models.VariableRainfall, models.VariableHumidity},
	{models.VariableTemperature, models.VariableHumidity},
}

// Correlate computes the Pearson product-moment correlation between two
// climate variables over the record set, using only records where both
// variables are present. Returns the coefficient rounded to two decimals and
// the sample size; the coefficient is NaN when either variable has zero
// variance (undefined, never silently 0).
func Correlate(records []models.DailyRecord, a, b models.Variable) (float64, int) {
	xs := make([]float64, 0, len(records))
	ys := make([]float64, 0, len(records))

	for i := range records {
		x := variableValue(&records[i], a)
		y := variableValue(&records[i], b)
		if x == nil || y == nil {
			continue
		}
		xs = append(xs, *x)
		ys = append(ys, *y)
	}

	r := Pearson(xs, ys)
	if math.IsNaN(r) {
		return r, len(xs)
	}
	return models.Round2(r), len(xs)
}

// CorrelationMatrix computes all unordered variable pairs from the fixed set
// {rainfall, temperature, humidity}
func CorrelationMatrix(records []models.DailyRecord) []models.CorrelationResult {
	results := make([]models.CorrelationResult, 0, len(variablePairs))
	for _, pair := range variablePairs {
		r, n := Correlate(records, pair[0], pair[1])
		result := models.CorrelationResult{
			VariableA: pair[0],
			VariableB: pair[1],
			N:         n,
		}
		if !math.IsNaN(r) {
			result.R = models.Float64Ptr(r)
		}
		results = append(results, result)
	}
	return results
}

// Pearson computes the product-moment correlation coefficient:
//
//	r = Σ(xi−x̄)(yi−ȳ) / sqrt(Σ(xi−x̄)² · Σ(yi−ȳ)²)
//
// Returns NaN when either series has zero variance or fewer than two samples.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return math.NaN()
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var covSum, varX, varY float64
	for i := 0; i < n; i++ {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		covSum += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	denominator := math.Sqrt(varX * varY)
	if denominator == 0 {
		return math.NaN()
	}
	return covSum / denominator
}

func variableValue(record *models.DailyRecord, v models.Variable) *float64 {
	switch v {
	case models.VariableRainfall:
		return record.PrecipitationMm
	case models.VariableTemperature:
		return record.TemperatureC
	case models.VariableHumidity:
		return record.HumidityPct
	default:
		return nil
	}
}

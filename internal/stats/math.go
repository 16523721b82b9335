package stats

import "math"

// TradingDaysPerYear is the annualization factor for daily series
const TradingDaysPerYear = 252

// Mean returns the arithmetic average of values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PopulationStdDev returns the population standard deviation of values
func PopulationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	var squaredDiffSum float64
	for _, v := range values {
		diff := v - mean
		squaredDiffSum += diff * diff
	}
	return math.Sqrt(squaredDiffSum / float64(len(values)))
}

// AnnualizedSharpe returns mean/std*sqrt(252) over daily returns.
// It is 0 for fewer than two returns or a zero deviation.
func AnnualizedSharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	std := PopulationStdDev(returns)
	if std == 0 {
		return 0
	}
	return Mean(returns) / std * math.Sqrt(TradingDaysPerYear)
}

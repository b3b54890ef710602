package domain

import "math"

// Percent returns done/total as a percentage rounded to one decimal place, or 0 when total is 0.
func Percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(done)*1000/float64(total)) / 10
}

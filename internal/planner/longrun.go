package planner

import "math"

// LongRunPolicy sizes the weekly long run.
type LongRunPolicy struct {
	Share float64 // fraction of the weekly total
	Cap   float64 // absolute ceiling, miles
}

// DefaultLongRunPolicy gives the long run a third of the week, up to 20 miles.
var DefaultLongRunPolicy = LongRunPolicy{Share: 1.0 / 3, Cap: 20}

// Mileage returns the long-run distance for a week's total. It never
// decreases as the weekly total grows and never exceeds Share of it beyond
// rounding.
func (p LongRunPolicy) Mileage(weeklyMileage float64) float64 {
	if weeklyMileage <= 0 || p.Share <= 0 {
		return 0
	}
	lr := math.Round(weeklyMileage * p.Share)
	if p.Cap > 0 && lr > p.Cap {
		lr = p.Cap
	}
	return lr
}

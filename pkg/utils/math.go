package utils

import "math"

// SnapEpsilon is the tolerance SnapInt uses when callers have no better bound.
const SnapEpsilon = 1e-9

// SnapInt returns the nearest integer to x when x lies within eps of it, else x unchanged.
// Boundary classification uses it so values computed as 13 + 20/60 land on the
// boundary they name instead of a hair below it.
func SnapInt(x, eps float64) float64 {
	r := math.Round(x)
	if math.Abs(x-r) < eps {
		return r
	}
	return x
}

// SnapUnits returns x/unit, snapped to an integer when x lies within SnapEpsilon of a
// multiple of unit. The tolerance is measured in x, so nested grids (signs, padas,
// divisional segments) agree on which side of a shared boundary a value falls.
func SnapUnits(x, unit float64) float64 {
	return SnapInt(x/unit, SnapEpsilon/unit)
}

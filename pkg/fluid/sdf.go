package fluid

// IsInsideSdf reports whether a signed distance lies inside the surface.
func IsInsideSdf(phi float64) bool { return phi < 0 }

// FractionInsideSdf returns the fraction of the segment between two samples
// that lies inside the surface, assuming phi varies linearly along it.
func FractionInsideSdf(phi0, phi1 float64) float64 {
	switch {
	case IsInsideSdf(phi0) && IsInsideSdf(phi1):
		return 1
	case IsInsideSdf(phi0):
		return phi0 / (phi0 - phi1)
	case IsInsideSdf(phi1):
		return phi1 / (phi1 - phi0)
	}
	return 0
}

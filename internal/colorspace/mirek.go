package colorspace

import "math"

// Hue's documented mirek range for color-temperature-capable lights.
const (
	MirekMinimum = 153 // ~6500K
	MirekMaximum = 500 // ~2000K
)

// KelvinToMirek converts a color temperature in Kelvin to mirek
// (reciprocal megakelvin: 10^6/K).
func KelvinToMirek(kelvin float64) uint16 {
	return uint16(math.Round(1_000_000.0 / kelvin))
}

// MirekToKelvin converts mirek back to Kelvin.
func MirekToKelvin(mirek uint16) float64 {
	if mirek == 0 {
		return 0
	}
	return 1_000_000.0 / float64(mirek)
}

// MirekToXY approximates the xy chromaticity of a blackbody radiator at the
// given mirek value, using the Kim et al. cubic spline approximation of
// the Planckian locus, valid over the Hue mirek range.
func MirekToXY(mirek uint16) (x, y float64) {
	kelvin := MirekToKelvin(mirek)
	if kelvin <= 0 {
		kelvin = MirekToKelvin(MirekMaximum)
	}

	var xc float64
	switch {
	case kelvin < 4000:
		xc = -0.2661239e9/(kelvin*kelvin*kelvin) - 0.2343589e6/(kelvin*kelvin) + 0.8776956e3/kelvin + 0.179910
	default:
		xc = -3.0258469e9/(kelvin*kelvin*kelvin) + 2.1070379e6/(kelvin*kelvin) + 0.2226347e3/kelvin + 0.240390
	}

	var yc float64
	switch {
	case kelvin < 2222:
		yc = -1.1063814*xc*xc*xc - 1.34811020*xc*xc + 2.18555832*xc - 0.20219683
	case kelvin < 4000:
		yc = -0.9549476*xc*xc*xc - 1.37418593*xc*xc + 2.09137015*xc - 0.16748867
	default:
		yc = 3.0817580*xc*xc*xc - 5.87338670*xc*xc + 3.75112997*xc - 0.37001483
	}

	return xc, yc
}

// ClampMirek clamps a mirek value to the Hue-documented schema range.
func ClampMirek(mirek uint16) uint16 {
	if mirek < MirekMinimum {
		return MirekMinimum
	}
	if mirek > MirekMaximum {
		return MirekMaximum
	}
	return mirek
}

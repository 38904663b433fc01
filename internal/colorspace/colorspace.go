package colorspace

// ColorSpace pairs an RGB<->XYZ matrix pair with a gamma curve, describing a
// concrete device color gamut.
type ColorSpace struct {
	RGB   Matrix3
	XYZ   Matrix3
	Gamma Gamma
}

// Wide is the gamut used by most Hue luminaires ("gamut C" adjacent).
var Wide = ColorSpace{
	RGB: Matrix3{
		1.4625, -0.1845, -0.2734,
		-0.5229, 1.4479, 0.0681,
		0.0346, -0.0958, 1.2875,
	},
	XYZ: Matrix3{
		0.7164, 0.1010, 0.1468,
		0.2587, 0.7247, 0.0166,
		0.0000, 0.0512, 0.7740,
	},
	Gamma: GammaNone,
}

// SRGB is the standard sRGB display gamut, used for WLED RGB segments.
var SRGB = ColorSpace{
	RGB: Matrix3{
		3.2401, -1.5370, -0.4983,
		-0.9693, 1.8760, 0.0415,
		0.0558, -0.2040, 1.0572,
	},
	XYZ: Matrix3{
		0.4125, 0.3576, 0.1804,
		0.2127, 0.7152, 0.0722,
		0.0193, 0.1192, 0.9503,
	},
	Gamma: GammaSRGB,
}

// Adobe is the Adobe RGB gamut.
var Adobe = ColorSpace{
	RGB: Matrix3{
		2.0416, -0.5652, -0.3447,
		-0.9695, 1.8763, 0.0415,
		0.0135, -0.1184, 1.0154,
	},
	XYZ: Matrix3{
		0.5767, 0.1856, 0.1882,
		0.2974, 0.6273, 0.0753,
		0.0270, 0.0707, 0.9911,
	},
	Gamma: GammaNone,
}

// XYZToRGB converts a CIE XYZ triple into gamma-corrected RGB in [0,1] (not
// gamut-clamped).
func (cs ColorSpace) XYZToRGB(x, y, z float64) [3]float64 {
	lin := cs.RGB.Mult([3]float64{x, y, z})
	return [3]float64{
		cs.Gamma.Transform(lin[0]),
		cs.Gamma.Transform(lin[1]),
		cs.Gamma.Transform(lin[2]),
	}
}

// XYYToXYZ converts CIE xyY (chromaticity + luminance) into XYZ.
func (cs ColorSpace) XYYToXYZ(x, y, yy float64) [3]float64 {
	z := 1.0 - x - y
	return [3]float64{(yy / y) * x, yy, (yy / y) * z}
}

// XYYToRGB converts xyY directly into gamma-corrected RGB.
func (cs ColorSpace) XYYToRGB(x, y, yy float64) [3]float64 {
	xyz := cs.XYYToXYZ(x, y, yy)
	return cs.XYZToRGB(xyz[0], xyz[1], xyz[2])
}

// RGBToXYZ converts gamma-corrected RGB in [0,1] into CIE XYZ.
func (cs ColorSpace) RGBToXYZ(r, g, b float64) [3]float64 {
	return cs.XYZ.Mult([3]float64{cs.Gamma.Inverse(r), cs.Gamma.Inverse(g), cs.Gamma.Inverse(b)})
}

// XYZToXYY converts CIE XYZ into xyY.
func (ColorSpace) XYZToXYY(cx, cy, cz float64) (x, y, brightness float64) {
	sum := cx + cy + cz
	if sum == 0 {
		return 0, 0, 0
	}
	return cx / sum, cy / sum, cy
}

// RGBToXYY converts gamma-corrected RGB in [0,1] into xyY.
func (cs ColorSpace) RGBToXYY(r, g, b float64) (x, y, brightness float64) {
	xyz := cs.RGBToXYZ(r, g, b)
	return cs.XYZToXYY(xyz[0], xyz[1], xyz[2])
}

// FindMaximumY iteratively finds the largest luminance Y for which (x,y,Y)
// stays within the RGB gamut (i.e. no RGB component exceeds 1), by
// repeatedly scaling down by the largest observed overshoot.
func (cs ColorSpace) FindMaximumY(x, y float64) float64 {
	bri := 1.0
	for i := 0; i < 10; i++ {
		rgb := cs.XYYToRGB(x, y, bri)
		max := rgb[0]
		if rgb[1] > max {
			max = rgb[1]
		}
		if rgb[2] > max {
			max = rgb[2]
		}
		if max == 0 {
			break
		}
		bri /= max
	}
	return bri
}

// XYToRGB converts a Hue xy chromaticity pair plus an 8-bit-scale brightness
// (0..255) into gamut-clamped, gamma-corrected RGB in [0,1].
func (cs ColorSpace) XYToRGB(x, y, brightness float64) [3]float64 {
	maxY := cs.FindMaximumY(x, y)
	rgb := cs.XYYToRGB(x, y, maxY*brightness/255.0)
	return [3]float64{clamp01(rgb[0]), clamp01(rgb[1]), clamp01(rgb[2])}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

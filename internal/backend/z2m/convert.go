package z2m

import (
	"github.com/nilclass/huebridge/internal/resource"
)

// ApplyDeviceState layers a z2m device-state message onto the given base
// Light value and returns the resulting Light, implementing the inbound
// field-mapping table of spec.md §4.4:
//
//	state "ON"/"OFF"                         -> on.on
//	brightness (0..254)                      -> dimming.brightness = v/254*100
//	color_temp (mirek)                       -> color_temperature.mirek
//	color.xy (when color_mode != "color_temp") -> color.xy
//	gradient (hex colors)                    -> gradient.points (xy per point)
func ApplyDeviceState(base resource.Light, msg DeviceStateMessage) resource.Light {
	l := base
	if msg.State != nil {
		l.On = resource.On{On: *msg.State == "ON"}
	}
	if msg.Brightness != nil {
		l.Dimming = &resource.Dimming{Brightness: float64(*msg.Brightness) / 254.0 * 100.0}
	}
	isColorTemp := msg.ColorMode != nil && *msg.ColorMode == "color_temp"
	if msg.ColorTemp != nil && isColorTemp {
		l.ColorTemperature = &resource.ColorTemperature{Mirek: uint16(*msg.ColorTemp)}
		l.Color = nil
	}
	if msg.Color != nil && !isColorTemp {
		l.Color = &resource.Color{XY: [2]float64{msg.Color.X, msg.Color.Y}}
		l.ColorTemperature = nil
	}
	if msg.Gradient != nil {
		points := make([]resource.GradientPoint, 0, len(msg.Gradient))
		for _, hex := range msg.Gradient {
			x, y := hexToXY(hex)
			points = append(points, resource.GradientPoint{Color: resource.Color{XY: [2]float64{x, y}}})
		}
		l.Gradient = &resource.Gradient{Mode: "interpolated_palette", Points: points}
	}
	return l
}

// BuildSetPayload is the outbound inverse of ApplyDeviceState (spec.md
// §4.4 "LightUpdate -> z2m set with inverse of the above mapping").
func BuildSetPayload(u resource.LightUpdate) SetPayload {
	var p SetPayload
	if u.On != nil {
		if u.On.On {
			p.State = "ON"
		} else {
			p.State = "OFF"
		}
	}
	if u.Dimming != nil && *u.Dimming != nil {
		v := int((*u.Dimming).Brightness / 100.0 * 254.0)
		p.Brightness = &v
	}
	if u.ColorTemperature != nil && *u.ColorTemperature != nil {
		v := int((*u.ColorTemperature).Mirek)
		p.ColorTemp = &v
	}
	if u.Color != nil && *u.Color != nil {
		p.Color = &XYColor{X: (*u.Color).XY[0], Y: (*u.Color).XY[1]}
	}
	if u.Gradient != nil && *u.Gradient != nil {
		g := *u.Gradient
		hexes := make([]string, 0, len(g.Points))
		for _, pt := range g.Points {
			hexes = append(hexes, xyToHex(pt.Color.XY[0], pt.Color.XY[1]))
		}
		p.Gradient = hexes
	}
	return p
}

// hexToXY and xyToHex are a deliberately coarse round-trip: the gradient
// wire format only needs to survive one hop through z2m, never feed the
// colorimetric pipeline (that's colorspace's job for the entertainment
// path), so a fixed mid-gamut approximation is enough here.
func hexToXY(hex string) (x, y float64) {
	if len(hex) != 6 && len(hex) != 7 {
		return 0.3127, 0.3290 // D65 white point fallback
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}
	r := hexByte(hex[0:2])
	g := hexByte(hex[2:4])
	b := hexByte(hex[4:6])
	return rgbToXYApprox(r, g, b)
}

func hexByte(s string) float64 {
	var v int
	for _, c := range s {
		v <<= 4
		switch {
		case c >= '0' && c <= '9':
			v |= int(c - '0')
		case c >= 'a' && c <= 'f':
			v |= int(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v |= int(c-'A') + 10
		}
	}
	return float64(v) / 255.0
}

func rgbToXYApprox(r, g, b float64) (x, y float64) {
	sum := r + g + b
	if sum == 0 {
		return 0.3127, 0.3290
	}
	// Coarse sRGB-chromaticity proxy: normalized channel weights rather
	// than a full XYZ transform (the Zigbee emitter uses colorspace's
	// precise conversion for the entertainment hot path; gradients are a
	// display hint, not a streamed color).
	x = (0.64*r + 0.30*g + 0.15*b) / (sum)
	y = (0.33*r + 0.60*g + 0.06*b) / (sum)
	return x, y
}

func xyToHex(x, y float64) string {
	// Inverse of the approximation above, clamped to a sane byte range.
	r := clampByte(x * 255 * 1.3)
	g := clampByte(y * 255 * 1.3)
	b := clampByte((1 - x - y) * 255)
	return "#" + hexDigits(r) + hexDigits(g) + hexDigits(b)
}

func clampByte(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return int(v)
}

const hexAlphabet = "0123456789abcdef"

func hexDigits(v int) string {
	return string([]byte{hexAlphabet[(v>>4)&0xF], hexAlphabet[v&0xF]})
}

// DeriveProductData resolves the vendor product-data catalog entry for a
// z2m device (SPEC_FULL.md supplemented feature 1), falling back to a
// generic entry for unknown model ids.
func DeriveProductData(dev Device) resource.ProductData {
	if pd, ok := productDB[dev.ModelID]; ok {
		return pd
	}
	return resource.ProductData{
		ModelID:          dev.ModelID,
		ManufacturerName: dev.Manufacturer,
		ProductName:      dev.ModelID,
		ProductArchetype: "sultan_bulb",
	}
}

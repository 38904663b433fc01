package wled

import (
	"math"

	"github.com/nilclass/huebridge/internal/colorspace"
	"github.com/nilclass/huebridge/internal/resource"
)

// ApplyState layers one WLED segment's live state onto base, following
// original_source/crates/wled/src/backend/wled/mod.rs's add_light/update
// mapping: bri/2.55 -> dimming.brightness, cct/255*424+100 -> mirek, the
// segment's primary color -> xy.
func ApplyState(base resource.Light, seg StateSeg) resource.Light {
	l := base
	l.On = resource.On{On: seg.On}
	l.Dimming = &resource.Dimming{Brightness: float64(seg.Bri) / 2.55}
	if seg.CCT > 0 {
		mirek := uint16(float64(seg.CCT)/255.0*424.0 + 100.0)
		l.ColorTemperature = &resource.ColorTemperature{Mirek: colorspace.ClampMirek(mirek)}
		l.Color = nil
	} else if len(seg.Col) > 0 {
		c := seg.Col[0]
		x, y, _ := colorspace.SRGB.RGBToXYY(float64(c[0])/255, float64(c[1])/255, float64(c[2])/255)
		l.Color = &resource.Color{XY: [2]float64{x, y}}
		l.ColorTemperature = nil
	}
	return l
}

// BuildSegUpdate is the outbound inverse of ApplyState for the segment
// id a LightUpdate targets.
func BuildSegUpdate(id int, u resource.LightUpdate) SegUpdate {
	su := SegUpdate{ID: id}
	if u.On != nil {
		on := u.On.On
		su.On = &on
	}
	if u.Dimming != nil && *u.Dimming != nil {
		bri := int(math.Round((*u.Dimming).Brightness * 2.55))
		su.Bri = &bri
	}
	if u.ColorTemperature != nil && *u.ColorTemperature != nil {
		cct := int((float64((*u.ColorTemperature).Mirek) - 100.0) / 424.0 * 255.0)
		su.CCT = &cct
	}
	if u.Color != nil && *u.Color != nil {
		xy := (*u.Color).XY
		rgb := colorspace.SRGB.XYToRGB(xy[0], xy[1], 255)
		su.Col = [][3]int{{int(rgb[0] * 255), int(rgb[1] * 255), int(rgb[2] * 255)}}
	}
	return su
}

package z2m

import (
	"testing"

	"github.com/nilclass/huebridge/internal/resource"
)

func TestApplyDeviceState_OnOff(t *testing.T) {
	on := "ON"
	l := ApplyDeviceState(resource.Light{}, DeviceStateMessage{State: &on})
	if !l.On.On {
		t.Fatalf("expected on.on=true")
	}
}

func TestApplyDeviceState_Brightness(t *testing.T) {
	b := 254
	l := ApplyDeviceState(resource.Light{}, DeviceStateMessage{Brightness: &b})
	if l.Dimming == nil || l.Dimming.Brightness != 100 {
		t.Fatalf("expected brightness 100, got %+v", l.Dimming)
	}
}

func TestApplyDeviceState_ColorTempClearsXY(t *testing.T) {
	mirek := 250
	mode := "color_temp"
	base := resource.Light{Color: &resource.Color{XY: [2]float64{0.3, 0.3}}}
	l := ApplyDeviceState(base, DeviceStateMessage{ColorTemp: &mirek, ColorMode: &mode})
	if l.ColorTemperature == nil || l.ColorTemperature.Mirek != 250 {
		t.Fatalf("expected mirek 250, got %+v", l.ColorTemperature)
	}
	if l.Color != nil {
		t.Fatalf("expected color cleared, got %+v", l.Color)
	}
}

func TestApplyDeviceState_XYIgnoredInColorTempMode(t *testing.T) {
	mode := "color_temp"
	xy := &XYColor{X: 0.5, Y: 0.5}
	l := ApplyDeviceState(resource.Light{}, DeviceStateMessage{Color: xy, ColorMode: &mode})
	if l.Color != nil {
		t.Fatalf("color should not be applied while in color_temp mode: %+v", l.Color)
	}
}

func TestBuildSetPayload_RoundTripsBrightness(t *testing.T) {
	dimming := &resource.Dimming{Brightness: 50}
	u := resource.LightUpdate{Dimming: &dimming}
	p := BuildSetPayload(u)
	if p.Brightness == nil || *p.Brightness != 127 {
		t.Fatalf("expected brightness 127, got %v", p.Brightness)
	}
}

func TestDeriveProductData_UnknownFallsBack(t *testing.T) {
	pd := DeriveProductData(Device{ModelID: "UNKNOWN-1", Manufacturer: "Acme"})
	if pd.ManufacturerName != "Acme" || pd.ModelID != "UNKNOWN-1" {
		t.Fatalf("unexpected fallback product data: %+v", pd)
	}
}

func TestDeriveProductData_Known(t *testing.T) {
	pd := DeriveProductData(Device{ModelID: "LCT001"})
	if pd.ProductArchetype != "sultan_bulb" {
		t.Fatalf("expected known archetype, got %+v", pd)
	}
}

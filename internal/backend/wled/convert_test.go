package wled

import (
	"testing"

	"github.com/nilclass/huebridge/internal/resource"
)

func TestApplyState_OnOffAndBrightness(t *testing.T) {
	l := ApplyState(resource.Light{}, StateSeg{On: true, Bri: 127})
	if !l.On.On {
		t.Fatalf("expected on.on=true")
	}
	if l.Dimming == nil || l.Dimming.Brightness < 49 || l.Dimming.Brightness > 50 {
		t.Fatalf("expected brightness ~49.8, got %+v", l.Dimming)
	}
}

func TestApplyState_CCTClearsColor(t *testing.T) {
	base := resource.Light{Color: &resource.Color{XY: [2]float64{0.3, 0.3}}}
	l := ApplyState(base, StateSeg{CCT: 128})
	if l.ColorTemperature == nil {
		t.Fatalf("expected color temperature set")
	}
	if l.Color != nil {
		t.Fatalf("expected color cleared, got %+v", l.Color)
	}
}

func TestApplyState_ColorClearsCCT(t *testing.T) {
	base := resource.Light{ColorTemperature: &resource.ColorTemperature{Mirek: 300}}
	l := ApplyState(base, StateSeg{Col: [][3]int{{255, 0, 0}}})
	if l.Color == nil {
		t.Fatalf("expected color set")
	}
	if l.ColorTemperature != nil {
		t.Fatalf("expected color temperature cleared, got %+v", l.ColorTemperature)
	}
}

func TestBuildSegUpdate_RoundTripsBrightness(t *testing.T) {
	dimming := &resource.Dimming{Brightness: 100}
	u := resource.LightUpdate{Dimming: &dimming}
	su := BuildSegUpdate(3, u)
	if su.ID != 3 {
		t.Fatalf("expected id 3, got %d", su.ID)
	}
	if su.Bri == nil || *su.Bri != 255 {
		t.Fatalf("expected bri 255, got %v", su.Bri)
	}
}

func TestBuildSegUpdate_ColorTemperature(t *testing.T) {
	ct := &resource.ColorTemperature{Mirek: 312}
	u := resource.LightUpdate{ColorTemperature: &ct}
	su := BuildSegUpdate(0, u)
	if su.CCT == nil {
		t.Fatalf("expected cct set")
	}
}

func TestBuildSegUpdate_OnOff(t *testing.T) {
	on := resource.On{On: false}
	u := resource.LightUpdate{On: &on}
	su := BuildSegUpdate(0, u)
	if su.On == nil || *su.On != false {
		t.Fatalf("expected on=false, got %v", su.On)
	}
}

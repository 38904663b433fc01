package colorspace

import "testing"

func TestMatrixInverseRoundTrip(t *testing.T) {
	for name, cs := range map[string]ColorSpace{"wide": Wide, "srgb": SRGB, "adobe": Adobe} {
		rgbInv, ok := cs.RGB.Inverted()
		if !ok {
			t.Fatalf("%s: RGB matrix not invertible", name)
		}
		for i, v := range cs.XYZ {
			if diff := v - rgbInv[i]; diff > 1e-3 || diff < -1e-3 {
				t.Errorf("%s: XYZ[%d]=%v != inverse(RGB)[%d]=%v", name, i, v, i, rgbInv[i])
			}
		}
	}
}

func TestInvertIdentity(t *testing.T) {
	inv, ok := Identity().Inverted()
	if !ok {
		t.Fatal("identity should be invertible")
	}
	if inv != Identity() {
		t.Errorf("inverse of identity = %v, want identity", inv)
	}
}

func TestInvertSingular(t *testing.T) {
	if _, ok := (Matrix3{}).Inverted(); ok {
		t.Fatal("zero matrix should not be invertible")
	}
}

func TestXYToRGBRedPrimary(t *testing.T) {
	// Hue red primary for the wide gamut is approximately (0.675, 0.322).
	rgb := Wide.XYToRGB(0.675, 0.322, 255)
	if rgb[0] < 0.9 {
		t.Errorf("expected red channel dominant, got %v", rgb)
	}
	if rgb[1] > 0.3 || rgb[2] > 0.3 {
		t.Errorf("expected green/blue near zero, got %v", rgb)
	}
}

func TestQuantizeBrightnessClampsToDocumentedRange(t *testing.T) {
	if v := QuantizeBrightness11(0); v != 1 {
		t.Errorf("zero brightness should clamp to 1, got %d", v)
	}
	if v := QuantizeBrightness11(1.0); v != 2047 {
		t.Errorf("full brightness should clamp to 2047, got %d", v)
	}
	if v := QuantizeBrightness11(2.0); v != 2047 {
		t.Errorf("over-range brightness should clamp to 2047, got %d", v)
	}
}

func TestQuantizeXYRange(t *testing.T) {
	qx, qy := QuantizeXY(1.5, -1.0)
	if qx != 0xFFF {
		t.Errorf("x should clamp to 0xFFF, got %x", qx)
	}
	if qy != 0 {
		t.Errorf("y should clamp to 0, got %x", qy)
	}
}

func TestMirekKelvinRoundTrip(t *testing.T) {
	mirek := uint16(250)
	kelvin := MirekToKelvin(mirek)
	back := KelvinToMirek(kelvin)
	if back != mirek {
		t.Errorf("round trip mirek->kelvin->mirek = %d, want %d", back, mirek)
	}
}

func TestClampMirek(t *testing.T) {
	if v := ClampMirek(0); v != MirekMinimum {
		t.Errorf("got %d want %d", v, MirekMinimum)
	}
	if v := ClampMirek(9000); v != MirekMaximum {
		t.Errorf("got %d want %d", v, MirekMaximum)
	}
}

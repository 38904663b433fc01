package entertainment

import (
	"testing"
)

func buildHeader(version, colorMode byte) []byte {
	h := []byte(headerMagic)
	h = append(h, version, 0x00, 0x00, 0x00, 0x00, colorMode, 0x00)
	return h
}

func TestParseV1RGB(t *testing.T) {
	data := buildHeader(byte(VersionV1), byte(ColorModeRGB))
	data = append(data, 0x11, 0x22, 0x33, 0xA0, 0xA1, 0xB0, 0xB1, 0xC0, 0xC1)

	pkt, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pkt.V1 == nil || pkt.V2 != nil {
		t.Fatalf("expected v1 packet, got %+v", pkt)
	}
	if len(pkt.V1.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(pkt.V1.Records))
	}
	r := pkt.V1.Records[0]
	if r.LightID != 0x112233 {
		t.Fatalf("unexpected light id: %06x", r.LightID)
	}
	if r.RGB == nil || r.RGB.R != 0xA0A1 || r.RGB.G != 0xB0B1 || r.RGB.B != 0xC0C1 {
		t.Fatalf("unexpected rgb: %+v", r.RGB)
	}
}

func TestParseV1XY(t *testing.T) {
	data := buildHeader(byte(VersionV1), byte(ColorModeXY))
	data = append(data, 0x11, 0x22, 0x33, 0xA0, 0xA1, 0xB0, 0xB1, 0xC0, 0xC1)

	pkt, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	r := pkt.V1.Records[0]
	if r.XY == nil || r.XY.X != 0xA0A1 || r.XY.Y != 0xB0B1 || r.XY.B != 0xC0C1 {
		t.Fatalf("unexpected xy: %+v", r.XY)
	}
}

func TestParseV2RGB(t *testing.T) {
	data := buildHeader(byte(VersionV2), byte(ColorModeRGB))
	data = append(data, []byte("01010101-0202-0303-0404-050505050505")...)
	data = append(data, 0x11, 0xA0, 0xA1, 0xB0, 0xB1, 0xC0, 0xC1)

	pkt, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pkt.V2 == nil {
		t.Fatalf("expected v2 packet")
	}
	if pkt.V2.Area.String() != "01010101-0202-0303-0404-050505050505" {
		t.Fatalf("unexpected area: %v", pkt.V2.Area)
	}
	if len(pkt.V2.Records) != 1 || pkt.V2.Records[0].Channel != 0x11 {
		t.Fatalf("unexpected records: %+v", pkt.V2.Records)
	}
	if pkt.V2.Records[0].RGB == nil || pkt.V2.Records[0].RGB.R != 0xA0A1 {
		t.Fatalf("unexpected rgb: %+v", pkt.V2.Records[0].RGB)
	}
}

func TestParseBadHeaderTooShort(t *testing.T) {
	if _, err := Parse([]byte{0x00, 0x01}); err != ErrBadHeader {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
}

func TestParseBadMagic(t *testing.T) {
	data := buildHeader(byte(VersionV1), byte(ColorModeRGB))
	data[0] = 'X'
	if _, err := Parse(data); err != ErrBadHeader {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
}

func TestParseV2MissingArea(t *testing.T) {
	data := buildHeader(byte(VersionV2), byte(ColorModeRGB))
	data = append(data, 0x00)
	if _, err := Parse(data); err != ErrBadHeader {
		t.Fatalf("expected ErrBadHeader, got %v", err)
	}
}

func TestXY16ToNormalized(t *testing.T) {
	xy := XY16{X: 0x8000, Y: 0xFFFF, B: 0xFFFF}
	x, y, b := xy.ToNormalized()
	if x < 0.499 || x > 0.501 {
		t.Fatalf("unexpected x: %v", x)
	}
	if y != 1.0 {
		t.Fatalf("unexpected y: %v", y)
	}
	if b < 0.99 || b > 1.0 {
		t.Fatalf("unexpected brightness: %v", b)
	}
}

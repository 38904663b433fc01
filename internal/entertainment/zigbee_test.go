package entertainment

import "testing"

func TestEncodeZigbeeFrameLayout(t *testing.T) {
	records := []ZigbeeRecord{
		{Address: 0x1234, Mode: RecordModeSegment, SegmentIndex: 2, X: 0xFFF, Y: 0x800, Brightness: 0x7FF},
	}
	frame := EncodeZigbeeFrame(42, 200, records)
	if len(frame) != 4+2+1+zigbeeRecordSize {
		t.Fatalf("unexpected frame length %d", len(frame))
	}
	if frame[6] != 1 {
		t.Fatalf("expected record count byte 1, got %d", frame[6])
	}
	if frame[7] != 0x12 || frame[8] != 0x34 {
		t.Fatalf("expected address bytes 0x12 0x34, got %x %x", frame[7], frame[8])
	}
	if frame[9] != byte(RecordModeSegment) {
		t.Fatalf("expected mode byte %d, got %d", RecordModeSegment, frame[9])
	}
	if frame[10] != 2 {
		t.Fatalf("expected segment index byte 2, got %d", frame[10])
	}
}

func TestBuildZigbeeRecordsSkipsUnmappedChannels(t *testing.T) {
	mapping := ChannelMapping{
		0: {{NetworkAddress: 1, Mode: RecordModeDevice}},
	}
	recs := []RecordV2{
		{Channel: 0, XY: &XY16{X: 0xFFFF, Y: 0xFFFF, B: 0xFF}},
		{Channel: 5, XY: &XY16{X: 0xFFFF, Y: 0xFFFF, B: 0xFF}},
	}
	out := BuildZigbeeRecords(mapping, recs, ColorModeXY)
	if len(out) != 1 {
		t.Fatalf("expected 1 record for mapped channel, got %d", len(out))
	}
	if out[0].Address != 1 {
		t.Fatalf("expected address 1, got %d", out[0].Address)
	}
	if out[0].Brightness < 1 || out[0].Brightness > 2047 {
		t.Fatalf("brightness out of 11-bit range: %d", out[0].Brightness)
	}
	if out[0].X > 0xFFF || out[0].Y > 0xFFF {
		t.Fatalf("xy out of 12-bit range: %d %d", out[0].X, out[0].Y)
	}
}

func TestBuildZigbeeRecordsFansOutToMultipleTargets(t *testing.T) {
	mapping := ChannelMapping{
		0: {
			{NetworkAddress: 1, Mode: RecordModeDevice},
			{NetworkAddress: 2, Mode: RecordModeSegment, SegmentIndex: 1},
		},
	}
	recs := []RecordV2{{Channel: 0, XY: &XY16{X: 0x7FFF, Y: 0x7FFF, B: 0x80}}}
	out := BuildZigbeeRecords(mapping, recs, ColorModeXY)
	if len(out) != 2 {
		t.Fatalf("expected 2 records (one per target), got %d", len(out))
	}
}

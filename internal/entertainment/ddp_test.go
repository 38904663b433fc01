package entertainment

import "testing"

func TestDDPSequencerWrapsOneToFifteen(t *testing.T) {
	var s DDPSequencer
	seen := make([]byte, 0, 20)
	for i := 0; i < 17; i++ {
		seen = append(seen, s.Next())
	}
	if seen[0] != 1 {
		t.Fatalf("first sequence number must be 1, got %d", seen[0])
	}
	for _, v := range seen {
		if v == 0 {
			t.Fatalf("sequence 0 must never be emitted, got sequence list %v", seen)
		}
		if v > 15 {
			t.Fatalf("sequence must stay <= 15, got %d", v)
		}
	}
	if seen[14] != 15 || seen[15] != 1 {
		t.Fatalf("expected wraparound 15->1 at index 14/15, got %v", seen[13:17])
	}
}

func TestEncodeDDPFrameHeaderLayout(t *testing.T) {
	frame := EncodeDDPFrame(3, 6, [][3]byte{{1, 2, 3}, {4, 5, 6}})
	if len(frame) != ddpHeaderSize+6 {
		t.Fatalf("expected %d bytes, got %d", ddpHeaderSize+6, len(frame))
	}
	if frame[1] != 3 {
		t.Fatalf("expected sequence byte 3, got %d", frame[1])
	}
	if frame[ddpHeaderSize] != 1 || frame[ddpHeaderSize+5] != 6 {
		t.Fatalf("payload not copied correctly: %v", frame[ddpHeaderSize:])
	}
}

func TestBuildDDPFramesSkipsUnmappedChannels(t *testing.T) {
	mapping := DDPMapping{0: 2}
	recs := []RecordV2{
		{Channel: 0, XY: &XY16{X: 0x7FFF, Y: 0x7FFF, B: 0xFF}},
		{Channel: 9, XY: &XY16{X: 0x7FFF, Y: 0x7FFF, B: 0xFF}},
	}
	out := BuildDDPFrames(mapping, recs, ColorModeXY)
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 mapped segment, got %d", len(out))
	}
	if _, ok := out[2]; !ok {
		t.Fatalf("expected segment 2 to be populated, got %v", out)
	}
}

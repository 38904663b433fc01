package entertainment

import (
	"encoding/binary"

	"github.com/nilclass/huebridge/internal/colorspace"
	"github.com/nilclass/huebridge/internal/resource"
)

// DDP (Distributed Display Protocol) is the UDP framing WLED controllers
// speak for entertainment streaming. Header layout per the protocol:
// flags(1) | sequence(1) | dataType(1) | destinationID(1) | offset(4) |
// length(2) | RGB payload.
const (
	ddpHeaderSize = 10
	ddpFlagVer1   = 0x40 // protocol version 1, upper two bits of the flags byte
	ddpFlagPush   = 0x01 // this is the last packet of the frame, display it now
	ddpDataTypeRGB888 = 0x01
	ddpDestDefault    = 1
)

// DDPSequencer cycles sequence numbers 1..15 (0 is reserved for "sequence
// not in use") and survives stream start/stop within one process
// (spec.md §4.7 P9: "sequence wraps 1->15->1, never emits 0 once a
// stream has started").
type DDPSequencer struct {
	seq byte
}

// Next returns the next sequence number in the 1..15 cycle.
func (s *DDPSequencer) Next() byte {
	s.seq++
	if s.seq > 15 {
		s.seq = 1
	}
	return s.seq
}

// EncodeDDPFrame packs one segment's RGB samples into a DDP unicast
// datagram addressed to offset (the controller's byte offset into its
// LED buffer, typically the segment's start LED index * 3).
func EncodeDDPFrame(seq byte, offset uint32, rgb [][3]byte) []byte {
	payload := make([]byte, len(rgb)*3)
	for i, c := range rgb {
		payload[i*3], payload[i*3+1], payload[i*3+2] = c[0], c[1], c[2]
	}
	buf := make([]byte, ddpHeaderSize+len(payload))
	buf[0] = ddpFlagVer1 | ddpFlagPush
	buf[1] = seq & 0x0F
	buf[2] = ddpDataTypeRGB888
	buf[3] = ddpDestDefault
	binary.BigEndian.PutUint32(buf[4:8], offset)
	binary.BigEndian.PutUint16(buf[8:10], uint16(len(payload)))
	copy(buf[ddpHeaderSize:], payload)
	return buf
}

// BuildDDPFrames resolves one parsed HueStream v2 packet's records into
// per-segment RGB triples via the session's DDP channel mapping, keyed by
// segment index; records on unmapped channels are skipped. It builds no
// datagram itself: the WLED adapter packs the triples into one DDP
// datagram at offset 0, one pixel per segment index.
func BuildDDPFrames(mapping DDPMapping, recs []RecordV2, mode ColorMode) map[int][3]byte {
	out := make(map[int][3]byte)
	for _, rec := range recs {
		segment, ok := mapping[int(rec.Channel)]
		if !ok {
			continue
		}
		x, y, brightness := SampleXYB(rec, mode)
		rgb := xyBrightnessToRGB888(x, y, brightness)
		out[segment] = rgb
	}
	return out
}

// BuildDDPFramesFromChannels is the adapter-facing counterpart of
// BuildDDPFrames for the back-end agnostic channel samples carried on a
// resource.BackendRequest.
func BuildDDPFramesFromChannels(mapping DDPMapping, channels []resource.EntertainmentFrameChannel) map[int][3]byte {
	out := make(map[int][3]byte)
	for _, ch := range channels {
		segment, ok := mapping[ch.Channel]
		if !ok {
			continue
		}
		out[segment] = ch.RGB
	}
	return out
}

func xyBrightnessToRGB888(x, y, brightness float64) [3]byte {
	rgb := colorspace.SRGB.XYToRGB(x, y, brightness*255)
	return [3]byte{byte(rgb[0] * 255), byte(rgb[1] * 255), byte(rgb[2] * 255)}
}

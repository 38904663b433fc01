// Package entertainment implements the DTLS-terminated UDP entertainment
// stream: HueStream v1/v2 frame parsing, a per-session frame throttle, and
// the Zigbee and DDP emitters that turn parsed frames into back-end
// commands (spec.md §4.7).
//
// The wire formats are grounded byte-for-byte on
// original_source/crates/hue/src/stream.rs (HueStream) and
// original_source/crates/ddp/src/{api,sequence}.rs (DDP).
package entertainment

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// ColorMode distinguishes the two per-channel payload encodings a stream
// packet can carry.
type ColorMode byte

const (
	ColorModeRGB ColorMode = 0x00
	ColorModeXY  ColorMode = 0x01
)

// Version is the HueStream protocol version named in the packet header.
type Version byte

const (
	VersionV1 Version = 0x01
	VersionV2 Version = 0x02
)

const headerMagic = "HueStream"
const headerSize = 16
const v2AreaASCIISize = 36

// ErrBadHeader is returned for any packet shorter than a full header, or
// whose magic does not match.
var ErrBadHeader = fmt.Errorf("entertainment: bad stream header")

// Header is the fixed 16-byte HueStream packet header.
type Header struct {
	Version   Version
	SeqNr     byte
	ColorMode ColorMode
}

func parseHeader(data []byte) (Header, []byte, error) {
	if len(data) < headerSize {
		return Header{}, nil, ErrBadHeader
	}
	if string(data[0:9]) != headerMagic {
		return Header{}, nil, ErrBadHeader
	}
	h := Header{
		Version:   Version(data[9]),
		SeqNr:     data[11],
		ColorMode: ColorMode(data[14]),
	}
	return h, data[headerSize:], nil
}

// RGB16 is a 48-bit RGB color sample, big-endian 16-bits per channel.
type RGB16 struct{ R, G, B uint16 }

// XY16 is a 48-bit xy-chromaticity-plus-brightness sample, big-endian
// 16-bits per field.
type XY16 struct{ X, Y, B uint16 }

// ToNormalized converts the raw 16-bit xy/brightness sample into a [0,1]
// chromaticity pair plus a brightness fraction.
func (xy XY16) ToNormalized() (x, y, brightness float64) {
	return float64(xy.X) / 0xFFFF, float64(xy.Y) / 0xFFFF, float64(xy.B) / 0xFFFF
}

// ToNormalized converts a raw 16-bit RGB sample into 8-bit channel values
// (0..255) by taking the high byte of each channel.
func (rgb RGB16) ToNormalized() (r, g, b uint8) {
	return uint8(rgb.R / 256), uint8(rgb.G / 256), uint8(rgb.B / 256)
}

// RecordV1 is one 9-byte per-light record in a v1 packet: a 3-byte light
// id followed by a 6-byte color sample.
type RecordV1 struct {
	LightID uint32
	RGB     *RGB16
	XY      *XY16
}

// RecordV2 is one 7-byte per-channel record in a v2 packet: a 1-byte
// channel id followed by a 6-byte color sample.
type RecordV2 struct {
	Channel byte
	RGB     *RGB16
	XY      *XY16
}

// PacketV1 is a parsed v1 stream packet: a flat list of per-light records,
// addressed by light id rather than by entertainment-configuration channel.
type PacketV1 struct {
	ColorMode ColorMode
	Records   []RecordV1
}

// PacketV2 is a parsed v2 stream packet, scoped to one entertainment
// configuration (Area) and addressed by channel id.
type PacketV2 struct {
	Area      uuid.UUID
	ColorMode ColorMode
	Records   []RecordV2
}

// Packet is the parsed result of Parse: exactly one of V1/V2 is non-nil.
type Packet struct {
	V1 *PacketV1
	V2 *PacketV2
}

func (p Packet) ColorMode() ColorMode {
	if p.V1 != nil {
		return p.V1.ColorMode
	}
	return p.V2.ColorMode
}

// Parse decodes a single HueStream UDP datagram.
func Parse(data []byte) (Packet, error) {
	h, body, err := parseHeader(data)
	if err != nil {
		return Packet{}, err
	}
	switch h.Version {
	case VersionV1:
		records, err := parseRecordsV1(h.ColorMode, body)
		if err != nil {
			return Packet{}, err
		}
		return Packet{V1: &PacketV1{ColorMode: h.ColorMode, Records: records}}, nil
	case VersionV2:
		if len(body) < v2AreaASCIISize {
			return Packet{}, ErrBadHeader
		}
		area, err := uuid.Parse(string(body[:v2AreaASCIISize]))
		if err != nil {
			return Packet{}, fmt.Errorf("entertainment: bad area uuid: %w", err)
		}
		records, err := parseRecordsV2(h.ColorMode, body[v2AreaASCIISize:])
		if err != nil {
			return Packet{}, err
		}
		return Packet{V2: &PacketV2{Area: area, ColorMode: h.ColorMode, Records: records}}, nil
	default:
		return Packet{}, fmt.Errorf("entertainment: unknown stream version 0x%02x", byte(h.Version))
	}
}

func parseRecordsV1(mode ColorMode, data []byte) ([]RecordV1, error) {
	const recSize = 9
	if len(data)%recSize != 0 {
		return nil, fmt.Errorf("entertainment: v1 body not a multiple of %d bytes", recSize)
	}
	out := make([]RecordV1, 0, len(data)/recSize)
	for i := 0; i+recSize <= len(data); i += recSize {
		chunk := data[i : i+recSize]
		lightID := uint32(chunk[0])<<16 | uint32(chunk[1])<<8 | uint32(chunk[2])
		r := RecordV1{LightID: lightID}
		fillColor(mode, chunk[3:9], &r.RGB, &r.XY)
		out = append(out, r)
	}
	return out, nil
}

func parseRecordsV2(mode ColorMode, data []byte) ([]RecordV2, error) {
	const recSize = 7
	if len(data)%recSize != 0 {
		return nil, fmt.Errorf("entertainment: v2 body not a multiple of %d bytes", recSize)
	}
	out := make([]RecordV2, 0, len(data)/recSize)
	for i := 0; i+recSize <= len(data); i += recSize {
		chunk := data[i : i+recSize]
		r := RecordV2{Channel: chunk[0]}
		fillColor(mode, chunk[1:7], &r.RGB, &r.XY)
		out = append(out, r)
	}
	return out, nil
}

func fillColor(mode ColorMode, sample []byte, rgb **RGB16, xy **XY16) {
	a := binary.BigEndian.Uint16(sample[0:2])
	b := binary.BigEndian.Uint16(sample[2:4])
	c := binary.BigEndian.Uint16(sample[4:6])
	switch mode {
	case ColorModeRGB:
		*rgb = &RGB16{R: a, G: b, B: c}
	case ColorModeXY:
		*xy = &XY16{X: a, Y: b, B: c}
	}
}

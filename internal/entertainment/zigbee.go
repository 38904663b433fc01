package entertainment

import (
	"encoding/binary"

	"github.com/nilclass/huebridge/internal/resource"
)

// ZigbeeRecord is one quantized per-light (or per-segment) sample ready
// to be packed into an outbound Zigbee entertainment frame.
type ZigbeeRecord struct {
	Address      uint16
	Mode         RecordMode
	SegmentIndex int
	X, Y         uint16 // 12-bit
	Brightness   uint16 // 11-bit
}

// zigbeeRecordSize is the packed wire size of one ZigbeeRecord: 2 bytes
// network address, 1 byte mode, 1 byte segment index, 2+2+2 bytes for
// x/y/brightness (only the low 12/12/11 bits are meaningful).
const zigbeeRecordSize = 10

// EncodeZigbeeFrame packs a counter, the configuration's smoothing
// duration (in deciseconds) and the quantized per-light records into a
// single outbound vendor payload (spec.md §4.7: "packed into one Zigbee
// cluster command per frame, never one command per light"). The exact
// Signify vendor cluster framing isn't reproduced here (it isn't part of
// any retrieved source); this lays out a stable, self-describing binary
// envelope that the z2m adapter forwards as the cluster command payload.
func EncodeZigbeeFrame(counter uint32, smoothing uint16, records []ZigbeeRecord) []byte {
	buf := make([]byte, 4+2+1+len(records)*zigbeeRecordSize)
	binary.BigEndian.PutUint32(buf[0:4], counter)
	binary.BigEndian.PutUint16(buf[4:6], smoothing)
	buf[6] = byte(len(records))
	off := 7
	for _, r := range records {
		binary.BigEndian.PutUint16(buf[off:off+2], r.Address)
		buf[off+2] = byte(r.Mode)
		buf[off+3] = byte(r.SegmentIndex)
		binary.BigEndian.PutUint16(buf[off+4:off+6], r.X&0x0FFF)
		binary.BigEndian.PutUint16(buf[off+6:off+8], r.Y&0x0FFF)
		binary.BigEndian.PutUint16(buf[off+8:off+10], r.Brightness&0x07FF)
		off += zigbeeRecordSize
	}
	return buf
}

// BuildZigbeeRecords resolves one parsed HueStream v2 packet's records
// into the ZigbeeRecord list a session's channel mapping addresses,
// dropping channels the configuration doesn't define (a client may
// stream more channels than the configuration declares; spec.md §4.7
// "unmapped channels are ignored, not an error").
func BuildZigbeeRecords(mapping ChannelMapping, recs []RecordV2, mode ColorMode) []ZigbeeRecord {
	var out []ZigbeeRecord
	for _, rec := range recs {
		targets, ok := mapping[int(rec.Channel)]
		if !ok {
			continue
		}
		x, y, brightness := SampleXYB(rec, mode)
		qx, qy, qb := QuantizeChannel(x, y, brightness)
		for _, t := range targets {
			out = append(out, ZigbeeRecord{
				Address:      t.NetworkAddress,
				Mode:         t.Mode,
				SegmentIndex: t.SegmentIndex,
				X:            qx,
				Y:            qy,
				Brightness:   qb,
			})
		}
	}
	return out
}

// BuildZigbeeRecordsFromChannels is the adapter-facing counterpart of
// BuildZigbeeRecords: it consumes the back-end agnostic channel samples
// carried on a resource.BackendRequest rather than a raw parsed packet.
func BuildZigbeeRecordsFromChannels(mapping ChannelMapping, channels []resource.EntertainmentFrameChannel) []ZigbeeRecord {
	var out []ZigbeeRecord
	for _, ch := range channels {
		targets, ok := mapping[ch.Channel]
		if !ok {
			continue
		}
		qx, qy, qb := QuantizeChannel(ch.X, ch.Y, ch.Brightness)
		for _, t := range targets {
			out = append(out, ZigbeeRecord{
				Address:      t.NetworkAddress,
				Mode:         t.Mode,
				SegmentIndex: t.SegmentIndex,
				X:            qx,
				Y:            qy,
				Brightness:   qb,
			})
		}
	}
	return out
}

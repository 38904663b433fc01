package entertainment

import (
	"time"

	"github.com/nilclass/huebridge/internal/bridgeerr"
	"github.com/nilclass/huebridge/internal/colorspace"
	"github.com/nilclass/huebridge/internal/resource"
)

// RecordMode distinguishes whether a Zigbee entertainment record targets
// a whole device or one segment of a multi-segment device (spec.md §4.7).
type RecordMode byte

const (
	RecordModeDevice  RecordMode = 0
	RecordModeSegment RecordMode = 1
)

// ZigbeeTarget is one channel member resolved to its Zigbee address.
type ZigbeeTarget struct {
	Light          resource.Link
	NetworkAddress uint16
	Mode           RecordMode
	SegmentIndex   int
}

// ChannelMapping maps a HueStream channel id onto the zigbee targets it
// drives, built once at EntertainmentStart (spec.md §4.7 "built on
// EntertainmentStart from the EntertainmentConfiguration's channels x
// their member lights x each light's network_address + segment_index").
type ChannelMapping map[int][]ZigbeeTarget

// BuildZigbeeMapping resolves cfg's channel members to their Zigbee
// network addresses via the store. Returns bridgeerr.ErrNotFound if any
// member light or its ZigbeeConnectivity is missing.
func BuildZigbeeMapping(store *resource.Store, cfgLink resource.Link) (ChannelMapping, []resource.Link, error) {
	cfg, err := resource.Get[resource.EntertainmentConfiguration](store, cfgLink)
	if err != nil {
		return nil, nil, err
	}

	mapping := make(ChannelMapping)
	var lights []resource.Link
	for _, ch := range cfg.Channels {
		for _, m := range ch.Members {
			light, err := resource.Get[resource.Light](store, m.Light)
			if err != nil {
				return nil, nil, err
			}
			device := light.Owner_
			zigLink := resource.DerivedLinkFrom(resource.RTypeZigbeeConnectivity, device)
			zig, err := resource.Get[resource.ZigbeeConnectivity](store, zigLink)
			if err != nil {
				return nil, nil, err
			}
			mode := RecordModeDevice
			if m.SegmentIndex > 0 {
				mode = RecordModeSegment
			}
			mapping[ch.ChannelID] = append(mapping[ch.ChannelID], ZigbeeTarget{
				Light:          m.Light,
				NetworkAddress: zig.NetworkAddress,
				Mode:           mode,
				SegmentIndex:   m.SegmentIndex,
			})
			lights = append(lights, m.Light)
		}
	}
	if len(mapping) == 0 {
		return nil, nil, bridgeerr.ErrNotFound
	}
	return mapping, lights, nil
}

// DDPMapping is the equivalent per-channel resolution for a WLED session:
// each channel maps onto one segment index on the controller.
type DDPMapping map[int]int

// Session is the ephemeral per-stream state owned by the adapter that
// handles its target back-end (spec.md §3 "entertainment stream state",
// §9 "entertainment task ownership": the session struct is owned by one
// adapter; the UDP listener only hands off parsed frames).
type Session struct {
	ConfigLink resource.Link
	Lights     []resource.Link
	Throttle   *Throttle
	Smoothing  time.Duration

	// Counter is shared with the adapter across start/stop cycles within
	// one process, so it must be a pointer into adapter-owned storage
	// (spec.md §4.7 "counter survives across start/stop cycles... to
	// avoid Zigbee replay rejection").
	Counter *uint32

	Zigbee ChannelMapping
	DDP    DDPMapping
}

// NextCounter increments and returns the session's persistent frame
// counter.
func (s *Session) NextCounter() uint32 {
	*s.Counter++
	return *s.Counter
}

// SampleXYB normalizes one parsed HueStream v2 record (in either RGB or
// XY color mode) into an (x, y, brightness) triple in [0,1].
func SampleXYB(rec RecordV2, mode ColorMode) (x, y, brightness float64) {
	if mode == ColorModeXY && rec.XY != nil {
		return rec.XY.ToNormalized()
	}
	if rec.RGB != nil {
		r, g, b := rec.RGB.ToNormalized()
		return colorspace.SRGB.RGBToXYY(float64(r)/255, float64(g)/255, float64(b)/255)
	}
	return 0.3127, 0.3290, 0
}

// QuantizeChannel converts one normalized (x, y, brightness) sample into
// the 12-bit xy / 11-bit brightness values the Zigbee wire format
// requires (spec.md §4.7 "quantize (x,y) to 12-bit values, quantize
// brightness to 11-bit clamped to [1, 2047]").
func QuantizeChannel(x, y, brightness float64) (qx, qy, qb uint16) {
	qx, qy = colorspace.QuantizeXY(x, y)
	qb = colorspace.QuantizeBrightness11(brightness)
	return
}

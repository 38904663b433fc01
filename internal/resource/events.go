package resource

// EventKind distinguishes the kinds of Hue event: add, update, delete and
// error. A slow subscriber's lag is not an event kind; it is signalled by
// Envelope.Lagged (spec.md §4.3/§7).
type EventKind string

const (
	EventAdd    EventKind = "add"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
	EventError  EventKind = "error"
)

// HueEvent is a single record on the Hue-event stream.
type HueEvent struct {
	CreationTime int64 // unix seconds
	EventID      uint64
	Kind         EventKind
	Link         Link
	// Data carries the full resource on Add, the diff update on Update
	// (one of the *Update types in diff.go), and nothing on Delete/Error.
	Data any
	Err  error
}

// BackendRequestKind names the intent variants of spec.md §4.3.
type BackendRequestKind string

const (
	BackendRequestLightUpdate         BackendRequestKind = "light_update"
	BackendRequestGroupedLightUpdate  BackendRequestKind = "grouped_light_update"
	BackendRequestRoomUpdate          BackendRequestKind = "room_update"
	BackendRequestSceneCreate         BackendRequestKind = "scene_create"
	BackendRequestSceneUpdate         BackendRequestKind = "scene_update"
	BackendRequestSceneDelete         BackendRequestKind = "scene_delete"
	BackendRequestEntertainmentStart  BackendRequestKind = "entertainment_start"
	BackendRequestEntertainmentFrame  BackendRequestKind = "entertainment_frame"
	BackendRequestEntertainmentStop   BackendRequestKind = "entertainment_stop"
	BackendRequestZigbeeDiscovery     BackendRequestKind = "zigbee_device_discovery"
)

// BackendRequest is the intent sum type broadcast to every back-end
// adapter; each adapter decides locally whether a request targets a link
// it owns (spec.md §9 "broadcast of intents").
type BackendRequest struct {
	Kind BackendRequestKind

	// Target is the resource link the request applies to (Light,
	// GroupedLight, Room, Scene, or EntertainmentConfiguration depending
	// on Kind).
	Target Link

	LightUpdate        *LightUpdate
	GroupedLightUpdate *GroupedLightUpdate
	RoomUpdate         *RoomUpdate
	SceneUpdate        *SceneUpdate

	// EntertainmentFrame carries one frame's worth of per-channel color
	// data, already parsed and normalized by the entertainment pipeline;
	// the receiving adapter quantizes it for its own wire format.
	EntertainmentFrame []EntertainmentFrameChannel
}

// EntertainmentFrameChannel is one channel's color sample within a single
// EntertainmentFrame request.
type EntertainmentFrameChannel struct {
	Channel    int
	X, Y       float64 // chromaticity, valid when HasXY
	Brightness float64 // 0..1
	RGB        [3]uint8 // for DDP emission
	HasXY      bool
}

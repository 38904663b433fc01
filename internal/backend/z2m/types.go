// Package z2m implements the Zigbee2MQTT back-end adapter (spec.md §4.4):
// a WebSocket session to a z2m gateway that ingests its device/group
// inventory and state updates into the resource store, and translates
// outbound BackendRequest intents (including entertainment frames) into
// z2m set/get/scene/vendor-frame messages.
//
// Message shapes are grounded on original_source/src/backend/z2m/{mod,
// bridge_import,websocket}.rs and z2m's own published API documentation;
// only the fields the field-mapping table in spec.md §4.4 names are
// modeled, everything else passes through opaque JSON.
package z2m

import "encoding/json"

// Envelope is the outer shape of every z2m WebSocket text frame: a topic
// plus an arbitrary JSON payload.
type Envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Device is one entry of the "bridge/devices" inventory message.
type Device struct {
	IEEEAddress    string     `json:"ieee_address"`
	FriendlyName   string     `json:"friendly_name"`
	Type           string     `json:"type"` // "Router", "EndDevice", "Coordinator"
	NetworkAddress int        `json:"network_address"`
	ModelID        string     `json:"model_id"`
	Manufacturer   string     `json:"manufacturer"`
	Definition     *Definition `json:"definition,omitempty"`
}

// Definition carries the device's exposed feature list.
type Definition struct {
	Exposes []Expose `json:"exposes"`
}

// Expose is one zigbee-herdsman-converters "expose" entry; only the
// subset spec.md §4.4 maps is consulted (state/brightness/color_temp/
// color_xy/gradient feature names).
type Expose struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one leaf capability of an Expose.
type Feature struct {
	Name     string `json:"name"`
	Property string `json:"property"`
}

// HasFeature reports whether any expose of dev advertises property.
func (d Device) HasFeature(property string) bool {
	for _, exp := range d.exposesOrEmpty() {
		for _, f := range exp.Features {
			if f.Property == property {
				return true
			}
		}
	}
	return false
}

func (d Device) exposesOrEmpty() []Expose {
	if d.Definition == nil {
		return nil
	}
	return d.Definition.Exposes
}

// IsGradientCapable reports whether dev exposes a gradient feature.
func (d Device) IsGradientCapable() bool {
	return d.HasFeature("gradient")
}

// Group is one entry of the "bridge/groups" inventory message.
type Group struct {
	ID           int           `json:"id"`
	FriendlyName string        `json:"friendly_name"`
	Members      []GroupMember `json:"members"`
	Scenes       []GroupScene  `json:"scenes"`
}

// GroupMember names one device belonging to a group.
type GroupMember struct {
	IEEEAddress string `json:"ieee_address"`
	Endpoint    int    `json:"endpoint"`
}

// GroupScene is one scene stored on a group.
type GroupScene struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// BridgeEvent is a "bridge/event" notification — device joined/left/
// announced. The adapter takes no action on it and does not model the
// join/leave fields: updated inventories arrive on the bridge/devices and
// bridge/groups topics.
type BridgeEvent struct {
	Type string `json:"type"`
}

// DeviceStateMessage is a per-device state-update payload (topic is the
// device's friendly_name).
type DeviceStateMessage struct {
	State       *string        `json:"state,omitempty"` // "ON" / "OFF"
	Brightness  *int           `json:"brightness,omitempty"`
	ColorTemp   *int           `json:"color_temp,omitempty"`
	Color       *XYColor       `json:"color,omitempty"`
	ColorMode   *string        `json:"color_mode,omitempty"`
	Gradient    []string       `json:"gradient,omitempty"` // hex colors
	Action      *string        `json:"action,omitempty"`   // button press
	Availability *string       `json:"availability,omitempty"`
}

// XYColor is the z2m xy chromaticity pair.
type XYColor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SetPayload is the outbound "<topic>/set" body: the inverse of
// DeviceStateMessage, only fields actually changing are populated.
type SetPayload struct {
	State      string   `json:"state,omitempty"`
	Brightness *int     `json:"brightness,omitempty"`
	ColorTemp  *int     `json:"color_temp,omitempty"`
	Color      *XYColor `json:"color,omitempty"`
	Gradient   []string `json:"gradient,omitempty"`
}

// SceneStorePayload requests the group's current state be persisted under
// id/name on the back-end (used only when the back-end can store scenes
// itself; bifrost's scene-learner path is used otherwise).
type SceneStorePayload struct {
	SceneStore SceneStoreBody `json:"scene_store"`
}

// SceneStoreBody is the nested body of SceneStorePayload.
type SceneStoreBody struct {
	ID   int    `json:"ID"`
	Name string `json:"name"`
}

// SceneRecallPayload requests scene id be recalled.
type SceneRecallPayload struct {
	SceneRecall int `json:"scene_recall"`
}

// SceneRemovePayload requests scene id be deleted.
type SceneRemovePayload struct {
	SceneRemove int `json:"scene_remove"`
}

// GroupMemberChange is the body of bridge/request/group/members/{add,remove}.
type GroupMemberChange struct {
	Group  string `json:"group"`
	Device string `json:"device"`
}

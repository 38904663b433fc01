// Package wled implements the back-end adapter for WLED controllers:
// one synthetic Room per controller, one Light per LED segment, JSON
// state over a WebSocket, and DDP for entertainment streaming
// (spec.md §4.5, grounded on original_source/crates/wled/src/api.rs and
// original_source/src/backend/wled/mod.rs).
package wled

// Info is the subset of WLED's /json/info payload the adapter needs to
// derive a device identity.
type Info struct {
	Name    string `json:"name"`
	MAC     string `json:"mac"`
	Brand   string `json:"brand"`
	Product string `json:"product"`
	Version string `json:"ver"`
	Leds    struct {
		Count int `json:"count"`
	} `json:"leds"`
}

// StateSeg is one WLED segment's live state (api.rs StateSeg, trimmed to
// the fields the adapter maps onto a Light).
type StateSeg struct {
	ID  int       `json:"id"`
	On  bool      `json:"on"`
	Bri int       `json:"bri"`
	Col [][3]int  `json:"col"`
	CCT int       `json:"cct"`
}

// State is WLED's top-level state object.
type State struct {
	On  bool       `json:"on"`
	Bri int        `json:"bri"`
	Seg []StateSeg `json:"seg"`
}

// Message is the combined state+info payload WLED pushes over its
// WebSocket whenever state changes, and on initial connect.
type Message struct {
	Info  *Info  `json:"info,omitempty"`
	State *State `json:"state,omitempty"`
}

// SegUpdate is one segment entry in an outbound partial state update.
type SegUpdate struct {
	ID  int      `json:"id"`
	On  *bool    `json:"on,omitempty"`
	Bri *int     `json:"bri,omitempty"`
	Col [][3]int `json:"col,omitempty"`
	CCT *int     `json:"cct,omitempty"`
}

// StateUpdate is an outbound partial state message: {"seg": [...]}.
type StateUpdate struct {
	Seg []SegUpdate `json:"seg,omitempty"`
	On  *bool       `json:"on,omitempty"`
}

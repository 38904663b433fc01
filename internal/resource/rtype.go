// Package resource implements the typed, id-addressable resource store: a
// heterogeneous collection of Hue resource values keyed by resource link,
// with diff/apply based mutation, cascading delete, an aux id<->external
// name table, and the two broadcast event streams (Hue events and
// back-end-request intents) that the rest of the system consumes.
package resource

import "github.com/nilclass/huebridge/internal/idgen"

// RType names a Hue resource type. The core behaviorally distinguishes a
// subset of the ~40 real Hue resource types (spec.md §3); every other type
// is represented as a Stub payload carrying its content verbatim.
type RType string

const (
	RTypeDevice                     RType = "device"
	RTypeLight                      RType = "light"
	RTypeGroupedLight               RType = "grouped_light"
	RTypeRoom                       RType = "room"
	RTypeScene                      RType = "scene"
	RTypeBridgeHome                 RType = "bridge_home"
	RTypeEntertainment              RType = "entertainment"
	RTypeEntertainmentConfiguration RType = "entertainment_configuration"
	RTypeZigbeeConnectivity         RType = "zigbee_connectivity"
	RTypeButton                     RType = "button"
	RTypeBridge                     RType = "bridge"
	RTypeTaurus                     RType = "taurus_7455"
)

// idTag maps a behaviorally-distinguished RType onto the stable idgen type
// tag used for deterministic id derivation. Stub resources derive their id
// under idgen.RTypeStub, tagged further by their own RType string (passed
// as part of the seed by callers), since there is no 1:1 idgen tag for each
// of the ~30 unmapped variants.
func idTag(t RType) idgen.RType {
	switch t {
	case RTypeDevice:
		return idgen.RTypeDevice
	case RTypeLight:
		return idgen.RTypeLight
	case RTypeGroupedLight:
		return idgen.RTypeGroupedLight
	case RTypeRoom:
		return idgen.RTypeRoom
	case RTypeScene:
		return idgen.RTypeScene
	case RTypeBridgeHome:
		return idgen.RTypeBridgeHome
	case RTypeEntertainment:
		return idgen.RTypeEntertainment
	case RTypeEntertainmentConfiguration:
		return idgen.RTypeEntertainmentConfiguration
	case RTypeZigbeeConnectivity:
		return idgen.RTypeZigbeeConnectivity
	case RTypeButton:
		return idgen.RTypeButton
	case RTypeBridge:
		return idgen.RTypeBridge
	case RTypeTaurus:
		return idgen.RTypeTaurus
	default:
		return idgen.RTypeStub
	}
}

package resource

import (
	"encoding/json"
	"fmt"
)

// SnapshotEntry is one resource's persisted representation: its link plus
// its concrete value marshaled through the same json tags every resource
// type already carries (types.go), so no separate wire schema is needed.
type SnapshotEntry struct {
	Link    Link            `json:"link"`
	Payload json.RawMessage `json:"payload"`
}

// AuxSnapshotEntry is one persisted aux-table row.
type AuxSnapshotEntry struct {
	Link  Link     `json:"link"`
	Topic string   `json:"external_topic"`
	Index *int     `json:"external_index,omitempty"`
}

// Snapshot marshals every resource and aux entry currently held by the
// store, for persistence into the state document (spec.md §6 "resource_
// graph", "aux_table"). It takes the store lock for the duration of the
// copy but performs no I/O while holding it.
func (s *Store) Snapshot() ([]SnapshotEntry, []AuxSnapshotEntry, error) {
	s.mu.Lock()
	resources := make(map[Link]Resource, len(s.resources))
	for k, v := range s.resources {
		resources[k] = v
	}
	aux := make(map[Link]AuxEntry, len(s.aux))
	for k, v := range s.aux {
		aux[k] = v
	}
	s.mu.Unlock()

	entries := make([]SnapshotEntry, 0, len(resources))
	for link, r := range resources {
		payload, err := json.Marshal(r)
		if err != nil {
			return nil, nil, fmt.Errorf("resource: marshal %s: %w", link, err)
		}
		entries = append(entries, SnapshotEntry{Link: link, Payload: payload})
	}

	auxEntries := make([]AuxSnapshotEntry, 0, len(aux))
	for link, e := range aux {
		auxEntries = append(auxEntries, AuxSnapshotEntry{Link: link, Topic: e.ExternalTopic, Index: e.ExternalIndex})
	}

	return entries, auxEntries, nil
}

// Restore repopulates an empty store from a previously-taken snapshot.
// Like Add, it does not check that the links a resource references exist;
// unlike Add, it emits no events — the store has no
// subscribers yet at restore time (spec.md §4.1 "streaming reset" runs
// immediately after, before anything subscribes).
func (s *Store) Restore(entries []SnapshotEntry, aux []AuxSnapshotEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		r, err := unmarshalResource(e.Link.Type, e.Payload)
		if err != nil {
			return fmt.Errorf("resource: restore %s: %w", e.Link, err)
		}
		s.resources[e.Link] = r
	}
	for _, a := range aux {
		s.aux[a.Link] = AuxEntry{ExternalTopic: a.Topic, ExternalIndex: a.Index}
	}
	return nil
}

// unmarshalResource decodes payload into the concrete Go type that t
// stores as (types.go); unrecognized types decode as Stub.
func unmarshalResource(t RType, payload json.RawMessage) (Resource, error) {
	var err error
	switch t {
	case RTypeDevice:
		var v Device
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeLight:
		var v Light
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeGroupedLight:
		var v GroupedLight
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeRoom:
		var v Room
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeScene:
		var v Scene
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeBridgeHome:
		var v BridgeHome
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeEntertainment:
		var v Entertainment
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeEntertainmentConfiguration:
		var v EntertainmentConfiguration
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeZigbeeConnectivity:
		var v ZigbeeConnectivity
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeButton:
		var v Button
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeBridge:
		var v Bridge
		err = json.Unmarshal(payload, &v)
		return v, err
	case RTypeTaurus:
		var v Taurus
		err = json.Unmarshal(payload, &v)
		return v, err
	default:
		var v Stub
		err = json.Unmarshal(payload, &v)
		v.Type = t
		return v, err
	}
}

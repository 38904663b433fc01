package resource

import (
	"sync"
	"time"

	"github.com/nilclass/huebridge/internal/bridgeerr"
)

// AuxEntry maps a resource link onto the back-end's own naming for it
// (spec.md §4.1 "aux table": a z2m friendly_name / ieee address, or a WLED
// segment index), so an inbound back-end message can be resolved back to a
// Link without re-deriving it.
type AuxEntry struct {
	ExternalTopic string // z2m friendly_name, WLED device host, ...
	ExternalIndex *int   // WLED segment index, z2m endpoint, when applicable
}

// Store is the single exclusive-locked resource table spec.md §4.1
// describes: every mutation takes the lock, mutates, publishes the
// resulting event, and releases it. Publishing never waits for a
// subscriber (a full backlog drops its oldest message), so the lock is
// never held across a blocking send.
type Store struct {
	mu        sync.Mutex
	resources map[Link]Resource
	aux       map[Link]AuxEntry
	nextEvent uint64

	hue     *Broadcast[HueEvent]
	backend *Broadcast[BackendRequest]

	now func() time.Time
}

// NewStore creates an empty Store with the given per-subscriber backlog for
// both event streams.
func NewStore(backlog int) *Store {
	return &Store{
		resources: make(map[Link]Resource),
		aux:       make(map[Link]AuxEntry),
		hue:       NewBroadcast[HueEvent](backlog),
		backend:   NewBroadcast[BackendRequest](backlog),
		now:       time.Now,
	}
}

// HueEventStream subscribes to the Hue resource-event stream.
func (s *Store) HueEventStream() *Subscription[HueEvent] { return s.hue.Subscribe() }

// BackendEventStream subscribes to the back-end-request intent stream.
func (s *Store) BackendEventStream() *Subscription[BackendRequest] { return s.backend.Subscribe() }

// PublishBackendRequest broadcasts an intent to every back-end adapter.
func (s *Store) PublishBackendRequest(req BackendRequest) { s.backend.Publish(req) }

func (s *Store) emitLocked(kind EventKind, link Link, data any) {
	s.nextEvent++
	s.hue.Publish(HueEvent{
		CreationTime: s.now().Unix(),
		EventID:      s.nextEvent,
		Kind:         kind,
		Link:         link,
		Data:         data,
	})
}

// Add inserts a new resource under link. Returns bridgeerr.ErrAlreadyExists
// if one is already present.
func (s *Store) Add(link Link, r Resource) error {
	s.mu.Lock()
	if _, exists := s.resources[link]; exists {
		s.mu.Unlock()
		return bridgeerr.ErrAlreadyExists
	}
	s.resources[link] = r
	s.emitLocked(EventAdd, link, r)
	s.mu.Unlock()
	return nil
}

// Get fetches the resource at link, type-asserting it to T.
func Get[T Resource](s *Store, link Link) (T, error) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[link]
	if !ok {
		return zero, bridgeerr.ErrNotFound
	}
	t, ok := r.(T)
	if !ok {
		return zero, bridgeerr.ErrWrongType
	}
	return t, nil
}

// Has reports whether a resource exists at link.
func (s *Store) Has(link Link) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.resources[link]
	return ok
}

// GetResourceIDsByType enumerates every link currently stored under t.
func (s *Store) GetResourceIDsByType(t RType) []Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Link
	for link := range s.resources {
		if link.Type == t {
			out = append(out, link)
		}
	}
	return out
}

// updateTyped is the shared body of every per-type Update* entry point:
// fetch the current value, compute the diff against replacement, apply it
// in place if non-empty, and emit exactly one update event (spec.md P3).
// It returns the update actually applied (for the caller's own bookkeeping)
// and whether it was a no-op.
func updateTyped[T Resource, U interface{ IsEmpty() bool }](
	s *Store, link Link, replacement T,
	diff func(old, new T) U,
	apply func(cur *T, u U),
) (U, error) {
	var zero U
	s.mu.Lock()
	r, ok := s.resources[link]
	if !ok {
		s.mu.Unlock()
		return zero, bridgeerr.ErrNotFound
	}
	cur, ok := r.(T)
	if !ok {
		s.mu.Unlock()
		return zero, bridgeerr.ErrWrongType
	}
	u := diff(cur, replacement)
	if u.IsEmpty() {
		s.mu.Unlock()
		return u, nil
	}
	apply(&cur, u)
	s.resources[link] = cur
	s.emitLocked(EventUpdate, link, u)
	s.mu.Unlock()
	return u, nil
}

// UpdateLight replaces the Light at link, diffing against its current value
// and emitting an update event only if something actually changed.
func (s *Store) UpdateLight(link Link, replacement Light) (LightUpdate, error) {
	return updateTyped(s, link, replacement, DiffLight, func(cur *Light, u LightUpdate) { cur.Apply(u) })
}

// UpdateGroupedLight replaces the GroupedLight at link.
func (s *Store) UpdateGroupedLight(link Link, replacement GroupedLight) (GroupedLightUpdate, error) {
	return updateTyped(s, link, replacement, DiffGroupedLight, func(cur *GroupedLight, u GroupedLightUpdate) { cur.Apply(u) })
}

// UpdateRoom replaces the Room at link.
func (s *Store) UpdateRoom(link Link, replacement Room) (RoomUpdate, error) {
	return updateTyped(s, link, replacement, DiffRoom, func(cur *Room, u RoomUpdate) { cur.Apply(u) })
}

// UpdateScene replaces the Scene at link.
func (s *Store) UpdateScene(link Link, replacement Scene) (SceneUpdate, error) {
	return updateTyped(s, link, replacement, DiffScene, func(cur *Scene, u SceneUpdate) { cur.Apply(u) })
}

// UpdateBridgeHome replaces the singleton BridgeHome.
func (s *Store) UpdateBridgeHome(link Link, replacement BridgeHome) (BridgeHomeUpdate, error) {
	return updateTyped(s, link, replacement, DiffBridgeHome, func(cur *BridgeHome, u BridgeHomeUpdate) { cur.Apply(u) })
}

// UpdateEntertainmentConfiguration replaces the EntertainmentConfiguration
// at link.
func (s *Store) UpdateEntertainmentConfiguration(link Link, replacement EntertainmentConfiguration) (EntertainmentConfigurationUpdate, error) {
	return updateTyped(s, link, replacement, DiffEntertainmentConfiguration, func(cur *EntertainmentConfiguration, u EntertainmentConfigurationUpdate) {
		cur.Apply(u)
	})
}

// UpdateZigbeeConnectivity replaces the ZigbeeConnectivity at link.
func (s *Store) UpdateZigbeeConnectivity(link Link, replacement ZigbeeConnectivity) (ZigbeeConnectivityUpdate, error) {
	return updateTyped(s, link, replacement, DiffZigbeeConnectivity, func(cur *ZigbeeConnectivity, u ZigbeeConnectivityUpdate) {
		cur.Apply(u)
	})
}

// Delete removes the resource at link, cascading to its owned children
// (spec.md §4.1 "deleting a Device deletes its services; deleting a Room
// deletes its grouped_light and scenes; deleting a Light drops it from any
// scene action or entertainment channel that references it").
func (s *Store) Delete(link Link) error {
	s.mu.Lock()
	r, ok := s.resources[link]
	if !ok {
		s.mu.Unlock()
		return bridgeerr.ErrNotFound
	}

	switch v := r.(type) {
	case Device:
		s.deleteLocked(link)
		for _, svc := range v.Services {
			s.cascadeDeleteLocked(svc)
		}
		s.pruneDeviceFromRoomsLocked(link)
	case Room:
		s.deleteLocked(link)
		gl := DerivedLinkFrom(RTypeGroupedLight, link)
		s.cascadeDeleteLocked(gl)
		for sceneLink, res := range s.snapshotLocked() {
			if sc, ok := res.(Scene); ok && sc.Group == link {
				s.cascadeDeleteLocked(sceneLink)
			}
		}
	case Light:
		s.deleteLocked(link)
		s.pruneLightReferencesLocked(link)
	default:
		s.deleteLocked(link)
	}

	s.mu.Unlock()
	return nil
}

// snapshotLocked returns the live resource map; callers must already hold
// s.mu and must not mutate the returned map.
func (s *Store) snapshotLocked() map[Link]Resource { return s.resources }

// deleteLocked removes link and emits a delete event. Caller holds s.mu.
func (s *Store) deleteLocked(link Link) {
	delete(s.resources, link)
	delete(s.aux, link)
	s.emitLocked(EventDelete, link, nil)
}

// cascadeDeleteLocked deletes link if present, without erroring if it
// isn't (a Device's Services list may reference a service that was already
// removed).
func (s *Store) cascadeDeleteLocked(link Link) {
	if _, ok := s.resources[link]; ok {
		s.deleteLocked(link)
	}
}

// pruneLightReferencesLocked drops scene actions and entertainment channel
// members that targeted the now-deleted light.
func (s *Store) pruneLightReferencesLocked(light Link) {
	for link, res := range s.resources {
		switch v := res.(type) {
		case Scene:
			actions := v.Actions[:0:0]
			changed := false
			for _, a := range v.Actions {
				if a.Target == light {
					changed = true
					continue
				}
				actions = append(actions, a)
			}
			if changed {
				v.Actions = actions
				s.resources[link] = v
				s.nextEvent++
				s.hue.Publish(HueEvent{
					CreationTime: s.now().Unix(),
					EventID:      s.nextEvent,
					Kind:         EventUpdate,
					Link:         link,
					Data:         SceneUpdate{Actions: &actions},
				})
			}
		case EntertainmentConfiguration:
			channels := make([]EntertainmentChannel, 0, len(v.Channels))
			changed := false
			for _, ch := range v.Channels {
				members := ch.Members[:0:0]
				for _, m := range ch.Members {
					if m.Light == light {
						changed = true
						continue
					}
					members = append(members, m)
				}
				ch.Members = members
				channels = append(channels, ch)
			}
			if changed {
				v.Channels = channels
				s.resources[link] = v
				s.nextEvent++
				s.hue.Publish(HueEvent{
					CreationTime: s.now().Unix(),
					EventID:      s.nextEvent,
					Kind:         EventUpdate,
					Link:         link,
					Data:         EntertainmentConfigurationUpdate{Channels: &channels},
				})
			}
		}
	}
}

// pruneDeviceFromRoomsLocked drops device from every Room.Children set that
// contained it, preserving P4 link closure after a Device delete.
func (s *Store) pruneDeviceFromRoomsLocked(device Link) {
	for link, res := range s.resources {
		room, ok := res.(Room)
		if !ok {
			continue
		}
		children := room.Children[:0:0]
		changed := false
		for _, c := range room.Children {
			if c == device {
				changed = true
				continue
			}
			children = append(children, c)
		}
		if !changed {
			continue
		}
		room.Children = children
		s.resources[link] = room
		s.nextEvent++
		s.hue.Publish(HueEvent{
			CreationTime: s.now().Unix(),
			EventID:      s.nextEvent,
			Kind:         EventUpdate,
			Link:         link,
			Data:         RoomUpdate{Children: &children},
		})
	}
}

// AuxSet records the external-name mapping for link.
func (s *Store) AuxSet(link Link, entry AuxEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aux[link] = entry
}

// AuxGet returns the external-name mapping for link, if any.
func (s *Store) AuxGet(link Link) (AuxEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.aux[link]
	return e, ok
}

// AuxRemove deletes the external-name mapping for link.
func (s *Store) AuxRemove(link Link) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.aux, link)
}

// AuxFindByTopic does a reverse lookup, returning a link whose aux entry
// matches topic (and index, when index is non-nil). When several links
// match, which of them is returned is not defined.
func (s *Store) AuxFindByTopic(topic string, index *int) (Link, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for link, e := range s.aux {
		if e.ExternalTopic != topic {
			continue
		}
		if index == nil && e.ExternalIndex == nil {
			return link, true
		}
		if index != nil && e.ExternalIndex != nil && *index == *e.ExternalIndex {
			return link, true
		}
	}
	return Link{}, false
}

// ResetStreamingState clears every Light's streaming mode and every
// EntertainmentConfiguration's streaming flag (spec.md P6: "on process
// restart, no entertainment session survives; the store starts clean").
// It is meant to run once at startup, before anything subscribes to the
// event streams, so it mutates directly without publishing events.
func (s *Store) ResetStreamingState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for link, r := range s.resources {
		switch v := r.(type) {
		case Light:
			if v.Mode != LightModeNormal {
				v.Mode = LightModeNormal
				s.resources[link] = v
			}
		case EntertainmentConfiguration:
			if v.Streaming {
				v.Streaming = false
				s.resources[link] = v
			}
		}
	}
}

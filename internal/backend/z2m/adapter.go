package z2m

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nilclass/huebridge/internal/backend"
	"github.com/nilclass/huebridge/internal/config"
	"github.com/nilclass/huebridge/internal/entertainment"
	"github.com/nilclass/huebridge/internal/resource"
	"github.com/nilclass/huebridge/internal/scenelearn"
)

// Adapter owns one zigbee2mqtt server connection: it keeps the store's
// mirror of the server's devices/groups current, and it translates
// outbound BackendRequests into z2m websocket frames (spec.md §4.4,
// grounded on original_source/src/backend/z2m/websocket.rs's Z2mWebSocket
// send_* methods, reshaped into one Go event loop per the teacher's own
// adapter-task convention).
type Adapter struct {
	name    string
	cfg     config.Z2MServerConfig
	store   *resource.Store
	learner *scenelearn.Learner
	logger  zerolog.Logger

	state   atomic.Int32
	counter uint32 // survives start/stop across this adapter's lifetime

	sessionMu sync.Mutex
	sessions  map[resource.Link]*entertainment.Session

	membersMu sync.Mutex
	members   map[resource.Link]map[resource.Link]bool // room link -> member device links
}

// New creates an Adapter for one configured z2m server.
func New(name string, cfg config.Z2MServerConfig, store *resource.Store, logger zerolog.Logger) *Adapter {
	return &Adapter{
		name:     name,
		cfg:      cfg,
		store:    store,
		learner:  scenelearn.New(store, scenelearn.DefaultWindow, scenelearn.DefaultMaxPending),
		logger:   logger.With().Str("backend", "z2m").Str("server", name).Logger(),
		sessions: make(map[resource.Link]*entertainment.Session),
		members:  make(map[resource.Link]map[resource.Link]bool),
	}
}

func (a *Adapter) Name() string { return "z2m:" + a.name }

func (a *Adapter) State() backend.State { return backend.State(a.state.Load()) }

func (a *Adapter) setState(s backend.State) { a.state.Store(int32(s)) }

// Run implements backend.Adapter: connect, mirror, reconnect forever
// until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) {
	for ctx.Err() == nil {
		a.setState(backend.StateConnecting)
		if err := a.runOnce(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("z2m connection ended")
		}
		a.setState(backend.StateDisconnected)
		if !backend.Sleep(ctx, backend.ReconnectBackoff) {
			return
		}
	}
}

func (a *Adapter) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if a.cfg.DisableTLSVerify {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	conn, _, err := dialer.DialContext(ctx, a.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", a.cfg.URL, err)
	}
	defer conn.Close()
	a.setState(backend.StateRunning)
	a.logger.Info().Msg("connected")

	backendSub := a.store.BackendEventStream()
	defer backendSub.Unsubscribe()

	expireTicker := time.NewTicker(time.Second)
	defer expireTicker.Stop()

	readErr := make(chan error, 1)
	inbound := make(chan Envelope, 32)
	go a.readLoop(conn, inbound, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case env := <-inbound:
			a.handleEnvelope(env)
		case evt, ok := <-backendSub.C():
			if !ok {
				return nil
			}
			a.handleBackendRequest(conn, evt.Value)
		case <-expireTicker.C:
			a.learner.ExpireDue(time.Now())
		}
	}
}

func (a *Adapter) readLoop(conn *websocket.Conn, out chan<- Envelope, errc chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			a.logger.Debug().Err(err).Msg("dropping unparseable z2m message")
			continue
		}
		out <- env
	}
}

func (a *Adapter) sendRaw(conn *websocket.Conn, topic string, payload any) {
	body, err := json.Marshal(Envelope{Topic: topic, Payload: mustMarshal(payload)})
	if err != nil {
		a.logger.Error().Err(err).Msg("marshal outbound z2m message")
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		a.logger.Warn().Err(err).Msg("write z2m message")
	}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}

// --- inbound ---

func (a *Adapter) handleEnvelope(env Envelope) {
	switch {
	case env.Topic == "bridge/devices":
		a.syncDevices(env.Payload)
	case env.Topic == "bridge/groups":
		a.syncGroups(env.Payload)
	case env.Topic == "bridge/event":
		// resync trigger: bridge/devices and bridge/groups follow on their own topics.
	case strings.HasSuffix(env.Topic, "/availability"):
		a.handleAvailability(env.Topic, env.Payload)
	case !strings.HasPrefix(env.Topic, "bridge/"):
		a.handleDeviceState(env.Topic, env.Payload)
	}
}

func (a *Adapter) syncDevices(payload json.RawMessage) {
	var devices []Device
	if err := json.Unmarshal(payload, &devices); err != nil {
		a.logger.Warn().Err(err).Msg("parse bridge/devices")
		return
	}
	for _, dev := range devices {
		if dev.IEEEAddress == "" || dev.FriendlyName == "" || dev.Type == "Coordinator" {
			continue
		}
		a.addOrUpdateDevice(dev)
	}
}

func (a *Adapter) deviceLink(dev Device) resource.Link {
	return resource.DerivedLink(resource.RTypeDevice, []byte(a.name), []byte(dev.IEEEAddress))
}

func (a *Adapter) addOrUpdateDevice(dev Device) {
	deviceLink := a.deviceLink(dev)
	lightLink := resource.DerivedLinkFrom(resource.RTypeLight, deviceLink)
	entLink := resource.DerivedLinkFrom(resource.RTypeEntertainment, deviceLink)
	zigLink := resource.DerivedLinkFrom(resource.RTypeZigbeeConnectivity, deviceLink)
	taurusLink := resource.DerivedLinkFrom(resource.RTypeTaurus, deviceLink)

	a.store.AuxSet(lightLink, resource.AuxEntry{ExternalTopic: dev.FriendlyName})
	a.store.AuxSet(deviceLink, resource.AuxEntry{ExternalTopic: dev.FriendlyName})

	if a.store.Has(deviceLink) {
		return
	}

	segments := []resource.EntertainmentSegment{{Start: 0, Length: 1}}
	if dev.IsGradientCapable() {
		segments = make([]resource.EntertainmentSegment, 7)
		for i := range segments {
			segments[i] = resource.EntertainmentSegment{Start: i, Length: 1}
		}
	}

	if err := a.store.Add(deviceLink, resource.Device{
		ProductData: DeriveProductData(dev),
		Metadata:    resource.Metadata{Name: dev.FriendlyName, Archetype: "sultan_bulb"},
		Services:    []resource.Link{lightLink, entLink, zigLink, taurusLink},
	}); err != nil {
		a.logger.Warn().Err(err).Str("device", dev.FriendlyName).Msg("add device")
		return
	}
	_ = a.store.Add(lightLink, resource.Light{
		Owner_:   deviceLink,
		Metadata: resource.Metadata{Name: dev.FriendlyName, Archetype: "sultan_bulb"},
		Mode:     resource.LightModeNormal,
	})
	_ = a.store.Add(entLink, resource.Entertainment{Owner_: deviceLink, Segments: segments})
	_ = a.store.Add(zigLink, resource.ZigbeeConnectivity{
		Owner_: deviceLink,
		Status: resource.ZigbeeConnectivityConnected,
		NetworkAddress: uint16(dev.NetworkAddress),
	})
	_ = a.store.Add(taurusLink, resource.Taurus{Owner_: deviceLink, Capabilities: []string{"sensor", "collector", "sync"}})
}

func (a *Adapter) syncGroups(payload json.RawMessage) {
	var groups []Group
	if err := json.Unmarshal(payload, &groups); err != nil {
		a.logger.Warn().Err(err).Msg("parse bridge/groups")
		return
	}
	for _, g := range groups {
		a.addOrUpdateGroup(g)
	}
}

func (a *Adapter) addOrUpdateGroup(g Group) {
	roomLink := resource.DerivedLink(resource.RTypeRoom, []byte(a.name), []byte(g.FriendlyName))
	groupedLink := resource.DerivedLinkFrom(resource.RTypeGroupedLight, roomLink)
	a.store.AuxSet(roomLink, resource.AuxEntry{ExternalTopic: g.FriendlyName})
	a.store.AuxSet(groupedLink, resource.AuxEntry{ExternalTopic: g.FriendlyName})

	var children []resource.Link
	memberSet := make(map[resource.Link]bool, len(g.Members))
	for _, m := range g.Members {
		dl := resource.DerivedLink(resource.RTypeDevice, []byte(a.name), []byte(m.IEEEAddress))
		if a.store.Has(dl) {
			children = append(children, dl)
			memberSet[dl] = true
		}
	}
	a.membersMu.Lock()
	a.members[roomLink] = memberSet
	a.membersMu.Unlock()

	if !a.store.Has(roomLink) {
		_ = a.store.Add(roomLink, resource.Room{
			Metadata: resource.Metadata{Name: g.FriendlyName, Archetype: "zigbee_group"},
			Children: children,
			Services: []resource.Link{groupedLink},
		})
		_ = a.store.Add(groupedLink, resource.GroupedLight{Owner_: roomLink})
		return
	}
	room, err := resource.Get[resource.Room](a.store, roomLink)
	if err != nil {
		return
	}
	room.Children = children
	_, _ = a.store.UpdateRoom(roomLink, room)
}

func (a *Adapter) handleAvailability(topic string, payload json.RawMessage) {
	friendlyName := strings.TrimSuffix(topic, "/availability")
	deviceLink, ok := a.store.AuxFindByTopic(friendlyName, nil)
	if !ok {
		return
	}
	if deviceLink.Type == resource.RTypeLight {
		// the light shares the device's topic; resolve its owning device.
		light, err := resource.Get[resource.Light](a.store, deviceLink)
		if err != nil {
			return
		}
		deviceLink = light.Owner_
	}
	var body struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return
	}
	zigLink := resource.DerivedLinkFrom(resource.RTypeZigbeeConnectivity, deviceLink)
	zig, err := resource.Get[resource.ZigbeeConnectivity](a.store, zigLink)
	if err != nil {
		return
	}
	if body.State == "online" {
		zig.Status = resource.ZigbeeConnectivityConnected
	} else {
		zig.Status = resource.ZigbeeConnectivityDisconnected
	}
	_, _ = a.store.UpdateZigbeeConnectivity(zigLink, zig)
}

func (a *Adapter) handleDeviceState(topic string, payload json.RawMessage) {
	lightLink, ok := a.store.AuxFindByTopic(topic, nil)
	if !ok {
		return
	}
	if lightLink.Type == resource.RTypeDevice {
		// the device shares the light's topic; its light is derived from it.
		lightLink = resource.DerivedLinkFrom(resource.RTypeLight, lightLink)
	}
	light, err := resource.Get[resource.Light](a.store, lightLink)
	if err != nil {
		return
	}
	if light.Mode == resource.LightModeStreaming {
		// an active entertainment stream owns this light; normal mirroring
		// is suppressed until the stream stops (spec.md §4.8).
		return
	}
	var msg DeviceStateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		a.logger.Debug().Err(err).Str("topic", topic).Msg("parse device state")
		return
	}
	updated := ApplyDeviceState(light, msg)
	if _, err := a.store.UpdateLight(lightLink, updated); err != nil {
		a.logger.Warn().Err(err).Str("topic", topic).Msg("update light")
		return
	}
	a.feedLearner(light, updated, lightLink)
}

func (a *Adapter) feedLearner(before, after resource.Light, lightLink resource.Link) {
	partial := lightPartial(after)
	a.learner.OnLightUpdate(after.Owner_, lightLink, partial, time.Now())
}

func lightPartial(l resource.Light) resource.SceneActionPartial {
	on := l.On
	return resource.SceneActionPartial{
		On:               &on,
		Dimming:          l.Dimming,
		Color:            l.Color,
		ColorTemperature: l.ColorTemperature,
	}
}

// --- outbound ---

func (a *Adapter) handleBackendRequest(conn *websocket.Conn, req resource.BackendRequest) {
	switch req.Kind {
	case resource.BackendRequestLightUpdate:
		a.handleLightUpdate(conn, req)
	case resource.BackendRequestGroupedLightUpdate:
		a.handleGroupedLightUpdate(conn, req)
	case resource.BackendRequestRoomUpdate:
		a.handleRoomUpdate(conn, req)
	case resource.BackendRequestSceneCreate:
		a.handleSceneCreate(conn, req)
	case resource.BackendRequestSceneUpdate:
		a.handleSceneUpdate(conn, req)
	case resource.BackendRequestSceneDelete:
		a.handleSceneDelete(conn, req)
	case resource.BackendRequestEntertainmentStart:
		a.handleEntertainmentStart(req)
	case resource.BackendRequestEntertainmentFrame:
		a.handleEntertainmentFrame(conn, req)
	case resource.BackendRequestEntertainmentStop:
		a.handleEntertainmentStop(req)
	}
}

func (a *Adapter) topicFor(link resource.Link) (string, bool) {
	entry, ok := a.store.AuxGet(link)
	if !ok {
		return "", false
	}
	return entry.ExternalTopic, true
}

func (a *Adapter) handleLightUpdate(conn *websocket.Conn, req resource.BackendRequest) {
	if req.LightUpdate == nil {
		return
	}
	topic, ok := a.topicFor(req.Target)
	if !ok {
		return
	}
	a.sendRaw(conn, topic+"/set", BuildSetPayload(*req.LightUpdate))
}

func (a *Adapter) handleGroupedLightUpdate(conn *websocket.Conn, req resource.BackendRequest) {
	if req.GroupedLightUpdate == nil {
		return
	}
	topic, ok := a.topicFor(req.Target)
	if !ok {
		return
	}
	var p SetPayload
	if req.GroupedLightUpdate.On != nil {
		if req.GroupedLightUpdate.On.On {
			p.State = "ON"
		} else {
			p.State = "OFF"
		}
	}
	if d := req.GroupedLightUpdate.Dimming; d != nil && *d != nil {
		v := int((*d).Brightness / 100.0 * 254.0)
		p.Brightness = &v
	}
	a.sendRaw(conn, topic+"/set", p)
}

func (a *Adapter) handleRoomUpdate(conn *websocket.Conn, req resource.BackendRequest) {
	if req.RoomUpdate == nil || req.RoomUpdate.Children == nil {
		return
	}
	topic, ok := a.topicFor(req.Target)
	if !ok {
		return
	}
	desired := make(map[resource.Link]bool, len(*req.RoomUpdate.Children))
	for _, c := range *req.RoomUpdate.Children {
		desired[c] = true
	}

	a.membersMu.Lock()
	current := a.members[req.Target]
	if current == nil {
		current = map[resource.Link]bool{}
	}
	a.membersMu.Unlock()

	for dev := range desired {
		if current[dev] {
			continue
		}
		if devTopic, ok := a.topicFor(dev); ok {
			a.sendRaw(conn, "bridge/request/group/members/add", GroupMemberChange{Group: topic, Device: devTopic})
		}
	}
	for dev := range current {
		if desired[dev] {
			continue
		}
		if devTopic, ok := a.topicFor(dev); ok {
			a.sendRaw(conn, "bridge/request/group/members/remove", GroupMemberChange{Group: topic, Device: devTopic})
		}
	}

	a.membersMu.Lock()
	a.members[req.Target] = desired
	a.membersMu.Unlock()
}

func (a *Adapter) sceneZ2MID(scene resource.Link) int {
	b := scene.ID
	return int(b[14])<<8 | int(b[15])
}

func (a *Adapter) handleSceneCreate(conn *websocket.Conn, req resource.BackendRequest) {
	scene, err := resource.Get[resource.Scene](a.store, req.Target)
	if err != nil {
		return
	}
	topic, ok := a.topicFor(scene.Group)
	if !ok {
		return
	}
	id := a.sceneZ2MID(req.Target)
	a.store.AuxSet(req.Target, resource.AuxEntry{ExternalTopic: topic, ExternalIndex: &id})
	a.sendRaw(conn, topic+"/set", SceneStorePayload{SceneStore: SceneStoreBody{ID: id, Name: req.Target.String()}})
}

func (a *Adapter) handleSceneUpdate(conn *websocket.Conn, req resource.BackendRequest) {
	if req.SceneUpdate == nil || req.SceneUpdate.Status == nil {
		return
	}
	entry, ok := a.store.AuxGet(req.Target)
	if !ok || entry.ExternalIndex == nil {
		return
	}
	scene, err := resource.Get[resource.Scene](a.store, req.Target)
	if err != nil {
		return
	}
	if req.SceneUpdate.Status.Active == resource.SceneActiveInactive {
		return
	}
	a.sendRaw(conn, entry.ExternalTopic+"/set", SceneRecallPayload{SceneRecall: *entry.ExternalIndex})
	a.learner.OnRecall(req.Target, scene.Group)
}

func (a *Adapter) handleSceneDelete(conn *websocket.Conn, req resource.BackendRequest) {
	entry, ok := a.store.AuxGet(req.Target)
	if !ok || entry.ExternalIndex == nil {
		return
	}
	a.sendRaw(conn, entry.ExternalTopic+"/set", SceneRemovePayload{SceneRemove: *entry.ExternalIndex})
	a.store.AuxRemove(req.Target)
}

func (a *Adapter) handleEntertainmentStart(req resource.BackendRequest) {
	mapping, lights, err := entertainment.BuildZigbeeMapping(a.store, req.Target)
	if err != nil {
		a.logger.Warn().Err(err).Msg("build zigbee entertainment mapping")
		return
	}
	sess := &entertainment.Session{
		ConfigLink: req.Target,
		Lights:     lights,
		Throttle:   entertainment.NewThrottle(a.cfg.GetStreamingFPS()),
		Counter:    &a.counter,
		Zigbee:     mapping,
	}
	a.sessionMu.Lock()
	a.sessions[req.Target] = sess
	a.sessionMu.Unlock()
}

func (a *Adapter) handleEntertainmentFrame(conn *websocket.Conn, req resource.BackendRequest) {
	a.sessionMu.Lock()
	sess := a.sessions[req.Target]
	a.sessionMu.Unlock()
	if sess == nil || !sess.Throttle.Allow() {
		return
	}
	records := entertainment.BuildZigbeeRecordsFromChannels(sess.Zigbee, req.EntertainmentFrame)
	if len(records) == 0 {
		return
	}
	frame := entertainment.EncodeZigbeeFrame(sess.NextCounter(), uint16(0), records)
	for _, light := range sess.Lights {
		if topic, ok := a.topicFor(light); ok {
			a.sendRaw(conn, topic+"/set/zigbee_entertainment", frame)
		}
	}
}

func (a *Adapter) handleEntertainmentStop(req resource.BackendRequest) {
	a.sessionMu.Lock()
	delete(a.sessions, req.Target)
	a.sessionMu.Unlock()
}

package wled

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nilclass/huebridge/internal/backend"
	"github.com/nilclass/huebridge/internal/config"
	"github.com/nilclass/huebridge/internal/entertainment"
	"github.com/nilclass/huebridge/internal/resource"
)

// ddpPort is the fixed UDP port WLED listens for Distributed Display
// Protocol frames on.
const ddpPort = 4048

// Adapter owns one WLED controller: one synthetic Room, one Light per
// segment, and (when streaming) one DDP UDP session per entertainment
// configuration (spec.md §4.5).
type Adapter struct {
	name   string
	cfg    config.WLEDServerConfig
	store  *resource.Store
	logger zerolog.Logger

	state atomic.Int32

	deviceLink resource.Link
	roomLink   resource.Link

	sessionMu sync.Mutex
	sessions  map[resource.Link]*entertainment.Session
	seq       entertainment.DDPSequencer
	ddpConn   net.Conn
}

// New creates an Adapter for one configured WLED controller.
func New(name string, cfg config.WLEDServerConfig, store *resource.Store, logger zerolog.Logger) *Adapter {
	return &Adapter{
		name:     name,
		cfg:      cfg,
		store:    store,
		logger:   logger.With().Str("backend", "wled").Str("server", name).Logger(),
		sessions: make(map[resource.Link]*entertainment.Session),
	}
}

func (a *Adapter) Name() string { return "wled:" + a.name }

func (a *Adapter) State() backend.State { return backend.State(a.state.Load()) }

func (a *Adapter) setState(s backend.State) { a.state.Store(int32(s)) }

func (a *Adapter) Run(ctx context.Context) {
	for ctx.Err() == nil {
		a.setState(backend.StateConnecting)
		if err := a.runOnce(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("wled connection ended")
		}
		a.setState(backend.StateDisconnected)
		if !backend.Sleep(ctx, backend.ReconnectBackoff) {
			return
		}
	}
}

func (a *Adapter) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", a.cfg.URL, err)
	}
	defer conn.Close()

	if err := a.ensureDDP(); err != nil {
		a.logger.Warn().Err(err).Msg("open ddp socket")
	}

	a.setState(backend.StateRunning)
	a.logger.Info().Msg("connected")

	backendSub := a.store.BackendEventStream()
	defer backendSub.Unsubscribe()

	readErr := make(chan error, 1)
	inbound := make(chan Message, 8)
	go a.readLoop(conn, inbound, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case msg := <-inbound:
			a.handleMessage(msg)
		case evt, ok := <-backendSub.C():
			if !ok {
				return nil
			}
			a.handleBackendRequest(conn, evt.Value)
		}
	}
}

func (a *Adapter) readLoop(conn *websocket.Conn, out chan<- Message, errc chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errc <- err
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			a.logger.Debug().Err(err).Msg("dropping unparseable wled message")
			continue
		}
		out <- msg
	}
}

func (a *Adapter) send(conn *websocket.Conn, update StateUpdate) {
	body, err := json.Marshal(update)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		a.logger.Warn().Err(err).Msg("write wled message")
	}
}

func (a *Adapter) ensureDDP() error {
	if a.ddpConn != nil {
		return nil
	}
	host, err := urlHost(a.cfg.URL)
	if err != nil {
		return err
	}
	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d", host, ddpPort))
	if err != nil {
		return err
	}
	a.ddpConn = conn
	return nil
}

func urlHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("no host in %q", raw)
	}
	return u.Hostname(), nil
}

// --- inbound ---

func (a *Adapter) handleMessage(msg Message) {
	if msg.Info != nil {
		a.ensureRoom(*msg.Info)
	}
	if msg.State != nil {
		a.syncSegments(*msg.State)
	}
}

func (a *Adapter) ensureRoom(info Info) {
	a.deviceLink = resource.DerivedLink(resource.RTypeDevice, []byte(a.name), []byte(info.MAC))
	a.roomLink = resource.DerivedLink(resource.RTypeRoom, []byte(a.name), []byte(info.MAC))
	groupedLink := resource.DerivedLinkFrom(resource.RTypeGroupedLight, a.roomLink)

	a.store.AuxSet(a.deviceLink, resource.AuxEntry{ExternalTopic: a.name})
	a.store.AuxSet(a.roomLink, resource.AuxEntry{ExternalTopic: a.name})

	if a.store.Has(a.roomLink) {
		return
	}
	_ = a.store.Add(a.roomLink, resource.Room{
		Metadata: resource.Metadata{Name: info.Name, Archetype: "wled_controller"},
		Children: []resource.Link{a.deviceLink},
		Services: []resource.Link{groupedLink},
	})
	_ = a.store.Add(groupedLink, resource.GroupedLight{Owner_: a.roomLink})
	_ = a.store.Add(a.deviceLink, resource.Device{
		ProductData: resource.ProductData{
			ModelID:          a.cfg.URL,
			ManufacturerName: info.Brand,
			ProductName:      info.Product,
			ProductArchetype: "hue_lightstrip",
		},
		Metadata: resource.Metadata{Name: info.Name, Archetype: "hue_lightstrip"},
	})
}

func (a *Adapter) segmentLight(id int) resource.Link {
	return resource.DerivedLinkIndexed(resource.RTypeLight, a.name, uint64(id))
}

func (a *Adapter) segmentEntertainment(id int) resource.Link {
	return resource.DerivedLinkIndexed(resource.RTypeEntertainment, a.name, uint64(id))
}

func (a *Adapter) syncSegments(state State) {
	if a.roomLink.IsZero() {
		return
	}
	for _, seg := range state.Seg {
		lightLink := a.segmentLight(seg.ID)
		entLink := a.segmentEntertainment(seg.ID)
		idx := seg.ID
		a.store.AuxSet(lightLink, resource.AuxEntry{ExternalTopic: a.name, ExternalIndex: &idx})

		if !a.store.Has(lightLink) {
			_ = a.store.Add(lightLink, resource.Light{
				Owner_:   a.deviceLink,
				Metadata: resource.Metadata{Name: fmt.Sprintf("%s segment %d", a.name, seg.ID), Archetype: "hue_lightstrip"},
				Mode:     resource.LightModeNormal,
			})
			_ = a.store.Add(entLink, resource.Entertainment{
				Owner_:   a.deviceLink,
				Segments: []resource.EntertainmentSegment{{Start: seg.ID, Length: 1}},
			})
		}
		light, err := resource.Get[resource.Light](a.store, lightLink)
		if err != nil {
			continue
		}
		if light.Mode == resource.LightModeStreaming {
			continue
		}
		updated := ApplyState(light, seg)
		_, _ = a.store.UpdateLight(lightLink, updated)
	}
}

// --- outbound ---

func (a *Adapter) handleBackendRequest(conn *websocket.Conn, req resource.BackendRequest) {
	switch req.Kind {
	case resource.BackendRequestLightUpdate:
		a.handleLightUpdate(conn, req)
	case resource.BackendRequestGroupedLightUpdate:
		a.handleGroupedLightUpdate(conn, req)
	case resource.BackendRequestEntertainmentStart:
		a.handleEntertainmentStart(req)
	case resource.BackendRequestEntertainmentFrame:
		a.handleEntertainmentFrame(req)
	case resource.BackendRequestEntertainmentStop:
		a.handleEntertainmentStop(req)
	}
}

func (a *Adapter) handleLightUpdate(conn *websocket.Conn, req resource.BackendRequest) {
	if req.LightUpdate == nil {
		return
	}
	entry, ok := a.store.AuxGet(req.Target)
	if !ok || entry.ExternalIndex == nil {
		return
	}
	a.send(conn, StateUpdate{Seg: []SegUpdate{BuildSegUpdate(*entry.ExternalIndex, *req.LightUpdate)}})
}

func (a *Adapter) handleGroupedLightUpdate(conn *websocket.Conn, req resource.BackendRequest) {
	if req.GroupedLightUpdate == nil {
		return
	}
	if req.GroupedLightUpdate.On != nil {
		on := req.GroupedLightUpdate.On.On
		a.send(conn, StateUpdate{On: &on})
	}
}

// handleEntertainmentStart resolves each entertainment channel's member
// lights to the segment index they were registered under. Unlike the
// Zigbee back-end, WLED lights carry no ZigbeeConnectivity service, so
// the channel members are walked directly off the EntertainmentConfiguration
// instead of going through entertainment.BuildZigbeeMapping.
func (a *Adapter) handleEntertainmentStart(req resource.BackendRequest) {
	cfg, err := resource.Get[resource.EntertainmentConfiguration](a.store, req.Target)
	if err != nil {
		a.logger.Warn().Err(err).Msg("resolve entertainment configuration")
		return
	}
	mapping := entertainment.DDPMapping{}
	var lights []resource.Link
	for _, ch := range cfg.Channels {
		for _, m := range ch.Members {
			entry, ok := a.store.AuxGet(m.Light)
			if !ok || entry.ExternalIndex == nil {
				continue
			}
			mapping[ch.ChannelID] = *entry.ExternalIndex
			lights = append(lights, m.Light)
		}
	}
	sess := &entertainment.Session{
		ConfigLink: req.Target,
		Lights:     lights,
		Throttle:   entertainment.NewThrottle(a.cfg.GetStreamingFPS()),
		DDP:        mapping,
	}
	a.sessionMu.Lock()
	a.sessions[req.Target] = sess
	a.sessionMu.Unlock()
}

func (a *Adapter) handleEntertainmentFrame(req resource.BackendRequest) {
	a.sessionMu.Lock()
	sess := a.sessions[req.Target]
	a.sessionMu.Unlock()
	if sess == nil || a.ddpConn == nil || !sess.Throttle.Allow() {
		return
	}
	frames := entertainment.BuildDDPFramesFromChannels(sess.DDP, req.EntertainmentFrame)
	if len(frames) == 0 {
		return
	}
	maxSegment := 0
	for segment := range frames {
		if segment > maxSegment {
			maxSegment = segment
		}
	}
	rgb := make([][3]byte, maxSegment+1)
	for segment, c := range frames {
		rgb[segment] = c
	}
	seq := a.seq.Next()
	datagram := entertainment.EncodeDDPFrame(seq, 0, rgb)
	_, _ = a.ddpConn.Write(datagram)
}

func (a *Adapter) handleEntertainmentStop(req resource.BackendRequest) {
	a.sessionMu.Lock()
	delete(a.sessions, req.Target)
	a.sessionMu.Unlock()
}

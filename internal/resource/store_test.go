package resource

import (
	"reflect"
	"testing"
)

func drainHue(t *testing.T, sub *Subscription[HueEvent]) HueEvent {
	t.Helper()
	select {
	case env := <-sub.C():
		if env.Lagged {
			t.Fatalf("unexpected lagged envelope")
		}
		return env.Value
	default:
		t.Fatalf("expected a hue event, got none")
	}
	return HueEvent{}
}

func assertNoHue(t *testing.T, sub *Subscription[HueEvent]) {
	t.Helper()
	select {
	case env := <-sub.C():
		t.Fatalf("expected no event, got %+v", env)
	default:
	}
}

func newTestRoom() (*Store, Link) {
	s := NewStore(8)
	roomLink := DerivedLink(RTypeRoom, []byte("living-room"))
	_ = s.Add(roomLink, Room{Metadata: Metadata{Name: "Living Room", Archetype: "living_room"}})
	glLink := DerivedLinkFrom(RTypeGroupedLight, roomLink)
	_ = s.Add(glLink, GroupedLight{Owner_: roomLink})
	return s, roomLink
}

// P2: a + (b-a) == b, and a + (a-a) == a.
func TestDiffRoundTrip(t *testing.T) {
	a := Light{
		Metadata: Metadata{Name: "Lamp", Archetype: "sultan_bulb"},
		On:       On{On: true},
		Dimming:  &Dimming{Brightness: 50},
	}
	b := Light{
		Metadata:         Metadata{Name: "Lamp", Archetype: "sultan_bulb"},
		On:               On{On: false},
		ColorTemperature: &ColorTemperature{Mirek: 366},
	}

	u := DiffLight(a, b)
	got := a
	got.Apply(u)
	if got.On != b.On || got.ColorTemperature == nil || *got.ColorTemperature != *b.ColorTemperature || got.Dimming != nil {
		t.Fatalf("a + (b-a) != b: got %+v want %+v", got, b)
	}

	noop := DiffLight(a, a)
	if !noop.IsEmpty() {
		t.Fatalf("diff of equal values should be empty, got %+v", noop)
	}
	got2 := a
	got2.Apply(noop)
	if !reflect.DeepEqual(got2, a) {
		t.Fatalf("a + (a-a) != a: got %+v want %+v", got2, a)
	}
}

// P3: exactly one event per successful add/update/delete, zero for no-ops.
func TestEventCompleteness(t *testing.T) {
	s := NewStore(8)
	sub := s.HueEventStream()

	light := DerivedLink(RTypeLight, []byte("lamp-1"))
	if err := s.Add(light, Light{On: On{On: false}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	ev := drainHue(t, sub)
	if ev.Kind != EventAdd || ev.Link != light {
		t.Fatalf("unexpected add event: %+v", ev)
	}
	assertNoHue(t, sub)

	u, err := s.UpdateLight(light, Light{On: On{On: true}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if u.IsEmpty() {
		t.Fatalf("expected non-empty update")
	}
	ev = drainHue(t, sub)
	if ev.Kind != EventUpdate || ev.Link != light {
		t.Fatalf("unexpected update event: %+v", ev)
	}
	assertNoHue(t, sub)

	// no-op update: same value back in.
	if _, err := s.UpdateLight(light, Light{On: On{On: true}}); err != nil {
		t.Fatalf("no-op update: %v", err)
	}
	assertNoHue(t, sub)

	if err := s.Delete(light); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ev = drainHue(t, sub)
	if ev.Kind != EventDelete || ev.Link != light {
		t.Fatalf("unexpected delete event: %+v", ev)
	}
	assertNoHue(t, sub)
}

// P4: link closure — deleting a light prunes dangling references from
// scenes and entertainment configurations.
func TestLinkClosureOnDelete(t *testing.T) {
	s, room := newTestRoom()
	light := DerivedLink(RTypeLight, []byte("lamp-2"))
	if err := s.Add(light, Light{Owner_: DerivedLink(RTypeDevice, []byte("dev-2"))}); err != nil {
		t.Fatalf("add light: %v", err)
	}

	scene := DerivedLink(RTypeScene, []byte("scene-1"))
	onTrue := On{On: true}
	if err := s.Add(scene, Scene{
		Group: room,
		Actions: []SceneAction{
			{Target: light, Action: SceneActionPartial{On: &onTrue}},
		},
	}); err != nil {
		t.Fatalf("add scene: %v", err)
	}

	entConf := DerivedLink(RTypeEntertainmentConfiguration, []byte("ent-1"))
	if err := s.Add(entConf, EntertainmentConfiguration{
		Channels: []EntertainmentChannel{
			{ChannelID: 0, Members: []EntertainmentChannelMember{{Light: light, SegmentIndex: 0}}},
		},
	}); err != nil {
		t.Fatalf("add entertainment config: %v", err)
	}

	if err := s.Delete(light); err != nil {
		t.Fatalf("delete light: %v", err)
	}

	gotScene, err := Get[Scene](s, scene)
	if err != nil {
		t.Fatalf("get scene: %v", err)
	}
	if len(gotScene.Actions) != 0 {
		t.Fatalf("expected dangling scene action pruned, got %+v", gotScene.Actions)
	}

	gotEnt, err := Get[EntertainmentConfiguration](s, entConf)
	if err != nil {
		t.Fatalf("get entertainment config: %v", err)
	}
	for _, ch := range gotEnt.Channels {
		for _, m := range ch.Members {
			if m.Light == light {
				t.Fatalf("expected dangling channel member pruned, got %+v", ch)
			}
		}
	}
}

// P4: deleting a Device cascades to its services and to the Room that
// references it.
func TestLinkClosureOnDeviceDelete(t *testing.T) {
	s, room := newTestRoom()

	device := DerivedLink(RTypeDevice, []byte("dev-3"))
	light := DerivedLinkFrom(RTypeLight, device)
	if err := s.Add(light, Light{Owner_: device}); err != nil {
		t.Fatalf("add light: %v", err)
	}
	if err := s.Add(device, Device{Services: []Link{light}}); err != nil {
		t.Fatalf("add device: %v", err)
	}

	r, err := Get[Room](s, room)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	r.Children = append(r.Children, device)
	if _, err := s.UpdateRoom(room, r); err != nil {
		t.Fatalf("update room: %v", err)
	}

	if err := s.Delete(device); err != nil {
		t.Fatalf("delete device: %v", err)
	}
	if s.Has(light) {
		t.Fatalf("expected light to be cascade-deleted with its owning device")
	}
	r2, err := Get[Room](s, room)
	if err != nil {
		t.Fatalf("get room after device delete: %v", err)
	}
	for _, c := range r2.Children {
		if c == device {
			t.Fatalf("expected room to no longer reference deleted device")
		}
	}
}

// P6: streaming state never survives a reset.
func TestStreamingReset(t *testing.T) {
	s := NewStore(8)
	light := DerivedLink(RTypeLight, []byte("lamp-3"))
	_ = s.Add(light, Light{Mode: LightModeStreaming})
	entConf := DerivedLink(RTypeEntertainmentConfiguration, []byte("ent-2"))
	_ = s.Add(entConf, EntertainmentConfiguration{Streaming: true})

	s.ResetStreamingState()

	l, err := Get[Light](s, light)
	if err != nil {
		t.Fatalf("get light: %v", err)
	}
	if l.Mode != LightModeNormal {
		t.Fatalf("expected light mode reset to normal, got %v", l.Mode)
	}
	e, err := Get[EntertainmentConfiguration](s, entConf)
	if err != nil {
		t.Fatalf("get entertainment config: %v", err)
	}
	if e.Streaming {
		t.Fatalf("expected entertainment streaming flag reset to false")
	}
}

// Scenario 1: turning a light on and off round-trips through the store and
// emits exactly the expected events.
func TestScenarioLightOnOff(t *testing.T) {
	s := NewStore(8)
	sub := s.HueEventStream()

	light := DerivedLink(RTypeLight, []byte("lamp-4"))
	_ = s.Add(light, Light{On: On{On: false}})
	drainHue(t, sub)

	if _, err := s.UpdateLight(light, Light{On: On{On: true}}); err != nil {
		t.Fatalf("turn on: %v", err)
	}
	ev := drainHue(t, sub)
	u, ok := ev.Data.(LightUpdate)
	if !ok || u.On == nil || !u.On.On {
		t.Fatalf("expected on=true update, got %+v", ev.Data)
	}

	if _, err := s.UpdateLight(light, Light{On: On{On: false}}); err != nil {
		t.Fatalf("turn off: %v", err)
	}
	ev = drainHue(t, sub)
	u, ok = ev.Data.(LightUpdate)
	if !ok || u.On == nil || u.On.On {
		t.Fatalf("expected on=false update, got %+v", ev.Data)
	}

	got, err := Get[Light](s, light)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.On.On {
		t.Fatalf("expected final state off")
	}
}

// Scenario 2: recalling a scene applies each action's partial state to its
// target light and marks the scene active.
func TestScenarioSceneRecall(t *testing.T) {
	s, room := newTestRoom()

	device := DerivedLink(RTypeDevice, []byte("dev-5"))
	light := DerivedLinkFrom(RTypeLight, device)
	_ = s.Add(light, Light{Owner_: device, On: On{On: false}})

	onTrue := On{On: true}
	dimming := Dimming{Brightness: 80}
	scene := DerivedLink(RTypeScene, []byte("scene-2"))
	_ = s.Add(scene, Scene{
		Group: room,
		Actions: []SceneAction{
			{Target: light, Action: SceneActionPartial{On: &onTrue, Dimming: &dimming}},
		},
		Status: SceneStatus{Active: SceneActiveInactive},
	})

	sc, err := Get[Scene](s, scene)
	if err != nil {
		t.Fatalf("get scene: %v", err)
	}
	for _, action := range sc.Actions {
		l, err := Get[Light](s, action.Target)
		if err != nil {
			t.Fatalf("get target light: %v", err)
		}
		if action.Action.On != nil {
			l.On = *action.Action.On
		}
		if action.Action.Dimming != nil {
			l.Dimming = action.Action.Dimming
		}
		if _, err := s.UpdateLight(action.Target, l); err != nil {
			t.Fatalf("apply scene action: %v", err)
		}
	}
	now := int64(1000)
	sc.Status = SceneStatus{Active: SceneActiveStatic, LastRecall: &now}
	if _, err := s.UpdateScene(scene, sc); err != nil {
		t.Fatalf("mark scene active: %v", err)
	}

	got, err := Get[Light](s, light)
	if err != nil {
		t.Fatalf("get light: %v", err)
	}
	if !got.On.On || got.Dimming == nil || got.Dimming.Brightness != 80 {
		t.Fatalf("expected scene action applied, got %+v", got)
	}

	gotScene, err := Get[Scene](s, scene)
	if err != nil {
		t.Fatalf("get scene: %v", err)
	}
	if gotScene.Status.Active != SceneActiveStatic || gotScene.Status.LastRecall == nil {
		t.Fatalf("expected scene marked active with last_recall, got %+v", gotScene.Status)
	}
}

func TestAuxTable(t *testing.T) {
	s := NewStore(8)
	light := DerivedLink(RTypeLight, []byte("lamp-6"))
	idx := 2
	s.AuxSet(light, AuxEntry{ExternalTopic: "bedroom/lamp", ExternalIndex: &idx})

	got, ok := s.AuxGet(light)
	if !ok || got.ExternalTopic != "bedroom/lamp" || got.ExternalIndex == nil || *got.ExternalIndex != 2 {
		t.Fatalf("unexpected aux entry: %+v", got)
	}

	found, ok := s.AuxFindByTopic("bedroom/lamp", &idx)
	if !ok || found != light {
		t.Fatalf("expected reverse lookup to find %v, got %v ok=%v", light, found, ok)
	}

	s.AuxRemove(light)
	if _, ok := s.AuxGet(light); ok {
		t.Fatalf("expected aux entry removed")
	}
}

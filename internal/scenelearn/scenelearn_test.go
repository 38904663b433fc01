package scenelearn

import (
	"testing"
	"time"

	"github.com/nilclass/huebridge/internal/resource"
)

func setupRoom(t *testing.T, store *resource.Store, roomSeed, sceneSeed string, lights ...string) (room, scene resource.Link, lightLinks []resource.Link) {
	t.Helper()
	room = resource.DerivedLink(resource.RTypeRoom, []byte(roomSeed))
	if err := store.Add(room, resource.Room{}); err != nil {
		t.Fatalf("add room: %v", err)
	}
	for _, seed := range lights {
		device := resource.DerivedLink(resource.RTypeDevice, []byte(seed+"-dev"))
		light := resource.DerivedLinkFrom(resource.RTypeLight, device)
		if err := store.Add(light, resource.Light{Owner_: device}); err != nil {
			t.Fatalf("add light: %v", err)
		}
		r, _ := resource.Get[resource.Room](store, room)
		r.Children = append(r.Children, device)
		if _, err := store.UpdateRoom(room, r); err != nil {
			t.Fatalf("update room children: %v", err)
		}
		lightLinks = append(lightLinks, light)
	}
	scene = resource.DerivedLink(resource.RTypeScene, []byte(sceneSeed))
	if err := store.Add(scene, resource.Scene{Group: room}); err != nil {
		t.Fatalf("add scene: %v", err)
	}
	return
}

// Scenario 2 from spec.md §8: two lights get partial updates within the
// window following a recall; both are learned.
func TestLearnerCommitsObservedActions(t *testing.T) {
	store := resource.NewStore(8)
	room, scene, lights := setupRoom(t, store, "room-1", "scene-1", "l1", "l2")

	learner := New(store, DefaultWindow, DefaultMaxPending)
	t0 := time.Unix(1000, 0)
	learner.now = func() time.Time { return t0 }
	learner.OnRecall(scene, room)

	on := resource.On{On: true}
	dimming := resource.Dimming{Brightness: 50}
	learner.OnLightUpdate(room, lights[0], resource.SceneActionPartial{On: &on, Dimming: &dimming}, t0.Add(500*time.Millisecond))

	color := resource.Color{XY: [2]float64{0.3, 0.3}}
	learner.OnLightUpdate(room, lights[1], resource.SceneActionPartial{On: &on, Color: &color}, t0.Add(700*time.Millisecond))

	learner.ExpireDue(t0.Add(DefaultWindow + time.Second))

	got, err := resource.Get[resource.Scene](store, scene)
	if err != nil {
		t.Fatalf("get scene: %v", err)
	}
	if len(got.Actions) != 2 {
		t.Fatalf("expected 2 learned actions, got %d: %+v", len(got.Actions), got.Actions)
	}
	seen := map[resource.Link]resource.SceneActionPartial{}
	for _, a := range got.Actions {
		seen[a.Target] = a.Action
	}
	if a, ok := seen[lights[0]]; !ok || a.Dimming == nil || a.Dimming.Brightness != 50 {
		t.Fatalf("expected light 0 learned with dimming, got %+v", seen)
	}
	if a, ok := seen[lights[1]]; !ok || a.Color == nil || a.Color.XY != color.XY {
		t.Fatalf("expected light 1 learned with color, got %+v", seen)
	}
}

// A light update arriving well before the recall began is ignored.
func TestLearnerIgnoresStaleUpdate(t *testing.T) {
	store := resource.NewStore(8)
	room, scene, lights := setupRoom(t, store, "room-2", "scene-2", "l1")

	learner := New(store, DefaultWindow, DefaultMaxPending)
	t0 := time.Unix(2000, 0)
	learner.now = func() time.Time { return t0 }
	learner.OnRecall(scene, room)

	on := resource.On{On: true}
	learner.OnLightUpdate(room, lights[0], resource.SceneActionPartial{On: &on}, t0.Add(-5*time.Second))

	learner.ExpireDue(t0.Add(DefaultWindow + time.Second))

	got, err := resource.Get[resource.Scene](store, scene)
	if err != nil {
		t.Fatalf("get scene: %v", err)
	}
	if len(got.Actions) != 0 {
		t.Fatalf("expected stale update ignored, got %+v", got.Actions)
	}
}

// Two overlapping recalls to the same room: the later evicts the earlier
// without committing it.
func TestLearnerOverlappingRecallEvictsEarlier(t *testing.T) {
	store := resource.NewStore(8)
	room, sceneA, lights := setupRoom(t, store, "room-3", "scene-a", "l1")
	sceneB := resource.DerivedLink(resource.RTypeScene, []byte("scene-b"))
	if err := store.Add(sceneB, resource.Scene{Group: room}); err != nil {
		t.Fatalf("add scene b: %v", err)
	}

	learner := New(store, DefaultWindow, DefaultMaxPending)
	t0 := time.Unix(3000, 0)
	learner.now = func() time.Time { return t0 }
	learner.OnRecall(sceneA, room)

	on := resource.On{On: true}
	learner.OnLightUpdate(room, lights[0], resource.SceneActionPartial{On: &on}, t0.Add(100*time.Millisecond))

	learner.now = func() time.Time { return t0.Add(200 * time.Millisecond) }
	learner.OnRecall(sceneB, room)

	dimming := resource.Dimming{Brightness: 10}
	learner.OnLightUpdate(room, lights[0], resource.SceneActionPartial{Dimming: &dimming}, t0.Add(300*time.Millisecond))

	learner.ExpireDue(t0.Add(5 * time.Second))

	gotA, err := resource.Get[resource.Scene](store, sceneA)
	if err != nil {
		t.Fatalf("get scene a: %v", err)
	}
	if len(gotA.Actions) != 0 {
		t.Fatalf("expected evicted scene a to never commit, got %+v", gotA.Actions)
	}
	gotB, err := resource.Get[resource.Scene](store, sceneB)
	if err != nil {
		t.Fatalf("get scene b: %v", err)
	}
	if len(gotB.Actions) != 1 || gotB.Actions[0].Action.Dimming == nil {
		t.Fatalf("expected scene b to learn the later action, got %+v", gotB.Actions)
	}
}

// A recall whose target scene is deleted before the deadline is dropped
// silently, without error.
func TestLearnerDropsDeletedSceneSilently(t *testing.T) {
	store := resource.NewStore(8)
	room, scene, lights := setupRoom(t, store, "room-4", "scene-4", "l1")

	learner := New(store, DefaultWindow, DefaultMaxPending)
	t0 := time.Unix(4000, 0)
	learner.now = func() time.Time { return t0 }
	learner.OnRecall(scene, room)

	on := resource.On{On: true}
	learner.OnLightUpdate(room, lights[0], resource.SceneActionPartial{On: &on}, t0.Add(100*time.Millisecond))

	if err := store.Delete(scene); err != nil {
		t.Fatalf("delete scene: %v", err)
	}

	learner.ExpireDue(t0.Add(DefaultWindow + time.Second))
	// no panic, no resurrected scene
	if store.Has(scene) {
		t.Fatalf("scene should remain deleted")
	}
}

// Learned actions reference only lights that belong to the recalled room
// (P7).
func TestLearnerDropsActionsOutsideRoom(t *testing.T) {
	store := resource.NewStore(8)
	room, scene, lights := setupRoom(t, store, "room-5", "scene-5", "l1")

	outsideDevice := resource.DerivedLink(resource.RTypeDevice, []byte("outside-dev"))
	outsideLight := resource.DerivedLinkFrom(resource.RTypeLight, outsideDevice)
	if err := store.Add(outsideLight, resource.Light{Owner_: outsideDevice}); err != nil {
		t.Fatalf("add outside light: %v", err)
	}

	learner := New(store, DefaultWindow, DefaultMaxPending)
	t0 := time.Unix(5000, 0)
	learner.now = func() time.Time { return t0 }
	learner.OnRecall(scene, room)

	on := resource.On{On: true}
	learner.OnLightUpdate(room, lights[0], resource.SceneActionPartial{On: &on}, t0.Add(100*time.Millisecond))
	// a stray update claiming membership in room for a light that isn't
	// actually a member; the learner must still reject it by checking
	// room membership at commit time.
	learner.OnLightUpdate(room, outsideLight, resource.SceneActionPartial{On: &on}, t0.Add(100*time.Millisecond))

	learner.ExpireDue(t0.Add(DefaultWindow + time.Second))

	got, err := resource.Get[resource.Scene](store, scene)
	if err != nil {
		t.Fatalf("get scene: %v", err)
	}
	for _, a := range got.Actions {
		if a.Target == outsideLight {
			t.Fatalf("expected outside light excluded from learned actions")
		}
	}
}

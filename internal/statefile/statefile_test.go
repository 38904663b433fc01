package statefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nilclass/huebridge/internal/resource"
)

// Scenario 6: a v0 state file is renamed aside and a current-version
// document is written in its place.
func TestLoad_MigratesV0(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")

	v0 := "auth_tokens:\n  devuser: devtoken\nresource_graph:\n  somekey:\n    foo: bar\n"
	if err := os.WriteFile(path, []byte(v0), 0o600); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Version != CurrentVersion {
		t.Fatalf("expected version %d, got %d", CurrentVersion, doc.Version)
	}
	if doc.AuthTokens["devuser"] != "devtoken" {
		t.Fatalf("auth tokens not carried forward: %+v", doc.AuthTokens)
	}

	if _, err := os.Stat(path + ".v0.bak"); err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected original path removed, got err=%v", err)
	}

	if err := Save(path, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Version != CurrentVersion {
		t.Fatalf("reloaded version = %d", reloaded.Version)
	}
}

func TestLoad_MissingFileIsEmptyDocument(t *testing.T) {
	dir := t.TempDir()
	doc, err := Load(filepath.Join(dir, "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Version != CurrentVersion {
		t.Fatalf("expected fresh document at current version")
	}
}

// Round-trips a populated store's resource graph through a snapshot,
// save, load, and restore — ids are preserved (isomorphic graph).
func TestSnapshotRoundTrip(t *testing.T) {
	store := resource.NewStore(16)

	home := resource.Link{Type: resource.RTypeBridgeHome}
	if err := store.Add(home, resource.BridgeHome{}); err != nil {
		t.Fatal(err)
	}
	device := resource.DerivedLink(resource.RTypeDevice, []byte("11:22:33:44:55:66:77:88"))
	light := resource.DerivedLinkFrom(resource.RTypeLight, device)
	if err := store.Add(device, resource.Device{Metadata: resource.Metadata{Name: "Lamp"}, Services: []resource.Link{light}}); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(light, resource.Light{Owner_: device, On: resource.On{On: true}}); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")

	doc, err := FromStore(store, map[string]string{"u": "t"})
	if err != nil {
		t.Fatalf("FromStore: %v", err)
	}
	if err := Save(path, doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	restored := resource.NewStore(16)
	if err := RestoreInto(restored, loaded); err != nil {
		t.Fatalf("RestoreInto: %v", err)
	}

	got, err := resource.Get[resource.Light](restored, light)
	if err != nil {
		t.Fatalf("restored light missing: %v", err)
	}
	if !got.On.On {
		t.Fatalf("restored light lost state: %+v", got)
	}
	if !restored.Has(device) {
		t.Fatalf("restored device missing")
	}
}

package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root string, manifest Manifest) string {
	t.Helper()
	dir := filepath.Join(root, manifest.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "plugin.json"), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return dir
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, Manifest{
		Name:        "chime",
		Version:     "1.0.0",
		Description: "Plays a sound per side",
		Executable:  "chime",
		Actions:     []string{ActionCollision},
	})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}
	plugin := plugins[0]
	if plugin.Manifest.Name != "chime" {
		t.Errorf("expected plugin name 'chime', got %q", plugin.Manifest.Name)
	}
	if plugin.Path != dir {
		t.Errorf("expected path %q, got %q", dir, plugin.Path)
	}
	if plugin.Executable != filepath.Join(dir, "chime") {
		t.Errorf("unexpected executable %q", plugin.Executable)
	}
	if !plugin.Supports(ActionCollision) {
		t.Error("expected plugin to support collision")
	}
	if plugin.Supports("rally") {
		t.Error("plugin should not support rally")
	}
}

func TestManager_ListSortedAndForAction(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Manifest{Name: "zeta", Executable: "z", Actions: []string{ActionCollision}})
	writeManifest(t, root, Manifest{Name: "alpha", Executable: "a", Actions: []string{ActionCollision}})
	writeManifest(t, root, Manifest{Name: "logger", Executable: "l", Actions: []string{"rally"}})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	var names []string
	for _, p := range manager.List() {
		names = append(names, p.Manifest.Name)
	}
	if len(names) != 3 || names[0] != "alpha" || names[1] != "logger" || names[2] != "zeta" {
		t.Errorf("expected sorted names, got %v", names)
	}

	hits := manager.ForAction(ActionCollision)
	if len(hits) != 2 || hits[0].Manifest.Name != "alpha" || hits[1].Manifest.Name != "zeta" {
		t.Errorf("unexpected collision plugins: %v", hits)
	}
	if got := manager.ForAction("unknown"); len(got) != 0 {
		t.Errorf("expected no plugins, got %d", len(got))
	}
}

func TestManager_Discover_SkipsBadManifests(t *testing.T) {
	root := t.TempDir()

	bad := filepath.Join(root, "broken")
	if err := os.MkdirAll(bad, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bad, "plugin.json"), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	writeManifest(t, root, Manifest{Name: "noexec", Actions: []string{ActionCollision}})
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Errorf("expected 0 plugins, got %d", n)
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "missing"))
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on missing dir: %v", err)
	}
	if n := len(manager.List()); n != 0 {
		t.Errorf("expected 0 plugins, got %d", n)
	}
}

func TestManager_Get(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Manifest{Name: "chime", Executable: "chime", Actions: []string{ActionCollision}})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugin, err := manager.Get("chime")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if plugin.Manifest.Name != "chime" {
		t.Errorf("expected chime, got %q", plugin.Manifest.Name)
	}

	if _, err := manager.Get("missing"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_Rediscover(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, Manifest{Name: "chime", Executable: "chime", Actions: []string{ActionCollision}})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if n := len(manager.List()); n != 0 {
		t.Errorf("expected removed plugin to disappear, got %d", n)
	}
	if manager.PluginDir() != root {
		t.Errorf("expected plugin dir %q, got %q", root, manager.PluginDir())
	}
}

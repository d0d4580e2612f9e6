package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatal(err)
	}
	return abs
}

func TestWatcher_Affected(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.toml"), "")
	b := writeFile(t, filepath.Join(dir, "b.yaml"), "")
	cfg := writeFile(t, filepath.Join(dir, "capres.toml"), "")
	other := writeFile(t, filepath.Join(dir, "notes.txt"), "")

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	for _, f := range []string{b, a, a} {
		if err := w.Add(f); err != nil {
			t.Fatalf("Add(%s): %v", f, err)
		}
	}
	if err := w.AddShared(cfg); err != nil {
		t.Fatalf("AddShared: %v", err)
	}

	if diff := cmp.Diff([]string{a, b}, w.WatchedFiles()); diff != "" {
		t.Errorf("WatchedFiles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{a}, w.Affected(a)); diff != "" {
		t.Errorf("Affected(a) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{a, b}, w.Affected(cfg)); diff != "" {
		t.Errorf("Affected(config) mismatch (-want +got):\n%s", diff)
	}
	if got := w.Affected(other); got != nil {
		t.Errorf("Affected(other) = %v, want nil", got)
	}
}

func TestWatcher_Events(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.toml"), "")

	w, err := NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	if err := w.Add(a); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(dir, "unrelated.txt"), "x")
	writeFile(t, a, "name = \"changed\"\n")

	select {
	case ev := <-w.Events:
		if ev.File != a {
			t.Errorf("event file = %s, want %s", ev.File, a)
		}
		if diff := cmp.Diff([]string{a}, ev.Affected); diff != "" {
			t.Errorf("affected mismatch (-want +got):\n%s", diff)
		}
	case err := <-w.Errors:
		t.Fatalf("watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change event")
	}
}

func TestWatcher_AddMissingDir(t *testing.T) {
	w, err := NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Add(filepath.Join(t.TempDir(), "missing", "a.toml")); err == nil {
		t.Error("expected error watching a file in a missing directory")
	}
}

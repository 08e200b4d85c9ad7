package live

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func writeSketch(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "sketch.py")
	if err := os.WriteFile(path, []byte("size(512, 512)\n"), 0o644); err != nil {
		t.Fatalf("writing sketch: %v", err)
	}
	return path
}

func TestWatchEmitsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeSketch(t, dir)

	w, err := Watch(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("size(1024, 768)\n"), 0o644); err != nil {
		t.Fatalf("rewriting sketch: %v", err)
	}

	select {
	case <-w.Events:
	case <-time.After(5 * time.Second):
		t.Fatal("no event after sketch write")
	}
}

func TestWatchIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeSketch(t, dir)

	w, err := Watch(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer w.Close()

	other := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(other, []byte("scratch\n"), 0o644); err != nil {
		t.Fatalf("writing sibling: %v", err)
	}

	select {
	case <-w.Events:
		t.Fatal("sibling file change should not emit an event")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatchDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := writeSketch(t, dir)

	w, err := Watch(path, 200*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer w.Close()

	// Editors fire several writes in quick succession on save.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("size(512, 512)\n"), 0o644); err != nil {
			t.Fatalf("rewriting sketch: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-w.Events:
	case <-time.After(5 * time.Second):
		t.Fatal("no event after burst")
	}

	// The burst should have collapsed into a single tick.
	select {
	case <-w.Events:
		t.Fatal("burst produced more than one event")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatchMissingDirectory(t *testing.T) {
	if _, err := Watch("/nonexistent/dir/sketch.py", 0, nil); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestWatchCloseClosesEvents(t *testing.T) {
	dir := t.TempDir()
	path := writeSketch(t, dir)

	w, err := Watch(path, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	select {
	case _, ok := <-w.Events:
		if ok {
			t.Error("expected Events to be closed without a value")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Events not closed after Close")
	}
}

func TestRelevant(t *testing.T) {
	w := &Watcher{path: "/tmp/sketch.py"}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write to sketch", fsnotify.Event{Name: "/tmp/sketch.py", Op: fsnotify.Write}, true},
		{"atomic replace", fsnotify.Event{Name: "/tmp/sketch.py", Op: fsnotify.Create}, true},
		{"rename", fsnotify.Event{Name: "/tmp/sketch.py", Op: fsnotify.Rename}, true},
		{"chmod only", fsnotify.Event{Name: "/tmp/sketch.py", Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: "/tmp/sketch.py", Op: fsnotify.Remove}, false},
		{"other file", fsnotify.Event{Name: "/tmp/other.py", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

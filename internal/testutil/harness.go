// Package testutil provides shared helpers for launcher tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Harness sets up an isolated scratch environment: a sketch file, a history
// database path, and a config file wired to them.
type Harness struct {
	T *testing.T

	// Dir is the scratch directory everything lives in.
	Dir string
	// SketchPath is a minimal valid sketch.
	SketchPath string
	// DBPath is the session history database.
	DBPath string
	// ConfigPath is a config file pointing history at DBPath.
	ConfigPath string
}

// NewHarness creates a fresh harness rooted in a temp directory.
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{T: t, Dir: t.TempDir()}
	h.DBPath = filepath.Join(h.Dir, "history.db")
	h.SketchPath = h.WriteSketch("sketch.py", "size(512, 512)\nrect(10, 10, 100, 100)\n")
	h.ConfigPath = h.WriteConfig(fmt.Sprintf("history_db = %q\ncolor = false\n", h.DBPath))
	return h
}

// WriteSketch writes a sketch file into the scratch dir and returns its path.
func (h *Harness) WriteSketch(name, content string) string {
	h.T.Helper()
	path := filepath.Join(h.Dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.T.Fatalf("writing sketch %s: %v", name, err)
	}
	return path
}

// WriteConfig writes a config file into the scratch dir and returns its path.
func (h *Harness) WriteConfig(content string) string {
	h.T.Helper()
	path := filepath.Join(h.Dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.T.Fatalf("writing config: %v", err)
	}
	return path
}

// WriteFakeConsole writes a shell script that stands in for console.py and
// returns its path. Tests point EASEL_CONSOLE at it and use /bin/sh as the
// "python" interpreter; the script receives the JSON payload as $1.
func (h *Harness) WriteFakeConsole(body string) string {
	h.T.Helper()
	path := filepath.Join(h.Dir, "console.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		h.T.Fatalf("writing fake console: %v", err)
	}
	return path
}

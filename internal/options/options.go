// Package options defines the parsed invocation record for a sketch run
// and the validation rules applied before the interpreter is spawned.
package options

import (
	"encoding/json"
	"strings"
)

// Run modes reported in session history and diagnostics.
const (
	ModeWindowed = "windowed"
	ModeExport   = "export"
	ModeLive     = "live"
)

// Defaults applied when neither a flag nor a config entry sets the value.
const (
	DefaultFPS         = 30.0
	DefaultRate        = 1.0
	DefaultMovieFrames = 150
)

// Options is the flat record of one launcher invocation. It is built from
// CLI flags merged with config-file defaults, validated once, and then
// serialized to JSON for the interpreter.
type Options struct {
	// Script is the absolute path to the sketch file.
	Script string
	// ScriptArgs are pass-through arguments delivered to the sketch untouched.
	ScriptArgs []string
	// Fullscreen requests a fullscreen viewer window.
	Fullscreen bool
	// Console runs the sketch without activating the GUI (background mode).
	Console bool
	// Live re-runs the sketch whenever its file changes.
	Live bool
	// VirtualEnv is an optional python virtualenv to run inside.
	VirtualEnv string
	// Export is the output file path; empty means a windowed run.
	Export string
	// FirstFrame and LastFrame bound the exported frame range (1-based,
	// inclusive). Both zero means "unset".
	FirstFrame int
	LastFrame  int
	// FPS is the frame rate for animated exports.
	FPS float64
	// Rate is the video bitrate in megabits per second.
	Rate float64
	// Loop is the playback loop count for gif and mov exports.
	// 0 plays once, -1 loops forever.
	Loop int
	// Version is the launcher version, passed along for handshake checks.
	Version string
}

// Format returns the lowercased export extension without the dot, or ""
// for windowed runs.
func (o *Options) Format() string {
	if o.Export == "" {
		return ""
	}
	i := strings.LastIndex(o.Export, ".")
	if i < 0 {
		return ""
	}
	return strings.ToLower(o.Export[i+1:])
}

// IsMovie reports whether the export produces an animation: any .mov, or a
// .gif spanning more than one frame.
func (o *Options) IsMovie() bool {
	switch o.Format() {
	case "mov":
		return true
	case "gif":
		return o.LastFrame > o.FirstFrame
	}
	return false
}

// Mode classifies the run for history records and logging.
func (o *Options) Mode() string {
	switch {
	case o.Export != "":
		return ModeExport
	case o.Live:
		return ModeLive
	default:
		return ModeWindowed
	}
}

// ApplyDefaults fills in values the user left unset. Movie exports with no
// explicit range render 150 frames; everything else renders a single frame.
func (o *Options) ApplyDefaults() {
	if o.FPS == 0 {
		o.FPS = DefaultFPS
	}
	if o.Rate == 0 {
		o.Rate = DefaultRate
	}
	if o.FirstFrame == 0 && o.LastFrame == 0 {
		o.FirstFrame = 1
		if o.Format() == "mov" || o.Format() == "gif" {
			o.LastFrame = DefaultMovieFrames
		} else {
			o.LastFrame = 1
		}
	}
}

// payload is the wire form consumed by console.py. The field names are part
// of the launcher/interpreter contract and must not change independently.
type payload struct {
	Version    string   `json:"version"`
	Activate   bool     `json:"activate"`
	Fullscreen bool     `json:"fullscreen"`
	Live       bool     `json:"live"`
	VirtualEnv string   `json:"virtualenv,omitempty"`
	Export     string   `json:"export,omitempty"`
	First      int      `json:"first"`
	Last       int      `json:"last"`
	FPS        float64  `json:"fps"`
	Rate       float64  `json:"rate"`
	Loop       int      `json:"loop"`
	Args       []string `json:"args"`
}

// Encode serializes the options as the flat JSON document handed to the
// interpreter on its command line.
func (o *Options) Encode() ([]byte, error) {
	args := o.ScriptArgs
	if args == nil {
		args = []string{}
	}
	return json.Marshal(payload{
		Version:    o.Version,
		Activate:   !o.Console,
		Fullscreen: o.Fullscreen,
		Live:       o.Live,
		VirtualEnv: o.VirtualEnv,
		Export:     o.Export,
		First:      o.FirstFrame,
		Last:       o.LastFrame,
		FPS:        o.FPS,
		Rate:       o.Rate,
		Loop:       o.Loop,
		Args:       args,
	})
}

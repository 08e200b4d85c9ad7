package options

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Validation errors. All are detected synchronously before the interpreter
// is spawned; the CLI reports them and exits nonzero.
var (
	ErrNoScript         = errors.New("no sketch file given")
	ErrScriptNotFound   = errors.New("sketch file not found")
	ErrScriptIsDir      = errors.New("sketch path is a directory")
	ErrBadVirtualEnv    = errors.New("not a usable virtualenv")
	ErrBadExportFormat  = errors.New("unsupported export format")
	ErrExportDirMissing = errors.New("export directory does not exist")
	ErrBadFrameRange    = errors.New("invalid frame range")
	ErrBadFPS           = errors.New("fps must be positive")
	ErrBadRate          = errors.New("bitrate must be positive")
	ErrBadLoop          = errors.New("invalid loop count")
)

// exportFormats is the extension whitelist for --export targets.
var exportFormats = map[string]bool{
	"pdf":  true,
	"eps":  true,
	"png":  true,
	"tiff": true,
	"jpg":  true,
	"gif":  true,
	"mov":  true,
}

// ExportFormats lists the supported export extensions, for help text.
func ExportFormats() []string {
	return []string{"pdf", "eps", "png", "tiff", "jpg", "gif", "mov"}
}

// Validate checks the options record against the launcher's invariants.
// It must be called after ApplyDefaults.
func (o *Options) Validate() error {
	if o.Script == "" {
		return ErrNoScript
	}
	info, err := os.Stat(o.Script)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrScriptNotFound, o.Script)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrScriptIsDir, o.Script)
	}

	if o.VirtualEnv != "" {
		if _, err := VirtualEnvPython(o.VirtualEnv); err != nil {
			return err
		}
	}

	if o.Export != "" {
		format := o.Format()
		if !exportFormats[format] {
			return fmt.Errorf("%w: %q (supported: pdf, eps, png, tiff, jpg, gif, mov)", ErrBadExportFormat, o.Export)
		}
		dir := filepath.Dir(o.Export)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrExportDirMissing, dir)
		}
	}

	if o.FirstFrame < 1 {
		return fmt.Errorf("%w: first frame must be >= 1, got %d", ErrBadFrameRange, o.FirstFrame)
	}
	if o.LastFrame < o.FirstFrame {
		return fmt.Errorf("%w: %d-%d", ErrBadFrameRange, o.FirstFrame, o.LastFrame)
	}
	if o.FPS <= 0 {
		return fmt.Errorf("%w: got %v", ErrBadFPS, o.FPS)
	}
	if o.Rate <= 0 {
		return fmt.Errorf("%w: got %v", ErrBadRate, o.Rate)
	}
	if o.Loop < -1 {
		return fmt.Errorf("%w: %d (use -1 to loop forever)", ErrBadLoop, o.Loop)
	}
	if o.Loop != 0 {
		switch o.Format() {
		case "gif", "mov":
		default:
			return fmt.Errorf("%w: --loop only applies to gif and mov exports", ErrBadLoop)
		}
	}

	return nil
}

// VirtualEnvPython returns the python interpreter inside a virtualenv, or an
// error when the directory does not look like one.
func VirtualEnvPython(venv string) (string, error) {
	for _, name := range []string{"python3", "python"} {
		p := filepath.Join(venv, "bin", name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s (no bin/python3)", ErrBadVirtualEnv, venv)
}

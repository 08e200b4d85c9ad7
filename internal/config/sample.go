package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ErrConfigExists guards against clobbering a user's existing config.
var ErrConfigExists = errors.New("config file already exists")

const sampleHeader = `# easel launcher configuration.
# Every value here is a default; CLI flags always win.

`

// WriteSample writes a commented default config to path, creating parent
// directories as needed. Refuses to overwrite unless force is set.
func WriteSample(path string, force bool) error {
	if path == "" {
		path = DefaultPath()
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(sampleHeader)
	if err := toml.NewEncoder(&buf).Encode(DefaultConfig()); err != nil {
		return fmt.Errorf("encoding sample config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Package launch locates the Easel interpreter and runs sketches in it.
package launch

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/easel-graphics/easel/internal/options"
)

const consoleScript = "console.py"

// EnvConsole overrides the console.py search entirely when set.
const EnvConsole = "EASEL_CONSOLE"

// ErrConsoleNotFound is returned when no console.py candidate exists.
var ErrConsoleNotFound = errors.New("console.py not found")

// bundleConsole is the macOS app bundle location.
const bundleConsole = "/Applications/Easel.app/Contents/SharedSupport/console.py"

// LocateConsole finds the companion interpreter script. Search order:
// the EASEL_CONSOLE override, paths relative to the launcher binary
// (development checkout, then installed share directory), the virtualenv's
// site-packages, and finally the macOS app bundle.
func LocateConsole(virtualEnv string) (string, error) {
	if override := os.Getenv(EnvConsole); override != "" {
		if info, err := os.Stat(override); err == nil && !info.IsDir() {
			return override, nil
		}
		return "", fmt.Errorf("%w: %s=%s points at nothing", ErrConsoleNotFound, EnvConsole, override)
	}

	var searched []string
	for _, candidate := range consoleCandidates(virtualEnv) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		searched = append(searched, candidate)
	}

	return "", fmt.Errorf("%w (searched %s)", ErrConsoleNotFound, strings.Join(searched, ", "))
}

// consoleCandidates builds the ordered candidate list without touching the
// filesystem beyond resolving the launcher's own path.
func consoleCandidates(virtualEnv string) []string {
	var candidates []string

	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		candidates = append(candidates,
			filepath.Join(dir, "app", consoleScript),
			filepath.Join(dir, "..", "share", "easel", consoleScript),
		)
	}

	if virtualEnv != "" {
		pattern := filepath.Join(virtualEnv, "lib", "python*", "site-packages", "easel", consoleScript)
		if matches, err := filepath.Glob(pattern); err == nil {
			candidates = append(candidates, matches...)
		}
	}

	if runtime.GOOS == "darwin" {
		candidates = append(candidates, bundleConsole)
	}

	return candidates
}

// PythonBinary resolves the python interpreter to run console.py with:
// the virtualenv's python when one is configured, otherwise python3 from
// PATH (falling back to plain python).
func PythonBinary(virtualEnv string) (string, error) {
	if virtualEnv != "" {
		return options.VirtualEnvPython(virtualEnv)
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", errors.New("no python interpreter on PATH")
}

// PythonPath computes the PYTHONPATH entry that makes the easel module
// importable: the directory containing the package that holds console.py.
func PythonPath(console string) string {
	return filepath.Dir(filepath.Dir(console))
}

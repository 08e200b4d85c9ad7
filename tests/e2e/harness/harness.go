// Package harness provides a full end-to-end environment for launcher
// tests: a scratch sketch, a fake console interpreter, a config file, and a
// session history database, plus a step logger for readable test output.
package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/easel-graphics/easel/internal/config"
	"github.com/easel-graphics/easel/internal/history"
	"github.com/easel-graphics/easel/internal/launch"
	"github.com/easel-graphics/easel/internal/options"
)

// StepLogger prints numbered steps with timing so a failing e2e run reads
// like a transcript.
type StepLogger struct {
	t     *testing.T
	start time.Time
	step  int
}

func NewStepLogger(t *testing.T) *StepLogger {
	return &StepLogger{t: t, start: time.Now()}
}

func (l *StepLogger) Step(n int, format string, args ...any) {
	l.step = n
	l.t.Logf("[step %d] %s", n, fmt.Sprintf(format, args...))
}

func (l *StepLogger) Result(format string, args ...any) {
	l.t.Logf("  -> %s", fmt.Sprintf(format, args...))
}

func (l *StepLogger) Info(format string, args ...any) {
	l.t.Logf("  %s", fmt.Sprintf(format, args...))
}

// Expected logs a comparison; when ok is false it also fails the test.
func (l *StepLogger) Expected(what string, want, got any, ok bool) {
	if ok {
		l.t.Logf("  %s: %v (as expected)", what, got)
		return
	}
	l.t.Errorf("  %s: got %v, want %v", what, got, want)
}

func (l *StepLogger) Elapsed() {
	l.t.Logf("elapsed: %s", time.Since(l.start).Round(time.Millisecond))
}

// E2EEnvironment is a self-contained launcher installation in a temp dir.
type E2EEnvironment struct {
	T      *testing.T
	Logger *StepLogger

	// Root is the scratch directory.
	Root string
	// SketchPath is a valid sketch inside Root.
	SketchPath string
	// ConsolePath is the fake console interpreter script.
	ConsolePath string
	// ConfigPath points history_db at Root and python at /bin/sh.
	ConfigPath string
	// Config is the loaded configuration.
	Config *config.Config
	// Store is the open session history database.
	Store *history.Store

	step int
}

// NewE2EEnvironment builds a complete environment and registers cleanup.
// The fake console writes its payload argument to payload.json and exits 0;
// use WriteConsole to change its behavior.
func NewE2EEnvironment(t *testing.T) *E2EEnvironment {
	t.Helper()

	env := &E2EEnvironment{
		T:      t,
		Logger: NewStepLogger(t),
		Root:   t.TempDir(),
	}

	env.SketchPath = env.WriteFile("sketch.py", "size(512, 512)\nbackground(1)\n")
	env.ConsolePath = env.WriteConsole(`printf '%s' "$1" > payload.json`)

	dbPath := filepath.Join(env.Root, "history.db")
	env.ConfigPath = env.WriteFile("config.toml", fmt.Sprintf(
		"history_db = %q\npython = \"/bin/sh\"\ncolor = false\n", dbPath,
	))

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	env.Config = cfg

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		t.Fatalf("opening history: %v", err)
	}
	env.Store = store
	t.Cleanup(func() { store.Close() })

	return env
}

// Step advances the numbered step log.
func (e *E2EEnvironment) Step(format string, args ...any) {
	e.step++
	e.Logger.Step(e.step, format, args...)
}

// Result logs an intermediate outcome under the current step.
func (e *E2EEnvironment) Result(format string, args ...any) {
	e.Logger.Result(format, args...)
}

// WriteFile writes a file under Root and returns its absolute path.
func (e *E2EEnvironment) WriteFile(name, content string) string {
	e.T.Helper()
	path := filepath.Join(e.Root, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.T.Fatalf("writing %s: %v", name, err)
	}
	return path
}

// WriteConsole replaces the fake console script. The script receives the
// JSON payload as $1 and runs with the sketch directory as cwd.
func (e *E2EEnvironment) WriteConsole(body string) string {
	e.T.Helper()
	path := filepath.Join(e.Root, "console.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		e.T.Fatalf("writing console: %v", err)
	}
	e.ConsolePath = path
	return path
}

// Launch runs the given options through the full launch path: encode the
// payload, spawn the fake console, record the session, and finish it with
// the child's exit code. It returns the session ID and the launch error.
func (e *E2EEnvironment) Launch(ctx context.Context, opts *options.Options) (string, error) {
	e.T.Helper()

	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return "", err
	}
	payload, err := opts.Encode()
	if err != nil {
		return "", err
	}

	sessionID := uuid.NewString()
	sess := &history.Session{
		ID:         sessionID,
		Script:     opts.Script,
		Mode:       opts.Mode(),
		Export:     opts.Export,
		Format:     opts.Format(),
		FirstFrame: opts.FirstFrame,
		LastFrame:  opts.LastFrame,
	}
	if err := e.Store.Record(ctx, sess); err != nil {
		return "", err
	}

	launcher := &launch.Launcher{
		Python:    "/bin/sh",
		Console:   e.ConsolePath,
		Options:   opts,
		Payload:   payload,
		SessionID: sessionID,
		Log:       log.New(os.Stderr),
	}

	started := time.Now()
	runErr := launcher.Run(ctx)

	code := 0
	var exitErr *launch.ExitStatusError
	if errors.As(runErr, &exitErr) {
		code = exitErr.Code
	} else if runErr != nil {
		code = 1
	}
	if err := e.Store.Finish(context.Background(), sessionID, code, time.Since(started)); err != nil {
		e.T.Fatalf("finishing session: %v", err)
	}

	return sessionID, runErr
}

// SketchOptions returns a minimal valid options set for the scratch sketch.
func (e *E2EEnvironment) SketchOptions() *options.Options {
	return &options.Options{Script: e.SketchPath, Console: true}
}

// ReadPayload reads the payload the fake console captured.
func (e *E2EEnvironment) ReadPayload() string {
	e.T.Helper()
	data, err := os.ReadFile(filepath.Join(e.Root, "payload.json"))
	if err != nil {
		e.T.Fatalf("reading payload: %v", err)
	}
	return string(data)
}

// AssertFileExists fails the test unless path (relative to Root) exists.
func (e *E2EEnvironment) AssertFileExists(rel string) {
	e.T.Helper()
	if _, err := os.Stat(filepath.Join(e.Root, rel)); err != nil {
		e.T.Errorf("expected %s to exist: %v", rel, err)
	}
}

// AssertSessionCount fails unless the history store holds exactly n sessions.
func (e *E2EEnvironment) AssertSessionCount(ctx context.Context, n int) {
	e.T.Helper()
	count, err := e.Store.Count(ctx, "")
	if err != nil {
		e.T.Fatalf("counting sessions: %v", err)
	}
	if count != n {
		e.T.Errorf("session count: got %d, want %d", count, n)
	}
}

// AssertSessionExit fails unless the session finished with the given code.
func (e *E2EEnvironment) AssertSessionExit(ctx context.Context, id string, code int) {
	e.T.Helper()
	sess, err := e.Store.Get(ctx, id)
	if err != nil {
		e.T.Fatalf("fetching session %s: %v", id, err)
	}
	if !sess.Finished {
		e.T.Errorf("session %s not finished", id)
	}
	if sess.ExitCode != code {
		e.T.Errorf("session %s exit code: got %d, want %d", id, sess.ExitCode, code)
	}
}

package launch

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/easel-graphics/easel/internal/options"
)

// Control commands written to the child's stdin, newline-terminated.
// The interpreter reads them off a dedicated thread; an interrupt is never
// delivered to the child as a raw signal.
const (
	cancelCommand = "CANCEL"
	reloadCommand = "RELOAD"
)

// ExitStatusError carries a nonzero child exit code up to main.
type ExitStatusError struct {
	Code int
}

func (e *ExitStatusError) Error() string {
	return fmt.Sprintf("sketch exited with status %d", e.Code)
}

// Launcher runs one sketch in the interpreter and blocks until it exits.
type Launcher struct {
	// Python is the interpreter binary, Console the script it runs.
	Python  string
	Console string
	// Options describes the run; Payload is its JSON encoding.
	Options *options.Options
	Payload []byte
	// SessionID is exported to the child as EASEL_SESSION.
	SessionID string
	// ExtraArgs are interpreter arguments inserted before the script
	// (from the config file's extra_args).
	ExtraArgs []string
	// Reload delivers live-reload ticks; may be nil.
	Reload <-chan struct{}
	// Stdout and Stderr default to the parent's streams.
	Stdout io.Writer
	Stderr io.Writer

	Log *log.Logger
}

// Run spawns the interpreter, relays control messages, and waits for exit.
// The first SIGINT/SIGTERM becomes a CANCEL line on the child's stdin; a
// second one, or context cancellation, kills the process. The returned
// error is an *ExitStatusError when the child exited nonzero.
func (l *Launcher) Run(ctx context.Context) error {
	if l.Log == nil {
		l.Log = log.New(io.Discard)
	}

	argv := append([]string{}, l.ExtraArgs...)
	argv = append(argv, l.Console, string(l.Payload))

	cmd := exec.Command(l.Python, argv...)
	cmd.Dir = filepath.Dir(l.Options.Script)
	cmd.Env = l.environ()
	cmd.Stdout = l.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = l.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("opening control pipe: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting interpreter: %w", err)
	}
	l.Log.Debug("interpreter started", "pid", cmd.Process.Pid, "python", l.Python)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	cancelled := false
	for {
		select {
		case err := <-done:
			stdin.Close()
			return exitResult(err)

		case <-ctx.Done():
			l.Log.Debug("context cancelled, killing interpreter")
			cmd.Process.Kill()
			<-done
			return ctx.Err()

		case s := <-sigCh:
			if cancelled {
				l.Log.Warn("second interrupt, killing interpreter")
				cmd.Process.Kill()
				err := <-done
				stdin.Close()
				return exitResult(err)
			}
			l.Log.Debug("relaying interrupt", "signal", s)
			if err := writeControl(stdin, cancelCommand); err != nil {
				// Child already gone or pipe closed; let Wait settle it.
				l.Log.Debug("control write failed", "err", err)
			}
			cancelled = true

		case _, ok := <-l.Reload:
			if !ok {
				l.Reload = nil
				continue
			}
			l.Log.Info("sketch changed, reloading")
			if err := writeControl(stdin, reloadCommand); err != nil {
				l.Log.Debug("control write failed", "err", err)
			}
		}
	}
}

// environ builds the child environment: the parent's, plus the module path
// and session identity.
func (l *Launcher) environ() []string {
	env := os.Environ()
	env = append(env,
		"PYTHONPATH="+PythonPath(l.Console),
		"PYTHONUNBUFFERED=1",
		"EASEL_SESSION="+l.SessionID,
	)
	if l.Options.VirtualEnv != "" {
		env = append(env, "VIRTUAL_ENV="+l.Options.VirtualEnv)
	}
	return env
}

func writeControl(w io.Writer, command string) error {
	_, err := io.WriteString(w, command+"\n")
	return err
}

// exitResult translates cmd.Wait's error into the launcher's contract:
// nil for a clean exit, *ExitStatusError for a nonzero status.
func exitResult(err error) error {
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by signal; report a generic failure status.
			code = 1
		}
		return &ExitStatusError{Code: code}
	}
	return fmt.Errorf("waiting for interpreter: %w", err)
}

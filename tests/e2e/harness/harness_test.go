package harness

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/easel-graphics/easel/internal/history"
	"github.com/easel-graphics/easel/internal/launch"
	"github.com/easel-graphics/easel/internal/options"
)

func TestNewE2EEnvironment(t *testing.T) {
	env := NewE2EEnvironment(t)

	env.Step("Verifying environment structure")
	env.AssertFileExists("sketch.py")
	env.AssertFileExists("console.sh")
	env.AssertFileExists("config.toml")
	env.AssertFileExists("history.db")

	env.Step("Verifying config wiring")
	env.Logger.Expected("python", "/bin/sh", env.Config.Python, env.Config.Python == "/bin/sh")
	env.Logger.Expected("color", false, env.Config.Color, !env.Config.Color)

	env.AssertSessionCount(context.Background(), 0)
	env.Logger.Elapsed()
}

func TestE2E_LaunchRecordsSession(t *testing.T) {
	env := NewE2EEnvironment(t)
	ctx := context.Background()

	env.Step("Launching the scratch sketch")
	id, err := env.Launch(ctx, env.SketchOptions())
	if err != nil {
		t.Fatalf("launch failed: %v", err)
	}
	env.Result("session %s", id[:8])

	env.Step("Verifying payload delivery")
	payload := env.ReadPayload()
	if !strings.Contains(payload, `"activate":false`) {
		t.Errorf("console mode should disable activation: %s", payload)
	}
	if !strings.Contains(payload, env.SketchPath) {
		t.Errorf("payload missing script path: %s", payload)
	}

	env.Step("Verifying history record")
	env.AssertSessionCount(ctx, 1)
	env.AssertSessionExit(ctx, id, 0)
	env.Logger.Elapsed()
}

func TestE2E_FailedLaunchMirrorsExitCode(t *testing.T) {
	env := NewE2EEnvironment(t)
	ctx := context.Background()

	env.Step("Installing a failing console")
	env.WriteConsole("exit 5")

	env.Step("Launching")
	id, err := env.Launch(ctx, env.SketchOptions())

	var exitErr *launch.ExitStatusError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitStatusError, got %v", err)
	}
	env.Logger.Expected("exit code", 5, exitErr.Code, exitErr.Code == 5)

	env.Step("Verifying history record")
	env.AssertSessionExit(ctx, id, 5)
	env.Logger.Elapsed()
}

func TestE2E_ExportSessionMetadata(t *testing.T) {
	env := NewE2EEnvironment(t)
	ctx := context.Background()

	env.Step("Launching a movie export")
	opts := env.SketchOptions()
	opts.Export = env.Root + "/orbit.mov"

	id, err := env.Launch(ctx, opts)
	if err != nil {
		t.Fatalf("launch failed: %v", err)
	}

	env.Step("Verifying recorded metadata")
	sess, err := env.Store.Get(ctx, id)
	if err != nil {
		t.Fatalf("fetching session: %v", err)
	}
	env.Logger.Expected("mode", options.ModeExport, sess.Mode, sess.Mode == options.ModeExport)
	env.Logger.Expected("format", "mov", sess.Format, sess.Format == "mov")
	env.Logger.Expected("first frame", 1, sess.FirstFrame, sess.FirstFrame == 1)
	env.Logger.Expected("last frame", options.DefaultMovieFrames, sess.LastFrame,
		sess.LastFrame == options.DefaultMovieFrames)

	env.Step("Verifying payload carries the export plan")
	payload := env.ReadPayload()
	if !strings.Contains(payload, `"export":`) {
		t.Errorf("payload missing export: %s", payload)
	}
	env.Logger.Elapsed()
}

func TestE2E_SequentialLaunches(t *testing.T) {
	env := NewE2EEnvironment(t)
	ctx := context.Background()

	env.Step("Launching three times")
	for i := 0; i < 3; i++ {
		if _, err := env.Launch(ctx, env.SketchOptions()); err != nil {
			t.Fatalf("launch %d failed: %v", i, err)
		}
	}

	env.Step("Verifying history")
	env.AssertSessionCount(ctx, 3)

	sessions, err := env.Store.List(ctx, history.ListOptions{})
	if err != nil {
		t.Fatalf("listing sessions: %v", err)
	}
	for _, sess := range sessions {
		if !sess.Finished {
			t.Errorf("session %s not finished", sess.ID)
		}
	}
	env.Logger.Elapsed()
}

func TestStepLogger(t *testing.T) {
	logger := NewStepLogger(t)

	logger.Step(1, "First step")
	logger.Result("got value %d", 42)
	logger.Info("information")
	logger.Expected("match", "a", "a", true)
	logger.Elapsed()
}

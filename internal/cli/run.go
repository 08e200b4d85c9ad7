package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/easel-graphics/easel/internal/config"
	"github.com/easel-graphics/easel/internal/history"
	"github.com/easel-graphics/easel/internal/launch"
	"github.com/easel-graphics/easel/internal/live"
	"github.com/easel-graphics/easel/internal/options"
)

// runSketch is the root RunE: validate, resolve, spawn, wait.
func runSketch(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logger.SetLevel(log.DebugLevel)
	}

	sketch, scriptArgs, err := splitSketchArgs(args, cmd.ArgsLenAtDash())
	if err != nil {
		return err
	}
	if sketch == "" {
		return cmd.Help()
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	opts, err := buildOptions(cfg, cmd.Flags().Changed, sketch, scriptArgs)
	if err != nil {
		return err
	}
	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return err
	}

	payload, err := opts.Encode()
	if err != nil {
		return fmt.Errorf("encoding options: %w", err)
	}

	python := config.ExpandPath(cfg.Python)
	if python == "" {
		python, err = launch.PythonBinary(opts.VirtualEnv)
		if err != nil {
			return err
		}
	}
	console, err := launch.LocateConsole(opts.VirtualEnv)
	if err != nil {
		return err
	}

	extraArgv, err := cfg.ExtraArgv()
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()
	logger.Debug("launching sketch",
		"session", sessionID,
		"script", opts.Script,
		"mode", opts.Mode(),
		"python", python,
		"console", console,
	)

	// History is best effort: a broken database never blocks a launch.
	store := openHistory(cmd.Context(), cfg)
	if store != nil {
		defer store.Close()
		sess := &history.Session{
			ID:         sessionID,
			Script:     opts.Script,
			Mode:       opts.Mode(),
			Export:     opts.Export,
			Format:     opts.Format(),
			FirstFrame: opts.FirstFrame,
			LastFrame:  opts.LastFrame,
		}
		if err := store.Record(cmd.Context(), sess); err != nil {
			logger.Warn("could not record session", "err", err)
			store = nil
		}
	}

	var reload <-chan struct{}
	if opts.Live {
		watcher, err := live.Watch(opts.Script, live.DefaultDebounce, logger)
		if err != nil {
			return fmt.Errorf("starting live watcher: %w", err)
		}
		defer watcher.Close()
		reload = watcher.Events
	}

	launcher := &launch.Launcher{
		Python:    python,
		Console:   console,
		Options:   opts,
		Payload:   payload,
		SessionID: sessionID,
		ExtraArgs: extraArgv,
		Reload:    reload,
		Log:       logger,
	}

	started := time.Now()
	runErr := launcher.Run(cmd.Context())

	if store != nil {
		code := 0
		var exitErr *launch.ExitStatusError
		if errors.As(runErr, &exitErr) {
			code = exitErr.Code
		} else if runErr != nil {
			code = 1
		}
		if err := store.Finish(context.Background(), sessionID, code, time.Since(started)); err != nil {
			logger.Warn("could not finish session record", "err", err)
		}
	}

	return runErr
}

// splitSketchArgs separates the sketch path from its pass-through arguments.
// Everything after the sketch, and everything after --, belongs to the
// sketch itself.
func splitSketchArgs(args []string, dash int) (string, []string, error) {
	pre := args
	var post []string
	if dash >= 0 {
		pre = args[:dash]
		post = args[dash:]
	}

	if len(pre) == 0 {
		if len(post) > 0 {
			return "", nil, options.ErrNoScript
		}
		return "", nil, nil
	}

	scriptArgs := append(append([]string{}, pre[1:]...), post...)
	return pre[0], scriptArgs, nil
}

// buildOptions merges flags over config defaults. changed reports whether a
// flag was set explicitly; unset flags defer to the config file.
func buildOptions(cfg *config.Config, changed func(string) bool, sketch string, scriptArgs []string) (*options.Options, error) {
	script, err := filepath.Abs(sketch)
	if err != nil {
		return nil, fmt.Errorf("resolving sketch path: %w", err)
	}

	opts := &options.Options{
		Script:     script,
		ScriptArgs: scriptArgs,
		Fullscreen: flagFullscreen,
		Console:    flagBackground,
		Live:       flagLive,
		Loop:       flagLoop,
		Version:    Version,
	}

	opts.VirtualEnv = config.ExpandPath(flagVirtualEnv)
	if !changed("virtualenv") {
		opts.VirtualEnv = cfg.VirtualEnv
	}

	opts.FPS = flagFPS
	if !changed("fps") && cfg.FPS > 0 {
		opts.FPS = cfg.FPS
	}
	opts.Rate = flagRate
	if !changed("rate") && cfg.Rate > 0 {
		opts.Rate = cfg.Rate
	}

	if flagExport != "" {
		export, err := filepath.Abs(config.ExpandPath(flagExport))
		if err != nil {
			return nil, fmt.Errorf("resolving export path: %w", err)
		}
		opts.Export = export
	}

	first, last, err := options.ParseFrames(flagFrames)
	if err != nil {
		return nil, err
	}
	opts.FirstFrame = first
	opts.LastFrame = last

	return opts, nil
}

// openHistory opens the session store and applies retention, logging but
// swallowing failures.
func openHistory(ctx context.Context, cfg *config.Config) *history.Store {
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		logger.Warn("session history unavailable", "err", err)
		return nil
	}
	if cfg.HistoryKeepDays > 0 {
		age := time.Duration(cfg.HistoryKeepDays) * 24 * time.Hour
		if n, err := store.PruneOlderThan(ctx, age); err != nil {
			logger.Debug("history prune failed", "err", err)
		} else if n > 0 {
			logger.Debug("pruned old sessions", "count", n)
		}
	}
	return store
}

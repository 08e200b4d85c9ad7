package cli

import (
	"bytes"

	"github.com/spf13/cobra"

	"github.com/easel-graphics/easel/internal/options"
)

// executeCommand runs a cobra command and captures its output streams.
func executeCommand(root *cobra.Command, args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// newTestRootCmd creates a fresh root command so flag Changed state does not
// leak between tests.
func newTestRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "easel",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSketch,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "config file")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable styled output")

	f := root.Flags()
	f.BoolVarP(&flagFullscreen, "fullscreen", "f", false, "fullscreen")
	f.BoolVarP(&flagBackground, "background", "b", false, "background mode")
	f.StringVar(&flagVirtualEnv, "virtualenv", "", "virtualenv")
	f.StringVar(&flagExport, "export", "", "export file")
	f.StringVar(&flagFrames, "frames", "", "frame range")
	f.Float64Var(&flagFPS, "fps", options.DefaultFPS, "frame rate")
	f.Float64Var(&flagRate, "rate", options.DefaultRate, "bitrate")
	f.IntVar(&flagLoop, "loop", 0, "loop count")
	f.BoolVar(&flagLive, "live", false, "live reload")

	return root
}

func resetRunFlags() {
	flagConfig = ""
	flagVerbose = false
	flagNoColor = false
	flagFullscreen = false
	flagBackground = false
	flagVirtualEnv = ""
	flagExport = ""
	flagFrames = ""
	flagFPS = options.DefaultFPS
	flagRate = options.DefaultRate
	flagLoop = 0
	flagLive = false
}

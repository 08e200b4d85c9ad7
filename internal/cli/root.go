// Package cli implements the easel command surface.
package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/easel-graphics/easel/internal/launch"
	"github.com/easel-graphics/easel/internal/options"
)

// Persistent flags shared by every subcommand.
var (
	flagConfig  string
	flagVerbose bool
	flagNoColor bool
)

// Run flags for the default sketch-launching command.
var (
	flagFullscreen bool
	flagBackground bool
	flagVirtualEnv string
	flagExport     string
	flagFrames     string
	flagFPS        float64
	flagRate       float64
	flagLoop       int
	flagLive       bool
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: false,
	Prefix:          "easel",
})

var rootCmd = &cobra.Command{
	Use:   "easel [flags] sketch.py [-- sketch args]",
	Short: "Launch sketches in the Easel creative-coding environment",
	Long: `Easel runs python sketches in a graphics environment, either in a
viewer window or headless for file export.

The launcher validates the invocation, locates the companion interpreter
(console.py), and runs the sketch as a subprocess. Interrupts are relayed
to the sketch as a cancellation message so exports can finish the frame
they are on before shutting down.

Examples:
  easel sketch.py                         open in a viewer window
  easel -f sketch.py                      fullscreen
  easel --live sketch.py                  reload on every save
  easel --export poster.pdf sketch.py     render a single frame to PDF
  easel --export anim.mov --frames 1-300 --fps 60 sketch.py
  easel sketch.py -- --seed 42            pass arguments to the sketch`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSketch,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "config file (default ~/.config/easel/config.toml)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable styled output")

	f := rootCmd.Flags()
	f.BoolVarP(&flagFullscreen, "fullscreen", "f", false, "open the viewer fullscreen")
	f.BoolVarP(&flagBackground, "background", "b", false, "run without activating the GUI")
	f.StringVar(&flagVirtualEnv, "virtualenv", "", "python virtualenv to run the sketch in")
	f.StringVar(&flagExport, "export", "", "render to a file instead of a window ("+strings.Join(options.ExportFormats(), ", ")+")")
	f.StringVar(&flagFrames, "frames", "", "frame range to render, N or A-B")
	f.Float64Var(&flagFPS, "fps", options.DefaultFPS, "frame rate for animated exports")
	f.Float64Var(&flagRate, "rate", options.DefaultRate, "video bitrate in megabits per second")
	f.IntVar(&flagLoop, "loop", 0, "loop count for gif and mov exports, -1 loops forever")
	f.BoolVar(&flagLive, "live", false, "reload the sketch whenever its file changes")

	rootCmd.Version = Version
}

// Execute runs the CLI and returns the launcher's terminal error, if any.
// Validation failures are reported here; a nonzero sketch exit travels up
// as *launch.ExitStatusError so main can mirror the status.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		var exitErr *launch.ExitStatusError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "easel:", err)
		}
	}
	return err
}

// useColor decides whether styled output is appropriate for stdout.
func useColor(configColor bool) bool {
	if flagNoColor || !configColor {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/easel-graphics/easel/internal/config"
	"github.com/easel-graphics/easel/internal/launch"
)

func init() {
	envCmd.Flags().StringVar(&flagVirtualEnv, "virtualenv", "", "python virtualenv to resolve against")
	rootCmd.AddCommand(envCmd)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show the resolved interpreter environment",
	Long: `Print the python binary, console.py location, and PYTHONPATH the
launcher would use, for debugging installation problems.`,
	RunE: runEnv,
}

func runEnv(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	venv := config.ExpandPath(flagVirtualEnv)
	if venv == "" {
		venv = cfg.VirtualEnv
	}

	out := cmd.OutOrStdout()
	configPath := flagConfig
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	fmt.Fprintf(out, "config:      %s\n", configPath)
	fmt.Fprintf(out, "history db:  %s\n", cfg.HistoryDB)
	if venv != "" {
		fmt.Fprintf(out, "virtualenv:  %s\n", venv)
	}

	python := config.ExpandPath(cfg.Python)
	if python == "" {
		python, err = launch.PythonBinary(venv)
		if err != nil {
			python = "(not found: " + err.Error() + ")"
		}
	}
	fmt.Fprintf(out, "python:      %s\n", python)

	console, err := launch.LocateConsole(venv)
	if err != nil {
		fmt.Fprintf(out, "console:     (not found)\n")
		return nil
	}
	fmt.Fprintf(out, "console:     %s\n", console)
	fmt.Fprintf(out, "pythonpath:  %s\n", launch.PythonPath(console))
	return nil
}

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
	"golang.org/x/term"

	"github.com/easel-graphics/easel/internal/config"
	"github.com/easel-graphics/easel/internal/history"
	tuihistory "github.com/easel-graphics/easel/internal/tui/history"
)

var (
	flagHistoryLimit  int
	flagHistorySearch string
	flagHistoryJSON   bool
	flagExportFormat  string
	flagPruneDays     int
)

func init() {
	historyListCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "maximum sessions to show")
	historyListCmd.Flags().StringVar(&flagHistorySearch, "search", "", "filter by script path substring")
	historyListCmd.Flags().BoolVarP(&flagHistoryJSON, "json", "j", false, "emit JSON instead of a table")

	historyExportCmd.Flags().StringVar(&flagExportFormat, "format", "json", "output format: json or yaml")

	historyPruneCmd.Flags().IntVar(&flagPruneDays, "days", 30, "delete sessions older than this many days")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyBrowseCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past sketch sessions",
}

func openHistoryStore() (*history.Store, *config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.List(cmd.Context(), history.ListOptions{
			Search: flagHistorySearch,
			Limit:  flagHistoryLimit,
		})
		if err != nil {
			return err
		}

		if flagHistoryJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sessions)
		}

		fmt.Fprint(cmd.OutOrStdout(), renderSessionTable(sessions, useColor(cfg.Color)))
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sess, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "id:       %s\n", sess.ID)
		fmt.Fprintf(out, "script:   %s\n", sess.Script)
		fmt.Fprintf(out, "mode:     %s\n", sess.Mode)
		if sess.Export != "" {
			fmt.Fprintf(out, "export:   %s (%s)\n", sess.Export, sess.Format)
			fmt.Fprintf(out, "frames:   %d-%d\n", sess.FirstFrame, sess.LastFrame)
		}
		fmt.Fprintf(out, "started:  %s\n", sess.StartedAt.Local().Format(time.RFC1123))
		fmt.Fprintf(out, "status:   %s\n", sessionStatus(sess))
		if sess.Finished {
			fmt.Fprintf(out, "duration: %s\n", (time.Duration(sess.Duration) * time.Millisecond).String())
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump all sessions as JSON or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.List(cmd.Context(), history.ListOptions{Limit: 100000})
		if err != nil {
			return err
		}

		switch flagExportFormat {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sessions)
		case "yaml":
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(sessions)
		default:
			return fmt.Errorf("unknown export format %q (use json or yaml)", flagExportFormat)
		}
	},
}

var historyBrowseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse sessions interactively",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("history browse requires a terminal")
		}

		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}

		model := tuihistory.New(cfg.HistoryDB)
		_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagPruneDays <= 0 {
			return errors.New("--days must be positive")
		}

		store, _, err := openHistoryStore()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.PruneOlderThan(cmd.Context(), time.Duration(flagPruneDays)*24*time.Hour)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d sessions\n", n)
		return nil
	},
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	tableFailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// renderSessionTable formats sessions as a fixed-width table. Split out of
// the command so the layout is unit-testable.
func renderSessionTable(sessions []*history.Session, color bool) string {
	var b strings.Builder

	header := fmt.Sprintf("%-8s  %-16s  %-8s  %-10s  %s", "ID", "STARTED", "MODE", "STATUS", "SCRIPT")
	if color {
		header = tableHeaderStyle.Render(header)
	}
	b.WriteString(header + "\n")

	for _, sess := range sessions {
		// Pad before styling so ANSI escapes don't skew the columns.
		status := fmt.Sprintf("%-10s", sessionStatus(sess))
		if color && strings.HasPrefix(status, "exit") {
			status = tableFailStyle.Render(status)
		}
		fmt.Fprintf(&b, "%-8s  %-16s  %-8s  %s  %s\n",
			shortID(sess.ID),
			sess.StartedAt.Local().Format("2006-01-02 15:04"),
			sess.Mode,
			status,
			sess.Script,
		)
	}

	if len(sessions) == 0 {
		b.WriteString("(no sessions)\n")
	}
	return b.String()
}

func sessionStatus(sess *history.Session) string {
	switch {
	case !sess.Finished:
		return "running"
	case sess.ExitCode == 0:
		return "ok"
	default:
		return fmt.Sprintf("exit %d", sess.ExitCode)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

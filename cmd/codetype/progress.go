package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/codetype/internal/config"
	"github.com/verte-zerg/codetype/internal/lesson"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/progressui"
	"github.com/verte-zerg/codetype/internal/stats"
	"github.com/verte-zerg/codetype/internal/store"
)

var (
	statsLang        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsPlain       bool

	clearYes bool
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show progress",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsLang, "lang", "", "language filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N completions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsLast < 0 {
		return fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}

	cfg := model.StatsConfig{
		Lang:        statsLang,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	out := cmd.OutOrStdout()
	file, isFile := out.(*os.File)
	tty := isFile && term.IsTerminal(int(file.Fd()))
	if statsPlain || !tty {
		report, err := stats.BuildReport(cmd.Context(), st, cfg, time.Now())
		if err != nil {
			return fmt.Errorf("failed to build report: %w", err)
		}
		opts := stats.RenderOptions{Color: tty}
		if tty {
			if width, _, err := term.GetSize(int(file.Fd())); err == nil {
				opts.Width = width
			}
		}
		return stats.RenderReport(out, report, opts)
	}

	program := tea.NewProgram(progressui.NewModel(st, cfg, time.Now), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export progress history and custom lessons as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)
			customs, err := lesson.LoadDir(config.DefaultLessonDir())
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == "-" {
				return st.Export(cmd.Context(), cmd.OutOrStdout(), time.Now(), customs)
			}
			return writeExport(cmd, st, customs, args[0])
		},
	}
}

func writeExport(cmd *cobra.Command, st *store.Store, customs []model.Lesson, path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".codetype-export-*.json")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()
	if err = st.Export(cmd.Context(), tmp, time.Now(), customs); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	logErrf("Exported progress to %s\n", path)
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import progress history and custom lessons from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer closeQuietly(f)
				r = f
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)
			dir := config.DefaultLessonDir()
			res, err := st.Import(cmd.Context(), r, func(l model.Lesson) error {
				_, err := lesson.SaveCustom(dir, l)
				return err
			})
			if errors.Is(err, store.ErrMalformedImport) {
				return fmt.Errorf("%s is not a valid codetype export: %w", args[0], err)
			}
			if err != nil {
				return fmt.Errorf("failed to import: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d completed lessons and %d custom lessons\n", res.Completions, res.Lessons)
			return err
		},
	}
}

func newClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all progress history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !clearYes && !confirm(cmd.InOrStdin(), "Delete all progress history? [y/N] ") {
				return nil
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(st)
			n, err := st.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %d completed lessons\n", n)
			return err
		},
	}
	cmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirm(in io.Reader, prompt string) bool {
	logErrf("%s", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

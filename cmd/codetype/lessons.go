package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/codetype/internal/config"
	"github.com/verte-zerg/codetype/internal/lesson"
	"github.com/verte-zerg/codetype/internal/logging"
	"github.com/verte-zerg/codetype/internal/model"
)

var (
	lessonsLang  string
	lessonsWatch bool

	addFile        string
	addTitle       string
	addLang        string
	addTopic       string
	addDifficulty  string
	addDescription string
)

func newLessonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lessons",
		Short: "List available lessons",
		Args:  cobra.NoArgs,
		RunE:  runLessonsCmd,
	}
	cmd.Flags().StringVar(&lessonsLang, "lang", "", "language filter")
	cmd.Flags().BoolVar(&lessonsWatch, "watch", false, "keep running and reprint when custom lessons change")
	cmd.AddCommand(newLessonsAddCmd())
	cmd.AddCommand(newLessonsRmCmd())
	return cmd
}

func runLessonsCmd(cmd *cobra.Command, _ []string) error {
	dir := config.DefaultLessonDir()
	if err := printLessons(cmd.OutOrStdout(), dir); err != nil {
		return err
	}
	if !lessonsWatch {
		return nil
	}

	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, closer, err := logging.New(fileCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closeQuietly(closer)

	w, err := lesson.NewWatcher(dir)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logErrf("Watching %s (ctrl+c to stop)\n", dir)
	return w.Run(ctx, func(path string) {
		logger.WithField("path", path).Info("custom lessons changed")
		if err := printLessons(cmd.OutOrStdout(), dir); err != nil {
			logErrf("%v\n", err)
		}
	}, func(err error) {
		logger.WithError(err).Warn("lesson watcher error")
	})
}

func printLessons(w io.Writer, dir string) error {
	catalog, err := lesson.Load(dir)
	if err != nil {
		return fmt.Errorf("failed to load lessons: %w", err)
	}
	lessons := catalog.ByLanguage(lessonsLang)
	if len(lessons) == 0 {
		return fmt.Errorf("no lessons for %q (languages: %v)", lessonsLang, catalog.Languages())
	}
	_, err = fmt.Fprintln(w, renderLessonTable(lessons))
	return err
}

func renderLessonTable(lessons []model.Lesson) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))).
		Headers("ID", "Lang", "Topic", "Difficulty", "Title")
	for _, l := range lessons {
		title := l.Title
		if l.Custom {
			title += " (custom)"
		}
		t.Row(l.ID, l.Language, l.Topic, string(l.Difficulty), title)
	}
	return t.String()
}

func newLessonsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a custom lesson from a source file",
		Args:  cobra.NoArgs,
		RunE:  runLessonsAddCmd,
	}
	cmd.Flags().StringVar(&addFile, "file", "", "file with the lesson code ('-' for stdin)")
	cmd.Flags().StringVar(&addTitle, "title", "", "lesson title")
	cmd.Flags().StringVar(&addLang, "lang", "", "lesson language")
	cmd.Flags().StringVar(&addTopic, "topic", "", "lesson topic (default: custom)")
	cmd.Flags().StringVar(&addDifficulty, "difficulty", string(model.Beginner), "beginner, intermediate or advanced")
	cmd.Flags().StringVar(&addDescription, "description", "", "short description")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

func runLessonsAddCmd(cmd *cobra.Command, _ []string) error {
	code, err := readCode(addFile)
	if err != nil {
		return err
	}
	l, err := lesson.NewCustom(lesson.CustomSpec{
		Title:       addTitle,
		Description: addDescription,
		Language:    addLang,
		Topic:       addTopic,
		Difficulty:  model.Difficulty(addDifficulty),
		Author:      os.Getenv("USER"),
		Code:        code,
	}, time.Now())
	if err != nil {
		return fmt.Errorf("invalid lesson: %w", err)
	}
	path, err := lesson.SaveCustom(config.DefaultLessonDir(), l)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", l.ID, path)
	return err
}

func readCode(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read lesson code: %w", err)
	}
	return string(data), nil
}

func newLessonsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a custom lesson",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := lesson.DeleteCustom(config.DefaultLessonDir(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return err
		},
	}
}


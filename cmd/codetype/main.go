// Package main provides the CLI entrypoint for codetype.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/codetype/internal/config"
	"github.com/verte-zerg/codetype/internal/generator"
	"github.com/verte-zerg/codetype/internal/lesson"
	"github.com/verte-zerg/codetype/internal/logging"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/store"
	"github.com/verte-zerg/codetype/internal/tui"
	"github.com/verte-zerg/codetype/internal/typing"
)

const (
	defaultPauseMode   = "wall"
	defaultTickMs      = 100
	defaultWeakFactor  = 2.0
	defaultWeakWindow  = 20
	defaultCurveWindow = 5
)

var (
	practiceLesson     string
	practiceLang       string
	practiceTopic      string
	practiceRandom     bool
	practiceMode       bool
	practicePauseMode  string
	practiceTickMs     int
	practiceFocusWeak  bool
	practiceWeakFactor float64
	practiceWeakWindow int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "codetype",
		Short:         "Code typing trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceLesson, "lesson", "", "lesson id to practice")
	rootCmd.Flags().StringVar(&practiceLang, "lang", "", "restrict lessons to a language")
	rootCmd.Flags().StringVar(&practiceTopic, "topic", "", "restrict lessons to a topic")
	rootCmd.Flags().BoolVar(&practiceRandom, "random", false, "start with a random lesson")
	rootCmd.Flags().BoolVar(&practiceMode, "practice", false, "practice mode: do not save progress")
	rootCmd.Flags().StringVar(&practicePauseMode, "pause-mode", defaultPauseMode, "elapsed time while paused: wall or active")
	rootCmd.Flags().IntVar(&practiceTickMs, "tick-ms", defaultTickMs, "metrics refresh interval in milliseconds")
	rootCmd.Flags().BoolVar(&practiceFocusWeak, "focus-weak", false, "bias lesson choice toward low-accuracy lessons")
	rootCmd.Flags().Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "weight factor for low-accuracy lessons")
	rootCmd.Flags().IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "number of recent completions used for weighting")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLessonsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newClearCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "lesson", &practiceLesson, fileCfg.Practice.Lesson)
	applyStringConfig(cmd, "lang", &practiceLang, fileCfg.Practice.Lang)
	applyStringConfig(cmd, "topic", &practiceTopic, fileCfg.Practice.Topic)
	applyBoolConfig(cmd, "practice", &practiceMode, fileCfg.Practice.PracticeMode)
	applyStringConfig(cmd, "pause-mode", &practicePauseMode, fileCfg.Practice.PauseMode)
	applyIntConfig(cmd, "tick-ms", &practiceTickMs, fileCfg.Practice.TickMs)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, fileCfg.Practice.FocusWeak)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, fileCfg.Practice.WeakFactor)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, fileCfg.Practice.WeakWindow)

	cfg := model.Config{
		LessonID:     practiceLesson,
		Lang:         practiceLang,
		Topic:        practiceTopic,
		Random:       practiceRandom,
		PracticeMode: practiceMode,
		PauseMode:    practicePauseMode,
		TickInterval: time.Duration(practiceTickMs) * time.Millisecond,
		FocusWeak:    practiceFocusWeak,
		WeakFactor:   practiceWeakFactor,
		WeakWindow:   practiceWeakWindow,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	logger, closer, err := logging.New(fileCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer closeQuietly(closer)

	lessonDir := config.DefaultLessonDir()
	catalog, err := lesson.Load(lessonDir)
	if err != nil {
		return fmt.Errorf("failed to load lessons: %w", err)
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.WithError(cerr).Error("failed to close db")
		}
	}()

	gen := generator.New()
	first, err := firstLesson(cmd.Context(), cfg, catalog, gen, st, logger)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"lesson":   first.ID,
		"practice": cfg.PracticeMode,
		"pause":    cfg.PauseMode,
	}).Info("starting practice")

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	changes := watchLessons(ctx, lessonDir, logger)

	m, err := tui.NewModel(cfg, first, tui.Deps{
		Catalog:       catalog,
		History:       st,
		Generator:     gen,
		Logger:        logger,
		LessonChanges: changes,
		LoadCatalog: func() (*lesson.Catalog, error) {
			return lesson.Load(lessonDir)
		},
	})
	if err != nil {
		return err
	}
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// watchLessons reports custom lesson changes until ctx is done. Bursts of
// events collapse into one pending change. It returns nil when the directory
// cannot be watched.
func watchLessons(ctx context.Context, dir string, log logrus.FieldLogger) <-chan string {
	w, err := lesson.NewWatcher(dir)
	if err != nil {
		log.WithError(err).Warn("custom lessons will not reload")
		return nil
	}
	changes := make(chan string, 1)
	go func() {
		err := w.Run(ctx, func(path string) {
			select {
			case changes <- path:
			default:
			}
		}, func(err error) {
			log.WithError(err).Warn("lesson watcher error")
		})
		if err != nil {
			log.WithError(err).Warn("lesson watcher stopped")
		}
	}()
	return changes
}

// firstLesson resolves the lesson to open with: an explicit id wins, then a
// random or weighted pick when requested, then the first lesson matching the
// language and topic filters.
func firstLesson(ctx context.Context, cfg model.Config, catalog *lesson.Catalog, gen *generator.Generator, st *store.Store, log logrus.FieldLogger) (model.Lesson, error) {
	if cfg.LessonID != "" {
		l, err := catalog.Find(cfg.LessonID)
		if errors.Is(err, lesson.ErrNotFound) {
			return model.Lesson{}, fmt.Errorf("unknown lesson %q (run: codetype lessons)", cfg.LessonID)
		}
		return l, err
	}
	pool := catalog.Filter(cfg.Lang, cfg.Topic)
	if len(pool) == 0 {
		return model.Lesson{}, fmt.Errorf("no lessons match lang=%q topic=%q (run: codetype lessons)", cfg.Lang, cfg.Topic)
	}
	if cfg.FocusWeak {
		aggs, err := st.LessonAggregates(ctx, cfg.WeakWindow, cfg.Lang)
		if err != nil {
			log.WithError(err).Warn("failed to load lesson accuracy")
		}
		if len(aggs) == 0 {
			log.Info("no history for weak-lesson focus yet; picking uniformly")
		}
		if l, ok := gen.PickWeighted(pool, "", aggs, cfg.WeakFactor); ok {
			return l, nil
		}
	}
	if cfg.Random {
		if l, ok := gen.Pick(pool, ""); ok {
			return l, nil
		}
	}
	return pool[0], nil
}

func validateConfig(cfg model.Config) error {
	if _, err := typing.ParsePauseMode(cfg.PauseMode); err != nil {
		return fmt.Errorf("--pause-mode: %w", err)
	}
	if cfg.TickInterval < 0 {
		return fmt.Errorf("--tick-ms must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.WeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	return nil
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		logErrf("failed to close: %v\n", err)
	}
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/codetype/internal/generator"
	"github.com/verte-zerg/codetype/internal/lesson"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/stats"
	"github.com/verte-zerg/codetype/internal/typing"
)

// History is the progress store used by the typing UI.
type History interface {
	stats.Source
	typing.Recorder
	LessonAggregates(ctx context.Context, window int, lang string) (map[string]model.LessonAggregate, error)
}

// Deps bundles the collaborators of the typing UI.
type Deps struct {
	Catalog   *lesson.Catalog
	History   History
	Generator *generator.Generator
	Logger    logrus.FieldLogger
	Now       func() time.Time

	// LessonChanges delivers paths of changed custom lesson files. The
	// catalog is rebuilt with LoadCatalog on each change. Both are optional.
	LessonChanges <-chan string
	LoadCatalog   func() (*lesson.Catalog, error)
}

// snapshotMsg signals that the session published a new state.
type snapshotMsg struct{}

// lessonsChangedMsg signals a change in the custom lesson directory.
type lessonsChangedMsg struct {
	path string
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	config model.Config
	deps   Deps
	log    logrus.FieldLogger

	session     *typing.Session
	unsubscribe func()
	updates     chan struct{}
	snap        typing.Snapshot

	keys     keyMap
	help     help.Model
	progress progress.Model

	announcement string
	milestones   map[int]bool
	lastRecord   *model.CompletedLesson

	width  int
	height int

	lastWPM     int
	lastAcc     int
	hasLast     bool
	allWPM      int
	allAcc      int
	historySize int
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Underline(true)
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	whitespaceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	metricsStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	announceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FB77E"))
	panelStyle       = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#C89A3A")).
				Padding(1, 3)
)

// NewModel constructs a typing TUI model for the first lesson.
func NewModel(cfg model.Config, first model.Lesson, deps Deps) (*Model, error) {
	pauseMode, err := typing.ParsePauseMode(cfg.PauseMode)
	if err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Generator == nil {
		deps.Generator = generator.New()
	}
	m := &Model{
		config:   cfg,
		deps:     deps,
		log:      deps.Logger.WithField("component", "tui"),
		updates:  make(chan struct{}, 1),
		keys:     newKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithSolidFill("#C89A3A"), progress.WithoutPercentage()),
	}
	m.config.PauseMode = pauseMode.String()
	m.startSession(first)
	m.loadFooterStats()
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForSnapshot(), m.waitForLessonChange())
}

// Close releases the active session.
func (m *Model) Close() {
	if m.session != nil {
		m.unsubscribe()
		m.session.Close()
	}
}

// Snapshot returns the last state shown by the UI.
func (m *Model) Snapshot() typing.Snapshot {
	return m.snap
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(10, m.contentWidth())
		return m, nil
	case snapshotMsg:
		m.refresh()
		return m, m.waitForSnapshot()
	case lessonsChangedMsg:
		m.reloadCatalog(msg.path)
		return m, m.waitForLessonChange()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Reset):
		m.session.Reset()
		m.resetProgressState()
		m.announce("Lesson reset")
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Retry):
		m.startSession(m.session.Lesson())
		m.announce("Retrying " + m.session.Lesson().Title)
		return m, nil
	case key.Matches(msg, m.keys.Next):
		m.nextLesson()
		return m, nil
	case key.Matches(msg, m.keys.Start):
		if m.snap.State == typing.StateIdle || m.snap.State == typing.StatePaused {
			m.session.Start()
			m.announce("Typing started")
		}
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Practice):
		m.session.SetPracticeMode(!m.snap.PracticeMode)
		m.refresh()
		if m.snap.PracticeMode {
			m.announce("Practice mode on, progress will not be saved")
		} else {
			m.announce("Practice mode off")
		}
		return m, nil
	}
	if m.snap.Completed {
		return m, nil
	}
	for _, name := range keyNames(msg) {
		m.applyAction(typing.Classify(name))
	}
	m.refresh()
	return m, nil
}

func (m *Model) applyAction(action typing.Action) {
	switch action.Kind {
	case typing.ActionPause:
		if m.snap.Running {
			m.session.Pause()
			m.announce("Typing paused")
		}
	case typing.ActionType:
		before := m.snap.State
		if err := m.session.AcceptKeystroke(action.Char, m.snap.CursorIndex); err != nil {
			if !errors.Is(err, typing.ErrCompleted) {
				m.log.WithError(err).Debug("keystroke rejected")
			}
			return
		}
		m.refresh()
		if before == typing.StateIdle && !m.snap.Completed {
			m.announce("Typing started")
		}
		m.announceMilestone()
	}
}

func (m *Model) announceMilestone() {
	if m.snap.Completed {
		return
	}
	pct, ok := typing.Milestone(m.snap.CursorIndex, m.snap.Length)
	if !ok || m.milestones[pct] {
		return
	}
	m.milestones[pct] = true
	m.announce(fmt.Sprintf("%d%% complete", pct))
}

func (m *Model) announce(text string) {
	m.announcement = text
}

func (m *Model) refresh() {
	m.snap = m.session.Snapshot()
	m.keys.setCompleted(m.snap.Completed)
}

// startSession replaces the active session with a fresh one for l.
func (m *Model) startSession(l model.Lesson) {
	m.Close()
	pauseMode, err := typing.ParsePauseMode(m.config.PauseMode)
	if err != nil {
		pauseMode = typing.PauseWallClock
	}
	m.session = typing.NewSession(l, typing.Options{
		PracticeMode: m.config.PracticeMode,
		PauseMode:    pauseMode,
		TickInterval: m.config.TickInterval,
		Now:          m.deps.Now,
		Recorder:     typing.RecorderFunc(m.recordCompletion),
		Logger:       m.deps.Logger,
	})
	updates := m.updates
	m.unsubscribe = m.session.Subscribe(func(typing.Snapshot) {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	m.resetProgressState()
	m.announcement = ""
	m.refresh()
}

func (m *Model) resetProgressState() {
	m.milestones = map[int]bool{}
	m.lastRecord = nil
}

// waitForSnapshot blocks until the session publishes a change.
func (m *Model) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		<-updates
		return snapshotMsg{}
	}
}

// waitForLessonChange blocks until a custom lesson file changes. It returns
// nil when reloading is not configured.
func (m *Model) waitForLessonChange() tea.Cmd {
	changes := m.deps.LessonChanges
	if changes == nil || m.deps.LoadCatalog == nil {
		return nil
	}
	return func() tea.Msg {
		path, ok := <-changes
		if !ok {
			return nil
		}
		return lessonsChangedMsg{path: path}
	}
}

// reloadCatalog rebuilds the catalog. The running session keeps its lesson
// even when the file behind it was removed.
func (m *Model) reloadCatalog(path string) {
	catalog, err := m.deps.LoadCatalog()
	if err != nil {
		m.log.WithError(err).WithField("path", path).Warn("failed to reload lessons")
		m.announce("Lessons not reloaded: " + err.Error())
		return
	}
	m.deps.Catalog = catalog
	m.log.WithFields(logrus.Fields{"path": path, "lessons": catalog.Len()}).Info("reloaded lessons")
	m.announce(fmt.Sprintf("Lessons reloaded (%d available)", catalog.Len()))
}

// recordCompletion runs once per completed attempt. Practice runs are
// announced but not stored.
func (m *Model) recordCompletion(ctx context.Context, rec model.CompletedLesson) error {
	m.lastRecord = &rec
	m.announce(fmt.Sprintf("Lesson complete: %d WPM, %d%% accuracy, %d errors", rec.WPM, rec.Accuracy, rec.Errors))
	if rec.PracticeMode || m.deps.History == nil {
		return nil
	}
	if err := m.deps.History.RecordCompletion(ctx, rec); err != nil {
		return err
	}
	m.lastWPM = rec.WPM
	m.lastAcc = rec.Accuracy
	m.hasLast = true
	m.allWPM = (m.allWPM*m.historySize + rec.WPM) / (m.historySize + 1)
	m.allAcc = (m.allAcc*m.historySize + rec.Accuracy) / (m.historySize + 1)
	m.historySize++
	return nil
}

func (m *Model) nextLesson() {
	current := m.session.Lesson()
	pool := m.deps.Catalog.Filter(m.config.Lang, m.config.Topic)
	if len(pool) == 0 {
		pool = m.deps.Catalog.All()
	}
	var (
		next model.Lesson
		ok   bool
	)
	if m.config.FocusWeak && m.deps.History != nil {
		aggs, err := m.deps.History.LessonAggregates(context.Background(), m.config.WeakWindow, m.config.Lang)
		if err != nil {
			m.log.WithError(err).Warn("failed to load lesson accuracy")
		}
		next, ok = m.deps.Generator.PickWeighted(pool, current.ID, aggs, m.config.WeakFactor)
	} else {
		next, ok = m.deps.Generator.Pick(pool, current.ID)
	}
	if !ok {
		var err error
		if next, err = m.deps.Catalog.Next(current.ID); err != nil {
			next = current
		}
	}
	m.startSession(next)
	m.announce("Next lesson: " + next.Title)
}

func (m *Model) loadFooterStats() {
	if m.deps.History == nil {
		return
	}
	records, err := m.deps.History.ListCompletions(context.Background(), model.StatsConfig{Lang: m.config.Lang})
	if err != nil {
		m.log.WithError(err).Warn("failed to load progress history")
		return
	}
	if len(records) == 0 {
		return
	}
	last := records[len(records)-1]
	m.lastWPM = last.WPM
	m.lastAcc = last.Accuracy
	m.hasLast = true
	sum := stats.Summarize(records, m.deps.Now())
	m.allWPM = sum.AvgWPM
	m.allAcc = sum.AvgAccuracy
	m.historySize = sum.Count
}

func (m *Model) contentWidth() int {
	return max(1, int(float64(m.width)*0.70))
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.session == nil {
		return ""
	}
	styled := buildStyledRunes(m.session.Stream(), m.snap)
	if m.width == 0 || m.height == 0 {
		return renderStyledRunes(styled)
	}
	width := m.contentWidth()
	code := lipgloss.NewStyle().Width(width).Render(wrapStyledRunes(styled, width))

	sections := []string{m.renderTitle(), "", code, ""}
	if m.snap.Completed {
		sections = append(sections, m.renderCompletion())
	} else {
		sections = append(sections, m.renderMetrics(), m.progress.ViewAs(float64(m.snap.Progress())/100))
	}
	sections = append(sections, announceStyle.Render(m.announcement))
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	footer := m.renderFooter()
	helpLine := m.help.View(m.keys)
	if m.height < 5 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-2, lipgloss.Center, lipgloss.Center, content)
	return body + "\n" +
		lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer) + "\n" +
		lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, helpLine)
}

func (m *Model) renderTitle() string {
	l := m.session.Lesson()
	parts := []string{titleStyle.Render(l.Title), l.Language, string(l.Difficulty)}
	if m.snap.PracticeMode {
		parts = append(parts, "practice")
	}
	return strings.Join(parts, footerStyle.Render(" · "))
}

func (m *Model) renderMetrics() string {
	mt := m.snap.Metrics
	elapsed := m.snap.Elapsed.Truncate(time.Second)
	line := fmt.Sprintf("WPM %d  CPM %d  ACC %d%%  Errors %d  Time %s  %s",
		mt.WPM, mt.CPM, mt.Accuracy, m.snap.ErrorCount, stats.FormatDuration(elapsed), m.snap.State)
	return metricsStyle.Render(line)
}

func (m *Model) renderCompletion() string {
	mt := m.snap.Metrics
	lines := []string{
		titleStyle.Render("Lesson complete"),
		"",
		fmt.Sprintf("WPM       %d", mt.WPM),
		fmt.Sprintf("CPM       %d", mt.CPM),
		fmt.Sprintf("Accuracy  %d%%", mt.Accuracy),
		fmt.Sprintf("Errors    %d", m.snap.ErrorCount),
		fmt.Sprintf("Time      %s", stats.FormatDuration(m.snap.Elapsed)),
	}
	if m.snap.PracticeMode {
		lines = append(lines, "", footerStyle.Render("Practice run, not saved"))
	}
	lines = append(lines, "", footerStyle.Render("r retry · n next lesson · ctrl+q quit"))
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("Progress %d%%", m.snap.Progress())}
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %d WPM · %d%%", m.lastWPM, m.lastAcc))
	}
	if m.historySize > 0 {
		segments = append(segments, fmt.Sprintf("All-time %d WPM · %d%%", m.allWPM, m.allAcc))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

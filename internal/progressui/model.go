// Package progressui provides the Bubble Tea progress dashboard.
package progressui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"

	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/stats"
)

const (
	tabOverview = iota
	tabHistory
	tabLanguages
)

const (
	plotHeight  = 8
	maxWindow   = 50
	dateLayout  = "2006-01-02"
	fieldLang   = 0
	fieldSince  = 1
	fieldLast   = 2
	fieldWindow = 3
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// Model implements the Bubble Tea progress dashboard.
type Model struct {
	src stats.Source
	cfg model.StatsConfig
	now func() time.Time

	report stats.Report
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	history   table.Model

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

// NewModel constructs a dashboard over src.
func NewModel(src stats.Source, cfg model.StatsConfig, now func() time.Time) *Model {
	if now == nil {
		now = time.Now
	}
	m := &Model{
		src:  src,
		cfg:  cfg,
		now:  now,
		tabs: []string{"Overview", "History", "Languages"},
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.history = table.New(table.WithColumns(historyColumns()), table.WithStyles(historyStyles()))
	m.filterInputs = []textinput.Model{
		newFilterInput("Lang: "),
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Curve window: "),
	}
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, nil
		case "right", "l", "tab":
			m.moveTab(1)
			return m, nil
		case "=", "+":
			m.cfg.CurveWindow = min(maxWindow, max(1, m.cfg.CurveWindow)+1)
			m.renderTabContents()
			return m, nil
		case "-":
			m.cfg.CurveWindow = max(1, m.cfg.CurveWindow-1)
			m.renderTabContents()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			m.gotoEdge(true)
			return m, nil
		case "G", "end":
			m.gotoEdge(false)
			return m, nil
		}
		var cmd tea.Cmd
		if m.activeTab == tabHistory {
			m.history, cmd = m.history.Update(msg)
			return m, cmd
		}
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderTabs()+"\n"+m.renderFilterSummary(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	return input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(activeNavStyle.Render("X")) + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.history.SetWidth(m.width)
	m.history.SetHeight(max(1, bodyHeight-1))
	for i := range m.filterInputs {
		m.filterInputs[i].Width = max(10, m.width-lipgloss.Width(m.filterInputs[i].Prompt)-2)
	}
}

func (m *Model) moveTab(delta int) {
	m.activeTab = (m.activeTab + delta + len(m.tabs)) % len(m.tabs)
	if m.activeTab == tabHistory {
		m.history.Focus()
	} else {
		m.history.Blur()
	}
}

func (m *Model) gotoEdge(top bool) {
	switch {
	case m.activeTab == tabHistory && top:
		m.history.GotoTop()
	case m.activeTab == tabHistory:
		m.history.GotoBottom()
	case top:
		m.viewports[m.activeTab].GotoTop()
	default:
		m.viewports[m.activeTab].GotoBottom()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts[i] = activeNavStyle.Render(tab)
		} else {
			parts[i] = inactiveNavStyle.Render(tab)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderFilterSummary() string {
	lang := lo.Ternary(m.cfg.Lang == "", "any", m.cfg.Lang)
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format(dateLayout)
	}
	last := lo.Ternary(m.cfg.Last > 0, strconv.Itoa(m.cfg.Last), "all")
	summary := fmt.Sprintf("Filters: lang=%s  since=%s  last=%s  window=%d", lang, since, last, m.cfg.CurveWindow)
	return headerStyle.Render(runewidth.Truncate(summary, m.width, "..."))
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	help := headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Filters: /  Quit: q")
	if m.errMsg != "" {
		return help + "\n" + errorStyle.Render(m.errMsg)
	}
	return help
}

func (m *Model) renderBody() string {
	if m.filterMode {
		lines := []string{"Filters (enter to apply, esc to cancel)"}
		for _, input := range m.filterInputs {
			lines = append(lines, input.View())
		}
		if m.filterError != "" {
			lines = append(lines, errorStyle.Render(m.filterError))
		}
		return strings.Join(lines, "\n")
	}
	if m.activeTab == tabHistory {
		if len(m.report.Records) == 0 {
			return "No completed lessons yet."
		}
		return m.history.View()
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.src, m.cfg, m.now())
	if err != nil {
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load progress.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	m.history.SetRows(historyRows(report.Records))
	m.history.GotoBottom()
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		return
	}
	m.report.CurveWindow = m.cfg.CurveWindow
	width := lo.Ternary(m.width > 0, m.width, 80)
	m.viewports[tabOverview].SetContent(renderOverview(m.report, width))
	m.viewports[tabLanguages].SetContent(renderLanguages(m.report))
}

func renderOverview(r stats.Report, width int) string {
	if len(r.Records) == 0 {
		return "No completed lessons yet."
	}
	s := r.Summary
	cards := []string{
		metricCard("Lessons", strconv.Itoa(s.Count)),
		metricCard("Avg WPM", strconv.Itoa(s.AvgWPM)),
		metricCard("Best WPM", strconv.Itoa(s.BestWPM)),
		metricCard("Avg Acc", fmt.Sprintf("%d%%", s.AvgAccuracy)),
		metricCard("Improvement", fmt.Sprintf("%+d%%", s.ImprovementRate)),
		metricCard("Consistency", fmt.Sprintf("%d%%", s.Consistency)),
		metricCard("Time", stats.FormatDuration(s.TotalTime)),
	}
	var cardBlock string
	if width < 80 {
		cardBlock = strings.Join(cards, "\n")
	} else {
		cardBlock = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Top, cards[:4]...),
			lipgloss.JoinHorizontal(lipgloss.Top, cards[4:]...),
		)
	}
	var buf bytes.Buffer
	if err := stats.PlotSeries(&buf, "Learning Curves", r.Curves(), stats.PlotWidthFor(width), plotHeight, true); err != nil {
		return cardBlock + "\n\n" + fmt.Sprintf("Failed to render curves: %v", err)
	}
	if err := stats.RenderWeak(&buf, r.Weak); err != nil {
		return cardBlock + "\n\n" + fmt.Sprintf("Failed to render weak lessons: %v", err)
	}
	return strings.TrimRight(cardBlock+"\n\n"+buf.String(), "\n")
}

func renderLanguages(r stats.Report) string {
	var buf bytes.Buffer
	if len(r.Records) > 0 {
		if err := stats.RenderLanguages(&buf, r.Summary.Languages); err != nil {
			return fmt.Sprintf("Failed to render languages: %v", err)
		}
	}
	if err := stats.RenderWeekly(&buf, r.Summary.Weekly); err != nil {
		return fmt.Sprintf("Failed to render weekly progress: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func metricCard(label, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func historyColumns() []table.Column {
	widths := []int{16, 22, 6, 5, 5, 5, 6, 7}
	cols := make([]table.Column, len(stats.HistoryHeaders))
	for i, title := range stats.HistoryHeaders {
		cols[i] = table.Column{Title: title, Width: widths[i]}
	}
	return cols
}

func historyRows(records []model.CompletedLesson) []table.Row {
	return lo.Map(records, func(r model.CompletedLesson, _ int) table.Row {
		return table.Row(stats.HistoryRow(r))
	})
}

func historyStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.filterInputs[fieldLang].SetValue(m.cfg.Lang)
	m.filterInputs[fieldSince].SetValue("")
	if m.cfg.Since != nil {
		m.filterInputs[fieldSince].SetValue(m.cfg.Since.Format(dateLayout))
	}
	m.filterInputs[fieldLast].SetValue(lo.Ternary(m.cfg.Last > 0, strconv.Itoa(m.cfg.Last), ""))
	m.filterInputs[fieldWindow].SetValue(strconv.Itoa(m.cfg.CurveWindow))
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterMode = false
		return m, nil
	case "enter":
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case "tab", "down":
		return m, m.setFilterIndex((m.filterIndex + 1) % len(m.filterInputs))
	case "shift+tab", "up":
		return m, m.setFilterIndex((m.filterIndex - 1 + len(m.filterInputs)) % len(m.filterInputs))
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == idx {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	cfg := m.cfg
	cfg.Lang = strings.TrimSpace(m.filterInputs[fieldLang].Value())

	cfg.Since = nil
	if raw := strings.TrimSpace(m.filterInputs[fieldSince].Value()); raw != "" {
		since, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			return fmt.Errorf("since must be YYYY-MM-DD")
		}
		cfg.Since = &since
	}

	cfg.Last = 0
	if raw := strings.TrimSpace(m.filterInputs[fieldLast].Value()); raw != "" {
		last, err := strconv.Atoi(raw)
		if err != nil || last < 0 {
			return fmt.Errorf("last must be a non-negative number")
		}
		cfg.Last = last
	}

	window, err := strconv.Atoi(strings.TrimSpace(m.filterInputs[fieldWindow].Value()))
	if err != nil || window < 1 || window > maxWindow {
		return fmt.Errorf("curve window must be between 1 and %d", maxWindow)
	}
	cfg.CurveWindow = window
	m.cfg = cfg
	return nil
}

func fitLines(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w < width {
			lines[i] = line + strings.Repeat(" ", width-w)
		}
	}
	return strings.Join(lines, "\n")
}

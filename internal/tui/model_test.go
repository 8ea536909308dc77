package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/codetype/internal/generator"
	"github.com/verte-zerg/codetype/internal/lesson"
	"github.com/verte-zerg/codetype/internal/logging"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/typing"
)

type fakeHistory struct {
	records []model.CompletedLesson
	aggs    map[string]model.LessonAggregate
}

func (f *fakeHistory) ListCompletions(context.Context, model.StatsConfig) ([]model.CompletedLesson, error) {
	return f.records, nil
}

func (f *fakeHistory) RecordCompletion(_ context.Context, rec model.CompletedLesson) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeHistory) LessonAggregates(context.Context, int, string) (map[string]model.LessonAggregate, error) {
	return f.aggs, nil
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(500 * time.Millisecond)
	return c.now
}

var testLessons = []model.Lesson{
	{ID: "go-a", Language: "go", Topic: "basics", Title: "A", Difficulty: model.Beginner, Code: "ab"},
	{ID: "go-b", Language: "go", Topic: "basics", Title: "B", Difficulty: model.Beginner, Code: "x\ny"},
}

func newTestModel(t *testing.T, cfg model.Config, history *fakeHistory) *Model {
	t.Helper()
	catalog, err := lesson.NewCatalog(testLessons)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	cfg.TickInterval = -1
	clock := &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	m, err := NewModel(cfg, testLessons[0], Deps{
		Catalog:   catalog,
		History:   history,
		Generator: generator.NewWithSeed(1),
		Logger:    logging.Discard(),
		Now:       clock.Now,
	})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m *Model, msgs ...tea.Msg) {
	for _, msg := range msgs {
		m.Update(msg)
	}
}

func TestTypingCompletesAndRecords(t *testing.T) {
	history := &fakeHistory{}
	m := newTestModel(t, model.Config{Lang: "go"}, history)

	send(m, runes("a"))
	if m.Snapshot().State != typing.StateRunning {
		t.Fatalf("expected running after first key, got %s", m.Snapshot().State)
	}
	if m.announcement != "50% complete" {
		t.Fatalf("unexpected announcement %q", m.announcement)
	}
	send(m, runes("x"))
	snap := m.Snapshot()
	if !snap.Completed || snap.ErrorCount != 1 {
		t.Fatalf("expected completion with one error, got %+v", snap)
	}
	if len(history.records) != 1 {
		t.Fatalf("expected one stored record, got %d", len(history.records))
	}
	if history.records[0].LessonID != "go-a" || history.records[0].Accuracy != 50 {
		t.Fatalf("unexpected record %+v", history.records[0])
	}
	if !strings.HasPrefix(m.announcement, "Lesson complete") {
		t.Fatalf("expected completion announcement, got %q", m.announcement)
	}

	// Keys after completion are ignored until retry.
	send(m, runes("z"))
	if len(history.records) != 1 {
		t.Fatalf("expected no further records")
	}
	send(m, runes("r"))
	if m.Snapshot().State != typing.StateIdle || m.Snapshot().LessonID != "go-a" {
		t.Fatalf("expected idle retry of same lesson, got %+v", m.Snapshot())
	}
}

func TestPracticeModeSkipsStore(t *testing.T) {
	history := &fakeHistory{}
	m := newTestModel(t, model.Config{PracticeMode: true}, history)
	send(m, runes("ab"))
	if !m.Snapshot().Completed {
		t.Fatalf("expected completion")
	}
	if len(history.records) != 0 {
		t.Fatalf("expected practice run to skip the store")
	}
	if m.lastRecord == nil || !m.lastRecord.PracticeMode {
		t.Fatalf("expected practice record to be kept in the UI")
	}
}

func TestPauseAndReset(t *testing.T) {
	m := newTestModel(t, model.Config{}, &fakeHistory{})
	send(m, runes("a"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.Snapshot().State != typing.StatePaused {
		t.Fatalf("expected paused, got %s", m.Snapshot().State)
	}
	if m.announcement != "Typing paused" {
		t.Fatalf("unexpected announcement %q", m.announcement)
	}
	send(m, tea.KeyMsg{Type: tea.KeyCtrlR})
	snap := m.Snapshot()
	if snap.State != typing.StateIdle || snap.CursorIndex != 0 || snap.StartedAt != nil {
		t.Fatalf("expected reset to idle, got %+v", snap)
	}
	if m.announcement != "Lesson reset" {
		t.Fatalf("unexpected announcement %q", m.announcement)
	}
}

func TestStartKeyRunsWithoutTyping(t *testing.T) {
	m := newTestModel(t, model.Config{}, &fakeHistory{})
	send(m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.Snapshot().State != typing.StateRunning {
		t.Fatalf("expected running, got %s", m.Snapshot().State)
	}
	if m.Snapshot().StartedAt == nil {
		t.Fatalf("expected start time")
	}
}

func TestEnterTypesNewline(t *testing.T) {
	m := newTestModel(t, model.Config{}, &fakeHistory{})
	m.startSession(testLessons[1])
	send(m, runes("x"), tea.KeyMsg{Type: tea.KeyEnter})
	snap := m.Snapshot()
	if snap.CursorIndex != 2 || snap.ErrorCount != 0 {
		t.Fatalf("expected newline typed correctly, got %+v", snap)
	}
}

func TestPasteIsIgnored(t *testing.T) {
	m := newTestModel(t, model.Config{}, &fakeHistory{})
	send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("ab"), Paste: true})
	if m.Snapshot().CursorIndex != 0 {
		t.Fatalf("expected paste to be ignored")
	}
}

func TestNextLessonAvoidsCurrent(t *testing.T) {
	m := newTestModel(t, model.Config{Lang: "go", FocusWeak: true, WeakFactor: 2, WeakWindow: 10}, &fakeHistory{})
	send(m, runes("ab"), runes("n"))
	if got := m.Snapshot().LessonID; got != "go-b" {
		t.Fatalf("expected next lesson go-b, got %s", got)
	}
	if m.announcement != "Next lesson: B" {
		t.Fatalf("unexpected announcement %q", m.announcement)
	}
}

func TestFooterLoadsHistory(t *testing.T) {
	history := &fakeHistory{records: []model.CompletedLesson{
		{LessonID: "go-a", WPM: 30, Accuracy: 90},
		{LessonID: "go-b", WPM: 50, Accuracy: 100},
	}}
	m := newTestModel(t, model.Config{}, history)
	if !m.hasLast || m.lastWPM != 50 || m.allWPM != 40 || m.allAcc != 95 {
		t.Fatalf("unexpected footer stats: last=%d all=%d/%d", m.lastWPM, m.allWPM, m.allAcc)
	}
}

func TestSnapshotMessagesRefresh(t *testing.T) {
	m := newTestModel(t, model.Config{}, &fakeHistory{})
	m.session.Start()
	if m.Snapshot().State != typing.StateIdle {
		t.Fatalf("expected cached snapshot until the update is delivered")
	}
	msg := m.Init()()
	send(m, msg)
	if m.Snapshot().State != typing.StateRunning {
		t.Fatalf("expected refreshed snapshot, got %s", m.Snapshot().State)
	}
}

func TestViewRendersPanels(t *testing.T) {
	m := newTestModel(t, model.Config{}, &fakeHistory{})
	send(m, tea.WindowSizeMsg{Width: 100, Height: 30})
	if view := m.View(); !strings.Contains(view, "WPM 0") {
		t.Fatalf("expected metrics bar in view:\n%s", view)
	}
	send(m, runes("ab"))
	if view := m.View(); !strings.Contains(view, "Lesson complete") || !strings.Contains(view, "r retry") {
		t.Fatalf("expected completion panel in view:\n%s", view)
	}
}

func TestLessonChangesReloadCatalog(t *testing.T) {
	catalog, err := lesson.NewCatalog(testLessons[:1])
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	reloaded := []model.Lesson{
		testLessons[0],
		{ID: "custom-c", Language: "go", Topic: "basics", Title: "C", Difficulty: model.Beginner, Code: "c"},
	}
	loads := 0
	changes := make(chan string, 1)
	m, err := NewModel(model.Config{Lang: "go", TickInterval: -1}, testLessons[0], Deps{
		Catalog:       catalog,
		Generator:     generator.NewWithSeed(1),
		Logger:        logging.Discard(),
		LessonChanges: changes,
		LoadCatalog: func() (*lesson.Catalog, error) {
			loads++
			if loads > 1 {
				return nil, errors.New("bad toml")
			}
			return lesson.NewCatalog(reloaded)
		},
	})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	t.Cleanup(m.Close)

	changes <- "/lessons/custom-c.toml"
	msg := m.waitForLessonChange()()
	send(m, msg)
	if m.deps.Catalog.Len() != 2 {
		t.Fatalf("expected reloaded catalog, got %d lessons", m.deps.Catalog.Len())
	}
	if m.announcement != "Lessons reloaded (2 available)" {
		t.Fatalf("unexpected announcement %q", m.announcement)
	}

	send(m, runes("ab"), runes("n"))
	if got := m.Snapshot().LessonID; got != "custom-c" {
		t.Fatalf("expected next lesson from reloaded catalog, got %s", got)
	}

	changes <- "/lessons/broken.toml"
	send(m, m.waitForLessonChange()())
	if loads != 2 || m.deps.Catalog.Len() != 2 {
		t.Fatalf("expected failed reload to keep the catalog, loads=%d len=%d", loads, m.deps.Catalog.Len())
	}
	if !strings.HasPrefix(m.announcement, "Lessons not reloaded") {
		t.Fatalf("unexpected announcement %q", m.announcement)
	}
}

func TestLessonChangesDisabledWithoutLoader(t *testing.T) {
	m := newTestModel(t, model.Config{}, &fakeHistory{})
	if cmd := m.waitForLessonChange(); cmd != nil {
		t.Fatalf("expected no watch command without a change channel")
	}
}

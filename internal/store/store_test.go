package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/codetype/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "codetype.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return s
}

func completion(id, lessonID, lang string, at time.Time, wpm, acc int) model.CompletedLesson {
	return model.CompletedLesson{
		ID:          id,
		LessonID:    lessonID,
		Language:    lang,
		Topic:       "loops",
		CompletedAt: at,
		WPM:         wpm,
		CPM:         wpm * 5,
		Accuracy:    acc,
		Errors:      100 - acc,
		TimeSpentMs: 30_000,
	}
}

func TestInsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	recs := []model.CompletedLesson{
		completion("b", "go-loops", "go", base.Add(time.Hour), 40, 95),
		completion("a", "js-loops", "js", base, 30, 90),
		completion("c", "go-maps", "go", base.Add(2*time.Hour), 50, 98),
	}
	recs[2].PracticeMode = true
	for _, rec := range recs {
		if err := s.InsertCompletion(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	all, err := s.ListCompletions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].ID != "a" || all[2].ID != "c" {
		t.Fatalf("expected oldest first, got %s..%s", all[0].ID, all[2].ID)
	}
	if !all[2].CompletedAt.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("completion time not preserved: %v", all[2].CompletedAt)
	}
	if !all[2].PracticeMode || all[0].PracticeMode {
		t.Fatalf("practice flag not preserved")
	}

	goOnly, err := s.ListCompletions(ctx, model.StatsConfig{Lang: "go"})
	if err != nil {
		t.Fatalf("list go: %v", err)
	}
	if len(goOnly) != 2 {
		t.Fatalf("expected 2 go records, got %d", len(goOnly))
	}

	since := base.Add(90 * time.Minute)
	recent, err := s.ListCompletions(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "c" {
		t.Fatalf("unexpected since filter result: %+v", recent)
	}

	last, err := s.ListCompletions(ctx, model.StatsConfig{Last: 2})
	if err != nil {
		t.Fatalf("list last: %v", err)
	}
	if len(last) != 2 || last[0].ID != "b" {
		t.Fatalf("unexpected last filter result: %+v", last)
	}
}

func TestInsertRequiresID(t *testing.T) {
	s := openTestStore(t)
	err := s.InsertCompletion(context.Background(), model.CompletedLesson{LessonID: "x", CompletedAt: time.Now()})
	if err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestLessonAggregates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	recs := []model.CompletedLesson{
		completion("1", "go-loops", "go", base, 30, 80),
		completion("2", "go-loops", "go", base.Add(time.Minute), 50, 100),
		completion("3", "js-loops", "js", base.Add(2*time.Minute), 40, 90),
	}
	for _, rec := range recs {
		if err := s.InsertCompletion(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	aggs, err := s.LessonAggregates(ctx, 10, "")
	if err != nil {
		t.Fatalf("aggregates: %v", err)
	}
	goAgg := aggs["go-loops"]
	if goAgg.Attempts != 2 || goAgg.AvgAccuracy != 90 || goAgg.AvgWPM != 40 {
		t.Fatalf("unexpected go aggregate: %+v", goAgg)
	}

	window, err := s.LessonAggregates(ctx, 2, "")
	if err != nil {
		t.Fatalf("aggregates window: %v", err)
	}
	if window["go-loops"].Attempts != 1 {
		t.Fatalf("expected window to keep only newest go attempt, got %+v", window["go-loops"])
	}

	jsOnly, err := s.LessonAggregates(ctx, 10, "js")
	if err != nil {
		t.Fatalf("aggregates js: %v", err)
	}
	if len(jsOnly) != 1 {
		t.Fatalf("expected 1 js lesson, got %d", len(jsOnly))
	}
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.InsertCompletion(ctx, completion("1", "go-loops", "go", time.Now(), 30, 90)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	n, err := s.Clear(ctx)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row removed, got %d", n)
	}
	all, err := s.ListCompletions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty history, got %d", len(all))
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, rec := range []model.CompletedLesson{
		completion("1", "go-loops", "go", base, 30, 90),
		completion("2", "py-lists", "py", base.Add(time.Minute), 45, 97),
	} {
		if err := src.InsertCompletion(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	custom := model.Lesson{
		ID:         "custom-1",
		Language:   "go",
		Topic:      "custom",
		Title:      "Mine",
		Difficulty: model.Beginner,
		Code:       "x := 1",
	}
	var buf bytes.Buffer
	if err := src.Export(ctx, &buf, base.Add(time.Hour), []model.Lesson{custom}); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), `"timeSpent": 30000`) {
		t.Fatalf("expected timeSpent in milliseconds, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), `"customLessons": [`) {
		t.Fatalf("expected custom lessons in export, got:\n%s", buf.String())
	}

	dst := openTestStore(t)
	data := buf.Bytes()
	var saved []model.Lesson
	save := func(l model.Lesson) error {
		saved = append(saved, l)
		return nil
	}
	res, err := dst.Import(ctx, bytes.NewReader(data), save)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Completions != 2 || res.Lessons != 1 {
		t.Fatalf("unexpected import result: %+v", res)
	}
	if len(saved) != 1 || saved[0].ID != "custom-1" || saved[0].Code != "x := 1" || !saved[0].Custom {
		t.Fatalf("unexpected saved lessons: %+v", saved)
	}
	again, err := dst.Import(ctx, bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if again.Completions != 0 || again.Lessons != 0 {
		t.Fatalf("expected duplicates to be skipped, got %+v", again)
	}
	all, err := dst.ListCompletions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[1].LessonID != "py-lists" || all[1].WPM != 45 {
		t.Fatalf("unexpected imported history: %+v", all)
	}
}

func TestImportMalformed(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cases := map[string]string{
		"not json":        "{nope",
		"missing version": `{"progress": []}`,
		"bad record":      `{"version": "1.0", "progress": [{"id": "x", "lessonId": "", "completedAt": "2026-01-01T00:00:00Z"}]}`,
		"bad accuracy":    `{"version": "1.0", "progress": [{"id": "x", "lessonId": "go-loops", "completedAt": "2026-01-01T00:00:00Z", "accuracy": 140}]}`,
		"lesson path id":  `{"version": "1.0", "progress": [], "customLessons": [{"id": "../evil", "language": "go", "difficulty": "beginner", "code": "x"}]}`,
		"lesson no code":  `{"version": "1.0", "progress": [], "customLessons": [{"id": "custom-2", "language": "go", "difficulty": "beginner", "code": ""}]}`,
		"mixed lesson":    `{"version": "1.0", "progress": [{"id": "y", "lessonId": "go-loops", "completedAt": "2026-01-01T00:00:00Z", "accuracy": 90}], "customLessons": [{"id": "", "language": "go", "difficulty": "beginner", "code": "x"}]}`,
	}
	saves := 0
	save := func(model.Lesson) error {
		saves++
		return nil
	}
	for name, input := range cases {
		_, err := s.Import(ctx, strings.NewReader(input), save)
		if !errors.Is(err, ErrMalformedImport) {
			t.Fatalf("%s: expected ErrMalformedImport, got %v", name, err)
		}
	}
	if saves != 0 {
		t.Fatalf("expected no lessons saved after malformed imports, got %d", saves)
	}
	all, err := s.ListCompletions(ctx, model.StatsConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no rows after malformed imports, got %d", len(all))
	}
}

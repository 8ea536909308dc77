package lesson

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/codetype/internal/model"
)

func TestBuiltinLessons(t *testing.T) {
	lessons, err := Builtin()
	if err != nil {
		t.Fatalf("load built-in lessons: %v", err)
	}
	if len(lessons) < 40 {
		t.Fatalf("expected at least 40 built-in lessons, got %d", len(lessons))
	}
	for _, l := range lessons {
		if strings.Contains(l.Code, "\r") {
			t.Fatalf("lesson %s has carriage returns", l.ID)
		}
		for _, line := range strings.Split(l.Code, "\n") {
			if strings.HasSuffix(line, " ") {
				t.Fatalf("lesson %s has trailing spaces in %q", l.ID, line)
			}
		}
	}
}

func TestCatalogLookups(t *testing.T) {
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	l, err := c.Find("js-loops")
	if err != nil {
		t.Fatalf("find js-loops: %v", err)
	}
	if l.Language != "js" || l.Topic != "loops" {
		t.Fatalf("unexpected lesson: %+v", l)
	}
	if _, err := c.Find("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	byTopic, err := c.ByTopic("py", "lists")
	if err != nil || byTopic.ID != "py-lists" {
		t.Fatalf("unexpected ByTopic result: %+v, %v", byTopic, err)
	}
	langs := c.Languages()
	if strings.Join(langs, ",") != "cpp,css,go,html,js,py" {
		t.Fatalf("unexpected languages: %v", langs)
	}
	for _, l := range c.ByLanguage("go") {
		if l.Language != "go" {
			t.Fatalf("ByLanguage returned %s", l.Language)
		}
	}
	next, err := c.Next("js-variables")
	if err != nil || next.ID != "js-loops" {
		t.Fatalf("unexpected next lesson: %+v, %v", next, err)
	}
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	l := model.Lesson{ID: "a", Language: "go", Code: "x", Difficulty: model.Beginner}
	if _, err := NewCatalog([]model.Lesson{l}, []model.Lesson{l}); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestNormalizeCode(t *testing.T) {
	got := NormalizeCode("a  \r\nb\t\r\n\r\n")
	if got != "a\nb" {
		t.Fatalf("unexpected normalized code %q", got)
	}
}

func TestCustomLessonRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l, err := NewCustom(CustomSpec{
		Title:    "Fizz",
		Language: "Go",
		Code:     "for i := 0; i < 3; i++ {\r\n\tfmt.Println(i)  \r\n}\r\n",
	}, time.Unix(1_700_000_000, 0))
	if err != nil {
		t.Fatalf("new custom: %v", err)
	}
	if !strings.HasPrefix(l.ID, "custom-") {
		t.Fatalf("unexpected id %s", l.ID)
	}
	if l.Topic != "custom" || l.Language != "go" || l.Difficulty != model.Beginner {
		t.Fatalf("unexpected defaults: %+v", l)
	}
	path, err := SaveCustom(dir, l)
	if err != nil {
		t.Fatalf("save custom: %v", err)
	}
	if filepath.Base(path) != l.ID+".toml" {
		t.Fatalf("unexpected path %s", path)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	got, err := c.Find(l.ID)
	if err != nil {
		t.Fatalf("find custom: %v", err)
	}
	if !got.Custom || got.Code != "for i := 0; i < 3; i++ {\n\tfmt.Println(i)\n}" {
		t.Fatalf("unexpected loaded lesson: %+v", got)
	}

	if err := DeleteCustom(dir, l.ID); err != nil {
		t.Fatalf("delete custom: %v", err)
	}
	if err := DeleteCustom(dir, l.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := DeleteCustom(dir, "js-loops"); err == nil {
		t.Fatalf("expected built-in id to be rejected")
	}
}

func TestNewCustomValidates(t *testing.T) {
	if _, err := NewCustom(CustomSpec{Title: "x", Language: "go"}, time.Now()); err == nil {
		t.Fatalf("expected empty code to be rejected")
	}
	if _, err := NewCustom(CustomSpec{Language: "go", Code: "x"}, time.Now()); err == nil {
		t.Fatalf("expected empty title to be rejected")
	}
	if _, err := NewCustom(CustomSpec{Title: "x", Language: "go", Code: "x", Difficulty: "expert"}, time.Now()); err == nil {
		t.Fatalf("expected unknown difficulty to be rejected")
	}
}

func TestSaveCustomRejectsUnsafeIDs(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"", "../escape", `a\b`, ".hidden"} {
		if err := ValidateCustomID(id); err == nil {
			t.Fatalf("expected %q to be rejected", id)
		}
		l := model.Lesson{ID: id, Language: "go", Difficulty: model.Beginner, Code: "x"}
		if _, err := SaveCustom(dir, l); err == nil {
			t.Fatalf("expected SaveCustom to reject %q", id)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files written, got %d", len(entries))
	}
	if err := ValidateCustomID("hand-written"); err != nil {
		t.Fatalf("expected plain id to be accepted: %v", err)
	}
}

func TestLoadDirSkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	lessons, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(lessons) != 0 {
		t.Fatalf("expected no lessons, got %d", len(lessons))
	}
	if lessons, err := LoadDir(filepath.Join(dir, "missing")); err != nil || lessons != nil {
		t.Fatalf("expected nil for missing dir, got %v, %v", lessons, err)
	}
}

func TestWatcherReportsNewLesson(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(path string) { changed <- path }, nil)
	}()

	l, err := NewCustom(CustomSpec{Title: "w", Language: "go", Code: "x"}, time.Now())
	if err != nil {
		t.Fatalf("new custom: %v", err)
	}
	if _, err := SaveCustom(dir, l); err != nil {
		t.Fatalf("save custom: %v", err)
	}
	select {
	case path := <-changed:
		if filepath.Base(path) != l.ID+".toml" {
			t.Fatalf("unexpected changed path %s", path)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("expected change notification")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

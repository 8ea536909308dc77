// Package lesson loads built-in and custom typing lessons.
package lesson

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/codetype/internal/model"
)

// ErrNotFound is returned when no lesson matches a lookup.
var ErrNotFound = errors.New("lesson not found")

//go:embed builtin.toml
var builtinData string

type lessonFile struct {
	Lessons []model.Lesson `toml:"lessons"`
}

// Builtin returns the lessons shipped with the binary.
func Builtin() ([]model.Lesson, error) {
	var f lessonFile
	if _, err := toml.Decode(builtinData, &f); err != nil {
		return nil, fmt.Errorf("failed to decode built-in lessons: %w", err)
	}
	out := make([]model.Lesson, 0, len(f.Lessons))
	for _, l := range f.Lessons {
		l = normalizeLesson(l)
		if err := Validate(l); err != nil {
			return nil, fmt.Errorf("built-in lesson %q: %w", l.ID, err)
		}
		out = append(out, l)
	}
	return out, nil
}

// LoadFile reads a single custom lesson from a TOML file.
func LoadFile(path string) (model.Lesson, error) {
	var l model.Lesson
	if _, err := toml.DecodeFile(path, &l); err != nil {
		return model.Lesson{}, fmt.Errorf("failed to decode lesson %s: %w", path, err)
	}
	l = normalizeLesson(l)
	l.Custom = true
	if err := Validate(l); err != nil {
		return model.Lesson{}, fmt.Errorf("invalid lesson %s: %w", path, err)
	}
	return l, nil
}

// LoadDir reads every *.toml lesson in dir. A missing directory yields no
// lessons.
func LoadDir(dir string) ([]model.Lesson, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read lesson directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isLessonFile(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	lessons := make([]model.Lesson, 0, len(names))
	for _, name := range names {
		l, err := LoadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, l)
	}
	return lessons, nil
}

// Validate checks the fields every lesson needs.
func Validate(l model.Lesson) error {
	switch {
	case strings.TrimSpace(l.ID) == "":
		return fmt.Errorf("id must not be empty")
	case strings.TrimSpace(l.Language) == "":
		return fmt.Errorf("language must not be empty")
	case l.Code == "":
		return fmt.Errorf("code must not be empty")
	}
	switch l.Difficulty {
	case model.Beginner, model.Intermediate, model.Advanced:
		return nil
	default:
		return fmt.Errorf("unknown difficulty %q", l.Difficulty)
	}
}

// NormalizeCode converts line endings to \n and strips trailing whitespace
// from every line.
func NormalizeCode(code string) string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	code = strings.ReplaceAll(code, "\r", "\n")
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func normalizeLesson(l model.Lesson) model.Lesson {
	l.ID = strings.TrimSpace(l.ID)
	l.Language = strings.ToLower(strings.TrimSpace(l.Language))
	l.Topic = strings.ToLower(strings.TrimSpace(l.Topic))
	l.Code = NormalizeCode(l.Code)
	if l.Difficulty == "" {
		l.Difficulty = model.Beginner
	}
	return l
}

func isLessonFile(name string) bool {
	return strings.HasSuffix(name, ".toml") && !strings.HasPrefix(name, ".")
}

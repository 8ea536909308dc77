package lesson

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/verte-zerg/codetype/internal/model"
)

const customPrefix = "custom-"

// CustomSpec describes a user-authored lesson.
type CustomSpec struct {
	Title       string
	Description string
	Language    string
	Topic       string
	Difficulty  model.Difficulty
	Author      string
	Code        string
}

// NewCustom builds a validated custom lesson with a fresh id.
func NewCustom(opts CustomSpec, now time.Time) (model.Lesson, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return model.Lesson{}, fmt.Errorf("title must not be empty")
	}
	l := normalizeLesson(model.Lesson{
		ID:          customPrefix + uuid.NewString(),
		Language:    opts.Language,
		Topic:       opts.Topic,
		Title:       strings.TrimSpace(opts.Title),
		Difficulty:  opts.Difficulty,
		Description: opts.Description,
		Code:        opts.Code,
		Author:      opts.Author,
		CreatedAt:   now.UTC().Truncate(time.Second),
	})
	if l.Topic == "" {
		l.Topic = "custom"
	}
	l.Custom = true
	if err := Validate(l); err != nil {
		return model.Lesson{}, err
	}
	return l, nil
}

// ValidateCustomID reports whether id can name a custom lesson file.
func ValidateCustomID(id string) error {
	if id == "" || strings.HasPrefix(id, ".") || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%q is not a valid lesson id", id)
	}
	return nil
}

// SaveCustom writes l into dir as <id>.toml via a temp file and rename.
func SaveCustom(dir string, l model.Lesson) (path string, err error) {
	if err := ValidateCustomID(l.ID); err != nil {
		return "", err
	}
	if err := Validate(l); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create lesson directory: %w", err)
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(l); err != nil {
		return "", fmt.Errorf("failed to encode lesson: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".lesson-*.toml")
	if err != nil {
		return "", fmt.Errorf("failed to create temp lesson: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err = tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write lesson: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close lesson: %w", err)
	}
	path = filepath.Join(dir, l.ID+".toml")
	if err = os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to write lesson: %w", err)
	}
	return path, nil
}

// DeleteCustom removes the custom lesson with the given id from dir.
func DeleteCustom(dir, id string) error {
	if !strings.HasPrefix(id, customPrefix) || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%q is not a custom lesson id", id)
	}
	if err := os.Remove(filepath.Join(dir, id+".toml")); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	return nil
}

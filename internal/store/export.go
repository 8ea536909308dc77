package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/codetype/internal/lesson"
	"github.com/verte-zerg/codetype/internal/model"
)

// ExportVersion tags the export document format.
const ExportVersion = "1.0"

// ErrMalformedImport is returned when import data cannot be parsed. No rows
// are written in that case.
var ErrMalformedImport = errors.New("malformed import data")

// Export is the JSON document written by Export and read by Import.
type Export struct {
	Version       string                  `json:"version"`
	ExportedAt    time.Time               `json:"exportedAt"`
	Progress      []model.CompletedLesson `json:"progress"`
	CustomLessons []model.Lesson          `json:"customLessons"`
}

// ImportResult counts what an import added.
type ImportResult struct {
	Completions int
	Lessons     int
}

// LessonSaver persists an imported custom lesson.
type LessonSaver func(model.Lesson) error

// Export writes the full history and the given custom lessons as indented
// JSON.
func (s *Store) Export(ctx context.Context, w io.Writer, now time.Time, customs []model.Lesson) error {
	records, err := s.ListCompletions(ctx, model.StatsConfig{})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if records == nil {
		records = []model.CompletedLesson{}
	}
	if customs == nil {
		customs = []model.Lesson{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Export{
		Version:       ExportVersion,
		ExportedAt:    now.UTC(),
		Progress:      records,
		CustomLessons: customs,
	})
}

// Import appends the records of an export document and passes its custom
// lessons to save. Records whose id already exists are skipped. A nil save
// ignores the lessons. Nothing is written when any entry is invalid.
func (s *Store) Import(ctx context.Context, r io.Reader, save LessonSaver) (ImportResult, error) {
	var doc Export
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrMalformedImport, err)
	}
	if err := validateImport(doc); err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, rec := range doc.Progress {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		var exists int
		if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM completed_lessons WHERE id = ?`, rec.ID).Scan(&exists); err != nil {
			return ImportResult{}, err
		}
		if exists > 0 {
			continue
		}
		if err = insertCompletion(ctx, tx, rec); err != nil {
			return ImportResult{}, err
		}
		res.Completions++
	}
	if save != nil {
		for _, l := range doc.CustomLessons {
			l.Custom = true
			if err = save(l); err != nil {
				return ImportResult{}, fmt.Errorf("failed to save lesson %s: %w", l.ID, err)
			}
			res.Lessons++
		}
	}
	if err = tx.Commit(); err != nil {
		return ImportResult{}, err
	}
	return res, nil
}

func validateImport(doc Export) error {
	if doc.Version == "" {
		return fmt.Errorf("%w: missing version", ErrMalformedImport)
	}
	for i, rec := range doc.Progress {
		if rec.LessonID == "" || rec.CompletedAt.IsZero() {
			return fmt.Errorf("%w: record %d lacks lesson id or completion time", ErrMalformedImport, i)
		}
		if rec.Accuracy < 0 || rec.Accuracy > 100 || rec.WPM < 0 || rec.Errors < 0 {
			return fmt.Errorf("%w: record %d has out-of-range metrics", ErrMalformedImport, i)
		}
	}
	for i, l := range doc.CustomLessons {
		if err := lesson.ValidateCustomID(l.ID); err != nil {
			return fmt.Errorf("%w: lesson %d: %v", ErrMalformedImport, i, err)
		}
		if err := lesson.Validate(l); err != nil {
			return fmt.Errorf("%w: lesson %d: %v", ErrMalformedImport, i, err)
		}
	}
	return nil
}

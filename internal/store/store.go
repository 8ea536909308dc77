// Package store handles SQLite persistence of completed lessons.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/codetype/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for progress history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS completed_lessons (
			id TEXT PRIMARY KEY,
			lesson_id TEXT NOT NULL,
			language TEXT NOT NULL,
			topic TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			wpm INTEGER NOT NULL,
			cpm INTEGER NOT NULL,
			accuracy INTEGER NOT NULL,
			errors INTEGER NOT NULL,
			time_spent_ms INTEGER NOT NULL,
			practice_mode INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_completed_lessons_completed_at ON completed_lessons(completed_at);`,
		`CREATE INDEX IF NOT EXISTS idx_completed_lessons_lesson ON completed_lessons(lesson_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// RecordCompletion implements typing.Recorder.
func (s *Store) RecordCompletion(ctx context.Context, rec model.CompletedLesson) error {
	return s.InsertCompletion(ctx, rec)
}

// InsertCompletion appends a completed lesson to the history.
func (s *Store) InsertCompletion(ctx context.Context, rec model.CompletedLesson) error {
	return insertCompletion(ctx, s.db, rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertCompletion(ctx context.Context, db execer, rec model.CompletedLesson) error {
	if rec.ID == "" {
		return fmt.Errorf("completed lesson has no id")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO completed_lessons (id, lesson_id, language, topic, completed_at, wpm, cpm, accuracy, errors, time_spent_ms, practice_mode)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.LessonID,
		rec.Language,
		rec.Topic,
		rec.CompletedAt.UTC().Format(time.RFC3339Nano),
		rec.WPM,
		rec.CPM,
		rec.Accuracy,
		rec.Errors,
		rec.TimeSpentMs,
		boolToInt(rec.PracticeMode),
	)
	return err
}

// ListCompletions returns completed lessons filtered by stats config, oldest
// first.
func (s *Store) ListCompletions(ctx context.Context, cfg model.StatsConfig) ([]model.CompletedLesson, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Lang != "" {
		clauses = append(clauses, "language = ?")
		args = append(args, cfg.Lang)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "completed_at >= ?")
		args = append(args, cfg.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, lesson_id, language, topic, completed_at, wpm, cpm, accuracy, errors, time_spent_ms, practice_mode
		FROM completed_lessons
		WHERE %s
		ORDER BY completed_at ASC, rowid ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var out []model.CompletedLesson
	for rows.Next() {
		var rec model.CompletedLesson
		var completedAt string
		var practice int
		if err := rows.Scan(&rec.ID, &rec.LessonID, &rec.Language, &rec.Topic, &completedAt,
			&rec.WPM, &rec.CPM, &rec.Accuracy, &rec.Errors, &rec.TimeSpentMs, &practice); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, completedAt)
		if err != nil {
			return nil, err
		}
		rec.CompletedAt = parsed
		rec.PracticeMode = practice != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(out) > cfg.Last {
		out = out[len(out)-cfg.Last:]
	}
	return out, nil
}

// LessonAggregates summarizes attempts per lesson over the most recent
// window completions.
func (s *Store) LessonAggregates(ctx context.Context, window int, lang string) (map[string]model.LessonAggregate, error) {
	if window <= 0 {
		return map[string]model.LessonAggregate{}, nil
	}
	query := `WITH recent AS (
		SELECT lesson_id, accuracy, wpm FROM completed_lessons
		WHERE (? = '' OR language = ?)
		ORDER BY completed_at DESC
		LIMIT ?
	)
	SELECT lesson_id, COUNT(*), AVG(accuracy), AVG(wpm)
	FROM recent
	GROUP BY lesson_id`

	rows, err := s.db.QueryContext(ctx, query, lang, lang, window)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[string]model.LessonAggregate{}
	for rows.Next() {
		var agg model.LessonAggregate
		if err := rows.Scan(&agg.LessonID, &agg.Attempts, &agg.AvgAccuracy, &agg.AvgWPM); err != nil {
			return nil, err
		}
		result[agg.LessonID] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Clear deletes the whole history and reports how many rows were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM completed_lessons`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

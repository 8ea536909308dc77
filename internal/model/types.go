// Package model defines shared data structures.
package model

import "time"

// Difficulty grades a lesson.
type Difficulty string

// Lesson difficulties.
const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Lesson is a named source-code snippet used as the typing target.
type Lesson struct {
	ID          string     `toml:"id" json:"id"`
	Language    string     `toml:"language" json:"language"`
	Topic       string     `toml:"topic" json:"topic"`
	Title       string     `toml:"title" json:"title"`
	Difficulty  Difficulty `toml:"difficulty" json:"difficulty"`
	Description string     `toml:"description" json:"description"`
	Code        string     `toml:"code" json:"code"`
	Custom      bool       `toml:"-" json:"custom,omitempty"`
	Author      string     `toml:"author,omitempty" json:"author,omitempty"`
	CreatedAt   time.Time  `toml:"created_at,omitempty" json:"createdAt,omitempty"`
}

// Config defines practice settings.
type Config struct {
	LessonID     string
	Lang         string
	Topic        string
	Random       bool
	PracticeMode bool
	PauseMode    string
	TickInterval time.Duration
	FocusWeak    bool
	WeakFactor   float64
	WeakWindow   int
}

// StatsConfig defines filters for progress reporting.
type StatsConfig struct {
	Lang        string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// CompletedLesson records one finished typing session.
type CompletedLesson struct {
	ID           string    `json:"id"`
	LessonID     string    `json:"lessonId"`
	Language     string    `json:"language"`
	Topic        string    `json:"topic"`
	CompletedAt  time.Time `json:"completedAt"`
	WPM          int       `json:"wpm"`
	CPM          int       `json:"cpm"`
	Accuracy     int       `json:"accuracy"`
	Errors       int       `json:"errors"`
	TimeSpentMs  int64     `json:"timeSpent"`
	PracticeMode bool      `json:"practiceMode,omitempty"`
}

// LessonAggregate summarizes past attempts at one lesson.
type LessonAggregate struct {
	LessonID    string
	Attempts    int
	AvgAccuracy float64
	AvgWPM      float64
}

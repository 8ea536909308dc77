package stats

import (
	"context"
	"time"

	"github.com/verte-zerg/codetype/internal/model"
)

const weakLessonCount = 5

// Source lists completed lessons for reporting.
type Source interface {
	ListCompletions(ctx context.Context, cfg model.StatsConfig) ([]model.CompletedLesson, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Records     []model.CompletedLesson
	Summary     Summary
	Weak        []model.LessonAggregate
	CurveWindow int
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src Source, cfg model.StatsConfig, now time.Time) (Report, error) {
	records, err := src.ListCompletions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Records:     records,
		Summary:     Summarize(records, now),
		Weak:        WeakLessons(records, weakLessonCount),
		CurveWindow: cfg.CurveWindow,
	}, nil
}

// Curves returns the smoothed WPM and accuracy series for the report.
func (r Report) Curves() []Series {
	wpms := make([]float64, len(r.Records))
	accs := make([]float64, len(r.Records))
	for i, rec := range r.Records {
		wpms[i] = float64(rec.WPM)
		accs[i] = float64(rec.Accuracy)
	}
	return []Series{
		{Name: "WPM", Values: MovingAverage(wpms, r.CurveWindow)},
		{Name: "Accuracy", Values: MovingAverage(accs, r.CurveWindow)},
	}
}

package stats

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/verte-zerg/codetype/internal/model"
)

// RenderOptions controls plain-text report output.
type RenderOptions struct {
	Width int
	Color bool
}

// RenderReport prints every report section.
func RenderReport(w io.Writer, r Report, opts RenderOptions) error {
	if len(r.Records) == 0 {
		_, err := fmt.Fprintln(w, "No completed lessons yet.")
		return err
	}
	if err := RenderSummary(w, r.Summary); err != nil {
		return err
	}
	if err := RenderLanguages(w, r.Summary.Languages); err != nil {
		return err
	}
	if err := RenderWeekly(w, r.Summary.Weekly); err != nil {
		return err
	}
	if err := RenderWeak(w, r.Weak); err != nil {
		return err
	}
	width := 0
	if opts.Width > 0 {
		width = PlotWidthFor(opts.Width)
	}
	if err := PlotSeries(w, "Learning Curves", r.Curves(), width, 0, opts.Color); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return RenderHistory(w, r.Summary.Trend)
}

// RenderSummary prints the headline figures.
func RenderSummary(w io.Writer, s Summary) error {
	if s.Count == 0 {
		_, err := fmt.Fprintln(w, "No completed lessons yet.")
		return err
	}
	trend := lo.Map(s.Trend, func(r model.CompletedLesson, _ int) float64 { return float64(r.WPM) })
	rows := [][]string{
		{"Lessons", strconv.Itoa(s.Count)},
		{"Avg WPM", strconv.Itoa(s.AvgWPM)},
		{"Best WPM", strconv.Itoa(s.BestWPM)},
		{"Avg Accuracy", fmt.Sprintf("%d%%", s.AvgAccuracy)},
		{"Best Accuracy", fmt.Sprintf("%d%%", s.BestAccuracy)},
		{"Total Errors", strconv.Itoa(s.TotalErrors)},
		{"Avg Errors", strconv.Itoa(s.AvgErrors)},
		{"Time Practiced", FormatDuration(s.TotalTime)},
		{"Improvement", fmt.Sprintf("%+d%%", s.ImprovementRate)},
		{"Consistency", fmt.Sprintf("%d%%", s.Consistency)},
		{"Recent WPM", Sparkline(trend)},
	}
	return writeSection(w, "Summary", nil, rows, nil)
}

// RenderLanguages prints the per-language breakdown.
func RenderLanguages(w io.Writer, langs []LanguageStats) error {
	rows := lo.Map(langs, func(l LanguageStats, _ int) []string {
		return []string{l.Language, strconv.Itoa(l.Count), strconv.Itoa(l.AvgWPM), fmt.Sprintf("%d%%", l.AvgAccuracy)}
	})
	return writeSection(w, "Languages", []string{"Language", "Lessons", "Avg WPM", "Avg Acc"}, rows, map[int]bool{1: true, 2: true, 3: true})
}

// RenderWeekly prints lesson counts for the trailing seven days.
func RenderWeekly(w io.Writer, days []DayStats) error {
	rows := lo.Map(days, func(d DayStats, _ int) []string {
		return []string{d.Day.Format("Mon 02 Jan"), strconv.Itoa(d.Count), strconv.Itoa(d.AvgWPM)}
	})
	return writeSection(w, "Last 7 Days", []string{"Day", "Lessons", "Avg WPM"}, rows, map[int]bool{1: true, 2: true})
}

// RenderWeak prints the lessons with the lowest accuracy.
func RenderWeak(w io.Writer, aggs []model.LessonAggregate) error {
	if len(aggs) == 0 {
		return nil
	}
	rows := lo.Map(aggs, func(a model.LessonAggregate, _ int) []string {
		return []string{a.LessonID, strconv.Itoa(a.Attempts), fmt.Sprintf("%.0f%%", a.AvgAccuracy), fmt.Sprintf("%.0f", a.AvgWPM)}
	})
	return writeSection(w, "Needs Practice", []string{"Lesson", "Attempts", "Avg Acc", "Avg WPM"}, rows, map[int]bool{1: true, 2: true, 3: true})
}

// RenderHistory prints one row per completion.
func RenderHistory(w io.Writer, records []model.CompletedLesson) error {
	rows := lo.Map(records, func(r model.CompletedLesson, _ int) []string {
		return HistoryRow(r)
	})
	return writeSection(w, "History", HistoryHeaders, rows, map[int]bool{3: true, 4: true, 5: true, 6: true, 7: true})
}

// HistoryHeaders names the columns produced by HistoryRow.
var HistoryHeaders = []string{"Completed", "Lesson", "Lang", "WPM", "CPM", "Acc", "Errors", "Time"}

// HistoryRow formats one completion for tabular output.
func HistoryRow(r model.CompletedLesson) []string {
	return []string{
		r.CompletedAt.Local().Format("2006-01-02 15:04"),
		r.LessonID,
		r.Language,
		strconv.Itoa(r.WPM),
		strconv.Itoa(r.CPM),
		fmt.Sprintf("%d%%", r.Accuracy),
		strconv.Itoa(r.Errors),
		FormatDuration(time.Duration(r.TimeSpentMs) * time.Millisecond),
	}
}

// FormatDuration renders a duration as "1h02m", "3m05s" or "42s".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

func writeSection(w io.Writer, title string, headers []string, rows [][]string, rightAlign map[int]bool) error {
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

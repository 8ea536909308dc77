// Package stats contains progress aggregates and reporting.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/verte-zerg/codetype/internal/model"
)

const (
	sparkChars   = "▁▂▃▄▅▆▇█"
	trendLength  = 10
	compareCount = 5
	weekDays     = 7
)

// LanguageStats aggregates completions for one language.
type LanguageStats struct {
	Language    string
	Count       int
	AvgWPM      int
	AvgAccuracy int
}

// DayStats aggregates completions for one day of the weekly window.
type DayStats struct {
	Day    time.Time
	Count  int
	AvgWPM int
}

// Summary is the overall progress picture for a set of completions.
type Summary struct {
	Count           int
	AvgWPM          int
	AvgAccuracy     int
	BestWPM         int
	BestAccuracy    int
	TotalErrors     int
	AvgErrors       int
	TotalTime       time.Duration
	ImprovementRate int
	Consistency     int
	Languages       []LanguageStats
	Weekly          []DayStats
	Trend           []model.CompletedLesson
}

// Summarize computes aggregates over records ordered oldest first. now anchors
// the weekly window.
func Summarize(records []model.CompletedLesson, now time.Time) Summary {
	var sum Summary
	sum.Weekly = weekly(records, now)
	if len(records) == 0 {
		return sum
	}
	count := len(records)
	sum.Count = count
	sum.AvgWPM = roundDiv(lo.SumBy(records, func(r model.CompletedLesson) int { return r.WPM }), count)
	sum.AvgAccuracy = roundDiv(lo.SumBy(records, func(r model.CompletedLesson) int { return r.Accuracy }), count)
	sum.BestWPM = lo.MaxBy(records, func(a, b model.CompletedLesson) bool { return a.WPM > b.WPM }).WPM
	sum.BestAccuracy = lo.MaxBy(records, func(a, b model.CompletedLesson) bool { return a.Accuracy > b.Accuracy }).Accuracy
	sum.TotalErrors = lo.SumBy(records, func(r model.CompletedLesson) int { return r.Errors })
	sum.AvgErrors = roundDiv(sum.TotalErrors, count)
	sum.TotalTime = time.Duration(lo.SumBy(records, func(r model.CompletedLesson) int64 { return r.TimeSpentMs })) * time.Millisecond

	wpms := lo.Map(records, func(r model.CompletedLesson, _ int) float64 { return float64(r.WPM) })
	sum.ImprovementRate = improvementRate(wpms)
	sum.Consistency = consistency(wpms)
	sum.Languages = languages(records)
	sum.Trend = lo.Subset(records, -trendLength, trendLength)
	return sum
}

// ImprovementRate compares the mean WPM of the last five completions with the
// first five, as a rounded percentage.
func improvementRate(wpms []float64) int {
	first := wpms[:min(compareCount, len(wpms))]
	last := wpms[max(0, len(wpms)-compareCount):]
	firstAvg := lo.Sum(first) / float64(len(first))
	lastAvg := lo.Sum(last) / float64(len(last))
	if firstAvg == 0 {
		return 0
	}
	return int(math.Round((lastAvg - firstAvg) / firstAvg * 100))
}

func consistency(wpms []float64) int {
	mean := lo.Sum(wpms) / float64(len(wpms))
	variance := lo.SumBy(wpms, func(v float64) float64 { return (v - mean) * (v - mean) }) / float64(len(wpms))
	score := int(math.Round(100 - math.Sqrt(variance)))
	return max(0, score)
}

func languages(records []model.CompletedLesson) []LanguageStats {
	groups := lo.GroupBy(records, func(r model.CompletedLesson) string { return r.Language })
	out := make([]LanguageStats, 0, len(groups))
	for lang, recs := range groups {
		out = append(out, LanguageStats{
			Language:    lang,
			Count:       len(recs),
			AvgWPM:      roundDiv(lo.SumBy(recs, func(r model.CompletedLesson) int { return r.WPM }), len(recs)),
			AvgAccuracy: roundDiv(lo.SumBy(recs, func(r model.CompletedLesson) int { return r.Accuracy }), len(recs)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Language < out[j].Language
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// weekly buckets the trailing seven days into 24h slots starting a week
// before now.
func weekly(records []model.CompletedLesson, now time.Time) []DayStats {
	const day = 24 * time.Hour
	weekAgo := now.Add(-weekDays * day)
	out := make([]DayStats, weekDays)
	for i := range out {
		start := weekAgo.Add(time.Duration(i) * day)
		end := start.Add(day)
		inDay := lo.Filter(records, func(r model.CompletedLesson, _ int) bool {
			return !r.CompletedAt.Before(start) && r.CompletedAt.Before(end)
		})
		out[i] = DayStats{Day: start, Count: len(inDay)}
		if len(inDay) > 0 {
			out[i].AvgWPM = roundDiv(lo.SumBy(inDay, func(r model.CompletedLesson) int { return r.WPM }), len(inDay))
		}
	}
	return out
}

func roundDiv(total, n int) int {
	if n == 0 {
		return 0
	}
	return int(math.Round(float64(total) / float64(n)))
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line block sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	blocks := []rune(sparkChars)
	minVal, maxVal := lo.Min(values), lo.Max(values)
	if maxVal-minVal < 1e-9 {
		return strings.Repeat(string(blocks[len(blocks)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - minVal) / (maxVal - minVal) * float64(len(blocks)-1)))
		b.WriteRune(blocks[idx])
	}
	return b.String()
}

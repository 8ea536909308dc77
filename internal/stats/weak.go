package stats

import (
	"sort"

	"github.com/samber/lo"

	"github.com/verte-zerg/codetype/internal/model"
)

// WeakLessons returns up to top lessons ordered by lowest average accuracy.
// Ties favor the lesson with more attempts.
func WeakLessons(records []model.CompletedLesson, top int) []model.LessonAggregate {
	groups := lo.GroupBy(records, func(r model.CompletedLesson) string { return r.LessonID })
	aggs := make([]model.LessonAggregate, 0, len(groups))
	for id, recs := range groups {
		n := float64(len(recs))
		aggs = append(aggs, model.LessonAggregate{
			LessonID:    id,
			Attempts:    len(recs),
			AvgAccuracy: float64(lo.SumBy(recs, func(r model.CompletedLesson) int { return r.Accuracy })) / n,
			AvgWPM:      float64(lo.SumBy(recs, func(r model.CompletedLesson) int { return r.WPM })) / n,
		})
	}
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].AvgAccuracy != aggs[j].AvgAccuracy {
			return aggs[i].AvgAccuracy < aggs[j].AvgAccuracy
		}
		if aggs[i].Attempts != aggs[j].Attempts {
			return aggs[i].Attempts > aggs[j].Attempts
		}
		return aggs[i].LessonID < aggs[j].LessonID
	})
	if top > 0 && top < len(aggs) {
		aggs = aggs[:top]
	}
	return aggs
}

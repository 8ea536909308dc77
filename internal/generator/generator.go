// Package generator picks lessons for random practice.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/codetype/internal/model"
)

// Generator selects lessons at random.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Pick selects a lesson uniformly, avoiding exclude when there is another
// choice. It returns false for an empty list.
func (g *Generator) Pick(lessons []model.Lesson, exclude string) (model.Lesson, bool) {
	candidates := withoutID(lessons, exclude)
	if len(candidates) == 0 {
		return model.Lesson{}, false
	}
	return candidates[g.rnd.Intn(len(candidates))], true
}

// PickWeighted selects a lesson with a bias toward lessons the user has
// typed inaccurately. Each lesson weighs 1 plus factor times its error rate
// (100 - average accuracy, as a fraction); lessons never attempted weigh as
// if they were typed with zero accuracy so they get surfaced too.
func (g *Generator) PickWeighted(lessons []model.Lesson, exclude string, aggs map[string]model.LessonAggregate, factor float64) (model.Lesson, bool) {
	candidates := withoutID(lessons, exclude)
	if len(candidates) == 0 {
		return model.Lesson{}, false
	}
	weights := make([]float64, len(candidates))
	total := 0.0
	for i, l := range candidates {
		errRate := 1.0
		if agg, ok := aggs[l.ID]; ok && agg.Attempts > 0 {
			errRate = (100 - agg.AvgAccuracy) / 100
			if errRate < 0 {
				errRate = 0
			}
		}
		w := 1.0 + errRate*factor
		weights[i] = w
		total += w
	}

	r := g.rnd.Float64() * total
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r <= acc {
			return candidates[i], true
		}
	}
	return candidates[len(candidates)-1], true
}

func withoutID(lessons []model.Lesson, exclude string) []model.Lesson {
	if exclude == "" || len(lessons) < 2 {
		return lessons
	}
	out := make([]model.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if l.ID != exclude {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return lessons
	}
	return out
}

package lesson

import (
	"fmt"
	"sort"

	"github.com/verte-zerg/codetype/internal/model"
)

// Catalog indexes the lessons available for practice.
type Catalog struct {
	lessons []model.Lesson
	byID    map[string]int
}

// NewCatalog merges lesson sets. Ids must be unique across all sets.
func NewCatalog(sets ...[]model.Lesson) (*Catalog, error) {
	c := &Catalog{byID: map[string]int{}}
	for _, set := range sets {
		for _, l := range set {
			if _, dup := c.byID[l.ID]; dup {
				return nil, fmt.Errorf("duplicate lesson id %q", l.ID)
			}
			c.byID[l.ID] = len(c.lessons)
			c.lessons = append(c.lessons, l)
		}
	}
	return c, nil
}

// Load builds a catalog from the built-in lessons and the custom lessons in
// customDir.
func Load(customDir string) (*Catalog, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, err
	}
	custom, err := LoadDir(customDir)
	if err != nil {
		return nil, err
	}
	return NewCatalog(builtin, custom)
}

// All returns every lesson in catalog order.
func (c *Catalog) All() []model.Lesson {
	out := make([]model.Lesson, len(c.lessons))
	copy(out, c.lessons)
	return out
}

// Len returns the number of lessons.
func (c *Catalog) Len() int {
	return len(c.lessons)
}

// Find looks a lesson up by id.
func (c *Catalog) Find(id string) (model.Lesson, error) {
	idx, ok := c.byID[id]
	if !ok {
		return model.Lesson{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.lessons[idx], nil
}

// Filter returns the lessons matching lang and topic. Empty values match
// everything.
func (c *Catalog) Filter(lang, topic string) []model.Lesson {
	var out []model.Lesson
	for _, l := range c.lessons {
		if lang != "" && l.Language != lang {
			continue
		}
		if topic != "" && l.Topic != topic {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ByLanguage returns the lessons for one language.
func (c *Catalog) ByLanguage(lang string) []model.Lesson {
	return c.Filter(lang, "")
}

// ByTopic returns the first lesson for a language and topic.
func (c *Catalog) ByTopic(lang, topic string) (model.Lesson, error) {
	matches := c.Filter(lang, topic)
	if len(matches) == 0 {
		return model.Lesson{}, fmt.Errorf("%w: %s/%s", ErrNotFound, lang, topic)
	}
	return matches[0], nil
}

// Languages returns the sorted set of languages in the catalog.
func (c *Catalog) Languages() []string {
	seen := map[string]struct{}{}
	for _, l := range c.lessons {
		seen[l.Language] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for lang := range seen {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Next returns the lesson after id in catalog order within the same
// language, wrapping around.
func (c *Catalog) Next(id string) (model.Lesson, error) {
	cur, err := c.Find(id)
	if err != nil {
		return model.Lesson{}, err
	}
	same := c.ByLanguage(cur.Language)
	for i, l := range same {
		if l.ID == id {
			return same[(i+1)%len(same)], nil
		}
	}
	return cur, nil
}

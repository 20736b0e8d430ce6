package content

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"motivator/internal/domain"
)

// Catalog is an immutable, goroutine-safe content set.
type Catalog struct {
	defaultLang string
	byLang      map[string][]domain.ContentItem
	reminders   map[string]string
	fallbacks   map[string]string

	mu  sync.Mutex
	rnd *rand.Rand
}

func newCatalog(f file) *Catalog {
	c := &Catalog{
		defaultLang: f.DefaultLanguage,
		byLang:      make(map[string][]domain.ContentItem),
		reminders:   f.Reminders,
		fallbacks:   f.Fallbacks,
	}
	for _, it := range f.Items {
		c.byLang[it.Lang] = append(c.byLang[it.Lang], it.toDomain())
	}
	seed := uint64(time.Now().UnixNano())
	c.rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	return c
}

// Seed makes selection deterministic.
func (c *Catalog) Seed(seed uint64) *Catalog {
	c.mu.Lock()
	c.rnd = rand.New(rand.NewPCG(seed, seed>>1|1))
	c.mu.Unlock()
	return c
}

func (c *Catalog) DefaultLanguage() string { return c.defaultLang }

// Languages returns the languages that have content, sorted.
func (c *Catalog) Languages() []string {
	out := make([]string, 0, len(c.byLang))
	for l := range c.byLang {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

// Size returns the number of items for lang.
func (c *Catalog) Size(lang string) int { return len(c.byLang[lang]) }

// Supports reports whether lang has any content.
func (c *Catalog) Supports(lang string) bool { return len(c.byLang[lang]) > 0 }

// Select picks a random item for lang and category, skipping ids in exclude.
// When nothing fits it widens the search in order: general content, then
// previously excluded items, then the default language.
func (c *Catalog) Select(ctx context.Context, lang string, cat domain.Category, exclude []int64) (domain.ContentItem, error) {
	if err := ctx.Err(); err != nil {
		return domain.ContentItem{}, err
	}
	langs := []string{lang}
	if lang != c.defaultLang {
		langs = append(langs, c.defaultLang)
	}
	cats := []domain.Category{cat}
	if cat != domain.CategoryGeneral {
		cats = append(cats, domain.CategoryGeneral)
	}

	for _, l := range langs {
		pool := c.byLang[l]
		if len(pool) == 0 {
			continue
		}
		for _, skip := range [][]int64{exclude, nil} {
			for _, k := range cats {
				if it, ok := c.pick(pool, k, skip); ok {
					return it, nil
				}
			}
		}
	}
	return domain.ContentItem{}, domain.ErrContentNotFound
}

func (c *Catalog) pick(pool []domain.ContentItem, cat domain.Category, skip []int64) (domain.ContentItem, bool) {
	var cand []int
	for i, it := range pool {
		if it.Category == cat && !slices.Contains(skip, it.ID) {
			cand = append(cand, i)
		}
	}
	if len(cand) == 0 {
		return domain.ContentItem{}, false
	}
	c.mu.Lock()
	n := c.rnd.IntN(len(cand))
	c.mu.Unlock()
	return pool[cand[n]], true
}

// MoodReminder returns the daily check-in text for lang.
func (c *Catalog) MoodReminder(lang string) string {
	if s, ok := c.reminders[lang]; ok && s != "" {
		return s
	}
	return c.reminders[c.defaultLang]
}

// Fallback returns the text sent when no content is available for lang.
func (c *Catalog) Fallback(lang string) string {
	if s, ok := c.fallbacks[lang]; ok && s != "" {
		return s
	}
	return c.fallbacks[c.defaultLang]
}

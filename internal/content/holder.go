package content

import (
	"context"
	"sync/atomic"

	"motivator/internal/domain"
)

// Holder serves from a catalog that can be swapped on config reload.
type Holder struct {
	cur atomic.Pointer[Catalog]
}

func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.Swap(c)
	return h
}

// Swap installs c and returns the previous catalog.
func (h *Holder) Swap(c *Catalog) *Catalog {
	return h.cur.Swap(c)
}

func (h *Holder) Current() *Catalog { return h.cur.Load() }

func (h *Holder) Select(ctx context.Context, lang string, cat domain.Category, exclude []int64) (domain.ContentItem, error) {
	return h.Current().Select(ctx, lang, cat, exclude)
}

func (h *Holder) MoodReminder(lang string) string { return h.Current().MoodReminder(lang) }

func (h *Holder) Fallback(lang string) string { return h.Current().Fallback(lang) }

func (h *Holder) Supports(lang string) bool { return h.Current().Supports(lang) }

func (h *Holder) Languages() []string { return h.Current().Languages() }

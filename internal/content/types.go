package content

import "motivator/internal/domain"

// file is the on-disk shape of a catalog.
type file struct {
	DefaultLanguage string            `yaml:"default_language"`
	Reminders       map[string]string `yaml:"reminders"`
	Fallbacks       map[string]string `yaml:"fallbacks"`
	Items           []item            `yaml:"items"`
}

type item struct {
	ID       int64              `yaml:"id"`
	Lang     string             `yaml:"lang"`
	Category domain.Category    `yaml:"category"`
	Type     domain.ContentType `yaml:"type"`
	Text     string             `yaml:"text"`
	URL      string             `yaml:"url"`
	Tags     []string           `yaml:"tags"`
}

func (it item) toDomain() domain.ContentItem {
	return domain.ContentItem{
		ID:       it.ID,
		Language: it.Lang,
		Category: it.Category,
		Type:     it.Type,
		Text:     it.Text,
		MediaURL: it.URL,
		Tags:     append([]string(nil), it.Tags...),
	}
}

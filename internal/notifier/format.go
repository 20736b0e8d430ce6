package notifier

import (
	"strings"

	"motivator/internal/domain"
	kit "motivator/internal/transport"
)

// Format renders an item as message text.
func Format(item domain.ContentItem) string {
	text := strings.TrimSpace(item.Text)
	url := strings.TrimSpace(item.MediaURL)
	if url == "" {
		return text
	}
	switch item.Type {
	case domain.ContentVideo:
		return text + "\n\n🎥 " + url
	case domain.ContentLink, domain.ContentImage:
		return text + "\n\n🔗 " + url
	default:
		return text
	}
}

// FeedbackKeyboard is the single-row love/like/dislike keyboard.
func FeedbackKeyboard() [][]kit.Button {
	return [][]kit.Button{{
		{Text: "❤️", Data: FeedbackLove},
		{Text: "👍", Data: FeedbackLike},
		{Text: "👎", Data: FeedbackDislike},
	}}
}

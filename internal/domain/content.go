package domain

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentVideo ContentType = "video"
	ContentLink  ContentType = "link"
)

// ContentItem is a single piece of content handed to the messenger.
type ContentItem struct {
	ID       int64
	Language string
	Category Category
	Type     ContentType
	Text     string
	MediaURL string
	Tags     []string
}

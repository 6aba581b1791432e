package models

import "time"

// Publication records metadata that was published to a platform.
type Publication struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	Platform    string    `json:"platform"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	PublishedAt time.Time `json:"publishedAt"`
}

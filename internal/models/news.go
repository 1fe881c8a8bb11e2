package models

import "time"

// NewsItem is a single headline from the news feed.
type NewsItem struct {
	Title        string    `json:"title"`
	Source       string    `json:"source"`
	URL          string    `json:"url"`
	PublishedAt  time.Time `json:"published_at"`
	Snippet      string    `json:"snippet,omitempty"`
	RelativeTime string    `json:"relative_time,omitempty"`
}

// NewsFeed groups headlines by country.
type NewsFeed struct {
	US []NewsItem `json:"us,omitempty"`
	KR []NewsItem `json:"kr,omitempty"`
}

package v1alpha1

import "time"

// MaxFeedItems caps the number of articles rendered per feed
const MaxFeedItems = 10

// RSSItem is one article of a feed
type RSSItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Link        string    `json:"link,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt,omitempty"`
}

// RSSFeed is an ingested news feed with its most recent items
type RSSFeed struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	URL   string    `json:"url,omitempty"`
	Items []RSSItem `json:"items"`
}

// RSSFeedList is the body of GET /rss
type RSSFeedList struct {
	Feeds []RSSFeed `json:"feeds"`
}

// TickerMessage is one entry of the scrolling ticker
type TickerMessage struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// TickerMessageList is the body of GET /display/ticker
type TickerMessageList struct {
	Messages []TickerMessage `json:"messages"`
}

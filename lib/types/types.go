package types

import "strings"

// ContentType is the discriminator carried by every unified item. The
// aggregator dispatches rendering on it.
type ContentType string

const (
	News        ContentType = "news"
	Project     ContentType = "project"
	Paper       ContentType = "paper"
	SocialMedia ContentType = "socialMedia"
	RSSFeed     ContentType = "rssfeed"
	ElonMusk    ContentType = "elon-musk"
)

const JSONFeedVersion = "https://jsonfeed.org/version/1.1"

type Author struct {
	Name string `json:"name"`
}

// RawSourceItem is what an adapter produces before normalization.
type RawSourceItem struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	ContentHTML   string   `json:"content_html"`
	DatePublished string   `json:"date_published"`
	Authors       []Author `json:"authors"`
	Source        string   `json:"source"`
}

// UnifiedFeed is a named collection of raw items plus feed metadata.
// Items is never nil; build feeds with NewFeed.
type UnifiedFeed struct {
	Version     string          `json:"version"`
	Title       string          `json:"title"`
	HomePageURL string          `json:"home_page_url"`
	Description string          `json:"description"`
	Language    string          `json:"language"`
	Items       []RawSourceItem `json:"items"`
}

func NewFeed(title, homePageURL, description, language string) UnifiedFeed {
	return UnifiedFeed{
		Version:     JSONFeedVersion,
		Title:       title,
		HomePageURL: homePageURL,
		Description: description,
		Language:    language,
		Items:       []RawSourceItem{},
	}
}

type Details struct {
	ContentHTML string `json:"content_html"`
	TotalStars  int    `json:"totalStars,omitempty"`
}

// UnifiedContentItem is the canonical post-normalization shape stored in
// snapshots and consumed by the aggregator.
type UnifiedContentItem struct {
	ID            string      `json:"id"`
	Type          ContentType `json:"type"`
	URL           string      `json:"url"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	PublishedDate string      `json:"published_date"`
	Authors       string      `json:"authors"`
	Source        string      `json:"source"`
	Details       Details     `json:"details"`
}

// SnapshotKey is the store key for one source type on one date.
func SnapshotKey(date string, sourceType ContentType) string {
	return date + "-" + string(sourceType)
}

// SummaryArtifact holds the output of one summarization run.
type SummaryArtifact struct {
	Date          string `json:"date"`
	DailySummary  string `json:"dailySummary"`
	PodcastScript string `json:"podcastScript"`
}

// JoinAuthors renders an author list for display.
func JoinAuthors(authors []Author) string {
	if authors == nil {
		return "Unknown"
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

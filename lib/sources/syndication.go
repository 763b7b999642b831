package sources

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/filters"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/web"
)

var (
	itemPattern  = regexp.MustCompile(`(?s)<item(?:\s[^>]*)?>(.*?)</item>`)
	cdataPattern = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

	titlePattern    = regexp.MustCompile(`(?s)<title>(.*?)</title>`)
	linkPattern     = regexp.MustCompile(`(?s)<link>(.*?)</link>`)
	descPattern     = regexp.MustCompile(`(?s)<description>(.*?)</description>`)
	pubDatePattern  = regexp.MustCompile(`(?s)<pubDate>(.*?)</pubDate>`)
	categoryPattern = regexp.MustCompile(`(?s)<category(?:\s[^>]*)?>(.*?)</category>`)
	guidPattern     = regexp.MustCompile(`(?s)<guid[^>]*>(.*?)</guid>`)
)

type SyndicationOptions struct {
	Type       types.ContentType
	Name       string
	URL        string
	FilterDays int
}

// Syndication reads an RSS document by pattern extraction rather than a full
// XML decode, so feeds with sloppy markup still yield their items.
type Syndication struct {
	opts   SyndicationOptions
	client *web.Client
	log    *logger.Logger
	now    func() time.Time
}

func NewSyndication(opts SyndicationOptions, client *web.Client, log *logger.Logger) *Syndication {
	if opts.Name == "" {
		opts.Name = "RSS Feed"
	}
	return &Syndication{opts: opts, client: client, log: log, now: time.Now}
}

func (s *Syndication) Type() types.ContentType { return s.opts.Type }

func (s *Syndication) feed(description string) types.UnifiedFeed {
	return types.NewFeed(s.opts.Name, s.opts.URL, description, "en")
}

func (s *Syndication) Fetch(ctx context.Context, authToken string) types.UnifiedFeed {
	if s.opts.URL == "" {
		s.log.Warning("Feed URL for %s is not set.", s.opts.Type)
		return s.feed(s.opts.Name)
	}

	s.log.Info("Fetching RSS feed from: %s", s.opts.URL)
	body, err := s.client.Get(ctx, s.opts.URL, map[string]string{
		"User-Agent": web.RandomUserAgent(),
		"Accept":     "application/rss+xml, application/xml, text/xml, */*",
	})
	if err != nil {
		s.log.Error("Failed to fetch RSS feed: %v", err)
		return s.feed("Failed to fetch RSS feed")
	}

	items := ParseItems(string(body), s.opts.Name)
	feed := s.feed(s.opts.Name)
	feed.Items = filters.FilterRecent(items, s.opts.FilterDays, s.now())
	s.log.Info("RSS feed fetched successfully. Total items: %d, Filtered items: %d", len(items), len(feed.Items))
	return feed
}

// ParseItems extracts every complete <item> from an RSS document. Items
// missing a title, link or pubDate are dropped.
func ParseItems(doc, sourceName string) []types.RawSourceItem {
	items := []types.RawSourceItem{}
	for _, m := range itemPattern.FindAllStringSubmatch(doc, -1) {
		itemXML := m[1]

		title := extract(titlePattern, itemXML)
		url := extract(linkPattern, itemXML)
		pubDate := extract(pubDatePattern, itemXML)
		if title == "" || url == "" || pubDate == "" {
			continue
		}

		category := extract(categoryPattern, itemXML)
		if category == "" {
			category = "Unknown"
		}
		guid := extract(guidPattern, itemXML)
		if guid == "" {
			guid = url
		}

		items = append(items, types.RawSourceItem{
			ID:            guid,
			URL:           url,
			Title:         title,
			ContentHTML:   extract(descPattern, itemXML),
			DatePublished: pubDate,
			Authors:       []types.Author{{Name: category}},
			Source:        sourceName,
		})
	}
	return items
}

func extract(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(cdataPattern.ReplaceAllString(m[1], "$1"))
}

func (s *Syndication) Transform(feed types.UnifiedFeed, declared types.ContentType) []types.UnifiedContentItem {
	return Transform(feed, declared, s.opts.Name)
}

func (s *Syndication) RenderDisplay(item types.UnifiedContentItem) string {
	return renderDisplay(item)
}

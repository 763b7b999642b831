package sources

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/config"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/filters"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/web"
)

// Source is one feed adapter. Fetch never fails: every error degrades to a
// feed with no items and a log line.
type Source interface {
	Type() types.ContentType
	Fetch(ctx context.Context, authToken string) types.UnifiedFeed
	Transform(feed types.UnifiedFeed, declared types.ContentType) []types.UnifiedContentItem
	RenderDisplay(item types.UnifiedContentItem) string
}

// Transform maps raw items onto the unified shape. It is pure; the output has
// one entry per input item, each typed as declared.
func Transform(feed types.UnifiedFeed, declared types.ContentType, defaultSource string) []types.UnifiedContentItem {
	out := make([]types.UnifiedContentItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		source := item.Source
		if source == "" {
			source = defaultSource
		}
		out = append(out, types.UnifiedContentItem{
			ID:            item.ID,
			Type:          declared,
			URL:           item.URL,
			Title:         item.Title,
			Description:   web.StripHTML(item.ContentHTML),
			PublishedDate: item.DatePublished,
			Authors:       types.JoinAuthors(item.Authors),
			Source:        source,
			Details:       types.Details{ContentHTML: item.ContentHTML},
		})
	}
	return out
}

var chinaTime = time.FixedZone("CST", 8*60*60)

// FormatChineseDateTime renders a published date as 2024年01月08日 18:00 in
// China Standard Time, or returns the input untouched when it can't be parsed.
func FormatChineseDateTime(date string) string {
	t, err := filters.ParseDate(date)
	if err != nil {
		return date
	}
	return t.In(chinaTime).Format("2006年01月02日 15:04")
}

func renderDisplay(item types.UnifiedContentItem) string {
	source := item.Source
	if source == "" {
		source = "未知"
	}
	content := item.Details.ContentHTML
	if content == "" {
		content = "无内容。"
	}
	return fmt.Sprintf(`
<strong>%s</strong><br>
<small>来源: %s | 发布日期: %s</small>
<div class="content-html">%s</div>
<a href="%s" target="_blank" rel="noopener noreferrer">阅读更多</a>
`,
		html.EscapeString(item.Title),
		html.EscapeString(source),
		FormatChineseDateTime(item.PublishedDate),
		content,
		html.EscapeString(item.URL),
	)
}

// Registry keeps adapters in a fixed order; that order is the snapshot and
// aggregation order.
type Registry struct {
	sources []Source
}

func NewRegistry(srcs ...Source) *Registry {
	return &Registry{sources: srcs}
}

// Default wires the share-link adapter, the main syndication feed and every
// feed from the feeds file.
func Default(cfg config.Config, client *web.Client, log *logger.Logger) *Registry {
	srcs := []Source{
		NewShareLink(ShareLinkOptions{
			FeedID:     cfg.ElonMuskFeedID,
			BaseURL:    cfg.ShareBaseURL,
			FilterDays: cfg.FilterDays,
		}, client, log.Module("ELON-MUSK")),
		NewSyndication(SyndicationOptions{
			Type:       types.RSSFeed,
			Name:       "RSS Feed",
			URL:        cfg.RSSFeedURL,
			FilterDays: cfg.FilterDays,
		}, client, log.Module("RSSFEED")),
	}
	for _, feed := range cfg.Feeds {
		srcs = append(srcs, NewSyndication(SyndicationOptions{
			Type:       feed.Type,
			Name:       feed.Name,
			URL:        feed.URL,
			FilterDays: cfg.FilterDays,
		}, client, log.Module(string(feed.Type))))
	}
	return NewRegistry(srcs...)
}

func (r *Registry) Sources() []Source {
	return r.sources
}

func (r *Registry) Types() []types.ContentType {
	out := make([]types.ContentType, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s.Type())
	}
	return out
}

func (r *Registry) Lookup(t types.ContentType) (Source, bool) {
	for _, s := range r.sources {
		if s.Type() == t {
			return s, true
		}
	}
	return nil, false
}

// FetchAll runs every adapter concurrently and waits for all of them. One
// adapter failing, or panicking, leaves the others untouched; its type maps
// to an empty slice.
func (r *Registry) FetchAll(ctx context.Context, authToken string, log *logger.Logger) map[types.ContentType][]types.UnifiedContentItem {
	results := make([][]types.UnifiedContentItem, len(r.sources))

	var wg sync.WaitGroup
	for i, src := range r.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					log.Error("Adapter %s panicked: %v", src.Type(), p)
					results[i] = []types.UnifiedContentItem{}
				}
			}()
			feed := src.Fetch(ctx, authToken)
			results[i] = src.Transform(feed, src.Type())
		}(i, src)
	}
	wg.Wait()

	all := make(map[types.ContentType][]types.UnifiedContentItem, len(r.sources))
	for i, src := range r.sources {
		items := results[i]
		if items == nil {
			items = []types.UnifiedContentItem{}
		}
		all[src.Type()] = items
		log.Info("Fetched %s: %d items", src.Type(), len(items))
	}
	return all
}

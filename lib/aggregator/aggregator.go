// Package aggregator turns a day's snapshots into plain-text blocks, one per
// item, ready for summarization.
//
// Blocks come out in source registration order, then item order within each
// source. Items are never re-sorted across sources.
package aggregator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/web"
)

// RenderFunc renders one item. An empty result drops the item.
type RenderFunc func(item types.UnifiedContentItem) string

// SnapshotReader is the read half of the snapshot gateway.
type SnapshotReader interface {
	Get(ctx context.Context, date string, sourceType types.ContentType) []types.UnifiedContentItem
}

type Aggregator struct {
	store     SnapshotReader
	order     []types.ContentType
	renderers map[types.ContentType]RenderFunc
	fallback  RenderFunc
	log       *logger.Logger
}

func New(store SnapshotReader, order []types.ContentType, log *logger.Logger) *Aggregator {
	a := &Aggregator{
		store:     store,
		order:     order,
		renderers: make(map[types.ContentType]RenderFunc),
		fallback:  renderGeneric,
		log:       log,
	}
	a.Register(types.News, renderNews)
	a.Register(types.Project, renderProject)
	a.Register(types.Paper, renderPaper)
	a.Register(types.SocialMedia, renderSocialMedia)
	return a
}

// Register adds or replaces the renderer for a content type.
func (a *Aggregator) Register(t types.ContentType, fn RenderFunc) {
	a.renderers[t] = fn
}

func (a *Aggregator) Render(item types.UnifiedContentItem) string {
	if fn, ok := a.renderers[item.Type]; ok {
		return fn(item)
	}
	return a.fallback(item)
}

// Collect reads each source's snapshot for date and renders every item.
func (a *Aggregator) Collect(ctx context.Context, date string) []string {
	blocks := []string{}
	for _, sourceType := range a.order {
		items := a.store.Get(ctx, date, sourceType)
		for _, item := range items {
			if text := a.Render(item); text != "" {
				blocks = append(blocks, text)
			}
		}
		a.log.Debug("Collected %d items from %s", len(items), sourceType)
	}
	a.log.Info("Total items to process: %d", len(blocks))
	return blocks
}

func renderNews(item types.UnifiedContentItem) string {
	return fmt.Sprintf("News Title: %s\nPublished: %s\nUrl: %s\nContent Summary: %s",
		item.Title, item.PublishedDate, item.URL, web.StripHTML(item.Details.ContentHTML))
}

func renderProject(item types.UnifiedContentItem) string {
	return fmt.Sprintf("Project Name: %s\nPublished: %s\nUrl: %s\nDescription: %s\nStars: %d",
		item.Title, item.PublishedDate, item.URL, item.Description, item.Details.TotalStars)
}

func renderPaper(item types.UnifiedContentItem) string {
	return fmt.Sprintf("Papers Title: %s\nPublished: %s\nUrl: %s\nAbstract/Content Summary: %s",
		item.Title, item.PublishedDate, item.URL, web.StripHTML(item.Details.ContentHTML))
}

func renderSocialMedia(item types.UnifiedContentItem) string {
	return fmt.Sprintf("socialMedia Post by %s：Published: %s\nUrl: %s\nContent: %s",
		item.Authors, item.PublishedDate, item.URL, web.StripHTML(item.Details.ContentHTML))
}

func renderGeneric(item types.UnifiedContentItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\nTitle: %s\nDescription: %s\nURL: %s",
		item.Type, orNA(item.Title), orNA(item.Description), orNA(item.URL))
	if item.PublishedDate != "" {
		b.WriteString("\nPublished: " + item.PublishedDate)
	}
	if item.Source != "" {
		b.WriteString("\nSource: " + item.Source)
	}
	if item.Details.ContentHTML != "" {
		b.WriteString("\nContent: " + web.StripHTML(item.Details.ContentHTML))
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Package pipeline wires the daily run: fetch every source into snapshots,
// summarize the day's snapshots and publish the result.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/aggregator"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/digest"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/publish"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/sources"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/store"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
)

const DateLayout = "2006-01-02"

// Date is the snapshot date for t, always taken in UTC.
func Date(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ValidateDate checks that date is a YYYY-MM-DD calendar date.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	return nil
}

type Pipeline struct {
	Registry   *sources.Registry
	Snapshots  *store.Snapshots
	Aggregator *aggregator.Aggregator
	Reducer    *digest.Reducer
	Publisher  *publish.Publisher
	AuthToken  string
	Log        *logger.Logger
	Now        func() time.Time
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Today is the current snapshot date.
func (p *Pipeline) Today() string {
	return Date(p.now())
}

// FetchAndStore fetches every source and replaces the date's snapshots. The
// returned counts are per source type.
func (p *Pipeline) FetchAndStore(ctx context.Context, date string) (map[types.ContentType]int, error) {
	all := p.Registry.FetchAll(ctx, p.AuthToken, p.Log)
	counts := make(map[types.ContentType]int, len(all))
	for t, items := range all {
		counts[t] = len(items)
	}
	if err := p.Snapshots.PutAll(ctx, date, all); err != nil {
		return counts, fmt.Errorf("storing snapshots for %s: %w", date, err)
	}
	return counts, nil
}

// Generate summarizes the snapshots stored for date.
func (p *Pipeline) Generate(ctx context.Context, date string) (types.SummaryArtifact, error) {
	blocks := p.Aggregator.Collect(ctx, date)
	return p.Reducer.Summarize(ctx, date, blocks)
}

// Analyze writes a trend analysis of the snapshots stored for date.
func (p *Pipeline) Analyze(ctx context.Context, date string) (string, error) {
	return p.Reducer.Analyze(ctx, p.Aggregator.Collect(ctx, date))
}

func (p *Pipeline) Publish(ctx context.Context, date string, art types.SummaryArtifact) ([]publish.Result, error) {
	return p.Publisher.Publish(ctx, date, art)
}

// Run executes fetch, generate and publish for today.
func (p *Pipeline) Run(ctx context.Context) ([]publish.Result, error) {
	date := p.Today()
	runID := uuid.NewString()
	p.Log.Info("[%s] Starting daily run for %s", runID, date)
	start := time.Now()

	if _, err := p.FetchAndStore(ctx, date); err != nil {
		// Summaries still run over whatever snapshots were written.
		p.Log.Error("[%s] Snapshot write failed: %v", runID, err)
	}
	art, err := p.Generate(ctx, date)
	if err != nil {
		p.Log.Error("[%s] Generation failed: %v", runID, err)
		return nil, fmt.Errorf("generating %s: %w", date, err)
	}
	results, err := p.Publish(ctx, date, art)
	if err != nil {
		p.Log.Error("[%s] Publishing finished with errors: %v", runID, err)
		return results, err
	}
	p.Log.Info("[%s] Daily run finished in %s", runID, time.Since(start).Round(time.Millisecond))
	return results, nil
}

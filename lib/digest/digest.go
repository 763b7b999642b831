// Package digest reduces a day's rendered items into a bounded narrative in
// three passes plus a podcast rendering.
//
// Stage one summarizes fixed-size chunks concurrently. Stage two merges the
// chunk summaries in one call and stage three edits the result. No call ever
// receives the full item list, whatever its length.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/llm"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
)

const (
	DefaultChunkSize = 5
	Separator        = "\n\n---\n\n"
)

var ErrNoContent = errors.New("no content to summarize")

// ChunkError reports a stage-one chunk that failed after its retry.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("summarizing chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

type Options struct {
	ChunkSize   int
	Concurrency int // 0 means no limit
	Prompts     Prompts
}

type Reducer struct {
	llm  llm.Summarizer
	opts Options
	log  *logger.Logger
}

func NewReducer(s llm.Summarizer, opts Options, log *logger.Logger) *Reducer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	return &Reducer{llm: s, opts: opts, log: log}
}

// Chunk groups blocks into runs of ChunkSize joined by Separator.
func (r *Reducer) Chunk(blocks []string) []string {
	chunks := make([]string, 0, (len(blocks)+r.opts.ChunkSize-1)/r.opts.ChunkSize)
	for i := 0; i < len(blocks); i += r.opts.ChunkSize {
		end := min(i+r.opts.ChunkSize, len(blocks))
		chunks = append(chunks, strings.Join(blocks[i:end], Separator))
	}
	return chunks
}

// StageOne summarizes every chunk concurrently and returns the summaries in
// chunk order. A failing chunk is retried once; if it fails again the stage
// fails rather than dropping that chunk's items.
func (r *Reducer) StageOne(ctx context.Context, blocks []string) ([]string, error) {
	chunks := r.Chunk(blocks)
	summaries := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	if r.opts.Concurrency > 0 {
		g.SetLimit(r.opts.Concurrency)
	}
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			text, err := llm.Call(gctx, r.llm, r.opts.Prompts.StageOne, chunk)
			if err != nil {
				r.log.Warning("Chunk %d/%d failed, retrying once: %v", i+1, len(chunks), err)
				text, err = llm.Call(gctx, r.llm, r.opts.Prompts.StageOne, chunk)
			}
			if err != nil {
				return &ChunkError{Index: i, Err: err}
			}
			summaries[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.log.Info("Stage one finished: %d chunks", len(chunks))
	return summaries, nil
}

func (r *Reducer) StageTwo(ctx context.Context, summaries []string) (string, error) {
	text, err := llm.Call(ctx, r.llm, r.opts.Prompts.StageTwo, strings.Join(summaries, Separator))
	if err != nil {
		return "", fmt.Errorf("stage two: %w", err)
	}
	return text, nil
}

func (r *Reducer) StageThree(ctx context.Context, merged string) (string, error) {
	text, err := llm.Call(ctx, r.llm, r.opts.Prompts.StageThree, merged)
	if err != nil {
		return "", fmt.Errorf("stage three: %w", err)
	}
	return Defence(text), nil
}

func (r *Reducer) Podcast(ctx context.Context, summary string) (string, error) {
	text, err := llm.Call(ctx, r.llm, r.opts.Prompts.Podcast, summary)
	if err != nil {
		return "", fmt.Errorf("podcast: %w", err)
	}
	return Defence(text), nil
}

// DailySummary runs stages one to three.
func (r *Reducer) DailySummary(ctx context.Context, blocks []string) (string, error) {
	if len(blocks) == 0 {
		return "", ErrNoContent
	}
	summaries, err := r.StageOne(ctx, blocks)
	if err != nil {
		return "", fmt.Errorf("stage one: %w", err)
	}
	merged, err := r.StageTwo(ctx, summaries)
	if err != nil {
		return "", err
	}
	r.log.Info("Stage two finished: %d characters", len(merged))
	return r.StageThree(ctx, merged)
}

// Summarize produces the full artifact for date.
func (r *Reducer) Summarize(ctx context.Context, date string, blocks []string) (types.SummaryArtifact, error) {
	summary, err := r.DailySummary(ctx, blocks)
	if err != nil {
		return types.SummaryArtifact{}, err
	}
	script, err := r.Podcast(ctx, summary)
	if err != nil {
		return types.SummaryArtifact{}, err
	}
	r.log.Info("AI content generation completed for %s", date)
	return types.SummaryArtifact{Date: date, DailySummary: summary, PodcastScript: script}, nil
}

// Analyze writes a trend analysis. Small days go straight to the analysis
// call; larger ones are condensed by stage one first.
func (r *Reducer) Analyze(ctx context.Context, blocks []string) (string, error) {
	if len(blocks) == 0 {
		return "", ErrNoContent
	}
	input := strings.Join(blocks, Separator)
	if len(blocks) > r.opts.ChunkSize {
		summaries, err := r.StageOne(ctx, blocks)
		if err != nil {
			return "", fmt.Errorf("stage one: %w", err)
		}
		input = strings.Join(summaries, Separator)
	}
	text, err := llm.Call(ctx, r.llm, r.opts.Prompts.Analysis, input)
	if err != nil {
		return "", fmt.Errorf("analysis: %w", err)
	}
	return Defence(text), nil
}

package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/llm"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
)

var testPrompts = Prompts{
	StageOne:   "one",
	StageTwo:   "two",
	StageThree: "three",
	Analysis:   "analysis",
	Podcast:    "podcast",
}

type call struct {
	instructions string
	input        string
}

// recorder answers each call with reply(instructions, input) and keeps every
// call it received.
type recorder struct {
	mu    sync.Mutex
	calls []call
	reply func(instructions, input string) (string, error)
}

func (r *recorder) Stream(ctx context.Context, instructions, input string) (llm.Stream, error) {
	r.mu.Lock()
	r.calls = append(r.calls, call{instructions, input})
	r.mu.Unlock()
	text, err := r.reply(instructions, input)
	if err != nil {
		return nil, err
	}
	return &llm.SliceStream{Chunks: []string{text}}, nil
}

func (r *recorder) byStage(instructions string) []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []call
	for _, c := range r.calls {
		if c.instructions == instructions {
			out = append(out, c)
		}
	}
	return out
}

func echo(instructions, input string) (string, error) {
	return "[" + instructions + "] " + input, nil
}

func blocks(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("item %d", i)
	}
	return out
}

func newTestReducer(r *recorder) *Reducer {
	return NewReducer(r, Options{Prompts: testPrompts}, logger.Discard())
}

func TestChunkSizes(t *testing.T) {
	red := newTestReducer(&recorder{reply: echo})
	chunks := red.Chunk(blocks(12))
	assert.Equal(t, 3, len(chunks))
	assert.Equal(t, 5, strings.Count(chunks[0], "item "))
	assert.Equal(t, 5, strings.Count(chunks[1], "item "))
	assert.Equal(t, "item 10"+Separator+"item 11", chunks[2])
	assert.Equal(t, 0, len(red.Chunk(nil)))
}

func TestStageOneCallCount(t *testing.T) {
	for _, n := range []int{1, 5, 6, 12, 23} {
		rec := &recorder{reply: echo}
		_, err := newTestReducer(rec).StageOne(context.Background(), blocks(n))
		assert.Equal(t, nil, err)
		assert.Equal(t, (n+4)/5, len(rec.byStage("one")))
	}
}

func TestSummarizeTwelveBlocks(t *testing.T) {
	rec := &recorder{reply: func(instructions, input string) (string, error) {
		if instructions == "one" {
			return "S(" + strings.SplitN(input, Separator, 2)[0] + ")", nil
		}
		return echo(instructions, input)
	}}
	art, err := newTestReducer(rec).Summarize(context.Background(), "2024-01-10", blocks(12))
	assert.Equal(t, nil, err)

	assert.Equal(t, 3, len(rec.byStage("one")))
	two := rec.byStage("two")
	assert.Equal(t, 1, len(two))
	// Stage-one outputs arrive in chunk order regardless of completion order.
	assert.Equal(t, "S(item 0)"+Separator+"S(item 5)"+Separator+"S(item 10)", two[0].input)

	three := rec.byStage("three")
	assert.Equal(t, 1, len(three))
	assert.Equal(t, "[two] "+two[0].input, three[0].input)

	podcast := rec.byStage("podcast")
	assert.Equal(t, 1, len(podcast))
	assert.Equal(t, art.DailySummary, podcast[0].input)

	assert.Equal(t, "2024-01-10", art.Date)
	assert.Equal(t, "[three] "+three[0].input, art.DailySummary)
	assert.Equal(t, "[podcast] "+art.DailySummary, art.PodcastScript)
}

func TestNoCallSeesEveryBlock(t *testing.T) {
	rec := &recorder{reply: func(instructions, input string) (string, error) {
		if instructions == "one" {
			return "summary", nil
		}
		return "ok", nil
	}}
	_, err := newTestReducer(rec).Summarize(context.Background(), "d", blocks(40))
	assert.Equal(t, nil, err)
	for _, c := range rec.calls {
		assert.Equal(t, true, strings.Count(c.input, "item ") <= DefaultChunkSize)
	}
}

func TestSummarizeNoContent(t *testing.T) {
	rec := &recorder{reply: echo}
	_, err := newTestReducer(rec).Summarize(context.Background(), "d", nil)
	assert.Equal(t, true, errors.Is(err, ErrNoContent))
	assert.Equal(t, 0, len(rec.calls))

	_, err = newTestReducer(rec).Analyze(context.Background(), []string{})
	assert.Equal(t, true, errors.Is(err, ErrNoContent))
	assert.Equal(t, 0, len(rec.calls))
}

func TestStageOneRetriesOnce(t *testing.T) {
	var mu sync.Mutex
	failed := false
	rec := &recorder{reply: func(instructions, input string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if strings.HasPrefix(input, "item 5") && !failed {
			failed = true
			return "", errors.New("503")
		}
		return "ok", nil
	}}
	out, err := newTestReducer(rec).StageOne(context.Background(), blocks(12))
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{"ok", "ok", "ok"}, out)
	assert.Equal(t, 4, len(rec.byStage("one")))
}

func TestStageOneFailsAfterRetry(t *testing.T) {
	boom := errors.New("503")
	rec := &recorder{reply: func(instructions, input string) (string, error) {
		if strings.HasPrefix(input, "item 10") {
			return "", boom
		}
		return "ok", nil
	}}
	_, err := newTestReducer(rec).Summarize(context.Background(), "d", blocks(12))
	assert.Equal(t, true, errors.Is(err, boom))

	var chunkErr *ChunkError
	assert.Equal(t, true, errors.As(err, &chunkErr))
	assert.Equal(t, 2, chunkErr.Index)
	assert.Equal(t, 0, len(rec.byStage("two")))
}

func TestStageFailurePropagates(t *testing.T) {
	boom := errors.New("timeout")
	rec := &recorder{reply: func(instructions, input string) (string, error) {
		if instructions == "three" {
			return "", boom
		}
		return "ok", nil
	}}
	_, err := newTestReducer(rec).Summarize(context.Background(), "d", blocks(3))
	assert.Equal(t, true, errors.Is(err, boom))
	assert.Equal(t, 0, len(rec.byStage("podcast")))
}

func TestStageThreeAndPodcastAreDefenced(t *testing.T) {
	rec := &recorder{reply: func(instructions, input string) (string, error) {
		switch instructions {
		case "three":
			return "```markdown\n# Digest\n```", nil
		case "podcast":
			return "```\nHello listeners\n```\n", nil
		}
		return "ok", nil
	}}
	art, err := newTestReducer(rec).Summarize(context.Background(), "d", blocks(2))
	assert.Equal(t, nil, err)
	assert.Equal(t, "# Digest", art.DailySummary)
	assert.Equal(t, "Hello listeners", art.PodcastScript)
}

func TestConcurrencyLimit(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0
	release := make(chan struct{})
	var once sync.Once
	rec := &recorder{reply: func(instructions, input string) (string, error) {
		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		reached := inFlight == 2
		mu.Unlock()
		if reached {
			once.Do(func() { close(release) })
		}
		<-release
		mu.Lock()
		inFlight--
		mu.Unlock()
		return "ok", nil
	}}
	red := NewReducer(rec, Options{Prompts: testPrompts, Concurrency: 2}, logger.Discard())
	_, err := red.StageOne(context.Background(), blocks(30))
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, peak)
}

func TestAnalyzeSmallDaySingleCall(t *testing.T) {
	rec := &recorder{reply: echo}
	out, err := newTestReducer(rec).Analyze(context.Background(), blocks(3))
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(rec.calls))
	assert.Equal(t, "[analysis] item 0"+Separator+"item 1"+Separator+"item 2", out)
}

func TestAnalyzeLargeDayReducesFirst(t *testing.T) {
	rec := &recorder{reply: func(instructions, input string) (string, error) {
		if instructions == "one" {
			return "S", nil
		}
		return echo(instructions, input)
	}}
	out, err := newTestReducer(rec).Analyze(context.Background(), blocks(11))
	assert.Equal(t, nil, err)
	assert.Equal(t, 3, len(rec.byStage("one")))
	assert.Equal(t, "[analysis] S"+Separator+"S"+Separator+"S", out)
}

func TestDefaultPrompts(t *testing.T) {
	p := DefaultPrompts("AI Daily", "Welcome to AI Daily.", "See you tomorrow.", false)
	assert.Equal(t, true, strings.Contains(p.Podcast, `"AI Daily"`))
	assert.Equal(t, true, strings.Contains(p.Podcast, "Welcome to AI Daily."))
	assert.Equal(t, true, strings.Contains(p.Podcast, "See you tomorrow."))
	assert.Equal(t, false, strings.Contains(p.StageOne, "Simplified Chinese"))

	zh := DefaultPrompts("AI Daily", "b", "e", true)
	for _, s := range []string{zh.StageOne, zh.StageTwo, zh.StageThree, zh.Analysis, zh.Podcast} {
		assert.Equal(t, true, strings.HasSuffix(s, "original form."))
	}
}

// Package llm is the streaming text-generation boundary. A Stream yields
// chunks in emission order until io.EOF and may be consumed once.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/config"
)

type Stream interface {
	// Recv returns the next chunk, or io.EOF once the stream is finished.
	Recv() (string, error)
	Close() error
}

type Summarizer interface {
	Stream(ctx context.Context, instructions, input string) (Stream, error)
}

// Drain reads s to the end, closes it and returns the concatenated chunks.
// A stream that fails part way yields no text.
func Drain(s Stream) (string, error) {
	defer s.Close()
	var b strings.Builder
	for {
		chunk, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		b.WriteString(chunk)
	}
}

// Call opens a stream and drains it.
func Call(ctx context.Context, s Summarizer, instructions, input string) (string, error) {
	stream, err := s.Stream(ctx, instructions, input)
	if err != nil {
		return "", err
	}
	return Drain(stream)
}

// New builds the summarizer for the configured platform, bounded by the
// optional request rate and the per-call timeout.
func New(cfg config.LLM) (Summarizer, error) {
	var base Summarizer
	switch cfg.Platform {
	case "openai":
		base = NewOpenAI(cfg.APIKey, cfg.APIURL, cfg.Model)
	case "anthropic":
		base = NewAnthropic(cfg.APIKey, cfg.APIURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported model platform %q", cfg.Platform)
	}
	// The limiter wraps the timeout so waiting for a slot doesn't use up the
	// call's own deadline.
	s := WithTimeout(base, cfg.Timeout)
	if cfg.RatePerMin > 0 {
		s = Limited(s, rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMin)), 1))
	}
	return s, nil
}

type timeoutSummarizer struct {
	next    Summarizer
	timeout time.Duration
}

// WithTimeout bounds each call, including draining its stream, by d.
func WithTimeout(s Summarizer, d time.Duration) Summarizer {
	if d <= 0 {
		return s
	}
	return &timeoutSummarizer{next: s, timeout: d}
}

func (t *timeoutSummarizer) Stream(ctx context.Context, instructions, input string) (Stream, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	stream, err := t.next.Stream(ctx, instructions, input)
	if err != nil {
		cancel()
		return nil, err
	}
	return &cancelStream{Stream: stream, cancel: cancel}, nil
}

type cancelStream struct {
	Stream
	cancel context.CancelFunc
}

func (c *cancelStream) Close() error {
	err := c.Stream.Close()
	c.cancel()
	return err
}

type limitedSummarizer struct {
	next    Summarizer
	limiter *rate.Limiter
}

// Limited waits on limiter before every call.
func Limited(s Summarizer, limiter *rate.Limiter) Summarizer {
	return &limitedSummarizer{next: s, limiter: limiter}
}

func (l *limitedSummarizer) Stream(ctx context.Context, instructions, input string) (Stream, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return l.next.Stream(ctx, instructions, input)
}

// SliceStream replays fixed chunks. Useful for tests and dry runs.
type SliceStream struct {
	Chunks []string
	Err    error // returned after the chunks instead of io.EOF
	pos    int
	closed bool
}

func (s *SliceStream) Recv() (string, error) {
	if s.closed {
		return "", errors.New("recv on closed stream")
	}
	if s.pos < len(s.Chunks) {
		s.pos++
		return s.Chunks[s.pos-1], nil
	}
	if s.Err != nil {
		return "", s.Err
	}
	return "", io.EOF
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

func (s *SliceStream) Closed() bool { return s.closed }

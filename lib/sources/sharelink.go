package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/filters"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/web"
)

var hydrateMarker = regexp.MustCompile(`window\.__HYDRATE__\["feeds\.\$get,query:id=\d+"\]=JSON\.parse\('(.+?)'\)`)

var ErrMarkerNotFound = errors.New("hydration marker not found")

type ShareLinkOptions struct {
	FeedID     string
	BaseURL    string // e.g. https://app.folo.is/share/feeds/
	FilterDays int
}

// ShareLink reads a feed share page and decodes the entries embedded in its
// hydration script.
type ShareLink struct {
	opts   ShareLinkOptions
	client *web.Client
	log    *logger.Logger
	now    func() time.Time
}

func NewShareLink(opts ShareLinkOptions, client *web.Client, log *logger.Logger) *ShareLink {
	return &ShareLink{opts: opts, client: client, log: log, now: time.Now}
}

func (s *ShareLink) Type() types.ContentType { return types.ElonMusk }

func (s *ShareLink) emptyFeed() types.UnifiedFeed {
	return types.NewFeed(
		"Elon Musk Feeds",
		"https://twitter.com/elonmusk",
		"Aggregated Elon Musk feeds from Twitter and other sources",
		"zh-cn",
	)
}

type shareEntry struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	PublishedAt string `json:"publishedAt"`
	Author      string `json:"author"`
}

type sharePayload struct {
	Entries []shareEntry `json:"entries"`
}

// The share link needs no credentials; authToken is accepted for interface
// parity.
func (s *ShareLink) Fetch(ctx context.Context, authToken string) types.UnifiedFeed {
	feed := s.emptyFeed()
	if s.opts.FeedID == "" {
		s.log.Warning("ELONMUSK_FEED_ID is not set. Skipping share link fetch.")
		return feed
	}

	shareURL := s.opts.BaseURL + s.opts.FeedID + "?view=1"
	s.log.Info("Fetching share link %s", shareURL)
	page, err := s.client.Get(ctx, shareURL, map[string]string{"User-Agent": web.RandomUserAgent()})
	if err != nil {
		s.log.Error("Failed to fetch share link: %v", err)
		return feed
	}

	payload, err := extractPayload(page)
	if err != nil {
		// Distinct from "no new entries" so a broken marker shows up in logs.
		s.log.Error("Failed to extract JSON data from share link: %v", err)
		return feed
	}

	var data sharePayload
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		s.log.Error("Failed to parse share link JSON: %v", err)
		return feed
	}

	raw := make([]types.RawSourceItem, 0, len(data.Entries))
	for _, e := range data.Entries {
		raw = append(raw, entryToItem(e))
	}
	feed.Items = filters.FilterRecent(raw, s.opts.FilterDays, s.now())
	s.log.Info("Successfully fetched %d entries (%d in payload)", len(feed.Items), len(raw))
	return feed
}

func entryToItem(e shareEntry) types.RawSourceItem {
	title := e.Title
	if title == "" {
		title = truncateRunes(e.Description, 100)
	}
	if title == "" {
		title = "无标题"
	}
	content := e.Content
	if content == "" {
		content = e.Description
	}
	author := e.Author
	if author == "" {
		author = "Elon Musk"
	}
	return types.RawSourceItem{
		ID:            e.ID,
		URL:           e.URL,
		Title:         title,
		ContentHTML:   content,
		DatePublished: e.PublishedAt,
		Authors:       []types.Author{{Name: author}},
		Source:        "Elon Musk",
	}
}

func (s *ShareLink) Transform(feed types.UnifiedFeed, declared types.ContentType) []types.UnifiedContentItem {
	return Transform(feed, declared, "Elon Musk")
}

func (s *ShareLink) RenderDisplay(item types.UnifiedContentItem) string {
	return renderDisplay(item)
}

// extractPayload looks for the hydration marker in script bodies first and
// falls back to the raw page.
func extractPayload(page []byte) (string, error) {
	var literal string
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err == nil {
		doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if m := hydrateMarker.FindStringSubmatch(sel.Text()); m != nil {
				literal = m[1]
				return false
			}
			return true
		})
	}
	if literal == "" {
		m := hydrateMarker.FindSubmatch(page)
		if m == nil {
			return "", ErrMarkerNotFound
		}
		literal = string(m[1])
	}
	return unescapeJSString(literal)
}

// unescapeJSString decodes the body of a single-quoted JavaScript string
// literal.
func unescapeJSString(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			return "", fmt.Errorf("dangling escape at end of literal")
		}
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case 'x':
			if i+2 >= len(s) {
				return "", fmt.Errorf("short \\x escape at %d", i)
			}
			n, err := strconv.ParseUint(s[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("bad \\x escape at %d: %w", i, err)
			}
			b.WriteRune(rune(n))
			i += 2
		case 'u':
			r, width, err := decodeUnicodeEscape(s[i+1:])
			if err != nil {
				return "", fmt.Errorf("bad \\u escape at %d: %w", i, err)
			}
			b.WriteRune(r)
			i += width
		default:
			// \' \" \\ \/ and any other character stand for themselves.
			r, size := utf8.DecodeRuneInString(s[i:])
			b.WriteRune(r)
			i += size - 1
		}
	}
	return b.String(), nil
}

// decodeUnicodeEscape reads XXXX (and a following \uXXXX low surrogate when
// needed) and returns the rune plus the number of bytes consumed.
func decodeUnicodeEscape(s string) (rune, int, error) {
	if len(s) < 4 {
		return 0, 0, fmt.Errorf("short escape")
	}
	n, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, 0, err
	}
	r := rune(n)
	if utf16.IsSurrogate(r) && len(s) >= 10 && s[4] == '\\' && s[5] == 'u' {
		if lo, err := strconv.ParseUint(s[6:10], 16, 16); err == nil {
			if pair := utf16.DecodeRune(r, rune(lo)); pair != utf8.RuneError {
				return pair, 10, nil
			}
		}
	}
	return r, 4, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

package filters

import (
	"errors"
	"strings"
	"time"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
)

var ErrUnparseableDate = errors.New("unparseable date")

// Layouts seen in RSS pubDate (RFC 2822 variants) and JSON feeds (ISO 8601).
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// RFC 822 zone names. time.Parse accepts any abbreviation but only knows
// the offset of the local zone, so these are rewritten as numeric offsets.
var zoneOffsets = map[string]string{
	"EST": "-0500",
	"EDT": "-0400",
	"CST": "-0600",
	"CDT": "-0500",
	"MST": "-0700",
	"MDT": "-0600",
	"PST": "-0800",
	"PDT": "-0700",
}

func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparseableDate
	}
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		if offset, ok := zoneOffsets[s[i+1:]]; ok {
			s = s[:i+1] + offset
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrUnparseableDate
}

// IsWithinLastDays reports whether now - date <= days. Dates in the future
// count as recent; unparseable dates never do.
func IsWithinLastDays(date string, days int, now time.Time) bool {
	t, err := ParseDate(date)
	if err != nil {
		return false
	}
	return now.Sub(t) <= time.Duration(days)*24*time.Hour
}

// FilterRecent keeps items published within the window, preserving order.
func FilterRecent(items []types.RawSourceItem, days int, now time.Time) []types.RawSourceItem {
	kept := make([]types.RawSourceItem, 0, len(items))
	for _, item := range items {
		if IsWithinLastDays(item.DatePublished, days, now) {
			kept = append(kept, item)
		}
	}
	return kept
}

package filters

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
)

var now = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	valid := []string{
		"Mon, 08 Jan 2024 10:00:00 +0000",
		"Mon, 08 Jan 2024 10:00:00 GMT",
		"Mon, 8 Jan 2024 10:00:00 +0800",
		"2024-01-08T10:00:00Z",
		"2024-01-08T10:00:00.123Z",
		"2024-01-08T10:00:00+08:00",
		"2024-01-08",
	}
	for _, s := range valid {
		_, err := ParseDate(s)
		assert.Equal(t, nil, err)
	}

	for _, s := range []string{"", "yesterday", "08/01/2024"} {
		_, err := ParseDate(s)
		assert.Equal(t, ErrUnparseableDate, err)
	}
}

func TestParseDateNamedZones(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"Mon, 08 Jan 2024 10:00:00 EST", time.Date(2024, 1, 8, 15, 0, 0, 0, time.UTC)},
		{"Mon, 08 Jan 2024 10:00:00 EDT", time.Date(2024, 1, 8, 14, 0, 0, 0, time.UTC)},
		{"Mon, 8 Jan 2024 10:00:00 PST", time.Date(2024, 1, 8, 18, 0, 0, 0, time.UTC)},
		{"Mon, 08 Jan 2024 10:00:00 CDT", time.Date(2024, 1, 8, 15, 0, 0, 0, time.UTC)},
		{"08 Jan 24 10:00 MST", time.Date(2024, 1, 8, 17, 0, 0, 0, time.UTC)},
		{"Mon, 08 Jan 2024 10:00:00 GMT", time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		assert.Equal(t, nil, err)
		assert.Equal(t, tt.want, got.UTC())
	}

	est, _ := ParseDate("Mon, 08 Jan 2024 10:00:00 EST")
	numeric, _ := ParseDate("Mon, 08 Jan 2024 10:00:00 -0500")
	assert.Equal(t, true, est.Equal(numeric))
}

func TestIsWithinLastDays(t *testing.T) {
	assert.Equal(t, true, IsWithinLastDays(now.Add(-48*time.Hour).Format(time.RFC1123Z), 7, now))
	assert.Equal(t, false, IsWithinLastDays(now.Add(-240*time.Hour).Format(time.RFC1123Z), 7, now))
	assert.Equal(t, true, IsWithinLastDays(now.Add(-7*24*time.Hour).Format(time.RFC3339), 7, now))
	assert.Equal(t, true, IsWithinLastDays(now.Add(time.Hour).Format(time.RFC3339), 7, now))
	assert.Equal(t, false, IsWithinLastDays("not a date", 7, now))
}

func TestFilterRecentKeepsOrderAndDropsBadDates(t *testing.T) {
	items := []types.RawSourceItem{
		{ID: "a", DatePublished: now.Add(-24 * time.Hour).Format(time.RFC3339)},
		{ID: "b", DatePublished: "garbage"},
		{ID: "c", DatePublished: now.Add(-30 * 24 * time.Hour).Format(time.RFC3339)},
		{ID: "d", DatePublished: now.Add(-3 * 24 * time.Hour).Format(time.RFC1123Z)},
	}
	kept := FilterRecent(items, 7, now)
	assert.Equal(t, 2, len(kept))
	assert.Equal(t, "a", kept[0].ID)
	assert.Equal(t, "d", kept[1].ID)

	for _, item := range kept {
		parsed, err := ParseDate(item.DatePublished)
		assert.Equal(t, nil, err)
		assert.Equal(t, true, now.Sub(parsed) <= 7*24*time.Hour)
	}
}

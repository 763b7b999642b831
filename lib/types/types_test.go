package types

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "2024-01-10-elon-musk", SnapshotKey("2024-01-10", ElonMusk))
	assert.Equal(t, "2024-01-10-socialMedia", SnapshotKey("2024-01-10", SocialMedia))
}

func TestJoinAuthors(t *testing.T) {
	assert.Equal(t, "Unknown", JoinAuthors(nil))
	assert.Equal(t, "", JoinAuthors([]Author{}))
	assert.Equal(t, "Ada, Grace", JoinAuthors([]Author{{Name: "Ada"}, {Name: "Grace"}}))
}

func TestNewFeedEncodesEmptyItems(t *testing.T) {
	data, err := json.Marshal(NewFeed("t", "https://example.com", "d", "en"))
	assert.Equal(t, nil, err)

	var decoded map[string]any
	assert.Equal(t, nil, json.Unmarshal(data, &decoded))
	assert.Equal(t, []any{}, decoded["items"])
	assert.Equal(t, JSONFeedVersion, decoded["version"])
}

func TestUnifiedContentItemKeepsEmptyStrings(t *testing.T) {
	data, err := json.Marshal(UnifiedContentItem{Type: News})
	assert.Equal(t, nil, err)

	var decoded map[string]any
	assert.Equal(t, nil, json.Unmarshal(data, &decoded))
	for _, field := range []string{"id", "type", "url", "title", "description", "published_date", "authors", "source"} {
		_, ok := decoded[field]
		assert.Equal(t, true, ok)
	}
}

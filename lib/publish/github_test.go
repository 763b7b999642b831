package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/google/go-github/v68/github"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/config"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
)

type putRequest struct {
	Message string  `json:"message"`
	Content []byte  `json:"content"`
	SHA     *string `json:"sha"`
	Branch  string  `json:"branch"`
}

// fakeGitHub serves the parts of the contents API the store uses.
type fakeGitHub struct {
	mu    sync.Mutex
	files map[string][]byte
	puts  []putRequest
	auth  []string
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	path, ok := strings.CutPrefix(r.URL.Path, "/repos/acme/digest/contents/")
	if !ok {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		content, found := f.files[path]
		if !found || r.URL.Query().Get("ref") != "main" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"type": "file", "path": path, "sha": BlobSHA(content)})
	case http.MethodPut:
		var req putRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.puts = append(f.puts, req)
		_, exists := f.files[path]
		if exists != (req.SHA != nil) {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message":"sha mismatch"}`))
			return
		}
		f.files[path] = req.Content
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"content": map[string]any{"sha": BlobSHA(req.Content)}})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestGitHub(t *testing.T, fake *fakeGitHub) *GitHub {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := github.NewClient(srv.Client()).WithAuthToken("ghp_test")
	base, err := url.Parse(srv.URL + "/")
	assert.Equal(t, nil, err)
	client.BaseURL = base
	return NewGitHubWithClient(client, config.GitHub{Owner: "acme", Repo: "digest", Branch: "main"})
}

func TestGitHubVersionNotFound(t *testing.T) {
	gh := newTestGitHub(t, &fakeGitHub{files: map[string][]byte{}})
	sha, found, err := gh.Version(context.Background(), "daily/2024-01-10.md")
	assert.Equal(t, nil, err)
	assert.Equal(t, false, found)
	assert.Equal(t, "", sha)
}

func TestGitHubCreateThenUpdate(t *testing.T) {
	fake := &fakeGitHub{files: map[string][]byte{}}
	gh := newTestGitHub(t, fake)
	ctx := context.Background()

	err := gh.Write(ctx, "daily/2024-01-10.md", []byte("v1"), "Create daily summary file for 2024-01-10", "")
	assert.Equal(t, nil, err)

	sha, found, err := gh.Version(ctx, "daily/2024-01-10.md")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, found)
	assert.Equal(t, BlobSHA([]byte("v1")), sha)

	err = gh.Write(ctx, "daily/2024-01-10.md", []byte("v2"), "Update daily summary file for 2024-01-10", sha)
	assert.Equal(t, nil, err)

	assert.Equal(t, 2, len(fake.puts))
	assert.Equal(t, "main", fake.puts[0].Branch)
	assert.Equal(t, true, fake.puts[0].SHA == nil)
	assert.Equal(t, sha, *fake.puts[1].SHA)
	assert.Equal(t, "v2", string(fake.files["daily/2024-01-10.md"]))
	assert.Equal(t, "Bearer ghp_test", fake.auth[0])
}

func TestGitHubWriteConflict(t *testing.T) {
	fake := &fakeGitHub{files: map[string][]byte{"podcast/2024-01-10.md": []byte("x")}}
	gh := newTestGitHub(t, fake)
	err := gh.Write(context.Background(), "podcast/2024-01-10.md", []byte("y"), "Create", "")
	assert.NotEqual(t, nil, err)
}

func TestPublishThroughGitHub(t *testing.T) {
	fake := &fakeGitHub{files: map[string][]byte{"daily/2024-01-10.md": []byte("# Digest\n\nbody\n")}}
	gh := newTestGitHub(t, fake)

	res, err := NewPublisher(gh, logger.Discard()).Publish(context.Background(), "2024-01-10", artifact)
	assert.Equal(t, nil, err)
	assert.Equal(t, StatusUnchanged, res[0].Status)
	assert.Equal(t, StatusCreated, res[1].Status)
	assert.Equal(t, 1, len(fake.puts))
	assert.Equal(t, "Create podcast script file for 2024-01-10", fake.puts[0].Message)
}

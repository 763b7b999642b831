package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/config"
)

// GitHub stores documents as files on one branch of a repository through the
// contents API.
type GitHub struct {
	client  *github.Client
	owner   string
	repo    string
	branch  string
	timeout time.Duration
}

func NewGitHub(cfg config.GitHub) *GitHub {
	return NewGitHubWithClient(github.NewClient(nil).WithAuthToken(cfg.Token), cfg)
}

// NewGitHubWithClient uses client as is, e.g. one pointed at another base URL.
func NewGitHubWithClient(client *github.Client, cfg config.GitHub) *GitHub {
	return &GitHub{
		client:  client,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
		timeout: cfg.Timeout,
	}
}

func (g *GitHub) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *GitHub) Version(ctx context.Context, path string) (string, bool, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	file, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, path,
		&github.RepositoryContentGetOptions{Ref: g.branch})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("getting %s: %w", path, err)
	}
	if file == nil {
		return "", false, errors.New(path + " is a directory")
	}
	return file.GetSHA(), true, nil
}

func (g *GitHub) Write(ctx context.Context, path string, content []byte, message, expectedSHA string) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
		Branch:  github.Ptr(g.branch),
	}
	var err error
	if expectedSHA == "" {
		_, _, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, path, opts)
	} else {
		opts.SHA = github.Ptr(expectedSHA)
		_, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, path, opts)
	}
	return err
}

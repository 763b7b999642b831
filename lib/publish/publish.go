// Package publish writes summary artifacts into a versioned document store.
package publish

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
)

// DocumentStore is a path-addressed store where every write supersedes a
// known version.
type DocumentStore interface {
	// Version returns the current content sha at path, or found=false.
	Version(ctx context.Context, path string) (sha string, found bool, err error)
	// Write creates path when expectedSHA is empty and updates it otherwise.
	Write(ctx context.Context, path string, content []byte, message, expectedSHA string) error
}

type Status string

const (
	StatusCreated   Status = "created"
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

type Result struct {
	Path   string
	Status Status
	Err    error
}

type file struct {
	path        string
	description string
	content     string
}

type Publisher struct {
	store DocumentStore
	log   *logger.Logger
}

func NewPublisher(store DocumentStore, log *logger.Logger) *Publisher {
	return &Publisher{store: store, log: log}
}

func files(date string, art types.SummaryArtifact) []file {
	daily := ""
	if art.DailySummary != "" {
		daily = FormatMarkdown(art.DailySummary)
	}
	return []file{
		{path: "daily/" + date + ".md", description: "Daily Summary File", content: daily},
		{path: "podcast/" + date + ".md", description: "Podcast Script File", content: art.PodcastScript},
	}
}

// Publish writes the daily summary and podcast script for date. A file that
// fails does not stop the other; all failures are joined in the error.
func (p *Publisher) Publish(ctx context.Context, date string, art types.SummaryArtifact) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	for _, f := range files(date, art) {
		res := p.publishFile(ctx, date, f)
		if res.Err != nil {
			p.log.Error("Failed to publish %s: %v", f.path, res.Err)
			errs = append(errs, res.Err)
		} else {
			p.log.Info("Published %s: %s", f.path, res.Status)
		}
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func (p *Publisher) publishFile(ctx context.Context, date string, f file) Result {
	if f.content == "" {
		return Result{Path: f.path, Status: StatusSkipped}
	}
	sha, found, err := p.store.Version(ctx, f.path)
	if err != nil {
		return Result{Path: f.path, Status: StatusFailed, Err: fmt.Errorf("reading %s: %w", f.path, err)}
	}
	content := []byte(f.content)
	if found && sha == BlobSHA(content) {
		return Result{Path: f.path, Status: StatusUnchanged}
	}

	verb, status := "Create", StatusCreated
	if found {
		verb, status = "Update", StatusUpdated
	}
	message := fmt.Sprintf("%s %s for %s", verb, strings.ToLower(f.description), date)
	if err := p.store.Write(ctx, f.path, content, message, sha); err != nil {
		return Result{Path: f.path, Status: StatusFailed, Err: fmt.Errorf("writing %s: %w", f.path, err)}
	}
	return Result{Path: f.path, Status: status}
}

// BlobSHA is the git object id of content stored as a blob.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

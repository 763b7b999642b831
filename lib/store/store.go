// Package store persists one JSON snapshot per (date, source type). Writes
// replace; reads of a missing key yield an empty snapshot.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
)

var ErrUnsupportedScheme = errors.New("unsupported store scheme")

// KV is the backend contract. Get reports found=false for a missing key.
type KV interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Close() error
}

// Open picks a backend from the URL scheme: memory://, postgres://,
// postgresql://, redis://, rediss:// or sqlite://path.
func Open(ctx context.Context, rawURL string, opts Options) (KV, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing store url: %w", err)
	}
	switch u.Scheme {
	case "memory":
		return NewMemory(), nil
	case "postgres", "postgresql":
		return NewPostgres(ctx, rawURL)
	case "redis", "rediss":
		return NewRedis(ctx, rawURL, opts.TTL)
	case "sqlite":
		return NewSQLite(ctx, strings.TrimPrefix(rawURL, "sqlite://"))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

// Snapshots is the gateway the pipeline talks to.
type Snapshots struct {
	kv  KV
	log *logger.Logger
}

func NewSnapshots(kv KV, log *logger.Logger) *Snapshots {
	return &Snapshots{kv: kv, log: log}
}

// Put replaces the snapshot stored for date and source type.
func (s *Snapshots) Put(ctx context.Context, date string, sourceType types.ContentType, items []types.UnifiedContentItem) error {
	if items == nil {
		items = []types.UnifiedContentItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	key := types.SnapshotKey(date, sourceType)
	if err := s.kv.Put(ctx, key, data); err != nil {
		return fmt.Errorf("storing %s: %w", key, err)
	}
	return nil
}

// Get never fails: a missing key, a backend error and an undecodable value
// all read as an empty snapshot.
func (s *Snapshots) Get(ctx context.Context, date string, sourceType types.ContentType) []types.UnifiedContentItem {
	key := types.SnapshotKey(date, sourceType)
	data, found, err := s.kv.Get(ctx, key)
	if err != nil {
		s.log.Error("Reading %s: %v", key, err)
		return []types.UnifiedContentItem{}
	}
	if !found {
		s.log.Debug("No snapshot for %s", key)
		return []types.UnifiedContentItem{}
	}
	var items []types.UnifiedContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.Error("Decoding %s: %v", key, err)
		return []types.UnifiedContentItem{}
	}
	if items == nil {
		items = []types.UnifiedContentItem{}
	}
	return items
}

// PutAll writes every snapshot concurrently. Each write is independent; the
// returned error joins whichever writes failed.
func (s *Snapshots) PutAll(ctx context.Context, date string, all map[types.ContentType][]types.UnifiedContentItem) error {
	keys := make([]types.ContentType, 0, len(all))
	for sourceType := range all {
		keys = append(keys, sourceType)
	}
	errs := make([]error, len(keys))

	var wg sync.WaitGroup
	for i, sourceType := range keys {
		wg.Add(1)
		go func(i int, sourceType types.ContentType) {
			defer wg.Done()
			items := all[sourceType]
			if err := s.Put(ctx, date, sourceType, items); err != nil {
				s.log.Error("%v", err)
				errs[i] = err
				return
			}
			s.log.Info("Stored %d items under %s", len(items), types.SnapshotKey(date, sourceType))
		}(i, sourceType)
	}
	wg.Wait()
	return errors.Join(errs...)
}

type Options struct {
	// TTL applies to backends with native expiry (Redis). Zero keeps keys forever.
	TTL time.Duration
}

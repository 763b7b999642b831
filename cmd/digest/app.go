package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/aggregator"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/config"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/digest"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/llm"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/logger"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/pipeline"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/publish"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/sources"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/store"
	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/web"
)

type app struct {
	cfg      config.Config
	log      *logger.Logger
	kv       store.KV
	pipeline *pipeline.Pipeline
}

// setup loads configuration and wires every component. Nothing external is
// touched before the configuration is known to be complete.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, err := logFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	kv, err := store.Open(ctx, cfg.StoreURL, store.Options{TTL: cfg.SnapshotTTL})
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}
	summarizer, err := llm.New(cfg.LLM)
	if err != nil {
		kv.Close()
		return nil, err
	}

	client := web.NewClient(cfg.HTTPTimeout)
	registry := sources.Default(cfg, client, log.Module("SOURCES"))
	snapshots := store.NewSnapshots(kv, log.Module("STORE"))
	prompts := digest.DefaultPrompts(cfg.Podcast.Title, cfg.Podcast.Begin, cfg.Podcast.End, cfg.LLM.OpenTranslate)

	p := &pipeline.Pipeline{
		Registry:   registry,
		Snapshots:  snapshots,
		Aggregator: aggregator.New(snapshots, registry.Types(), log.Module("AGGREGATOR")),
		Reducer: digest.NewReducer(summarizer, digest.Options{
			Concurrency: cfg.LLM.Concurrency,
			Prompts:     prompts,
		}, log.Module("DIGEST")),
		Publisher: publish.NewPublisher(publish.NewGitHub(cfg.GitHub), log.Module("PUBLISH")),
		AuthToken: cfg.AuthToken,
		Log:       log.Module("PIPELINE"),
	}
	log.Info("Loaded %d sources, store %s, model %s/%s", len(registry.Sources()), kvScheme(cfg.StoreURL), cfg.LLM.Platform, cfg.LLM.Model)
	return &app{cfg: cfg, log: log, kv: kv, pipeline: p}, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.log.Warning("Closing snapshot store: %v", err)
	}
}

// kvScheme keeps credentials in the store URL out of the logs.
func kvScheme(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "?"
	}
	return u.Scheme
}

// Package config builds the immutable run configuration from the process
// environment, an optional .env file and an optional YAML feeds file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Qiangs1023/CloudFlare-AI-Insight-Daily/lib/types"
)

var requiredVars = []string{
	"STORE_URL",
	"LLM_API_KEY", "LLM_MODEL", "USE_MODEL_PLATFORM",
	"GITHUB_TOKEN", "GITHUB_REPO_OWNER", "GITHUB_REPO_NAME", "GITHUB_BRANCH",
	"PODCAST_TITLE", "PODCAST_BEGIN", "PODCAST_END",
	"FOLO_FILTER_DAYS",
}

var ErrMissing = errors.New("missing required configuration")

// MissingError names every required variable that was unset.
type MissingError struct {
	Vars []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("essential environment variables are missing: %s", strings.Join(e.Vars, ", "))
}

func (e *MissingError) Is(target error) bool { return target == ErrMissing }

// Feed is one extra syndication feed declared in FEEDS_FILE.
type Feed struct {
	Type types.ContentType `yaml:"type"`
	Name string            `yaml:"name"`
	URL  string            `yaml:"url"`
}

type LLM struct {
	Platform      string // "openai" or "anthropic"
	APIKey        string
	APIURL        string
	Model         string
	Timeout       time.Duration
	Concurrency   int // 0 runs every stage-one chunk at once
	RatePerMin    int
	OpenTranslate bool
}

type GitHub struct {
	Token   string
	Owner   string
	Repo    string
	Branch  string
	Timeout time.Duration
}

type Podcast struct {
	Title string
	Begin string
	End   string
}

type Log struct {
	Path       string
	Level      string
	MaxSize    int
	MaxBackups int
	MaxAge     int
}

type Config struct {
	StoreURL        string
	SnapshotTTL     time.Duration
	FilterDays      int
	HTTPTimeout     time.Duration
	AuthToken       string
	ElonMuskFeedID  string
	ShareBaseURL    string
	RSSFeedURL      string
	Feeds           []Feed
	ScheduleHourUTC int

	LLM     LLM
	GitHub  GitHub
	Podcast Podcast
	Log     Log
}

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. All required variables are checked
// before anything else so the error names every missing one.
func FromEnv(getenv func(string) string) (Config, error) {
	var missing []string
	for _, name := range requiredVars {
		if strings.TrimSpace(getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Config{}, &MissingError{Vars: missing}
	}

	var errs []error
	intVar := func(name string, def int) int {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return def
		}
		return n
	}
	durationVar := func(name string, def time.Duration) time.Duration {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return def
		}
		return d
	}
	withDefault := func(name, def string) string {
		if v := getenv(name); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		StoreURL:        getenv("STORE_URL"),
		SnapshotTTL:     durationVar("SNAPSHOT_TTL", 0),
		FilterDays:      intVar("FOLO_FILTER_DAYS", 7),
		HTTPTimeout:     durationVar("HTTP_TIMEOUT", 30*time.Second),
		AuthToken:       getenv("FOLO_COOKIE"),
		ElonMuskFeedID:  getenv("ELONMUSK_FEED_ID"),
		ShareBaseURL:    withDefault("FOLO_SHARE_URL", "https://app.folo.is/share/feeds/"),
		RSSFeedURL:      getenv("RSS_FEED_URL"),
		ScheduleHourUTC: intVar("SCHEDULE_HOUR_UTC", 23),
		LLM: LLM{
			Platform:      strings.ToLower(getenv("USE_MODEL_PLATFORM")),
			APIKey:        getenv("LLM_API_KEY"),
			APIURL:        getenv("LLM_API_URL"),
			Model:         getenv("LLM_MODEL"),
			Timeout:       durationVar("LLM_TIMEOUT", 5*time.Minute),
			Concurrency:   intVar("LLM_CONCURRENCY", 0),
			RatePerMin:    intVar("LLM_RATE_PER_MINUTE", 0),
			OpenTranslate: parseBool(getenv("OPEN_TRANSLATE")),
		},
		GitHub: GitHub{
			Token:   getenv("GITHUB_TOKEN"),
			Owner:   getenv("GITHUB_REPO_OWNER"),
			Repo:    getenv("GITHUB_REPO_NAME"),
			Branch:  getenv("GITHUB_BRANCH"),
			Timeout: durationVar("PUBLISH_TIMEOUT", 30*time.Second),
		},
		Podcast: Podcast{
			Title: getenv("PODCAST_TITLE"),
			Begin: getenv("PODCAST_BEGIN"),
			End:   getenv("PODCAST_END"),
		},
		Log: Log{
			Path:       getenv("LOG_PATH"),
			Level:      withDefault("LOG_LEVEL", "INFO"),
			MaxSize:    intVar("LOG_MAX_SIZE", 10),
			MaxBackups: intVar("LOG_MAX_BACKUPS", 5),
			MaxAge:     intVar("LOG_MAX_AGE", 30),
		},
	}

	switch cfg.LLM.Platform {
	case "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("USE_MODEL_PLATFORM: unsupported platform %q", cfg.LLM.Platform))
	}
	if cfg.FilterDays < 0 {
		errs = append(errs, fmt.Errorf("FOLO_FILTER_DAYS: must be non-negative, got %d", cfg.FilterDays))
	}
	if cfg.ScheduleHourUTC < 0 || cfg.ScheduleHourUTC > 23 {
		errs = append(errs, fmt.Errorf("SCHEDULE_HOUR_UTC: must be 0-23, got %d", cfg.ScheduleHourUTC))
	}
	if cfg.LLM.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("LLM_CONCURRENCY: must be non-negative, got %d", cfg.LLM.Concurrency))
	}

	if path := getenv("FEEDS_FILE"); path != "" {
		feeds, err := LoadFeeds(path)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.Feeds = feeds
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type feedsFile struct {
	Feeds []Feed `yaml:"feeds"`
}

// LoadFeeds reads a YAML document of the form
//
//	feeds:
//	  - type: news
//	    name: Hacker News
//	    url: https://hnrss.org/frontpage
func LoadFeeds(path string) ([]Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading feeds file: %w", err)
	}
	return ParseFeeds(data)
}

func ParseFeeds(data []byte) ([]Feed, error) {
	var f feedsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing feeds file: %w", err)
	}
	seen := make(map[types.ContentType]bool)
	for i, feed := range f.Feeds {
		if feed.Type == "" || feed.URL == "" {
			return nil, fmt.Errorf("feeds[%d]: type and url are required", i)
		}
		if feed.Type == types.RSSFeed || feed.Type == types.ElonMusk {
			return nil, fmt.Errorf("feeds[%d]: type %q is reserved", i, feed.Type)
		}
		if seen[feed.Type] {
			return nil, fmt.Errorf("feeds[%d]: duplicate type %q", i, feed.Type)
		}
		seen[feed.Type] = true
		if feed.Name == "" {
			f.Feeds[i].Name = string(feed.Type)
		}
	}
	return f.Feeds, nil
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

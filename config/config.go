// Package config loads process-wide settings from the environment.
//
// Load reads every setting once at startup; the resulting Config is treated
// as read-only for the remainder of the process lifetime and is safe to share.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the immutable configuration snapshot.
type Config struct {
	OpenAI   OpenAIConfig
	Crawler  CrawlerConfig
	Schedule ScheduleConfig
	Output   OutputConfig
}

// OpenAIConfig configures the language-model client.
type OpenAIConfig struct {
	// APIKey is required; Validate fails without it.
	APIKey string

	// Model is the chat model identifier.
	Model string

	// BaseURL optionally points at an OpenAI-compatible endpoint.
	BaseURL string

	Temperature float64
	MaxTokens   int
}

// CrawlerConfig configures the paper source.
type CrawlerConfig struct {
	// MaxPapersPerDay caps how many papers one batch processes.
	MaxPapersPerDay int

	// DaysToCrawl is the submitted-date window in days.
	DaysToCrawl int

	// Query optionally restricts the crawl to an arXiv category
	// (e.g. "cs.AI"). Empty means a pure date-window query.
	Query string

	// HTTPTimeout bounds every network call.
	HTTPTimeout time.Duration

	// DownloadPDF enables saving the source PDF alongside the articles.
	DownloadPDF bool
}

// ScheduleConfig holds the daily schedule time as "HH:MM".
type ScheduleConfig struct {
	Time string
}

// OutputConfig configures filesystem locations.
type OutputConfig struct {
	Dir                 string
	LogDir              string
	DBPath              string
	WechatTemplate      string
	XiaohongshuTemplate string
}

// Load builds a Config from the environment, applying defaults for anything
// unset. It never fails; Validate reports missing required settings.
func Load() *Config {
	cfg := &Config{
		OpenAI: OpenAIConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       getenv("OPENAI_MODEL", "gpt-3.5-turbo"),
			BaseURL:     os.Getenv("OPENAI_BASE_URL"),
			Temperature: getfloat("TEMPERATURE", 0.7),
			MaxTokens:   getint("SUMMARY_LENGTH", 1000),
		},
		Crawler: CrawlerConfig{
			MaxPapersPerDay: getint("MAX_PAPERS_PER_DAY", 5),
			DaysToCrawl:     getint("DAYS_TO_CRAWL", 7),
			Query:           os.Getenv("ARXIV_QUERY"),
			HTTPTimeout:     time.Duration(getint("HTTP_TIMEOUT", 60)) * time.Second,
			DownloadPDF:     getbool("DOWNLOAD_PDF", false),
		},
		Schedule: ScheduleConfig{
			Time: getenv("SCHEDULE_TIME", "10:00"),
		},
		Output: OutputConfig{
			Dir:                 getenv("OUTPUT_DIR", "output"),
			LogDir:              getenv("LOG_DIR", "logs"),
			WechatTemplate:      getenv("WECHAT_TEMPLATE", ""),
			XiaohongshuTemplate: getenv("XIAOHONGSHU_TEMPLATE", ""),
		},
	}
	cfg.Output.DBPath = getenv("DB_PATH", cfg.Output.Dir+"/paperpush.db")
	return cfg
}

// Validate checks the snapshot for fatal misconfiguration. A missing API key
// or an unparseable schedule time stops the process before any scheduling.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if _, _, err := ParseClock(c.Schedule.Time); err != nil {
		return fmt.Errorf("SCHEDULE_TIME: %w", err)
	}
	if c.Crawler.MaxPapersPerDay <= 0 {
		return fmt.Errorf("MAX_PAPERS_PER_DAY must be positive, got %d", c.Crawler.MaxPapersPerDay)
	}
	if c.Crawler.DaysToCrawl <= 0 {
		return fmt.Errorf("DAYS_TO_CRAWL must be positive, got %d", c.Crawler.DaysToCrawl)
	}
	return nil
}

// ParseClock parses a wall-clock time in "HH:MM" form.
func ParseClock(s string) (hour, min int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid HH:MM time %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getfloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getbool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Load envs from .env
// Load YAML config
// Override with env vars
// Provide default values
// Validate config

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath      = "configs/config.yaml"
	DefaultSourceURL = "https://hh.ru/search/resume?area=1&area=2&exp_period=all_time&logic=normal&no_magic=true&ored_clusters=true&pos=full_text&search_period=3&text=Python+%D1%80%D0%B0%D0%B7%D1%80%D0%B0%D0%B1%D0%BE%D1%82%D1%87%D0%B8%D0%BA&order_by=publication_time"

	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"

	// MaxChunkSize keeps one Telegram message under its 4096 character limit.
	MaxChunkSize = 20
)

type Config struct {
	//Source page
	SourceURL      string        `yaml:"source_url"`
	BaseURL        string        `yaml:"base_url"`
	ListingPath    string        `yaml:"listing_path"`
	CardMarker     string        `yaml:"card_marker"`
	FetchMode      string        `yaml:"fetch_mode"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	UserAgent      string        `yaml:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language"`

	//Storage
	DataDir     string        `yaml:"data_dir"`
	DBPath      string        `yaml:"db_path"`
	DatabaseURL string        `yaml:"database_url"`
	Retention   time.Duration `yaml:"retention"`

	//Report
	ReportPath  string `yaml:"report_path"`
	ReportTitle string `yaml:"report_title"`
	Timezone    string `yaml:"timezone"`

	//Telegram
	TelegramToken string        `yaml:"telegram_token"`
	TelegramChat  string        `yaml:"telegram_chat"`
	ChunkSize     int           `yaml:"chunk_size"`
	SendDelay     time.Duration `yaml:"send_delay"`

	//Serve mode and observability
	Interval      time.Duration `yaml:"interval"`
	ListenAddr    string        `yaml:"listen_addr"`
	MetricsFile   string        `yaml:"metrics_file"`
	ScreenshotDir string        `yaml:"screenshot_dir"`
	LogLevel      string        `yaml:"log_level"`
	LogFormat     string        `yaml:"log_format"`
}

// Load reads .env, then the YAML file at path (a missing file is fine),
// then environment overrides, then fills defaults and validates.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		//env-only configuration
	case err != nil:
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&c.SourceURL, "SOURCE_URL")
	setString(&c.FetchMode, "FETCH_MODE")
	setString(&c.DataDir, "DATA_DIR", "AMVERA_DATA_DIR")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.TelegramToken, "TELEGRAM_BOT_TOKEN")
	setString(&c.TelegramChat, "TELEGRAM_CHAT_ID", "DEST_CHANNEL")
	setString(&c.MetricsFile, "METRICS_FILE")
	setString(&c.ScreenshotDir, "SCREENSHOT_DIR")
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Timezone, "TIMEZONE")

	if v := os.Getenv("RETENTION"); v != "" {
		d, err := parseRetention(v)
		if err != nil {
			return fmt.Errorf("invalid RETENTION: %w", err)
		}
		c.Retention = d
	}
	return nil
}

// parseRetention accepts a Go duration ("336h") or a whole number of days.
func parseRetention(v string) (time.Duration, error) {
	if days, err := strconv.Atoi(v); err == nil {
		return time.Duration(days) * 24 * time.Hour, nil
	}
	return time.ParseDuration(v)
}

func (c *Config) applyDefaults() {
	if c.SourceURL == "" {
		c.SourceURL = DefaultSourceURL
	}
	if c.BaseURL == "" {
		c.BaseURL = c.SourceURL
	}
	if c.ListingPath == "" {
		c.ListingPath = "/resume/"
	}
	if c.CardMarker == "" {
		c.CardMarker = "resume-serp__resume|serp-item"
	}
	if c.FetchMode == "" {
		c.FetchMode = FetchModeHTTP
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.DataDir == "" {
		c.DataDir = "/data"
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "hh_resumes.db")
	}
	if c.ReportPath == "" {
		c.ReportPath = filepath.Join(c.DataDir, "hh_results.txt")
	}
	if c.Retention == 0 {
		c.Retention = 14 * 24 * time.Hour
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 10
	}
	if c.SendDelay == 0 {
		c.SendDelay = time.Second
	}
	if c.Interval == 0 {
		c.Interval = 30 * time.Minute
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.SourceURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source_url must be an absolute http(s) URL: %q", c.SourceURL)
	}
	if c.FetchMode != FetchModeHTTP && c.FetchMode != FetchModeBrowser {
		return fmt.Errorf("fetch_mode must be %q or %q, got %q", FetchModeHTTP, FetchModeBrowser, c.FetchMode)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch_timeout must be positive")
	}
	if c.Retention <= 0 {
		return fmt.Errorf("retention must be positive")
	}
	if c.ChunkSize <= 0 || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("chunk_size must be between 1 and %d, got %d", MaxChunkSize, c.ChunkSize)
	}
	if c.SendDelay < 0 {
		return fmt.Errorf("send_delay must not be negative")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if _, err := regexp.Compile(c.CardMarker); err != nil {
		return fmt.Errorf("invalid card_marker: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	return nil
}

// TelegramEnabled reports whether both credentials are present. Without
// them the run still writes its report.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChat != ""
}

// Location is the timezone used for "today" statistics and report times.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// MarkerRegexp compiles CardMarker. Validate has already checked it.
func (c *Config) MarkerRegexp() *regexp.Regexp {
	return regexp.MustCompile(c.CardMarker)
}

package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Version is set at build time via -ldflags
var Version = "dev"

const (
	CommandIngest  = "ingest"
	CommandServe   = "serve"
	CommandMigrate = "migrate"
)

func GetVersion() string {
	return lo.CoalesceOrEmpty(Version, "unknown")
}

type serveCmd struct {
	IngestOnStart bool `long:"ingest-on-start" env:"INGEST_ON_START" description:"Run one ingestion pass before serving"`
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/news.db" description:"SQLite database file"`

	// Application configuration
	FeedsFile    string `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.yml" description:"YAML file listing sources, categories and feed URLs"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of feeds fetched concurrently"`
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-feed fetch timeout in seconds"`
	FetchRetries int    `long:"fetch-retries" env:"FETCH_RETRIES" default:"2" description:"Retries for transient fetch failures"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the ingestion trigger (optional)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"News Harvest/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Kolkata)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`

	Ingest  struct{} `command:"ingest" description:"Fetch every configured feed once and store new articles"`
	Serve   serveCmd `command:"serve" description:"Serve stored articles over HTTP"`
	Migrate struct{} `command:"migrate" description:"Apply database migrations and exit"`
}

// Load reads an optional .env file and then parses flags and environment.
// A nil config with nil error means help was printed.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)
	parser.SubcommandsOptional = true

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	command := CommandServe
	if parser.Active != nil {
		command = parser.Active.Name
	}

	cfg := &Cfg{
		DBPath:        raw.DBPath,
		FeedsFile:     raw.FeedsFile,
		Port:          raw.Port,
		WorkerCount:   raw.WorkerCount,
		FetchTimeout:  raw.FetchTimeout,
		FetchRetries:  raw.FetchRetries,
		APIAccessKey:  raw.APIAccessKey,
		IngestOnStart: raw.Serve.IngestOnStart,
		Command:       command,
		UserAgent:     raw.UserAgent,
		Timezone:      raw.Timezone,
		Debug:         raw.Debug,
		Version:       GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}
	if cfg.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %d", cfg.FetchTimeout)
	}
	if cfg.FetchRetries < 0 {
		return fmt.Errorf("fetch retries must be non-negative, got %d", cfg.FetchRetries)
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}

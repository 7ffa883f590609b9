// Package config loads settings from an optional YAML file, then
// environment variables, then command-line flags, each overriding the last.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendGCS    = "gcs"
)

type Config struct {
	Server    Server    `yaml:"server"`
	Storage   Storage   `yaml:"storage"`
	AI        AI        `yaml:"ai"`
	Warehouse Warehouse `yaml:"warehouse"`
	Notion    Notion    `yaml:"notion"`
	Jobs      Jobs      `yaml:"jobs"`
	Log       Log       `yaml:"log"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Storage struct {
	Backend string `yaml:"backend"`
	// Path is the JSON file or sqlite database location.
	Path    string `yaml:"path"`
	Bucket  string `yaml:"bucket"`
	Object  string `yaml:"object"`
	History int    `yaml:"history"`
}

type AI struct {
	// APIKey is only read from the environment.
	APIKey      string `yaml:"-"`
	ChatModel   string `yaml:"chat_model"`
	FastModel   string `yaml:"fast_model"`
	ReportModel string `yaml:"report_model"`
	MatchDays   int    `yaml:"match_days"`
}

type Warehouse struct {
	Enabled   bool   `yaml:"enabled"`
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
}

type Notion struct {
	Enabled bool `yaml:"enabled"`
	// Token is only read from the environment.
	Token      string `yaml:"-"`
	DatabaseID string `yaml:"database_id"`
}

type Jobs struct {
	BufferSize int `yaml:"buffer_size"`
	MaxRetries int `yaml:"max_retries"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server:  Server{Port: 8080},
		Storage: Storage{Backend: BackendFile, Path: "ledger.json", Object: "ledger/snapshot.json", History: 50},
		AI: AI{
			ChatModel:   "gemini-2.5-flash",
			FastModel:   "gemini-2.5-flash",
			ReportModel: "gemini-2.5-pro",
			MatchDays:   30,
		},
		Warehouse: Warehouse{Dataset: "household_ledger"},
		Jobs:      Jobs{BufferSize: 100, MaxRetries: 3},
		Log:       Log{Level: "info", Format: "console"},
	}
}

// Load reads path (skipped when empty) over the defaults and applies the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("Load: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("Load: parsing %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("LEDGER_STORAGE_BACKEND", &c.Storage.Backend)
	str("LEDGER_STORAGE_PATH", &c.Storage.Path)
	str("GCS_BUCKET", &c.Storage.Bucket)
	str("LEDGER_GCS_OBJECT", &c.Storage.Object)
	str("GEMINI_API_KEY", &c.AI.APIKey)
	str("LEDGER_CHAT_MODEL", &c.AI.ChatModel)
	str("LEDGER_REPORT_MODEL", &c.AI.ReportModel)
	str("GOOGLE_CLOUD_PROJECT", &c.Warehouse.ProjectID)
	str("LEDGER_BQ_DATASET", &c.Warehouse.Dataset)
	str("NOTION_TOKEN", &c.Notion.Token)
	str("NOTION_DATABASE_ID", &c.Notion.DatabaseID)
	str("LEDGER_LOG_LEVEL", &c.Log.Level)
	str("LEDGER_LOG_FORMAT", &c.Log.Format)

	if v, ok := lookup("LEDGER_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LEDGER_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// RegisterFlags binds the commonly overridden settings to fs. Call before
// fs.Parse; values already in c become the flag defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.Server.Port, "port", c.Server.Port, "HTTP server port")
	fs.StringVar(&c.Storage.Backend, "storage", c.Storage.Backend, "Storage backend: file, sqlite or gcs")
	fs.StringVar(&c.Storage.Path, "storage-path", c.Storage.Path, "Snapshot file or sqlite database path")
	fs.StringVar(&c.Storage.Bucket, "bucket", c.Storage.Bucket, "GCS bucket for the gcs backend (or set GCS_BUCKET env)")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "Log level: debug, info, warn, error")
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage.path is required for the file and sqlite backends"))
		}
	case BackendGCS:
		if c.Storage.Bucket == "" || c.Storage.Object == "" {
			errs = append(errs, errors.New("storage.bucket and storage.object are required for the gcs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Warehouse.Enabled && c.Warehouse.ProjectID == "" {
		errs = append(errs, errors.New("warehouse.project_id is required when the warehouse is enabled"))
	}
	if c.Notion.Enabled && (c.Notion.Token == "" || c.Notion.DatabaseID == "") {
		errs = append(errs, errors.New("NOTION_TOKEN and notion.database_id are required when notion sync is enabled"))
	}
	if c.Jobs.BufferSize <= 0 {
		errs = append(errs, errors.New("jobs.buffer_size must be positive"))
	}
	return errors.Join(errs...)
}

// Package config loads txnsync settings from the environment, optionally
// overlaid by a YAML file named by CONFIG_FILE.
package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/baely/txnsync/internal/common/errors"
	"github.com/baely/txnsync/internal/ledger/postgres"
	"github.com/baely/txnsync/internal/provider"
)

// Ledger backends
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the full service configuration
type Config struct {
	Addr     string `yaml:"addr"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"log_level"`

	LedgerBackend string          `yaml:"ledger_backend"`
	Database      postgres.Config `yaml:"database"`
	ChunkSize     int             `yaml:"chunk_size"`

	// MemoryAccounts names the accounts the memory backend starts with
	MemoryAccounts []string `yaml:"memory_accounts"`

	SettlementCurrency string `yaml:"settlement_currency"`
	StarlingAccount    string `yaml:"starling_account"`
	MonzoAccount       string `yaml:"monzo_account"`
	UpAccount          string `yaml:"up_account"`
	CSVAccount         string `yaml:"csv_account"`
	UpAccessToken      string `yaml:"up_access_token"`
	MonzoIncludeEmoji  bool   `yaml:"monzo_include_emoji"`
	MonzoIncludeTags   bool   `yaml:"monzo_include_tags"`
	MemoTag            string `yaml:"memo_tag"`
}

// DefaultConfig reads the configuration from environment variables
func DefaultConfig() *Config {
	return &Config{
		Addr:          getenv("ADDR", ":8080"),
		Host:          getenv("HOST", "*"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LedgerBackend: getenv("LEDGER_BACKEND", BackendPostgres),
		Database: postgres.Config{
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			Name:     getenv("DB_NAME", "txnsync"),
		},
		ChunkSize:          getenvInt("CHUNK_SIZE", 20),
		MemoryAccounts:     getenvList("MEMORY_ACCOUNTS"),
		SettlementCurrency: getenv("SETTLEMENT_CURRENCY", "GBP"),
		StarlingAccount:    os.Getenv("STARLING_ACCOUNT"),
		MonzoAccount:       os.Getenv("MONZO_ACCOUNT"),
		UpAccount:          os.Getenv("UP_ACCOUNT"),
		CSVAccount:         os.Getenv("CSV_ACCOUNT"),
		UpAccessToken:      os.Getenv("UP_ACCESS_TOKEN"),
		MonzoIncludeEmoji:  getenvBool("MONZO_INCLUDE_EMOJI", false),
		MonzoIncludeTags:   getenvBool("MONZO_INCLUDE_TAGS", false),
		MemoTag:            getenv("MEMO_TAG", provider.DefaultSettings().MemoTag),
	}
}

// Load returns the environment configuration, overlaid by the YAML file
// at CONFIG_FILE when set.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file %s", path)
	}
	if err := cfg.Overlay(data); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file %s", path)
	}
	return cfg, cfg.Validate()
}

// Overlay replaces the fields present in the YAML document data
func (c *Config) Overlay(data []byte) error {
	return yaml.Unmarshal(data, c)
}

// Validate reports settings that cannot work
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case BackendPostgres, BackendMemory:
	default:
		return errors.Wrap(errors.ErrInvalidInput, "unknown ledger backend %q", c.LedgerBackend)
	}
	if c.ChunkSize <= 0 {
		return errors.Wrap(errors.ErrInvalidInput, "chunk size must be positive, got %d", c.ChunkSize)
	}
	return nil
}

// Provider returns the normalizer settings
func (c *Config) Provider() provider.Settings {
	return provider.Settings{
		StarlingAccount:    c.StarlingAccount,
		MonzoAccount:       c.MonzoAccount,
		UpAccount:          c.UpAccount,
		CSVAccount:         c.CSVAccount,
		SettlementCurrency: c.SettlementCurrency,
		IncludeEmoji:       c.MonzoIncludeEmoji,
		IncludeTags:        c.MonzoIncludeTags,
		MemoTag:            c.MemoTag,
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvList(key string) []string {
	var list []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}

func getenvInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getenvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

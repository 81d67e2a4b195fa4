// Package config loads the YAML pipeline configuration. Secrets are never
// stored in the file itself: account entries name environment variables
// (the *_env fields) that are resolved at adapter build time.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full pipeline configuration.
type Config struct {
	Global     Global            `yaml:"global"`
	Database   Database          `yaml:"database"`
	Archive    Archive           `yaml:"archive"`
	Retry      Retry             `yaml:"retry"`
	Sources    Sources           `yaml:"sources"`
	Telegram   Telegram          `yaml:"telegram"`
	TableNames map[string]string `yaml:"table_names"`
}

type Global struct {
	LogLevel          string `yaml:"log_level"`
	PreferredCurrency string `yaml:"preferred_currency"`
}

type Database struct {
	ProjectID string `yaml:"project_id"`
	DatasetID string `yaml:"dataset_id"`
	Location  string `yaml:"location"`
}

type Archive struct {
	// Bucket enables the raw-batch GCS archive when non-empty.
	Bucket string `yaml:"bucket"`
}

type Retry struct {
	Attempts     int `yaml:"attempts"`
	DelaySeconds int `yaml:"delay_seconds"`
}

// Delay returns the pause between collection attempts.
func (r Retry) Delay() time.Duration {
	return time.Duration(r.DelaySeconds) * time.Second
}

type Sources struct {
	Bank   SourceGroup `yaml:"bank"`
	Stock  SourceGroup `yaml:"stock"`
	Crypto SourceGroup `yaml:"crypto"`
}

type SourceGroup struct {
	Enabled  bool      `yaml:"enabled"`
	Accounts []Account `yaml:"accounts"`
}

// Account is one configured data source entry. Which fields matter depends
// on the adapter type; credential fields hold environment variable names.
type Account struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	APIKeyEnv        string   `yaml:"api_key_env,omitempty"`
	UsernameEnv      string   `yaml:"username_env,omitempty"`
	PasswordEnv      string   `yaml:"password_env,omitempty"`
	WalletAddressEnv string   `yaml:"wallet_address_env,omitempty"`
	KeyFile          string   `yaml:"key_file,omitempty"`
	Network          string   `yaml:"network,omitempty"`
	Chains           []string `yaml:"chains,omitempty"`
}

// APIKey resolves the account's API key from the environment.
func (a Account) APIKey() string { return envValue(a.APIKeyEnv) }

// Username resolves the account's username from the environment.
func (a Account) Username() string { return envValue(a.UsernameEnv) }

// Password resolves the account's password from the environment.
func (a Account) Password() string { return envValue(a.PasswordEnv) }

// WalletAddress resolves the account's wallet address from the environment.
func (a Account) WalletAddress() string { return envValue(a.WalletAddressEnv) }

func envValue(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

type Telegram struct {
	BotTokenEnv  string `yaml:"bot_token_env"`
	ChatIDEnv    string `yaml:"chat_id_env"`
	SendSummary  bool   `yaml:"send_summary"`
	DashboardURL string `yaml:"dashboard_url"`
}

// BotToken resolves the bot token from the environment.
func (t Telegram) BotToken() string { return envValue(t.BotTokenEnv) }

// ChatID resolves the chat ID from the environment.
func (t Telegram) ChatID() string { return envValue(t.ChatIDEnv) }

// Default returns the configuration defaults applied before the YAML file.
func Default() Config {
	return Config{
		Global: Global{
			LogLevel:          "info",
			PreferredCurrency: "EUR",
		},
		Database: Database{
			DatasetID: "finance",
			Location:  "EU",
		},
		Retry: Retry{
			Attempts:     3,
			DelaySeconds: 10,
		},
		TableNames: map[string]string{
			"total":    "total",
			"accounts": "bank-accounts",
			"stocks":   "stocks",
			"crypto":   "crypto",
		},
	}
}

// Load reads, parses and validates the pipeline configuration. Any error
// here means the pipeline cannot run at all; callers should treat it as
// fatal before starting any collection.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.ProjectID == "" {
		return fmt.Errorf("config: database.project_id is required")
	}
	if c.Database.DatasetID == "" {
		return fmt.Errorf("config: database.dataset_id is required")
	}
	if len(c.Global.PreferredCurrency) != 3 {
		return fmt.Errorf("config: global.preferred_currency %q is not a 3-letter code", c.Global.PreferredCurrency)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("config: retry.attempts must be at least 1, got %d", c.Retry.Attempts)
	}
	if c.Retry.DelaySeconds < 0 {
		return fmt.Errorf("config: retry.delay_seconds must not be negative, got %d", c.Retry.DelaySeconds)
	}

	for _, group := range []struct {
		name string
		g    SourceGroup
	}{
		{"bank", c.Sources.Bank},
		{"stock", c.Sources.Stock},
		{"crypto", c.Sources.Crypto},
	} {
		if !group.g.Enabled {
			continue
		}
		for i, a := range group.g.Accounts {
			if a.Name == "" {
				return fmt.Errorf("config: sources.%s.accounts[%d] has no name", group.name, i)
			}
			if a.Type == "" {
				return fmt.Errorf("config: sources.%s account %q has no type", group.name, a.Name)
			}
		}
	}
	return nil
}

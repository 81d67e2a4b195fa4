package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
global:
  log_level: debug
  preferred_currency: EUR
database:
  project_id: my-project
  dataset_id: finance
  location: EU
retry:
  attempts: 5
  delay_seconds: 2
sources:
  bank:
    enabled: true
    accounts:
      - name: Bunq
        type: bunq
        api_key_env: BUNQ_API_KEY
  crypto:
    enabled: true
    accounts:
      - name: Keplr
        type: cosmos
        wallet_address_env: KEPLR_ADDRESS
        network: osmosis
telegram:
  bot_token_env: TG_TOKEN
  chat_id_env: TG_CHAT
  send_summary: true
table_names:
  accounts: bank-accounts
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Global.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.Global.LogLevel)
	}
	if cfg.Database.ProjectID != "my-project" {
		t.Errorf("project = %q", cfg.Database.ProjectID)
	}
	if cfg.Retry.Attempts != 5 {
		t.Errorf("attempts = %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Delay() != 2*time.Second {
		t.Errorf("delay = %v", cfg.Retry.Delay())
	}
	if !cfg.Sources.Bank.Enabled || len(cfg.Sources.Bank.Accounts) != 1 {
		t.Errorf("bank group = %+v", cfg.Sources.Bank)
	}
	if got := cfg.Sources.Crypto.Accounts[0].Network; got != "osmosis" {
		t.Errorf("network = %q", got)
	}
	if cfg.Sources.Stock.Enabled {
		t.Error("stock group enabled without being configured")
	}
	// Defaults survive a partial file.
	if cfg.TableNames["total"] != "total" {
		t.Errorf("table_names.total default lost: %v", cfg.TableNames)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing project", func(c *Config) { c.Database.ProjectID = "" }},
		{"missing dataset", func(c *Config) { c.Database.DatasetID = "" }},
		{"bad currency", func(c *Config) { c.Global.PreferredCurrency = "EURO" }},
		{"zero attempts", func(c *Config) { c.Retry.Attempts = 0 }},
		{"negative delay", func(c *Config) { c.Retry.DelaySeconds = -1 }},
		{"account without name", func(c *Config) {
			c.Sources.Bank = SourceGroup{Enabled: true, Accounts: []Account{{Type: "bunq"}}}
		}},
		{"account without type", func(c *Config) {
			c.Sources.Bank = SourceGroup{Enabled: true, Accounts: []Account{{Name: "Bunq"}}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.ProjectID = "p"
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidate_DisabledGroupSkipsAccountChecks(t *testing.T) {
	cfg := Default()
	cfg.Database.ProjectID = "p"
	cfg.Sources.Bank = SourceGroup{Enabled: false, Accounts: []Account{{}}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled group should not be validated: %v", err)
	}
}

func TestAccount_EnvResolution(t *testing.T) {
	t.Setenv("TEST_BUNQ_KEY", "secret")

	a := Account{APIKeyEnv: "TEST_BUNQ_KEY"}
	if got := a.APIKey(); got != "secret" {
		t.Errorf("APIKey = %q", got)
	}

	b := Account{}
	if got := b.APIKey(); got != "" {
		t.Errorf("APIKey with no env name = %q, want empty", got)
	}

	c := Account{WalletAddressEnv: "TEST_UNSET_VAR_42"}
	if got := c.WalletAddress(); got != "" {
		t.Errorf("WalletAddress for unset var = %q, want empty", got)
	}
}

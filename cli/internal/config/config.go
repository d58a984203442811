package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openclaw/quotatop/internal/pricing"
	"github.com/openclaw/quotatop/internal/quota"
)

// Config is the persisted quotatop state: the tracked quota plans, the
// pricing tables, where the session logs live, and the optional sync target.
type Config struct {
	Quotas  map[string]quota.Quota   `yaml:"quotas"`
	Pricing map[string]pricing.Table `yaml:"pricing"`
	LogDir  string                   `yaml:"log_dir,omitempty"`

	Server   string `yaml:"server,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	ClientID string `yaml:"client_id,omitempty"`

	LastCheck time.Time `yaml:"last_check,omitempty"`
}

// DefaultPath returns the config location used when no --config flag is
// given.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".quotatop.yaml"), nil
}

// DefaultLogDir returns the session-log directory used when the config file
// does not name one.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".openclaw", "agents", "main", "sessions")
}

// Load reads the configuration at path. A missing file yields the built-in
// defaults; sections absent from the file are backfilled from them.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Quotas) == 0 {
		cfg.Quotas = quota.Defaults()
	}
	if len(cfg.Pricing) == 0 {
		cfg.Pricing = pricing.Defaults()
	}
	if cfg.LogDir == "" {
		cfg.LogDir = DefaultLogDir()
	}
	return &cfg, nil
}

func defaults() *Config {
	return &Config{
		Quotas:  quota.Defaults(),
		Pricing: pricing.Defaults(),
		LogDir:  DefaultLogDir(),
	}
}

// Save writes the configuration to path, creating parent directories. A
// client ID is generated on first save.
func Save(path string, cfg *Config) error {
	if cfg.ClientID == "" {
		id, err := generateClientID()
		if err != nil {
			return err
		}
		cfg.ClientID = id
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

func generateClientID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

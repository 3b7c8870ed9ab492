package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the marketd runtime configuration.
type Config struct {
	RPCAddress        string  `toml:"RPCAddress"`
	DataDir           string  `toml:"DataDir"`
	MarketplaceName   string  `toml:"MarketplaceName"`
	Env               string  `toml:"Env"`
	LogLevel          string  `toml:"LogLevel"`
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	RateLimitBurst    int     `toml:"RateLimitBurst"`
	OTLPEndpoint      string  `toml:"OTLPEndpoint"`
	OTLPInsecure      bool    `toml:"OTLPInsecure"`
	TraceExport       bool    `toml:"TraceExport"`
	MetricExport      bool    `toml:"MetricExport"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration errors that would prevent startup.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCAddress) == "" {
		return fmt.Errorf("config: RPCAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if strings.TrimSpace(c.MarketplaceName) == "" {
		return fmt.Errorf("config: MarketplaceName must not be empty")
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("config: RequestsPerMinute must not be negative")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./market-data"
	}
	if strings.TrimSpace(cfg.MarketplaceName) == "" {
		cfg.MarketplaceName = "marketd"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 5
	}
	if strings.TrimSpace(cfg.OTLPEndpoint) == "" {
		cfg.OTLPEndpoint = "localhost:4318"
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:        ":8080",
		DataDir:           "./market-data",
		MarketplaceName:   "marketd",
		Env:               "",
		LogLevel:          "info",
		RequestsPerMinute: 0,
		RateLimitBurst:    5,
		OTLPEndpoint:      "localhost:4318",
		OTLPInsecure:      true,
		TraceExport:       true,
		MetricExport:      false,
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}

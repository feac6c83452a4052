package app

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	PageSize   int    `yaml:"page_size"`
	Theme      string `yaml:"theme"`
	LogFile    string `yaml:"log_file"`
}

func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:8000/api",
		TimeoutSec: 60,
		PageSize:   10,
		Theme:      "porcelain",
	}
}

func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	// Environment overrides win over file values.
	if v := os.Getenv("PAPERCHAT_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("PAPERCHAT_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TimeoutSec = n
		}
	}
	if v := os.Getenv("PAPERCHAT_THEME"); v != "" {
		cfg.Theme = v
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8000/api"
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 60
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	if cfg.PageSize > 100 {
		cfg.PageSize = 100
	}
	return cfg, nil
}

func SaveConfig(cfg Config, path string) error {
	if path == "" {
		return errors.New("no path provided for config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "paperchat", "config.yml")
}

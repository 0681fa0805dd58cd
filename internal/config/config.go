package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config описывает параметры vmctl.
type Config struct {
	Agent struct {
		LogLevel string `yaml:"log_level" env:"VMCTL_LOG_LEVEL"`
	} `yaml:"agent"`
	App struct {
		Name       string   `yaml:"name" env:"VMCTL_APP_NAME"`
		Candidates []string `yaml:"candidates"`
		OSAScript  string   `yaml:"osascript" env:"VMCTL_OSASCRIPT"`
		TimeoutMS  int      `yaml:"timeout_ms" env:"VMCTL_APP_TIMEOUT_MS"`
	} `yaml:"app"`
	SQLite struct {
		Path          string `yaml:"path" env:"VMCTL_SQLITE_PATH"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"sqlite"`
	Progress struct {
		IntervalMS int `yaml:"interval_ms"`
	} `yaml:"progress"`
	Security struct {
		Deny []string `yaml:"deny"`
	} `yaml:"security"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	var cfg Config
	cfg.App.Candidates = []string{"Veertu", "Veertu 2016 Business"}
	cfg.App.OSAScript = "osascript"
	cfg.App.TimeoutMS = 30000
	if dir, err := os.UserConfigDir(); err == nil {
		cfg.SQLite.Path = filepath.Join(dir, "vmctl", "history.db")
	}
	cfg.SQLite.RetentionDays = 30
	cfg.Progress.IntervalMS = 1000
	return cfg
}

// DefaultPath путь конфига, если --config не задан.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "vmctl", "config.yaml")
}

// Load читает YAML поверх значений по умолчанию, затем применяет переменные окружения.
// Отсутствие файла по умолчанию не ошибка; явно заданный файл обязан существовать.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return cfg, err
			}
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) // #nosec G304 -- путь к конфигу задается пользователем.
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return errors.New("config file is empty")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

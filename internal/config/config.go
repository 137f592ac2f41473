package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/ctrldash/internal/telemetry"
	"github.com/pelletier/go-toml/v2"
)

// FileConfig is the dashctl TOML file. Durations are Go duration strings.
type FileConfig struct {
	Host             string         `toml:"host"`
	Port             int            `toml:"port"`
	Schema           string         `toml:"schema"`
	AcceptTimeout    string         `toml:"accept_timeout"`
	ReadPollInterval string         `toml:"read_poll_interval"`
	MaxLineBytes     int            `toml:"max_line_bytes"`
	RenderInterval   string         `toml:"render_interval"`
	SlowAfter        string         `toml:"slow_after"`
	StaleAfter       string         `toml:"stale_after"`
	StatusAddr       string         `toml:"status_addr"`
	CorsOrigins      []string       `toml:"cors_origins"`
	LogFile          string         `toml:"log_file"`
	LogLevel         string         `toml:"log_level"`
	Layouts          []LayoutConfig `toml:"layouts"`
}

func DefaultFileConfig() FileConfig {
	return FileConfig{
		Host:             "0.0.0.0",
		Port:             5000,
		Schema:           string(telemetry.ModeAuto),
		AcceptTimeout:    "1s",
		ReadPollInterval: "500ms",
		MaxLineBytes:     telemetry.DefaultMaxLineBytes,
		RenderInterval:   "100ms",
		SlowAfter:        "1s",
		StaleAfter:       "3s",
		LogFile:          "dashctl.log",
		LogLevel:         "info",
	}
}

// LoadFile reads path over the defaults and validates the result.
func LoadFile(path string) (FileConfig, error) {
	cfg := DefaultFileConfig()
	if err := loadToml(path, &cfg); err != nil {
		return FileConfig{}, err
	}
	if err := Validate(cfg); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func Validate(cfg FileConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return fmt.Errorf("config missing host")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("config port out of range: %d", cfg.Port)
	}
	if _, err := telemetry.ParseSchemaMode(cfg.Schema); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	if cfg.MaxLineBytes <= 0 {
		return fmt.Errorf("config max_line_bytes must be positive")
	}

	durations := []struct {
		key string
		raw string
	}{
		{"accept_timeout", cfg.AcceptTimeout},
		{"read_poll_interval", cfg.ReadPollInterval},
		{"render_interval", cfg.RenderInterval},
		{"slow_after", cfg.SlowAfter},
		{"stale_after", cfg.StaleAfter},
	}
	parsed := make(map[string]time.Duration, len(durations))
	for _, d := range durations {
		v, err := ParseDuration(d.key, d.raw)
		if err != nil {
			return err
		}
		parsed[d.key] = v
	}
	if parsed["slow_after"] >= parsed["stale_after"] {
		return fmt.Errorf("config slow_after (%s) must be below stale_after (%s)", cfg.SlowAfter, cfg.StaleAfter)
	}

	if _, err := ToLayouts(cfg.Layouts); err != nil {
		return err
	}
	return nil
}

// ParseDuration parses a positive duration value for key.
func ParseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config %s must be positive", key)
	}
	return d, nil
}

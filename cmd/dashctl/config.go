package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/ctrldash/internal/config"
	"github.com/danmuck/ctrldash/internal/service"
	"github.com/danmuck/ctrldash/internal/telemetry"
)

// settings is the resolved process configuration.
type settings struct {
	Service  service.Config
	LogFile  string
	LogLevel string
}

func defaultSettings() settings {
	return settings{
		Service:  service.DefaultConfig(),
		LogFile:  config.DefaultFileConfig().LogFile,
		LogLevel: config.DefaultFileConfig().LogLevel,
	}
}

// loadSettings overlays the keys present in path onto the defaults. An empty
// path returns the defaults.
func loadSettings(path string) (settings, error) {
	out := defaultSettings()
	if strings.TrimSpace(path) == "" {
		return out, nil
	}

	var raw config.FileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return settings{}, fmt.Errorf("load dashctl config: %w", err)
	}
	cfg := &out.Service

	if meta.IsDefined("host") {
		if host := strings.TrimSpace(raw.Host); host != "" {
			cfg.Listener.Host = host
		}
	}
	if meta.IsDefined("port") {
		cfg.Listener.Port = raw.Port
	}
	if meta.IsDefined("schema") {
		mode, err := telemetry.ParseSchemaMode(raw.Schema)
		if err != nil {
			return settings{}, fmt.Errorf("parse schema: %w", err)
		}
		cfg.Listener.Schema = mode
	}
	if meta.IsDefined("max_line_bytes") {
		cfg.Listener.MaxLineBytes = raw.MaxLineBytes
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"accept_timeout", raw.AcceptTimeout, &cfg.Listener.AcceptTimeout},
		{"read_poll_interval", raw.ReadPollInterval, &cfg.Listener.ReadPollInterval},
		{"render_interval", raw.RenderInterval, &cfg.RenderInterval},
		{"slow_after", raw.SlowAfter, &cfg.Thresholds.SlowAfter},
		{"stale_after", raw.StaleAfter, &cfg.Thresholds.StaleAfter},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := config.ParseDuration(d.key, d.raw)
		if err != nil {
			return settings{}, err
		}
		*d.dst = v
	}

	if meta.IsDefined("status_addr") {
		cfg.StatusAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("layouts") {
		layouts, err := config.ToLayouts(raw.Layouts)
		if err != nil {
			return settings{}, err
		}
		cfg.Layouts = layouts
	}
	if meta.IsDefined("log_file") {
		out.LogFile = strings.TrimSpace(raw.LogFile)
	}
	if meta.IsDefined("log_level") {
		out.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return out, nil
}

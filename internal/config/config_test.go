package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/ctrldash/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dashctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestTemplateLoadsAndValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashctl.toml")
	require.NoError(t, WriteTemplate(path, false))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "auto", cfg.Schema)
	require.Len(t, cfg.Layouts, 1)

	layouts, err := ToLayouts(cfg.Layouts)
	require.NoError(t, err)
	xbox := layouts[0]
	assert.Equal(t, "xbox", xbox.ControllerType)
	require.NotNil(t, xbox.Gas)
	assert.Equal(t, telemetry.ConvertTrigger, xbox.Gas.Convert)
	assert.Equal(t, []telemetry.GearBinding{
		{Index: 0, Gear: telemetry.GearDrive},
		{Index: 1, Gear: telemetry.GearReverse},
	}, xbox.Gears)
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	path := writeFile(t, "port = 1\n")
	assert.Error(t, WriteTemplate(path, false))
	require.NoError(t, WriteTemplate(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Template(), string(data))
}

func TestLoadFileKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := LoadFile(writeFile(t, "port = 6000\nschema = \"fixed\"\n"))
	require.NoError(t, err)
	assert.Equal(t, 6000, cfg.Port)
	assert.Equal(t, "fixed", cfg.Schema)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "100ms", cfg.RenderInterval)
	assert.Empty(t, cfg.Layouts)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorContains(t, err, "config load failed")

	_, err = LoadFile(writeFile(t, "port = [\n"))
	assert.ErrorContains(t, err, "config parse failed")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*FileConfig)
		want   string
	}{
		{"host", func(c *FileConfig) { c.Host = " " }, "missing host"},
		{"port", func(c *FileConfig) { c.Port = 70000 }, "port out of range"},
		{"schema", func(c *FileConfig) { c.Schema = "binary" }, "config schema"},
		{"max line", func(c *FileConfig) { c.MaxLineBytes = 0 }, "max_line_bytes"},
		{"duration", func(c *FileConfig) { c.RenderInterval = "soon" }, "parse render_interval"},
		{"negative", func(c *FileConfig) { c.AcceptTimeout = "-1s" }, "accept_timeout must be positive"},
		{"ordering", func(c *FileConfig) { c.SlowAfter = "5s" }, "must be below stale_after"},
		{"layout", func(c *FileConfig) {
			c.Layouts = []LayoutConfig{{Type: "pad", MinAxes: 1, Gas: &AxisConfig{Axis: 3}}}
		}, "layouts[0] invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultFileConfig()
			tc.mutate(&cfg)
			assert.ErrorContains(t, Validate(cfg), tc.want)
		})
	}
	assert.NoError(t, Validate(DefaultFileConfig()))
}

func TestToLayouts(t *testing.T) {
	left := 0
	entries := []LayoutConfig{{
		Type:        "wheel",
		MinAxes:     2,
		MinButtons:  1,
		Steering:    &AxisConfig{Axis: 0, Convert: "invert"},
		Gas:         &AxisConfig{Axis: 1},
		LeftBlinker: &left,
		Gears:       []GearConfig{{Button: 0, Gear: "n"}},
	}}
	layouts, err := ToLayouts(entries)
	require.NoError(t, err)
	require.Len(t, layouts, 1)
	assert.Equal(t, telemetry.ConvertInvert, layouts[0].Steering.Convert)
	assert.Equal(t, telemetry.ConvertIdentity, layouts[0].Gas.Convert)
	assert.Nil(t, layouts[0].Brake)
	assert.Equal(t, telemetry.GearNeutral, layouts[0].Gears[0].Gear)

	_, err = ToLayouts(append(entries, entries[0]))
	assert.ErrorContains(t, err, "duplicate type")

	_, err = ToLayouts([]LayoutConfig{{Type: "x", MinAxes: 1, Steering: &AxisConfig{Convert: "cube"}}})
	assert.ErrorIs(t, err, telemetry.ErrUnknownConvert)

	_, err = ToLayouts([]LayoutConfig{{Type: "x", MinButtons: 1, Gears: []GearConfig{{Gear: "Z"}}}})
	assert.ErrorIs(t, err, telemetry.ErrInvalidLayout)
}

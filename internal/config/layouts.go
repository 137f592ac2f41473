package config

import (
	"fmt"
	"strings"

	"github.com/danmuck/ctrldash/internal/telemetry"
)

// LayoutConfig is one [[layouts]] entry adding or overriding a controller.
type LayoutConfig struct {
	Type         string       `toml:"type"`
	MinAxes      int          `toml:"min_axes"`
	MinButtons   int          `toml:"min_buttons"`
	Steering     *AxisConfig  `toml:"steering"`
	Gas          *AxisConfig  `toml:"gas"`
	Brake        *AxisConfig  `toml:"brake"`
	LeftBlinker  *int         `toml:"left_blinker"`
	RightBlinker *int         `toml:"right_blinker"`
	AutoMode     *int         `toml:"auto_mode"`
	Gears        []GearConfig `toml:"gears"`
}

type AxisConfig struct {
	Axis    int    `toml:"axis"`
	Convert string `toml:"convert"`
}

type GearConfig struct {
	Button int    `toml:"button"`
	Gear   string `toml:"gear"`
}

func (c LayoutConfig) ToLayout() (telemetry.Layout, error) {
	l := telemetry.Layout{
		ControllerType: strings.TrimSpace(c.Type),
		MinAxes:        c.MinAxes,
		MinButtons:     c.MinButtons,
		LeftBlinker:    c.LeftBlinker,
		RightBlinker:   c.RightBlinker,
		AutoMode:       c.AutoMode,
	}
	var err error
	if l.Steering, err = c.Steering.binding(); err != nil {
		return telemetry.Layout{}, err
	}
	if l.Gas, err = c.Gas.binding(); err != nil {
		return telemetry.Layout{}, err
	}
	if l.Brake, err = c.Brake.binding(); err != nil {
		return telemetry.Layout{}, err
	}
	for _, g := range c.Gears {
		l.Gears = append(l.Gears, telemetry.GearBinding{
			Index: g.Button,
			Gear:  telemetry.Gear(strings.ToUpper(strings.TrimSpace(g.Gear))),
		})
	}
	if err := l.Validate(); err != nil {
		return telemetry.Layout{}, err
	}
	return l, nil
}

func (a *AxisConfig) binding() (*telemetry.AxisBinding, error) {
	if a == nil {
		return nil, nil
	}
	conv, err := telemetry.ParseConversion(a.Convert)
	if err != nil {
		return nil, err
	}
	return &telemetry.AxisBinding{Index: a.Axis, Convert: conv}, nil
}

// ToLayouts converts and validates every entry; duplicate types are rejected.
func ToLayouts(entries []LayoutConfig) ([]telemetry.Layout, error) {
	out := make([]telemetry.Layout, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		l, err := entry.ToLayout()
		if err != nil {
			return nil, fmt.Errorf("layouts[%d] invalid: %w", i, err)
		}
		if _, dup := seen[l.ControllerType]; dup {
			return nil, fmt.Errorf("layouts[%d] invalid: duplicate type %q", i, l.ControllerType)
		}
		seen[l.ControllerType] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}

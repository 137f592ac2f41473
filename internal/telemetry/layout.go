package telemetry

import (
	"fmt"
	"sort"
	"strings"
)

// Conversion names a transform applied to one raw axis value.
type Conversion string

const (
	ConvertIdentity Conversion = "identity"
	// ConvertTrigger maps a [-1,1] trigger axis onto [0,1].
	ConvertTrigger Conversion = "trigger"
	ConvertInvert  Conversion = "invert"
)

var conversions = map[Conversion]func(float64) float64{
	ConvertIdentity: func(v float64) float64 { return v },
	ConvertTrigger:  func(v float64) float64 { return (v + 1.0) / 2.0 },
	ConvertInvert:   func(v float64) float64 { return -v },
}

// ParseConversion normalizes a conversion name; empty means identity.
func ParseConversion(raw string) (Conversion, error) {
	c := Conversion(strings.ToLower(strings.TrimSpace(raw)))
	if c == "" {
		return ConvertIdentity, nil
	}
	if _, ok := conversions[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownConvert, raw)
	}
	return c, nil
}

// AxisBinding reads one axis by index and converts it.
type AxisBinding struct {
	Index   int
	Convert Conversion
}

func (b AxisBinding) value(axes []float64) float64 {
	fn, ok := conversions[b.Convert]
	if !ok {
		fn = conversions[ConvertIdentity]
	}
	return fn(axes[b.Index])
}

// GearBinding maps one button index to a gear.
type GearBinding struct {
	Index int
	Gear  Gear
}

// Layout describes how one controller type's positional arrays map onto
// named controls. Records shorter than MinAxes/MinButtons map to neutral.
type Layout struct {
	ControllerType string
	MinAxes        int
	MinButtons     int

	Steering *AxisBinding
	Gas      *AxisBinding
	Brake    *AxisBinding

	LeftBlinker  *int
	RightBlinker *int
	AutoMode     *int

	// Gears are checked in order; the first set button wins.
	Gears []GearBinding
}

// Validate checks that every binding addresses an index the minimum array
// sizes guarantee, so mapping a size-checked record cannot go out of range.
func (l Layout) Validate() error {
	if strings.TrimSpace(l.ControllerType) == "" {
		return fmt.Errorf("%w: controller type is required", ErrInvalidLayout)
	}
	if l.MinAxes < 0 || l.MinButtons < 0 {
		return fmt.Errorf("%w: %s: negative minimum size", ErrInvalidLayout, l.ControllerType)
	}
	axes := map[string]*AxisBinding{"steering": l.Steering, "gas": l.Gas, "brake": l.Brake}
	names := make([]string, 0, len(axes))
	for name := range axes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b := axes[name]
		if b == nil {
			continue
		}
		if b.Index < 0 || b.Index >= l.MinAxes {
			return fmt.Errorf("%w: %s: %s axis %d outside min_axes %d", ErrInvalidLayout, l.ControllerType, name, b.Index, l.MinAxes)
		}
		if _, ok := conversions[b.Convert]; !ok {
			return fmt.Errorf("%w: %s: %s: %q", ErrUnknownConvert, l.ControllerType, name, b.Convert)
		}
	}
	buttons := []struct {
		name string
		idx  *int
	}{
		{"left_blinker", l.LeftBlinker},
		{"right_blinker", l.RightBlinker},
		{"auto_mode", l.AutoMode},
	}
	for _, b := range buttons {
		if b.idx == nil {
			continue
		}
		if *b.idx < 0 || *b.idx >= l.MinButtons {
			return fmt.Errorf("%w: %s: %s button %d outside min_buttons %d", ErrInvalidLayout, l.ControllerType, b.name, *b.idx, l.MinButtons)
		}
	}
	for _, g := range l.Gears {
		if g.Index < 0 || g.Index >= l.MinButtons {
			return fmt.Errorf("%w: %s: gear %s button %d outside min_buttons %d", ErrInvalidLayout, l.ControllerType, g.Gear, g.Index, l.MinButtons)
		}
		if ParseGear(string(g.Gear)) == GearUnknown {
			return fmt.Errorf("%w: %s: unknown gear %q", ErrInvalidLayout, l.ControllerType, g.Gear)
		}
	}
	return nil
}

func axis(index int, c Conversion) *AxisBinding {
	return &AxisBinding{Index: index, Convert: c}
}

func button(index int) *int {
	return &index
}

// TouchDriveLayout: axes [steering, gas, brake]; buttons [left, right, P, R, N, D, auto].
func TouchDriveLayout() Layout {
	return Layout{
		ControllerType: "touch_drive",
		MinAxes:        3,
		MinButtons:     7,
		Steering:       axis(0, ConvertIdentity),
		Gas:            axis(1, ConvertIdentity),
		Brake:          axis(2, ConvertIdentity),
		LeftBlinker:    button(0),
		RightBlinker:   button(1),
		AutoMode:       button(6),
		Gears: []GearBinding{
			{Index: 2, Gear: GearPark},
			{Index: 3, Gear: GearReverse},
			{Index: 4, Gear: GearNeutral},
			{Index: 5, Gear: GearDrive},
		},
	}
}

// PS4Layout: axes [LX, LY, RX, RY, L2, R2]; no button mapping.
func PS4Layout() Layout {
	return Layout{
		ControllerType: "ps4",
		MinAxes:        6,
		Steering:       axis(0, ConvertIdentity),
		Brake:          axis(4, ConvertTrigger),
		Gas:            axis(5, ConvertTrigger),
	}
}

// BuiltinLayouts returns the layouts every Mapper starts with.
func BuiltinLayouts() []Layout {
	return []Layout{TouchDriveLayout(), PS4Layout()}
}

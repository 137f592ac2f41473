package telemetry

import (
	"sort"
	"sync"
)

// Mapper projects records onto named controls through a layout table.
type Mapper struct {
	mu      sync.RWMutex
	layouts map[string]Layout
}

// NewMapper returns a mapper loaded with BuiltinLayouts.
func NewMapper() *Mapper {
	m := &Mapper{layouts: make(map[string]Layout)}
	for _, l := range BuiltinLayouts() {
		m.layouts[l.ControllerType] = l
	}
	return m
}

// Register adds or replaces the layout for l.ControllerType.
func (m *Mapper) Register(l Layout) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l.Gears = append([]GearBinding(nil), l.Gears...)
	m.mu.Lock()
	m.layouts[l.ControllerType] = l
	m.mu.Unlock()
	return nil
}

// Lookup returns the layout registered for controllerType.
func (m *Mapper) Lookup(controllerType string) (Layout, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.layouts[controllerType]
	return l, ok
}

// ControllerTypes lists registered types in sorted order.
func (m *Mapper) ControllerTypes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.layouts))
	for k := range m.layouts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Map returns the semantic projection of rec. Unknown types and records
// shorter than the layout requires map to NeutralControls.
func (m *Mapper) Map(rec Record) Controls {
	out := NeutralControls()
	l, ok := m.Lookup(rec.ControllerType)
	if !ok {
		return out
	}
	if len(rec.Axes) < l.MinAxes || len(rec.Buttons) < l.MinButtons {
		return out
	}

	if b := l.Steering; b != nil && b.Index < len(rec.Axes) {
		out.Steering = b.value(rec.Axes)
	}
	if b := l.Gas; b != nil && b.Index < len(rec.Axes) {
		out.Gas = b.value(rec.Axes)
	}
	if b := l.Brake; b != nil && b.Index < len(rec.Axes) {
		out.Brake = b.value(rec.Axes)
	}
	out.LeftBlinker = flagAt(rec.Buttons, l.LeftBlinker)
	out.RightBlinker = flagAt(rec.Buttons, l.RightBlinker)
	out.AutoMode = flagAt(rec.Buttons, l.AutoMode)
	for _, g := range l.Gears {
		if g.Index < len(rec.Buttons) && bool(rec.Buttons[g.Index]) {
			out.Gear = g.Gear
			break
		}
	}
	return out
}

func flagAt(buttons []Flag, idx *int) bool {
	if idx == nil || *idx < 0 || *idx >= len(buttons) {
		return false
	}
	return bool(buttons[*idx])
}

package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/danmuck/ctrldash/internal/state"
	"github.com/danmuck/ctrldash/internal/telemetry"
)

const (
	PedalBarWidth    = 20
	SteeringBarWidth = 40

	// Steering special cases.
	SteeringLimit    = 0.999
	SteeringCentered = 0.001
	// SteeringDeadband is the |value| under which the bar is not colored.
	SteeringDeadband = 0.05

	labelWidth   = 14
	defaultWidth = 120
)

const (
	colorGreen   = lipgloss.Color("10")
	colorRed     = lipgloss.Color("9")
	colorYellow  = lipgloss.Color("11")
	colorBlue    = lipgloss.Color("12")
	colorMagenta = lipgloss.Color("13")
	colorCyan    = lipgloss.Color("14")
	colorWhite   = lipgloss.Color("15")
	colorDim     = lipgloss.Color("241")
	colorBorder  = lipgloss.Color("240")
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(colorCyan).Width(labelWidth)
	boldStyle  = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// BarCells is the filled cell count for value on a bar of width cells.
func BarCells(value float64, width int) int {
	return int(math.Floor(Clamp(value, 0, 1) * float64(width)))
}

// Bar draws a horizontal fill bar.
func Bar(value float64, width int) string {
	filled := BarCells(value, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Percent formats the clamped value as a percentage with one decimal.
func Percent(value float64) string {
	return strconv.FormatFloat(Clamp(value, 0, 1)*100, 'f', 1, 64) + "%"
}

// SteeringPosition is the marker cell for value on a width-cell bar.
func SteeringPosition(value float64, width int) int {
	center := width / 2
	pos := int(float64(center) + Clamp(value, -1, 1)*float64(center))
	if pos < 0 {
		pos = 0
	}
	if pos > width-1 {
		pos = width - 1
	}
	return pos
}

// SteeringBar draws a centered bar with a ┼ center mark and a ● marker.
func SteeringBar(value float64, width int) string {
	cells := []rune(strings.Repeat("─", width))
	cells[width/2] = '┼'
	cells[SteeringPosition(value, width)] = '●'
	return string(cells)
}

// SteeringColor picks the bar color by sign outside the deadband.
func SteeringColor(value float64) lipgloss.Color {
	v := Clamp(value, -1, 1)
	switch {
	case v > SteeringDeadband:
		return colorGreen
	case v < -SteeringDeadband:
		return colorRed
	default:
		return colorWhite
	}
}

// SteeringNote is "(MAX)" at the limit, "(CENTER)" near zero, else empty.
func SteeringNote(value float64) string {
	abs := math.Abs(value)
	switch {
	case abs >= SteeringLimit:
		return "(MAX)"
	case abs <= SteeringCentered:
		return "(CENTER)"
	default:
		return ""
	}
}

// SteeringDirection is LEFT, RIGHT or CENTER.
func SteeringDirection(value float64) string {
	switch {
	case math.Abs(value) <= SteeringCentered:
		return "CENTER"
	case value > 0:
		return "RIGHT"
	default:
		return "LEFT"
	}
}

func FormatAxes(axes []float64) string {
	parts := make([]string, len(axes))
	for i, a := range axes {
		parts[i] = fmt.Sprintf("%+.2f", a)
	}
	return strings.Join(parts, " ")
}

func FormatButtons(buttons []telemetry.Flag) string {
	parts := make([]string, len(buttons))
	for i, b := range buttons {
		if b {
			parts[i] = "1"
		} else {
			parts[i] = "0"
		}
	}
	return strings.Join(parts, " ")
}

// Frame is everything one redraw needs.
type Frame struct {
	Snapshot   state.Snapshot
	Now        time.Time
	Host       string
	Port       int
	Thresholds state.Thresholds
	Width      int
}

// Render draws the full panel layout. It never fails; missing data renders
// the neutral display.
func Render(f Frame) string {
	width := f.Width
	if width <= 0 {
		width = defaultWidth
	}
	half := width / 2

	return lipgloss.JoinVertical(lipgloss.Left,
		renderHeader(f, width),
		lipgloss.JoinHorizontal(lipgloss.Top,
			renderControls(f, half),
			renderStatus(f, width-half),
		),
		renderSteering(f, width),
		lipgloss.JoinHorizontal(lipgloss.Top,
			renderConnection(f, half),
			renderRaw(f, width-half),
		),
		renderFooter(f, width),
	)
}

func box(border lipgloss.Color, width int) lipgloss.Style {
	w := width - 2
	if w < 1 {
		w = 1
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(w)
}

func panel(title string, border lipgloss.Color, width int, rows ...string) string {
	body := append([]string{titleStyle.Render(title)}, rows...)
	return box(border, width).Render(strings.Join(body, "\n"))
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func controllerLabel(snap state.Snapshot) string {
	if snap.Schema == telemetry.SchemaFixed {
		return "VEHICLE CONTROL DASHBOARD"
	}
	ctype := strings.TrimSpace(snap.Record.ControllerType)
	if ctype == "" {
		ctype = telemetry.UnknownControllerType
	}
	return "CONTROLLER: " + strings.ToUpper(ctype)
}

func renderHeader(f Frame, width int) string {
	status := fg(colorRed).Bold(true).Render("○ DISCONNECTED")
	if f.Snapshot.Connected() {
		status = fg(colorGreen).Bold(true).Render("● CONNECTED")
	}
	label := titleStyle.Render(controllerLabel(f.Snapshot))
	port := boldStyle.Render(fmt.Sprintf("Port: %d", f.Port))

	inner := width - 4
	gap := inner - lipgloss.Width(status) - lipgloss.Width(label) - lipgloss.Width(port)
	if gap < 2 {
		gap = 2
	}
	lgap := gap / 2
	line := status + strings.Repeat(" ", lgap) + label + strings.Repeat(" ", gap-lgap) + port
	return box(colorCyan, width).Render(line)
}

func renderControls(f Frame, width int) string {
	c := f.Snapshot.Controls

	gearColor := colorWhite
	if c.Gear == telemetry.GearDrive || c.Gear == telemetry.GearReverse {
		gearColor = colorYellow
	}
	auto := dimStyle.Render("OFF")
	if c.AutoMode {
		auto = fg(colorGreen).Render("ON")
	}
	left, right := " ", " "
	if c.LeftBlinker {
		left = "◄"
	}
	if c.RightBlinker {
		right = "►"
	}
	blinkers := fg(colorYellow).Render(left) + " Blinkers " + fg(colorYellow).Render(right)

	return panel("Semantic Controls", colorBlue, width,
		row("Gas:", pedal(c.Gas, colorGreen, f.Snapshot.Schema)),
		row("Brake:", pedal(c.Brake, colorRed, f.Snapshot.Schema)),
		row("Gear:", fg(gearColor).Render(string(c.Gear))),
		row("Auto Mode:", auto),
		row("", blinkers),
	)
}

// pedal renders a bar; fixed-field feeds also echo the unclamped value.
func pedal(value float64, color lipgloss.Color, schema telemetry.Schema) string {
	out := fg(color).Render(Bar(value, PedalBarWidth)) + " " + Percent(value)
	if schema == telemetry.SchemaFixed {
		out += dimStyle.Render(fmt.Sprintf(" (raw: %.6f)", value))
	}
	return out
}

func renderSteering(f Frame, width int) string {
	c := f.Snapshot.Controls
	value := boldStyle.Render(fmt.Sprintf("%+.4f", c.Steering))
	switch note := SteeringNote(c.Steering); note {
	case "(MAX)":
		value += " " + fg(colorGreen).Render(note)
	case "(CENTER)":
		value += " " + dimStyle.Render(note)
	}

	direction := dimStyle.Render("CENTER")
	switch SteeringDirection(c.Steering) {
	case "RIGHT":
		direction = fg(colorGreen).Render("RIGHT")
	case "LEFT":
		direction = fg(colorRed).Render("LEFT")
	}

	rows := []string{
		row("Steering:", fg(SteeringColor(c.Steering)).Render(SteeringBar(c.Steering, SteeringBarWidth))),
		row("Value:", value),
		row("Direction:", direction),
	}
	if math.Abs(c.SteeringY) > SteeringCentered {
		rows = append(rows, row("Y Value:", fmt.Sprintf("%+.6f", c.SteeringY)))
	}
	return panel("Steering", colorMagenta, width, rows...)
}

func renderStatus(f Frame, width int) string {
	snap := f.Snapshot
	class, age := snap.Staleness(f.Now, f.Thresholds)

	var rows []string
	switch class {
	case state.StalenessWaiting:
		rows = append(rows,
			row("Update Status:", dimStyle.Render(string(class))),
			row("Last Update:", dimStyle.Render("Never")),
		)
	default:
		rows = append(rows,
			row("Update Status:", fg(stalenessColor(class)).Render(string(class))),
			row("Last Update:", fmt.Sprintf("%.2fs ago", age.Seconds())),
		)
	}
	if ts := snap.Record.TimestampMillis; ts != 0 {
		rows = append(rows, row("Timestamp:", time.UnixMilli(ts).Format("15:04:05.000")))
	}
	rows = append(rows, row("Records:", fmt.Sprintf("%d ok / %d dropped", snap.Counters.Received, snap.Counters.Dropped)))
	return panel("Status", colorYellow, width, rows...)
}

func stalenessColor(s state.Staleness) lipgloss.Color {
	switch s {
	case state.StalenessActive:
		return colorGreen
	case state.StalenessSlow:
		return colorYellow
	case state.StalenessStale:
		return colorRed
	default:
		return colorDim
	}
}

func renderConnection(f Frame, width int) string {
	ip, port := dimStyle.Render("None"), dimStyle.Render("None")
	if conn := f.Snapshot.Connection; conn != nil {
		ip = conn.RemoteIP
		port = strconv.Itoa(conn.RemotePort)
	}
	return panel("Connection Info", colorGreen, width,
		row("Client IP:", ip),
		row("Client Port:", port),
		row("Server Port:", strconv.Itoa(f.Port)),
		row("Sessions:", strconv.FormatUint(f.Snapshot.Counters.Connections, 10)),
		row("Press:", dimStyle.Render("q or Ctrl+C to exit")),
	)
}

func renderRaw(f Frame, width int) string {
	rec := f.Snapshot.Record
	return panel("Raw Data", colorWhite, width,
		boldStyle.Render(fmt.Sprintf("Axes (%d):", len(rec.Axes))),
		FormatAxes(rec.Axes),
		boldStyle.Render(fmt.Sprintf("Buttons (%d):", len(rec.Buttons))),
		FormatButtons(rec.Buttons),
	)
}

func renderFooter(f Frame, width int) string {
	var b strings.Builder
	b.WriteString(dimStyle.Render("Vehicle Control System | "))
	b.WriteString(fg(colorCyan).Render("TCP Server"))
	b.WriteString(dimStyle.Render(fmt.Sprintf(" | %s:%d", f.Host, f.Port)))
	if class, age := f.Snapshot.Staleness(f.Now, f.Thresholds); class != state.StalenessWaiting {
		color := colorRed
		if class == state.StalenessActive {
			color = colorGreen
		}
		b.WriteString(fg(color).Render(fmt.Sprintf(" | Last Update: %.3fs ago", age.Seconds())))
	}
	return box(colorDim, width).Render(b.String())
}

package dashboard

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/danmuck/ctrldash/internal/state"
)

const DefaultInterval = 100 * time.Millisecond

// Source is the read side of the state store.
type Source interface {
	Snapshot() state.Snapshot
}

type Options struct {
	Host       string
	Port       int
	Interval   time.Duration
	Thresholds state.Thresholds
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Thresholds == (state.Thresholds{}) {
		o.Thresholds = state.DefaultThresholds()
	}
	return o
}

type tickMsg time.Time

// Model redraws the latest snapshot on every tick. It never writes to the
// source.
type Model struct {
	src   Source
	opts  Options
	snap  state.Snapshot
	now   time.Time
	width int
	clock func() time.Time
}

func New(src Source, opts Options) Model {
	return Model{
		src:   src,
		opts:  opts.withDefaults(),
		snap:  src.Snapshot(),
		now:   time.Now(),
		clock: time.Now,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		m.snap = m.src.Snapshot()
		m.now = m.clock()
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	return Render(Frame{
		Snapshot:   m.snap,
		Now:        m.now,
		Host:       m.opts.Host,
		Port:       m.opts.Port,
		Thresholds: m.opts.Thresholds,
		Width:      m.width,
	})
}

// Run owns the terminal until the user quits or ctx ends. Either is a clean
// exit.
func Run(ctx context.Context, src Source, opts Options) error {
	p := tea.NewProgram(New(src, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

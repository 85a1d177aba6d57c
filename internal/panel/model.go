package panel

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chase3718/midiwire/internal/activity"
)

type tickMsg time.Time

// Model is a bubbletea model that redraws the indicators on every tick.
// It only reads the tracker; decay is driven elsewhere.
type Model struct {
	tracker  *activity.Tracker
	status   func() string
	interval time.Duration
	state    activity.State
	quitting bool
}

// NewModel returns a panel for t. status, if non-nil, supplies a line of
// node counters shown under the lights.
func NewModel(t *activity.Tracker, status func() string, interval time.Duration) Model {
	return Model{tracker: t, status: status, interval: interval, state: t.Indicators()}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case tickMsg:
		m.state = m.tracker.Indicators()
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	s := titleStyle.Render("midiwire") + "\n\n" + Render(m.state) + "\n\n"
	if m.status != nil {
		s += labelStyle.Render(m.status()) + "\n"
	}
	return s + labelStyle.Render("q: quit") + "\n"
}

// Run shows the panel until the user quits or ctx is done.
func Run(ctx context.Context, t *activity.Tracker, status func() string) error {
	p := tea.NewProgram(NewModel(t, status, activity.TickInterval), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("panel: %w", err)
	}
	return nil
}

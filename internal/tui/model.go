package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/i474232898/turbine-power-curve/internal/powercurve"
)

// Controller is the part of powercurve.Controller the dashboard drives.
type Controller interface {
	LoadCatalog(ctx context.Context) ([]powercurve.TurbineSummary, error)
	Params() powercurve.Params
	View() powercurve.ViewState
	Subscribe() (<-chan powercurve.ViewState, func())
	SetTurbine(id int64) bool
	SetRange(start, end time.Time) (bool, error)
	Refresh() bool
}

const (
	focusNone = iota
	focusStart
	focusEnd
)

const (
	defaultMaxRows = 20
	minRows        = 5
	chromeHeight   = 22
)

type viewMsg powercurve.ViewState

type catalogMsg struct {
	turbines []powercurve.TurbineSummary
	err      error
}

type model struct {
	ctx     context.Context
	ctrl    Controller
	updates <-chan powercurve.ViewState

	view    powercurve.ViewState
	catalog []powercurve.TurbineSummary

	inputs  [2]textinput.Model
	focused int
	hint    string
	maxRows int

	styles styles
}

// Run shows the dashboard until the operator quits or ctx is done.
func Run(ctx context.Context, ctrl Controller, opts ...tea.ProgramOption) error {
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	opts = append(opts, tea.WithContext(ctx))
	_, err := tea.NewProgram(newModel(ctx, ctrl, updates), opts...).Run()
	return err
}

func newModel(ctx context.Context, ctrl Controller, updates <-chan powercurve.ViewState) *model {
	m := &model{
		ctx:     ctx,
		ctrl:    ctrl,
		updates: updates,
		view:    ctrl.View(),
		maxRows: defaultMaxRows,
		styles:  newStyles(),
	}

	for i, placeholder := range []string{"start YYYY-MM-DD", "end YYYY-MM-DD"} {
		in := textinput.New()
		in.Placeholder = placeholder
		in.CharLimit = len(powercurve.DateLayout)
		in.Width = len(powercurve.DateLayout) + 1
		in.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaCyan))
		in.TextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaForeground))
		in.PlaceholderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(draculaComment))
		m.inputs[i] = in
	}
	m.syncInputs(ctrl.Params().Range)

	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.waitForView(), m.loadCatalog())
}

func (m *model) waitForView() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		v, ok := <-updates
		if !ok {
			return nil
		}
		return viewMsg(v)
	}
}

func (m *model) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		turbines, err := m.ctrl.LoadCatalog(m.ctx)
		return catalogMsg{turbines: turbines, err: err}
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewMsg:
		m.view = powercurve.ViewState(msg)
		if m.focused == focusNone {
			m.syncInputs(m.view.DateRange)
		}
		return m, m.waitForView()
	case catalogMsg:
		m.catalog = msg.turbines
		if msg.err != nil {
			m.hint = "turbine catalog unavailable"
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.maxRows = max(minRows, msg.Height-chromeHeight)
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, nil
}

func (m *model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	//nolint:exhaustive // Default case handles all unlisted keys
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyTab:
		return m, m.cycleFocus()
	case tea.KeyEsc:
		m.blur()
		return m, nil
	}

	if m.focused != focusNone {
		if msg.Type == tea.KeyEnter {
			m.applyRange()
			return m, nil
		}
		var cmd tea.Cmd
		i := m.focused - focusStart
		m.inputs[i], cmd = m.inputs[i].Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left":
		m.cycleTurbine(-1)
	case "right":
		m.cycleTurbine(1)
	case "r":
		if !m.ctrl.Refresh() {
			m.hint = "select a turbine and both dates first"
		}
	}
	return m, nil
}

func (m *model) cycleFocus() tea.Cmd {
	next := (m.focused + 1) % (focusEnd + 1)
	m.blur()
	m.focused = next
	if m.focused == focusNone {
		return nil
	}
	return m.inputs[m.focused-focusStart].Focus()
}

func (m *model) blur() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	m.focused = focusNone
}

// cycleTurbine moves the selection through the catalog. Without a catalog
// it steps the id directly.
func (m *model) cycleTurbine(delta int) {
	current := m.ctrl.Params().TurbineID

	next := current + int64(delta)
	if n := len(m.catalog); n > 0 {
		idx := -1
		for i, t := range m.catalog {
			if t.ID == current {
				idx = i
				break
			}
		}
		switch {
		case idx < 0 && delta < 0:
			idx = n - 1
		case idx < 0:
			idx = 0
		default:
			idx = (idx + delta + n) % n
		}
		next = m.catalog[idx].ID
	}
	if next < 1 {
		next = 1
	}

	m.hint = ""
	m.ctrl.SetTurbine(next)
}

func (m *model) applyRange() {
	start, err := powercurve.ParseDate(strings.TrimSpace(m.inputs[0].Value()))
	if err != nil {
		m.hint = "start date must be YYYY-MM-DD"
		return
	}
	end, err := powercurve.ParseDate(strings.TrimSpace(m.inputs[1].Value()))
	if err != nil {
		m.hint = "end date must be YYYY-MM-DD"
		return
	}

	if _, err := m.ctrl.SetRange(start, end); err != nil {
		m.hint = "start date must not be after end date"
		return
	}
	m.hint = ""
	m.blur()
}

func (m *model) syncInputs(r powercurve.DateRange) {
	for i, d := range []time.Time{r.Start, r.End} {
		if d.IsZero() {
			m.inputs[i].SetValue("")
			continue
		}
		m.inputs[i].SetValue(d.Format(powercurve.DateLayout))
	}
}

func (m *model) View() string {
	st := m.styles
	var content strings.Builder

	content.WriteString(st.title.Render("Turbine Power Curve") + "\n\n")

	content.WriteString(st.label.Render("Turbine: ") +
		fmt.Sprintf("‹ %s ›", turbineLabel(m.ctrl.Params().TurbineID, m.catalog)) + "\n")
	content.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
		st.label.Render("From: "), m.inputs[0].View(),
		st.label.Render("  To: "), m.inputs[1].View(),
	) + "\n\n")

	content.WriteString(renderStatus(m.view, st) + "\n")
	if stats := renderStatistics(m.view.Statistics, st); stats != "" {
		content.WriteString("\n" + stats + "\n")
	}
	if series := renderSeries(m.view.Series, m.maxRows, st); series != "" {
		content.WriteString("\n" + series + "\n")
	}

	if m.hint != "" {
		content.WriteString("\n" + st.hint.Render(m.hint))
	}
	content.WriteString("\n" + st.help.Render("←/→ turbine | Tab → dates | Enter → apply | r → refresh | q → quit"))

	return st.app.Align(lipgloss.Left).Render(content.String())
}

package statusbar

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
)

const (
	barBg   = lipgloss.Color("#262626")
	accent  = lipgloss.Color("#7D56F4")
	danger  = lipgloss.Color("#A40000")
	muted   = lipgloss.Color("#8A8A8A")
	success = lipgloss.Color("#5FD787")
)

var (
	fill    = lipgloss.NewStyle().Background(barBg)
	segment = lipgloss.NewStyle().Padding(0, 1)

	stateStyle  = segment.Background(accent).Foreground(lipgloss.Color("#FAFAFA")).Bold(true)
	userStyle   = segment.Background(barBg).Foreground(success)
	errorStyle  = segment.Background(danger).Foreground(lipgloss.Color("#FAFAFA")).Bold(true)
	noticeStyle = segment.Background(barBg).Foreground(muted)
)

// Model is the one-line bar under every view: session state on the left,
// the latest notice and the signed-in email on the right.
type Model struct {
	width      int
	session    auth.Snapshot
	spinner    string
	statusText string
	isError    bool
}

func New() Model {
	return Model{}
}

// SetSize sets the bar width.
func (m *Model) SetSize(w int) {
	m.width = w
}

// SetSession sets the session shown on the right.
func (m *Model) SetSession(s auth.Snapshot) {
	m.session = s
}

// SetSpinner sets the frame shown while a call is pending.
func (m *Model) SetSpinner(frame string) {
	m.spinner = frame
}

// SetStatus replaces the notice. An empty text hides it.
func (m *Model) SetStatus(text string, isError bool) {
	m.statusText = text
	m.isError = isError
}

// View renders the bar.
func (m Model) View() string {
	state := m.session.State().String()
	if m.session.Status == auth.StatusPending && m.spinner != "" {
		state = m.spinner + " " + state
	}
	left := stateStyle.Render(state)

	var right []string
	switch {
	case m.statusText != "" && m.isError:
		right = append(right, errorStyle.Render(m.statusText))
	case m.statusText != "":
		right = append(right, noticeStyle.Render(m.statusText))
	}
	if id := m.session.Identity; id != nil {
		right = append(right, userStyle.Render(id.Email))
	} else {
		right = append(right, noticeStyle.Render("L:login"))
	}
	tail := lipgloss.JoinHorizontal(lipgloss.Top, right...)

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(tail), 0)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, fill.Width(gap).Render(""), tail)
}

package login

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/ui/messages"
)

var (
	accent     = lipgloss.Color("#7D56F4")
	titleStyle = lipgloss.NewStyle().Foreground(accent).Bold(true).MarginBottom(1)
	fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DADADA")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	keyStyle   = lipgloss.NewStyle().Foreground(accent)
)

const (
	fieldEmail = iota
	fieldPassword
)

// Model is the login and registration form.
type Model struct {
	inputs     []textinput.Model
	focus      int
	register   bool
	err        string
	submitting bool
	store      *auth.Store
	width      int
	height     int
}

// New creates a form. With register set it creates an account instead of
// logging in.
func New(store *auth.Store, register bool) Model {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	email.Width = 32
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '*'
	password.Width = 32

	return Model{
		inputs:   []textinput.Model{email, password},
		register: register,
		store:    store,
	}
}

// SetSize sets the area the form is centered in.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Submitting reports whether a request is in flight.
func (m Model) Submitting() bool {
	return m.submitting
}

// Err returns the message shown under the form.
func (m Model) Err() string {
	return m.err
}

func (m Model) op() auth.Operation {
	if m.register {
		return auth.OpRegister
	}
	return auth.OpLogin
}

func (m *Model) moveFocus(delta int) {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if len(m.inputs) == 0 {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyTab, tea.KeyDown:
			m.moveFocus(1)
			return m, nil
		case tea.KeyShiftTab, tea.KeyUp:
			m.moveFocus(-1)
			return m, nil
		case tea.KeyEnter:
			return m.submit()
		}

	case messages.AuthResultMsg:
		if msg.Op == m.op() {
			m.submitting = false
			if !msg.OK {
				m.err = msg.Message
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) submit() (Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	email := strings.TrimSpace(m.inputs[fieldEmail].Value())
	password := m.inputs[fieldPassword].Value()
	if email == "" || password == "" {
		m.err = "Email and password required"
		return m, nil
	}

	m.submitting = true
	m.err = ""
	store, op := m.store, m.op()
	return m, func() tea.Msg {
		ctx := context.Background()
		var ok bool
		if op == auth.OpRegister {
			ok = store.Register(ctx, email, password)
		} else {
			ok = store.Login(ctx, email, password)
		}
		res := messages.AuthResultMsg{Op: op, OK: ok, Email: email}
		if !ok {
			res.Message = store.LastError()
		}
		return res
	}
}

func (m Model) View() string {
	title, busy := "Log in", "Logging in..."
	if m.register {
		title, busy = "Create an account", "Creating account..."
	}

	lines := []string{titleStyle.Render(title)}
	for i, label := range []string{"Email", "Password"} {
		if i < len(m.inputs) {
			lines = append(lines, fieldStyle.Render(label), m.inputs[i].View(), "")
		}
	}
	if m.err != "" {
		lines = append(lines, errorStyle.Render(m.err), "")
	}
	if m.submitting {
		lines = append(lines, hintStyle.Render(busy))
	} else {
		lines = append(lines, keyStyle.Render("enter")+hintStyle.Render(" submit  ")+
			keyStyle.Render("tab")+hintStyle.Render(" next field  ")+
			keyStyle.Render("esc")+hintStyle.Render(" cancel"))
	}

	form := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}

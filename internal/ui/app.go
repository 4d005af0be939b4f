package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/bearer"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/ui/login"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/ui/messages"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/ui/statusbar"
)

// ViewType identifies the active view.
type ViewType int

const (
	ViewHome ViewType = iota
	ViewLogin
)

// App is the root Bubble Tea model.
type App struct {
	activeView ViewType

	loginForm login.Model
	statusBar statusbar.Model
	spinner   spinner.Model

	store    *auth.Store
	persist  func() error
	now      func() time.Time
	inflight int

	width  int
	height int
}

// NewApp creates the root model. persist runs after every finished
// operation so cookies survive the process; it may be nil.
func NewApp(store *auth.Store, persist func() error) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = keyStyle

	return &App{
		activeView: ViewHome,
		statusBar:  statusbar.New(),
		spinner:    sp,
		store:      store,
		persist:    persist,
		now:        time.Now,
	}
}

// ActiveView returns the view being shown.
func (a *App) ActiveView() ViewType {
	return a.activeView
}

// Init recovers any session the remote still recognizes.
func (a *App) Init() tea.Cmd {
	return a.dispatch(a.initialize())
}

func (a *App) initialize() tea.Cmd {
	store := a.store
	return func() tea.Msg {
		store.Initialize(context.Background())
		return messages.AuthResultMsg{Op: auth.OpRefreshToken, OK: store.IsAuthenticated()}
	}
}

func (a *App) refresh() tea.Cmd {
	store := a.store
	return func() tea.Msg {
		ok := store.RefreshToken(context.Background())
		return messages.AuthResultMsg{Op: auth.OpRefreshToken, OK: ok}
	}
}

func (a *App) logout() tea.Cmd {
	store := a.store
	return func() tea.Msg {
		store.Logout(context.Background())
		return messages.AuthResultMsg{Op: auth.OpLogout, OK: true}
	}
}

// dispatch starts an operation and keeps the spinner running until its
// result arrives.
func (a *App) dispatch(cmd tea.Cmd) tea.Cmd {
	a.inflight++
	if a.inflight == 1 {
		return tea.Batch(cmd, a.spinner.Tick)
	}
	return cmd
}

func (a *App) persistCmd() tea.Cmd {
	if a.persist == nil {
		return nil
	}
	persist := a.persist
	return func() tea.Msg {
		if err := persist(); err != nil {
			return messages.StatusMsg{Text: err.Error(), IsError: true}
		}
		return nil
	}
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.statusBar.SetSize(msg.Width)
		a.loginForm.SetSize(msg.Width, msg.Height-1)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.activeView == ViewLogin {
			if key.Matches(msg, Keys.Back) {
				return a, a.goBack()
			}
			return a, a.updateLogin(msg)
		}
		switch {
		case key.Matches(msg, Keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, Keys.Login):
			if !a.store.IsAuthenticated() {
				return a, a.openLogin(false)
			}
		case key.Matches(msg, Keys.Register):
			if !a.store.IsAuthenticated() {
				return a, a.openLogin(true)
			}
		case key.Matches(msg, Keys.Refresh):
			a.statusBar.SetStatus("", false)
			return a, a.dispatch(a.refresh())
		case key.Matches(msg, Keys.Logout):
			if a.store.IsAuthenticated() {
				a.statusBar.SetStatus("", false)
				return a, a.dispatch(a.logout())
			}
		}
		return a, nil

	case messages.OpenLoginMsg:
		return a, a.openLogin(msg.Register)

	case messages.GoBackMsg:
		return a, a.goBack()

	case messages.AuthResultMsg:
		if a.inflight > 0 {
			a.inflight--
		}
		cmds := []tea.Cmd{a.persistCmd()}
		if a.activeView == ViewLogin {
			var cmd tea.Cmd
			a.loginForm, cmd = a.loginForm.Update(msg)
			cmds = append(cmds, cmd)
			if msg.OK && (msg.Op == auth.OpLogin || msg.Op == auth.OpRegister) {
				a.activeView = ViewHome
			}
		}
		a.statusBar.SetStatus(resultText(msg))
		return a, tea.Batch(cmds...)

	case messages.SessionRefreshedMsg:
		if msg.OK {
			a.statusBar.SetStatus("Session renewed", false)
		} else {
			a.statusBar.SetStatus("Session expired", true)
		}
		return a, nil

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
		return a, nil

	case spinner.TickMsg:
		if a.inflight == 0 {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	if a.activeView == ViewLogin {
		return a, a.updateLogin(msg)
	}
	return a, nil
}

func (a *App) updateLogin(msg tea.Msg) tea.Cmd {
	wasSubmitting := a.loginForm.Submitting()
	var cmd tea.Cmd
	a.loginForm, cmd = a.loginForm.Update(msg)
	if !wasSubmitting && a.loginForm.Submitting() {
		a.statusBar.SetStatus("", false)
		return a.dispatch(cmd)
	}
	return cmd
}

func (a *App) openLogin(register bool) tea.Cmd {
	a.activeView = ViewLogin
	a.loginForm = login.New(a.store, register)
	a.loginForm.SetSize(a.width, a.height-1)
	return nil
}

func (a *App) goBack() tea.Cmd {
	a.activeView = ViewHome
	return nil
}

// resultText is the status bar line for a finished operation.
func resultText(msg messages.AuthResultMsg) (string, bool) {
	switch {
	case msg.Op == auth.OpLogout:
		return "Logged out", false
	case !msg.OK && msg.Message != "":
		return msg.Message, true
	case !msg.OK && msg.Op == auth.OpRefreshToken:
		return "", false
	case !msg.OK:
		return string(msg.Op) + " failed", true
	case msg.Op == auth.OpRegister:
		return "Welcome, " + msg.Email, false
	case msg.Op == auth.OpLogin:
		return "Logged in as " + msg.Email, false
	default:
		return "Session refreshed", false
	}
}

// View renders the entire UI.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	snap := a.store.Snapshot()
	var content string
	switch a.activeView {
	case ViewLogin:
		content = a.loginForm.View()
	default:
		content = a.homeView(snap)
	}

	frame := ""
	if a.inflight > 0 {
		frame = a.spinner.View()
	}
	a.statusBar.SetSession(snap)
	a.statusBar.SetSpinner(frame)

	contentHeight := a.height - 1
	content = lipgloss.NewStyle().Height(contentHeight).MaxHeight(contentHeight).Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, content, a.statusBar.View())
}

func (a *App) homeView(snap auth.Snapshot) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Session"))
	sb.WriteString("\n")

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(valueStyle.Render(value))
		sb.WriteString("\n")
	}

	row("State", snap.State().String())
	if snap.Identity != nil {
		row("User", snap.Identity.Email)
		row("ID", snap.Identity.ID)
		if snap.Identity.CreatedAt != "" {
			row("Since", snap.Identity.CreatedAt)
		}
		row("Token", a.tokenSummary(snap.Token))
	} else {
		row("User", "(none)")
	}
	if snap.LastError != "" {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render(snap.LastError))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	var hints []string
	for _, b := range homeBindings(snap.IsAuthenticated()) {
		h := b.Help()
		hints = append(hints, keyStyle.Render(h.Key)+hintStyle.Render(" "+h.Desc))
	}
	sb.WriteString(strings.Join(hints, hintStyle.Render("  ")))

	return lipgloss.NewStyle().Padding(0, 2).Render(sb.String())
}

func (a *App) tokenSummary(token string) string {
	claims, err := bearer.Inspect(token)
	if err != nil {
		return fmt.Sprintf("opaque, %d bytes", len(token))
	}
	switch left := claims.ExpiresIn(a.now()); {
	case left < 0:
		return "no expiry"
	case left == 0:
		return "expired"
	default:
		return "expires in " + left.Round(time.Second).String()
	}
}

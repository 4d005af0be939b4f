package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit     key.Binding
	Back     key.Binding
	Login    key.Binding
	Register key.Binding
	Refresh  key.Binding
	Logout   key.Binding
}

var Keys = KeyMap{
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Login:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "login")),
	Register: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "register")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Logout:   key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "logout")),
}

// homeBindings are listed in the help line of the home view.
func homeBindings(authenticated bool) []key.Binding {
	if authenticated {
		return []key.Binding{Keys.Refresh, Keys.Logout, Keys.Quit}
	}
	return []key.Binding{Keys.Login, Keys.Register, Keys.Refresh, Keys.Quit}
}

package messages

import "github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"

// View transition messages.
type (
	OpenLoginMsg struct{ Register bool }
	GoBackMsg    struct{}
)

// Data messages.
type (
	// AuthResultMsg reports a finished store operation. Message carries the
	// store's LastError for failed logins and registrations.
	AuthResultMsg struct {
		Op      auth.Operation
		OK      bool
		Email   string
		Message string
	}

	// SessionRefreshedMsg reports a refresh made in the background.
	SessionRefreshedMsg struct {
		OK    bool
		Email string
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}
)

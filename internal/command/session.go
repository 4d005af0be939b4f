package command

import (
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/bearer"
)

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "email",
			Aliases:  []string{"u"},
			Usage:    "Account email",
			EnvVars:  []string{"GQLSESSION_EMAIL"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "password",
			Aliases:  []string{"p"},
			Usage:    "Account password",
			EnvVars:  []string{"GQLSESSION_PASSWORD"},
			Required: true,
		},
	}
}

// withSession opens the process session, runs fn and persists the cookie
// context afterwards even when fn fails.
func withSession(c *cli.Context, fn func(*session) error) error {
	s, err := openSession(c, false)
	if err != nil {
		return err
	}
	defer s.Close()

	runErr := fn(s)
	if err := s.persist(); err != nil {
		s.logger.Error("persisting cookies failed", "error", err)
		if runErr == nil {
			return err
		}
	}
	return runErr
}

// LoginCommand logs in with email and password.
func LoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and store the session",
		Flags: credentialFlags(),
		Action: func(c *cli.Context) error {
			return withSession(c, func(s *session) error {
				ctx, cancel := s.opContext(c.Context)
				defer cancel()
				if !s.store.Login(ctx, c.String("email"), c.String("password")) {
					return failure(s, "Login failed")
				}
				id, _ := s.store.Identity()
				fmt.Fprintf(c.App.Writer, "Logged in as %s\n", id.Email)
				return nil
			})
		},
	}
}

// RegisterCommand creates an account and logs in as it.
func RegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and store the session",
		Flags: credentialFlags(),
		Action: func(c *cli.Context) error {
			return withSession(c, func(s *session) error {
				ctx, cancel := s.opContext(c.Context)
				defer cancel()
				if !s.store.Register(ctx, c.String("email"), c.String("password")) {
					return failure(s, "Registration failed")
				}
				id, _ := s.store.Identity()
				fmt.Fprintf(c.App.Writer, "Registered %s\n", id.Email)
				return nil
			})
		},
	}
}

// RefreshCommand exchanges the stored session for a fresh token.
func RefreshCommand() *cli.Command {
	return &cli.Command{
		Name:  "refresh",
		Usage: "Refresh the stored session",
		Action: func(c *cli.Context) error {
			return withSession(c, func(s *session) error {
				ctx, cancel := s.opContext(c.Context)
				defer cancel()
				if !s.store.RefreshToken(ctx) {
					return failure(s, "not authenticated")
				}
				id, _ := s.store.Identity()
				fmt.Fprintf(c.App.Writer, "Session refreshed for %s\n", id.Email)
				return nil
			})
		},
	}
}

// LogoutCommand ends the session remotely and forgets it locally.
func LogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "End the stored session",
		Action: func(c *cli.Context) error {
			return withSession(c, func(s *session) error {
				ctx, cancel := s.opContext(c.Context)
				defer cancel()
				s.store.Logout(ctx)
				fmt.Fprintln(c.App.Writer, "Logged out")
				return nil
			})
		},
	}
}

// WhoamiCommand recovers the stored session and prints who it belongs to.
func WhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the identity of the stored session",
		Action: func(c *cli.Context) error {
			return withSession(c, func(s *session) error {
				ctx, cancel := s.opContext(c.Context)
				defer cancel()
				s.store.Initialize(ctx)
				if !s.store.IsAuthenticated() {
					return failure(s, "not authenticated")
				}
				printIdentity(c.App.Writer, s.store.Snapshot(), time.Now())
				return nil
			})
		},
	}
}

func printIdentity(w io.Writer, snap auth.Snapshot, now time.Time) {
	fmt.Fprintf(w, "email:   %s\n", snap.Identity.Email)
	fmt.Fprintf(w, "id:      %s\n", snap.Identity.ID)
	if snap.Identity.CreatedAt != "" {
		fmt.Fprintf(w, "created: %s\n", snap.Identity.CreatedAt)
	}

	claims, err := bearer.Inspect(snap.Token)
	switch left := claims.ExpiresIn(now); {
	case err != nil:
		fmt.Fprintln(w, "token:   opaque")
	case left < 0:
		fmt.Fprintln(w, "token:   no expiry")
	case left == 0:
		fmt.Fprintln(w, "token:   expired")
	default:
		fmt.Fprintf(w, "token:   expires in %s\n", left.Round(time.Second))
	}
}

package command

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/authtest"
)

type harness struct {
	t        *testing.T
	fake     *authtest.Server
	endpoint string
	config   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := authtest.NewServer()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("GQLSESSION_DATA_DIR", dir)
	return &harness{
		t:        t,
		fake:     fake,
		endpoint: srv.URL + "/graphql",
		config:   filepath.Join(dir, "absent.yaml"),
	}
}

// open runs a command that only opens the process session, the way tui
// (serveMetrics set) or a one-shot command would.
func (h *harness) open(serveMetrics bool, args ...string) *session {
	h.t.Helper()
	var s *session
	app := App()
	app.ExitErrHandler = func(*cli.Context, error) {}
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "open",
		Flags: []cli.Flag{&cli.StringFlag{Name: "metrics-addr"}},
		Action: func(c *cli.Context) error {
			var err error
			s, err = openSession(c, serveMetrics)
			return err
		},
	})

	argv := append([]string{"sessionctl", "--config", h.config, "--endpoint", h.endpoint, "open"}, args...)
	require.NoError(h.t, app.Run(argv))
	h.t.Cleanup(func() { s.Close() })
	return s
}

// run executes one sessionctl invocation, as a fresh process would.
func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	app.ExitErrHandler = func(*cli.Context, error) {}

	argv := append([]string{"sessionctl", "--config", h.config, "--endpoint", h.endpoint}, args...)
	err := app.Run(argv)
	return out.String(), err
}

func TestCommandsShareSessionAcrossRuns(t *testing.T) {
	h := newHarness(t)
	_, err := h.fake.AddUser("a@b.com", "pw")
	require.NoError(t, err)

	out, err := h.run("login", "--email", "a@b.com", "--password", "pw")
	require.NoError(t, err)
	require.Equal(t, "Logged in as a@b.com\n", out)

	out, err = h.run("whoami")
	require.NoError(t, err)
	require.Contains(t, out, "email:   a@b.com")
	require.Contains(t, out, "token:   expires in ")

	out, err = h.run("refresh")
	require.NoError(t, err)
	require.Equal(t, "Session refreshed for a@b.com\n", out)

	out, err = h.run("logout")
	require.NoError(t, err)
	require.Equal(t, "Logged out\n", out)
	require.Equal(t, 0, h.fake.Sessions())

	_, err = h.run("whoami")
	require.EqualError(t, err, "error: not authenticated")
}

func TestRegisterCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("register", "--email", "new@b.com", "--password", "pw")
	require.NoError(t, err)
	require.Equal(t, "Registered new@b.com\n", out)

	out, err = h.run("whoami")
	require.NoError(t, err)
	require.Contains(t, out, "new@b.com")
}

func TestLoginFailureExitsWithRemoteMessage(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("login", "--email", "a@b.com", "--password", "nope")
	require.EqualError(t, err, "error: Invalid email or password")

	var exit cli.ExitCoder
	require.ErrorAs(t, err, &exit)
	require.Equal(t, 1, exit.ExitCode())
}

func TestLoginCredentialsFromEnv(t *testing.T) {
	h := newHarness(t)
	_, err := h.fake.AddUser("env@b.com", "pw")
	require.NoError(t, err)
	t.Setenv("GQLSESSION_EMAIL", "env@b.com")
	t.Setenv("GQLSESSION_PASSWORD", "pw")

	out, err := h.run("login")
	require.NoError(t, err)
	require.Equal(t, "Logged in as env@b.com\n", out)
}

func TestRefreshWithoutSession(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("refresh")
	require.EqualError(t, err, "error: not authenticated")
	require.Equal(t, 1, h.fake.Calls(string(auth.OpRefreshToken)))
}

func TestLoginOverWebSocket(t *testing.T) {
	h := newHarness(t)
	_, err := h.fake.AddUser("a@b.com", "pw")
	require.NoError(t, err)

	out, err := h.run("--transport", "ws", "login", "--email", "a@b.com", "--password", "pw")
	require.NoError(t, err)
	require.Equal(t, "Logged in as a@b.com\n", out)
}

func TestWebSocketLoginSurvivesIntoNextRun(t *testing.T) {
	h := newHarness(t)
	_, err := h.fake.AddUser("a@b.com", "pw")
	require.NoError(t, err)

	_, err = h.run("--transport", "ws", "login", "--email", "a@b.com", "--password", "pw")
	require.NoError(t, err)

	out, err := h.run("--transport", "ws", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "email:   a@b.com")
}

func TestWebSocketRefreshKeepsSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.fake.AddUser("a@b.com", "pw")
	require.NoError(t, err)

	_, err = h.run("login", "--email", "a@b.com", "--password", "pw")
	require.NoError(t, err)

	out, err := h.run("--transport", "ws", "refresh")
	require.NoError(t, err)
	require.Equal(t, "Session refreshed for a@b.com\n", out)

	out, err = h.run("whoami")
	require.NoError(t, err)
	require.Contains(t, out, "email:   a@b.com")

	out, err = h.run("--transport", "ws", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "email:   a@b.com")

	_, err = h.run("--transport", "ws", "logout")
	require.NoError(t, err)
	require.Equal(t, 0, h.fake.Sessions())
}

func TestOneShotSessionCollectsNoMetrics(t *testing.T) {
	h := newHarness(t)

	s := h.open(false, "--metrics-addr", "localhost:9464")
	require.Nil(t, s.collector)
}

func TestMetricsNeedAnAddress(t *testing.T) {
	h := newHarness(t)

	require.Nil(t, h.open(true).collector)

	s := h.open(true, "--metrics-addr", "localhost:9464")
	require.NotNil(t, s.collector)
	require.Equal(t, "localhost:9464", s.cfg.MetricsAddr)

	require.False(t, s.store.RefreshToken(context.Background()))
	n, err := testutil.GatherAndCount(s.collector.Registry(), "gqlsession_operations_total")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestInvalidTransport(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("--transport", "grpc", "refresh")
	require.ErrorContains(t, err, `unknown transport "grpc"`)
}

func TestWSEndpoint(t *testing.T) {
	require.Equal(t, "ws://localhost:4000/graphql", wsEndpoint("http://localhost:4000/graphql"))
	require.Equal(t, "wss://api.example.com/graphql", wsEndpoint("https://api.example.com/graphql"))
	require.Equal(t, "ws://already/graphql", wsEndpoint("ws://already/graphql"))
}

func TestPrintIdentityOpaqueToken(t *testing.T) {
	var out bytes.Buffer
	printIdentity(&out, auth.Snapshot{
		Identity: &auth.Identity{ID: "u1", Email: "a@b.com", CreatedAt: "2024-01-01"},
		Token:    "opaque",
	}, time.Now())

	require.Equal(t, "email:   a@b.com\nid:      u1\ncreated: 2024-01-01\ntoken:   opaque\n", out.String())
}

func TestAppCommands(t *testing.T) {
	names := map[string]bool{}
	for _, cmd := range App().Commands {
		names[cmd.Name] = true
	}
	for _, want := range []string{"login", "register", "refresh", "logout", "whoami", "tui", "mock-server"} {
		require.True(t, names[want], "missing command %s", want)
	}
}

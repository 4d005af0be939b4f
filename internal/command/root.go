// Package command provides the sessionctl command-line interface.
//
// Every command that talks to the remote builds exactly one auth.Store for
// the process. The cookie context is restored from the local database
// before the command runs and written back after it.
package command

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/urfave/cli/v2"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/auth"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/cache"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/config"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/graphql"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/logging"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/metrics"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "sessionctl",
		Usage:   "Log in to a GraphQL auth service and keep the session",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			LoginCommand(),
			RegisterCommand(),
			RefreshCommand(),
			LogoutCommand(),
			WhoamiCommand(),
			TUICommand(),
			MockServerCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML config file",
			Value:   config.DefaultPath(),
		},
		&cli.StringFlag{
			Name:    "endpoint",
			Aliases: []string{"e"},
			Usage:   "GraphQL endpoint URL",
		},
		&cli.StringFlag{
			Name:  "transport",
			Usage: "Transport: http or ws",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: trace, debug, info, warn, error",
		},
	}
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if c.IsSet("endpoint") {
		cfg.Endpoint = c.String("endpoint")
	}
	if c.IsSet("transport") {
		cfg.Transport = c.String("transport")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// session is the per-process wiring behind a command.
type session struct {
	cfg       config.Config
	logger    hclog.Logger
	logCloser io.Closer
	db        *cache.DB
	cookies   *graphql.CookieContext
	store     *auth.Store
	collector *metrics.Collector
}

// openSession loads config, opens the local database and builds the store.
// Logs go to the configured log file so they never mix with command output.
// Operation metrics are only collected for a command that serves them and
// has a metrics address configured.
func openSession(c *cli.Context, serveMetrics bool) (*session, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		closer.Close()
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	db, err := cache.Open(cfg.DBPath)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	s := &session{
		cfg:       cfg,
		logger:    logger,
		logCloser: closer,
		db:        db,
		cookies:   graphql.NewCookieContext(),
	}
	if err := s.cookies.Restore(db, cfg.Endpoint); err != nil {
		s.Close()
		return nil, err
	}

	remote := graphql.NewRemote(newDoer(cfg, logger), cfg.Operations)
	opts := []auth.Option{auth.WithLogger(logger.Named("auth"))}
	if serveMetrics && cfg.MetricsAddr != "" {
		s.collector = metrics.NewCollector()
		opts = append(opts, auth.WithObserver(s.collector))
	}
	s.store = auth.NewStore(remote, s.cookies, opts...)
	logger.Debug("session opened", "endpoint", cfg.Endpoint, "transport", cfg.Transport, "context", s.cookies.ID())
	return s, nil
}

// newDoer builds the transport. The ws transport still sends the auth
// mutations over HTTP, since only HTTP responses can hand back the refresh
// cookie.
func newDoer(cfg config.Config, logger hclog.Logger) graphql.Doer {
	opts := []graphql.ClientOption{
		graphql.WithUserAgent(cfg.UserAgent),
		graphql.WithLogger(logger.Named("http")),
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, graphql.WithTimeout(cfg.RequestTimeout))
	}
	client := graphql.NewClient(cfg.Endpoint, opts...)
	if cfg.Transport != config.TransportWS {
		return client
	}

	ws := graphql.NewWSClient(wsEndpoint(cfg.Endpoint),
		graphql.WithWSUserAgent(cfg.UserAgent),
		graphql.WithWSLogger(logger.Named("ws")),
	)
	return graphql.NewSplit(ws, client, cfg.Operations)
}

// wsEndpoint lets one endpoint setting serve both transports.
func wsEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String()
}

// opContext bounds a single remote call by the configured timeout.
func (s *session) opContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(parent, s.cfg.RequestTimeout)
	}
	return context.WithCancel(parent)
}

// persist writes the cookie context back to the database.
func (s *session) persist() error {
	return s.cookies.Persist(s.db, s.cfg.Endpoint)
}

func (s *session) Close() error {
	err := s.db.Close()
	s.logCloser.Close()
	return err
}

// failure turns the store's last error into a non-zero exit.
func failure(s *session, fallback string) error {
	msg := s.store.LastError()
	if msg == "" {
		msg = fallback
	}
	return cli.Exit("error: "+strings.TrimSpace(msg), 1)
}

package command

import (
	"context"
	"errors"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/monitor"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/ui"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/ui/messages"
)

// TUICommand runs the interactive terminal UI. With metrics_addr set the
// session metrics are served next to it.
func TUICommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Run the interactive terminal UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address",
			},
		},
		Action: func(c *cli.Context) error {
			s, err := openSession(c, true)
			if err != nil {
				return err
			}
			defer s.Close()
			return runTUI(c.Context, s)
		},
	}
}

func runTUI(parent context.Context, s *session) error {
	g, ctx := errgroup.WithContext(parent)

	metricsAddr := s.cfg.MetricsAddr
	var srv *http.Server
	if s.collector != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.collector.Handler())
		srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			s.logger.Info("serving metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	app := ui.NewApp(s.store, s.persist)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	monCtx, stopMonitor := context.WithCancel(ctx)
	mon := monitor.New(s.store, s.cfg.RefreshInterval, s.cfg.RefreshMargin,
		monitor.WithPersist(s.persist),
		monitor.WithLogger(s.logger.Named("monitor")),
		monitor.WithNotify(func(n monitor.RefreshedNotification) {
			p.Send(messages.SessionRefreshedMsg{OK: n.OK, Email: n.Email})
		}),
	)
	g.Go(func() error {
		return mon.Run(monCtx)
	})

	g.Go(func() error {
		_, err := p.Run()
		stopMonitor()
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}
		return err
	})

	return g.Wait()
}

package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/authtest"
	"github.com/TechForce-Lyron0785/vue-graphql-todo-app/internal/logging"
)

// MockServerCommand serves the in-memory auth service for local use.
func MockServerCommand() *cli.Command {
	return &cli.Command{
		Name:  "mock-server",
		Usage: "Serve an in-memory GraphQL auth service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
				Value: "localhost:4000",
			},
			&cli.StringSliceFlag{
				Name:  "user",
				Usage: "Seed an account, as email:password (repeatable)",
			},
			&cli.DurationFlag{
				Name:  "token-ttl",
				Usage: "Lifetime of issued access tokens",
				Value: 15 * time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			logger, closer, err := logging.New("", cfg.LogLevel)
			if err != nil {
				return err
			}
			defer closer.Close()

			fake := authtest.NewServer(authtest.WithTokenTTL(c.Duration("token-ttl")))
			for _, seed := range c.StringSlice("user") {
				email, password, ok := strings.Cut(seed, ":")
				if !ok || email == "" || password == "" {
					return cli.Exit(fmt.Sprintf("error: bad --user %q, want email:password", seed), 1)
				}
				if _, err := fake.AddUser(email, password); err != nil {
					return err
				}
				logger.Info("seeded user", "email", email)
			}

			srv := &http.Server{Addr: c.String("addr"), Handler: fake, ReadHeaderTimeout: 5 * time.Second}
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			logger.Info("mock auth service listening", "endpoint", "http://"+c.String("addr")+"/graphql")

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-c.Context.Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
}

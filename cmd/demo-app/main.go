// Command demo-app serves the login and search pages used by the example test cases.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tomatool/tomato-ui/internal/demoapp"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "demo-app",
		Usage: "Demo web application for tomato-ui",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 3000, EnvVars: []string{"PORT"}},
			&cli.StringFlag{Name: "database-url", EnvVars: []string{"DATABASE_URL"}, Usage: "PostgreSQL URL, in-memory store when empty"},
			&cli.StringFlag{Name: "redis-url", EnvVars: []string{"REDIS_URL"}, Usage: "Redis URL for the search cache, no cache when empty"},
		},
		Action: serve,
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("demo-app failed")
	}
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store demoapp.Store = demoapp.NewMemoryStore()
	if url := c.String("database-url"); url != "" {
		pg, err := demoapp.NewPostgresStore(ctx, url)
		if err != nil {
			return err
		}
		store = pg
		log.Info().Msg("using postgres store")
	}
	defer store.Close()

	var cache demoapp.Cache
	if url := c.String("redis-url"); url != "" {
		rc, err := demoapp.NewRedisCache(ctx, url)
		if err != nil {
			return err
		}
		defer rc.Close()
		cache = rc
		log.Info().Msg("using redis search cache")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", c.Int("port")),
		Handler:           demoapp.NewServer(store, cache).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", server.Addr).Msg("server starting")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

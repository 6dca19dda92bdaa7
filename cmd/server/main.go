package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-tenant-server/accounts"
	"github.com/jrsteele09/go-tenant-server/internal/config"
	"github.com/jrsteele09/go-tenant-server/server"
	"github.com/jrsteele09/go-tenant-server/sessions"
	"github.com/jrsteele09/go-tenant-server/store"
	"github.com/jrsteele09/go-tenant-server/workingset"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config.Load")
	}
	displayAppname(cfg.AppName)
	logger := newLogger(cfg)

	db, err := store.Open(cfg.StoreDSN)
	if err != nil {
		return errors.Wrap(err, "store.Open")
	}
	defer db.Close()

	sessionStore, err := sessions.NewStore(sessions.NewSQLRepo(db), cfg.SessionTTL,
		workingset.DemoTenantID, sessions.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "sessions.NewStore")
	}

	registry := workingset.NewRegistry()
	if cfg.SeedDemo {
		workingset.SeedDemo(registry)
	}

	hydrator, err := workingset.NewHydrator(registry, workingset.NewGatewaySource(db),
		cfg.HydrationTTL, workingset.WithHydratorLogger(logger))
	if err != nil {
		return errors.Wrap(err, "workingset.NewHydrator")
	}

	srv, err := server.New(cfg, server.Deps{
		Sessions: sessionStore,
		Accounts: accounts.NewCachedRepo(accounts.NewSQLRepo(db)),
		Registry: registry,
		Hydrator: hydrator,
		Writer:   store.NewWriter(db, cfg.WriteMaxAttempts, cfg.WriteRetryDelay, logger),
		Evolver:  store.NewEvolver(db, logger),
	}, server.WithLogger(logger))
	if err != nil {
		return errors.Wrap(err, "server.New")
	}

	httpServer := &http.Server{Addr: cfg.Addr(), Handler: srv}
	go listenAndServe(httpServer, logger)

	stopSweeper := startSessionSweeper(sessionStore, cfg.SweepInterval, logger)
	defer stopSweeper()

	waitForStopSignal()
	return shutdown(httpServer)
}

func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

// startSessionSweeper periodically purges expired sessions from the cache and
// the durable store. The returned function stops the sweeper.
func startSessionSweeper(sessionStore *sessions.Store, interval time.Duration, logger zerolog.Logger) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				purged, err := sessionStore.Sweep(context.Background())
				if err != nil {
					logger.Warn().Err(err).Msg("session sweep failed")
					continue
				}
				if purged > 0 {
					logger.Info().Int("purged", purged).Msg("expired sessions swept")
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

func listenAndServe(httpServer *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", httpServer.Addr).Msg("server listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

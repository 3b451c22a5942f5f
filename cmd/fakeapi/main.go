package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-docshare-client/internal/config"
	"github.com/jrsteele09/go-docshare-client/internal/fakeapi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(c.GetLogLevel()); err == nil && c.GetEnv() != "DEV" {
		zerolog.SetGlobalLevel(level)
	}

	fake := fakeapi.New(
		fakeapi.WithSecret(c.GetFakeAPISecret()),
		fakeapi.WithAccessTTL(c.GetFakeAPIAccessTTL()),
		fakeapi.WithRefreshTTL(c.GetFakeAPIRefreshTTL()),
		fakeapi.WithLogger(log.Logger, c.GetEnv() == "DEV"),
	)
	if err := fake.SeedSampleUsers(); err != nil {
		return fmt.Errorf("[fakeapi run] seed users: %w", err)
	}

	displayAppname(c.GetAppName() + " api")
	log.Info().Str("password", fakeapi.SeedPassword).Msg("sample accounts seeded")

	server := &http.Server{Addr: c.GetFakeAPIPort(), Handler: fake, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(server) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

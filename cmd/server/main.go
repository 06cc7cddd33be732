package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-login/identity/issuer"
	"github.com/jrsteele09/go-auth-login/identity/pbclient"
	"github.com/jrsteele09/go-auth-login/internal/config"
	"github.com/jrsteele09/go-auth-login/internal/telemetry"
	"github.com/jrsteele09/go-auth-login/kvstore"
	"github.com/jrsteele09/go-auth-login/kvstore/redisstore"
	"github.com/jrsteele09/go-auth-login/kvstore/sealed"
	"github.com/jrsteele09/go-auth-login/kvstore/sqlitestore"
	"github.com/jrsteele09/go-auth-login/server"
	"github.com/jrsteele09/go-auth-login/server/authflowrepo"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const janitorInterval = time.Minute

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogging(c.GetEnv())
	displayAppname(c.GetAppName())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.New(ctx, c.GetOTelEndpoint(), c.GetAppName())
	if err != nil {
		return err
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Err(err).Msg("Failed to flush telemetry")
		}
	}()

	storage, closeStorage, err := openStorage(c)
	if err != nil {
		return err
	}
	defer closeStorage()

	provider, err := pbclient.New(c.GetIdentityProviderURL(), pbclient.WithTracer(tp.Tracer()))
	if err != nil {
		return err
	}

	deps := server.Deps{
		Storage:  storage,
		Provider: provider,
		Flows:    authflowrepo.NewInMemoryRepo(),
	}
	guard, err := redirectGuard(ctx, c)
	if err != nil {
		return err
	}
	deps.RedirectPolicy = guard.Allow

	srv, err := server.New(c, deps)
	if err != nil {
		return err
	}
	go authflowrepo.RunJanitor(ctx, srv.Flows(), janitorInterval, c.GetFlowTimeout())

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// redirectGuard restricts redirect targets to the issuer's authorization
// endpoint, or to this service's own origin when no issuer is configured.
func redirectGuard(ctx context.Context, c config.Config) (*issuer.Guard, error) {
	if issuerURL := c.GetIssuerURL(); issuerURL != "" {
		return issuer.NewGuard(ctx, issuerURL)
	}
	log.Info().Str("origin", c.GetBaseURL()).Msg("No issuer configured, redirects limited to the base URL origin")
	return issuer.NewOriginGuard(c.GetBaseURL())
}

func setupLogging(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// openStorage opens the configured backend, sealing it when a secret is set.
func openStorage(c config.Config) (kvstore.Storage, func(), error) {
	var storage kvstore.Storage
	closeStorage := func() {}

	switch c.GetStorageBackend() {
	case config.StorageBackendMemory:
		storage = kvstore.NewInMemory()
	case config.StorageBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		storage = redisstore.New(client, "login:", redisstore.WithTTL(c.GetDeviceCookieMaxAge()))
		closeStorage = func() { _ = client.Close() }
	case config.StorageBackendSQLite:
		if err := os.MkdirAll(filepath.Dir(c.GetSQLitePath()), 0o700); err != nil {
			return nil, nil, fmt.Errorf("create sqlite directory: %w", err)
		}
		store, err := sqlitestore.Open(c.GetSQLitePath())
		if err != nil {
			return nil, nil, err
		}
		storage = store
		closeStorage = func() { _ = store.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.GetStorageBackend())
	}

	if secret := c.GetStorageSecret(); secret != "" {
		sealedStore, err := sealed.New(storage, []byte(secret))
		if err != nil {
			closeStorage()
			return nil, nil, err
		}
		storage = sealedStore
	}

	log.Info().Str("backend", c.GetStorageBackend()).Bool("sealed", c.GetStorageSecret() != "").Msg("Session storage ready")
	return storage, closeStorage, nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

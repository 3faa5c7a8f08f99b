package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"domainmap/internal/conf"
	"domainmap/internal/logging"
	"domainmap/internal/mapsource"
	"domainmap/internal/server"
	"domainmap/internal/token"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Command-line flags
	configPath := flag.String("config", "", "Path to configuration file (searched in default locations if empty)")
	listen := flag.String("listen", "", "Address to bind (overrides config)")
	flag.Parse()

	path, err := conf.FindConfig(*configPath)
	if err != nil {
		logging.Logger.Error("failed to find configuration", "error", err)
		os.Exit(1)
	}

	cfg, err := conf.LoadConfig(path)
	if err != nil {
		logging.Logger.Error("failed to load configuration", "path", path, "error", err)
		os.Exit(1)
	}
	conf.ApplyEnv(cfg)
	if *listen != "" {
		cfg.Listen = *listen
	}
	if err := cfg.Validate(); err != nil {
		logging.Logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	logging.Logger.Info("starting domainmap hook API", "config", path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	domains, err := mapsource.Load(ctx, cfg)
	if err != nil {
		logging.Logger.Error("failed to load domain map", "error", err)
		os.Exit(1)
	}

	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		logging.Logger.Warn("session.secret is not set, using a random secret; sessions will not survive a restart")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logging.Logger.Error("failed to generate session secret", "error", err)
			os.Exit(1)
		}
	}

	sealer, err := token.NewSealer(secret, time.Duration(cfg.Session.TTL)*time.Second, nil)
	if err != nil {
		logging.Logger.Error("failed to create session sealer", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(cfg, domains, sealer)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logging.Logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logging.Logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logging.Logger.Info("domainmap hook API stopped")
}

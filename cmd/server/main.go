package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skybi/gatekeeper/internal/api"
	"github.com/skybi/gatekeeper/internal/audit"
	"github.com/skybi/gatekeeper/internal/authlander"
	"github.com/skybi/gatekeeper/internal/config"
	"github.com/skybi/gatekeeper/internal/storage"
	"github.com/skybi/gatekeeper/internal/storage/inmem"
	"github.com/skybi/gatekeeper/internal/storage/postgres"
	"github.com/skybi/gatekeeper/internal/task"
	"github.com/skybi/gatekeeper/internal/verification"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	// Load the application configuration
	log.Info().Msg("loading configuration...")
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().
		Str("authlander_uri", cfg.AuthlanderURI).
		Str("audit_driver", cfg.AuditDriver).
		Str("listen_address", cfg.ListenAddress).
		Msg("configuration loaded")

	// Create the shared Authlander client
	client := authlander.NewClient(
		authlander.WithTimeout(cfg.AuthlanderTimeout),
		authlander.WithRetryPolicy(authlander.RetryPolicy{
			MaxAttempts: cfg.RetryMaxAttempts,
			Backoff:     cfg.RetryBackoff,
			MaxBackoff:  cfg.RetryMaxBackoff,
		}),
	)
	verifier := &verification.Verifier{
		Client:            client,
		ServerURI:         cfg.AuthlanderURI,
		RequireActiveUser: cfg.RequireActiveUser,
	}

	// Initialize the audit storage driver and schedule a task that prunes outdated entries
	var auditRepo audit.Repository
	if cfg.AuditEnabled() {
		driver := newStorageDriver(cfg)
		log.Info().Str("driver", cfg.AuditDriver).Msg("initializing audit storage...")
		if err := driver.Initialize(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("could not initialize the audit storage")
		}
		defer driver.Close()
		auditRepo = driver.Audit()

		pruningTask := task.NewRepeating(func(ctx context.Context) {
			n, err := auditRepo.DeleteBefore(ctx, time.Now().Add(-cfg.AuditRetention))
			if err != nil {
				log.Error().Err(err).Msg("could not prune outdated audit entries")
			} else if n > 0 {
				log.Info().Int64("amount", n).Msg("pruned outdated audit entries")
			}
		}, cfg.AuditPruneInterval)
		pruningTask.Start()
		defer pruningTask.Stop(false)
	}

	// Start up the API
	log.Info().Str("address", cfg.ListenAddress).Msg("starting up the API...")
	apis := &api.Service{
		Config:   cfg,
		Verifier: verifier,
		Audit:    auditRepo,
	}
	apiErrs := make(chan error, 1)
	apis.Startup(apiErrs)
	go func() {
		err := <-apiErrs
		log.Fatal().Err(err).Msg("the API service raised an unexpected error")
	}()
	defer func() {
		log.Info().Msg("shutting down the API...")
		apis.Shutdown()
	}()

	log.Info().Msg("done!")
	defer log.Info().Msg("shutting down...")

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown
}

func newStorageDriver(cfg *config.Config) storage.Driver {
	switch cfg.AuditDriver {
	case config.AuditDriverPostgres:
		return postgres.New(cfg.PostgresDSN)
	case config.AuditDriverInMemory:
		return inmem.New()
	default:
		panic(fmt.Sprintf("unsupported audit driver '%s'", cfg.AuditDriver))
	}
}

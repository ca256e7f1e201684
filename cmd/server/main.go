package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goldledger/internal/app"
	"goldledger/internal/config"
	"goldledger/internal/router"
	"goldledger/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	app.ConfigureLogging(cfg)

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	a, err := app.Build(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise application")
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background jobs need the redis queues; without redis the ledger still
	// works but events and alert mails are not produced.
	if a.RDB != nil {
		worker.NewPool(a.RDB, a.WorkerHandlers()).Start(ctx, cfg.WorkerPoolSize)
		worker.StartAlertCron(ctx, worker.AlertCronConfig{
			Validator: a.Validator,
			Queue:     a.Dispatcher,
			MailCB:    a.MailCB,
			Interval:  cfg.AlertScanInterval,
			Threshold: a.LowOwnershipThreshold,
		})
	} else {
		log.Warn().Msg("redis disabled: ledger events and alert digests are off")
	}

	r, err := router.New(a)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("store", cfg.StoreBackend).Str("locks", cfg.LockBackend).
			Msgf("gold ledger listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

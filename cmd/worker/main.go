// The worker sweeps subscriptions past their validity window and flips them
// to EXPIRED on a fixed interval.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vidaplena/clinic-api/internal/config"
	"github.com/vidaplena/clinic-api/internal/email"
	"github.com/vidaplena/clinic-api/internal/repository/postgres"
	planService "github.com/vidaplena/clinic-api/internal/service/plan"
	"github.com/vidaplena/clinic-api/pkg/logger"
)

var (
	expiredSubscriptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subscriptions_expired_total",
		Help: "The total number of subscriptions flipped to EXPIRED",
	})
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "subscription_sweep_duration_seconds",
		Help:    "Time spent per expiry sweep",
		Buckets: prometheus.DefBuckets,
	})
	sweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subscription_sweep_failures_total",
		Help: "The total number of failed expiry sweeps",
	})
)

const sweepInterval = 1 * time.Hour

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.InfoLevel,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	}).Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	planRepo := postgres.NewPlanRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	clientRepo := postgres.NewClientRepository(db)
	emailSender := email.NewSMTPSender(cfg.SMTP)

	planSvc := planService.NewService(
		planRepo, subscriptionRepo, clientRepo, emailSender,
		cfg.SMTP.BaseURL, cfg.Clinic.SubscriptionTokenDays, appLogger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down worker")
		cancel()
	}()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", sweepInterval).Msg("starting subscription expiry worker")
	sweep(ctx, planSvc)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
			sweep(ctx, planSvc)
		}
	}
}

func sweep(ctx context.Context, planSvc *planService.Service) {
	start := time.Now()
	expired, err := planSvc.ExpireOverdue(ctx)
	sweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		sweepFailures.Inc()
		log.Error().Err(err).Msg("expiry sweep failed")
		return
	}
	expiredSubscriptions.Add(float64(expired))
	if expired > 0 {
		log.Info().Int64("expired", expired).Msg("expired overdue subscriptions")
	}
}

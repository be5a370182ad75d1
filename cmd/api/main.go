package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/vidaplena/clinic-api/internal/chat"
	"github.com/vidaplena/clinic-api/internal/config"
	"github.com/vidaplena/clinic-api/internal/email"
	appointmentHandler "github.com/vidaplena/clinic-api/internal/handler/appointment"
	chatHandler "github.com/vidaplena/clinic-api/internal/handler/chat"
	clientHandler "github.com/vidaplena/clinic-api/internal/handler/client"
	financeHandler "github.com/vidaplena/clinic-api/internal/handler/finance"
	healthHandler "github.com/vidaplena/clinic-api/internal/handler/health"
	ledgerHandler "github.com/vidaplena/clinic-api/internal/handler/ledger"
	planHandler "github.com/vidaplena/clinic-api/internal/handler/plan"
	prometheusHandler "github.com/vidaplena/clinic-api/internal/handler/prometheus"
	therapistHandler "github.com/vidaplena/clinic-api/internal/handler/therapist"
	"github.com/vidaplena/clinic-api/internal/middleware"
	"github.com/vidaplena/clinic-api/internal/repository/postgres"
	"github.com/vidaplena/clinic-api/internal/router"
	appointmentService "github.com/vidaplena/clinic-api/internal/service/appointment"
	authService "github.com/vidaplena/clinic-api/internal/service/auth"
	availabilityService "github.com/vidaplena/clinic-api/internal/service/availability"
	consumptionService "github.com/vidaplena/clinic-api/internal/service/consumption"
	financeService "github.com/vidaplena/clinic-api/internal/service/finance"
	planService "github.com/vidaplena/clinic-api/internal/service/plan"
	therapistService "github.com/vidaplena/clinic-api/internal/service/therapist"
	"github.com/vidaplena/clinic-api/pkg/auth"
	"github.com/vidaplena/clinic-api/pkg/logger"
	"github.com/vidaplena/clinic-api/pkg/timeutil"
)

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

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Repositories
	appointmentRepo := postgres.NewAppointmentRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	planRepo := postgres.NewPlanRepository(db)
	therapistRepo := postgres.NewTherapistRepository(db)
	clientRepo := postgres.NewClientRepository(db)
	branchRepo := postgres.NewBranchRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)

	// Services
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	emailSender := email.NewSMTPSender(cfg.SMTP)

	availabilitySvc := availabilityService.NewService(scheduleRepo, appointmentRepo, serviceRepo)
	consumptionSvc := consumptionService.NewService(ledgerRepo, subscriptionRepo, planRepo, appointmentRepo)
	appointmentSvc := appointmentService.NewService(
		appointmentRepo, clientRepo, therapistRepo, ledgerRepo,
		availabilitySvc, consumptionSvc, emailSender,
		appointmentService.Policy{
			RefundCutoffHours: cfg.Clinic.RefundCutoffHours,
			DefaultNoShowFee:  cfg.Clinic.DefaultNoShowFee,
			Location:          timeutil.FixedOffset(cfg.Clinic.UTCOffsetMinutes),
		},
		appLogger,
	)
	planSvc := planService.NewService(
		planRepo, subscriptionRepo, clientRepo, emailSender,
		cfg.SMTP.BaseURL, cfg.Clinic.SubscriptionTokenDays, appLogger,
	)
	therapistSvc := therapistService.NewService(therapistRepo, scheduleRepo, branchRepo, serviceRepo)
	authSvc := authService.NewService(clientRepo, jwtSvc)
	financeSvc := financeService.NewService(transactionRepo)

	chatStore := chat.NewRedisStore(redisClient, time.Duration(cfg.Clinic.ChatSessionTTLMinutes)*time.Minute)
	chatFlow := chat.NewFlow(chatStore, clientRepo, serviceRepo, therapistRepo, availabilitySvc, appointmentSvc, appLogger)

	// HTTP layer
	metrics := prometheusHandler.New()
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)
	r := router.NewRouter(authMiddleware, metrics, appLogger, router.Config{
		RateLimit: 100,
		RateBurst: 200,
	})

	appointmentH := appointmentHandler.NewHandler(appointmentSvc, availabilitySvc, metrics)
	therapistH := therapistHandler.NewHandler(therapistSvc)
	planH := planHandler.NewHandler(planSvc)
	ledgerH := ledgerHandler.NewHandler(consumptionSvc)
	financeH := financeHandler.NewHandler(financeSvc)
	clientH := clientHandler.NewHandler(authSvc, clientRepo)
	chatH := chatHandler.NewHandler(chatFlow)
	healthH := healthHandler.NewHandler(db, redisClient)

	r.Setup(
		[]router.Handler{healthH, chatH},
		[]router.Handler{appointmentH, therapistH, planH, ledgerH, financeH, clientH},
	)
	public := r.PublicGroup()
	clientH.RegisterPublicRoutes(public)
	planH.RegisterPublicRoutes(public)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

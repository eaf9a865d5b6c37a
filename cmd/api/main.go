package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/suminyol/ayursutra-api/config"
	appointmentHandler "github.com/suminyol/ayursutra-api/internal/handler/appointment"
	authHandler "github.com/suminyol/ayursutra-api/internal/handler/auth"
	doctorHandler "github.com/suminyol/ayursutra-api/internal/handler/doctor"
	healthHandler "github.com/suminyol/ayursutra-api/internal/handler/health"
	notificationHandler "github.com/suminyol/ayursutra-api/internal/handler/notification"
	treatmentHandler "github.com/suminyol/ayursutra-api/internal/handler/treatment"
	treatmentPlanHandler "github.com/suminyol/ayursutra-api/internal/handler/treatmentplan"
	"github.com/suminyol/ayursutra-api/internal/email"
	"github.com/suminyol/ayursutra-api/internal/middleware"
	"github.com/suminyol/ayursutra-api/internal/repository/postgres"
	"github.com/suminyol/ayursutra-api/internal/router"
	appointmentService "github.com/suminyol/ayursutra-api/internal/service/appointment"
	authService "github.com/suminyol/ayursutra-api/internal/service/auth"
	doctorService "github.com/suminyol/ayursutra-api/internal/service/doctor"
	notificationService "github.com/suminyol/ayursutra-api/internal/service/notification"
	treatmentService "github.com/suminyol/ayursutra-api/internal/service/treatment"
	treatmentPlanService "github.com/suminyol/ayursutra-api/internal/service/treatmentplan"
	"github.com/suminyol/ayursutra-api/internal/sms"
	"github.com/suminyol/ayursutra-api/pkg/auth"
	"github.com/suminyol/ayursutra-api/pkg/logger"
	"github.com/suminyol/ayursutra-api/pkg/messaging/redis"
	"github.com/suminyol/ayursutra-api/pkg/metrics"
	"github.com/suminyol/ayursutra-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(postgres.DBConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Name:     cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{URL: cfg.Redis.URL}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("ayursutra", "api")

	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	treatmentRepo := postgres.NewTreatmentRepository(db)
	planRepo := postgres.NewTreatmentPlanRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	var emailSvc email.Service
	if cfg.SMTP.Host != "" {
		emailSvc = email.NewGomailService(cfg.SMTP, appLogger)
	} else {
		emailSvc = email.NewNoopService(appLogger)
	}
	var smsSvc sms.Sender
	if cfg.SMS.GatewayURL != "" {
		smsSvc = sms.NewGatewaySender(cfg.SMS, appLogger)
	} else {
		smsSvc = sms.NewNoopSender(appLogger)
	}

	tokens := auth.NewTokenManager(cfg.JWT)
	hasher := security.NewBcryptHasher(0)

	notificationSvc := notificationService.NewService(notificationRepo, userRepo, emailSvc, smsSvc, broker, m, appLogger)
	authSvc := authService.NewService(userRepo, patientRepo, doctorRepo, hasher, tokens)
	doctorSvc := doctorService.NewService(doctorRepo, userRepo)
	appointmentSvc := appointmentService.NewService(appointmentRepo, patientRepo, doctorRepo, notificationSvc, m, appLogger)
	treatmentSvc := treatmentService.NewService(treatmentRepo, appointmentRepo, patientRepo, doctorRepo, notificationSvc, appLogger)
	planSvc := treatmentPlanService.NewService(planRepo, patientRepo, doctorRepo, appointmentRepo, notificationSvc, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(tokens)

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		doctorHandler.NewHandler(doctorSvc),
		appointmentHandler.NewHandler(appointmentSvc),
		treatmentHandler.NewHandler(treatmentSvc),
		treatmentPlanHandler.NewHandler(planSvc),
		notificationHandler.NewHandler(notificationSvc),
		healthHandler.NewHandler(db),
		router.Config{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORS:             corsConfig(cfg),
		},
	)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited properly")
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(cfg.Security.AllowedOrigins) > 0 {
		cors.AllowOrigins = cfg.Security.AllowedOrigins
	}
	if len(cfg.Security.AllowedMethods) > 0 {
		cors.AllowMethods = cfg.Security.AllowedMethods
	}
	if len(cfg.Security.AllowedHeaders) > 0 {
		cors.AllowHeaders = cfg.Security.AllowedHeaders
	}
	return cors
}

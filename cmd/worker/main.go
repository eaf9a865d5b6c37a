package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/suminyol/ayursutra-api/config"
	"github.com/suminyol/ayursutra-api/internal/email"
	"github.com/suminyol/ayursutra-api/internal/repository/postgres"
	notificationService "github.com/suminyol/ayursutra-api/internal/service/notification"
	"github.com/suminyol/ayursutra-api/internal/sms"
	"github.com/suminyol/ayursutra-api/internal/worker"
	"github.com/suminyol/ayursutra-api/pkg/logger"
	"github.com/suminyol/ayursutra-api/pkg/messaging/redis"
	"github.com/suminyol/ayursutra-api/pkg/metrics"
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

	m := metrics.NewMetrics("ayursutra", "worker")

	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
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

	notifier := notificationService.NewService(notificationRepo, userRepo, emailSvc, smsSvc, broker, m, appLogger)

	sweep := worker.NewAppointmentSweepWorker(appointmentRepo, cfg.Worker.SweepInterval, m, appLogger)
	reminders := worker.NewReminderWorker(planRepo, appointmentRepo, patientRepo, notifier, cfg.Worker.ReminderInterval, appLogger)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweep.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		reminders.Start(ctx)
	}()

	log.Info().Msg("workers started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down workers...")

	cancel()
	wg.Wait()
	log.Info().Msg("workers exited properly")
}

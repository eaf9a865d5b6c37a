package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/repository"
	"github.com/suminyol/ayursutra-api/internal/service/notification"
	"github.com/suminyol/ayursutra-api/pkg/logger"
)

// ReminderWorker sends the daily batch: treatment plan day reminders and
// reminders for tomorrow's appointments.
type ReminderWorker struct {
	planRepo        repository.TreatmentPlanRepository
	appointmentRepo repository.AppointmentRepository
	patientRepo     repository.PatientRepository
	notifier        notification.Service
	interval        time.Duration
	logger          *logger.Logger
}

func NewReminderWorker(
	planRepo repository.TreatmentPlanRepository,
	appointmentRepo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	notifier notification.Service,
	interval time.Duration,
	logger *logger.Logger,
) *ReminderWorker {
	return &ReminderWorker{
		planRepo:        planRepo,
		appointmentRepo: appointmentRepo,
		patientRepo:     patientRepo,
		notifier:        notifier,
		interval:        interval,
		logger:          logger,
	}
}

func (w *ReminderWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Run(ctx)
		}
	}
}

// Run executes one reminder pass. Exposed so a deploy can trigger it
// out of cycle.
func (w *ReminderWorker) Run(ctx context.Context) {
	if err := w.remindPlans(ctx); err != nil {
		w.logger.Error(err, "treatment plan reminders failed")
	}
	if err := w.remindAppointments(ctx); err != nil {
		w.logger.Error(err, "appointment reminders failed")
	}
}

// remindPlans tells each patient which day of their plan today is. The day
// number counts from the plan's creation date.
func (w *ReminderWorker) remindPlans(ctx context.Context) error {
	plans, err := w.planRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, plan := range plans {
		day := int(now.Sub(plan.CreatedAt.UTC())/(24*time.Hour)) + 1
		if day < 1 || day > len(plan.Schedule) {
			continue
		}

		patient, err := w.patientRepo.Get(ctx, plan.PatientID)
		if err != nil {
			w.logger.Warn("skipping plan reminder, patient missing", "plan_id", plan.ID)
			continue
		}
		w.dispatch(ctx, patient.UserID, &model.Notification{
			Type:            model.NotificationTypeTreatmentReminder,
			Title:           "Treatment Reminder",
			Message:         fmt.Sprintf("Today is day %d of your %d-day treatment plan. Remember to follow today's schedule and submit your feedback.", day, len(plan.Schedule)),
			Data:            model.JSONMap{"plan_id": plan.ID.String(), "day": day},
			DeliveryMethods: model.StringList{model.ChannelInApp, model.ChannelSMS},
		})
	}
	return nil
}

func (w *ReminderWorker) remindAppointments(ctx context.Context) error {
	tomorrow := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	appointments, err := w.appointmentRepo.FindScheduledBetween(ctx, tomorrow, tomorrow.AddDate(0, 0, 1))
	if err != nil {
		return err
	}

	for _, appointment := range appointments {
		patient, err := w.patientRepo.Get(ctx, appointment.PatientID)
		if err != nil {
			continue
		}
		w.dispatch(ctx, patient.UserID, &model.Notification{
			Type:            model.NotificationTypeAppointmentReminder,
			Title:           "Appointment Tomorrow",
			Message:         fmt.Sprintf("You have an appointment tomorrow at %s.", appointment.Time),
			Data:            model.JSONMap{"appointment_id": appointment.ID.String()},
			DeliveryMethods: model.StringList{model.ChannelInApp, model.ChannelEmail, model.ChannelSMS},
		})
	}
	return nil
}

func (w *ReminderWorker) dispatch(ctx context.Context, userID uuid.UUID, n *model.Notification) {
	n.UserID = userID
	if err := w.notifier.Dispatch(ctx, n); err != nil {
		w.logger.Error(err, "failed to dispatch reminder", "user_id", userID)
	}
}

package treatmentplan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/repository"
	"github.com/suminyol/ayursutra-api/internal/repository/postgres"
	"github.com/suminyol/ayursutra-api/internal/service/notification"
	apperrors "github.com/suminyol/ayursutra-api/pkg/errors"
	"github.com/suminyol/ayursutra-api/pkg/logger"
)

type Service interface {
	Create(ctx context.Context, actor model.Actor, req *model.CreateTreatmentPlanRequest) (*model.TreatmentPlan, error)
	// GetForPatient returns the patient's most recently created plan only.
	GetForPatient(ctx context.Context, actor model.Actor, patientID uuid.UUID) (*model.TreatmentPlan, error)
	AddFeedback(ctx context.Context, actor model.Actor, planID uuid.UUID, req *model.AddFeedbackRequest) (*model.TreatmentPlan, error)
	Update(ctx context.Context, actor model.Actor, planID uuid.UUID, req *model.UpdateTreatmentPlanRequest) (*model.TreatmentPlan, error)
}

type service struct {
	repo            repository.TreatmentPlanRepository
	patientRepo     repository.PatientRepository
	doctorRepo      repository.DoctorRepository
	appointmentRepo repository.AppointmentRepository
	notifier        notification.Service
	logger          *logger.Logger
}

func NewService(
	repo repository.TreatmentPlanRepository,
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	appointmentRepo repository.AppointmentRepository,
	notifier notification.Service,
	logger *logger.Logger,
) Service {
	return &service{
		repo:            repo,
		patientRepo:     patientRepo,
		doctorRepo:      doctorRepo,
		appointmentRepo: appointmentRepo,
		notifier:        notifier,
		logger:          logger,
	}
}

func (s *service) Create(ctx context.Context, actor model.Actor, req *model.CreateTreatmentPlanRequest) (*model.TreatmentPlan, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("only doctors can create treatment plans")
	}
	patient, err := s.patientRepo.Get(ctx, req.PatientID)
	if err != nil {
		return nil, apperrors.NotFound("patient", err)
	}

	plan := &model.TreatmentPlan{
		PatientID:   patient.ID,
		DoctorID:    req.DoctorID,
		PatientName: req.PatientName,
		Summary:     req.Summary,
		Schedule:    model.Schedule(req.Schedule),
		FormData:    req.FormData,
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to create treatment plan: %w", err)
	}

	s.notify(ctx, patient.UserID, &model.Notification{
		Type:            model.NotificationTypeTreatmentPlan,
		Title:           "Treatment Plan Created",
		Message:         fmt.Sprintf("A %d-day treatment plan has been prepared for you.", len(plan.Schedule)),
		Data:            model.JSONMap{"plan_id": plan.ID.String()},
		DeliveryMethods: model.StringList{model.ChannelInApp, model.ChannelEmail},
	})
	return plan, nil
}

func (s *service) GetForPatient(ctx context.Context, actor model.Actor, patientID uuid.UUID) (*model.TreatmentPlan, error) {
	if actor.IsPatient() {
		patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, apperrors.NotFound("patient profile", err)
		}
		if patient.ID != patientID {
			return nil, apperrors.Forbidden("you can only view your own treatment plan")
		}
	}

	plan, err := s.repo.LatestForPatient(ctx, patientID)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.NotFound("treatment plan", err)
		}
		return nil, fmt.Errorf("failed to get treatment plan: %w", err)
	}
	return plan, nil
}

// AddFeedback records the patient's report for one schedule day. A repeat
// submission for the same day replaces the previous one wholesale, with a
// fresh submission time.
func (s *service) AddFeedback(ctx context.Context, actor model.Actor, planID uuid.UUID, req *model.AddFeedbackRequest) (*model.TreatmentPlan, error) {
	plan, err := s.repo.Get(ctx, planID)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.NotFound("treatment plan", err)
		}
		return nil, fmt.Errorf("failed to get treatment plan: %w", err)
	}

	if actor.IsPatient() {
		patient, perr := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if perr != nil || patient.ID != plan.PatientID {
			return nil, apperrors.Forbidden("you can only submit feedback on your own plan")
		}
	}

	dayIdx := -1
	for i := range plan.Schedule {
		if plan.Schedule[i].Day == req.DayNumber {
			dayIdx = i
			break
		}
	}
	if dayIdx == -1 {
		return nil, apperrors.NotFound(fmt.Sprintf("day %d in treatment plan", req.DayNumber), nil)
	}

	plan.Schedule[dayIdx].Feedback = &model.DayFeedback{
		PainLevel:    req.Feedback.PainLevel,
		StressLevel:  req.Feedback.StressLevel,
		EnergyLevel:  req.Feedback.EnergyLevel,
		Appetite:     req.Feedback.Appetite,
		Digestion:    req.Feedback.Digestion,
		SleepQuality: req.Feedback.SleepQuality,
		MentalState:  req.Feedback.MentalState,
		Notes:        req.Feedback.Notes,
		SubmittedAt:  time.Now(),
	}

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}

	s.notifyDoctor(ctx, plan, req.DayNumber)
	return plan, nil
}

// notifyDoctor resolves the doctor from the plan, falling back to the
// patient's latest appointment. When neither yields a doctor the
// notification is dropped with a log line; feedback is already saved.
func (s *service) notifyDoctor(ctx context.Context, plan *model.TreatmentPlan, day int) {
	doctorID := plan.DoctorID
	if doctorID == uuid.Nil {
		appointment, err := s.appointmentRepo.LatestForPatient(ctx, plan.PatientID)
		if err != nil {
			s.logger.Warn("no doctor resolvable for feedback notification", "plan_id", plan.ID)
			return
		}
		doctorID = appointment.DoctorID
	}

	doctor, err := s.doctorRepo.Get(ctx, doctorID)
	if err != nil {
		s.logger.Warn("no doctor resolvable for feedback notification", "plan_id", plan.ID)
		return
	}

	s.notify(ctx, doctor.UserID, &model.Notification{
		Type:            model.NotificationTypeTreatmentFeedback,
		Title:           "Patient Feedback Received",
		Message:         fmt.Sprintf("%s submitted feedback for day %d.", plan.PatientName, day),
		Data:            model.JSONMap{"plan_id": plan.ID.String(), "day": day},
		DeliveryMethods: model.StringList{model.ChannelInApp},
	})
}

// Update replaces the schedule and summary wholesale, keeping the existing
// value for anything the request leaves out.
func (s *service) Update(ctx context.Context, actor model.Actor, planID uuid.UUID, req *model.UpdateTreatmentPlanRequest) (*model.TreatmentPlan, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("only doctors can update treatment plans")
	}
	plan, err := s.repo.Get(ctx, planID)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.NotFound("treatment plan", err)
		}
		return nil, fmt.Errorf("failed to get treatment plan: %w", err)
	}

	if req.Schedule != nil {
		plan.Schedule = model.Schedule(req.Schedule)
	}
	if req.Summary != nil {
		plan.Summary = *req.Summary
	}

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to update treatment plan: %w", err)
	}

	if patient, perr := s.patientRepo.Get(ctx, plan.PatientID); perr == nil {
		s.notify(ctx, patient.UserID, &model.Notification{
			Type:            model.NotificationTypeTreatmentPlanUpdated,
			Title:           "Treatment Plan Updated",
			Message:         "Your treatment plan has been updated by your doctor.",
			Data:            model.JSONMap{"plan_id": plan.ID.String()},
			DeliveryMethods: model.StringList{model.ChannelInApp, model.ChannelEmail},
		})
	}
	return plan, nil
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, n *model.Notification) {
	n.UserID = userID
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		s.logger.Error(err, "failed to dispatch notification", "user_id", userID, "type", n.Type)
	}
}

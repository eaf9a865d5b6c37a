package treatment

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
	Create(ctx context.Context, actor model.Actor, req *model.CreateTreatmentRequest) (*model.Treatment, error)
	GenerateAIPlan(ctx context.Context, actor model.Actor, req *model.GenerateAIPlanRequest) (*model.AIPlan, error)
	Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Treatment, error)
	List(ctx context.Context, actor model.Actor, filters *model.TreatmentFilters) ([]*model.Treatment, int, error)
	Start(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Treatment, error)
	CompleteStage(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.CompleteStageRequest) (*model.Treatment, error)
	AddSession(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.AddSessionRequest) (*model.Treatment, error)
	Complete(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Treatment, error)
	Progress(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.TreatmentProgress, error)
}

type service struct {
	repo            repository.TreatmentRepository
	appointmentRepo repository.AppointmentRepository
	patientRepo     repository.PatientRepository
	doctorRepo      repository.DoctorRepository
	notifier        notification.Service
	logger          *logger.Logger
}

func NewService(
	repo repository.TreatmentRepository,
	appointmentRepo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	notifier notification.Service,
	logger *logger.Logger,
) Service {
	return &service{
		repo:            repo,
		appointmentRepo: appointmentRepo,
		patientRepo:     patientRepo,
		doctorRepo:      doctorRepo,
		notifier:        notifier,
		logger:          logger,
	}
}

func (s *service) Create(ctx context.Context, actor model.Actor, req *model.CreateTreatmentRequest) (*model.Treatment, error) {
	doctor, err := s.requireDoctor(ctx, actor)
	if err != nil {
		return nil, err
	}

	patient, err := s.patientRepo.Get(ctx, req.PatientID)
	if err != nil {
		return nil, apperrors.NotFound("patient", err)
	}
	if _, err := s.appointmentRepo.Get(ctx, req.AppointmentID); err != nil {
		return nil, apperrors.NotFound("appointment", err)
	}

	if _, err := s.repo.GetByAppointment(ctx, req.AppointmentID); err == nil {
		return nil, apperrors.Conflict("a treatment already exists for this appointment", nil)
	} else if err != postgres.ErrNotFound {
		return nil, fmt.Errorf("failed to check existing treatment: %w", err)
	}

	treatment := &model.Treatment{
		PatientID:     patient.ID,
		DoctorID:      doctor.ID,
		AppointmentID: req.AppointmentID,
		Diagnosis:     req.Diagnosis,
		Status:        model.TreatmentStatusDraft,
		IsActive:      true,
	}
	if req.AIPlan != nil {
		treatment.AIPlan = *req.AIPlan
		treatment.AIPlan.IsGenerated = true
		if treatment.AIPlan.GeneratedAt == nil {
			now := time.Now()
			treatment.AIPlan.GeneratedAt = &now
		}
	}
	if len(req.Customizations) > 0 {
		applyCustomizations(treatment, doctor.ID, req.Customizations)
	}

	_, _, estimated := treatment.ActivePlan()
	treatment.Cost.Estimated = estimated
	treatment.Recalculate()

	if err := s.repo.Create(ctx, treatment); err != nil {
		// The unique index on appointment_id closes the check-then-insert race.
		if postgres.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("a treatment already exists for this appointment", err)
		}
		return nil, fmt.Errorf("failed to create treatment: %w", err)
	}

	s.notify(ctx, patient.UserID, &model.Notification{
		Type:            model.NotificationTypeTreatmentPlan,
		Title:           "Treatment Plan Ready",
		Message:         "Your doctor has prepared a treatment plan for you.",
		Data:            model.JSONMap{"treatment_id": treatment.ID.String()},
		DeliveryMethods: model.StringList{model.ChannelInApp, model.ChannelEmail},
	})
	return treatment, nil
}

// applyCustomizations folds doctor edits over the AI stages into the
// customized plan variant, keeping a record of every modification.
func applyCustomizations(t *model.Treatment, doctorID uuid.UUID, mods []model.PlanModification) {
	now := time.Now()

	stages := make([]model.PlanStage, len(t.AIPlan.Stages))
	copy(stages, t.AIPlan.Stages)

	for i := range mods {
		if mods[i].ModifiedAt.IsZero() {
			mods[i].ModifiedAt = now
		}
		idx := mods[i].StageIndex
		if idx < 0 || idx >= len(stages) {
			continue
		}
		applyStageField(&stages[idx], mods[i].Field, mods[i].NewValue)
	}

	t.CustomizedPlan = model.CustomizedPlan{
		IsCustomized:    true,
		CustomizedAt:    &now,
		CustomizedBy:    &doctorID,
		Modifications:   mods,
		Stages:          stages,
		OverallDuration: t.AIPlan.OverallDuration,
		EstimatedCost:   t.AIPlan.EstimatedCost,
	}
}

func applyStageField(stage *model.PlanStage, field string, value interface{}) {
	switch field {
	case "title":
		if v, ok := value.(string); ok {
			stage.Title = v
		}
	case "description":
		if v, ok := value.(string); ok {
			stage.Description = v
		}
	case "daily_tasks":
		stage.DailyTasks = toStringSlice(value)
	case "weekly_tasks":
		stage.WeeklyTasks = toStringSlice(value)
	case "precautions":
		stage.Precautions = toStringSlice(value)
	}
}

func toStringSlice(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func (s *service) requireDoctor(ctx context.Context, actor model.Actor) (*model.Doctor, error) {
	if !actor.IsDoctor() && !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only doctors can manage treatments")
	}
	doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if actor.IsAdmin() {
			return nil, apperrors.BadRequest("admin users cannot own treatments", nil)
		}
		return nil, apperrors.NotFound("doctor profile", err)
	}
	return doctor, nil
}

func (s *service) load(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Treatment, error) {
	treatment, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.NotFound("treatment", err)
		}
		return nil, fmt.Errorf("failed to get treatment: %w", err)
	}
	if err := s.authorize(ctx, actor, treatment); err != nil {
		return nil, err
	}
	return treatment, nil
}

func (s *service) authorize(ctx context.Context, actor model.Actor, treatment *model.Treatment) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsPatient():
		patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if err == nil && patient.ID == treatment.PatientID {
			return nil
		}
	case actor.IsDoctor():
		doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
		if err == nil && doctor.ID == treatment.DoctorID {
			return nil
		}
	}
	return apperrors.Forbidden("you do not have access to this treatment")
}

func (s *service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Treatment, error) {
	return s.load(ctx, actor, id)
}

func (s *service) List(ctx context.Context, actor model.Actor, filters *model.TreatmentFilters) ([]*model.Treatment, int, error) {
	switch {
	case actor.IsPatient():
		patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, 0, apperrors.NotFound("patient profile", err)
		}
		filters.PatientID = patient.ID
	case actor.IsDoctor():
		doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, 0, apperrors.NotFound("doctor profile", err)
		}
		filters.DoctorID = doctor.ID
	}

	treatments, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list treatments: %w", err)
	}
	return treatments, total, nil
}

// Start activates a draft treatment, snapshotting the authoritative plan
// into zero-progress stage entries. The snapshot is what progress tracking
// works against from here on; later plan edits do not touch it.
func (s *service) Start(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Treatment, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("only doctors can start treatments")
	}
	treatment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if treatment.Status != model.TreatmentStatusDraft {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot start a %s treatment", treatment.Status), nil)
	}

	stages, overall, estimated := treatment.ActivePlan()
	if len(stages) == 0 {
		return nil, apperrors.BadRequest("treatment has no plan stages to start", nil)
	}

	now := time.Now()
	progress := make([]model.StageProgress, len(stages))
	for i, stage := range stages {
		progress[i] = model.StageProgress{
			StageIndex: i,
			Title:      stage.Title,
		}
	}

	treatment.Status = model.TreatmentStatusActive
	treatment.StartDate = &now
	if days := durationInDays(overall); days > 0 {
		end := now.AddDate(0, 0, days)
		treatment.EndDate = &end
	}
	treatment.Progress = model.Progress{Stages: progress}
	treatment.CurrentStage = model.CurrentStage{
		Index:     0,
		Title:     stages[0].Title,
		StartDate: &now,
	}
	if estimated != 0 {
		treatment.Cost.Estimated = estimated
	}
	treatment.Recalculate()

	if err := s.repo.Update(ctx, treatment); err != nil {
		return nil, fmt.Errorf("failed to start treatment: %w", err)
	}
	return treatment, nil
}

func durationInDays(d model.StageDuration) int {
	switch d.Unit {
	case model.DurationUnitWeeks:
		return d.Value * 7
	case model.DurationUnitMonths:
		return d.Value * 30
	default:
		return d.Value
	}
}

// CompleteStage marks one snapshot stage finished. Completing an already
// completed stage is a no-op; the current stage pointer advances only when
// the completed index is the one it sits on.
func (s *service) CompleteStage(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.CompleteStageRequest) (*model.Treatment, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("only doctors can complete treatment stages")
	}
	treatment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if treatment.Status != model.TreatmentStatusActive {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot complete a stage of a %s treatment", treatment.Status), nil)
	}
	if req.StageIndex < 0 || req.StageIndex >= len(treatment.Progress.Stages) {
		return nil, apperrors.BadRequest("stage index out of range", nil)
	}

	stage := &treatment.Progress.Stages[req.StageIndex]
	if stage.IsCompleted {
		return treatment, nil
	}

	now := time.Now()
	stage.Progress = 100
	stage.IsCompleted = true
	stage.CompletedAt = &now
	stage.EndDate = &now
	if req.Notes != "" {
		stage.Notes = req.Notes
	}

	if req.StageIndex == treatment.CurrentStage.Index {
		next := req.StageIndex + 1
		stages, _, _ := treatment.ActivePlan()
		if next < len(treatment.Progress.Stages) {
			title := ""
			if next < len(stages) {
				title = stages[next].Title
			}
			treatment.CurrentStage = model.CurrentStage{
				Index:     next,
				Title:     title,
				StartDate: &now,
			}
		} else {
			treatment.CurrentStage.IsCompleted = true
			treatment.CurrentStage.CompletedAt = &now
		}
	}

	treatment.Recalculate()
	if err := s.repo.Update(ctx, treatment); err != nil {
		return nil, fmt.Errorf("failed to complete stage: %w", err)
	}

	if patient, perr := s.patientRepo.Get(ctx, treatment.PatientID); perr == nil {
		s.notify(ctx, patient.UserID, &model.Notification{
			Type:            model.NotificationTypeTreatmentStageCompleted,
			Title:           "Stage Completed",
			Message:         fmt.Sprintf("Stage %q of your treatment is complete.", stage.Title),
			Data:            model.JSONMap{"treatment_id": treatment.ID.String()},
			DeliveryMethods: model.StringList{model.ChannelInApp},
		})
	}
	return treatment, nil
}

// AddSession logs a therapy sitting stamped with the current stage.
func (s *service) AddSession(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.AddSessionRequest) (*model.Treatment, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("only doctors can log treatment sessions")
	}
	treatment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if treatment.Status != model.TreatmentStatusActive {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot log a session on a %s treatment", treatment.Status), nil)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, apperrors.BadRequest("date must be in YYYY-MM-DD format", err)
	}

	treatment.Sessions = append(treatment.Sessions, model.Session{
		StageIndex:  treatment.CurrentStage.Index,
		StageTitle:  treatment.CurrentStage.Title,
		Date:        date.UTC(),
		Time:        req.Time,
		Duration:    req.Duration,
		TherapistID: req.TherapistID,
		Therapy:     req.Therapy,
		Status:      model.SessionStatusCompleted,
		Notes:       req.Notes,
	})

	treatment.Recalculate()
	if err := s.repo.Update(ctx, treatment); err != nil {
		return nil, fmt.Errorf("failed to add session: %w", err)
	}
	return treatment, nil
}

// Complete closes the treatment. Outstanding stages are allowed; the
// overall progress simply reflects whatever was finished.
func (s *service) Complete(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Treatment, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("only doctors can complete treatments")
	}
	treatment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if treatment.Status != model.TreatmentStatusActive && treatment.Status != model.TreatmentStatusPaused {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot complete a %s treatment", treatment.Status), nil)
	}

	now := time.Now()
	treatment.Status = model.TreatmentStatusCompleted
	treatment.ActualEndDate = &now
	treatment.Recalculate()

	if err := s.repo.Update(ctx, treatment); err != nil {
		return nil, fmt.Errorf("failed to complete treatment: %w", err)
	}

	if patient, perr := s.patientRepo.Get(ctx, treatment.PatientID); perr == nil {
		s.notify(ctx, patient.UserID, &model.Notification{
			Type:            model.NotificationTypeTreatmentCompleted,
			Title:           "Treatment Completed",
			Message:         "Your treatment has been completed. We wish you continued good health.",
			Data:            model.JSONMap{"treatment_id": treatment.ID.String()},
			DeliveryMethods: model.StringList{model.ChannelInApp, model.ChannelEmail},
		})
	}
	return treatment, nil
}

func (s *service) Progress(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.TreatmentProgress, error) {
	treatment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &model.TreatmentProgress{
		Progress:     treatment.Progress,
		CurrentStage: treatment.CurrentStage,
		Sessions:     treatment.Sessions,
		Status:       treatment.Status,
	}, nil
}

func (s *service) notify(ctx context.Context, userID uuid.UUID, n *model.Notification) {
	n.UserID = userID
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		s.logger.Error(err, "failed to dispatch notification", "user_id", userID, "type", n.Type)
	}
}

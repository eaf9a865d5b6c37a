package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/repository"
	"github.com/suminyol/ayursutra-api/internal/repository/postgres"
	"github.com/suminyol/ayursutra-api/internal/service/notification"
	apperrors "github.com/suminyol/ayursutra-api/pkg/errors"
	"github.com/suminyol/ayursutra-api/pkg/logger"
	"github.com/suminyol/ayursutra-api/pkg/metrics"
)

const (
	maxAdvanceBooking      = 3 * 31 * 24 * time.Hour
	defaultDurationMinutes = 30
	defaultConsultationFee = 200

	doctorCacheTTL = 5 * time.Minute
)

type Service interface {
	Book(ctx context.Context, actor model.Actor, req *model.BookAppointmentRequest) (*model.Appointment, error)
	Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error)
	Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error)
	CheckIn(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error)
	Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.CancelAppointmentRequest) (*model.Appointment, error)
	Reschedule(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error)
	Complete(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.CompleteAppointmentRequest) (*model.Appointment, error)
	Stats(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.AppointmentStats, error)
}

type service struct {
	repo        repository.AppointmentRepository
	patientRepo repository.PatientRepository
	doctorRepo  repository.DoctorRepository
	notifier    notification.Service
	doctorCache *cache.Cache
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

func NewService(
	repo repository.AppointmentRepository,
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	notifier notification.Service,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) Service {
	return &service{
		repo:        repo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		notifier:    notifier,
		doctorCache: cache.New(doctorCacheTTL, 10*time.Minute),
		metrics:     metrics,
		logger:      logger,
	}
}

// parseDate normalizes a YYYY-MM-DD date to UTC midnight.
func parseDate(value string) (time.Time, error) {
	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, apperrors.BadRequest("date must be in YYYY-MM-DD format", err)
	}
	return date.UTC(), nil
}

// validateWindow rejects dates before today (UTC) or more than three
// months out. It runs on booking and on date changes only, so past
// appointments remain readable and cancellable.
func validateWindow(date time.Time) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return apperrors.BadRequest("appointment date cannot be in the past", nil)
	}
	if date.After(time.Now().UTC().Add(maxAdvanceBooking)) {
		return apperrors.BadRequest("appointments can only be booked up to 3 months in advance", nil)
	}
	return nil
}

func (s *service) activeDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if cached, ok := s.doctorCache.Get(id.String()); ok {
		return cached.(*model.Doctor), nil
	}
	doctor, err := s.doctorRepo.GetActive(ctx, id)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	s.doctorCache.Set(id.String(), doctor, cache.DefaultExpiration)
	return doctor, nil
}

// resolvePatient chooses the booking target: patients always book for
// themselves, staff must name the patient explicitly.
func (s *service) resolvePatient(ctx context.Context, actor model.Actor, patientID *uuid.UUID) (*model.Patient, error) {
	if actor.IsPatient() {
		patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, apperrors.NotFound("patient profile", err)
		}
		return patient, nil
	}
	if patientID == nil {
		return nil, apperrors.BadRequest("patient_id is required", nil)
	}
	patient, err := s.patientRepo.Get(ctx, *patientID)
	if err != nil {
		return nil, apperrors.NotFound("patient", err)
	}
	return patient, nil
}

// checkSlot rejects the booking when another scheduled or confirmed
// appointment already holds the exact (doctor, date, time) slot.
func (s *service) checkSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) error {
	_, err := s.repo.FindSlotHolder(ctx, doctorID, date, timeOfDay, excludeID)
	if err == nil {
		s.metrics.BookingConflicts.Inc()
		return apperrors.Conflict("this time slot is already booked", nil)
	}
	if err != postgres.ErrNotFound {
		return fmt.Errorf("failed to check slot availability: %w", err)
	}
	return nil
}

func (s *service) Book(ctx context.Context, actor model.Actor, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(date); err != nil {
		return nil, err
	}

	doctor, err := s.activeDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	patient, err := s.resolvePatient(ctx, actor, req.PatientID)
	if err != nil {
		return nil, err
	}

	if err := s.checkSlot(ctx, doctor.ID, date, req.Time, nil); err != nil {
		return nil, err
	}

	fee := doctor.ConsultationFee
	if fee == 0 {
		fee = defaultConsultationFee
	}
	appointmentType := req.Type
	if appointmentType == "" {
		appointmentType = model.AppointmentTypeConsultation
	}

	appointment := &model.Appointment{
		PatientID: patient.ID,
		DoctorID:  doctor.ID,
		Date:      date,
		Time:      req.Time,
		Duration:  defaultDurationMinutes,
		Type:      appointmentType,
		Status:    model.AppointmentStatusScheduled,
		Reason:    req.Reason,
		Symptoms:  model.StringList(req.Symptoms),
		Payment: model.PaymentInfo{
			Amount: fee,
			Status: model.PaymentStatusPending,
		},
		IsActive: true,
	}

	if err := s.repo.Create(ctx, appointment); err != nil {
		// The partial unique index closes the check-then-insert race.
		if postgres.IsUniqueViolation(err) {
			s.metrics.BookingConflicts.Inc()
			return nil, apperrors.Conflict("this time slot is already booked", err)
		}
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	s.metrics.AppointmentsBooked.Inc()

	s.notify(ctx, patient.UserID, &model.Notification{
		Type:    model.NotificationTypeAppointmentConfirmation,
		Title:   "Appointment Booked",
		Message: fmt.Sprintf("Your appointment is booked for %s at %s.", date.Format("2 Jan 2006"), req.Time),
		Data:    model.JSONMap{"appointment_id": appointment.ID.String()},
		DeliveryMethods: model.StringList{
			model.ChannelInApp, model.ChannelEmail, model.ChannelSMS,
		},
	})
	s.notify(ctx, doctor.UserID, &model.Notification{
		Type:            model.NotificationTypeNewAppointment,
		Title:           "New Appointment",
		Message:         fmt.Sprintf("A new appointment was booked for %s at %s.", date.Format("2 Jan 2006"), req.Time),
		Data:            model.JSONMap{"appointment_id": appointment.ID.String()},
		DeliveryMethods: model.StringList{model.ChannelInApp},
	})

	appointment.Patient = patient
	appointment.Doctor = doctor
	return appointment, nil
}

// notify dispatches without letting delivery problems affect the caller.
func (s *service) notify(ctx context.Context, userID uuid.UUID, n *model.Notification) {
	n.UserID = userID
	if err := s.notifier.Dispatch(ctx, n); err != nil {
		s.logger.Error(err, "failed to dispatch notification", "user_id", userID, "type", n.Type)
	}
}

// load fetches an appointment and verifies the actor may see it.
func (s *service) load(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.repo.Get(ctx, id)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	if err := s.authorize(ctx, actor, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *service) authorize(ctx context.Context, actor model.Actor, appointment *model.Appointment) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsPatient():
		patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if err == nil && patient.ID == appointment.PatientID {
			return nil
		}
	case actor.IsDoctor():
		doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
		if err == nil && doctor.ID == appointment.DoctorID {
			return nil
		}
	}
	return apperrors.Forbidden("you do not have access to this appointment")
}

func (s *service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	s.attachParties(ctx, appointment)
	return appointment, nil
}

func (s *service) attachParties(ctx context.Context, appointment *model.Appointment) {
	if patient, err := s.patientRepo.Get(ctx, appointment.PatientID); err == nil {
		appointment.Patient = patient
	}
	if doctor, err := s.doctorRepo.Get(ctx, appointment.DoctorID); err == nil {
		appointment.Doctor = doctor
	}
}

// List scopes results to the actor: patients and doctors only ever see
// their own appointments regardless of the filters they pass.
func (s *service) List(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	switch {
	case actor.IsPatient():
		patient, err := s.patientRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, apperrors.NotFound("patient profile", err)
		}
		filters.PatientID = patient.ID
	case actor.IsDoctor():
		doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, apperrors.NotFound("doctor profile", err)
		}
		filters.DoctorID = doctor.ID
	}

	appointments, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (s *service) Update(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.Appointment, error) {
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.IsTerminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot update a %s appointment", appointment.Status), nil)
	}

	newDate := appointment.Date
	newTime := appointment.Time
	slotChanged := false

	if req.Date != nil {
		parsed, err := parseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		if !parsed.Equal(appointment.Date) {
			newDate = parsed
			slotChanged = true
		}
	}
	if req.Time != nil && *req.Time != appointment.Time {
		newTime = *req.Time
		slotChanged = true
	}

	if slotChanged {
		if err := validateWindow(newDate); err != nil {
			return nil, err
		}
		if err := s.checkSlot(ctx, appointment.DoctorID, newDate, newTime, &appointment.ID); err != nil {
			return nil, err
		}
		appointment.Date = newDate
		appointment.Time = newTime
	}

	if req.Reason != nil {
		appointment.Reason = *req.Reason
	}
	if req.Symptoms != nil {
		appointment.Symptoms = model.StringList(req.Symptoms)
	}
	if req.Notes != nil {
		appointment.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, appointment); err != nil {
		if postgres.IsUniqueViolation(err) {
			s.metrics.BookingConflicts.Inc()
			return nil, apperrors.Conflict("this time slot is already booked", err)
		}
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return appointment, nil
}

func (s *service) Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("only staff can confirm appointments")
	}
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != model.AppointmentStatusScheduled {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot confirm a %s appointment", appointment.Status), nil)
	}

	appointment.Status = model.AppointmentStatusConfirmed
	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to confirm appointment: %w", err)
	}

	if patient, perr := s.patientRepo.Get(ctx, appointment.PatientID); perr == nil {
		s.notify(ctx, patient.UserID, &model.Notification{
			Type:            model.NotificationTypeAppointmentConfirmation,
			Title:           "Appointment Confirmed",
			Message:         fmt.Sprintf("Your appointment on %s at %s has been confirmed.", appointment.Date.Format("2 Jan 2006"), appointment.Time),
			Data:            model.JSONMap{"appointment_id": appointment.ID.String()},
			DeliveryMethods: model.StringList{model.ChannelInApp, model.ChannelEmail},
		})
	}
	return appointment, nil
}

func (s *service) CheckIn(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("only staff can check in appointments")
	}
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !appointment.Status.HoldsSlot() {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot check in a %s appointment", appointment.Status), nil)
	}

	now := time.Now()
	appointment.Status = model.AppointmentStatusInProgress
	appointment.CheckInTime = &now
	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to check in appointment: %w", err)
	}
	return appointment, nil
}

func (s *service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.CancelAppointmentRequest) (*model.Appointment, error) {
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.IsTerminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot cancel a %s appointment", appointment.Status), nil)
	}

	now := time.Now()
	appointment.Status = model.AppointmentStatusCancelled
	appointment.CancellationReason = req.Reason
	appointment.CancelledBy = string(actor.Role)
	appointment.CancelledAt = &now

	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	s.notifyCancellation(ctx, actor, appointment)
	return appointment, nil
}

// notifyCancellation tells the other party, not the one who cancelled.
func (s *service) notifyCancellation(ctx context.Context, actor model.Actor, appointment *model.Appointment) {
	message := fmt.Sprintf("The appointment on %s at %s was cancelled.", appointment.Date.Format("2 Jan 2006"), appointment.Time)
	n := &model.Notification{
		Type:            model.NotificationTypeAppointmentCancelled,
		Title:           "Appointment Cancelled",
		Message:         message,
		Data:            model.JSONMap{"appointment_id": appointment.ID.String()},
		DeliveryMethods: model.StringList{model.ChannelInApp, model.ChannelEmail},
	}
	if actor.IsPatient() {
		if doctor, err := s.doctorRepo.Get(ctx, appointment.DoctorID); err == nil {
			s.notify(ctx, doctor.UserID, n)
		}
		return
	}
	if patient, err := s.patientRepo.Get(ctx, appointment.PatientID); err == nil {
		s.notify(ctx, patient.UserID, n)
	}
}

// Reschedule moves the appointment to the new slot on the same record:
// status becomes rescheduled and date/time are overwritten in place. The
// record stays live, so it can be cancelled or rescheduled again.
func (s *service) Reschedule(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.IsTerminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot reschedule a %s appointment", appointment.Status), nil)
	}

	newDate, err := parseDate(req.NewDate)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(newDate); err != nil {
		return nil, err
	}
	if err := s.checkSlot(ctx, appointment.DoctorID, newDate, req.NewTime, &appointment.ID); err != nil {
		return nil, err
	}

	appointment.Status = model.AppointmentStatusRescheduled
	appointment.Date = newDate
	appointment.Time = req.NewTime
	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to reschedule appointment: %w", err)
	}

	if patient, perr := s.patientRepo.Get(ctx, appointment.PatientID); perr == nil {
		s.notify(ctx, patient.UserID, &model.Notification{
			Type:            model.NotificationTypeAppointmentRescheduled,
			Title:           "Appointment Rescheduled",
			Message:         fmt.Sprintf("Your appointment has been moved to %s at %s.", newDate.Format("2 Jan 2006"), req.NewTime),
			Data:            model.JSONMap{"appointment_id": appointment.ID.String()},
			DeliveryMethods: model.StringList{model.ChannelInApp, model.ChannelEmail, model.ChannelSMS},
		})
	}
	return appointment, nil
}

func (s *service) Complete(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.CompleteAppointmentRequest) (*model.Appointment, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("only staff can complete appointments")
	}
	appointment, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.IsTerminal() {
		return nil, apperrors.Conflict(fmt.Sprintf("cannot complete a %s appointment", appointment.Status), nil)
	}

	now := time.Now()
	appointment.Status = model.AppointmentStatusCompleted
	appointment.CheckOutTime = &now
	appointment.Consultation = model.Consultation{
		Diagnosis:        req.Diagnosis,
		Prescription:     req.Prescription,
		Recommendations:  req.Recommendations,
		FollowUpRequired: req.FollowUpRequired,
		FollowUpDate:     req.FollowUpDate,
		Notes:            req.Notes,
	}

	if err := s.repo.Update(ctx, appointment); err != nil {
		return nil, fmt.Errorf("failed to complete appointment: %w", err)
	}

	if patient, perr := s.patientRepo.Get(ctx, appointment.PatientID); perr == nil {
		s.notify(ctx, patient.UserID, &model.Notification{
			Type:            model.NotificationTypeGeneral,
			Title:           "Consultation Complete",
			Message:         "Your consultation is complete. Prescription and recommendations are available.",
			Data:            model.JSONMap{"appointment_id": appointment.ID.String()},
			DeliveryMethods: model.StringList{model.ChannelInApp, model.ChannelEmail},
		})
	}
	return appointment, nil
}

func (s *service) Stats(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.AppointmentStats, error) {
	if actor.IsPatient() {
		return nil, apperrors.Forbidden("stats are restricted to staff")
	}
	if actor.IsDoctor() {
		doctor, err := s.doctorRepo.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, apperrors.NotFound("doctor profile", err)
		}
		filters.DoctorID = doctor.ID
	}

	stats, err := s.repo.Stats(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment stats: %w", err)
	}
	return stats, nil
}

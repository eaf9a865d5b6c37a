package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/suminyol/ayursutra-api/internal/model"
)

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
	}

	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetActive(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error)
		Update(ctx context.Context, doctor *model.Doctor) error
		List(ctx context.Context) ([]*model.Doctor, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, appointment *model.Appointment) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		// FindSlotHolder returns the non-terminal appointment occupying the
		// exact (doctor, date, time) slot, excluding excludeID when non-nil.
		FindSlotHolder(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (*model.Appointment, error)
		// CompletePastScheduled flips still-scheduled appointments whose date
		// has passed into completed and reports how many rows changed.
		CompletePastScheduled(ctx context.Context, now time.Time) (int64, error)
		FindScheduledBetween(ctx context.Context, start, end time.Time) ([]*model.Appointment, error)
		LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.Appointment, error)
		Stats(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentStats, error)
	}

	TreatmentRepository interface {
		Create(ctx context.Context, treatment *model.Treatment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Treatment, error)
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Treatment, error)
		Update(ctx context.Context, treatment *model.Treatment) error
		List(ctx context.Context, filters *model.TreatmentFilters) ([]*model.Treatment, int, error)
	}

	TreatmentPlanRepository interface {
		Create(ctx context.Context, plan *model.TreatmentPlan) error
		Get(ctx context.Context, id uuid.UUID) (*model.TreatmentPlan, error)
		// LatestForPatient returns the most recently created plan only.
		LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.TreatmentPlan, error)
		Update(ctx context.Context, plan *model.TreatmentPlan) error
		ListAll(ctx context.Context) ([]*model.TreatmentPlan, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
		Update(ctx context.Context, notification *model.Notification) error
		ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*model.Notification, error)
	}
)

package appointment

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/repository/postgres"
	apperrors "github.com/suminyol/ayursutra-api/pkg/errors"
	"github.com/suminyol/ayursutra-api/pkg/logger"
	"github.com/suminyol/ayursutra-api/pkg/metrics"
)

// Prometheus metrics register globally, so the package shares one instance.
var testMetrics = metrics.NewMetrics("test", "appointment")

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
}

func (r *fakePatientRepo) Create(ctx context.Context, patient *model.Patient) error {
	patient.ID = uuid.New()
	r.patients[patient.ID] = patient
	return nil
}

func (r *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	if p, ok := r.patients[id]; ok {
		return p, nil
	}
	return nil, postgres.ErrNotFound
}

func (r *fakePatientRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.UserID == userID {
			return p, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *fakePatientRepo) Update(ctx context.Context, patient *model.Patient) error {
	r.patients[patient.ID] = patient
	return nil
}

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]*model.Doctor
}

func newFakeDoctorRepo() *fakeDoctorRepo {
	return &fakeDoctorRepo{doctors: make(map[uuid.UUID]*model.Doctor)}
}

func (r *fakeDoctorRepo) Create(ctx context.Context, doctor *model.Doctor) error {
	doctor.ID = uuid.New()
	r.doctors[doctor.ID] = doctor
	return nil
}

func (r *fakeDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if d, ok := r.doctors[id]; ok {
		return d, nil
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeDoctorRepo) GetActive(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if d, ok := r.doctors[id]; ok && d.IsActive {
		return d, nil
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeDoctorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	for _, d := range r.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeDoctorRepo) Update(ctx context.Context, doctor *model.Doctor) error {
	r.doctors[doctor.ID] = doctor
	return nil
}

func (r *fakeDoctorRepo) List(ctx context.Context) ([]*model.Doctor, error) {
	out := make([]*model.Doctor, 0, len(r.doctors))
	for _, d := range r.doctors {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeAppointmentRepo struct {
	appointments []*model.Appointment
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, a *model.Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	r.appointments = append(r.appointments, a)
	return nil
}

func (r *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	for _, a := range r.appointments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeAppointmentRepo) Update(ctx context.Context, a *model.Appointment) error {
	for i, existing := range r.appointments {
		if existing.ID == a.ID {
			r.appointments[i] = a
			return nil
		}
	}
	return postgres.ErrNotFound
}

func (r *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range r.appointments {
		if filters.PatientID != uuid.Nil && a.PatientID != filters.PatientID {
			continue
		}
		if filters.DoctorID != uuid.Nil && a.DoctorID != filters.DoctorID {
			continue
		}
		if filters.Status != "" && a.Status != filters.Status {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeAppointmentRepo) FindSlotHolder(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (*model.Appointment, error) {
	for _, a := range r.appointments {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Time == timeOfDay && a.Status.HoldsSlot() {
			return a, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeAppointmentRepo) CompletePastScheduled(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	for _, a := range r.appointments {
		if a.Status == model.AppointmentStatusScheduled && a.Date.Before(now) {
			a.Status = model.AppointmentStatusCompleted
			count++
		}
	}
	return count, nil
}

func (r *fakeAppointmentRepo) FindScheduledBetween(ctx context.Context, start, end time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range r.appointments {
		if a.Status.HoldsSlot() && !a.Date.Before(start) && a.Date.Before(end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.Appointment, error) {
	var latest *model.Appointment
	for _, a := range r.appointments {
		if a.PatientID != patientID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, postgres.ErrNotFound
	}
	return latest, nil
}

func (r *fakeAppointmentRepo) Stats(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentStats, error) {
	byStatus := make(map[model.AppointmentStatus]*model.AppointmentStats)
	for _, a := range r.appointments {
		if filters.DoctorID != uuid.Nil && a.DoctorID != filters.DoctorID {
			continue
		}
		s, ok := byStatus[a.Status]
		if !ok {
			s = &model.AppointmentStats{Status: a.Status}
			byStatus[a.Status] = s
		}
		s.Count++
		s.TotalRevenue += a.Payment.Amount
	}
	out := make([]*model.AppointmentStats, 0, len(byStatus))
	for _, s := range byStatus {
		out = append(out, s)
	}
	return out, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*model.Notification
}

func (n *fakeNotifier) Dispatch(ctx context.Context, notification *model.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

func (n *fakeNotifier) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*model.Notification, error) {
	return nil, nil
}

func (n *fakeNotifier) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*model.Notification, error) {
	return nil, nil
}

func (n *fakeNotifier) byType(t model.NotificationType) []*model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*model.Notification
	for _, notification := range n.sent {
		if notification.Type == t {
			out = append(out, notification)
		}
	}
	return out
}

type fixture struct {
	svc      Service
	repo     *fakeAppointmentRepo
	patients *fakePatientRepo
	doctors  *fakeDoctorRepo
	notifier *fakeNotifier

	doctor  *model.Doctor
	patient *model.Patient

	patientActor model.Actor
	doctorActor  model.Actor
	adminActor   model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	patients := newFakePatientRepo()
	doctors := newFakeDoctorRepo()
	repo := &fakeAppointmentRepo{}
	notifier := &fakeNotifier{}

	doctor := &model.Doctor{UserID: uuid.New(), ConsultationFee: 500, IsActive: true}
	require.NoError(t, doctors.Create(context.Background(), doctor))

	patient := &model.Patient{UserID: uuid.New()}
	require.NoError(t, patients.Create(context.Background(), patient))

	return &fixture{
		svc:          NewService(repo, patients, doctors, notifier, testMetrics, testLogger()),
		repo:         repo,
		patients:     patients,
		doctors:      doctors,
		notifier:     notifier,
		doctor:       doctor,
		patient:      patient,
		patientActor: model.Actor{UserID: patient.UserID, Role: model.UserRolePatient},
		doctorActor:  model.Actor{UserID: doctor.UserID, Role: model.UserRoleDoctor},
		adminActor:   model.Actor{UserID: uuid.New(), Role: model.UserRoleAdmin},
	}
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func mustParseDate(t *testing.T, value string) time.Time {
	t.Helper()
	date, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return date.UTC()
}

func (f *fixture) book(t *testing.T, date, timeOfDay string) *model.Appointment {
	t.Helper()
	appointment, err := f.svc.Book(context.Background(), f.patientActor, &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     date,
		Time:     timeOfDay,
		Reason:   "persistent back pain",
	})
	require.NoError(t, err)
	return appointment
}

func TestBookAppointment(t *testing.T) {
	f := newFixture(t)

	appointment := f.book(t, futureDate(7), "10:00")

	assert.Equal(t, model.AppointmentStatusScheduled, appointment.Status)
	assert.Equal(t, f.patient.ID, appointment.PatientID)
	assert.Equal(t, f.doctor.ID, appointment.DoctorID)
	assert.Equal(t, 30, appointment.Duration)
	assert.Equal(t, model.AppointmentTypeConsultation, appointment.Type)
	assert.Equal(t, float64(500), appointment.Payment.Amount)
	assert.Equal(t, model.PaymentStatusPending, appointment.Payment.Status)
	assert.True(t, appointment.IsActive)

	// Patient and doctor each get told.
	assert.Len(t, f.notifier.byType(model.NotificationTypeAppointmentConfirmation), 1)
	assert.Len(t, f.notifier.byType(model.NotificationTypeNewAppointment), 1)
}

func TestBookUsesDefaultFeeWhenDoctorHasNone(t *testing.T) {
	f := newFixture(t)
	f.doctor.ConsultationFee = 0

	appointment := f.book(t, futureDate(7), "10:00")
	assert.Equal(t, float64(defaultConsultationFee), appointment.Payment.Amount)
}

func TestBookSlotConflict(t *testing.T) {
	f := newFixture(t)
	date := futureDate(7)

	first := f.book(t, date, "10:00")

	_, err := f.svc.Book(context.Background(), f.patientActor, &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     date,
		Time:     "10:00",
		Reason:   "checkup",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// A different time the same day is fine.
	f.book(t, date, "10:30")

	// Cancelling frees the slot for rebooking.
	_, err = f.svc.Cancel(context.Background(), f.patientActor, first.ID, &model.CancelAppointmentRequest{Reason: "cannot make it"})
	require.NoError(t, err)
	f.book(t, date, "10:00")
}

func TestBookDateWindow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.patientActor, &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02"),
		Time:     "10:00",
		Reason:   "checkup",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "past")

	_, err = f.svc.Book(context.Background(), f.patientActor, &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     time.Now().UTC().AddDate(0, 4, 0).Format("2006-01-02"),
		Time:     "10:00",
		Reason:   "checkup",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 months")

	_, err = f.svc.Book(context.Background(), f.patientActor, &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     "07-09-2026",
		Time:     "10:00",
		Reason:   "checkup",
	})
	require.Error(t, err)
}

func TestBookStaffMustNamePatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Book(context.Background(), f.doctorActor, &model.BookAppointmentRequest{
		DoctorID: f.doctor.ID,
		Date:     futureDate(7),
		Time:     "10:00",
		Reason:   "follow up",
	})
	require.Error(t, err)

	appointment, err := f.svc.Book(context.Background(), f.doctorActor, &model.BookAppointmentRequest{
		DoctorID:  f.doctor.ID,
		PatientID: &f.patient.ID,
		Date:      futureDate(7),
		Time:      "10:00",
		Reason:    "follow up",
	})
	require.NoError(t, err)
	assert.Equal(t, f.patient.ID, appointment.PatientID)
}

func TestUpdateSlotChange(t *testing.T) {
	f := newFixture(t)
	date := futureDate(7)

	appointment := f.book(t, date, "10:00")
	f.book(t, date, "11:00")

	// Editing only the reason does not re-check the slot the
	// appointment itself holds.
	reason := "updated reason"
	updated, err := f.svc.Update(context.Background(), f.patientActor, appointment.ID, &model.UpdateAppointmentRequest{Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, reason, updated.Reason)

	// Moving onto an occupied slot conflicts.
	occupied := "11:00"
	_, err = f.svc.Update(context.Background(), f.patientActor, appointment.ID, &model.UpdateAppointmentRequest{Time: &occupied})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	free := "14:00"
	updated, err = f.svc.Update(context.Background(), f.patientActor, appointment.ID, &model.UpdateAppointmentRequest{Time: &free})
	require.NoError(t, err)
	assert.Equal(t, free, updated.Time)
}

func TestConfirmAndCheckIn(t *testing.T) {
	f := newFixture(t)
	appointment := f.book(t, futureDate(7), "10:00")

	_, err := f.svc.Confirm(context.Background(), f.patientActor, appointment.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	confirmed, err := f.svc.Confirm(context.Background(), f.doctorActor, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, confirmed.Status)

	_, err = f.svc.Confirm(context.Background(), f.doctorActor, appointment.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	checkedIn, err := f.svc.CheckIn(context.Background(), f.doctorActor, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusInProgress, checkedIn.Status)
	assert.NotNil(t, checkedIn.CheckInTime)

	_, err = f.svc.CheckIn(context.Background(), f.doctorActor, appointment.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCancelRecordsWhoAndWhy(t *testing.T) {
	f := newFixture(t)
	appointment := f.book(t, futureDate(7), "10:00")

	cancelled, err := f.svc.Cancel(context.Background(), f.patientActor, appointment.ID, &model.CancelAppointmentRequest{Reason: "travelling"})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, cancelled.Status)
	assert.Equal(t, "travelling", cancelled.CancellationReason)
	assert.Equal(t, string(model.UserRolePatient), cancelled.CancelledBy)
	assert.NotNil(t, cancelled.CancelledAt)

	_, err = f.svc.Cancel(context.Background(), f.patientActor, appointment.ID, &model.CancelAppointmentRequest{Reason: "again"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// Patient-initiated cancellation notifies the doctor.
	assert.Len(t, f.notifier.byType(model.NotificationTypeAppointmentCancelled), 1)
	assert.Equal(t, f.doctor.UserID, f.notifier.byType(model.NotificationTypeAppointmentCancelled)[0].UserID)
}

func TestRescheduleMutatesInPlace(t *testing.T) {
	f := newFixture(t)
	date := futureDate(7)
	appointment := f.book(t, date, "10:00")

	moved, err := f.svc.Reschedule(context.Background(), f.patientActor, appointment.ID, &model.RescheduleAppointmentRequest{
		NewDate: futureDate(14),
		NewTime: "15:00",
	})
	require.NoError(t, err)
	assert.Equal(t, appointment.ID, moved.ID)
	assert.Equal(t, model.AppointmentStatusRescheduled, moved.Status)
	assert.Equal(t, "15:00", moved.Time)
	assert.True(t, moved.Date.Equal(mustParseDate(t, futureDate(14))))

	// Re-fetching the same id shows the overwritten slot.
	fetched, err := f.svc.Get(context.Background(), f.patientActor, appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRescheduled, fetched.Status)
	assert.Equal(t, "15:00", fetched.Time)

	// The old slot is freed.
	f.book(t, date, "10:00")

	// The record stays live and can be rescheduled again.
	again, err := f.svc.Reschedule(context.Background(), f.patientActor, appointment.ID, &model.RescheduleAppointmentRequest{
		NewDate: futureDate(21),
		NewTime: "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, appointment.ID, again.ID)
	assert.Equal(t, "09:00", again.Time)
}

func TestRescheduleConflictsAndGuards(t *testing.T) {
	f := newFixture(t)
	date := futureDate(7)
	appointment := f.book(t, date, "10:00")
	f.book(t, date, "11:00")

	// The target slot is held by another appointment.
	_, err := f.svc.Reschedule(context.Background(), f.patientActor, appointment.ID, &model.RescheduleAppointmentRequest{
		NewDate: date,
		NewTime: "11:00",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	// Cancelled appointments cannot be rescheduled.
	_, err = f.svc.Cancel(context.Background(), f.patientActor, appointment.ID, &model.CancelAppointmentRequest{Reason: "sick"})
	require.NoError(t, err)
	_, err = f.svc.Reschedule(context.Background(), f.patientActor, appointment.ID, &model.RescheduleAppointmentRequest{
		NewDate: futureDate(14),
		NewTime: "15:00",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCompleteRecordsConsultation(t *testing.T) {
	f := newFixture(t)
	appointment := f.book(t, futureDate(7), "10:00")

	_, err := f.svc.Complete(context.Background(), f.patientActor, appointment.ID, &model.CompleteAppointmentRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	completed, err := f.svc.Complete(context.Background(), f.doctorActor, appointment.ID, &model.CompleteAppointmentRequest{
		Diagnosis: "vata imbalance",
		Prescription: []model.PrescriptionLine{
			{Medicine: "Ashwagandha churna", Dosage: "5g", Frequency: "twice daily"},
		},
		FollowUpRequired: true,
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, completed.Status)
	assert.Equal(t, "vata imbalance", completed.Consultation.Diagnosis)
	assert.True(t, completed.Consultation.FollowUpRequired)
	assert.NotNil(t, completed.CheckOutTime)
}

func TestGetAuthorization(t *testing.T) {
	f := newFixture(t)
	appointment := f.book(t, futureDate(7), "10:00")

	other := &model.Patient{UserID: uuid.New()}
	require.NoError(t, f.patients.Create(context.Background(), other))

	_, err := f.svc.Get(context.Background(), model.Actor{UserID: other.UserID, Role: model.UserRolePatient}, appointment.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.Get(context.Background(), f.doctorActor, appointment.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), f.adminActor, appointment.ID)
	require.NoError(t, err)
}

func TestListScopedToActor(t *testing.T) {
	f := newFixture(t)
	f.book(t, futureDate(7), "10:00")

	other := &model.Patient{UserID: uuid.New()}
	require.NoError(t, f.patients.Create(context.Background(), other))
	_, err := f.svc.Book(context.Background(), f.doctorActor, &model.BookAppointmentRequest{
		DoctorID:  f.doctor.ID,
		PatientID: &other.ID,
		Date:      futureDate(8),
		Time:      "10:00",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	// A patient only sees their own, whatever filters they pass.
	list, err := f.svc.List(context.Background(), f.patientActor, &model.AppointmentFilters{PatientID: other.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, f.patient.ID, list[0].PatientID)

	list, err = f.svc.List(context.Background(), f.adminActor, &model.AppointmentFilters{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestStatsRestrictedToStaff(t *testing.T) {
	f := newFixture(t)
	f.book(t, futureDate(7), "10:00")

	_, err := f.svc.Stats(context.Background(), f.patientActor, &model.AppointmentFilters{})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	stats, err := f.svc.Stats(context.Background(), f.doctorActor, &model.AppointmentFilters{})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, model.AppointmentStatusScheduled, stats[0].Status)
	assert.Equal(t, 1, stats[0].Count)
	assert.Equal(t, float64(500), stats[0].TotalRevenue)
}

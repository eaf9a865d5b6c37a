package treatmentplan

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/repository/postgres"
	apperrors "github.com/suminyol/ayursutra-api/pkg/errors"
	"github.com/suminyol/ayursutra-api/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

type fakePlanRepo struct {
	plans []*model.TreatmentPlan
}

func (r *fakePlanRepo) Create(ctx context.Context, plan *model.TreatmentPlan) error {
	plan.ID = uuid.New()
	plan.CreatedAt = time.Now()
	r.plans = append(r.plans, plan)
	return nil
}

func (r *fakePlanRepo) Get(ctx context.Context, id uuid.UUID) (*model.TreatmentPlan, error) {
	for _, p := range r.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *fakePlanRepo) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.TreatmentPlan, error) {
	var latest *model.TreatmentPlan
	for _, p := range r.plans {
		if p.PatientID != patientID {
			continue
		}
		if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	if latest == nil {
		return nil, postgres.ErrNotFound
	}
	return latest, nil
}

func (r *fakePlanRepo) Update(ctx context.Context, plan *model.TreatmentPlan) error {
	for i, existing := range r.plans {
		if existing.ID == plan.ID {
			r.plans[i] = plan
			return nil
		}
	}
	return postgres.ErrNotFound
}

func (r *fakePlanRepo) ListAll(ctx context.Context) ([]*model.TreatmentPlan, error) {
	return r.plans, nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
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
	return r.Get(ctx, id)
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
	return nil, nil
}

// fakeAppointmentRepo only backs the latest-appointment doctor fallback.
type fakeAppointmentRepo struct {
	latest map[uuid.UUID]*model.Appointment
}

func (r *fakeAppointmentRepo) Create(ctx context.Context, a *model.Appointment) error { return nil }

func (r *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return nil, postgres.ErrNotFound
}

func (r *fakeAppointmentRepo) Update(ctx context.Context, a *model.Appointment) error { return nil }

func (r *fakeAppointmentRepo) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) FindSlotHolder(ctx context.Context, doctorID uuid.UUID, date time.Time, timeOfDay string, excludeID *uuid.UUID) (*model.Appointment, error) {
	return nil, postgres.ErrNotFound
}

func (r *fakeAppointmentRepo) CompletePastScheduled(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeAppointmentRepo) FindScheduledBetween(ctx context.Context, start, end time.Time) ([]*model.Appointment, error) {
	return nil, nil
}

func (r *fakeAppointmentRepo) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.Appointment, error) {
	if a, ok := r.latest[patientID]; ok {
		return a, nil
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeAppointmentRepo) Stats(ctx context.Context, filters *model.AppointmentFilters) ([]*model.AppointmentStats, error) {
	return nil, nil
}

type fakeNotifier struct {
	sent []*model.Notification
}

func (n *fakeNotifier) Dispatch(ctx context.Context, notification *model.Notification) error {
	n.sent = append(n.sent, notification)
	return nil
}

func (n *fakeNotifier) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]*model.Notification, error) {
	return nil, nil
}

func (n *fakeNotifier) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*model.Notification, error) {
	return nil, nil
}

type fixture struct {
	svc          Service
	repo         *fakePlanRepo
	patients     *fakePatientRepo
	doctors      *fakeDoctorRepo
	appointments *fakeAppointmentRepo
	notifier     *fakeNotifier

	doctor  *model.Doctor
	patient *model.Patient

	doctorActor  model.Actor
	patientActor model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := &fakePlanRepo{}
	patients := &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
	doctors := &fakeDoctorRepo{doctors: make(map[uuid.UUID]*model.Doctor)}
	appointments := &fakeAppointmentRepo{latest: make(map[uuid.UUID]*model.Appointment)}
	notifier := &fakeNotifier{}

	doctor := &model.Doctor{UserID: uuid.New(), IsActive: true}
	require.NoError(t, doctors.Create(context.Background(), doctor))
	patient := &model.Patient{UserID: uuid.New()}
	require.NoError(t, patients.Create(context.Background(), patient))

	return &fixture{
		svc:          NewService(repo, patients, doctors, appointments, notifier, testLogger()),
		repo:         repo,
		patients:     patients,
		doctors:      doctors,
		appointments: appointments,
		notifier:     notifier,
		doctor:       doctor,
		patient:      patient,
		doctorActor:  model.Actor{UserID: doctor.UserID, Role: model.UserRoleDoctor},
		patientActor: model.Actor{UserID: patient.UserID, Role: model.UserRolePatient},
	}
}

func (f *fixture) createPlan(t *testing.T, doctorID uuid.UUID) *model.TreatmentPlan {
	t.Helper()
	plan, err := f.svc.Create(context.Background(), f.doctorActor, &model.CreateTreatmentPlanRequest{
		PatientID:   f.patient.ID,
		DoctorID:    doctorID,
		PatientName: "Asha Rao",
		Summary:     "14-day detox program",
		Schedule: []model.DaySchedule{
			{Day: 1, Plan: []string{"Abhyanga", "Light diet"}},
			{Day: 2, Plan: []string{"Swedana"}},
			{Day: 3, Plan: []string{"Rest"}},
		},
	})
	require.NoError(t, err)
	return plan
}

func feedbackRequest(day int) *model.AddFeedbackRequest {
	req := &model.AddFeedbackRequest{DayNumber: day}
	req.Feedback.PainLevel = 3
	req.Feedback.StressLevel = 2
	req.Feedback.EnergyLevel = 7
	req.Feedback.Appetite = "good"
	req.Feedback.Digestion = "normal"
	req.Feedback.SleepQuality = "restful"
	req.Feedback.MentalState = "calm"
	req.Feedback.Notes = "feeling better"
	return req
}

func TestCreatePlan(t *testing.T) {
	f := newFixture(t)

	plan := f.createPlan(t, f.doctor.ID)
	assert.Len(t, plan.Schedule, 3)
	assert.Equal(t, f.patient.ID, plan.PatientID)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, model.NotificationTypeTreatmentPlan, f.notifier.sent[0].Type)
	assert.Equal(t, f.patient.UserID, f.notifier.sent[0].UserID)

	_, err := f.svc.Create(context.Background(), f.patientActor, &model.CreateTreatmentPlanRequest{PatientID: f.patient.ID})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestGetForPatientReturnsLatest(t *testing.T) {
	f := newFixture(t)

	first := f.createPlan(t, f.doctor.ID)
	// Force distinct creation times; the fake orders by CreatedAt.
	first.CreatedAt = first.CreatedAt.Add(-time.Hour)
	second := f.createPlan(t, f.doctor.ID)

	plan, err := f.svc.GetForPatient(context.Background(), f.patientActor, f.patient.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, plan.ID)

	// A patient cannot read another patient's plan.
	other := &model.Patient{UserID: uuid.New()}
	require.NoError(t, f.patients.Create(context.Background(), other))
	_, err = f.svc.GetForPatient(context.Background(), model.Actor{UserID: other.UserID, Role: model.UserRolePatient}, f.patient.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.GetForPatient(context.Background(), f.doctorActor, other.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAddFeedback(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, f.doctor.ID)

	updated, err := f.svc.AddFeedback(context.Background(), f.patientActor, plan.ID, feedbackRequest(2))
	require.NoError(t, err)

	fb := updated.Schedule[1].Feedback
	require.NotNil(t, fb)
	assert.Equal(t, 3, fb.PainLevel)
	assert.Equal(t, "good", fb.Appetite)
	assert.Equal(t, "feeling better", fb.Notes)
	assert.False(t, fb.SubmittedAt.IsZero())
	assert.Nil(t, updated.Schedule[0].Feedback)

	// The plan's doctor is notified.
	var feedbackNotes []*model.Notification
	for _, n := range f.notifier.sent {
		if n.Type == model.NotificationTypeTreatmentFeedback {
			feedbackNotes = append(feedbackNotes, n)
		}
	}
	require.Len(t, feedbackNotes, 1)
	assert.Equal(t, f.doctor.UserID, feedbackNotes[0].UserID)
}

func TestAddFeedbackUnknownDay(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, f.doctor.ID)

	_, err := f.svc.AddFeedback(context.Background(), f.patientActor, plan.ID, feedbackRequest(9))
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAddFeedbackOverwritesPreviousSubmission(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, f.doctor.ID)

	first, err := f.svc.AddFeedback(context.Background(), f.patientActor, plan.ID, feedbackRequest(1))
	require.NoError(t, err)
	firstSubmitted := first.Schedule[0].Feedback.SubmittedAt

	time.Sleep(5 * time.Millisecond)

	req := feedbackRequest(1)
	req.Feedback.PainLevel = 8
	req.Feedback.Notes = ""
	updated, err := f.svc.AddFeedback(context.Background(), f.patientActor, plan.ID, req)
	require.NoError(t, err)

	fb := updated.Schedule[0].Feedback
	assert.Equal(t, 8, fb.PainLevel)
	assert.Empty(t, fb.Notes)
	assert.True(t, fb.SubmittedAt.After(firstSubmitted))
}

func TestAddFeedbackOwnership(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, f.doctor.ID)

	other := &model.Patient{UserID: uuid.New()}
	require.NoError(t, f.patients.Create(context.Background(), other))

	_, err := f.svc.AddFeedback(context.Background(), model.Actor{UserID: other.UserID, Role: model.UserRolePatient}, plan.ID, feedbackRequest(1))
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))
}

func TestFeedbackDoctorFallback(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, uuid.Nil)

	// Without a plan doctor or an appointment history the notification
	// is dropped; the feedback itself still lands.
	updated, err := f.svc.AddFeedback(context.Background(), f.patientActor, plan.ID, feedbackRequest(1))
	require.NoError(t, err)
	require.NotNil(t, updated.Schedule[0].Feedback)
	for _, n := range f.notifier.sent {
		assert.NotEqual(t, model.NotificationTypeTreatmentFeedback, n.Type)
	}

	// With a past appointment the doctor is resolved from it.
	f.appointments.latest[f.patient.ID] = &model.Appointment{DoctorID: f.doctor.ID}
	_, err = f.svc.AddFeedback(context.Background(), f.patientActor, plan.ID, feedbackRequest(2))
	require.NoError(t, err)

	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, model.NotificationTypeTreatmentFeedback, last.Type)
	assert.Equal(t, f.doctor.UserID, last.UserID)
}

func TestUpdatePlan(t *testing.T) {
	f := newFixture(t)
	plan := f.createPlan(t, f.doctor.ID)

	_, err := f.svc.Update(context.Background(), f.patientActor, plan.ID, &model.UpdateTreatmentPlanRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	summary := "revised program"
	updated, err := f.svc.Update(context.Background(), f.doctorActor, plan.ID, &model.UpdateTreatmentPlanRequest{Summary: &summary})
	require.NoError(t, err)
	assert.Equal(t, summary, updated.Summary)
	// The schedule is kept when the request leaves it out.
	assert.Len(t, updated.Schedule, 3)

	updated, err = f.svc.Update(context.Background(), f.doctorActor, plan.ID, &model.UpdateTreatmentPlanRequest{
		Schedule: []model.DaySchedule{{Day: 1, Plan: []string{"Rest only"}}},
	})
	require.NoError(t, err)
	assert.Len(t, updated.Schedule, 1)
	assert.Equal(t, summary, updated.Summary)

	last := f.notifier.sent[len(f.notifier.sent)-1]
	assert.Equal(t, model.NotificationTypeTreatmentPlanUpdated, last.Type)
	assert.Equal(t, f.patient.UserID, last.UserID)
}

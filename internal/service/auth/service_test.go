package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/repository/postgres"
	"github.com/suminyol/ayursutra-api/pkg/auth"
	apperrors "github.com/suminyol/ayursutra-api/pkg/errors"
	"github.com/suminyol/ayursutra-api/pkg/security"
)

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.New()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

type fakePatientRepo struct {
	patients []*model.Patient
}

func (r *fakePatientRepo) Create(ctx context.Context, patient *model.Patient) error {
	patient.ID = uuid.New()
	r.patients = append(r.patients, patient)
	return nil
}

func (r *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	for _, p := range r.patients {
		if p.ID == id {
			return p, nil
		}
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

func (r *fakePatientRepo) Update(ctx context.Context, patient *model.Patient) error { return nil }

type fakeDoctorRepo struct {
	doctors []*model.Doctor
}

func (r *fakeDoctorRepo) Create(ctx context.Context, doctor *model.Doctor) error {
	doctor.ID = uuid.New()
	r.doctors = append(r.doctors, doctor)
	return nil
}

func (r *fakeDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	for _, d := range r.doctors {
		if d.ID == id {
			return d, nil
		}
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

func (r *fakeDoctorRepo) Update(ctx context.Context, doctor *model.Doctor) error { return nil }

func (r *fakeDoctorRepo) List(ctx context.Context) ([]*model.Doctor, error) { return nil, nil }

type fixture struct {
	svc      Service
	users    *fakeUserRepo
	patients *fakePatientRepo
	doctors  *fakeDoctorRepo
	tokens   *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	users := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	patients := &fakePatientRepo{}
	doctors := &fakeDoctorRepo{}
	tokens := auth.NewTokenManager(auth.Config{Secret: "test-secret", ExpiryHours: 1})
	// bcrypt at min cost keeps the tests fast.
	hasher := security.NewBcryptHasher(4)

	return &fixture{
		svc:      NewService(users, patients, doctors, hasher, tokens),
		users:    users,
		patients: patients,
		doctors:  doctors,
		tokens:   tokens,
	}
}

func patientRegistration() *model.RegisterRequest {
	return &model.RegisterRequest{
		Name:     "Asha Rao",
		Email:    "Asha.Rao@Example.com",
		Password: "secret123",
		Role:     model.UserRolePatient,
		Phone:    "+911234567890",
	}
}

func TestRegisterPatient(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Register(context.Background(), patientRegistration())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "asha.rao@example.com", resp.User.Email)
	assert.True(t, resp.User.IsActive)
	assert.NotEqual(t, "secret123", resp.User.PasswordHash)

	// The patient profile is created alongside the account.
	require.Len(t, f.patients.patients, 1)
	assert.Equal(t, resp.User.ID, f.patients.patients[0].UserID)
	assert.Empty(t, f.doctors.doctors)

	claims, err := f.tokens.Validate(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, string(model.UserRolePatient), claims.Role)
}

func TestRegisterDoctor(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Register(context.Background(), &model.RegisterRequest{
		Name:           "Dr. Kumar",
		Email:          "kumar@example.com",
		Password:       "secret123",
		Role:           model.UserRoleDoctor,
		Phone:          "+919876543210",
		Specialization: "Panchakarma",
		Qualification:  "BAMS",
	})
	require.NoError(t, err)

	require.Len(t, f.doctors.doctors, 1)
	doctor := f.doctors.doctors[0]
	assert.Equal(t, resp.User.ID, doctor.UserID)
	assert.Equal(t, "Panchakarma", doctor.Specialization)
	assert.True(t, doctor.IsActive)
	assert.True(t, strings.HasPrefix(doctor.DoctorCode, "AYS-"))
	assert.Len(t, doctor.DoctorCode, 12)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), patientRegistration())
	require.NoError(t, err)

	// The same address with different casing is still a duplicate.
	req := patientRegistration()
	req.Email = "ASHA.RAO@example.com"
	_, err = f.svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestLogin(t *testing.T) {
	f := newFixture(t)

	registered, err := f.svc.Register(context.Background(), patientRegistration())
	require.NoError(t, err)

	resp, err := f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "asha.rao@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, registered.User.ID, resp.User.ID)
	assert.NotNil(t, resp.User.LastLoginAt)
}

func TestLoginRejections(t *testing.T) {
	f := newFixture(t)

	registered, err := f.svc.Register(context.Background(), patientRegistration())
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "asha.rao@example.com",
		Password: "wrong-password",
	})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)

	_, err = f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)

	registered.User.IsActive = false
	require.NoError(t, f.users.Update(context.Background(), registered.User))
	_, err = f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "asha.rao@example.com",
		Password: "secret123",
	})
	require.Error(t, err)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

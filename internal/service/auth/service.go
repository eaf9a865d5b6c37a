package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/repository"
	"github.com/suminyol/ayursutra-api/internal/repository/postgres"
	"github.com/suminyol/ayursutra-api/pkg/auth"
	apperrors "github.com/suminyol/ayursutra-api/pkg/errors"
	"github.com/suminyol/ayursutra-api/pkg/security"
)

type Service interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error)
}

type service struct {
	userRepo    repository.UserRepository
	patientRepo repository.PatientRepository
	doctorRepo  repository.DoctorRepository
	hasher      security.PasswordHasher
	tokens      *auth.TokenManager
}

func NewService(
	userRepo repository.UserRepository,
	patientRepo repository.PatientRepository,
	doctorRepo repository.DoctorRepository,
	hasher security.PasswordHasher,
	tokens *auth.TokenManager,
) Service {
	return &service{
		userRepo:    userRepo,
		patientRepo: patientRepo,
		doctorRepo:  doctorRepo,
		hasher:      hasher,
		tokens:      tokens,
	}
}

// Register creates the user account and its role profile in one call.
func (s *service) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Conflict("an account with this email already exists", nil)
	} else if err != postgres.ErrNotFound {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		Phone:        req.Phone,
		Gender:       req.Gender,
		DateOfBirth:  req.DateOfBirth,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, apperrors.Conflict("an account with this email already exists", err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	switch req.Role {
	case model.UserRolePatient:
		patient := &model.Patient{UserID: user.ID}
		if err := s.patientRepo.Create(ctx, patient); err != nil {
			return nil, fmt.Errorf("failed to create patient profile: %w", err)
		}
	case model.UserRoleDoctor:
		doctor := &model.Doctor{
			UserID:            user.ID,
			DoctorCode:        doctorCode(),
			Specialization:    req.Specialization,
			Qualification:     req.Qualification,
			YearsOfExperience: req.YearsOfExperience,
			ConsultationFee:   req.ConsultationFee,
			IsActive:          true,
		}
		if err := s.doctorRepo.Create(ctx, doctor); err != nil {
			return nil, fmt.Errorf("failed to create doctor profile: %w", err)
		}
	}

	token, err := s.tokens.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.AuthResponse{Token: token, User: user}, nil
}

func (s *service) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.Unauthorized(fmt.Errorf("account is deactivated"))
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized(fmt.Errorf("invalid credentials"))
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.AuthResponse{Token: token, User: user}, nil
}

func doctorCode() string {
	return "AYS-" + strings.ToUpper(uuid.New().String()[:8])
}

package doctor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/suminyol/ayursutra-api/internal/model"
	"github.com/suminyol/ayursutra-api/internal/repository"
	"github.com/suminyol/ayursutra-api/internal/repository/postgres"
	apperrors "github.com/suminyol/ayursutra-api/pkg/errors"
)

type Service interface {
	List(ctx context.Context) ([]*model.Doctor, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
}

type service struct {
	repo     repository.DoctorRepository
	userRepo repository.UserRepository
}

func NewService(repo repository.DoctorRepository, userRepo repository.UserRepository) Service {
	return &service{repo: repo, userRepo: userRepo}
}

func (s *service) List(ctx context.Context) ([]*model.Doctor, error) {
	doctors, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	for _, doctor := range doctors {
		s.attachUser(ctx, doctor)
	}
	return doctors, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.repo.GetActive(ctx, id)
	if err != nil {
		if err == postgres.ErrNotFound {
			return nil, apperrors.NotFound("doctor", err)
		}
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	s.attachUser(ctx, doctor)
	return doctor, nil
}

func (s *service) attachUser(ctx context.Context, doctor *model.Doctor) {
	if user, err := s.userRepo.Get(ctx, doctor.UserID); err == nil {
		user.PasswordHash = ""
		doctor.User = user
	}
}

package service

import (
	"context"

	"neovidya/internal/models"
	"neovidya/internal/repository"
)

// SchoolService lists schools and lets admins manage accounts and schools
type SchoolService struct {
	schoolRepo *repository.SchoolRepository
	userRepo   *repository.UserRepository
}

// NewSchoolService creates a new school service
func NewSchoolService(schoolRepo *repository.SchoolRepository, userRepo *repository.UserRepository) *SchoolService {
	return &SchoolService{schoolRepo: schoolRepo, userRepo: userRepo}
}

// ListSchools returns every school
func (s *SchoolService) ListSchools(ctx context.Context) ([]models.School, error) {
	return s.schoolRepo.ListSchools(ctx)
}

// ListUsers returns every account; admin only
func (s *SchoolService) ListUsers(ctx context.Context, actor models.AuthContext) ([]models.User, error) {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.userRepo.ListUsers(ctx)
}

// DeleteSchool removes a school and detaches its members; admin only
func (s *SchoolService) DeleteSchool(ctx context.Context, actor models.AuthContext, id int64) error {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return err
	}
	deleted, err := s.schoolRepo.DeleteSchool(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrSchoolNotFound
	}
	return nil
}

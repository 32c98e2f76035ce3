package service

import (
	"context"
	"time"

	"neovidya/internal/models"
	"neovidya/internal/repository"
	"neovidya/internal/validation"
)

// StatsService exposes XP, streak and completion counts
type StatsService struct {
	userRepo     *repository.UserRepository
	progressRepo *repository.ProgressRepository
	now          func() time.Time
}

// NewStatsService creates a new stats service
func NewStatsService(userRepo *repository.UserRepository, progressRepo *repository.ProgressRepository) *StatsService {
	return &StatsService{
		userRepo:     userRepo,
		progressRepo: progressRepo,
		now:          time.Now,
	}
}

// GetStats returns the actor's counters. CompletedItems is counted from the
// progress rows on every call.
func (s *StatsService) GetStats(ctx context.Context, actor models.AuthContext) (*models.Stats, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	completed, err := s.progressRepo.CountCompleted(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	return &models.Stats{
		XP:             user.XP,
		Streak:         user.Streak,
		LastActive:     user.LastActive,
		CompletedItems: completed,
	}, nil
}

// UpdateStats sets the supplied counters and refreshes last_active.
// Nothing is written when any supplied value is negative.
func (s *StatsService) UpdateStats(ctx context.Context, actor models.AuthContext, update models.StatsUpdate) error {
	if err := requireUser(actor); err != nil {
		return err
	}

	if update.XP != nil {
		if err := validation.NonNegative("xp", *update.XP); err != nil {
			return fromValidation(err)
		}
	}
	if update.Streak != nil {
		if err := validation.NonNegative("streak", *update.Streak); err != nil {
			return fromValidation(err)
		}
	}

	found, err := s.userRepo.UpdateStats(ctx, actor.UserID, update, s.now().UTC())
	if err != nil {
		return err
	}
	if !found {
		return ErrUserNotFound
	}
	return nil
}

package service

import (
	"context"
	"strings"
	"time"

	"neovidya/internal/catalogue"
	"neovidya/internal/models"
	"neovidya/internal/repository"
	"neovidya/internal/validation"
)

// ProgressUpdate is one learner action on a catalogue item.
// A nil Score is stored as 0.
type ProgressUpdate struct {
	Subject      string
	ChapterIndex int
	ItemIndex    int
	Completed    bool
	Score        *int
}

// ProgressService records and lists per-item progress
type ProgressService struct {
	courseRepo   *repository.CourseRepository
	progressRepo *repository.ProgressRepository
	catalogue    *catalogue.Catalogue
	now          func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(courseRepo *repository.CourseRepository, progressRepo *repository.ProgressRepository, cat *catalogue.Catalogue) *ProgressService {
	return &ProgressService{
		courseRepo:   courseRepo,
		progressRepo: progressRepo,
		catalogue:    cat,
		now:          time.Now,
	}
}

// RecordProgress stores the latest state of one item for the actor.
// Repeated calls for the same item overwrite it in place.
func (s *ProgressService) RecordProgress(ctx context.Context, actor models.AuthContext, update ProgressUpdate) (*models.ProgressEntry, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	subject := strings.TrimSpace(update.Subject)
	if err := validation.ValidateSubjectKey(subject); err != nil {
		return nil, fromValidation(err)
	}
	if update.ChapterIndex < 0 || update.ItemIndex < 0 {
		return nil, invalid("index", "Invalid chapter or item index")
	}
	score := 0
	if update.Score != nil {
		score = *update.Score
	}
	if err := validation.NonNegative("score", score); err != nil {
		return nil, fromValidation(err)
	}

	course, err := s.courseRepo.GetOrCreateCourse(ctx, subject)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := &models.ProgressEntry{
		UserID:       actor.UserID,
		CourseID:     course.ID,
		Subject:      subject,
		ChapterIndex: update.ChapterIndex,
		ItemIndex:    update.ItemIndex,
		Completed:    update.Completed,
		Score:        score,
		UpdatedAt:    now,
	}
	if update.Completed {
		entry.CompletedAt = &now
	}

	if err := s.progressRepo.UpsertProgress(ctx, entry); err != nil {
		return nil, err
	}

	stored, err := s.progressRepo.GetProgress(ctx, entry.Key())
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return entry, nil
	}
	return stored, nil
}

// ListProgress returns all of the actor's progress grouped by subject, chapter and item
func (s *ProgressService) ListProgress(ctx context.Context, actor models.AuthContext) (models.ProgressTree, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	entries, err := s.progressRepo.ListProgressByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return models.GroupProgress(entries), nil
}

// SubjectProgress returns the actor's progress for one catalogue subject
func (s *ProgressService) SubjectProgress(ctx context.Context, actor models.AuthContext, subject string) (models.SubjectProgress, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if !s.catalogue.Has(subject) {
		return nil, ErrSubjectNotFound
	}

	entries, err := s.progressRepo.ListProgressBySubject(ctx, actor.UserID, subject)
	if err != nil {
		return nil, err
	}

	tree := models.GroupProgress(entries)
	if sp, ok := tree[subject]; ok {
		return sp, nil
	}
	return models.SubjectProgress{}, nil
}
